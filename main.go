package main

import "github.com/snowfork/bridge-messages/cmd"

func main() {
	cmd.Execute()
}
