// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package messages

import (
	"errors"
	"fmt"

	"github.com/snowfork/bridge-messages/chain/headerchain"
)

var (
	ErrEmptyMessageProof     = errors.New("the message proof is empty")
	ErrInvalidMessageWeight  = errors.New("the declared message weight is incorrect")
	ErrMessagesCountMismatch = errors.New("declared messages count doesn't match actual value")
	ErrMessageTooLarge       = errors.New("the message is too large")
)

// ErrorKind tells which step of proof verification has failed.
type ErrorKind int

const (
	// HeaderChain is returned by the bridged header chain.
	HeaderChain ErrorKind = iota + 1
	// InboundLaneStorage happens while reading/decoding inbound lane data from the storage proof.
	InboundLaneStorage
	// MessageStorage happens while reading/decoding message data from the storage proof.
	MessageStorage
	// OutboundLaneStorage happens while reading/decoding outbound lane data from the storage proof.
	OutboundLaneStorage
	// StorageProof is a storage proof related error.
	StorageProof
)

func (k ErrorKind) String() string {
	switch k {
	case HeaderChain:
		return "header chain"
	case InboundLaneStorage:
		return "inbound lane storage"
	case MessageStorage:
		return "message storage"
	case OutboundLaneStorage:
		return "outbound lane storage"
	case StorageProof:
		return "storage proof"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Error wraps a header chain or storage proof failure together with the
// verification step it happened at.
type Error struct {
	Kind ErrorKind
	Err  error
}

func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err, or any error it wraps, is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// FromHeaderChain marks failures to resolve the header or to open the storage
// proof with the HeaderChain kind. Other errors are returned as is.
func FromHeaderChain(err error) error {
	var headerErr *headerchain.Error
	if errors.As(err, &headerErr) {
		return NewError(HeaderChain, headerErr)
	}
	return err
}
