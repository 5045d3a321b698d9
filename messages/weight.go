// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package messages

import "fmt"

// Weight is a two dimensional measure of the resources a call consumes.
type Weight struct {
	// Computational time in picoseconds.
	RefTime uint64
	// Size of the storage proof the call needs, in bytes.
	ProofSize uint64
}

func NewWeight(refTime, proofSize uint64) Weight {
	return Weight{RefTime: refTime, ProofSize: proofSize}
}

func ZeroWeight() Weight {
	return Weight{}
}

func (w Weight) IsZero() bool {
	return w.RefTime == 0 && w.ProofSize == 0
}

// Div divides both components by n. Division by zero yields the zero weight.
func (w Weight) Div(n uint64) Weight {
	if n == 0 {
		return Weight{}
	}
	return Weight{RefTime: w.RefTime / n, ProofSize: w.ProofSize / n}
}

// AllLTE reports whether every component of w is lower than or equal to the one of other.
func (w Weight) AllLTE(other Weight) bool {
	return w.RefTime <= other.RefTime && w.ProofSize <= other.ProofSize
}

func (w Weight) SaturatingAdd(other Weight) Weight {
	return Weight{
		RefTime:   SaturatingAdd(w.RefTime, other.RefTime),
		ProofSize: SaturatingAdd(w.ProofSize, other.ProofSize),
	}
}

func (w Weight) String() string {
	return fmt.Sprintf("Weight(ref_time: %d, proof_size: %d)", w.RefTime, w.ProofSize)
}
