package stack

import (
	"fmt"

	"github.com/mezonai/cubix/digest"
	stackerrors "github.com/mezonai/cubix/errors"
	"github.com/mezonai/cubix/geometry"
)

// FaceSize is the number of transaction-hash slots in a Face.
const FaceSize = 9

// Face aggregates nine hashes. Edges is reserved for lattice adjacency and is not
// consulted by insertion or promotion.
type Face struct {
	Slots    [FaceSize]digest.Hash `json:"slots"`
	Position geometry.Vec3         `json:"position"`
	Edges    [4]int                `json:"edges"`
}

func NewFace(position geometry.Vec3) Face {
	return Face{Position: position}
}

func (f *Face) Filled() int {
	return countFilled(f.Slots[:])
}

func (f *Face) IsComplete() bool {
	return f.Filled() == FaceSize
}

func (f *Face) IsEmpty(slot int) bool {
	return slot >= 0 && slot < FaceSize && f.Slots[slot].IsZero()
}

// Set stores h in slot. The slot must be in range and empty.
func (f *Face) Set(slot int, h digest.Hash) error {
	if slot < 0 || slot >= FaceSize {
		return stackerrors.NewError(stackerrors.ErrCodeInvalidFace, fmt.Sprintf(stackerrors.ErrMsgSlotOutOfRange, slot, FaceSize))
	}
	if !f.Slots[slot].IsZero() {
		return stackerrors.NewError(stackerrors.ErrCodeInvalidFace, fmt.Sprintf("slot %d already holds %s", slot, f.Slots[slot].Short()))
	}
	f.Slots[slot] = h
	return nil
}

func (f *Face) Digest(hasher digest.Hasher) digest.Hash {
	return digest.SumHashes(hasher, f.Slots[:])
}

// Reset empties every slot. Position and index in the level are kept.
func (f *Face) Reset() {
	f.Slots = [FaceSize]digest.Hash{}
}

func (f *Face) Validate() error {
	if i := firstMalformed(f.Slots[:]); i >= 0 {
		return stackerrors.NewError(stackerrors.ErrCodeInvalidFace, fmt.Sprintf(stackerrors.ErrMsgMalformedHash, i))
	}
	return nil
}

func countFilled(slots []digest.Hash) int {
	n := 0
	for _, s := range slots {
		if !s.IsZero() {
			n++
		}
	}
	return n
}

func firstMalformed(slots []digest.Hash) int {
	for i, s := range slots {
		if !s.IsZero() && !s.Valid() {
			return i
		}
	}
	return -1
}
