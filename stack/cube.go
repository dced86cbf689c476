package stack

import (
	"fmt"

	"github.com/mezonai/cubix/digest"
	stackerrors "github.com/mezonai/cubix/errors"
	"github.com/mezonai/cubix/geometry"
)

// CubeSize is the number of face-digest slots in a Cube.
const CubeSize = 3

// Cube aggregates three Face digests. Faces is reserved adjacency, like Face.Edges.
type Cube struct {
	Slots    [CubeSize]digest.Hash `json:"slots"`
	Position geometry.Vec3         `json:"position"`
	Faces    [6]int                `json:"faces"`
}

func NewCube(position geometry.Vec3) Cube {
	return Cube{Position: position}
}

func (c *Cube) Filled() int {
	return countFilled(c.Slots[:])
}

func (c *Cube) IsComplete() bool {
	return c.Filled() == CubeSize
}

func (c *Cube) IsEmpty(slot int) bool {
	return slot >= 0 && slot < CubeSize && c.Slots[slot].IsZero()
}

// Set stores h in slot. The slot must be in range and empty.
func (c *Cube) Set(slot int, h digest.Hash) error {
	if slot < 0 || slot >= CubeSize {
		return stackerrors.NewError(stackerrors.ErrCodeInvalidCube, fmt.Sprintf(stackerrors.ErrMsgSlotOutOfRange, slot, CubeSize))
	}
	if !c.Slots[slot].IsZero() {
		return stackerrors.NewError(stackerrors.ErrCodeInvalidCube, fmt.Sprintf("slot %d already holds %s", slot, c.Slots[slot].Short()))
	}
	c.Slots[slot] = h
	return nil
}

func (c *Cube) Digest(hasher digest.Hasher) digest.Hash {
	return digest.SumHashes(hasher, c.Slots[:])
}

func (c *Cube) Reset() {
	c.Slots = [CubeSize]digest.Hash{}
}

func (c *Cube) Validate() error {
	if i := firstMalformed(c.Slots[:]); i >= 0 {
		return stackerrors.NewError(stackerrors.ErrCodeInvalidCube, fmt.Sprintf(stackerrors.ErrMsgMalformedHash, i))
	}
	return nil
}
