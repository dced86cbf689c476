package stack

import (
	"fmt"

	stackerrors "github.com/mezonai/cubix/errors"
	"github.com/mezonai/cubix/geometry"
	"github.com/mezonai/cubix/types"
)

// Stack is one aggregation level. Only level 0 holds raw transactions.
type Stack struct {
	Level  uint32              `json:"level"`
	Blocks []types.Transaction `json:"blocks"`
	Faces  []Face              `json:"faces"`
	Cubes  []Cube              `json:"cubes"`
}

func NewStack(level uint32) *Stack {
	return &Stack{Level: level}
}

func (s *Stack) nextFacePosition() geometry.Vec3 {
	if len(s.Faces) == 0 {
		return geometry.Origin
	}
	return s.Faces[len(s.Faces)-1].Position.Next()
}

func (s *Stack) nextCubePosition() geometry.Vec3 {
	if len(s.Cubes) == 0 {
		return geometry.Origin
	}
	return s.Cubes[len(s.Cubes)-1].Position.Next()
}

// Clone returns a deep copy.
func (s *Stack) Clone() *Stack {
	out := s.workingCopy()
	if s.Blocks != nil {
		out.Blocks = make([]types.Transaction, len(s.Blocks))
		for i := range s.Blocks {
			out.Blocks[i] = s.Blocks[i].Clone()
		}
	}
	return out
}

// workingCopy copies the containers but shares the accepted transactions, which are
// never mutated. The block slice is capped so appends on the copy reallocate.
func (s *Stack) workingCopy() *Stack {
	out := &Stack{Level: s.Level}
	if s.Blocks != nil {
		out.Blocks = s.Blocks[:len(s.Blocks):len(s.Blocks)]
	}
	if s.Faces != nil {
		out.Faces = make([]Face, len(s.Faces))
		copy(out.Faces, s.Faces)
	}
	if s.Cubes != nil {
		out.Cubes = make([]Cube, len(s.Cubes))
		copy(out.Cubes, s.Cubes)
	}
	return out
}

// Validate checks a stack restored from storage. A complete container means a promotion was lost.
func (s *Stack) Validate(level uint32) error {
	if s.Level != level {
		return stackerrors.NewError(stackerrors.ErrCodeInvalidStack, fmt.Sprintf(stackerrors.ErrMsgLevelMismatch, level, s.Level))
	}
	if level != 0 && len(s.Blocks) > 0 {
		return stackerrors.NewError(stackerrors.ErrCodeInvalidStack, fmt.Sprintf(stackerrors.ErrMsgBlocksAboveBase, level, len(s.Blocks)))
	}
	for i := range s.Faces {
		if err := s.Faces[i].Validate(); err != nil {
			return fmt.Errorf("face %d at level %d: %w", i, level, err)
		}
		if s.Faces[i].IsComplete() {
			return stackerrors.NewError(stackerrors.ErrCodeInvalidFace, fmt.Sprintf(stackerrors.ErrMsgUnpromoted, "face", i, level))
		}
	}
	for i := range s.Cubes {
		if err := s.Cubes[i].Validate(); err != nil {
			return fmt.Errorf("cube %d at level %d: %w", i, level, err)
		}
		if s.Cubes[i].IsComplete() {
			return stackerrors.NewError(stackerrors.ErrCodeInvalidCube, fmt.Sprintf(stackerrors.ErrMsgUnpromoted, "cube", i, level))
		}
	}
	return nil
}

// FilledFaceSlots is the number of occupied slots across all Faces.
func (s *Stack) FilledFaceSlots() int {
	n := 0
	for i := range s.Faces {
		n += s.Faces[i].Filled()
	}
	return n
}

func (s *Stack) FilledCubeSlots() int {
	n := 0
	for i := range s.Cubes {
		n += s.Cubes[i].Filled()
	}
	return n
}
