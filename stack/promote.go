package stack

import (
	"math"
	"sort"

	"github.com/mezonai/cubix/digest"
	stackerrors "github.com/mezonai/cubix/errors"
	"github.com/mezonai/cubix/events"
)

// cascade applies one insertion and every promotion it triggers to a working copy of
// the level map, collecting the events to publish once the copy is committed.
type cascade struct {
	stacks map[uint32]*Stack
	hasher digest.Hasher
	events []events.StackEvent
}

type completed struct {
	index  int
	slot   int
	digest digest.Hash
}

func (c *cascade) level(level uint32) *Stack {
	s, ok := c.stacks[level]
	if !ok {
		s = NewStack(level)
		c.stacks[level] = s
		c.events = append(c.events, events.NewLevelCreated(level))
	}
	return s
}

// insertFace places h in slot of the fullest eligible Face of level, creating a Face
// when none has that slot free, and promotes the Face if it fills up.
func (c *cascade) insertFace(level uint32, slot int, h digest.Hash) error {
	s := c.level(level)

	best := -1
	for i := range s.Faces {
		f := &s.Faces[i]
		if f.IsComplete() || !f.IsEmpty(slot) {
			continue
		}
		if best == -1 || f.Filled() > s.Faces[best].Filled() {
			best = i
		}
	}
	if best == -1 {
		s.Faces = append(s.Faces, NewFace(s.nextFacePosition()))
		best = len(s.Faces) - 1
	}

	if err := s.Faces[best].Set(slot, h); err != nil {
		return err
	}
	if s.Faces[best].IsComplete() {
		return c.promoteFaces(level)
	}
	return nil
}

// promoteFaces moves the digest of every complete Face of level into a Cube and clears the Face.
func (c *cascade) promoteFaces(level uint32) error {
	s := c.stacks[level]

	var done []completed
	for i := range s.Faces {
		if !s.Faces[i].IsComplete() {
			continue
		}
		d := s.Faces[i].Digest(c.hasher)
		done = append(done, completed{index: i, slot: digest.CubeSlot(d), digest: d})
	}
	sort.SliceStable(done, func(a, b int) bool { return done[a].slot < done[b].slot })

	cubeCompleted := false
	for _, f := range done {
		target := -1
		for j := range s.Cubes {
			if !s.Cubes[j].IsComplete() && s.Cubes[j].IsEmpty(f.slot) {
				target = j
				break
			}
		}
		if target == -1 {
			s.Cubes = append(s.Cubes, NewCube(s.nextCubePosition()))
			target = len(s.Cubes) - 1
		}

		if err := s.Cubes[target].Set(f.slot, f.digest); err != nil {
			return err
		}
		if s.Cubes[target].IsComplete() {
			cubeCompleted = true
		}

		c.events = append(c.events, events.NewFaceCompleted(level, f.index, f.digest))
		s.Faces[f.index].Reset()
	}

	if cubeCompleted {
		return c.promoteCubes(level)
	}
	return nil
}

// promoteCubes inserts the digest of every complete Cube of level into level+1, then
// clears those Cubes in place.
func (c *cascade) promoteCubes(level uint32) error {
	if level == math.MaxUint32 {
		return stackerrors.NewError(stackerrors.ErrCodeInvalidStack, "no level above the highest level")
	}
	s := c.stacks[level]

	var done []completed
	for i := range s.Cubes {
		if !s.Cubes[i].IsComplete() {
			continue
		}
		d := s.Cubes[i].Digest(c.hasher)
		done = append(done, completed{index: i, slot: digest.FaceSlot(d), digest: d})
	}
	sort.SliceStable(done, func(a, b int) bool { return done[a].slot < done[b].slot })

	for _, cube := range done {
		c.events = append(c.events, events.NewCubeCompleted(level, cube.index, cube.digest))
		if err := c.insertFace(level+1, cube.slot, cube.digest); err != nil {
			return err
		}
	}
	for _, cube := range done {
		s.Cubes[cube.index].Reset()
	}
	return nil
}
