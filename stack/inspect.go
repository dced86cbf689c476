package stack

import (
	"fmt"
	"io"

	"github.com/mezonai/cubix/digest"
	"github.com/mezonai/cubix/geometry"
)

// ContainerReport describes one Face or Cube.
type ContainerReport struct {
	Index    int           `json:"index"`
	Filled   int           `json:"filled"`
	Capacity int           `json:"capacity"`
	Slots    []digest.Hash `json:"slots"`
	Position geometry.Vec3 `json:"position"`
}

// LevelReport is the diagnostic view of one level.
type LevelReport struct {
	Level           uint32            `json:"level"`
	Blocks          int               `json:"blocks"`
	Faces           []ContainerReport `json:"faces"`
	Cubes           []ContainerReport `json:"cubes"`
	CompleteFaces   int               `json:"complete_faces"`
	CompleteCubes   int               `json:"complete_cubes"`
	FaceSlots       int               `json:"face_slots"`
	CubeSlots       int               `json:"cube_slots"`
	FilledFaceSlots int               `json:"filled_face_slots"`
	FilledCubeSlots int               `json:"filled_cube_slots"`
}

// Inspect reports every level in ascending order.
func (m *Manager) Inspect() []LevelReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	levels := sortedLevels(m.stacks)
	reports := make([]LevelReport, 0, len(levels))
	for _, level := range levels {
		reports = append(reports, m.stacks[level].Report())
	}
	return reports
}

func (s *Stack) Report() LevelReport {
	r := LevelReport{
		Level:     s.Level,
		Blocks:    len(s.Blocks),
		Faces:     make([]ContainerReport, 0, len(s.Faces)),
		Cubes:     make([]ContainerReport, 0, len(s.Cubes)),
		FaceSlots: len(s.Faces) * FaceSize,
		CubeSlots: len(s.Cubes) * CubeSize,
	}
	for i := range s.Faces {
		f := &s.Faces[i]
		r.Faces = append(r.Faces, ContainerReport{
			Index:    i,
			Filled:   f.Filled(),
			Capacity: FaceSize,
			Slots:    append([]digest.Hash(nil), f.Slots[:]...),
			Position: f.Position,
		})
		r.FilledFaceSlots += f.Filled()
		if f.IsComplete() {
			r.CompleteFaces++
		}
	}
	for i := range s.Cubes {
		c := &s.Cubes[i]
		r.Cubes = append(r.Cubes, ContainerReport{
			Index:    i,
			Filled:   c.Filled(),
			Capacity: CubeSize,
			Slots:    append([]digest.Hash(nil), c.Slots[:]...),
			Position: c.Position,
		})
		r.FilledCubeSlots += c.Filled()
		if c.IsComplete() {
			r.CompleteCubes++
		}
	}
	return r
}

// WriteReport prints reports in a human-readable layout. With detail set every
// occupied slot is listed.
func WriteReport(w io.Writer, reports []LevelReport, detail bool) error {
	for _, r := range reports {
		if _, err := fmt.Fprintf(w, "Level %d:\n  Blocks: %d\n  Faces: %d\n  Cubes: %d\n", r.Level, r.Blocks, len(r.Faces), len(r.Cubes)); err != nil {
			return err
		}
		if detail {
			if err := writeContainers(w, "Face", r.Faces); err != nil {
				return err
			}
			if err := writeContainers(w, "Cube", r.Cubes); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "  Complete faces: %d\n  Complete cubes: %d\n  Total slots in faces: %d\n  Total slots in cubes: %d\n  Total filled slots in faces: %d\n  Total filled slots in cubes: %d\n",
			r.CompleteFaces, r.CompleteCubes, r.FaceSlots, r.CubeSlots, r.FilledFaceSlots, r.FilledCubeSlots)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeContainers(w io.Writer, kind string, containers []ContainerReport) error {
	for _, c := range containers {
		if _, err := fmt.Fprintf(w, "    %s %d: %d/%d filled\n", kind, c.Index, c.Filled, c.Capacity); err != nil {
			return err
		}
		for j, slot := range c.Slots {
			if slot.IsZero() {
				continue
			}
			if _, err := fmt.Fprintf(w, "      Slot %d: %s\n", j, slot.Short()); err != nil {
				return err
			}
		}
	}
	return nil
}
