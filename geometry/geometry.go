// Package geometry holds the lattice helpers used to place Faces and Cubes.
//
// ByteDigitalRoot is not the selector the stack engine uses for slot assignment
// (see digest.DigitalRoot). The two definitions disagree and are kept apart on purpose.
//
// ComputePosition, CanFormCube and Vec3.Distance are reserved for adjacency checks.
// Promotion does not call them; container placement only uses Origin and Vec3.Next.
package geometry

import (
	"math"
)

const epsilon = 1e-9

// Vec3 is a point in the container lattice.
type Vec3 [3]float64

// Origin is the position of the first container in a level.
var Origin = Vec3{0, 0, 0}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vec3) Distance(o Vec3) float64 {
	d := v.Sub(o)
	return math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
}

// Next is the position of the container appended after one at v.
func (v Vec3) Next() Vec3 {
	return v.Add(Vec3{1, 0, 0})
}

// ByteDigitalRoot sums the raw bytes and reduces mod 9, reporting 9 instead of 0.
func ByteDigitalRoot(hash []byte) uint8 {
	var sum uint32
	for _, b := range hash {
		sum += uint32(b)
	}
	root := uint8(sum % 9)
	if root == 0 {
		return 9
	}
	return root
}

// CubePosition locates a hash on one of nine faces, three layers deep.
type CubePosition struct {
	Face  uint8 // 1-9
	Depth uint8 // 0-2, front to back
	X     uint8 // 0-2
	Y     uint8 // 0-2
}

func ComputePosition(hash [32]byte) CubePosition {
	return CubePosition{
		Face:  ByteDigitalRoot(hash[:]),
		Depth: hash[0] % 3,
		X:     hash[1] % 3,
		Y:     hash[2] % 3,
	}
}

// CanFormCube reports whether the six points are the face centres of one unit cube:
// every point sits exactly 0.5 from the centroid along a single axis and the six
// (axis, direction) pairs are all different.
func CanFormCube(centres [6]Vec3) bool {
	var centroid Vec3
	for _, c := range centres {
		centroid = centroid.Add(c)
	}
	for i := range centroid {
		centroid[i] /= 6
	}

	seen := make(map[[2]int]bool, 6)
	for _, c := range centres {
		d := c.Sub(centroid)
		axis := -1
		dir := 0
		for i, component := range d {
			switch {
			case math.Abs(component) < epsilon:
				continue
			case math.Abs(math.Abs(component)-0.5) < epsilon && axis == -1:
				axis = i
				if component > 0 {
					dir = 1
				} else {
					dir = -1
				}
			default:
				return false
			}
		}
		if axis == -1 {
			return false
		}
		key := [2]int{axis, dir}
		if seen[key] {
			return false
		}
		seen[key] = true
	}
	return true
}
