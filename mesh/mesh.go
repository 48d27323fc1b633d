/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package mesh analyzes triangulated solids coming out of the replay
// package: edge topology and feature-chain extraction, silhouette
// detection against a viewpoint, and dihedral-angle face-region
// segmentation with plane/sphere/cylinder primitive fitting.
package mesh

import (
	"math"

	"github.com/launix-de/vicad/kernel"
)

func length(v kernel.Vec3) float64 { return math.Sqrt(v.Dot(v)) }

func normalize(v kernel.Vec3) kernel.Vec3 {
	l := length(v)
	if l <= 1e-20 {
		return kernel.Vec3{}
	}
	return v.Scale(1 / l)
}

func midpoint(a, b kernel.Vec3) kernel.Vec3 { return a.Add(b).Scale(0.5) }

// Bounds returns the axis-aligned bounding box of m's vertices. ok is
// false for an empty mesh.
func Bounds(m kernel.Mesh) (min, max kernel.Vec3, ok bool) {
	if len(m.Vertices) == 0 {
		return kernel.Vec3{}, kernel.Vec3{}, false
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, p := range m.Vertices[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.Z < min.Z {
			min.Z = p.Z
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
		if p.Z > max.Z {
			max.Z = p.Z
		}
	}
	return min, max, true
}

func boundsDiagonal(m kernel.Mesh) float64 {
	mn, mx, ok := Bounds(m)
	if !ok {
		return 1e-6
	}
	return math.Max(length(mx.Sub(mn)), 1e-6)
}

func edgeKey(a, b uint32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

func triNormal(m kernel.Mesh, tri [3]uint32) kernel.Vec3 {
	p0, p1, p2 := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
	return normalize(p1.Sub(p0).Cross(p2.Sub(p0)))
}

func triCenter(m kernel.Mesh, tri [3]uint32) kernel.Vec3 {
	p0, p1, p2 := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
	return p0.Add(p1).Add(p2).Scale(1.0 / 3.0)
}
