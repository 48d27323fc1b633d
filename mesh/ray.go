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
package mesh

import (
	"math"

	"github.com/launix-de/vicad/kernel"
)

// RayIntersectTriangle is the Möller-Trumbore ray/triangle test with the
// spec's eps=1e-9 floor on t, exported so the pick package can test
// individual triangles without duplicating the algorithm.
func RayIntersectTriangle(orig, dir, v0, v1, v2 kernel.Vec3) (t float64, ok bool) {
	return rayIntersectTriangle(orig, dir, v0, v1, v2)
}

// RayIntersectMesh finds the nearest triangle of m hit by the ray,
// returning its index and t. ok is false if no triangle is hit.
func RayIntersectMesh(m kernel.Mesh, orig, dir kernel.Vec3) (triIndex int, t float64, ok bool) {
	dir = normalize(dir)
	bestT, bestTri := math.Inf(1), -1
	for i, tri := range m.Triangles {
		p0, p1, p2 := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
		hitT, hit := rayIntersectTriangle(orig, dir, p0, p1, p2)
		if !hit || hitT >= bestT {
			continue
		}
		bestT, bestTri = hitT, i
	}
	if bestTri < 0 {
		return -1, 0, false
	}
	return bestTri, bestT, true
}

// RayIntersectAABB is the slab test against an axis-aligned box given by
// min/max corners; tEnter is the ray parameter at the near face (clamped
// to 0 when the origin is already inside the box).
func RayIntersectAABB(min, max, orig, dir kernel.Vec3) (tEnter float64, ok bool) {
	dir = normalize(dir)
	tMin, tMax := math.Inf(-1), math.Inf(1)

	axis := func(o, d, lo, hi float64) bool {
		if math.Abs(d) < 1e-15 {
			return o >= lo && o <= hi
		}
		invD := 1 / d
		t0, t1 := (lo-o)*invD, (hi-o)*invD
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		return tMin <= tMax
	}

	if !axis(orig.X, dir.X, min.X, max.X) {
		return 0, false
	}
	if !axis(orig.Y, dir.Y, min.Y, max.Y) {
		return 0, false
	}
	if !axis(orig.Z, dir.Z, min.Z, max.Z) {
		return 0, false
	}
	if tMax < 0 {
		return 0, false
	}
	if tMin < 0 {
		tMin = 0
	}
	return tMin, true
}
