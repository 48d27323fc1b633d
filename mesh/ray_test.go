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
	"testing"

	"github.com/launix-de/vicad/kernel"
)

func TestRayIntersectTriangleHitsCenter(t *testing.T) {
	v0 := kernel.Vec3{X: -1, Y: -1}
	v1 := kernel.Vec3{X: 1, Y: -1}
	v2 := kernel.Vec3{Y: 1}
	orig := kernel.Vec3{Z: -5}
	dir := kernel.Vec3{Z: 1}

	tHit, ok := RayIntersectTriangle(orig, dir, v0, v1, v2)
	if !ok {
		t.Fatal("expected the ray to hit the triangle")
	}
	if math.Abs(tHit-5) > 1e-9 {
		t.Errorf("expected t=5, got %v", tHit)
	}
}

func TestRayIntersectTriangleMissesOutsideTriangle(t *testing.T) {
	v0 := kernel.Vec3{X: -1, Y: -1}
	v1 := kernel.Vec3{X: 1, Y: -1}
	v2 := kernel.Vec3{Y: 1}
	orig := kernel.Vec3{X: 10, Z: -5}
	dir := kernel.Vec3{Z: 1}

	if _, ok := RayIntersectTriangle(orig, dir, v0, v1, v2); ok {
		t.Fatal("expected a ray far outside the triangle's footprint to miss")
	}
}

func TestRayIntersectMeshFindsNearestTriangle(t *testing.T) {
	m := unitCube(kernel.Vec3{})
	triIdx, tHit, ok := RayIntersectMesh(m, kernel.Vec3{Z: -5}, kernel.Vec3{Z: 1})
	if !ok {
		t.Fatal("expected the ray through the cube center to hit a triangle")
	}
	if triIdx < 0 || triIdx >= len(m.Triangles) {
		t.Fatalf("triangle index %d out of range", triIdx)
	}
	if math.Abs(tHit-4.5) > 1e-9 {
		t.Errorf("expected to hit the near face at t=4.5, got %v", tHit)
	}
}

func TestRayIntersectMeshMissesWhenRayIsOffToTheSide(t *testing.T) {
	m := unitCube(kernel.Vec3{})
	if _, _, ok := RayIntersectMesh(m, kernel.Vec3{X: 100, Z: -5}, kernel.Vec3{Z: 1}); ok {
		t.Fatal("expected a ray far to the side of the cube to miss")
	}
}

func TestRayIntersectAABBHitsAndReturnsNearEntry(t *testing.T) {
	min, max := kernel.Vec3{X: -1, Y: -1, Z: -1}, kernel.Vec3{X: 1, Y: 1, Z: 1}
	tEnter, ok := RayIntersectAABB(min, max, kernel.Vec3{Z: -5}, kernel.Vec3{Z: 1})
	if !ok {
		t.Fatal("expected the ray to enter the box")
	}
	if math.Abs(tEnter-4) > 1e-9 {
		t.Errorf("expected tEnter=4, got %v", tEnter)
	}
}

func TestRayIntersectAABBOriginInsideClampsToZero(t *testing.T) {
	min, max := kernel.Vec3{X: -1, Y: -1, Z: -1}, kernel.Vec3{X: 1, Y: 1, Z: 1}
	tEnter, ok := RayIntersectAABB(min, max, kernel.Vec3{}, kernel.Vec3{Z: 1})
	if !ok {
		t.Fatal("expected a ray from inside the box to count as a hit")
	}
	if tEnter != 0 {
		t.Errorf("expected tEnter=0 for an origin already inside the box, got %v", tEnter)
	}
}

func TestRayIntersectAABBMissesDisjointBox(t *testing.T) {
	min, max := kernel.Vec3{X: 10, Y: 10, Z: 10}, kernel.Vec3{X: 11, Y: 11, Z: 11}
	if _, ok := RayIntersectAABB(min, max, kernel.Vec3{}, kernel.Vec3{Z: 1}); ok {
		t.Fatal("expected a ray that never approaches the box to miss")
	}
}

func TestRayIntersectAABBMissesWhenBoxIsBehindRay(t *testing.T) {
	min, max := kernel.Vec3{X: -1, Y: -1, Z: -10}, kernel.Vec3{X: 1, Y: 1, Z: -5}
	if _, ok := RayIntersectAABB(min, max, kernel.Vec3{Z: 0}, kernel.Vec3{Z: 1}); ok {
		t.Fatal("expected a box entirely behind the ray origin to miss")
	}
}
