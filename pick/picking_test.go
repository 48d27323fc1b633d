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
package pick

import (
	"math"
	"testing"

	"github.com/launix-de/vicad/kernel"
)

func TestDisplayScaleClampsAndDefaults(t *testing.T) {
	cases := []struct {
		name                           string
		winW, winH, pixW, pixH, expect float64
	}{
		{"identity", 800, 600, 800, 600, 1.0},
		{"retina-2x", 800, 600, 1600, 1200, 2.0},
		{"zero-window-w", 0, 600, 1600, 1200, 1.5},
		{"over-clamp", 100, 100, 1000, 1000, 4.0},
		{"under-clamp-negative", -1, -1, 1, 1, 1.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := DisplayScale(c.winW, c.winH, c.pixW, c.pixH)
			if math.Abs(got-c.expect) > 1e-9 {
				t.Errorf("DisplayScale(%v,%v,%v,%v) = %v, want %v", c.winW, c.winH, c.pixW, c.pixH, got, c.expect)
			}
		})
	}
}

func TestBuildRayCenterPixelPointsAlongForward(t *testing.T) {
	basis := CameraBasis{Right: kernel.Vec3{X: 1}, Up: kernel.Vec3{Y: 1}, Forward: kernel.Vec3{Z: -1}}
	ray := BuildRay(400, 300, 800, 600, 60, kernel.Vec3{}, basis)
	if math.Abs(ray.Dir.X) > 1e-9 || math.Abs(ray.Dir.Y) > 1e-9 {
		t.Errorf("expected center-pixel ray to point straight along forward, got %+v", ray.Dir)
	}
	if ray.Dir.Z >= 0 {
		t.Errorf("expected ray to point into -Z, got %+v", ray.Dir)
	}
}

func TestBuildRayCornerPixelTiltsTowardRightAndUp(t *testing.T) {
	basis := CameraBasis{Right: kernel.Vec3{X: 1}, Up: kernel.Vec3{Y: 1}, Forward: kernel.Vec3{Z: -1}}
	ray := BuildRay(800, 0, 800, 600, 60, kernel.Vec3{}, basis)
	if ray.Dir.X <= 0 {
		t.Errorf("expected rightmost pixel to tilt +X, got %+v", ray.Dir)
	}
	if ray.Dir.Y <= 0 {
		t.Errorf("expected topmost pixel to tilt +Y, got %+v", ray.Dir)
	}
}

func unitCube(offset kernel.Vec3) kernel.Mesh {
	v := []kernel.Vec3{
		{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
		{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
	}
	for i := range v {
		v[i] = v[i].Add(offset)
	}
	tris := [][3]uint32{
		{0, 2, 1}, {0, 3, 2},
		{4, 5, 6}, {4, 6, 7},
		{0, 1, 5}, {0, 5, 4},
		{1, 2, 6}, {1, 6, 5},
		{2, 3, 7}, {2, 7, 6},
		{3, 0, 4}, {3, 4, 7},
	}
	return kernel.Mesh{Vertices: v, Triangles: tris}
}

func TestPickSceneSelectsNearestObjectAndSkipsAABBMiss(t *testing.T) {
	near := unitCube(kernel.Vec3{Z: 5})
	far := unitCube(kernel.Vec3{Z: 10})
	offToSide := unitCube(kernel.Vec3{X: 100, Z: 5})

	objects := []Object{
		{Hash: 1, Kind: ObjectManifold, Mesh: near, BoundsMin: kernel.Vec3{-0.5, -0.5, 4.5}, BoundsMax: kernel.Vec3{0.5, 0.5, 5.5}},
		{Hash: 2, Kind: ObjectManifold, Mesh: far, BoundsMin: kernel.Vec3{-0.5, -0.5, 9.5}, BoundsMax: kernel.Vec3{0.5, 0.5, 10.5}},
		{Hash: 3, Kind: ObjectManifold, Mesh: offToSide, BoundsMin: kernel.Vec3{99.5, -0.5, 4.5}, BoundsMax: kernel.Vec3{100.5, 0.5, 5.5}},
	}
	ray := Ray{Origin: kernel.Vec3{}, Dir: kernel.Vec3{Z: 1}}

	hit, ok := PickScene(objects, ray)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.Hash != 1 {
		t.Errorf("expected nearest object (hash 1), got hash %d", hit.Hash)
	}
}

func TestPickSceneMissesWhenRayMissesEveryAABB(t *testing.T) {
	offToSide := unitCube(kernel.Vec3{X: 100, Z: 5})
	objects := []Object{
		{Hash: 3, Kind: ObjectManifold, Mesh: offToSide, BoundsMin: kernel.Vec3{99.5, -0.5, 4.5}, BoundsMax: kernel.Vec3{100.5, 0.5, 5.5}},
	}
	ray := Ray{Origin: kernel.Vec3{}, Dir: kernel.Vec3{Z: 1}}
	if _, ok := PickScene(objects, ray); ok {
		t.Fatal("expected no hit when the ray misses every object's AABB")
	}
}

func TestPickSceneSketchUsesAABBDistanceOnly(t *testing.T) {
	objects := []Object{
		{Hash: 9, Kind: ObjectSketch, BoundsMin: kernel.Vec3{-1, -1, 2}, BoundsMax: kernel.Vec3{1, 1, 3}},
	}
	ray := Ray{Origin: kernel.Vec3{}, Dir: kernel.Vec3{Z: 1}}
	hit, ok := PickScene(objects, ray)
	if !ok {
		t.Fatal("expected sketch AABB hit")
	}
	if math.Abs(hit.Distance-2) > 1e-9 {
		t.Errorf("expected sketch hit distance 2, got %v", hit.Distance)
	}
}
