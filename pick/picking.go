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

// Package pick resolves a mouse ray to a scene object, a feature/
// silhouette edge, or a face region: ray construction from pixel
// coordinates and a camera basis, AABB pruning, Möller-Trumbore
// triangle tests and ray/edge-point distance tests (spec §4.9).
package pick

import (
	"math"

	"github.com/launix-de/vicad/kernel"
	"github.com/launix-de/vicad/mesh"
)

// DisplayScale converts a logical (window) size to a physical (pixel)
// size factor, clamped to [1, 4]. Zero or negative inputs on either
// axis substitute 1.0 for that axis, matching the spec §6 helper used
// to map window mouse coordinates into pixel coordinates before a ray
// is built.
func DisplayScale(windowW, windowH, pixelW, pixelH float64) float64 {
	xScale := 1.0
	if windowW > 0 && pixelW > 0 {
		xScale = pixelW / windowW
	}
	yScale := 1.0
	if windowH > 0 && pixelH > 0 {
		yScale = pixelH / windowH
	}
	scale := (xScale + yScale) / 2
	if scale < 1.0 {
		return 1.0
	}
	if scale > 4.0 {
		return 4.0
	}
	return scale
}

// Ray is a picking ray in scene space.
type Ray struct {
	Origin kernel.Vec3
	Dir    kernel.Vec3
}

// CameraBasis is the orthonormal (right, up, forward) frame a ray is
// built against.
type CameraBasis struct {
	Right, Up, Forward kernel.Vec3
}

// BuildRay maps a pixel coordinate within a pixelW x pixelH viewport to
// a world-space ray from eye along basis.Forward, using fovYDegrees as
// the vertical field of view (spec §4.9): normalized device coordinates
// are weighted by right*nx*tan(fov/2)*aspect and up*ny*tan(fov/2), added
// to forward, then normalized.
func BuildRay(pixelX, pixelY, pixelW, pixelH, fovYDegrees float64, eye kernel.Vec3, basis CameraBasis) Ray {
	aspect := 1.0
	if pixelH > 0 {
		aspect = pixelW / pixelH
	}
	nx := (2*(pixelX/pixelW) - 1)
	ny := (1 - 2*(pixelY/pixelH))
	halfFov := fovYDegrees * math.Pi / 360
	tanHalf := math.Tan(halfFov)

	dir := basis.Forward.
		Add(basis.Right.Scale(nx * tanHalf * aspect)).
		Add(basis.Up.Scale(ny * tanHalf))
	return Ray{Origin: eye, Dir: normalize(dir)}
}

func normalize(v kernel.Vec3) kernel.Vec3 {
	l := math.Sqrt(v.Dot(v))
	if l <= 1e-20 {
		return kernel.Vec3{}
	}
	return v.Scale(1 / l)
}

// ObjectKind distinguishes the two pickable scene-object shapes.
type ObjectKind int

const (
	ObjectManifold ObjectKind = iota
	ObjectSketch
)

// Object is the minimal view of a scene object the picker needs: its
// kind, its mesh (for manifolds only), and its cached AABB.
type Object struct {
	Hash      uint64
	Kind      ObjectKind
	Mesh      kernel.Mesh
	BoundsMin kernel.Vec3
	BoundsMax kernel.Vec3
}

// SceneHit is PickScene's result: which object was hit, at what ray
// distance.
type SceneHit struct {
	Index    int
	Hash     uint64
	Distance float64
}

// PickScene tests ray against every object's AABB first (spec Testable
// Property 6: an object whose AABB the ray misses never contributes to
// the result). Manifold objects that pass the AABB test are further
// tested triangle-by-triangle; sketch objects are accepted on AABB hit
// distance alone. The nearest hit across all objects wins.
func PickScene(objects []Object, ray Ray) (SceneHit, bool) {
	bestT := math.Inf(1)
	best := SceneHit{Index: -1}

	for i, obj := range objects {
		tEnter, hit := mesh.RayIntersectAABB(obj.BoundsMin, obj.BoundsMax, ray.Origin, ray.Dir)
		if !hit {
			continue
		}

		switch obj.Kind {
		case ObjectManifold:
			_, t, ok := mesh.RayIntersectMesh(obj.Mesh, ray.Origin, ray.Dir)
			if !ok {
				continue
			}
			if t < bestT {
				bestT = t
				best = SceneHit{Index: i, Hash: obj.Hash, Distance: t}
			}
		case ObjectSketch:
			if tEnter < bestT {
				bestT = tEnter
				best = SceneHit{Index: i, Hash: obj.Hash, Distance: tEnter}
			}
		}
	}

	if best.Index < 0 {
		return SceneHit{}, false
	}
	return best, true
}

// PickEdge resolves the nearest feature or silhouette edge under
// pickRadius (spec §4.9: ties break by smallest t, then smallest miss
// distance, both handled inside mesh.PickEdgeByRay).
func PickEdge(m kernel.Mesh, topo mesh.EdgeTopology, silhouette []bool, ray Ray, pickRadius float64) (edgeIndex int, distance float64) {
	return mesh.PickEdgeByRay(m, topo, silhouette, ray.Origin, ray.Dir, pickRadius)
}

// PickFaceRegion resolves the nearest face region hit by ray.
func PickFaceRegion(m kernel.Mesh, faces mesh.FaceRegions, ray Ray) (region int, distance float64) {
	return mesh.PickFaceRegionByRay(m, faces, ray.Origin, ray.Dir)
}
