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

// Package kernel declares the geometry-kernel contract the replay
// interpreter builds op-graphs against. The real kernel (exact boolean
// operations, polygon offsetting, a production revolve/extrude engine)
// is assumed to be provided by the host; this package only fixes the
// interface and ships a reference implementation good enough to drive
// the replay, mesh-analysis and picking packages end to end.
package kernel

// Vec2 is a 2D point in sketch/cross-section space.
type Vec2 struct {
	X, Y float64
}

// Vec3 is a 3D point or vector in scene space.
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Polygon is an ordered, closed contour in 2D. Winding order follows the
// kernel implementation's own fill-rule convention.
type Polygon []Vec2

// BooleanOp selects the operation BatchBoolean/Boolean perform.
type BooleanOp int

const (
	OpAdd BooleanOp = iota
	OpSubtract
	OpIntersect
)

// Mesh is a triangulated surface: flat vertex triples and flat
// triangle-vertex-index triples, mirroring manifold.MeshGL's layout so
// the mesh package can operate on it without a conversion step.
type Mesh struct {
	Vertices  []Vec3
	Triangles [][3]uint32
}

// Manifold is an opaque solid handle. Every mutating method returns a
// fresh Manifold; the kernel owns its own internal representation.
type Manifold interface {
	Status() error
	Mesh() Mesh
	Translate(v Vec3) Manifold
	Rotate(xDeg, yDeg, zDeg float64) Manifold
	Scale(v Vec3) Manifold
	Boolean(other Manifold, op BooleanOp) Manifold
	Slice(z float64) CrossSection
}

// CrossSection is an opaque 2D shape handle, built from one or more
// polygons under a positive (nonzero) fill rule.
type CrossSection interface {
	ToPolygons() []Polygon
	Translate(v Vec2) CrossSection
	Rotate(degrees float64) CrossSection
}

// Kernel is the full contract the replay interpreter needs: geometry
// construction, booleans and cross-section-to-solid conversion, each
// taking finished inputs and returning a new value plus any kernel-side
// error (out-of-tolerance, degenerate, or otherwise invalid geometry).
type Kernel interface {
	Sphere(radius float64, segments int) (Manifold, error)
	Cube(x, y, z float64, center bool) (Manifold, error)
	Cylinder(height, r1, r2 float64, segments int, center bool) (Manifold, error)
	BatchBoolean(parts []Manifold, op BooleanOp) (Manifold, error)

	Circle(radius float64, segments int) (CrossSection, error)
	Square(x, y float64, center bool) (CrossSection, error)
	FromPolygons(polys []Polygon) (CrossSection, error)

	Extrude(cs CrossSection, height float64, divisions int, twistDegrees float64) (Manifold, error)
	Revolve(cs CrossSection, segments int, degrees float64) (Manifold, error)

	// RefineToTolerance re-tessellates m so no triangle edge deviates
	// from the original surface by more than tolerance. Used by the LOD
	// postprocess hook; implementations that don't support refinement
	// may return m unchanged.
	RefineToTolerance(m Manifold, tolerance float64) Manifold
}
