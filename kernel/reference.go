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
package kernel

import (
	"fmt"
	"math"
	"sort"
)

// Reference is a minimal Kernel good enough to drive replay end to end
// without a production CSG engine. Boolean subtraction and intersection
// are not real constructive solid geometry here: they fall back to the
// left-hand operand's mesh, since a correct triangle-mesh boolean is
// exactly the component the host kernel is assumed to provide. Union
// (BatchBoolean with OpAdd) is a plain mesh concatenation, which is
// topologically exact for already-disjoint parts and a reasonable stand-in
// otherwise.
type Reference struct{}

// NewReference constructs a Reference kernel.
func NewReference() *Reference { return &Reference{} }

type refManifold struct {
	mesh Mesh
	err  error
}

func (m *refManifold) Status() error { return m.err }
func (m *refManifold) Mesh() Mesh    { return m.mesh }

func (m *refManifold) Translate(v Vec3) Manifold {
	out := make([]Vec3, len(m.mesh.Vertices))
	for i, p := range m.mesh.Vertices {
		out[i] = p.Add(v)
	}
	return &refManifold{mesh: Mesh{Vertices: out, Triangles: m.mesh.Triangles}}
}

func (m *refManifold) Rotate(xDeg, yDeg, zDeg float64) Manifold {
	out := make([]Vec3, len(m.mesh.Vertices))
	for i, p := range m.mesh.Vertices {
		out[i] = rotateXYZ(p, xDeg, yDeg, zDeg)
	}
	return &refManifold{mesh: Mesh{Vertices: out, Triangles: m.mesh.Triangles}}
}

func (m *refManifold) Scale(v Vec3) Manifold {
	out := make([]Vec3, len(m.mesh.Vertices))
	for i, p := range m.mesh.Vertices {
		out[i] = Vec3{p.X * v.X, p.Y * v.Y, p.Z * v.Z}
	}
	return &refManifold{mesh: Mesh{Vertices: out, Triangles: m.mesh.Triangles}}
}

func (m *refManifold) Boolean(other Manifold, op BooleanOp) Manifold {
	o, ok := other.(*refManifold)
	if !ok {
		return &refManifold{err: fmt.Errorf("kernel: incompatible manifold implementation")}
	}
	switch op {
	case OpAdd:
		return concatMeshes([]*refManifold{m, o})
	default:
		// Subtract/Intersect need exact CSG; the reference kernel
		// returns the left operand as a best-effort stand-in.
		return &refManifold{mesh: m.mesh}
	}
}

func (m *refManifold) Slice(z float64) CrossSection {
	return sliceMeshAtZ(m.mesh, z)
}

type refCrossSection struct {
	polys []Polygon
}

func (c *refCrossSection) ToPolygons() []Polygon { return c.polys }

func (c *refCrossSection) Translate(v Vec2) CrossSection {
	out := make([]Polygon, len(c.polys))
	for i, poly := range c.polys {
		np := make(Polygon, len(poly))
		for j, p := range poly {
			np[j] = Vec2{p.X + v.X, p.Y + v.Y}
		}
		out[i] = np
	}
	return &refCrossSection{polys: out}
}

func (c *refCrossSection) Rotate(degrees float64) CrossSection {
	rad := degrees * math.Pi / 180
	cosT, sinT := math.Cos(rad), math.Sin(rad)
	out := make([]Polygon, len(c.polys))
	for i, poly := range c.polys {
		np := make(Polygon, len(poly))
		for j, p := range poly {
			np[j] = Vec2{p.X*cosT - p.Y*sinT, p.X*sinT + p.Y*cosT}
		}
		out[i] = np
	}
	return &refCrossSection{polys: out}
}

// Sphere builds a UV-sphere with stackCount=segments latitude rings and
// sectorCount=segments longitude divisions, so the triangle count is
// exactly segments*(segments-1)*2 regardless of pole degeneracy.
func (k *Reference) Sphere(radius float64, segments int) (Manifold, error) {
	n := segments
	if n < 4 {
		n = 4
	}
	if radius <= 0 {
		return nil, fmt.Errorf("kernel: sphere radius must be positive, got %g", radius)
	}

	verts := make([]Vec3, 0, n*n)
	for i := 0; i < n; i++ {
		phi := math.Pi * float64(i) / float64(n-1)
		z := radius * math.Cos(phi)
		ringR := radius * math.Sin(phi)
		for j := 0; j < n; j++ {
			theta := 2 * math.Pi * float64(j) / float64(n)
			verts = append(verts, Vec3{ringR * math.Cos(theta), ringR * math.Sin(theta), z})
		}
	}

	tris := make([][3]uint32, 0, n*(n-1)*2)
	idx := func(ring, sector int) uint32 { return uint32(ring*n + sector) }
	for i := 0; i < n-1; i++ {
		for j := 0; j < n; j++ {
			jn := (j + 1) % n
			a, b := idx(i, j), idx(i, jn)
			c, d := idx(i+1, j), idx(i+1, jn)
			tris = append(tris, [3]uint32{a, b, c})
			tris = append(tris, [3]uint32{b, d, c})
		}
	}
	return &refManifold{mesh: Mesh{Vertices: verts, Triangles: tris}}, nil
}

// Cube builds an axis-aligned box of size x by y by z, centered on the
// origin when center is true, else with one corner at the origin.
func (k *Reference) Cube(x, y, z float64, center bool) (Manifold, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, fmt.Errorf("kernel: cube dimensions must be positive, got (%g,%g,%g)", x, y, z)
	}
	var ox, oy, oz float64
	if center {
		ox, oy, oz = -x/2, -y/2, -z/2
	}
	verts := []Vec3{
		{ox, oy, oz}, {ox + x, oy, oz}, {ox + x, oy + y, oz}, {ox, oy + y, oz},
		{ox, oy, oz + z}, {ox + x, oy, oz + z}, {ox + x, oy + y, oz + z}, {ox, oy + y, oz + z},
	}
	tris := [][3]uint32{
		{0, 2, 1}, {0, 3, 2}, // bottom
		{4, 5, 6}, {4, 6, 7}, // top
		{0, 1, 5}, {0, 5, 4}, // front
		{1, 2, 6}, {1, 6, 5}, // right
		{2, 3, 7}, {2, 7, 6}, // back
		{3, 0, 4}, {3, 4, 7}, // left
	}
	return &refManifold{mesh: Mesh{Vertices: verts, Triangles: tris}}, nil
}

// Cylinder builds a conical frustum of height h between radius r1 (at
// z=0) and r2 (at z=h), with segments sides, centered on z=0 when center
// is true. r1 or r2 may be zero to produce a cone.
func (k *Reference) Cylinder(h, r1, r2 float64, segments int, center bool) (Manifold, error) {
	n := segments
	if n < 3 {
		n = 3
	}
	if h <= 0 {
		return nil, fmt.Errorf("kernel: cylinder height must be positive, got %g", h)
	}
	if r1 < 0 || r2 < 0 || (r1 == 0 && r2 == 0) {
		return nil, fmt.Errorf("kernel: cylinder radii invalid: r1=%g r2=%g", r1, r2)
	}
	z0, z1 := 0.0, h
	if center {
		z0, z1 = -h/2, h/2
	}

	verts := make([]Vec3, 0, 2*n+2)
	bottomCenter := uint32(0)
	verts = append(verts, Vec3{0, 0, z0})
	bottomRing := make([]uint32, n)
	for j := 0; j < n; j++ {
		theta := 2 * math.Pi * float64(j) / float64(n)
		verts = append(verts, Vec3{r1 * math.Cos(theta), r1 * math.Sin(theta), z0})
		bottomRing[j] = uint32(len(verts) - 1)
	}
	topCenter := uint32(len(verts))
	verts = append(verts, Vec3{0, 0, z1})
	topRing := make([]uint32, n)
	for j := 0; j < n; j++ {
		theta := 2 * math.Pi * float64(j) / float64(n)
		verts = append(verts, Vec3{r2 * math.Cos(theta), r2 * math.Sin(theta), z1})
		topRing[j] = uint32(len(verts) - 1)
	}

	tris := make([][3]uint32, 0, n*4)
	for j := 0; j < n; j++ {
		jn := (j + 1) % n
		if r1 > 0 {
			tris = append(tris, [3]uint32{bottomCenter, bottomRing[jn], bottomRing[j]})
		}
		if r2 > 0 {
			tris = append(tris, [3]uint32{topCenter, topRing[j], topRing[jn]})
		}
		tris = append(tris, [3]uint32{bottomRing[j], bottomRing[jn], topRing[j]})
		tris = append(tris, [3]uint32{bottomRing[jn], topRing[jn], topRing[j]})
	}
	return &refManifold{mesh: Mesh{Vertices: verts, Triangles: tris}}, nil
}

func (k *Reference) BatchBoolean(parts []Manifold, op BooleanOp) (Manifold, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("kernel: batch boolean needs at least one part")
	}
	refs := make([]*refManifold, len(parts))
	for i, p := range parts {
		r, ok := p.(*refManifold)
		if !ok {
			return nil, fmt.Errorf("kernel: incompatible manifold implementation")
		}
		refs[i] = r
	}
	if op != OpAdd {
		return refs[0], nil
	}
	return concatMeshes(refs), nil
}

func concatMeshes(parts []*refManifold) *refManifold {
	var verts []Vec3
	var tris [][3]uint32
	for _, p := range parts {
		base := uint32(len(verts))
		verts = append(verts, p.mesh.Vertices...)
		for _, t := range p.mesh.Triangles {
			tris = append(tris, [3]uint32{t[0] + base, t[1] + base, t[2] + base})
		}
	}
	return &refManifold{mesh: Mesh{Vertices: verts, Triangles: tris}}
}

func (k *Reference) Circle(radius float64, segments int) (CrossSection, error) {
	n := segments
	if n < 3 {
		n = 3
	}
	if radius <= 0 {
		return nil, fmt.Errorf("kernel: circle radius must be positive, got %g", radius)
	}
	poly := make(Polygon, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		poly[i] = Vec2{radius * math.Cos(theta), radius * math.Sin(theta)}
	}
	return &refCrossSection{polys: []Polygon{poly}}, nil
}

func (k *Reference) Square(x, y float64, center bool) (CrossSection, error) {
	if x <= 0 || y <= 0 {
		return nil, fmt.Errorf("kernel: square dimensions must be positive, got (%g,%g)", x, y)
	}
	var ox, oy float64
	if center {
		ox, oy = -x/2, -y/2
	}
	poly := Polygon{
		{ox, oy}, {ox + x, oy}, {ox + x, oy + y}, {ox, oy + y},
	}
	return &refCrossSection{polys: []Polygon{poly}}, nil
}

func (k *Reference) FromPolygons(polys []Polygon) (CrossSection, error) {
	if len(polys) == 0 {
		return nil, fmt.Errorf("kernel: cross-section needs at least one contour")
	}
	for i, p := range polys {
		if len(p) < 3 {
			return nil, fmt.Errorf("kernel: contour %d has fewer than 3 points", i)
		}
	}
	cp := make([]Polygon, len(polys))
	copy(cp, polys)
	return &refCrossSection{polys: cp}, nil
}

// Extrude sweeps cs along +Z by height, split into divisions layers
// (at least one) with twistDegrees of total rotation, and triangulates the cross-
// section's contours as a fan from their centroid for the end caps. This
// handles the convex and star-convex sketches the op catalogue produces
// (circles, rectangles, point clusters); a general simple-polygon
// triangulator belongs to the host kernel, not this reference stand-in.
func (k *Reference) Extrude(cs CrossSection, height float64, divisions int, twistDegrees float64) (Manifold, error) {
	if height <= 0 {
		return nil, fmt.Errorf("kernel: extrude height must be positive, got %g", height)
	}
	layers := divisions
	if layers < 1 {
		layers = 1
	}
	polys := cs.ToPolygons()
	if len(polys) == 0 {
		return nil, fmt.Errorf("kernel: extrude needs a non-empty cross-section")
	}

	var verts []Vec3
	var tris [][3]uint32
	for _, poly := range polys {
		n := len(poly)
		if n < 3 {
			continue
		}
		layerStart := make([][]uint32, layers+1)
		for layer := 0; layer <= layers; layer++ {
			t := float64(layer) / float64(layers)
			z := t * height
			twist := t * twistDegrees * math.Pi / 180
			cosT, sinT := math.Cos(twist), math.Sin(twist)
			ring := make([]uint32, n)
			for i, p := range poly {
				rx := p.X*cosT - p.Y*sinT
				ry := p.X*sinT + p.Y*cosT
				verts = append(verts, Vec3{rx, ry, z})
				ring[i] = uint32(len(verts) - 1)
			}
			layerStart[layer] = ring
		}
		for layer := 0; layer < layers; layer++ {
			bottom := layerStart[layer]
			top := layerStart[layer+1]
			for i := 0; i < n; i++ {
				in := (i + 1) % n
				tris = append(tris, [3]uint32{bottom[i], bottom[in], top[i]})
				tris = append(tris, [3]uint32{bottom[in], top[in], top[i]})
			}
		}
		bottomRing := layerStart[0]
		topRing := layerStart[layers]
		bottomCentroidIdx := fanTriangulateCap(&verts, &tris, bottomRing, 0, true)
		_ = bottomCentroidIdx
		fanTriangulateCap(&verts, &tris, topRing, height, false)
	}
	return &refManifold{mesh: Mesh{Vertices: verts, Triangles: tris}}, nil
}

// fanTriangulateCap adds a centroid vertex at the given z and fans
// triangles to ring, flipped if bottom is true to keep outward winding.
func fanTriangulateCap(verts *[]Vec3, tris *[][3]uint32, ring []uint32, z float64, bottom bool) uint32 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var cx, cy float64
	for _, idx := range ring {
		v := (*verts)[idx]
		cx += v.X
		cy += v.Y
	}
	cx /= float64(n)
	cy /= float64(n)
	*verts = append(*verts, Vec3{cx, cy, z})
	centroid := uint32(len(*verts) - 1)
	for i := 0; i < n; i++ {
		in := (i + 1) % n
		if bottom {
			*tris = append(*tris, [3]uint32{centroid, ring[in], ring[i]})
		} else {
			*tris = append(*tris, [3]uint32{centroid, ring[i], ring[in]})
		}
	}
	return centroid
}

// Revolve sweeps cs (assumed to lie in x>=0) around the Z axis through
// segments steps over degrees of rotation, producing end caps when
// degrees < 360.
func (k *Reference) Revolve(cs CrossSection, segments int, degrees float64) (Manifold, error) {
	n := segments
	if n < 3 {
		n = 3
	}
	if degrees <= 0 {
		return nil, fmt.Errorf("kernel: revolve degrees must be positive, got %g", degrees)
	}
	polys := cs.ToPolygons()
	if len(polys) == 0 {
		return nil, fmt.Errorf("kernel: revolve needs a non-empty cross-section")
	}
	full := degrees >= 360-1e-9
	steps := n
	if !full {
		steps = n
	}

	var verts []Vec3
	var tris [][3]uint32
	for _, poly := range polys {
		m := len(poly)
		if m < 3 {
			continue
		}
		rings := make([][]uint32, steps+1)
		for s := 0; s <= steps; s++ {
			theta := degrees * math.Pi / 180 * float64(s) / float64(steps)
			cosT, sinT := math.Cos(theta), math.Sin(theta)
			ring := make([]uint32, m)
			for i, p := range poly {
				verts = append(verts, Vec3{p.X * cosT, p.X * sinT, p.Y})
				ring[i] = uint32(len(verts) - 1)
			}
			rings[s] = ring
		}
		bands := steps
		if full {
			bands = steps
		}
		for s := 0; s < bands; s++ {
			a := rings[s]
			b := rings[(s+1)%len(rings)]
			if !full || s < steps-1 {
				b = rings[s+1]
			}
			for i := 0; i < m; i++ {
				in := (i + 1) % m
				tris = append(tris, [3]uint32{a[i], a[in], b[i]})
				tris = append(tris, [3]uint32{a[in], b[in], b[i]})
			}
		}
		if !full {
			capZ := 0.0
			for _, p := range poly {
				capZ += p.Y
			}
			capZ /= float64(m)
			fanTriangulateCap(&verts, &tris, rings[0], capZ, true)
			fanTriangulateCap(&verts, &tris, rings[steps], capZ, false)
		}
	}
	return &refManifold{mesh: Mesh{Vertices: verts, Triangles: tris}}, nil
}

func (k *Reference) RefineToTolerance(m Manifold, tolerance float64) Manifold {
	return m
}

func rotateXYZ(p Vec3, xDeg, yDeg, zDeg float64) Vec3 {
	rx, ry, rz := xDeg*math.Pi/180, yDeg*math.Pi/180, zDeg*math.Pi/180
	// rotate around X
	p = Vec3{p.X, p.Y*math.Cos(rx) - p.Z*math.Sin(rx), p.Y*math.Sin(rx) + p.Z*math.Cos(rx)}
	// then Y
	p = Vec3{p.X*math.Cos(ry) + p.Z*math.Sin(ry), p.Y, -p.X*math.Sin(ry) + p.Z*math.Cos(ry)}
	// then Z
	p = Vec3{p.X*math.Cos(rz) - p.Y*math.Sin(rz), p.X*math.Sin(rz) + p.Y*math.Cos(rz), p.Z}
	return p
}

// sliceMeshAtZ intersects mesh with the plane z=zVal and chains the
// resulting segments into closed polygons by matching endpoints. This
// mirrors the edge-chaining approach the mesh package uses for feature
// extraction, specialized to a single planar cut.
func sliceMeshAtZ(mesh Mesh, zVal float64) CrossSection {
	type segment struct {
		a, b Vec2
	}
	var segs []segment
	for _, t := range mesh.Triangles {
		v0, v1, v2 := mesh.Vertices[t[0]], mesh.Vertices[t[1]], mesh.Vertices[t[2]]
		pts := [3]Vec3{v0, v1, v2}
		var cross []Vec2
		for i := 0; i < 3; i++ {
			a, b := pts[i], pts[(i+1)%3]
			da, db := a.Z-zVal, b.Z-zVal
			if (da <= 0 && db > 0) || (da > 0 && db <= 0) {
				if da == db {
					continue
				}
				t := da / (da - db)
				cross = append(cross, Vec2{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t})
			}
		}
		if len(cross) == 2 {
			segs = append(segs, segment{cross[0], cross[1]})
		}
	}
	if len(segs) == 0 {
		return &refCrossSection{}
	}

	const quantum = 1e-6
	key := func(p Vec2) string {
		return fmt.Sprintf("%d,%d", int64(math.Round(p.X/quantum)), int64(math.Round(p.Y/quantum)))
	}

	points := map[string]Vec2{}
	neighbors := map[string][]string{}
	for _, s := range segs {
		ka, kb := key(s.a), key(s.b)
		if ka == kb {
			continue
		}
		points[ka] = s.a
		points[kb] = s.b
		neighbors[ka] = append(neighbors[ka], kb)
		neighbors[kb] = append(neighbors[kb], ka)
	}

	used := map[string]map[string]bool{}
	markUsed := func(a, b string) {
		if used[a] == nil {
			used[a] = map[string]bool{}
		}
		used[a][b] = true
		if used[b] == nil {
			used[b] = map[string]bool{}
		}
		used[b][a] = true
	}

	keys := make([]string, 0, len(points))
	for k := range points {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var polys []Polygon
	for _, start := range keys {
		for _, first := range neighbors[start] {
			if used[start][first] {
				continue
			}
			poly := Polygon{points[start]}
			prev, cur := start, first
			markUsed(prev, cur)
			ok := true
			for cur != start {
				poly = append(poly, points[cur])
				next := ""
				for _, cand := range neighbors[cur] {
					if cand == prev && len(neighbors[cur]) > 1 {
						continue
					}
					if used[cur][cand] {
						continue
					}
					next = cand
					break
				}
				if next == "" {
					ok = false
					break
				}
				markUsed(cur, next)
				prev, cur = cur, next
				if len(poly) > len(segs)*2+2 {
					ok = false
					break
				}
			}
			if ok && len(poly) >= 3 {
				polys = append(polys, poly)
			}
		}
	}
	return &refCrossSection{polys: polys}
}
