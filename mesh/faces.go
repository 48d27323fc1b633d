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
	"sort"

	"github.com/launix-de/vicad/kernel"
)

// FacePrimitiveType is the shape a detected face region's triangles
// best fit, within tolerance scaled to the mesh's own size.
type FacePrimitiveType int

const (
	FaceUnknown FacePrimitiveType = iota
	FacePlane
	FaceSphere
	FaceCylinder
)

func (t FacePrimitiveType) String() string {
	switch t {
	case FacePlane:
		return "Plane"
	case FaceSphere:
		return "Sphere"
	case FaceCylinder:
		return "Cylinder"
	default:
		return "Unknown"
	}
}

// FaceRegions is DetectFaces's result: every triangle's region id, each
// region's triangle list, and each region's fitted primitive type.
type FaceRegions struct {
	TriRegion  []int
	Regions    [][]uint32
	RegionType []FacePrimitiveType
}

type regionFit struct {
	kind FacePrimitiveType

	planeN   kernel.Vec3
	planeD   float64
	planeRms float64

	sphereC   kernel.Vec3
	sphereR   float64
	sphereRms float64

	cylinderAxis  kernel.Vec3
	cylinderPoint kernel.Vec3
	cylinderR     float64
	cylinderRms   float64
}

// solve4x4 solves a 4x4 linear system given as an augmented 4x5 matrix
// via Gaussian elimination with partial pivoting. Returns false if the
// system is singular to working precision.
func solve4x4(m [4][5]float64) ([4]float64, bool) {
	for col := 0; col < 4; col++ {
		pivot := col
		best := math.Abs(m[col][col])
		for row := col + 1; row < 4; row++ {
			if v := math.Abs(m[row][col]); v > best {
				best, pivot = v, row
			}
		}
		if best < 1e-14 {
			return [4]float64{}, false
		}
		m[pivot], m[col] = m[col], m[pivot]
		inv := 1 / m[col][col]
		for k := col; k < 5; k++ {
			m[col][k] *= inv
		}
		for row := 0; row < 4; row++ {
			if row == col {
				continue
			}
			f := m[row][col]
			if math.Abs(f) < 1e-16 {
				continue
			}
			for k := col; k < 5; k++ {
				m[row][k] -= f * m[col][k]
			}
		}
	}
	var out [4]float64
	for i := 0; i < 4; i++ {
		out[i] = m[i][4]
	}
	return out, true
}

func solve3x3(m [3][4]float64) ([3]float64, bool) {
	for col := 0; col < 3; col++ {
		pivot := col
		best := math.Abs(m[col][col])
		for row := col + 1; row < 3; row++ {
			if v := math.Abs(m[row][col]); v > best {
				best, pivot = v, row
			}
		}
		if best < 1e-14 {
			return [3]float64{}, false
		}
		m[pivot], m[col] = m[col], m[pivot]
		inv := 1 / m[col][col]
		for k := col; k < 4; k++ {
			m[col][k] *= inv
		}
		for row := 0; row < 3; row++ {
			if row == col {
				continue
			}
			f := m[row][col]
			if math.Abs(f) < 1e-16 {
				continue
			}
			for k := col; k < 4; k++ {
				m[row][k] -= f * m[col][k]
			}
		}
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = m[i][3]
	}
	return out, true
}

// classifyRegion fits a plane, a sphere (when the region has 6+
// triangles) and a cylinder (8+ triangles) to a region's face centers
// and normals via least squares, and picks whichever fit is within
// tolerance and has the lowest normalized residual.
func classifyRegion(tris []uint32, centers, normals []kernel.Vec3, planeTol, sphereTol, cylinderTol float64) regionFit {
	var fit regionFit
	if len(tris) == 0 {
		return fit
	}

	var centroid, nsum kernel.Vec3
	for _, t := range tris {
		centroid = centroid.Add(centers[t])
		nsum = nsum.Add(normals[t])
	}
	centroid = centroid.Scale(1 / float64(len(tris)))
	fit.planeN = normalize(nsum)
	fit.planeD = -fit.planeN.Dot(centroid)

	planeErr2 := 0.0
	for _, t := range tris {
		d := fit.planeN.Dot(centers[t]) + fit.planeD
		planeErr2 += d * d
	}
	fit.planeRms = math.Sqrt(planeErr2 / float64(len(tris)))
	fit.sphereRms = math.Inf(1)
	fit.cylinderRms = math.Inf(1)

	if len(tris) >= 6 {
		var ata [4][4]float64
		var atb [4]float64
		for _, t := range tris {
			p, n := centers[t], normals[t]
			rows := [3][5]float64{
				{1, 0, 0, n.X, p.X},
				{0, 1, 0, n.Y, p.Y},
				{0, 0, 1, n.Z, p.Z},
			}
			for r := 0; r < 3; r++ {
				for i := 0; i < 4; i++ {
					atb[i] += rows[r][i] * rows[r][4]
					for j := 0; j < 4; j++ {
						ata[i][j] += rows[r][i] * rows[r][j]
					}
				}
			}
		}
		var aug [4][5]float64
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				aug[i][j] = ata[i][j]
			}
			aug[i][4] = atb[i]
		}
		if x, ok := solve4x4(aug); ok && !math.IsNaN(x[3]) && x[3] > 1e-9 {
			fit.sphereC = kernel.Vec3{X: x[0], Y: x[1], Z: x[2]}
			fit.sphereR = x[3]
			sphereErr2 := 0.0
			for _, t := range tris {
				p, n := centers[t], normals[t]
				est := fit.sphereC.Add(n.Scale(fit.sphereR))
				d := est.Sub(p)
				sphereErr2 += d.Dot(d)
			}
			fit.sphereRms = math.Sqrt(sphereErr2 / float64(len(tris)))
		}
	}

	if len(tris) >= 8 {
		var axis kernel.Vec3
		for i := 1; i < len(tris); i++ {
			c := normals[tris[i-1]].Cross(normals[tris[i]])
			if length(c) < 1e-8 {
				continue
			}
			if axis.Dot(c) < 0 {
				c = c.Scale(-1)
			}
			axis = axis.Add(c)
		}
		axis = normalize(axis)
		if length(axis) > 1e-8 {
			helper := kernel.Vec3{X: 1}
			if math.Abs(axis.Z) < 0.9 {
				helper = kernel.Vec3{Z: 1}
			}
			u := normalize(axis.Cross(helper))
			v := axis.Cross(u)

			var ata [3][3]float64
			var atb [3]float64
			for _, t := range tris {
				p := centers[t]
				x, y := p.Dot(u), p.Dot(v)
				row := [3]float64{x, y, 1}
				rhs := -(x*x + y*y)
				for i := 0; i < 3; i++ {
					atb[i] += row[i] * rhs
					for j := 0; j < 3; j++ {
						ata[i][j] += row[i] * row[j]
					}
				}
			}
			var aug [3][4]float64
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					aug[i][j] = ata[i][j]
				}
				aug[i][3] = atb[i]
			}
			if x, ok := solve3x3(aug); ok {
				cx, cy := -0.5*x[0], -0.5*x[1]
				rr := cx*cx + cy*cy - x[2]
				if !math.IsNaN(rr) && rr > 1e-12 {
					r := math.Sqrt(rr)
					c3 := u.Scale(cx).Add(v.Scale(cy))

					radErr2, ndotErr2 := 0.0, 0.0
					for _, t := range tris {
						p := centers[t]
						d := p.Sub(c3)
						ax := d.Dot(axis)
						radial := d.Sub(axis.Scale(ax))
						rho := length(radial)
						re := rho - r
						radErr2 += re * re
						na := normals[t].Dot(axis)
						ndotErr2 += na * na
					}
					radialRms := math.Sqrt(radErr2 / float64(len(tris)))
					normalRms := math.Sqrt(ndotErr2 / float64(len(tris)))
					fit.cylinderAxis = axis
					fit.cylinderPoint = c3
					fit.cylinderR = r
					fit.cylinderRms = math.Sqrt(radialRms*radialRms + (normalRms*r)*(normalRms*r))
				}
			}
		}
	}

	planeOk := fit.planeRms <= planeTol
	sphereOk := fit.sphereRms <= sphereTol
	cylOk := fit.cylinderRms <= cylinderTol
	norm := func(rms, tol float64) float64 {
		if tol > 1e-12 {
			return rms / tol
		}
		return rms
	}
	pn, sn, cn := norm(fit.planeRms, planeTol), norm(fit.sphereRms, sphereTol), norm(fit.cylinderRms, cylinderTol)

	fit.kind = FaceUnknown
	if planeOk || sphereOk || cylOk {
		best := math.Inf(1)
		if planeOk && pn < best {
			best, fit.kind = pn, FacePlane
		}
		if sphereOk && sn < best {
			best, fit.kind = sn, FaceSphere
		}
		if cylOk && cn < best {
			fit.kind = FaceCylinder
		}
	}
	return fit
}

func compatibleForMerge(a, b regionFit, planeTol, sphereTol, cylinderTol float64) bool {
	planeDotTol := math.Cos(8 * math.Pi / 180)
	switch {
	case a.kind == FacePlane && b.kind == FacePlane:
		an, ad := a.planeN, a.planeD
		bn, bd := b.planeN, b.planeD
		if an.Dot(bn) < 0 {
			bn, bd = bn.Scale(-1), -bd
		}
		if an.Dot(bn) < planeDotTol {
			return false
		}
		return math.Abs(ad-bd) <= planeTol*1.5

	case a.kind == FaceSphere && b.kind == FaceSphere:
		cdist := length(a.sphereC.Sub(b.sphereC))
		rdiff := math.Abs(a.sphereR - b.sphereR)
		return cdist <= sphereTol*2 && rdiff <= sphereTol*2

	case a.kind == FaceCylinder && b.kind == FaceCylinder:
		aa, ba := a.cylinderAxis, b.cylinderAxis
		if aa.Dot(ba) < 0 {
			ba = ba.Scale(-1)
		}
		if aa.Dot(ba) < planeDotTol {
			return false
		}
		rdiff := math.Abs(a.cylinderR - b.cylinderR)
		if rdiff > cylinderTol*2 {
			return false
		}
		axisDist := length(b.cylinderPoint.Sub(a.cylinderPoint).Cross(aa))
		return axisDist <= cylinderTol*2.5

	default:
		return false
	}
}

// DetectFaces flood-fills the mesh into regions of near-coplanar
// triangles (dihedral angle under maxDihedralDegrees), fits a
// plane/sphere/cylinder to each region, then merges adjacent regions
// whose fits describe the same underlying surface.
func DetectFaces(m kernel.Mesh, maxDihedralDegrees float64) FaceRegions {
	var out FaceRegions
	triCount := len(m.Triangles)
	if triCount == 0 {
		return out
	}
	out.TriRegion = make([]int, triCount)
	for i := range out.TriRegion {
		out.TriRegion[i] = -1
	}

	normals := make([]kernel.Vec3, triCount)
	centers := make([]kernel.Vec3, triCount)
	for i, t := range m.Triangles {
		normals[i] = triNormal(m, t)
		centers[i] = triCenter(m, t)
	}
	bboxDiag := boundsDiagonal(m)
	planeTol := math.Max(1e-5, bboxDiag*0.003)
	sphereTol := math.Max(1e-5, bboxDiag*0.005)
	cylinderTol := math.Max(1e-5, bboxDiag*0.0055)

	neighbors := make([][]int, triCount)
	edgeToTris := make(map[uint64][]int)
	for tri, t := range m.Triangles {
		edgeToTris[edgeKey(t[0], t[1])] = append(edgeToTris[edgeKey(t[0], t[1])], tri)
		edgeToTris[edgeKey(t[1], t[2])] = append(edgeToTris[edgeKey(t[1], t[2])], tri)
		edgeToTris[edgeKey(t[2], t[0])] = append(edgeToTris[edgeKey(t[2], t[0])], tri)
	}
	for _, tris := range edgeToTris {
		for i := 0; i < len(tris); i++ {
			for j := i + 1; j < len(tris); j++ {
				neighbors[tris[i]] = append(neighbors[tris[i]], tris[j])
				neighbors[tris[j]] = append(neighbors[tris[j]], tris[i])
			}
		}
	}
	for i := range neighbors {
		sort.Ints(neighbors[i])
		neighbors[i] = dedupSortedInts(neighbors[i])
	}

	threshold := math.Cos(maxDihedralDegrees * math.Pi / 180)
	for seed := 0; seed < triCount; seed++ {
		if out.TriRegion[seed] != -1 {
			continue
		}
		regionID := len(out.Regions)
		out.Regions = append(out.Regions, nil)
		out.TriRegion[seed] = regionID
		queue := []int{seed}
		for len(queue) > 0 {
			tri := queue[0]
			queue = queue[1:]
			out.Regions[regionID] = append(out.Regions[regionID], uint32(tri))
			for _, nb := range neighbors[tri] {
				if out.TriRegion[nb] != -1 {
					continue
				}
				if normals[tri].Dot(normals[nb]) < threshold {
					continue
				}
				out.TriRegion[nb] = regionID
				queue = append(queue, nb)
			}
		}
	}

	type regionPair struct{ a, b int }
	adjSet := map[regionPair]bool{}
	for tri := 0; tri < triCount; tri++ {
		a := out.TriRegion[tri]
		for _, nb := range neighbors[tri] {
			b := out.TriRegion[nb]
			if a == b {
				continue
			}
			lo, hi := a, b
			if lo > hi {
				lo, hi = hi, lo
			}
			adjSet[regionPair{lo, hi}] = true
		}
	}

	fits := make([]regionFit, len(out.Regions))
	for i, region := range out.Regions {
		fits[i] = classifyRegion(region, centers, normals, planeTol, sphereTol, cylinderTol)
	}

	dsu := newDisjointSet(len(out.Regions))
	for pair := range adjSet {
		if compatibleForMerge(fits[pair.a], fits[pair.b], planeTol, sphereTol, cylinderTol) {
			dsu.unite(pair.a, pair.b)
		}
	}

	rootToNew := map[int]int{}
	var merged [][]uint32
	for tri := 0; tri < triCount; tri++ {
		root := dsu.find(out.TriRegion[tri])
		id, ok := rootToNew[root]
		if !ok {
			id = len(merged)
			rootToNew[root] = id
			merged = append(merged, nil)
		}
		out.TriRegion[tri] = id
		merged[id] = append(merged[id], uint32(tri))
	}
	out.Regions = merged

	out.RegionType = make([]FacePrimitiveType, len(out.Regions))
	for i, region := range out.Regions {
		out.RegionType[i] = classifyRegion(region, centers, normals, planeTol, sphereTol, cylinderTol).kind
	}

	return out
}

func dedupSortedInts(xs []int) []int {
	if len(xs) == 0 {
		return xs
	}
	out := xs[:1]
	for _, v := range xs[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func rayIntersectTriangle(orig, dir, v0, v1, v2 kernel.Vec3) (t float64, ok bool) {
	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < 1e-12 {
		return 0, false
	}
	invDet := 1 / det
	tvec := orig.Sub(v0)
	u := tvec.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	q := tvec.Cross(e1)
	v := dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t = e2.Dot(q) * invDet
	if t <= 1e-9 {
		return 0, false
	}
	return t, true
}

// PickFaceRegionByRay returns the nearest face region hit by the ray,
// or -1 if no triangle is intersected.
func PickFaceRegionByRay(m kernel.Mesh, faces FaceRegions, rayOrigin, rayDir kernel.Vec3) (region int, distance float64) {
	if len(m.Triangles) == 0 || len(faces.TriRegion) != len(m.Triangles) {
		return -1, 0
	}
	dir := normalize(rayDir)
	bestT, bestRegion := math.Inf(1), -1
	for tri, t := range m.Triangles {
		p0, p1, p2 := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
		hitT, ok := rayIntersectTriangle(rayOrigin, dir, p0, p1, p2)
		if !ok || hitT >= bestT {
			continue
		}
		bestT, bestRegion = hitT, faces.TriRegion[tri]
	}
	if bestRegion < 0 {
		return -1, 0
	}
	return bestRegion, bestT
}
