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

// EdgeClassFlags classifies one topological edge.
type EdgeClassFlags uint8

const (
	EdgeClassNone        EdgeClassFlags = 0
	EdgeClassSharp       EdgeClassFlags = 1 << 0
	EdgeClassBoundary    EdgeClassFlags = 1 << 1
	EdgeClassNonManifold EdgeClassFlags = 1 << 2
)

// EdgeRecord is one undirected mesh edge and the (up to two) triangles
// that share it, with each side's face normal cached for later angle
// tests.
type EdgeRecord struct {
	V0, V1   uint32
	TriA     int // -1 if absent
	TriB     int // -1 if absent
	NormalA  kernel.Vec3
	NormalB  kernel.Vec3
}

// EdgeTopology is BuildEdgeTopology's result: every edge in the mesh,
// its classification flags, the feature edges kept after chain
// extraction, and the chains those feature edges were grouped into.
type EdgeTopology struct {
	Edges               []EdgeRecord
	Flags               []EdgeClassFlags
	SharpEdgeIndices     []int
	BoundaryEdgeIndices  []int
	NonManifoldIndices   []int
	FeatureChains        [][]int
	EdgeFeatureChain     []int // -1 if the edge belongs to no chain
}

// sharpAngleDeg is the dihedral-angle threshold (degrees) above which a
// manifold edge between two triangles is classified sharp.
const sharpAngleDeg = 35.0

func otherVertex(e EdgeRecord, v uint32) uint32 {
	if e.V0 == v {
		return e.V1
	}
	return e.V0
}

func edgeDirFromVertex(m kernel.Mesh, e EdgeRecord, fromV uint32) kernel.Vec3 {
	p0 := m.Vertices[fromV]
	p1 := m.Vertices[otherVertex(e, fromV)]
	return normalize(p1.Sub(p0))
}

// extractChains groups the edges flagged in includeMask into maximal
// runs (preferring the straightest continuation at each vertex, capped
// by maxTurnDeg) and keeps only chains that are long/long-enough or
// marked in preserveMask, always keeping at least the single longest
// chain so a model with only faint, short features still shows one.
func extractChains(m kernel.Mesh, edges []EdgeRecord, includeMask []bool, maxTurnDeg float64,
	edgeLengths []float64, minChainLength float64, minSegments int, preserveMask []bool) (chains [][]int, kept []bool) {

	kept = make([]bool, len(edges))
	if len(edges) == 0 || len(includeMask) != len(edges) {
		return nil, kept
	}

	incident := make(map[uint32][]int)
	degree := make(map[uint32]int)
	for i, e := range edges {
		if !includeMask[i] {
			continue
		}
		incident[e.V0] = append(incident[e.V0], i)
		incident[e.V1] = append(incident[e.V1], i)
		degree[e.V0]++
		degree[e.V1]++
	}

	visited := make([]bool, len(edges))
	minCos := math.Cos(maxTurnDeg * math.Pi / 180)

	chooseNext := func(curEdge int, atVertex uint32, incoming kernel.Vec3) int {
		best, bestScore := -1, -2.0
		for _, cand := range incident[atVertex] {
			if cand == curEdge || !includeMask[cand] || visited[cand] {
				continue
			}
			outDir := edgeDirFromVertex(m, edges[cand], atVertex)
			if score := incoming.Dot(outDir); score > bestScore {
				bestScore, best = score, cand
			}
		}
		if best < 0 || bestScore < minCos {
			return -1
		}
		return best
	}

	traceChain := func(startEdge int, startVertex uint32) []int {
		var chain []int
		cur, fromV := startEdge, startVertex
		for cur >= 0 && !visited[cur] {
			visited[cur] = true
			chain = append(chain, cur)
			e := edges[cur]
			toV := otherVertex(e, fromV)
			incoming := edgeDirFromVertex(m, e, fromV)
			next := chooseNext(cur, toV, incoming)
			fromV, cur = toV, next
		}
		return chain
	}

	for i, e := range edges {
		if !includeMask[i] || visited[i] {
			continue
		}
		end0 := degree[e.V0] != 2
		end1 := degree[e.V1] != 2
		if !end0 && !end1 {
			continue
		}
		startV := e.V1
		if end0 {
			startV = e.V0
		}
		if chain := traceChain(i, startV); len(chain) > 0 {
			chains = append(chains, chain)
		}
	}
	for i, e := range edges {
		if !includeMask[i] || visited[i] {
			continue
		}
		if chain := traceChain(i, e.V0); len(chain) > 0 {
			chains = append(chains, chain)
		}
	}

	longestLen, longestIdx := -1.0, -1
	for ci, chain := range chains {
		chainLen := 0.0
		preserve := false
		for _, ei := range chain {
			chainLen += edgeLengths[ei]
			if preserveMask != nil && preserveMask[ei] {
				preserve = true
			}
		}
		if chainLen > longestLen {
			longestLen, longestIdx = chainLen, ci
		}
		if len(chain) < minSegments && !preserve {
			continue
		}
		if chainLen < minChainLength && !preserve {
			continue
		}
		for _, ei := range chain {
			kept[ei] = true
		}
	}

	anyKept := false
	for _, v := range kept {
		if v {
			anyKept = true
			break
		}
	}
	if !anyKept && longestIdx >= 0 {
		for _, ei := range chains[longestIdx] {
			kept[ei] = true
		}
	}

	return chains, kept
}

// BuildEdgeTopology derives every undirected edge of m, classifies it
// (boundary, sharp dihedral, non-manifold), and extracts the feature
// edges into display chains.
func BuildEdgeTopology(m kernel.Mesh) EdgeTopology {
	var out EdgeTopology
	if len(m.Triangles) == 0 {
		return out
	}

	normals := make([]kernel.Vec3, len(m.Triangles))
	for i, tri := range m.Triangles {
		normals[i] = triNormal(m, tri)
	}
	bboxDiag := boundsDiagonal(m)

	type adjTri struct{ tri int }
	edgeToTris := make(map[uint64][]adjTri)
	for tri, t := range m.Triangles {
		edgeToTris[edgeKey(t[0], t[1])] = append(edgeToTris[edgeKey(t[0], t[1])], adjTri{tri})
		edgeToTris[edgeKey(t[1], t[2])] = append(edgeToTris[edgeKey(t[1], t[2])], adjTri{tri})
		edgeToTris[edgeKey(t[2], t[0])] = append(edgeToTris[edgeKey(t[2], t[0])], adjTri{tri})
	}

	keys := make([]uint64, 0, len(edgeToTris))
	for k := range edgeToTris {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	sharpCos := math.Cos(sharpAngleDeg * math.Pi / 180)
	var edgeLengths []float64
	for _, key := range keys {
		v0, v1 := uint32(key>>32), uint32(key&0xffffffff)
		tris := edgeToTris[key]

		rec := EdgeRecord{V0: v0, V1: v1, TriA: -1, TriB: -1}
		if len(tris) > 0 {
			rec.TriA = tris[0].tri
			rec.NormalA = normals[tris[0].tri]
		}
		if len(tris) >= 2 {
			rec.TriB = tris[1].tri
			rec.NormalB = normals[tris[1].tri]
		}

		flags := EdgeClassNone
		switch {
		case len(tris) == 1:
			flags |= EdgeClassBoundary
		case len(tris) != 2:
			flags |= EdgeClassNonManifold
		default:
			d := normals[tris[0].tri].Dot(normals[tris[1].tri])
			if !math.IsNaN(d) && d < sharpCos {
				flags |= EdgeClassSharp
			}
		}

		out.Edges = append(out.Edges, rec)
		out.Flags = append(out.Flags, flags)
		edgeLengths = append(edgeLengths, length(m.Vertices[v1].Sub(m.Vertices[v0])))
	}

	sortedLengths := append([]float64{}, edgeLengths...)
	sort.Float64s(sortedLengths)
	medianLen := 0.0
	if len(sortedLengths) > 0 {
		medianLen = sortedLengths[len(sortedLengths)/2]
	}
	minSharpLen := math.Max(1e-8, medianLen*0.25)

	featureMask := make([]bool, len(out.Edges))
	preserveMask := make([]bool, len(out.Edges))
	for i, flags := range out.Flags {
		boundary := flags&EdgeClassBoundary != 0
		nonManifold := flags&EdgeClassNonManifold != 0
		sharp := flags&EdgeClassSharp != 0
		if boundary || nonManifold {
			featureMask[i] = true
			preserveMask[i] = true
			continue
		}
		if sharp && edgeLengths[i] >= minSharpLen {
			featureMask[i] = true
		}
	}

	minChainLen := math.Max(1e-4, bboxDiag*0.015)
	chains, kept := extractChains(m, out.Edges, featureMask, 35.0, edgeLengths, minChainLen, 2, preserveMask)

	out.EdgeFeatureChain = make([]int, len(out.Edges))
	for i := range out.EdgeFeatureChain {
		out.EdgeFeatureChain[i] = -1
	}
	for i, flags := range out.Flags {
		if !kept[i] {
			continue
		}
		if flags&EdgeClassSharp != 0 {
			out.SharpEdgeIndices = append(out.SharpEdgeIndices, i)
		}
		if flags&EdgeClassBoundary != 0 {
			out.BoundaryEdgeIndices = append(out.BoundaryEdgeIndices, i)
		}
		if flags&EdgeClassNonManifold != 0 {
			out.NonManifoldIndices = append(out.NonManifoldIndices, i)
		}
	}
	for _, chain := range chains {
		var keptChain []int
		for _, ei := range chain {
			if kept[ei] {
				keptChain = append(keptChain, ei)
			}
		}
		if len(keptChain) == 0 {
			continue
		}
		chainID := len(out.FeatureChains)
		for _, ei := range keptChain {
			out.EdgeFeatureChain[ei] = chainID
		}
		out.FeatureChains = append(out.FeatureChains, keptChain)
	}

	return out
}

func pointRayDistance(p, rayOrig, rayDir kernel.Vec3) (t, dist float64, ok bool) {
	op := p.Sub(rayOrig)
	t = op.Dot(rayDir)
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 1e-9 {
		return 0, 0, false
	}
	q := rayOrig.Add(rayDir.Scale(t))
	dist = length(p.Sub(q))
	if math.IsNaN(dist) || math.IsInf(dist, 0) {
		return 0, 0, false
	}
	return t, dist, true
}

// PickEdgeByRay finds the closest feature/silhouette edge whose
// endpoints or midpoint pass within pickRadius of the ray, preferring
// the nearest hit distance along the ray. Returns -1 if nothing
// qualifies.
func PickEdgeByRay(m kernel.Mesh, topo EdgeTopology, silhouette []bool, rayOrigin, rayDir kernel.Vec3, pickRadius float64) (edgeIndex int, distance float64) {
	if len(topo.Edges) == 0 {
		return -1, 0
	}
	dir := normalize(rayDir)
	if length(dir) <= 1e-20 {
		return -1, 0
	}

	candidate := make([]bool, len(topo.Edges))
	for _, idx := range topo.SharpEdgeIndices {
		candidate[idx] = true
	}
	for _, idx := range topo.BoundaryEdgeIndices {
		candidate[idx] = true
	}
	for _, idx := range topo.NonManifoldIndices {
		candidate[idx] = true
	}
	for i, v := range silhouette {
		if v && i < len(candidate) {
			candidate[i] = true
		}
	}

	bestT, bestDist, bestEdge := math.Inf(1), math.Inf(1), -1
	for i, e := range topo.Edges {
		if !candidate[i] {
			continue
		}
		p0, p1 := m.Vertices[e.V0], m.Vertices[e.V1]

		t0, d0, ok0 := pointRayDistance(p0, rayOrigin, dir)
		t1, d1, ok1 := pointRayDistance(p1, rayOrigin, dir)
		if !ok0 && !ok1 {
			continue
		}
		t, d := t0, d0
		if !ok0 {
			t, d = t1, d1
		} else if ok1 {
			t = math.Min(t0, t1)
			d = math.Min(d0, d1)
		}

		mid := midpoint(p0, p1)
		if tm, dm, ok := pointRayDistance(mid, rayOrigin, dir); ok {
			if tm < t {
				t = tm
			}
			if dm < d {
				d = dm
			}
		}

		if d > pickRadius {
			continue
		}
		if t < bestT || (math.Abs(t-bestT) <= 1e-9 && d < bestDist) {
			bestT, bestDist, bestEdge = t, d, i
		}
	}

	if bestEdge < 0 {
		return -1, 0
	}
	return bestEdge, bestT
}
