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

// ComputeSilhouette flags every manifold edge whose two adjacent faces
// straddle the view-facing plane from eye, then runs the same chain
// extraction as BuildEdgeTopology so the result is clean display
// outlines rather than an isolated-edge soup.
func ComputeSilhouette(m kernel.Mesh, topo EdgeTopology, eye kernel.Vec3) []bool {
	isSilhouette := make([]bool, len(topo.Edges))
	if len(topo.Edges) == 0 {
		return isSilhouette
	}

	edgeLengths := make([]float64, len(topo.Edges))
	for i, e := range topo.Edges {
		edgeLengths[i] = length(m.Vertices[e.V1].Sub(m.Vertices[e.V0]))
	}
	bboxDiag := boundsDiagonal(m)

	silhouetteMask := make([]bool, len(topo.Edges))
	for i, e := range topo.Edges {
		if topo.Flags[i]&EdgeClassNonManifold != 0 {
			continue
		}
		if e.TriA < 0 || e.TriB < 0 {
			continue
		}
		p0, p1 := m.Vertices[e.V0], m.Vertices[e.V1]
		mid := midpoint(p0, p1)
		viewDir := normalize(eye.Sub(mid))

		da := e.NormalA.Dot(viewDir)
		db := e.NormalB.Dot(viewDir)
		if math.IsNaN(da) || math.IsNaN(db) {
			continue
		}
		if (da > 0 && db <= 0) || (da <= 0 && db > 0) {
			silhouetteMask[i] = true
		}
	}

	_, kept := extractChains(m, topo.Edges, silhouetteMask, 42.0, edgeLengths, math.Max(1e-4, bboxDiag*0.02), 3, nil)
	copy(isSilhouette, kept)
	return isSilhouette
}
