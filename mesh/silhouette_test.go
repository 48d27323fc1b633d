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
	"testing"

	"github.com/launix-de/vicad/kernel"
)

func TestComputeSilhouetteOnSphereProducesSomeSilhouetteEdges(t *testing.T) {
	sphere, err := kernel.NewReference().Sphere(2, 24)
	if err != nil {
		t.Fatalf("Sphere: %v", err)
	}
	m := sphere.Mesh()
	topo := BuildEdgeTopology(m)

	eye := kernel.Vec3{X: 0, Y: 0, Z: 10}
	sil := ComputeSilhouette(m, topo, eye)
	if len(sil) != len(topo.Edges) {
		t.Fatalf("expected one silhouette flag per edge, got %d flags for %d edges", len(sil), len(topo.Edges))
	}

	found := false
	for _, v := range sil {
		if v {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected a viewed sphere to have at least one silhouette edge")
	}
}

func TestComputeSilhouetteEmptyTopologyReturnsEmpty(t *testing.T) {
	sil := ComputeSilhouette(kernel.Mesh{}, EdgeTopology{}, kernel.Vec3{Z: 10})
	if len(sil) != 0 {
		t.Fatalf("expected no silhouette flags for an empty topology, got %d", len(sil))
	}
}
