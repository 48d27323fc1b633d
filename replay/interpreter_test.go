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
package replay

import (
	"testing"

	"github.com/launix-de/vicad/kernel"
)

func TestReplayOpsToTablesBuildsSphereManifold(t *testing.T) {
	var records []byte
	records = appendOp(records, OpSphere, (&opBuilder{}).u32(0).f64(2).u32(16).buf)

	var tables Tables
	if err := ReplayOpsToTables(kernel.NewReference(), records, 1, &tables, LodModel); err != nil {
		t.Fatalf("ReplayOpsToTables: %v", err)
	}
	m, err := ResolveManifold(&tables, NodeManifold, 0)
	if err != nil {
		t.Fatalf("ResolveManifold: %v", err)
	}
	if len(m.Mesh().Triangles) == 0 {
		t.Fatal("expected sphere mesh to have triangles")
	}
}

func TestReplayOpsToTablesCircleThenExtrudeChain(t *testing.T) {
	var records []byte
	records = appendOp(records, OpCrossCircle, (&opBuilder{}).u32(0).f64(3).u32(16).buf)
	records = appendOp(records, OpExtrude, (&opBuilder{}).u32(1).u32(0).f64(5).u32(2).f64(0).buf)

	var tables Tables
	if err := ReplayOpsToTables(kernel.NewReference(), records, 2, &tables, LodModel); err != nil {
		t.Fatalf("ReplayOpsToTables: %v", err)
	}
	m, err := ResolveManifold(&tables, NodeManifold, 1)
	if err != nil {
		t.Fatalf("ResolveManifold: %v", err)
	}
	if len(m.Mesh().Vertices) == 0 {
		t.Fatal("expected extrude mesh to have vertices")
	}
}

func TestReplayOpsToTablesRejectsForwardReference(t *testing.T) {
	var records []byte
	records = appendOp(records, OpTranslate, (&opBuilder{}).u32(0).u32(99).f64(1).f64(1).f64(1).buf)

	var tables Tables
	if err := ReplayOpsToTables(kernel.NewReference(), records, 1, &tables, LodModel); err == nil {
		t.Fatal("expected error referencing a not-yet-built node")
	}
}

func TestReplayOpsToTablesRejectsUnknownOpcode(t *testing.T) {
	records := appendOp(nil, OpCode(777), (&opBuilder{}).u32(0).buf)
	var tables Tables
	if err := ReplayOpsToTables(kernel.NewReference(), records, 1, &tables, LodModel); err == nil {
		t.Fatal("expected unknown opcode error")
	}
}

func TestReplayOpsToTablesRejectsTrailingPayloadBytes(t *testing.T) {
	payload := (&opBuilder{}).u32(0).f64(2).u32(16).buf
	payload = append(payload, 0xFF)
	records := appendOp(nil, OpSphere, payload)

	var tables Tables
	if err := ReplayOpsToTables(kernel.NewReference(), records, 1, &tables, LodModel); err == nil {
		t.Fatal("expected trailing-bytes error")
	}
}

func TestReplayOpsToTablesCrossFilletAndOffsetClonePassThrough(t *testing.T) {
	var records []byte
	records = appendOp(records, OpCrossRect, (&opBuilder{}).u32(0).f64(4).f64(2).u32(1).buf)
	records = appendOp(records, OpCrossFillet, (&opBuilder{}).u32(1).u32(0).f64(0.5).buf)
	records = appendOp(records, OpCrossOffsetClone, (&opBuilder{}).u32(2).u32(1).f64(0.2).buf)

	var tables Tables
	if err := ReplayOpsToTables(kernel.NewReference(), records, 3, &tables, LodModel); err != nil {
		t.Fatalf("ReplayOpsToTables: %v", err)
	}
	base, err := ResolveCrossSection(&tables, NodeCrossSection, 0)
	if err != nil {
		t.Fatalf("ResolveCrossSection base: %v", err)
	}
	cloned, err := ResolveCrossSection(&tables, NodeCrossSection, 2)
	if err != nil {
		t.Fatalf("ResolveCrossSection cloned: %v", err)
	}
	if len(base.ToPolygons()) != len(cloned.ToPolygons()) {
		t.Error("expected passthrough cross-section to keep the same contour count")
	}
}

func TestReplayOpsToTablesZeroSegmentsAutoDerivesFromProfile(t *testing.T) {
	records := appendOp(nil, OpSphere, (&opBuilder{}).u32(0).f64(5).u32(0).buf)

	var draft, export Tables
	if err := ReplayOpsToTables(kernel.NewReference(), records, 1, &draft, LodDraft); err != nil {
		t.Fatalf("ReplayOpsToTables(draft): %v", err)
	}
	if err := ReplayOpsToTables(kernel.NewReference(), records, 1, &export, LodExport3MF); err != nil {
		t.Fatalf("ReplayOpsToTables(export): %v", err)
	}

	draftM, err := ResolveManifold(&draft, NodeManifold, 0)
	if err != nil {
		t.Fatalf("ResolveManifold(draft): %v", err)
	}
	exportM, err := ResolveManifold(&export, NodeManifold, 0)
	if err != nil {
		t.Fatalf("ResolveManifold(export): %v", err)
	}

	if len(exportM.Mesh().Triangles) <= len(draftM.Mesh().Triangles) {
		t.Fatalf("expected a finer LOD profile to auto-derive more segments: draft=%d export=%d",
			len(draftM.Mesh().Triangles), len(exportM.Mesh().Triangles))
	}
}

func TestReplayOpsToTablesExplicitSegmentsBypassAutoDerivation(t *testing.T) {
	records := appendOp(nil, OpSphere, (&opBuilder{}).u32(0).f64(5).u32(12).buf)

	var draft, export Tables
	if err := ReplayOpsToTables(kernel.NewReference(), records, 1, &draft, LodDraft); err != nil {
		t.Fatalf("ReplayOpsToTables(draft): %v", err)
	}
	if err := ReplayOpsToTables(kernel.NewReference(), records, 1, &export, LodExport3MF); err != nil {
		t.Fatalf("ReplayOpsToTables(export): %v", err)
	}

	draftM, _ := ResolveManifold(&draft, NodeManifold, 0)
	exportM, _ := ResolveManifold(&export, NodeManifold, 0)
	if len(draftM.Mesh().Triangles) != len(exportM.Mesh().Triangles) {
		t.Fatal("expected an explicit nonzero segment count to ignore the LOD profile")
	}
}

func TestResolveManifoldRejectsWrongRootKind(t *testing.T) {
	var tables Tables
	tables.ensure(0)
	tables.ManifoldNodes[0] = &fakeManifoldOK{}
	tables.HasManifold[0] = true
	if _, err := ResolveManifold(&tables, NodeCrossSection, 0); err == nil {
		t.Fatal("expected root-kind mismatch error")
	}
}

type fakeManifoldOK struct{}

func (f *fakeManifoldOK) Status() error                               { return nil }
func (f *fakeManifoldOK) Mesh() kernel.Mesh                           { return kernel.Mesh{} }
func (f *fakeManifoldOK) Translate(v kernel.Vec3) kernel.Manifold     { return f }
func (f *fakeManifoldOK) Rotate(x, y, z float64) kernel.Manifold      { return f }
func (f *fakeManifoldOK) Scale(v kernel.Vec3) kernel.Manifold         { return f }
func (f *fakeManifoldOK) Boolean(o kernel.Manifold, op kernel.BooleanOp) kernel.Manifold { return f }
func (f *fakeManifoldOK) Slice(z float64) kernel.CrossSection         { return nil }
