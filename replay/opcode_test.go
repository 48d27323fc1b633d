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

import "testing"

func TestOpCodeNameCoversAllDeclaredOpcodes(t *testing.T) {
	codes := []OpCode{
		OpSphere, OpCube, OpCylinder, OpUnion, OpSubtract, OpIntersect,
		OpTranslate, OpRotate, OpScale, OpExtrude, OpRevolve, OpSlice,
		OpCrossCircle, OpCrossSquare, OpCrossTranslate, OpCrossRotate,
		OpCrossRect, OpCrossPoint, OpCrossPolygons, OpCrossFillet,
		OpCrossOffsetClone, OpCrossPlane, OpCrossFilletCorners,
	}
	for _, c := range codes {
		if c.Name() == "Unknown" {
			t.Errorf("opcode %d has no name mapping", c)
		}
	}
}

func TestOpCodeNameUnknownForUnmappedValue(t *testing.T) {
	if got := OpCode(9999).Name(); got != "Unknown" {
		t.Errorf("expected Unknown, got %q", got)
	}
}

func TestOpCodeNumericValuesAreFixed(t *testing.T) {
	cases := map[OpCode]uint16{
		OpSphere: 1, OpCube: 2, OpCylinder: 3, OpUnion: 4, OpSubtract: 5,
		OpIntersect: 6, OpTranslate: 7, OpRotate: 8, OpScale: 9,
		OpExtrude: 10, OpRevolve: 11, OpSlice: 12,
		OpCrossCircle: 100, OpCrossSquare: 101, OpCrossTranslate: 102,
		OpCrossRotate: 103, OpCrossRect: 104, OpCrossPoint: 105,
		OpCrossPolygons: 106, OpCrossFillet: 107, OpCrossOffsetClone: 108,
		OpCrossPlane: 109, OpCrossFilletCorners: 110,
	}
	for code, want := range cases {
		if uint16(code) != want {
			t.Errorf("opcode %s = %d, want %d", code.Name(), code, want)
		}
	}
}

func TestNodeKindString(t *testing.T) {
	if NodeManifold.String() != "Manifold" {
		t.Errorf("unexpected manifold string %q", NodeManifold.String())
	}
	if NodeCrossSection.String() != "CrossSection" {
		t.Errorf("unexpected cross-section string %q", NodeCrossSection.String())
	}
	if NodeUnknown.String() == "Manifold" || NodeUnknown.String() == "CrossSection" {
		t.Errorf("unknown node kind should not alias a known one: %q", NodeUnknown.String())
	}
}
