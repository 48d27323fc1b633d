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

// Package replay turns a wire-format op-record stream into kernel
// values: a DAG decoder (interpreter.go), a semantic lifter for sketch
// dimensions (semantics.go), a postorder operation trace builder
// (trace.go) and a tolerance-driven level-of-detail policy (lod.go).
package replay

import "fmt"

// OpCode identifies one op-record's decode routine. Numeric values are
// fixed by the wire protocol and must never be renumbered.
type OpCode uint16

const (
	OpSphere             OpCode = 1
	OpCube               OpCode = 2
	OpCylinder           OpCode = 3
	OpUnion              OpCode = 4
	OpSubtract           OpCode = 5
	OpIntersect          OpCode = 6
	OpTranslate          OpCode = 7
	OpRotate             OpCode = 8
	OpScale              OpCode = 9
	OpExtrude            OpCode = 10
	OpRevolve            OpCode = 11
	OpSlice              OpCode = 12
	OpCrossCircle        OpCode = 100
	OpCrossSquare        OpCode = 101
	OpCrossTranslate     OpCode = 102
	OpCrossRotate        OpCode = 103
	OpCrossRect          OpCode = 104
	OpCrossPoint         OpCode = 105
	OpCrossPolygons      OpCode = 106
	OpCrossFillet        OpCode = 107
	OpCrossOffsetClone   OpCode = 108
	OpCrossPlane         OpCode = 109
	OpCrossFilletCorners OpCode = 110
)

// Name returns the human-readable opcode name used in operation traces
// and diagnostics, mirroring the prototype's op_name table.
func (c OpCode) Name() string {
	switch c {
	case OpSphere:
		return "Sphere"
	case OpCube:
		return "Cube"
	case OpCylinder:
		return "Cylinder"
	case OpUnion:
		return "Union"
	case OpSubtract:
		return "Subtract"
	case OpIntersect:
		return "Intersect"
	case OpTranslate:
		return "Translate"
	case OpRotate:
		return "Rotate"
	case OpScale:
		return "Scale"
	case OpExtrude:
		return "Extrude"
	case OpRevolve:
		return "Revolve"
	case OpSlice:
		return "Slice"
	case OpCrossCircle:
		return "CrossCircle"
	case OpCrossSquare:
		return "CrossSquare"
	case OpCrossTranslate:
		return "CrossTranslate"
	case OpCrossRotate:
		return "CrossRotate"
	case OpCrossRect:
		return "CrossRect"
	case OpCrossPoint:
		return "CrossPoint"
	case OpCrossPolygons:
		return "CrossPolygons"
	case OpCrossFillet:
		return "CrossFillet"
	case OpCrossOffsetClone:
		return "CrossOffsetClone"
	case OpCrossPlane:
		return "CrossPlane"
	case OpCrossFilletCorners:
		return "CrossFilletCorners"
	default:
		return "Unknown"
	}
}

// NodeKind distinguishes the two root value types a scene object can
// resolve to.
type NodeKind uint32

const (
	NodeUnknown NodeKind = iota
	NodeManifold
	NodeCrossSection
)

func (k NodeKind) String() string {
	switch k {
	case NodeManifold:
		return "Manifold"
	case NodeCrossSection:
		return "CrossSection"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint32(k))
	}
}
