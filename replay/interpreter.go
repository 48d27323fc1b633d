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
	"fmt"
	"math"

	"github.com/launix-de/vicad/kernel"
)

// NodeSemantic records one decoded op-record's shape, independent of
// its resolved kernel value, so the trace builder and sketch-dimension
// lifter can walk the DAG without re-decoding payload bytes.
type NodeSemantic struct {
	Opcode     OpCode
	OutID      uint32
	Inputs     []uint32
	ParamsF64  []float64
	ParamsU32  []uint32
	Polygons   []kernel.Polygon
	HasPolygons bool
	Valid      bool
}

// Tables is every node table the decoder fills in during one replay
// pass: parallel manifold/cross-section slots indexed by wire node id,
// plus the semantic shadow table BuildOperationTraceForRoot and the
// sketch-dimension lifter walk.
type Tables struct {
	ManifoldNodes []kernel.Manifold
	HasManifold   []bool
	CrossNodes    []kernel.CrossSection
	HasCross      []bool
	NodeSemantics []NodeSemantic
}

func (t *Tables) ensure(id uint32) {
	need := int(id) + 1
	if len(t.ManifoldNodes) >= need {
		return
	}
	grow := make([]kernel.Manifold, need)
	copy(grow, t.ManifoldNodes)
	t.ManifoldNodes = grow

	growHasM := make([]bool, need)
	copy(growHasM, t.HasManifold)
	t.HasManifold = growHasM

	growC := make([]kernel.CrossSection, need)
	copy(growC, t.CrossNodes)
	t.CrossNodes = growC

	growHasC := make([]bool, need)
	copy(growHasC, t.HasCross)
	t.HasCross = growHasC

	growSem := make([]NodeSemantic, need)
	copy(growSem, t.NodeSemantics)
	t.NodeSemantics = growSem
}

func (t *Tables) needManifold(id uint32) (kernel.Manifold, error) {
	if int(id) >= len(t.ManifoldNodes) || !t.HasManifold[id] {
		return nil, fmt.Errorf("replay: missing manifold node %d", id)
	}
	return t.ManifoldNodes[id], nil
}

func (t *Tables) needCross(id uint32) (kernel.CrossSection, error) {
	if int(id) >= len(t.CrossNodes) || !t.HasCross[id] {
		return nil, fmt.Errorf("replay: missing cross-section node %d", id)
	}
	return t.CrossNodes[id], nil
}

func checkStatus(m kernel.Manifold, ctx string) error {
	if err := m.Status(); err != nil {
		return fmt.Errorf("replay failed in %s: %w", ctx, err)
	}
	return nil
}

// ReplayOpsToTables decodes every op-record in records against k,
// filling in tables in stream order. Because every input id must
// already have been assigned by an earlier record, a cycle or a
// forward reference is rejected the same way a missing node is: the
// referenced slot is not marked present yet. A zero segment count in
// the wire payload is replaced by the profile's auto-derived count
// (spec §4.2/§4.6); a positive count is authoritative and passes
// through unchanged so it round-trips identically across profiles.
func ReplayOpsToTables(k kernel.Kernel, records []byte, opCount uint32, tables *Tables, profile LodProfile) (err error) {
	// The kernel is host-injected and may panic on malformed geometry
	// (nil deref, index out of range); recover at this boundary and
	// convert to the ordinary replay error taxonomy (spec §7, §9).
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("replay failed: kernel panic: %v", r)
		}
	}()

	*tables = Tables{}
	ops, err := ReadOpRecords(records, opCount)
	if err != nil {
		return err
	}

	for _, op := range ops {
		r := newPayloadReader(op.Payload)
		outID, err := r.u32()
		if err != nil {
			return fmt.Errorf("replay failed: missing out node id: %w", err)
		}
		tables.ensure(outID)

		sem := NodeSemantic{Opcode: op.Opcode, OutID: outID, Valid: true}

		switch op.Opcode {
		case OpSphere:
			radius, err1 := r.f64()
			seg, err2 := r.u32()
			if err := firstErr(err1, err2); err != nil {
				return invalidPayload("sphere", err)
			}
			segCount := int(seg)
			if segCount == 0 {
				segCount = AutoCircularSegments(radius, profile)
			}
			m, err := k.Sphere(radius, segCount)
			if err != nil {
				return err
			}
			if err := checkStatus(m, "sphere"); err != nil {
				return err
			}
			tables.ManifoldNodes[outID] = m
			tables.HasManifold[outID] = true
			sem.ParamsF64 = []float64{radius}
			sem.ParamsU32 = []uint32{seg}

		case OpCube:
			x, e1 := r.f64()
			y, e2 := r.f64()
			z, e3 := r.f64()
			center, e4 := r.u32()
			if err := firstErr(e1, e2, e3, e4); err != nil {
				return invalidPayload("cube", err)
			}
			m, err := k.Cube(x, y, z, center != 0)
			if err != nil {
				return err
			}
			if err := checkStatus(m, "cube"); err != nil {
				return err
			}
			tables.ManifoldNodes[outID] = m
			tables.HasManifold[outID] = true
			sem.ParamsF64 = []float64{x, y, z}
			sem.ParamsU32 = []uint32{center}

		case OpCylinder:
			h, e1 := r.f64()
			r1, e2 := r.f64()
			r2, e3 := r.f64()
			seg, e4 := r.u32()
			center, e5 := r.u32()
			if err := firstErr(e1, e2, e3, e4, e5); err != nil {
				return invalidPayload("cylinder", err)
			}
			segCount := int(seg)
			if segCount == 0 {
				segCount = AutoCircularSegments(math.Max(r1, r2), profile)
			}
			m, err := k.Cylinder(h, r1, r2, segCount, center != 0)
			if err != nil {
				return err
			}
			if err := checkStatus(m, "cylinder"); err != nil {
				return err
			}
			tables.ManifoldNodes[outID] = m
			tables.HasManifold[outID] = true
			sem.ParamsF64 = []float64{h, r1, r2}
			sem.ParamsU32 = []uint32{seg, center}

		case OpUnion:
			count, err := r.u32()
			if err != nil || count == 0 {
				return invalidPayload("union", err)
			}
			parts := make([]kernel.Manifold, 0, count)
			inputs := make([]uint32, 0, count)
			for i := uint32(0); i < count; i++ {
				id, err := r.u32()
				if err != nil {
					return invalidPayload("union args", err)
				}
				part, err := tables.needManifold(id)
				if err != nil {
					return err
				}
				parts = append(parts, part)
				inputs = append(inputs, id)
			}
			m, err := k.BatchBoolean(parts, kernel.OpAdd)
			if err != nil {
				return err
			}
			if err := checkStatus(m, "union"); err != nil {
				return err
			}
			tables.ManifoldNodes[outID] = m
			tables.HasManifold[outID] = true
			sem.Inputs = inputs

		case OpSubtract, OpIntersect:
			a, e1 := r.u32()
			b, e2 := r.u32()
			if err := firstErr(e1, e2); err != nil {
				return invalidPayload("boolean", err)
			}
			ma, err := tables.needManifold(a)
			if err != nil {
				return err
			}
			mb, err := tables.needManifold(b)
			if err != nil {
				return err
			}
			bop := kernel.OpSubtract
			if op.Opcode == OpIntersect {
				bop = kernel.OpIntersect
			}
			m := ma.Boolean(mb, bop)
			if err := checkStatus(m, "boolean"); err != nil {
				return err
			}
			tables.ManifoldNodes[outID] = m
			tables.HasManifold[outID] = true
			sem.Inputs = []uint32{a, b}

		case OpTranslate, OpRotate, OpScale:
			inID, e1 := r.u32()
			x, e2 := r.f64()
			y, e3 := r.f64()
			z, e4 := r.f64()
			if err := firstErr(e1, e2, e3, e4); err != nil {
				return invalidPayload("transform", err)
			}
			inM, err := tables.needManifold(inID)
			if err != nil {
				return err
			}
			var outM kernel.Manifold
			switch op.Opcode {
			case OpTranslate:
				outM = inM.Translate(kernel.Vec3{X: x, Y: y, Z: z})
			case OpRotate:
				outM = inM.Rotate(x, y, z)
			default:
				outM = inM.Scale(kernel.Vec3{X: x, Y: y, Z: z})
			}
			if err := checkStatus(outM, "transform"); err != nil {
				return err
			}
			tables.ManifoldNodes[outID] = outM
			tables.HasManifold[outID] = true
			sem.Inputs = []uint32{inID}
			sem.ParamsF64 = []float64{x, y, z}

		case OpCrossCircle:
			radius, e1 := r.f64()
			seg, e2 := r.u32()
			if err := firstErr(e1, e2); err != nil {
				return invalidPayload("cross circle", err)
			}
			segCount := int(seg)
			if segCount == 0 {
				segCount = AutoCircularSegments(radius, profile)
			}
			cs, err := k.Circle(radius, segCount)
			if err != nil {
				return err
			}
			tables.CrossNodes[outID] = cs
			tables.HasCross[outID] = true
			sem.ParamsF64 = []float64{radius}
			sem.ParamsU32 = []uint32{seg}

		case OpCrossSquare, OpCrossRect:
			x, e1 := r.f64()
			y, e2 := r.f64()
			center, e3 := r.u32()
			if err := firstErr(e1, e2, e3); err != nil {
				return invalidPayload("cross square", err)
			}
			cs, err := k.Square(x, y, center != 0)
			if err != nil {
				return err
			}
			tables.CrossNodes[outID] = cs
			tables.HasCross[outID] = true
			sem.ParamsF64 = []float64{x, y}
			sem.ParamsU32 = []uint32{center}

		case OpCrossPoint:
			x, e1 := r.f64()
			y, e2 := r.f64()
			radius, e3 := r.f64()
			seg, e4 := r.u32()
			if err := firstErr(e1, e2, e3, e4); err != nil {
				return invalidPayload("cross point", err)
			}
			segCount := int(seg)
			if segCount == 0 {
				segCount = AutoCircularSegments(radius, profile)
			}
			cs, err := k.Circle(radius, segCount)
			if err != nil {
				return err
			}
			cs = cs.Translate(kernel.Vec2{X: x, Y: y})
			tables.CrossNodes[outID] = cs
			tables.HasCross[outID] = true
			sem.ParamsF64 = []float64{x, y, radius}
			sem.ParamsU32 = []uint32{seg}

		case OpCrossPolygons:
			contourCount, err := r.u32()
			if err != nil || contourCount == 0 {
				return invalidPayload("cross polygons", err)
			}
			polys := make([]kernel.Polygon, 0, contourCount)
			for c := uint32(0); c < contourCount; c++ {
				pointCount, err := r.u32()
				if err != nil || pointCount < 3 {
					return invalidPayload("cross polygon contour", err)
				}
				poly := make(kernel.Polygon, 0, pointCount)
				for i := uint32(0); i < pointCount; i++ {
					x, e1 := r.f64()
					y, e2 := r.f64()
					if err := firstErr(e1, e2); err != nil {
						return invalidPayload("cross polygon point", err)
					}
					poly = append(poly, kernel.Vec2{X: x, Y: y})
				}
				polys = append(polys, poly)
			}
			cs, err := k.FromPolygons(polys)
			if err != nil {
				return err
			}
			tables.CrossNodes[outID] = cs
			tables.HasCross[outID] = true
			sem.Polygons = polys
			sem.HasPolygons = true

		case OpCrossTranslate:
			inID, e1 := r.u32()
			x, e2 := r.f64()
			y, e3 := r.f64()
			if err := firstErr(e1, e2, e3); err != nil {
				return invalidPayload("cross translate", err)
			}
			inC, err := tables.needCross(inID)
			if err != nil {
				return err
			}
			tables.CrossNodes[outID] = inC.Translate(kernel.Vec2{X: x, Y: y})
			tables.HasCross[outID] = true
			sem.Inputs = []uint32{inID}
			sem.ParamsF64 = []float64{x, y}

		case OpCrossRotate:
			inID, e1 := r.u32()
			deg, e2 := r.f64()
			if err := firstErr(e1, e2); err != nil {
				return invalidPayload("cross rotate", err)
			}
			inC, err := tables.needCross(inID)
			if err != nil {
				return err
			}
			tables.CrossNodes[outID] = inC.Rotate(deg)
			tables.HasCross[outID] = true
			sem.Inputs = []uint32{inID}
			sem.ParamsF64 = []float64{deg}

		case OpCrossFillet:
			inID, e1 := r.u32()
			radius, e2 := r.f64()
			if err := firstErr(e1, e2); err != nil {
				return invalidPayload("cross fillet", err)
			}
			inC, err := tables.needCross(inID)
			if err != nil {
				return err
			}
			// The reference kernel has no corner-rounding primitive;
			// geometry passes through unchanged and the radius is kept
			// only as sketch-dimension metadata by the semantic lifter.
			tables.CrossNodes[outID] = inC
			tables.HasCross[outID] = true
			sem.Inputs = []uint32{inID}
			sem.ParamsF64 = []float64{radius}

		case OpCrossFilletCorners:
			inID, e1 := r.u32()
			count, e2 := r.u32()
			if err := firstErr(e1, e2); err != nil {
				return invalidPayload("cross fillet corners", err)
			}
			radii := make([]float64, 0, count)
			for i := uint32(0); i < count; i++ {
				v, err := r.f64()
				if err != nil {
					return invalidPayload("cross fillet corners radius", err)
				}
				radii = append(radii, v)
			}
			inC, err := tables.needCross(inID)
			if err != nil {
				return err
			}
			tables.CrossNodes[outID] = inC
			tables.HasCross[outID] = true
			sem.Inputs = []uint32{inID}
			sem.ParamsF64 = radii

		case OpCrossOffsetClone:
			inID, e1 := r.u32()
			delta, e2 := r.f64()
			if err := firstErr(e1, e2); err != nil {
				return invalidPayload("cross offset clone", err)
			}
			inC, err := tables.needCross(inID)
			if err != nil {
				return err
			}
			// Real polygon offsetting is a host-kernel capability; the
			// reference kernel clones the input unchanged.
			tables.CrossNodes[outID] = inC
			tables.HasCross[outID] = true
			sem.Inputs = []uint32{inID}
			sem.ParamsF64 = []float64{delta}

		case OpCrossPlane:
			halfExtent, err := r.f64()
			if err != nil {
				return invalidPayload("cross plane", err)
			}
			cs, err := k.Square(halfExtent*2, halfExtent*2, true)
			if err != nil {
				return err
			}
			tables.CrossNodes[outID] = cs
			tables.HasCross[outID] = true
			sem.ParamsF64 = []float64{halfExtent}

		case OpExtrude:
			csID, e1 := r.u32()
			height, e2 := r.f64()
			divisions, e3 := r.u32()
			twist, e4 := r.f64()
			if err := firstErr(e1, e2, e3, e4); err != nil {
				return invalidPayload("extrude", err)
			}
			cs, err := tables.needCross(csID)
			if err != nil {
				return err
			}
			m, err := k.Extrude(cs, height, int(divisions), twist)
			if err != nil {
				return err
			}
			if err := checkStatus(m, "extrude"); err != nil {
				return err
			}
			tables.ManifoldNodes[outID] = m
			tables.HasManifold[outID] = true
			sem.Inputs = []uint32{csID}
			sem.ParamsF64 = []float64{height, twist}
			sem.ParamsU32 = []uint32{divisions}

		case OpRevolve:
			csID, e1 := r.u32()
			seg, e2 := r.u32()
			deg, e3 := r.f64()
			if err := firstErr(e1, e2, e3); err != nil {
				return invalidPayload("revolve", err)
			}
			cs, err := tables.needCross(csID)
			if err != nil {
				return err
			}
			segCount := int(seg)
			if segCount == 0 {
				segCount = AutoCircularSegmentsForRevolve(maxPolygonRadius(cs.ToPolygons()), deg, profile)
			}
			m, err := k.Revolve(cs, segCount, deg)
			if err != nil {
				return err
			}
			if err := checkStatus(m, "revolve"); err != nil {
				return err
			}
			tables.ManifoldNodes[outID] = m
			tables.HasManifold[outID] = true
			sem.Inputs = []uint32{csID}
			sem.ParamsF64 = []float64{deg}
			sem.ParamsU32 = []uint32{seg}

		case OpSlice:
			inID, e1 := r.u32()
			z, e2 := r.f64()
			if err := firstErr(e1, e2); err != nil {
				return invalidPayload("slice", err)
			}
			inM, err := tables.needManifold(inID)
			if err != nil {
				return err
			}
			tables.CrossNodes[outID] = inM.Slice(z)
			tables.HasCross[outID] = true
			sem.Inputs = []uint32{inID}
			sem.ParamsF64 = []float64{z}

		default:
			return fmt.Errorf("replay failed: unknown opcode %d", op.Opcode)
		}

		if !r.done() {
			return fmt.Errorf("replay failed: payload trailing bytes for opcode %d", op.Opcode)
		}
		tables.NodeSemantics[outID] = sem
	}

	return nil
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func invalidPayload(ctx string, err error) error {
	return fmt.Errorf("replay failed: invalid %s payload: %w", ctx, err)
}

// ResolveManifold validates rootKind and returns the manifold at
// rootID, failing if the table has no such entry.
func ResolveManifold(tables *Tables, rootKind NodeKind, rootID uint32) (kernel.Manifold, error) {
	if rootKind != NodeManifold {
		return nil, fmt.Errorf("replay failed: root node is not a manifold")
	}
	m, err := tables.needManifold(rootID)
	if err != nil {
		return nil, fmt.Errorf("replay failed: root manifold node missing: %w", err)
	}
	if err := checkStatus(m, "final"); err != nil {
		return nil, err
	}
	return m, nil
}

// ResolveCrossSection validates rootKind and returns the cross-section
// at rootID, failing if the table has no such entry.
func ResolveCrossSection(tables *Tables, rootKind NodeKind, rootID uint32) (kernel.CrossSection, error) {
	if rootKind != NodeCrossSection {
		return nil, fmt.Errorf("replay failed: root node is not a cross-section")
	}
	cs, err := tables.needCross(rootID)
	if err != nil {
		return nil, fmt.Errorf("replay failed: root cross-section node missing: %w", err)
	}
	return cs, nil
}
