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

// SketchPrimitiveKind classifies the logical shape a cross-section's
// semantic chain lifts back to, for dimension display.
type SketchPrimitiveKind uint32

const (
	PrimitiveUnknown SketchPrimitiveKind = iota
	PrimitiveCircle
	PrimitiveRect
	PrimitiveRegularPolygon
	PrimitiveIrregularPolygon
	PrimitivePoint
)

func (k SketchPrimitiveKind) String() string {
	switch k {
	case PrimitiveCircle:
		return "Circle"
	case PrimitiveRect:
		return "Rect"
	case PrimitiveRegularPolygon:
		return "RegularPolygon"
	case PrimitiveIrregularPolygon:
		return "IrregularPolygon"
	case PrimitivePoint:
		return "Point"
	default:
		return "Unknown"
	}
}

// LineDim is one edge-length dimension entity.
type LineDim struct {
	A, B  kernel.Vec2
	Value float64
}

// SketchDimensionModel is the lifted, editable-dimension view of a
// cross-section's construction chain: what primitive it logically is,
// its anchor and size, and one LineDim entity per dimensionable edge.
type SketchDimensionModel struct {
	Primitive SketchPrimitiveKind
	Vertices  []kernel.Vec2
	Anchor    kernel.Vec2

	HasRectSize bool
	RectWidth   float64
	RectHeight  float64

	HasCircleRadius bool
	CircleRadius    float64

	HasFillet    bool
	FilletRadius float64

	// CornerFillets holds one radius per vertex for CrossFilletCorners
	// chains (0 meaning no fillet at that corner); nil otherwise.
	CornerFillets []float64

	RegularPolygon bool
	PolygonSides   uint32

	Entities []LineDim
}

type evalResult struct {
	ok            bool
	fallbackOnly  bool
	vertices      []kernel.Vec2
	anchor        kernel.Vec2
	primitive     SketchPrimitiveKind
	hasRectSize   bool
	rectW, rectH  float64
	hasCircle     bool
	circleR       float64
	hasFillet     bool
	filletRadius  float64
	cornerFillets []float64
}

func edgeLen(a, b kernel.Vec2) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func polygonArea(poly []kernel.Vec2) float64 {
	if len(poly) < 3 {
		return 0
	}
	var acc float64
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		acc += a.X*b.Y - b.X*a.Y
	}
	return 0.5 * acc
}

// classifyRegularPolygon reports whether poly's edge lengths and
// center-radii vary by no more than 2.5%, the prototype's regular-
// polygon tolerance.
func classifyRegularPolygon(poly []kernel.Vec2) bool {
	if len(poly) < 3 {
		return false
	}
	var cx, cy float64
	for _, p := range poly {
		cx += p.X
		cy += p.Y
	}
	center := kernel.Vec2{X: cx / float64(len(poly)), Y: cy / float64(len(poly))}

	edgeMin, edgeMax := math.Inf(1), math.Inf(-1)
	radMin, radMax := math.Inf(1), math.Inf(-1)
	for i, p := range poly {
		e := edgeLen(p, poly[(i+1)%len(poly)])
		rad := edgeLen(p, center)
		edgeMin, edgeMax = math.Min(edgeMin, e), math.Max(edgeMax, e)
		radMin, radMax = math.Min(radMin, rad), math.Max(radMax, rad)
	}
	if edgeMax <= 1e-9 || radMax <= 1e-9 {
		return false
	}
	if (edgeMax-edgeMin)/edgeMax > 0.025 {
		return false
	}
	if (radMax-radMin)/radMax > 0.025 {
		return false
	}
	return true
}

func rectangleVertices(w, h float64, centered bool) []kernel.Vec2 {
	x0, y0 := 0.0, 0.0
	if centered {
		x0, y0 = -w*0.5, -h*0.5
	}
	x1, y1 := x0+w, y0+h
	return []kernel.Vec2{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func applyTranslation(vertices []kernel.Vec2, anchor kernel.Vec2, dx, dy float64) ([]kernel.Vec2, kernel.Vec2) {
	out := make([]kernel.Vec2, len(vertices))
	for i, p := range vertices {
		out[i] = kernel.Vec2{X: p.X + dx, Y: p.Y + dy}
	}
	return out, kernel.Vec2{X: anchor.X + dx, Y: anchor.Y + dy}
}

func applyRotation(vertices []kernel.Vec2, anchor kernel.Vec2, degrees float64) ([]kernel.Vec2, kernel.Vec2) {
	rad := degrees * math.Pi / 180
	cosT, sinT := math.Cos(rad), math.Sin(rad)
	rotate := func(p kernel.Vec2) kernel.Vec2 {
		return kernel.Vec2{X: cosT*p.X - sinT*p.Y, Y: sinT*p.X + cosT*p.Y}
	}
	out := make([]kernel.Vec2, len(vertices))
	for i, p := range vertices {
		out[i] = rotate(p)
	}
	return out, rotate(anchor)
}

func evalSketchNode(tables *Tables, id uint32, visiting map[uint32]bool) (evalResult, error) {
	if int(id) >= len(tables.NodeSemantics) || !tables.NodeSemantics[id].Valid {
		return evalResult{}, fmt.Errorf("replay failed: missing semantic node %d", id)
	}
	if visiting[id] {
		return evalResult{}, fmt.Errorf("replay failed: cyclic semantic node graph")
	}
	node := tables.NodeSemantics[id]
	visiting[id] = true
	defer delete(visiting, id)

	var res evalResult

	switch node.Opcode {
	case OpCrossRect, OpCrossSquare:
		if len(node.ParamsF64) < 2 || len(node.ParamsU32) < 1 {
			return res, fmt.Errorf("replay failed: malformed rect semantic node")
		}
		w := math.Abs(node.ParamsF64[0])
		h := math.Abs(node.ParamsF64[1])
		centered := node.ParamsU32[0] != 0
		res.ok = true
		res.primitive = PrimitiveRect
		res.vertices = rectangleVertices(w, h, centered)
		res.hasRectSize = true
		res.rectW, res.rectH = w, h
		if centered {
			res.anchor = kernel.Vec2{}
		} else {
			res.anchor = kernel.Vec2{X: w * 0.5, Y: h * 0.5}
		}

	case OpCrossPlane:
		if len(node.ParamsF64) < 1 {
			return res, fmt.Errorf("replay failed: malformed plane semantic node")
		}
		half := math.Abs(node.ParamsF64[0])
		res.ok = true
		res.primitive = PrimitiveRect
		res.vertices = rectangleVertices(half*2, half*2, true)
		res.hasRectSize = true
		res.rectW, res.rectH = half*2, half*2
		res.anchor = kernel.Vec2{}

	case OpCrossPolygons:
		if !node.HasPolygons || len(node.Polygons) == 0 {
			return res, fmt.Errorf("replay failed: malformed cross polygon semantic node")
		}
		bestIdx := -1
		bestArea := -1.0
		for i, poly := range node.Polygons {
			a := math.Abs(polygonArea(poly))
			if a > bestArea {
				bestArea = a
				bestIdx = i
			}
		}
		if bestIdx < 0 || len(node.Polygons[bestIdx]) < 3 {
			return res, fmt.Errorf("replay failed: missing polygon shell for sketch dimensions")
		}
		best := node.Polygons[bestIdx]
		res.ok = true
		res.vertices = append([]kernel.Vec2{}, best...)
		var cx, cy float64
		for _, p := range res.vertices {
			cx += p.X
			cy += p.Y
		}
		res.anchor = kernel.Vec2{X: cx / float64(len(res.vertices)), Y: cy / float64(len(res.vertices))}
		if classifyRegularPolygon(res.vertices) {
			res.primitive = PrimitiveRegularPolygon
		} else {
			res.primitive = PrimitiveIrregularPolygon
		}

	case OpCrossCircle:
		if len(node.ParamsF64) < 1 {
			return res, fmt.Errorf("replay failed: malformed circle semantic node")
		}
		res.ok = true
		res.primitive = PrimitiveCircle
		res.hasCircle = true
		res.circleR = math.Abs(node.ParamsF64[0])

	case OpCrossPoint:
		if len(node.ParamsF64) < 3 {
			return res, fmt.Errorf("replay failed: malformed point semantic node")
		}
		res.ok = true
		res.primitive = PrimitivePoint
		res.anchor = kernel.Vec2{X: node.ParamsF64[0], Y: node.ParamsF64[1]}
		res.hasCircle = true
		res.circleR = math.Abs(node.ParamsF64[2])

	case OpCrossTranslate, OpCrossRotate, OpCrossFillet, OpCrossOffsetClone, OpCrossFilletCorners:
		if len(node.Inputs) == 0 {
			return res, fmt.Errorf("replay failed: malformed cross transform semantic node")
		}
		base, err := evalSketchNode(tables, node.Inputs[0], visiting)
		if err != nil {
			return res, err
		}
		res = base

		switch node.Opcode {
		case OpCrossTranslate:
			if len(node.ParamsF64) < 2 {
				return res, fmt.Errorf("replay failed: malformed cross translate semantic node")
			}
			res.vertices, res.anchor = applyTranslation(res.vertices, res.anchor, node.ParamsF64[0], node.ParamsF64[1])
		case OpCrossRotate:
			if len(node.ParamsF64) < 1 {
				return res, fmt.Errorf("replay failed: malformed cross rotate semantic node")
			}
			res.vertices, res.anchor = applyRotation(res.vertices, res.anchor, node.ParamsF64[0])
		case OpCrossFillet:
			if len(node.ParamsF64) < 1 {
				return res, fmt.Errorf("replay failed: malformed cross fillet semantic node")
			}
			res.hasFillet = true
			res.filletRadius = math.Abs(node.ParamsF64[0])
		case OpCrossFilletCorners:
			radii := make([]float64, len(node.ParamsF64))
			for i, v := range node.ParamsF64 {
				radii[i] = math.Abs(v)
			}
			res.cornerFillets = radii
		default:
			res.fallbackOnly = true
		}

	default:
		res.fallbackOnly = true
		res.ok = true
	}

	return res, nil
}

// BuildSketchDimensionModelForRoot lifts the cross-section rooted at
// rootID into an editable SketchDimensionModel. Chains that contain an
// opcode with no semantic meaning (any CrossOffsetClone, whatever its
// base, or an opcode the lifter doesn't model) return an error: callers
// fall back to the raw contour in that case.
func BuildSketchDimensionModelForRoot(tables *Tables, rootID uint32) (*SketchDimensionModel, error) {
	if int(rootID) >= len(tables.HasCross) || !tables.HasCross[rootID] {
		return nil, fmt.Errorf("replay failed: root cross-section node missing")
	}

	visiting := map[uint32]bool{}
	node, err := evalSketchNode(tables, rootID, visiting)
	if err != nil {
		return nil, err
	}
	if node.fallbackOnly {
		return nil, fmt.Errorf("sketch semantic model requires contour fallback for this operation chain")
	}

	model := &SketchDimensionModel{
		Primitive:       node.primitive,
		Vertices:        node.vertices,
		Anchor:          node.anchor,
		HasRectSize:     node.hasRectSize,
		RectWidth:       node.rectW,
		RectHeight:      node.rectH,
		HasCircleRadius: node.hasCircle,
		CircleRadius:    node.circleR,
		HasFillet:       node.hasFillet,
		FilletRadius:    node.filletRadius,
		CornerFillets:   node.cornerFillets,
	}

	switch {
	case node.primitive == PrimitiveRect && len(node.vertices) == 4:
		wValue := node.rectW
		if !node.hasRectSize {
			wValue = edgeLen(node.vertices[0], node.vertices[1])
		}
		hValue := node.rectH
		if !node.hasRectSize {
			hValue = edgeLen(node.vertices[1], node.vertices[2])
		}
		model.Entities = append(model.Entities,
			LineDim{A: node.vertices[0], B: node.vertices[1], Value: wValue},
			LineDim{A: node.vertices[1], B: node.vertices[2], Value: hValue},
		)
	case node.primitive == PrimitiveIrregularPolygon || node.primitive == PrimitiveRegularPolygon:
		model.PolygonSides = uint32(len(node.vertices))
		model.RegularPolygon = node.primitive == PrimitiveRegularPolygon
		for i := range node.vertices {
			a, b := node.vertices[i], node.vertices[(i+1)%len(node.vertices)]
			model.Entities = append(model.Entities, LineDim{A: a, B: b, Value: edgeLen(a, b)})
		}
	}

	return model, nil
}
