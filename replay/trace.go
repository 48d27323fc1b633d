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

import "fmt"

// TraceEntry is one node's contribution to an operation trace: its
// opcode, output id and the flattened parameter list (floats first,
// then integer params widened to float64) in declaration order.
type TraceEntry struct {
	Opcode OpCode
	Name   string
	OutID  uint32
	Args   []float64
}

func collectTracePostorder(tables *Tables, id uint32, visited map[uint32]bool, order *[]uint32) {
	if int(id) >= len(tables.NodeSemantics) {
		return
	}
	node := tables.NodeSemantics[id]
	if !node.Valid {
		return
	}
	if visited[id] {
		return
	}
	visited[id] = true
	for _, in := range node.Inputs {
		collectTracePostorder(tables, in, visited, order)
	}
	*order = append(*order, id)
}

// BuildOperationTraceForRoot walks the DAG rooted at (rootKind,
// rootID) in dependency order (every input before its consumer) and
// returns one TraceEntry per visited node.
func BuildOperationTraceForRoot(tables *Tables, rootKind NodeKind, rootID uint32) ([]TraceEntry, error) {
	switch rootKind {
	case NodeManifold:
		if int(rootID) >= len(tables.HasManifold) || !tables.HasManifold[rootID] {
			return nil, fmt.Errorf("replay failed: root manifold node missing")
		}
	case NodeCrossSection:
		if int(rootID) >= len(tables.HasCross) || !tables.HasCross[rootID] {
			return nil, fmt.Errorf("replay failed: root cross-section node missing")
		}
	default:
		return nil, fmt.Errorf("replay failed: unsupported root kind for operation trace")
	}

	visited := map[uint32]bool{}
	var order []uint32
	collectTracePostorder(tables, rootID, visited, &order)

	entries := make([]TraceEntry, 0, len(order))
	for _, id := range order {
		node := tables.NodeSemantics[id]
		if !node.Valid {
			continue
		}
		args := make([]float64, 0, len(node.ParamsF64)+len(node.ParamsU32))
		args = append(args, node.ParamsF64...)
		for _, v := range node.ParamsU32 {
			args = append(args, float64(v))
		}
		entries = append(entries, TraceEntry{
			Opcode: node.Opcode,
			Name:   node.Opcode.Name(),
			OutID:  node.OutID,
			Args:   args,
		})
	}
	return entries, nil
}
