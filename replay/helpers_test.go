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
	"encoding/binary"
	"math"
)

// opBuilder accumulates raw field bytes for one op payload.
type opBuilder struct {
	buf []byte
}

func (b *opBuilder) u32(v uint32) *opBuilder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

func (b *opBuilder) f64(v float64) *opBuilder {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	b.buf = append(b.buf, tmp[:]...)
	return b
}

// appendOp appends one full op-record (header + payload) to records.
func appendOp(records []byte, opcode OpCode, payload []byte) []byte {
	var hdr [8]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(opcode))
	binary.LittleEndian.PutUint16(hdr[2:4], 0)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(payload)))
	records = append(records, hdr[:]...)
	records = append(records, payload...)
	return records
}
