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
	"fmt"
	"math"
)

// OpRecord is one decoded op-record: an opcode plus its raw payload
// bytes, with out_id still at the front of Payload (every payload in
// the catalogue begins with a uint32 output node id).
type OpRecord struct {
	Opcode  OpCode
	Payload []byte
}

// ReadOpRecords splits the flat op-record byte stream into one
// OpRecord per entry, failing on truncated headers/payloads or a
// parsed-count mismatch against expectedCount.
func ReadOpRecords(records []byte, expectedCount uint32) ([]OpRecord, error) {
	var out []OpRecord
	off := 0
	var parsed uint32
	for off < len(records) {
		if off+8 > len(records) {
			return nil, fmt.Errorf("replay: truncated op header at offset %d", off)
		}
		opcode := binary.LittleEndian.Uint16(records[off : off+2])
		payloadLen := binary.LittleEndian.Uint32(records[off+4 : off+8])
		off += 8
		if off+int(payloadLen) > len(records) {
			return nil, fmt.Errorf("replay: truncated op payload at offset %d", off)
		}
		out = append(out, OpRecord{
			Opcode:  OpCode(opcode),
			Payload: records[off : off+int(payloadLen)],
		})
		off += int(payloadLen)
		parsed++
	}
	if parsed != expectedCount {
		return nil, fmt.Errorf("replay: op count mismatch: parsed %d, expected %d", parsed, expectedCount)
	}
	return out, nil
}

// payloadReader walks a fixed byte slice, matching the prototype's
// Reader helper: every read fails cleanly past the end instead of
// panicking, and trailing bytes after the last field are a decode
// error the caller must check for.
type payloadReader struct {
	buf []byte
	off int
}

func newPayloadReader(buf []byte) *payloadReader {
	return &payloadReader{buf: buf}
}

func (r *payloadReader) u32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, fmt.Errorf("replay: payload truncated reading uint32 at offset %d", r.off)
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *payloadReader) f64() (float64, error) {
	if r.off+8 > len(r.buf) {
		return 0, fmt.Errorf("replay: payload truncated reading float64 at offset %d", r.off)
	}
	bits := binary.LittleEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return math.Float64frombits(bits), nil
}

func (r *payloadReader) done() bool { return r.off == len(r.buf) }
