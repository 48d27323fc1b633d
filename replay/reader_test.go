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

func TestReadOpRecordsRoundTrip(t *testing.T) {
	var records []byte
	records = appendOp(records, OpSphere, (&opBuilder{}).u32(0).f64(2.5).u32(16).buf)
	records = appendOp(records, OpCube, (&opBuilder{}).u32(1).f64(1).f64(2).f64(3).u32(1).buf)

	ops, err := ReadOpRecords(records, 2)
	if err != nil {
		t.Fatalf("ReadOpRecords: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(ops))
	}
	if ops[0].Opcode != OpSphere || ops[1].Opcode != OpCube {
		t.Errorf("unexpected opcodes: %v %v", ops[0].Opcode, ops[1].Opcode)
	}
}

func TestReadOpRecordsRejectsCountMismatch(t *testing.T) {
	var records []byte
	records = appendOp(records, OpSphere, (&opBuilder{}).u32(0).f64(1).u32(8).buf)
	if _, err := ReadOpRecords(records, 2); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestReadOpRecordsRejectsTruncatedHeader(t *testing.T) {
	if _, err := ReadOpRecords([]byte{1, 2, 3}, 1); err == nil {
		t.Fatal("expected truncated header error")
	}
}

func TestReadOpRecordsRejectsTruncatedPayload(t *testing.T) {
	var hdr [8]byte
	hdr[0], hdr[1] = 1, 0
	hdr[4], hdr[5], hdr[6], hdr[7] = 16, 0, 0, 0
	if _, err := ReadOpRecords(hdr[:], 1); err == nil {
		t.Fatal("expected truncated payload error")
	}
}

func TestPayloadReaderDetectsTrailingBytes(t *testing.T) {
	r := newPayloadReader((&opBuilder{}).u32(1).u32(2).buf)
	if _, err := r.u32(); err != nil {
		t.Fatalf("u32: %v", err)
	}
	if r.done() {
		t.Fatal("expected more bytes remaining")
	}
	if _, err := r.u32(); err != nil {
		t.Fatalf("u32: %v", err)
	}
	if !r.done() {
		t.Fatal("expected reader exhausted")
	}
}

func TestPayloadReaderRejectsShortReads(t *testing.T) {
	r := newPayloadReader([]byte{1, 2, 3})
	if _, err := r.u32(); err == nil {
		t.Fatal("expected short-read error for u32")
	}
	r2 := newPayloadReader([]byte{1, 2, 3, 4, 5, 6, 7})
	if _, err := r2.f64(); err == nil {
		t.Fatal("expected short-read error for f64")
	}
}
