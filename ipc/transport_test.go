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
package ipc

import (
	"bytes"
	"testing"
)

func TestConfigCapacityRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg, err := cfg.WithCapacity("8MiB")
	if err != nil {
		t.Fatalf("WithCapacity: %v", err)
	}
	if cfg.CapacityBytes != 8*1024*1024 {
		t.Fatalf("got %d bytes, want 8MiB", cfg.CapacityBytes)
	}
	if cfg.CapacityHuman() == "" {
		t.Fatalf("CapacityHuman returned empty string")
	}
}

func TestConfigCapacityRejectsUnparseableSize(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := cfg.WithCapacity("not-a-size"); err == nil {
		t.Fatalf("expected error for unparseable capacity")
	}
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderSize)
	h := &Header{
		Version:        Version,
		CapacityBytes:  1024,
		RequestSeq:     7,
		ResponseSeq:    7,
		RequestOffset:  64,
		RequestLength:  16,
		ResponseOffset: 512,
		ResponseLength: 32,
		State:          uint32(StateResponseReady),
		ErrorCode:      uint32(ErrNone),
	}
	copy(h.Magic[:], Magic)
	if err := EncodeHeader(buf, h); err != nil {
		t.Fatalf("EncodeHeader: %v", err)
	}
	got, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if !got.ValidMagicVersion() {
		t.Fatalf("decoded header failed magic/version check")
	}
	if got.RequestSeq != 7 || got.ResponseOffset != 512 || got.State != uint32(StateResponseReady) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestHeaderRejectsShortBuffer(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, HeaderSize-1)); err == nil {
		t.Fatalf("expected error decoding short header buffer")
	}
	if err := EncodeHeader(make([]byte, HeaderSize-1), &Header{}); err == nil {
		t.Fatalf("expected error encoding into short header buffer")
	}
}

func TestRequestPayloadRoundTrip(t *testing.T) {
	p := &RequestPayload{Version: Version, ScriptPath: "/scripts/bracket.ts"}
	buf, err := p.Encode(4096)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeRequestPayload(buf)
	if err != nil {
		t.Fatalf("DecodeRequestPayload: %v", err)
	}
	if got.ScriptPath != p.ScriptPath || got.Version != p.Version {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestRequestPayloadRejectsOversizePath(t *testing.T) {
	p := &RequestPayload{Version: Version, ScriptPath: "too-long-for-this-buffer"}
	if _, err := p.Encode(4); err == nil {
		t.Fatalf("expected error for oversize path")
	}
}

func TestSceneObjectRecordRoundTrip(t *testing.T) {
	r := &SceneObjectRecord{ObjectIDHash: 0xdeadbeef, RootKind: 1, RootID: 3, NameLen: 5}
	buf := r.Encode()
	got, err := DecodeSceneObjectRecord(buf)
	if err != nil {
		t.Fatalf("DecodeSceneObjectRecord: %v", err)
	}
	if *got != *r {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, r)
	}
}

func TestOpRecordHeaderRoundTrip(t *testing.T) {
	h := &OpRecordHeader{Opcode: 1, Flags: 0, PayloadLen: 12}
	buf := h.Encode()
	got, err := DecodeOpRecordHeader(buf)
	if err != nil {
		t.Fatalf("DecodeOpRecordHeader: %v", err)
	}
	if *got != *h {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, h)
	}
}

func TestLoggerEscapesControlCharacters(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf)
	log.EventDetails("error", 42, "line one\nline \"two\"\ttabbed")
	line := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte(`"event":"error"`)) {
		t.Fatalf("missing event field: %s", line)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"run_id":42`)) {
		t.Fatalf("missing run_id field: %s", line)
	}
	if bytes.ContainsRune(buf.Bytes()[:len(buf.Bytes())-1], '\n') {
		t.Fatalf("unescaped newline leaked into log line: %q", line)
	}
}

func TestTransportShutdownIdempotent(t *testing.T) {
	tr := NewTransport(DefaultConfig(), nil)
	tr.Shutdown()
	tr.Shutdown()
}

func TestTransportStartWithoutWorkerCommandFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerCommand = nil
	tr := NewTransport(cfg, nil)
	defer tr.Shutdown()
	if err := tr.Start(); err == nil {
		t.Fatalf("expected error starting transport with no worker command")
	}
}
