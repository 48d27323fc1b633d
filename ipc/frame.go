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

// Package ipc brokers one outstanding script-worker request/response over
// a shared-memory region and a control socket. It owns the bit-exact wire
// layout (this file) and the transport lifecycle (transport.go).
package ipc

import (
	"encoding/binary"
	"fmt"
)

// Magic is the shared-memory header magic string, "VCADIPC1".
const Magic = "VCADIPC1"

// Version is the wire protocol version this package speaks.
const Version uint32 = 3

// HeaderSize is the fixed, packed size of Header on the wire (spec §6).
const HeaderSize = 60

const (
	DefaultCapacityBytes = 100 * 1024 * 1024
	DefaultRequestOffset = 4096
	DefaultResponseOffset = 1024 * 1024
)

// Header mirrors the 60-byte packed shared-memory header. Field order and
// widths are load-bearing: they are the wire contract with the worker.
type Header struct {
	Magic          [8]byte
	Version        uint32
	CapacityBytes  uint32
	RequestSeq     uint64
	ResponseSeq    uint64
	RequestOffset  uint32
	RequestLength  uint32
	ResponseOffset uint32
	ResponseLength uint32
	State          uint32
	ErrorCode      uint32
	Reserved       uint32
}

// EncodeHeader writes h into buf[0:HeaderSize]. buf must have at least
// HeaderSize bytes.
func EncodeHeader(buf []byte, h *Header) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("vicad ipc: header buffer too small: %d < %d", len(buf), HeaderSize)
	}
	copy(buf[0:8], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	binary.LittleEndian.PutUint32(buf[12:16], h.CapacityBytes)
	binary.LittleEndian.PutUint64(buf[16:24], h.RequestSeq)
	binary.LittleEndian.PutUint64(buf[24:32], h.ResponseSeq)
	binary.LittleEndian.PutUint32(buf[32:36], h.RequestOffset)
	binary.LittleEndian.PutUint32(buf[36:40], h.RequestLength)
	binary.LittleEndian.PutUint32(buf[40:44], h.ResponseOffset)
	binary.LittleEndian.PutUint32(buf[44:48], h.ResponseLength)
	binary.LittleEndian.PutUint32(buf[48:52], h.State)
	binary.LittleEndian.PutUint32(buf[52:56], h.ErrorCode)
	binary.LittleEndian.PutUint32(buf[56:60], h.Reserved)
	return nil
}

// DecodeHeader reads a Header from buf[0:HeaderSize].
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("vicad ipc: header buffer too small: %d < %d", len(buf), HeaderSize)
	}
	h := &Header{}
	copy(h.Magic[:], buf[0:8])
	h.Version = binary.LittleEndian.Uint32(buf[8:12])
	h.CapacityBytes = binary.LittleEndian.Uint32(buf[12:16])
	h.RequestSeq = binary.LittleEndian.Uint64(buf[16:24])
	h.ResponseSeq = binary.LittleEndian.Uint64(buf[24:32])
	h.RequestOffset = binary.LittleEndian.Uint32(buf[32:36])
	h.RequestLength = binary.LittleEndian.Uint32(buf[36:40])
	h.ResponseOffset = binary.LittleEndian.Uint32(buf[40:44])
	h.ResponseLength = binary.LittleEndian.Uint32(buf[44:48])
	h.State = binary.LittleEndian.Uint32(buf[48:52])
	h.ErrorCode = binary.LittleEndian.Uint32(buf[52:56])
	h.Reserved = binary.LittleEndian.Uint32(buf[56:60])
	return h, nil
}

// ValidMagicVersion reports whether h carries the expected magic and
// version; transport errors stop here before anything is dereferenced.
func (h *Header) ValidMagicVersion() bool {
	return string(h.Magic[:]) == Magic && h.Version == Version
}

// RequestPayload is the encoding at request_offset: version, path length,
// raw path bytes.
type RequestPayload struct {
	Version      uint32
	ScriptPath   string
}

const requestPayloadFixedSize = 8 // version(4) + script_path_len(4)

// Encode serializes p. Returns an error if the encoded payload would not
// fit in capacity bytes.
func (p *RequestPayload) Encode(capacity int) ([]byte, error) {
	need := requestPayloadFixedSize + len(p.ScriptPath)
	if need > capacity {
		return nil, fmt.Errorf("vicad ipc: script path too long for request buffer: %d > %d", need, capacity)
	}
	buf := make([]byte, need)
	binary.LittleEndian.PutUint32(buf[0:4], p.Version)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(p.ScriptPath)))
	copy(buf[8:], p.ScriptPath)
	return buf, nil
}

// DecodeRequestPayload parses a RequestPayload out of buf.
func DecodeRequestPayload(buf []byte) (*RequestPayload, error) {
	if len(buf) < requestPayloadFixedSize {
		return nil, fmt.Errorf("vicad ipc: request payload truncated")
	}
	version := binary.LittleEndian.Uint32(buf[0:4])
	pathLen := binary.LittleEndian.Uint32(buf[4:8])
	if requestPayloadFixedSize+int(pathLen) > len(buf) {
		return nil, fmt.Errorf("vicad ipc: request payload path length out of bounds")
	}
	path := string(buf[8 : 8+int(pathLen)])
	return &RequestPayload{Version: version, ScriptPath: path}, nil
}

// ResponseScene is the decoded header of a successful ResponsePayloadScene
// (spec §6); the variable-length records/object-table/name-blob sections
// that follow it are handled by the replay and transport packages.
type ResponseScene struct {
	Version          uint32
	ObjectCount      uint32
	OpCount          uint32
	RecordsSize      uint32
	DiagnosticsLen   uint32
	ObjectTableSize  uint32
}

const responseSceneSize = 24

// Encode serializes the fixed scene-response header.
func (r *ResponseScene) Encode() []byte {
	buf := make([]byte, responseSceneSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.Version)
	binary.LittleEndian.PutUint32(buf[4:8], r.ObjectCount)
	binary.LittleEndian.PutUint32(buf[8:12], r.OpCount)
	binary.LittleEndian.PutUint32(buf[12:16], r.RecordsSize)
	binary.LittleEndian.PutUint32(buf[16:20], r.DiagnosticsLen)
	binary.LittleEndian.PutUint32(buf[20:24], r.ObjectTableSize)
	return buf
}

// DecodeResponseScene parses the fixed header of ResponsePayloadScene.
func DecodeResponseScene(buf []byte) (*ResponseScene, error) {
	if len(buf) < responseSceneSize {
		return nil, fmt.Errorf("vicad ipc: scene response header truncated")
	}
	return &ResponseScene{
		Version:         binary.LittleEndian.Uint32(buf[0:4]),
		ObjectCount:     binary.LittleEndian.Uint32(buf[4:8]),
		OpCount:         binary.LittleEndian.Uint32(buf[8:12]),
		RecordsSize:     binary.LittleEndian.Uint32(buf[12:16]),
		DiagnosticsLen:  binary.LittleEndian.Uint32(buf[16:20]),
		ObjectTableSize: binary.LittleEndian.Uint32(buf[20:24]),
	}, nil
}

// SceneObjectRecord is the 24-byte per-object record in the object table.
type SceneObjectRecord struct {
	ObjectIDHash uint64
	RootKind     uint32
	RootID       uint32
	NameLen      uint32
	Reserved     uint32
}

const SceneObjectRecordSize = 24

func (r *SceneObjectRecord) Encode() []byte {
	buf := make([]byte, SceneObjectRecordSize)
	binary.LittleEndian.PutUint64(buf[0:8], r.ObjectIDHash)
	binary.LittleEndian.PutUint32(buf[8:12], r.RootKind)
	binary.LittleEndian.PutUint32(buf[12:16], r.RootID)
	binary.LittleEndian.PutUint32(buf[16:20], r.NameLen)
	binary.LittleEndian.PutUint32(buf[20:24], r.Reserved)
	return buf
}

func DecodeSceneObjectRecord(buf []byte) (*SceneObjectRecord, error) {
	if len(buf) < SceneObjectRecordSize {
		return nil, fmt.Errorf("vicad ipc: scene object record truncated")
	}
	return &SceneObjectRecord{
		ObjectIDHash: binary.LittleEndian.Uint64(buf[0:8]),
		RootKind:     binary.LittleEndian.Uint32(buf[8:12]),
		RootID:       binary.LittleEndian.Uint32(buf[12:16]),
		NameLen:      binary.LittleEndian.Uint32(buf[16:20]),
		Reserved:     binary.LittleEndian.Uint32(buf[20:24]),
	}, nil
}

// ResponseError is ResponsePayloadError's fixed header (spec §6); File,
// Stack and Message follow it in the wire stream as raw UTF-8 bytes.
type ResponseError struct {
	Version    uint32
	ErrorCode  uint32
	Phase      uint32
	Line       uint32
	Column     uint32
	RunID      uint64
	DurationMs uint32
	FileLen    uint32
	StackLen   uint32
	MessageLen uint32
	File       string
	Stack      string
	Message    string
}

const responseErrorFixedSize = 40

func DecodeResponseError(buf []byte) (*ResponseError, error) {
	if len(buf) < responseErrorFixedSize {
		return nil, fmt.Errorf("vicad ipc: error response truncated")
	}
	r := &ResponseError{
		Version:    binary.LittleEndian.Uint32(buf[0:4]),
		ErrorCode:  binary.LittleEndian.Uint32(buf[4:8]),
		Phase:      binary.LittleEndian.Uint32(buf[8:12]),
		Line:       binary.LittleEndian.Uint32(buf[12:16]),
		Column:     binary.LittleEndian.Uint32(buf[16:20]),
		RunID:      binary.LittleEndian.Uint64(buf[20:28]),
		DurationMs: binary.LittleEndian.Uint32(buf[28:32]),
		FileLen:    binary.LittleEndian.Uint32(buf[32:36]),
		StackLen:   binary.LittleEndian.Uint32(buf[36:40]),
	}
	// MessageLen sits right after StackLen in the prototype's field list.
	// The nine fields above end at offset 40, which is what
	// responseErrorFixedSize covers; MessageLen is the tenth field, read
	// from bytes 40..44, so the variable sections start at offset 44.
	if len(buf) < responseErrorFixedSize+4 {
		return nil, fmt.Errorf("vicad ipc: error response truncated")
	}
	r.MessageLen = binary.LittleEndian.Uint32(buf[40:44])
	off := 44
	need := off + int(r.FileLen) + int(r.StackLen) + int(r.MessageLen)
	if need > len(buf) {
		return nil, fmt.Errorf("vicad ipc: error response variable section truncated")
	}
	r.File = string(buf[off : off+int(r.FileLen)])
	off += int(r.FileLen)
	r.Stack = string(buf[off : off+int(r.StackLen)])
	off += int(r.StackLen)
	r.Message = string(buf[off : off+int(r.MessageLen)])
	return r, nil
}

// OpRecordHeader is the 8-byte header preceding every op record payload.
type OpRecordHeader struct {
	Opcode     uint16
	Flags      uint16
	PayloadLen uint32
}

const OpRecordHeaderSize = 8

func DecodeOpRecordHeader(buf []byte) (*OpRecordHeader, error) {
	if len(buf) < OpRecordHeaderSize {
		return nil, fmt.Errorf("vicad ipc: op record header truncated")
	}
	return &OpRecordHeader{
		Opcode:     binary.LittleEndian.Uint16(buf[0:2]),
		Flags:      binary.LittleEndian.Uint16(buf[2:4]),
		PayloadLen: binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

func (h *OpRecordHeader) Encode() []byte {
	buf := make([]byte, OpRecordHeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.Opcode)
	binary.LittleEndian.PutUint16(buf[2:4], h.Flags)
	binary.LittleEndian.PutUint32(buf[4:8], h.PayloadLen)
	return buf
}
