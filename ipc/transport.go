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
	"bufio"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dc0d/onexit"
	"github.com/google/uuid"
)

// SceneObject is one decoded root object returned by a completed run:
// either a Manifold root or a CrossSection root, identified by the
// object-table's object_id_hash and carrying the root kind and id that
// locate its geometry in the replay tables (spec §6, §3 C7).
type SceneObject struct {
	ObjectIDHash uint64
	Name         string
	RootKind     uint32
	RootID       uint32
}

// SceneResult is everything ExecuteScriptScene decodes out of one
// successful run: the object table plus the raw op-record stream, left
// for the replay package to turn into kernel values.
type SceneResult struct {
	Objects   []SceneObject
	OpRecords []byte
	OpCount   uint32
}

// Transport owns one shared-memory region, one control-socket listener
// and one worker subprocess, mirroring ScriptWorkerClient's lifecycle:
// CreateSharedMemory + CreateSocket + SpawnWorker + AcceptWorker, folded
// into Start; ExecuteScriptScene for one request/response round trip;
// Shutdown to tear everything down, idempotently.
type Transport struct {
	cfg    Config
	log    *Logger
	nextSeq uint64

	mu       sync.Mutex
	started  bool
	shmFile  *os.File
	shmPath  string
	shmData  []byte
	sockPath string
	listener net.Listener
	conn     net.Conn
	cmd      *exec.Cmd
}

// NewTransport builds a Transport that logs to log (may be nil to
// discard events) with cfg.
func NewTransport(cfg Config, log *Logger) *Transport {
	return &Transport{cfg: cfg, log: log, nextSeq: 1}
}

func (t *Transport) logEvent(event string, details string) {
	if t.log == nil {
		return
	}
	t.log.EventDetails(event, t.nextSeq, details)
}

// Start creates the shared-memory region, binds the control socket,
// spawns the worker subprocess and waits for it to connect. Calling
// Start twice is a no-op once started.
func (t *Transport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}

	id := uuid.NewString()
	if err := t.createSharedMemory(id); err != nil {
		return err
	}
	if err := t.createSocket(id); err != nil {
		t.teardownLocked()
		return err
	}
	listener := t.listener
	if err := t.spawnWorker(); err != nil {
		t.teardownLocked()
		return err
	}
	conn, err := t.acceptWorker(listener)
	if err != nil {
		t.teardownLocked()
		return err
	}
	t.conn = conn
	t.started = true
	onexit.Register(func() { t.Shutdown() })
	t.logEvent("start", fmt.Sprintf("shm=%s socket=%s capacity=%s", t.shmPath, t.sockPath, t.cfg.CapacityHuman()))
	return nil
}

func (t *Transport) createSharedMemory(id string) error {
	capacity := t.cfg.CapacityBytes
	if capacity == 0 {
		capacity = DefaultCapacityBytes
	}
	path := filepath.Join(os.TempDir(), "vicad-shm-"+id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return newErr(ErrInternalError, "creating shared memory file: %v", err)
	}
	if err := f.Truncate(int64(capacity)); err != nil {
		f.Close()
		os.Remove(path)
		return newErr(ErrInternalError, "sizing shared memory file: %v", err)
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(capacity), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return newErr(ErrInternalError, "mapping shared memory: %v", err)
	}

	reqOffset := t.cfg.RequestOffset
	if reqOffset == 0 {
		reqOffset = DefaultRequestOffset
	}
	respOffset := t.cfg.ResponseOffset
	if respOffset == 0 {
		respOffset = DefaultResponseOffset
	}
	hdr := &Header{
		Version:        Version,
		CapacityBytes:  capacity,
		RequestOffset:  reqOffset,
		ResponseOffset: respOffset,
		State:          uint32(StateIdle),
		ErrorCode:      uint32(ErrNone),
	}
	copy(hdr.Magic[:], Magic)
	if err := EncodeHeader(data, hdr); err != nil {
		syscall.Munmap(data)
		f.Close()
		os.Remove(path)
		return err
	}

	t.shmFile = f
	t.shmPath = path
	t.shmData = data
	return nil
}

func (t *Transport) createSocket(id string) error {
	path := filepath.Join(os.TempDir(), "vicad-worker-"+id+".sock")
	os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return newErr(ErrInternalError, "binding control socket: %v", err)
	}
	t.sockPath = path
	t.listener = l
	return nil
}

func (t *Transport) spawnWorker() error {
	argv := t.cfg.WorkerCommand
	if len(argv) == 0 {
		return newErr(ErrInvalidRequest, "no worker command configured")
	}
	args := append(append([]string{}, argv[1:]...), "--socket", t.sockPath, "--shm", t.shmPath,
		"--size", fmt.Sprintf("%d", t.cfg.CapacityBytes))
	cmd := exec.Command(argv[0], args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return newErr(ErrInternalError, "spawning worker: %v", err)
	}
	t.cmd = cmd
	return nil
}

func (t *Transport) acceptWorker(l net.Listener) (net.Conn, error) {
	timeout := t.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.Accept()
		ch <- result{c, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, newErr(ErrTimeout, "accepting worker connection: %v", r.err)
		}
		return r.conn, nil
	case <-time.After(timeout):
		return nil, newErr(ErrTimeout, "timed out waiting for worker to connect")
	}
}

// ExecuteScriptScene runs scriptPath on the worker and decodes the
// resulting scene. It starts the transport lazily if Start was not
// already called.
func (t *Transport) ExecuteScriptScene(scriptPath string) (*SceneResult, error) {
	if err := t.Start(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	hdr, err := DecodeHeader(t.shmData)
	if err != nil {
		return nil, err
	}
	if !hdr.ValidMagicVersion() {
		return nil, newErr(ErrInternalError, "shared memory header is invalid")
	}

	reqCap := int(hdr.ResponseOffset) - int(hdr.RequestOffset)
	payload := &RequestPayload{Version: Version, ScriptPath: scriptPath}
	buf, err := payload.Encode(reqCap)
	if err != nil {
		return nil, newErr(ErrEncodeFailure, "%v", err)
	}
	copy(t.shmData[hdr.RequestOffset:], buf)

	seq := t.nextSeq
	t.nextSeq++
	hdr.RequestSeq = seq
	hdr.RequestLength = uint32(len(buf))
	hdr.ResponseLength = 0
	hdr.ErrorCode = uint32(ErrNone)
	hdr.State = uint32(StateRequestReady)
	if err := EncodeHeader(t.shmData, hdr); err != nil {
		return nil, err
	}

	t.logEvent("run", fmt.Sprintf("seq=%d script=%s", seq, scriptPath))

	if _, err := fmt.Fprintf(t.conn, "RUN %d\n", seq); err != nil {
		return nil, newErr(ErrInternalError, "writing control socket: %v", err)
	}

	timeout := t.cfg.ResponseTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	t.conn.SetReadDeadline(time.Now().Add(timeout))
	line, err := bufio.NewReader(t.conn).ReadString('\n')
	if err != nil {
		return nil, newErr(ErrTimeout, "reading worker response: %v", err)
	}
	line = trimNewline(line)

	done := fmt.Sprintf("DONE %d", seq)
	failLine := fmt.Sprintf("ERROR %d", seq)

	hdr, err = DecodeHeader(t.shmData)
	if err != nil {
		return nil, err
	}

	if line == failLine {
		msg, rerr := t.readErrorMessage(hdr)
		if rerr != nil {
			return nil, rerr
		}
		t.logEvent("error", msg)
		return nil, newErr(ErrScriptFailure, "%s", msg)
	}
	if line != done {
		return nil, newErr(ErrInternalError, "unexpected worker response: %s", line)
	}
	if hdr.State != uint32(StateResponseReady) {
		return nil, newErr(ErrInternalError, "worker state is not ResponseReady")
	}
	if hdr.ResponseSeq != seq {
		return nil, newErr(ErrInternalError, "worker sequence mismatch")
	}

	result, err := t.decodeSceneResponse(hdr)
	if err != nil {
		return nil, err
	}
	t.logEvent("done", fmt.Sprintf("seq=%d objects=%d", seq, len(result.Objects)))
	return result, nil
}

func (t *Transport) readErrorMessage(hdr *Header) (string, error) {
	if int(hdr.ResponseOffset)+int(hdr.ResponseLength) > len(t.shmData) {
		return "", newErr(ErrDecodeFailure, "worker error payload is out of bounds")
	}
	payload := t.shmData[hdr.ResponseOffset : hdr.ResponseOffset+hdr.ResponseLength]
	resp, err := DecodeResponseError(payload)
	if err != nil {
		return "", newErr(ErrDecodeFailure, "%v", err)
	}
	if resp.Message == "" {
		return "worker reported an error", nil
	}
	return resp.Message, nil
}

func (t *Transport) decodeSceneResponse(hdr *Header) (*SceneResult, error) {
	if hdr.ResponseLength < responseSceneSize {
		return nil, newErr(ErrDecodeFailure, "worker response payload is too small")
	}
	if int(hdr.ResponseOffset)+int(hdr.ResponseLength) > len(t.shmData) {
		return nil, newErr(ErrDecodeFailure, "worker response payload is out of bounds")
	}
	base := t.shmData[hdr.ResponseOffset:]
	scene, err := DecodeResponseScene(base)
	if err != nil {
		return nil, newErr(ErrDecodeFailure, "%v", err)
	}
	if scene.Version != Version {
		return nil, newErr(ErrDecodeFailure, "worker response version mismatch")
	}

	need := responseSceneSize + int(scene.RecordsSize) + int(scene.ObjectTableSize) + int(scene.DiagnosticsLen)
	if need > int(hdr.ResponseLength) {
		return nil, newErr(ErrDecodeFailure, "worker response payload is truncated")
	}
	recordsPtr := base[responseSceneSize:]
	objectTablePtr := recordsPtr[scene.RecordsSize:]
	namesPtr := objectTablePtr[scene.ObjectTableSize:]

	expectedTableSize := int(scene.ObjectCount) * SceneObjectRecordSize
	if scene.ObjectCount == 0 {
		return nil, newErr(ErrDecodeFailure, "worker returned zero scene objects")
	}
	if int(scene.ObjectTableSize) != expectedTableSize {
		return nil, newErr(ErrDecodeFailure, "worker scene object table size mismatch")
	}

	objects := make([]SceneObject, 0, scene.ObjectCount)
	nameOff := 0
	for i := uint32(0); i < scene.ObjectCount; i++ {
		rec, err := DecodeSceneObjectRecord(objectTablePtr[int(i)*SceneObjectRecordSize:])
		if err != nil {
			return nil, newErr(ErrDecodeFailure, "%v", err)
		}
		if nameOff+int(rec.NameLen) > int(scene.DiagnosticsLen) {
			return nil, newErr(ErrDecodeFailure, "worker scene name blob is truncated")
		}
		name := string(namesPtr[nameOff : nameOff+int(rec.NameLen)])
		nameOff += int(rec.NameLen)
		objects = append(objects, SceneObject{
			ObjectIDHash: rec.ObjectIDHash,
			Name:         name,
			RootKind:     rec.RootKind,
			RootID:       rec.RootID,
		})
	}

	opRecords := make([]byte, scene.RecordsSize)
	copy(opRecords, recordsPtr[:scene.RecordsSize])

	return &SceneResult{
		Objects:   objects,
		OpRecords: opRecords,
		OpCount:   scene.OpCount,
	}, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// Shutdown tells the worker to stop, closes the control socket, sends
// the worker subprocess an interrupt signal (reaping it in the
// background) and unmaps the shared-memory region. Safe to
// call more than once and safe to call from an onexit hook.
func (t *Transport) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.teardownLocked()
}

func (t *Transport) teardownLocked() {
	if t.conn != nil {
		fmt.Fprintf(t.conn, "SHUTDOWN\n")
		t.conn.Close()
		t.conn = nil
	}
	if t.listener != nil {
		t.listener.Close()
		t.listener = nil
	}
	if t.sockPath != "" {
		os.Remove(t.sockPath)
		t.sockPath = ""
	}
	if t.cmd != nil && t.cmd.Process != nil {
		t.cmd.Process.Signal(os.Interrupt)
		go t.cmd.Wait()
		t.cmd = nil
	}
	if t.shmData != nil {
		syscall.Munmap(t.shmData)
		t.shmData = nil
	}
	if t.shmFile != nil {
		t.shmFile.Close()
		t.shmFile = nil
	}
	if t.shmPath != "" {
		os.Remove(t.shmPath)
		t.shmPath = ""
	}
	if t.started {
		t.logEvent("shutdown", "")
	}
	t.started = false
}
