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

// Package scene drives the worker through the ipc/replay packages, caches
// the merged mesh and scene bounds a session shows, and produces 3MF
// export artifacts (spec §4.5 C7).
package scene

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/launix-de/vicad/ipc"
	"github.com/launix-de/vicad/kernel"
	"github.com/launix-de/vicad/mesh"
	"github.com/launix-de/vicad/replay"
)

// Transport is the subset of ipc.Transport a Session needs, narrowed to
// an interface so tests can substitute a fake worker.
type Transport interface {
	ExecuteScriptScene(scriptPath string) (*ipc.SceneResult, error)
}

// MeshExporter is the mesh-I/O collaborator Export3mf delegates to
// (out of scope per spec.md §1: file format and writer are assumed to
// be provided by the host).
type MeshExporter interface {
	WriteManifold(path string, m kernel.Mesh) error
}

// ObjectEntry is one cached scene object: the structural identity from
// the wire object table plus the geometry resolved against it.
type ObjectEntry struct {
	Hash      uint64
	Name      string
	RootKind  replay.NodeKind
	RootID    uint32
	Mesh      kernel.Mesh
	Contours  []kernel.Polygon
	BoundsMin kernel.Vec3
	BoundsMax kernel.Vec3
	HasBounds bool
}

func lessByHash(a, b ObjectEntry) bool { return a.Hash < b.Hash }

// Session owns one script's worker-driven geometry state: the last
// observed mtime, the cached merged mesh, cached scene objects indexed
// by id hash, cached bounds, and a startup-failure sentinel (spec §3
// "Scene session cached state").
type Session struct {
	mu sync.Mutex

	scriptPath string
	transport  Transport
	kernel     kernel.Kernel
	exporter   MeshExporter
	quiet      bool

	loadedOnce    bool
	lastModTime   time.Time
	startupFailed bool
	lastErr       error

	tables     replay.Tables
	objects    *btree.BTreeG[ObjectEntry]
	mergedMesh kernel.Mesh
	hasMerged  bool
	boundsMin  kernel.Vec3
	boundsMax  kernel.Vec3
	hasBounds  bool
}

// NewSession builds a Session for scriptPath, driving transport with k
// as the geometry kernel and writing exports through exporter. Reload
// and export results are reported as plain status lines on os.Stderr
// unless quiet is set.
func NewSession(scriptPath string, transport Transport, k kernel.Kernel, exporter MeshExporter, quiet bool) *Session {
	return &Session{
		scriptPath: scriptPath,
		transport:  transport,
		kernel:     k,
		exporter:   exporter,
		quiet:      quiet,
		objects:    btree.NewG[ObjectEntry](8, lessByHash),
	}
}

func (s *Session) statusf(format string, args ...interface{}) {
	if s.quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "vicad: "+format+"\n", args...)
}

// StartupFailed reports whether the worker could never complete a
// round trip, so callers can stop retrying.
func (s *Session) StartupFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startupFailed
}

// LastError is the diagnostic from the most recent failed reload, nil
// if the last reload succeeded. Export3mf returns its errors directly
// and does not set it.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// MergedMesh returns the cached merged mesh, ok false if no scene has
// ever resolved successfully.
func (s *Session) MergedMesh() (kernel.Mesh, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergedMesh, s.hasMerged
}

// Bounds returns the cached combined scene bounds.
func (s *Session) Bounds() (min, max kernel.Vec3, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundsMin, s.boundsMax, s.hasBounds
}

// Objects returns a snapshot of the cached scene objects, ordered by
// id hash.
func (s *Session) Objects() []ObjectEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ObjectEntry, 0, s.objects.Len())
	s.objects.Ascend(func(e ObjectEntry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// ObjectByHash looks up one cached object by its stable id hash.
func (s *Session) ObjectByHash(hash uint64) (ObjectEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects.Get(ObjectEntry{Hash: hash})
}

// Tables exposes the replay tables from the last successful reload, for
// callers that want the semantic lifter or operation trace over the
// current scene.
func (s *Session) Tables() *replay.Tables {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &s.tables
}

// ReloadIfChanged polls scriptPath's modification time. If the file is
// unchanged since the last successful load, it returns (false, nil)
// without doing any work; a missing or unreadable file is returned as
// an error and the prior cache is kept. On change it drives the worker
// at profile, replays the response, merges manifold objects and
// recomputes cached bounds. A transient I/O or transport failure keeps
// the prior cache and is surfaced as an error (spec §7 "I/O faults").
func (s *Session) ReloadIfChanged(profile replay.LodProfile) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.scriptPath)
	if err != nil {
		s.lastErr = fmt.Errorf("scene: reading script %s: %w", s.scriptPath, err)
		return false, s.lastErr
	}
	if s.loadedOnce && !info.ModTime().After(s.lastModTime) {
		return false, nil
	}

	tables, manifolds, entries, err := s.runAtProfile(profile)
	if err != nil {
		if !s.loadedOnce {
			s.startupFailed = true
		}
		s.lastErr = err
		return false, err
	}

	merged, mergedOK, err := s.mergeManifolds(manifolds)
	if err != nil {
		s.lastErr = err
		return false, err
	}

	min, max, hasBounds := computeSceneBounds(merged, mergedOK, entries)

	s.objects = btree.NewG[ObjectEntry](8, lessByHash)
	for i := range entries {
		entries[i].BoundsMin, entries[i].BoundsMax, entries[i].HasBounds = objectBounds(entries[i])
		s.objects.ReplaceOrInsert(entries[i])
	}
	s.tables = *tables
	s.mergedMesh, s.hasMerged = merged, mergedOK
	s.boundsMin, s.boundsMax, s.hasBounds = min, max, hasBounds
	s.lastModTime = info.ModTime()
	s.loadedOnce = true
	s.startupFailed = false
	s.lastErr = nil
	s.statusf("reloaded %s (%d objects)", s.scriptPath, len(entries))
	return true, nil
}

// Poll is ReloadIfChanged's literal stat-polling contract, exposed for
// callers (e.g. a headless reload loop) that don't want to run the
// fsnotify-backed Watcher.
func (s *Session) Poll(profile replay.LodProfile) (bool, error) {
	return s.ReloadIfChanged(profile)
}

// runAtProfile runs one full worker round trip and replay pass at
// profile without touching Session's committed cache, so Export3mf can
// reuse it without corrupting ReloadIfChanged's state.
func (s *Session) runAtProfile(profile replay.LodProfile) (tables_ *replay.Tables, manifolds_ []kernel.Manifold, entries_ []ObjectEntry, err error) {
	// m.Mesh()/cs.ToPolygons() below call back into the host-injected
	// kernel, which may panic on malformed geometry; recover at this
	// boundary the same way ReplayOpsToTables does (spec §7, §9).
	defer func() {
		if r := recover(); r != nil {
			tables_, manifolds_, entries_ = nil, nil, nil
			err = fmt.Errorf("scene: kernel panic: %v", r)
		}
	}()

	result, err := s.transport.ExecuteScriptScene(s.scriptPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("scene: running script: %w", err)
	}

	var tables replay.Tables
	if err := replay.ReplayOpsToTables(s.kernel, result.OpRecords, result.OpCount, &tables, profile); err != nil {
		return nil, nil, nil, fmt.Errorf("scene: replay failed: %w", err)
	}

	var manifolds []kernel.Manifold
	entries := make([]ObjectEntry, 0, len(result.Objects))
	for _, obj := range result.Objects {
		kind := replay.NodeKind(obj.RootKind)
		entry := ObjectEntry{Hash: obj.ObjectIDHash, Name: obj.Name, RootKind: kind, RootID: obj.RootID}
		switch kind {
		case replay.NodeManifold:
			m, err := replay.ResolveManifold(&tables, kind, obj.RootID)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("scene: resolving object %q: %w", obj.Name, err)
			}
			entry.Mesh = m.Mesh()
			manifolds = append(manifolds, m)
		case replay.NodeCrossSection:
			cs, err := replay.ResolveCrossSection(&tables, kind, obj.RootID)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("scene: resolving object %q: %w", obj.Name, err)
			}
			entry.Contours = cs.ToPolygons()
		default:
			return nil, nil, nil, fmt.Errorf("scene: object %q has unknown root kind %d", obj.Name, obj.RootKind)
		}
		entries = append(entries, entry)
	}
	return &tables, manifolds, entries, nil
}

// mergeManifolds BatchBoolean-unions every manifold object into one
// mesh. Scenes with no manifold objects (pure cross-section scripts)
// resolve to an empty-but-present merged mesh.
func (s *Session) mergeManifolds(manifolds []kernel.Manifold) (mesh_ kernel.Mesh, ok_ bool, err error) {
	if len(manifolds) == 0 {
		return kernel.Mesh{Vertices: []kernel.Vec3{}}, true, nil
	}
	// BatchBoolean/Status/Mesh all cross into the host-injected kernel
	// and may panic; recover at this boundary (spec §7, §9).
	defer func() {
		if r := recover(); r != nil {
			mesh_, ok_ = kernel.Mesh{}, false
			err = fmt.Errorf("scene: kernel panic: %v", r)
		}
	}()

	merged, err := s.kernel.BatchBoolean(manifolds, kernel.OpAdd)
	if err != nil {
		return kernel.Mesh{}, false, fmt.Errorf("scene: merging objects: %w", err)
	}
	if err := merged.Status(); err != nil {
		return kernel.Mesh{}, false, fmt.Errorf("scene: merged union is invalid: %s", err.Error())
	}
	return merged.Mesh(), true, nil
}

// sketchZPad is the z-axis padding applied to bounds derived purely
// from cross-section scenes, so camera framing still works for planar
// scenes with zero depth (spec §4.5).
const sketchZPad = 0.001

func objectBounds(e ObjectEntry) (min, max kernel.Vec3, ok bool) {
	switch e.RootKind {
	case replay.NodeManifold:
		return mesh.Bounds(e.Mesh)
	case replay.NodeCrossSection:
		return contourBounds(e.Contours)
	default:
		return kernel.Vec3{}, kernel.Vec3{}, false
	}
}

func contourBounds(contours []kernel.Polygon) (min, max kernel.Vec3, ok bool) {
	first := true
	for _, poly := range contours {
		for _, p := range poly {
			if first {
				min = kernel.Vec3{X: p.X, Y: p.Y, Z: -sketchZPad}
				max = kernel.Vec3{X: p.X, Y: p.Y, Z: sketchZPad}
				first = false
				continue
			}
			if p.X < min.X {
				min.X = p.X
			}
			if p.Y < min.Y {
				min.Y = p.Y
			}
			if p.X > max.X {
				max.X = p.X
			}
			if p.Y > max.Y {
				max.Y = p.Y
			}
		}
	}
	return min, max, !first
}

// computeSceneBounds derives the combined scene bounds: from the merged
// mesh when it has geometry, else from the cross-section entries, so a
// sketch-only scene still frames correctly.
func computeSceneBounds(merged kernel.Mesh, mergedOK bool, entries []ObjectEntry) (min, max kernel.Vec3, ok bool) {
	if mergedOK && len(merged.Vertices) > 0 {
		return mesh.Bounds(merged)
	}
	first := true
	for _, e := range entries {
		emin, emax, eok := objectBounds(e)
		if !eok {
			continue
		}
		if first {
			min, max, first = emin, emax, false
			continue
		}
		if emin.X < min.X {
			min.X = emin.X
		}
		if emin.Y < min.Y {
			min.Y = emin.Y
		}
		if emin.Z < min.Z {
			min.Z = emin.Z
		}
		if emax.X > max.X {
			max.X = emax.X
		}
		if emax.Y > max.Y {
			max.Y = emax.Y
		}
		if emax.Z > max.Z {
			max.Z = emax.Z
		}
	}
	return min, max, !first
}

// Export3mf re-runs the worker at the Export3MF profile and writes the
// merged mesh via exporter. It never touches Session's reload cache, so
// an export failure can't corrupt what ReloadIfChanged last resolved
// (spec §7 "Export faults ... reported without mutating cached state").
func (s *Session) Export3mf(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, manifolds, _, err := s.runAtProfile(replay.LodExport3MF)
	if err != nil {
		return fmt.Errorf("scene: export: %w", err)
	}
	if len(manifolds) == 0 {
		return fmt.Errorf("scene: export: scene has no manifold objects")
	}
	merged, mergedOK, err := s.mergeManifolds(manifolds)
	if err != nil {
		return fmt.Errorf("scene: export: %w", err)
	}
	if !mergedOK || len(merged.Vertices) == 0 {
		return fmt.Errorf("scene: export: merged mesh is empty")
	}
	if err := s.exporter.WriteManifold(path, merged); err != nil {
		return fmt.Errorf("scene: export: writing %s: %w", path, err)
	}
	s.statusf("exported %s", path)
	return nil
}
