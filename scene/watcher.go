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

package scene

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/launix-de/vicad/replay"
)

// Watcher drives a Session's reloads off filesystem change events for
// the session's script (spec §4.5: "a host MAY watch the script file
// and reload eagerly, or poll before each frame"). It does not poll by
// itself: without usable fsnotify support NewWatcher returns an error,
// and Session.Poll is the stat-polling alternative for such callers.
type Watcher struct {
	session *Session
	fsw     *fsnotify.Watcher
	scriptB string
}

// NewWatcher opens an fsnotify watch on the session script's containing
// directory (fsnotify watches directories more reliably than bare files
// across editors that replace-on-save instead of writing in place).
func NewWatcher(s *Session) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("scene: creating watcher: %w", err)
	}
	dir := filepath.Dir(s.scriptPath)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("scene: watching %s: %w", dir, err)
	}
	return &Watcher{session: s, fsw: fsw, scriptB: filepath.Base(s.scriptPath)}, nil
}

// Close releases the underlying fsnotify watch.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks, reloading the session at profile whenever a write,
// create, or rename event names the watched script, until the
// watcher's event channel closes (i.e. until Close is called from
// another goroutine). Reload errors are reported through onErr rather
// than stopping the loop, since a bad edit should not kill the watch.
func (w *Watcher) Run(profile replay.LodProfile, onErr func(error)) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != w.scriptB {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if _, err := w.session.ReloadIfChanged(profile); err != nil && onErr != nil {
				onErr(err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if onErr != nil {
				onErr(fmt.Errorf("scene: watcher: %w", err))
			}
		}
	}
}
