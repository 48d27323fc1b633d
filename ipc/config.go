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
	"fmt"
	"time"

	units "github.com/docker/go-units"
)

// Config tunes one Transport. Plain exported struct plus a defaults
// constructor, no flag/env framework, matching how the teacher's
// storage.SettingsT is built and consumed.
type Config struct {
	// CapacityBytes is the total size of the shared-memory region.
	CapacityBytes uint32
	// RequestOffset/ResponseOffset locate the two payload regions
	// within the shared-memory block, after the 60-byte header.
	RequestOffset  uint32
	ResponseOffset uint32
	// ConnectTimeout bounds waiting for the worker to open the control
	// socket after it is spawned.
	ConnectTimeout time.Duration
	// ResponseTimeout bounds waiting for StateResponseReady/
	// StateResponseError after a request is posted.
	ResponseTimeout time.Duration
	// WorkerCommand is argv for the script-worker subprocess, e.g.
	// []string{"vicad-worker"}.
	WorkerCommand []string
}

// DefaultConfig returns the configuration the host uses unless a caller
// overrides a field.
func DefaultConfig() Config {
	return Config{
		CapacityBytes:   DefaultCapacityBytes,
		RequestOffset:   DefaultRequestOffset,
		ResponseOffset:  DefaultResponseOffset,
		ConnectTimeout:  3 * time.Second,
		ResponseTimeout: 30 * time.Second,
		WorkerCommand:   []string{"vicad-worker"},
	}
}

// WithCapacity parses a human-readable size string ("100MiB", "64MB")
// via units.RAMInBytes and returns a copy of c with CapacityBytes set.
func (c Config) WithCapacity(human string) (Config, error) {
	n, err := units.RAMInBytes(human)
	if err != nil {
		return c, fmt.Errorf("vicad ipc: parsing capacity %q: %w", human, err)
	}
	if n <= 0 || n > int64(^uint32(0)) {
		return c, fmt.Errorf("vicad ipc: capacity %q out of range", human)
	}
	c.CapacityBytes = uint32(n)
	return c, nil
}

// CapacityHuman renders CapacityBytes the way Transport's log lines do.
func (c Config) CapacityHuman() string {
	return units.BytesSize(float64(c.CapacityBytes))
}
