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
/*
	vicad geometry IPC host: spawns the script worker over shared memory,
	replays its op-stream into a scene session and watches the script for
	changes.

*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/launix-de/vicad/ipc"
	"github.com/launix-de/vicad/kernel"
	"github.com/launix-de/vicad/replay"
	"github.com/launix-de/vicad/scene"
)

func main() {
	fmt.Print(`vicad Copyright (C) 2026   Carl-Philip Hänsch
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	var (
		scriptPath = flag.String("script", "", "path to the CAD script file to load")
		capacity   = flag.String("capacity", "", "shared-memory capacity, e.g. 64MiB (default "+ipc.DefaultConfig().CapacityHuman()+")")
		worker     = flag.String("worker", "", "worker command to spawn (default vicad-worker)")
		watch      = flag.Bool("watch", true, "watch the script file for changes instead of polling once")
		export     = flag.String("export", "", "if set, load the script once, write a 3MF export to this path, and exit")
	)
	flag.Parse()

	if *scriptPath == "" {
		fmt.Fprintln(os.Stderr, "vicad: -script is required")
		os.Exit(2)
	}

	cfg := ipc.DefaultConfig()
	if *capacity != "" {
		var err error
		cfg, err = cfg.WithCapacity(*capacity)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vicad: %v\n", err)
			os.Exit(2)
		}
	}
	if *worker != "" {
		cfg.WorkerCommand = []string{*worker}
	}

	log := ipc.NewLogger(os.Stderr)
	transport := ipc.NewTransport(cfg, log)
	if err := transport.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "vicad: starting worker transport: %v\n", err)
		os.Exit(1)
	}
	defer transport.Shutdown()

	sess := scene.NewSession(*scriptPath, transport, kernel.NewReference(), &stubMeshExporter{}, false)

	if _, err := sess.ReloadIfChanged(replay.LodModel); err != nil {
		fmt.Fprintf(os.Stderr, "vicad: initial load failed: %v\n", err)
		if sess.StartupFailed() {
			os.Exit(1)
		}
	}

	if *export != "" {
		if err := sess.Export3mf(*export); err != nil {
			fmt.Fprintf(os.Stderr, "vicad: export failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !*watch {
		return
	}

	runWatchLoop(sess)
}

// runWatchLoop drives reloads off filesystem events for the lifetime of
// the process, falling back to exiting cleanly on SIGINT/SIGTERM so the
// deferred transport.Shutdown() still runs.
func runWatchLoop(sess *scene.Session) {
	watcher, err := scene.NewWatcher(sess)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vicad: watcher unavailable, exiting: %v\n", err)
		return
	}
	defer watcher.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		watcher.Run(replay.LodModel, func(err error) {
			fmt.Fprintf(os.Stderr, "vicad: reload error: %v\n", err)
		})
		close(done)
	}()

	select {
	case <-sig:
		watcher.Close()
	case <-done:
	}
}

// stubMeshExporter is the host's mesh-I/O collaborator: the spec treats
// the actual 3MF container format as out of scope (delegated to a
// mesh-I/O collaborator, spec.md §1), so this writes a minimal
// ASCII placeholder good enough to exercise Session.Export3mf end to
// end without pulling in a 3MF library the example corpus never uses.
type stubMeshExporter struct{}

func (stubMeshExporter) WriteManifold(path string, m kernel.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "# vicad placeholder mesh export\n")
	fmt.Fprintf(f, "# vertices=%d triangles=%d\n", len(m.Vertices), len(m.Triangles))
	for _, v := range m.Vertices {
		fmt.Fprintf(f, "v %g %g %g\n", v.X, v.Y, v.Z)
	}
	for _, t := range m.Triangles {
		fmt.Fprintf(f, "f %d %d %d\n", t[0]+1, t[1]+1, t[2]+1)
	}
	return nil
}
