// Package watcher feeds the crash catalog from a dump directory, either by
// a one-shot scan or by following filesystem events as new artifacts land.
package watcher

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/blackwell-systems/crashtrap/internal/store"
)

// seenCacheSize bounds the duplicate-suppression cache; the catalog's
// artifact-path lookup is the backstop when an entry ages out.
const seenCacheSize = 512

// Watcher follows a dump directory and catalogs artifacts as they appear.
// The recorder writes the .regs file before the .maps file, so the .maps
// event is the signal that a capture is complete; ingest triggers on it.
// Artifacts whose maps capture failed entirely are picked up by Scan.
type Watcher struct {
	store *store.Store
	dir   string
	out   io.Writer

	fw   *fsnotify.Watcher
	seen *lru.Cache[string, struct{}]

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Watcher for the given dump directory. A nil out defaults
// to os.Stderr.
func New(st *store.Store, dir string, out io.Writer) (*Watcher, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if out == nil {
		out = os.Stderr
	}
	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Watcher{
		store:  st,
		dir:    dir,
		out:    out,
		seen:   seen,
		stopCh: make(chan struct{}),
	}, nil
}

// Start catalogs artifacts already present, then begins following
// filesystem events in the dump directory.
func (w *Watcher) Start() error {
	if n, err := Scan(w.store, w.dir); err != nil {
		fmt.Fprintf(w.out, "watcher: initial dump directory scan: %v\n", err)
	} else if n > 0 {
		fmt.Fprintf(w.out, "watcher: cataloged %d existing artifact(s)\n", n)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create filesystem watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch dump directory %s: %w", w.dir, err)
	}
	w.fw = fw

	w.wg.Add(1)
	go w.run()
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handleArtifact(ev.Name)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(w.out, "watcher: filesystem event error: %v\n", err)
		case <-w.stopCh:
			return
		}
	}
}

// handleArtifact ingests the capture that a completed .maps artifact
// belongs to.
func (w *Watcher) handleArtifact(path string) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".maps") || !strings.HasPrefix(base, "crash_dump_") {
		return
	}
	regsPath := strings.TrimSuffix(path, ".maps") + ".regs"

	if _, dup := w.seen.Get(regsPath); dup {
		return
	}

	// The Create event fires when the recorder opens the maps file, before
	// any content lands. Wait for a write event that shows content; the
	// seen cache stays untouched so that event still triggers ingest.
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		return
	}

	c, err := IngestArtifact(w.store, regsPath)
	if err != nil {
		fmt.Fprintf(w.out, "watcher: %v\n", err)
		return
	}
	w.seen.Add(regsPath, struct{}{})
	if c != nil {
		fmt.Fprintf(w.out, "watcher: cataloged crash %s (pid %d, %s)\n", c.ID, c.PID, c.SignalName)
	}
}

// Stop halts event processing and releases the filesystem watch.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	var err error
	if w.fw != nil {
		err = w.fw.Close()
	}
	w.wg.Wait()
	return err
}
