// Package sourceview renders debuggee source lines in the controller: a
// search-path file resolver with an in-memory line cache, invalidated by
// fsnotify when a file changes on disk under a watched directory.
//
// Grounded on original_source/lldbg/Controller.c (getFile, checkFile,
// showSource, ls).
package sourceview

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DefaultCount is how many lines an `ls` with no explicit count shows.
const DefaultCount = 10

// Viewer resolves and renders source files. Directories are searched in
// registration order after the fullpath reported by the debuggee, matching
// the original controller's getFile order.
type Viewer struct {
	mu    sync.Mutex
	dirs  []string
	cache map[string][]string // resolved path -> lines

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New builds a Viewer over dirs. The fsnotify watcher is best-effort: if
// the platform can't provide one the Viewer still works, it just re-reads
// nothing (the cache is only ever filled once per path in that case, which
// matches the original controller's behavior of re-opening the file every
// time — we trade that re-open for a watch).
func New(dirs ...string) *Viewer {
	v := &Viewer{cache: make(map[string][]string)}
	if w, err := fsnotify.NewWatcher(); err == nil {
		v.watcher = w
		v.done = make(chan struct{})
		go v.watch()
	}
	for _, d := range dirs {
		v.AddDir(d)
	}
	return v
}

// AddDir appends dir to the search path (the `asd` command and the
// repeatable -s/--source flag).
func (v *Viewer) AddDir(dir string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dirs = append(v.dirs, dir)
	if v.watcher != nil {
		// Ignore watch errors: a missing dir still participates in path
		// lookup and simply never hits.
		_ = v.watcher.Add(dir)
	}
}

// Close releases the watcher.
func (v *Viewer) Close() {
	if v.watcher != nil {
		close(v.done)
		v.watcher.Close()
		v.watcher = nil
	}
}

func (v *Viewer) watch() {
	for {
		select {
		case <-v.done:
			return
		case ev, ok := <-v.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				v.mu.Lock()
				delete(v.cache, ev.Name)
				v.mu.Unlock()
			}
		case _, ok := <-v.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// bytecodeMarker is the escape byte precompiled scripts start with; such
// files are refused rather than dumped as garbage.
const bytecodeMarker = 0x1b

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	first, err := br.Peek(1)
	if err == nil && first[0] == bytecodeMarker {
		return nil, fmt.Errorf("Binary source file")
	}

	var lines []string
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			lines = append(lines, line)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}
	return lines, nil
}

// resolve finds file's contents: fullpath first, then <dir>/<basename> for
// each search dir in order. Returns the lines and the path they came from.
func (v *Viewer) resolve(file, fullpath string) ([]string, error) {
	v.mu.Lock()
	dirs := make([]string, len(v.dirs))
	copy(dirs, v.dirs)
	v.mu.Unlock()

	var candidates []string
	if fullpath != "" {
		candidates = append(candidates, fullpath)
	}
	base := filepath.Base(file)
	for _, d := range dirs {
		candidates = append(candidates, filepath.Join(d, base))
	}

	var firstErr error
	for _, path := range candidates {
		v.mu.Lock()
		lines, ok := v.cache[path]
		v.mu.Unlock()
		if ok {
			return lines, nil
		}
		lines, err := readLines(path)
		if err != nil {
			if firstErr == nil && !os.IsNotExist(err) {
				firstErr = err
			}
			continue
		}
		v.mu.Lock()
		v.cache[path] = lines
		v.mu.Unlock()
		return lines, nil
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("No such file or directory")
	}
	return nil, firstErr
}

// Show writes up to count lines of file starting at line (1-based) to w,
// each prefixed "N: ". Errors are rendered to w, not returned: a missing
// source file is a display condition, not a session failure. Returns
// line+count, the original controller's `ls` continuation cursor, whether
// or not the file had that many lines left.
func (v *Viewer) Show(w io.Writer, file string, line, count int, fullpath string) int {
	if line <= 0 {
		line = 1
	}
	if count <= 0 {
		count = DefaultCount
	}

	lines, err := v.resolve(file, fullpath)
	if err != nil {
		fmt.Fprintf(w, "%s: %s\n", file, err)
		return line + count
	}
	for i := 0; i < count; i++ {
		idx := line - 1 + i
		if idx < 0 || idx >= len(lines) {
			break
		}
		fmt.Fprintf(w, "%d: %s\n", line+i, lines[idx])
	}
	return line + count
}
