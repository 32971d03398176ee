package lifecycle

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vk/pluginhost/internal/ctxlog"
	"github.com/vk/pluginhost/internal/dynload"
)

// State is the lifecycle state of a library record.
type State int

const (
	Unloaded State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "unloaded"
}

// Record tracks one distinct resolved library path that has ever been
// loaded. Records persist at refcount zero so a reload reuses them cleanly.
type Record struct {
	m *Manager

	path     string
	state    State
	refcount int
	lib      dynload.Library
}

// Path returns the absolute path the record tracks.
func (r *Record) Path() string { return r.path }

// State returns the record's current lifecycle state.
func (r *Record) State() State {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.state
}

// Refcount returns the number of outstanding claims on the record.
func (r *Record) Refcount() int {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.refcount
}

// Info is a point-in-time snapshot of one record, for status reporting.
type Info struct {
	Path     string `json:"path"`
	State    string `json:"state"`
	Refcount int    `json:"refcount"`
}

// Manager owns the path -> Record map. A single coarse lock guards all
// record mutation; the physical open is funneled through a singleflight
// group per path so concurrent acquires share exactly one open call.
type Manager struct {
	loader dynload.Loader

	mu      sync.Mutex
	records map[string]*Record
	opening singleflight.Group
}

// New creates a Manager loading libraries through the given loader.
func New(loader dynload.Loader) *Manager {
	return &Manager{
		loader:  loader,
		records: make(map[string]*Record),
	}
}

// recordLocked returns the record for path, creating it if absent. Callers
// must hold m.mu.
func (m *Manager) recordLocked(path string) *Record {
	rec, ok := m.records[path]
	if !ok {
		rec = &Record{m: m, path: path}
		m.records[path] = rec
	}
	return rec
}

// Acquire adds a claim to the library at path, physically opening it first
// if it is not currently loaded. When several goroutines race to load the
// same path, exactly one performs the open and the rest merely gain a claim.
// On open failure a *LoadError is returned and the record stays Unloaded
// with its refcount unchanged.
func (m *Manager) Acquire(ctx context.Context, path string) (*Record, error) {
	logger := ctxlog.FromContext(ctx)

	for {
		m.mu.Lock()
		rec := m.recordLocked(path)
		if rec.state == Loaded {
			rec.refcount++
			n := rec.refcount
			m.mu.Unlock()
			logger.Debug("Library claim added.", "path", path, "refcount", n)
			return rec, nil
		}
		m.mu.Unlock()

		if _, err, _ := m.opening.Do(path, func() (any, error) {
			m.mu.Lock()
			if rec.state == Loaded {
				// A racer in the same flight already opened it.
				m.mu.Unlock()
				return nil, nil
			}
			m.mu.Unlock()

			lib, err := m.loader.Open(path)
			if err != nil {
				return nil, err
			}

			m.mu.Lock()
			rec.lib = lib
			rec.state = Loaded
			m.mu.Unlock()
			logger.Debug("Library physically loaded.", "path", path)
			return nil, nil
		}); err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}

		// Loop rather than increment blindly: between the shared open
		// completing and this goroutine taking the lock, a racing release
		// may already have closed the library again.
	}
}

// Release drops one claim on the library at path, returning the number of
// claims remaining. When the last claim is dropped the library is physically
// closed and the record reset to Unloaded. Releasing without a matching
// acquire fails with *NotLoadedError. A failed close still leaves the record
// Unloaded at refcount zero (the caller has relinquished its claim either
// way) and surfaces as *UnloadError; the next acquire retries the load.
func (m *Manager) Release(ctx context.Context, path string) (int, error) {
	logger := ctxlog.FromContext(ctx)

	m.mu.Lock()
	rec, ok := m.records[path]
	if !ok || rec.refcount == 0 {
		m.mu.Unlock()
		return 0, &NotLoadedError{Path: path}
	}

	rec.refcount--
	remaining := rec.refcount
	if remaining > 0 {
		m.mu.Unlock()
		logger.Debug("Library claim released.", "path", path, "refcount", remaining)
		return remaining, nil
	}

	// Last claim gone: close while still holding the lock so the open/close
	// sequence for this path stays strictly alternating.
	lib := rec.lib
	rec.lib = nil
	rec.state = Unloaded
	err := lib.Close()
	m.mu.Unlock()

	if err != nil {
		logger.Warn("Library close failed; record reset for retry.", "path", path, "error", err)
		return 0, &UnloadError{Path: path, Err: err}
	}
	logger.Debug("Library physically unloaded.", "path", path)
	return 0, nil
}

// Library returns the open library for path, if it is currently loaded.
// Callers must hold a claim obtained via Acquire for the result to stay
// valid.
func (m *Manager) Library(path string) (dynload.Library, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[path]
	if !ok || rec.state != Loaded {
		return nil, false
	}
	return rec.lib, true
}

// IsLoaded reports whether the library at path is currently loaded.
func (m *Manager) IsLoaded(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[path]
	return ok && rec.state == Loaded
}

// LoadedPaths returns the sorted set of currently loaded library paths.
func (m *Manager) LoadedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var paths []string
	for path, rec := range m.records {
		if rec.state == Loaded {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// Snapshot returns a point-in-time view of every record ever created,
// sorted by path. Used by the status endpoint.
func (m *Manager) Snapshot() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]Info, 0, len(m.records))
	for _, rec := range m.records {
		infos = append(infos, Info{Path: rec.path, State: rec.state.String(), Refcount: rec.refcount})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos
}
