// Package storage provides the file backends the simulator reads
// schedules from and writes results to. The backend is selected by an
// explicit configuration value injected at construction time; nothing
// here consults the environment.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rafique1990/flight-delay-simulator/internal/config"
	"github.com/rafique1990/flight-delay-simulator/internal/errs"
)

// ---------------------------------------------------------------------------
// Backend
// ---------------------------------------------------------------------------

// Backend abstracts where files live. Implementations must be safe for
// concurrent readers; the simulator writes from a single collecting
// goroutine only.
type Backend interface {
	// Open opens a named file for reading.
	Open(name string) (io.ReadCloser, error)

	// Create creates or truncates a named file for writing.
	Create(name string) (io.WriteCloser, error)

	// MkdirAll ensures a directory exists.
	MkdirAll(dir string) error

	// Path returns the resolved, user-facing location of a name.
	Path(name string) string
}

// New constructs the backend named by the configuration.
func New(backend, dataDir string) (Backend, error) {
	switch backend {
	case config.BackendLocal:
		return NewLocalDisk(dataDir), nil
	case config.BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q (supported: %s, %s)",
			errs.ErrConfiguration, backend, config.BackendLocal, config.BackendMemory)
	}
}

// ---------------------------------------------------------------------------
// Local Disk
// ---------------------------------------------------------------------------

// LocalDisk stores files on the local filesystem, resolving relative
// names against a base data directory.
type LocalDisk struct {
	baseDir string
}

// NewLocalDisk creates a local backend rooted at baseDir.
func NewLocalDisk(baseDir string) *LocalDisk {
	return &LocalDisk{baseDir: baseDir}
}

// Path resolves a name. Absolute paths pass through; names already
// under the base directory are not prefixed twice; everything else is
// joined with the base.
func (d *LocalDisk) Path(name string) string {
	name = filepath.Clean(filepath.FromSlash(name))
	base := filepath.Clean(d.baseDir)

	if filepath.IsAbs(name) {
		return name
	}
	if name == base || strings.HasPrefix(name, base+string(filepath.Separator)) {
		return name
	}
	return filepath.Join(base, name)
}

func (d *LocalDisk) Open(name string) (io.ReadCloser, error) {
	return os.Open(d.Path(name))
}

func (d *LocalDisk) Create(name string) (io.WriteCloser, error) {
	full := d.Path(name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	return os.Create(full)
}

func (d *LocalDisk) MkdirAll(dir string) error {
	return os.MkdirAll(d.Path(dir), 0o755)
}

// ---------------------------------------------------------------------------
// In-Memory
// ---------------------------------------------------------------------------

// Memory keeps files in a map. Useful for tests and for the HTTP API's
// dry runs.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Path(name string) string {
	return "mem://" + name
}

func (m *Memory) Open(name string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.files[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Create(name string) (io.WriteCloser, error) {
	return &memoryFile{backend: m, name: name}, nil
}

func (m *Memory) MkdirAll(string) error { return nil }

// WriteFile stores a file directly. Convenient for seeding test inputs.
func (m *Memory) WriteFile(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
}

// ReadFile returns a stored file's contents.
func (m *Memory) ReadFile(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	return data, ok
}

// Names returns all stored file names, sorted.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for n := range m.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type memoryFile struct {
	backend *Memory
	name    string
	buf     bytes.Buffer
}

func (f *memoryFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *memoryFile) Close() error {
	f.backend.WriteFile(f.name, f.buf.Bytes())
	return nil
}
