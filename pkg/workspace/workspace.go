// Isolated scratch storage for one generation run. Identities are
// uuid-derived and double-checked against the live set and the
// filesystem, so two live runs can never share a directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/1F47E/go-inkwell/pkg/logger"
)

var log = logger.Log

// acquire retries on an identity collision before giving up
const maxAcquireAttempts = 5

type Manager struct {
	root string

	mu   sync.Mutex
	live map[string]struct{}
}

type Handle struct {
	id  string
	dir string
	m   *Manager

	releaseOnce sync.Once
	releaseErr  error
}

func NewManager(root string) *Manager {
	return &Manager{
		root: root,
		live: make(map[string]struct{}),
	}
}

// Acquire creates a fresh workspace directory and returns its handle.
// The identity is guaranteed unique among live workspaces: it is
// reserved in the live set first and the directory is created with
// Mkdir, which fails on an existing path instead of silently reusing it.
func (m *Manager) Acquire() (*Handle, error) {
	if err := os.MkdirAll(m.root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("cannot create workspace root %s: %w", m.root, err)
	}

	for attempt := 0; attempt < maxAcquireAttempts; attempt++ {
		id := uuid.NewString()

		m.mu.Lock()
		if _, taken := m.live[id]; taken {
			m.mu.Unlock()
			continue
		}
		m.live[id] = struct{}{}
		m.mu.Unlock()

		dir := filepath.Join(m.root, id)
		err := os.Mkdir(dir, os.ModePerm)
		if err != nil {
			m.forget(id)
			if os.IsExist(err) {
				log.WithField("scope", "workspace").Warnf("identity collision on %s, retrying", id)
				continue
			}
			return nil, fmt.Errorf("cannot create workspace dir %s: %w", dir, err)
		}

		log.WithField("scope", "workspace").Debugf("acquired %s", id)
		return &Handle{id: id, dir: dir, m: m}, nil
	}
	return nil, fmt.Errorf("cannot acquire workspace: identity collisions exhausted %d attempts", maxAcquireAttempts)
}

// Release removes the workspace directory and all its contents.
// Idempotent, and safe to call even after a partially failed run.
func (h *Handle) Release() error {
	h.releaseOnce.Do(func() {
		h.releaseErr = os.RemoveAll(h.dir)
		h.m.forget(h.id)
		if h.releaseErr != nil {
			h.releaseErr = fmt.Errorf("cannot release workspace %s: %w", h.id, h.releaseErr)
			log.WithField("scope", "workspace").Warn(h.releaseErr)
			return
		}
		log.WithField("scope", "workspace").Debugf("released %s", h.id)
	})
	return h.releaseErr
}

func (h *Handle) ID() string {
	return h.id
}

// Dir is the storage location, gone after Release.
func (h *Handle) Dir() string {
	return h.dir
}

// Path joins name onto the workspace directory.
func (h *Handle) Path(name string) string {
	return filepath.Join(h.dir, name)
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.live, id)
	m.mu.Unlock()
}

// LiveCount reports how many workspaces are acquired and not released.
func (m *Manager) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
