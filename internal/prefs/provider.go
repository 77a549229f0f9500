// Package prefs stores scheduling preferences in a YAML file and keeps an
// in-memory snapshot that the engine reads on every request.
package prefs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/scheduling"
	pkgconfig "github.com/starford/sowilo/pkg/config"
)

type snapshot struct {
	prefs    scheduling.Preferences
	checksum string
}

// Provider serves the current preferences. Readers never block; Save and
// Reload are serialised.
type Provider struct {
	path    string
	current atomic.Pointer[snapshot]
	mu      sync.Mutex
}

// Open loads preferences from path. A missing file yields the defaults; an
// invalid file is an error.
func Open(path string) (*Provider, error) {
	p := &Provider{path: path}
	if _, err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Path returns the backing file path.
func (p *Provider) Path() string { return p.path }

// Current implements scheduling.PreferencesProvider.
func (p *Provider) Current() scheduling.Preferences {
	return p.current.Load().prefs
}

// Checksum returns the SHA-256 of the YAML the current snapshot was read from
// or written as. It changes whenever the preferences change.
func (p *Provider) Checksum() string {
	return p.current.Load().checksum
}

// Reload re-reads the file and reports whether the snapshot changed. On error
// the previous snapshot stays in place.
func (p *Provider) Reload() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		def := scheduling.DefaultPreferences()
		data, err = yaml.Marshal(&def)
		if err != nil {
			return false, fmt.Errorf("prefs: encode defaults: %w", err)
		}
		return p.swap(def, data), nil
	}
	if err != nil {
		return false, fmt.Errorf("prefs: read %s: %w", p.path, err)
	}

	next := scheduling.DefaultPreferences()
	if err := pkgconfig.Parse(p.path, data, &next); err != nil {
		return false, fmt.Errorf("prefs: %w", err)
	}
	return p.swap(next, data), nil
}

// Save validates next, writes it to the file and makes it current. When
// ifMatch is non-empty it must equal the current checksum.
func (p *Provider) Save(next scheduling.Preferences, ifMatch string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ifMatch != "" && ifMatch != p.current.Load().checksum {
		return "", ErrStale
	}
	if err := next.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	data, err := pkgconfig.Save(p.path, &next)
	if err != nil {
		return "", fmt.Errorf("prefs: %w", err)
	}
	p.swap(next, data)
	return p.current.Load().checksum, nil
}

func (p *Provider) swap(next scheduling.Preferences, data []byte) bool {
	h := sha256.Sum256(data)
	sum := hex.EncodeToString(h[:])
	if cur := p.current.Load(); cur != nil && cur.checksum == sum {
		return false
	}
	p.current.Store(&snapshot{prefs: next, checksum: sum})
	return true
}

var _ scheduling.PreferencesProvider = (*Provider)(nil)
