// Package config provides layered JSON configuration for stormdbg.
//
// Settings resolve through three layers: compiled-in defaults, the user
// configuration file, and session overrides made with set commands.
// Later layers win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// defaults is the compiled-in base layer.
const defaults = `{
	"log": {
		"level": "info"
	},
	"ai": {
		"provider": "openai",
		"model": "",
		"temperature": 0.5,
		"maxTokens": 100
	},
	"context": {
		"instructions": 8,
		"stackWords": 8,
		"sourceLines": 5
	},
	"memory": {
		"defaultCount": 64
	},
	"theme": {
		"name": "default"
	}
}`

// Store provides layered access to configuration values.
type Store struct {
	mu sync.RWMutex

	defaults []byte
	user     []byte
	session  []byte

	userPath string

	watchers []func(path string)
}

// Option configures a Store.
type Option func(*Store)

// WithUserPath sets the user configuration file path.
func WithUserPath(path string) Option {
	return func(s *Store) {
		s.userPath = path
	}
}

// New creates a configuration store with the given options.
func New(opts ...Option) *Store {
	s := &Store{
		defaults: []byte(defaults),
		user:     []byte(`{}`),
		session:  []byte(`{}`),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultUserPath returns the conventional user config file location.
func DefaultUserPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "stormdbg", "config.json")
}

// Load reads the user configuration file. A missing file is not an
// error; the defaults layer still applies.
func (s *Store) Load() error {
	if s.userPath == "" {
		return nil
	}

	data, err := os.ReadFile(s.userPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", s.userPath, err)
	}

	if !gjson.ValidBytes(data) {
		return fmt.Errorf("config %s is not valid JSON", s.userPath)
	}

	s.mu.Lock()
	s.user = data
	s.mu.Unlock()
	return nil
}

// Get resolves a dotted path through the layers, latest layer first.
func (s *Store) Get(path string) gjson.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r := gjson.GetBytes(s.session, path); r.Exists() {
		return r
	}
	if r := gjson.GetBytes(s.user, path); r.Exists() {
		return r
	}
	return gjson.GetBytes(s.defaults, path)
}

// GetString returns the string value at path, or fallback.
func (s *Store) GetString(path, fallback string) string {
	if r := s.Get(path); r.Exists() {
		return r.String()
	}
	return fallback
}

// GetInt returns the integer value at path, or fallback.
func (s *Store) GetInt(path string, fallback int) int {
	if r := s.Get(path); r.Exists() {
		return int(r.Int())
	}
	return fallback
}

// GetFloat returns the float value at path, or fallback.
func (s *Store) GetFloat(path string, fallback float64) float64 {
	if r := s.Get(path); r.Exists() {
		return r.Float()
	}
	return fallback
}

// GetBool returns the boolean value at path, or fallback.
func (s *Store) GetBool(path string, fallback bool) bool {
	if r := s.Get(path); r.Exists() {
		return r.Bool()
	}
	return fallback
}

// Set writes a value into the session layer.
func (s *Store) Set(path string, value any) error {
	s.mu.Lock()
	updated, err := sjson.SetBytes(s.session, path, value)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("set %s: %w", path, err)
	}
	s.session = updated
	watchers := append([]func(string){}, s.watchers...)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(path)
	}
	return nil
}

// SetRaw writes a raw JSON value into the session layer.
func (s *Store) SetRaw(path, rawJSON string) error {
	if !gjson.Valid(rawJSON) {
		return fmt.Errorf("set %s: invalid JSON value", path)
	}

	s.mu.Lock()
	updated, err := sjson.SetRawBytes(s.session, path, []byte(rawJSON))
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("set %s: %w", path, err)
	}
	s.session = updated
	watchers := append([]func(string){}, s.watchers...)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(path)
	}
	return nil
}

// Unset removes a session override, revealing the lower layers again.
func (s *Store) Unset(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := sjson.DeleteBytes(s.session, path)
	if err != nil {
		return fmt.Errorf("unset %s: %w", path, err)
	}
	s.session = updated
	return nil
}

// OnChange registers a callback invoked after a session value changes.
func (s *Store) OnChange(fn func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// Save persists the user layer plus session overrides to the user
// configuration file.
func (s *Store) Save() error {
	if s.userPath == "" {
		return fmt.Errorf("no user config path set")
	}

	s.mu.RLock()
	merged := append([]byte{}, s.user...)
	var mergeErr error
	var walk func(prefix string, value gjson.Result)
	walk = func(prefix string, value gjson.Result) {
		value.ForEach(func(key, val gjson.Result) bool {
			path := key.String()
			if prefix != "" {
				path = prefix + "." + path
			}
			if val.IsObject() {
				walk(path, val)
				return true
			}
			merged, mergeErr = sjson.SetRawBytes(merged, path, []byte(val.Raw))
			return mergeErr == nil
		})
	}
	walk("", gjson.ParseBytes(s.session))
	s.mu.RUnlock()

	if mergeErr != nil {
		return fmt.Errorf("merge session config: %w", mergeErr)
	}

	if err := os.MkdirAll(filepath.Dir(s.userPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	out := []byte(gjson.GetBytes(merged, "@pretty").Raw)
	if err := os.WriteFile(s.userPath, out, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
