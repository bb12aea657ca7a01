package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// KV is the persisted key-value storage consumed for session snapshots and
// simple user preferences.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// SnapshotKey is where the pane session snapshot lives in the KV store.
const SnapshotKey = "panes.session"

// Entry describes one restorable pane. Content and runtime handles are never
// persisted; content is always re-fetched on restore.
type Entry struct {
	Path     string `json:"path"`
	ViewMode string `json:"viewMode"`
	Width    int    `json:"width"`
	DocType  string `json:"documentType"`
}

// Snapshot is the persisted record used to restore panes across reloads.
type Snapshot struct {
	Entries  []Entry `json:"entries"`
	ActiveID string  `json:"activePaneId"`
}

// Encode serializes the snapshot for the KV store.
func (s Snapshot) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode session snapshot: %w", err)
	}
	return string(data), nil
}

// Decode parses a snapshot previously produced by Encode.
func Decode(raw string) (Snapshot, error) {
	var s Snapshot
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode session snapshot: %w", err)
	}
	return s, nil
}

// FileKV is a KV backed by a single YAML map on disk.
type FileKV struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFileKV loads (or initializes) the store at path.
func NewFileKV(path string) (*FileKV, error) {
	kv := &FileKV{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return kv, nil
		}
		return nil, fmt.Errorf("read session store: %w", err)
	}

	if err := yaml.Unmarshal(data, &kv.values); err != nil {
		return nil, fmt.Errorf("parse session store: %w", err)
	}
	if kv.values == nil {
		kv.values = make(map[string]string)
	}
	return kv, nil
}

func (kv *FileKV) Get(key string) (string, bool) {
	if kv == nil {
		return "", false
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()
	value, ok := kv.values[key]
	return value, ok
}

func (kv *FileKV) Set(key, value string) error {
	if kv == nil {
		return nil
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()

	kv.values[key] = value

	data, err := yaml.Marshal(kv.values)
	if err != nil {
		return fmt.Errorf("encode session store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(kv.path), 0o755); err != nil {
		return fmt.Errorf("create session store dir: %w", err)
	}
	// WriteFile only applies the mode on creation; tighten existing files.
	if err := os.WriteFile(kv.path, data, 0o600); err != nil {
		return fmt.Errorf("write session store: %w", err)
	}
	if err := os.Chmod(kv.path, 0o600); err != nil {
		return fmt.Errorf("write session store: %w", err)
	}
	return nil
}

// MemKV is an in-memory KV for tests.
type MemKV struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemKV() *MemKV {
	return &MemKV{values: make(map[string]string)}
}

func (kv *MemKV) Get(key string) (string, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	value, ok := kv.values[key]
	return value, ok
}

func (kv *MemKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.values[key] = value
	return nil
}
