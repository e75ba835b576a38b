package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore implements StateStore using a single JSON file.
type FileStore struct {
	path string
}

// stateDocument is the on-disk shape: {"last_hash": "<hex>"}.
type stateDocument struct {
	LastHash string `json:"last_hash"`
}

// NewFileStore creates a file-backed state store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStatePath returns the default location of the digest state file.
func DefaultStatePath() string {
	if p := os.Getenv("ROTATION_STATE_FILE"); p != "" {
		return p
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "vaultward", "rotation_state.json")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "vaultward", "rotation_state.json")
	}
	return filepath.Join(os.TempDir(), "vaultward", "rotation_state.json")
}

// Path returns the file path backing this store.
func (fs *FileStore) Path() string {
	return fs.path
}

// ReadFingerprint returns the stored fingerprint. A missing file is not an
// error: it means no prior run has dispatched anything.
func (fs *FileStore) ReadFingerprint() (string, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read state file: %w", err)
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse state file: %w", err)
	}
	return doc.LastHash, nil
}

// WriteFingerprint replaces the stored fingerprint, creating parent
// directories as needed. Files are 0600: the fingerprint is not secret, but
// the state directory may sit next to other vaultward data.
func (fs *FileStore) WriteFingerprint(fingerprint string) error {
	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	data, err := json.Marshal(stateDocument{LastHash: fingerprint})
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(fs.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
