// Package storage implements the JSON document persistence substrate shared
// by the catalog, ledger, and request stores.
//
// Reads never block startup: an absent file yields the zero document, and
// malformed content is logged and likewise treated as empty. Writes are
// atomic (temp file + rename) and their failures propagate, since in-memory
// and durable state must not silently diverge.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Load reads the JSON document at path into v. A missing file leaves v
// untouched; malformed JSON is logged through logger and leaves v untouched.
// Only unexpected I/O failures return an error.
func Load(path string, v any, logger *log.Logger) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read document %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		if logger != nil {
			logger.Warn("malformed document, starting empty", "path", path, "err", err)
		}
		return nil
	}

	return nil
}

// Save writes v as pretty-printed JSON to path, creating parent directories
// as needed. The document is written to a temp file in the same directory
// and renamed into place so readers never observe a partial write.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp document: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write document %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp document: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace document %s: %w", path, err)
	}

	return nil
}
