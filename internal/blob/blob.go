// Package blob stores uploaded study files on disk, one directory per
// patient. It knows nothing about study records; the clinic package owns
// the binding between files and rows.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Store writes and deletes files under a single upload root.
type Store struct {
	root string
}

// New ensures the upload root exists and returns a Store over it.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the upload root directory, used for static file serving.
func (s *Store) Root() string { return s.root }

// SanitizeName collapses every run of whitespace in the client-supplied file
// name to a single underscore and strips any directory components.
func SanitizeName(name string) string {
	name = filepath.Base(name)
	return whitespaceRun.ReplaceAllString(name, "_")
}

// Save stores content as <root>/<patientID>/<epochMillis>_<sanitizedName>.
// The patient directory is created on demand; the timestamp prefix keeps
// same-name re-uploads from colliding. Write goes through a temp file with
// fsync and an atomic rename, so a partially written file is never visible
// under its final name.
//
// The returned ruta is relative to the root and '/'-separated on every OS,
// which is the exact form persisted in the study row.
func (s *Store) Save(patientID int64, originalName string, content io.Reader, now time.Time) (nombre, ruta string, err error) {
	pid := strconv.FormatInt(patientID, 10)
	dir := filepath.Join(s.root, pid)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", "", fmt.Errorf("create patient directory: %w", err)
	}

	nombre = strconv.FormatInt(now.UnixMilli(), 10) + "_" + SanitizeName(originalName)
	fullPath := filepath.Join(dir, nombre)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("write study file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("fsync study file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("close study file: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", "", fmt.Errorf("rename study file: %w", err)
	}

	return nombre, path.Join(pid, nombre), nil
}

// Remove deletes a stored file addressed by its relative ruta. A missing
// file is treated as already removed.
func (s *Store) Remove(ruta string) error {
	full, err := s.fullPath(ruta)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove study file: %w", err)
	}
	return nil
}

// fullPath resolves a stored ruta against the root, rejecting anything that
// would escape it.
func (s *Store) fullPath(ruta string) (string, error) {
	rel := filepath.FromSlash(ruta)
	if rel == "" || !filepath.IsLocal(rel) {
		return "", errors.New("invalid storage path")
	}
	return filepath.Join(s.root, rel), nil
}
