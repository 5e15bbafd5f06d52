// Package store reads and writes the flat report files.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// DateLayout is the date stamp used in report file names.
const DateLayout = "2006-01-02"

// Store locates daily and weekly report files on a filesystem.
type Store struct {
	fs        afero.Fs
	dailyDir  string
	weeklyDir string
}

// New creates a Store rooted at the given directories.
func New(fsys afero.Fs, dailyDir, weeklyDir string) *Store {
	return &Store{fs: fsys, dailyDir: dailyDir, weeklyDir: weeklyDir}
}

// NewOS creates a Store on the real filesystem.
func NewOS(dailyDir, weeklyDir string) *Store {
	return New(afero.NewOsFs(), dailyDir, weeklyDir)
}

// DailyPath is where the daily report for day d lives.
func (s *Store) DailyPath(d time.Time) string {
	return filepath.Join(s.dailyDir, "standup-"+d.Format(DateLayout)+".md")
}

// WeeklyPath is where the weekly report for the week ending on thursday lives.
func (s *Store) WeeklyPath(thursday time.Time) string {
	return filepath.Join(s.weeklyDir, "weekly-standup-"+thursday.Format(DateLayout)+".md")
}

// Read returns a report file's content. ok is false when the file does not exist.
func (s *Store) Read(path string) (content string, ok bool, err error) {
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), true, nil
}

// Write stores content at path, creating parent directories.
func (s *Store) Write(path, content string) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
