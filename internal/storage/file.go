// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/util"
)

// validID restricts session ids to characters safe in file names.
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileStore keeps one JSON file per session in a directory.
type FileStore struct {
	mu sync.Mutex

	// BaseDir is the directory holding <id>.json files.
	BaseDir string

	// MaxSessions limits stored sessions (0 = unlimited). The least
	// recently updated sessions are removed first.
	MaxSessions int
}

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store requires a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{BaseDir: dir, MaxSessions: 100}, nil
}

func (s *FileStore) Load(ctx context.Context, id string) (*session.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *FileStore) load(id string) (*session.Snapshot, error) {
	path, err := s.filePath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &snap, nil
}

func (s *FileStore) Save(ctx context.Context, snap *session.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.filePath(snap.ID)
	if err != nil {
		return err
	}
	if stored, err := s.load(snap.ID); err == nil {
		if err := checkAppendOnly(stored.Messages, snap.Messages); err != nil {
			return err
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return err
	}

	if s.MaxSessions > 0 {
		s.enforceLimit()
	}
	return nil
}

// enforceLimit removes the oldest sessions beyond MaxSessions.
func (s *FileStore) enforceLimit() {
	sums, err := s.list()
	if err != nil || len(sums) <= s.MaxSessions {
		return
	}
	// sums is most recent first.
	for _, sum := range sums[s.MaxSessions:] {
		if path, err := s.filePath(sum.ID); err == nil {
			os.Remove(path)
		}
	}
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

func (s *FileStore) list() ([]Summary, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Summary{}, nil
		}
		return nil, err
	}

	out := []Summary{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		snap, err := s.load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // skip corrupted files
		}
		out = append(out, summarize(snap))
	}
	sortSummaries(out)
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.filePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) filePath(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(s.BaseDir, id+".json"), nil
}
