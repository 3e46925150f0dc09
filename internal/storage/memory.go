// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jeranaias/chatdesk/internal/session"
)

// DefaultTTL is how long an idle session stays in a MemoryStore.
const DefaultTTL = 2 * time.Hour

// MemoryStore keeps sessions in process memory. Sessions expire after TTL
// without a Save.
type MemoryStore struct {
	mu    sync.Mutex // serializes read-modify-write in Save
	cache *cache.Cache
	ttl   time.Duration
}

// NewMemoryStore creates a memory store. A non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &MemoryStore{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*session.Snapshot, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSnapshot(v.(*session.Snapshot)), nil
}

func (s *MemoryStore) Save(ctx context.Context, snap *session.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache.Get(snap.ID); ok {
		if err := checkAppendOnly(v.(*session.Snapshot).Messages, snap.Messages); err != nil {
			return err
		}
	}
	s.cache.Set(snap.ID, cloneSnapshot(snap), s.ttl)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	items := s.cache.Items()
	out := make([]Summary, 0, len(items))
	for _, item := range items {
		out = append(out, summarize(item.Object.(*session.Snapshot)))
	}
	sortSummaries(out)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache.Get(id); !ok {
		return ErrNotFound
	}
	s.cache.Delete(id)
	return nil
}

// Close drops all sessions.
func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
