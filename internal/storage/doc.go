// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat sessions between requests and runs.
//
// Three Store implementations share one contract: transcripts only grow, so
// Save rejects a snapshot that rewrites entries already stored.
//
// # Key Types
//
//   - Store: Load/Save/List/Delete of session snapshots
//   - MemoryStore: in-process cache with idle expiry (web sessions)
//   - SQLiteStore: sessions and messages tables in a SQLite file
//   - FileStore: one JSON document per session, written atomically
//
// # Usage
//
//	store, err := storage.Open(storage.Options{Kind: storage.KindSQLite, Path: dbPath})
//	defer store.Close()
//	err = store.Save(ctx, st.Snapshot())
package storage
