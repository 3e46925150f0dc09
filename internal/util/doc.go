// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across chatdesk.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - WriteFileIfMissing: create a default file without clobbering edits
//   - TruncateRunes, TruncateWidth: UTF-8 and column aware truncation
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0644)
//	label := util.TruncateWidth(conversationID, 24)
package util
