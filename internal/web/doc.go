// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package web serves the browser chat UI.
//
// Endpoints:
//   - GET  /                   - chat page with the session transcript
//   - GET  /api/history        - transcript of the caller's session as JSON
//   - POST /api/chat           - run one turn: {"message": "..."}
//   - POST /api/upload         - forward multipart "documents" to the backend
//   - GET  /assets/avatar      - assistant avatar image
//   - GET  /assets/favicon.ico - page icon
//   - GET  /health             - liveness probe
//
// Each browser gets a session id in the chatdesk_session cookie. Sessions
// live in a storage.Store; requests for the same session are serialised and
// rate limited.
package web
