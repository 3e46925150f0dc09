// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assets loads the files under the resources directory: the solution
// template, the assistant avatar, the page style and the favicon.
//
// Every resource is optional. A missing file is logged and the bundle falls
// back to nothing (template, avatar, style) or a built-in default (favicon).
//
// # Key Types
//
//   - Bundle: everything loaded from one resources directory
//   - ErrMissing: returned by the single-file loaders for absent files
//
// # Usage
//
//	bundle := assets.Load(cfg.Resources, logger)
//	formatter := markdown.NewFormatter(bundle.Template, logger)
//
// InitAssets writes the built-in defaults into a directory so they can be
// edited.
package assets
