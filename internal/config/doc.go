// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for chatdesk.
//
// # Key Types
//
//   - Config: main configuration structure with all settings
//   - BackendConfig: chat backend location and request settings
//   - ResourcesConfig: template, avatar, style and favicon files
//   - ValidateErrors: every problem found by Validate
//
// # Configuration Precedence
//
// Later sources override earlier ones:
//   - Built-in defaults
//   - ~/.chatdesk/config.toml (or --config)
//   - .env in the working directory
//   - Environment variables (CHAT_URL, CHAT_PORT, CHATDESK_*)
//
// # Usage
//
//	cfg, err := config.Load(config.LoadOptions{})
//	if err != nil {
//	    return err
//	}
//	base := backend.BuildBaseURL(cfg.Backend.Scheme, cfg.Backend.Host, cfg.Backend.Port)
package config
