// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/markdown"
)

// ErrMissing is returned when a resource file does not exist.
var ErrMissing = errors.New("resource file not found")

// Avatar is a decoded-and-verified avatar image.
type Avatar struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Bundle holds the resources for one UI.
type Bundle struct {
	// Template renders solutions. Nil when the template file is missing, in
	// which case structured replies fall back to their raw text.
	Template markdown.Template
	// Avatar is the assistant avatar, nil when missing or unreadable.
	Avatar *Avatar
	// Style is raw HTML injected into the web page head. Empty when missing.
	Style string
	// Favicon is the page icon. The built-in icon is used when missing.
	Favicon []byte
	// Missing lists the resource paths that could not be loaded.
	Missing []string
}

// Load reads every resource named in cfg. It never fails; problems are
// logged and recorded in Bundle.Missing.
func Load(cfg config.ResourcesConfig, logger zerolog.Logger) *Bundle {
	b := &Bundle{}

	if path := cfg.Path(cfg.Template); path != "" {
		tmpl, err := markdown.LoadTemplate(path)
		if err != nil {
			b.miss(logger, path, err)
		} else {
			b.Template = tmpl
		}
	}

	if path := cfg.Path(cfg.Avatar); path != "" {
		avatar, err := LoadAvatar(path)
		if err != nil {
			b.miss(logger, path, err)
		} else {
			b.Avatar = avatar
		}
	}

	if path := cfg.Path(cfg.Style); path != "" {
		style, err := LoadStyle(path)
		if err != nil {
			b.miss(logger, path, err)
		} else {
			b.Style = style
		}
	}

	b.Favicon = DefaultFavicon()
	if path := cfg.Path(cfg.Favicon); path != "" {
		icon, err := readFile(path)
		if err != nil {
			b.miss(logger, path, err)
		} else {
			b.Favicon = icon
		}
	}

	return b
}

func (b *Bundle) miss(logger zerolog.Logger, path string, err error) {
	b.Missing = append(b.Missing, path)
	if errors.Is(err, ErrMissing) || errors.Is(err, markdown.ErrTemplateMissing) {
		logger.Warn().Str("path", path).Msg("File not found")
		return
	}
	logger.Error().Err(err).Str("path", path).Msg("Failed to load resource")
}

// LoadAvatar reads an image file and checks that it decodes as PNG, JPEG
// or GIF.
func LoadAvatar(path string) (*Avatar, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid avatar image %s: %w", path, err)
	}
	return &Avatar{
		Data:        data,
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// LoadStyle reads the raw style snippet.
func LoadStyle(path string) (string, error) {
	data, err := readFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FaviconContentType sniffs the favicon bytes. ICO files are reported as
// image/x-icon.
func FaviconContentType(data []byte) string {
	if isICO(data) {
		return "image/x-icon"
	}
	return http.DetectContentType(data)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
