// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assets

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"

	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/markdown"
	"github.com/jeranaias/chatdesk/internal/util"
)

//go:embed default_style.html
var defaultStyle string

// DefaultStyle returns the built-in style snippet.
func DefaultStyle() string {
	return defaultStyle
}

const defaultIconSize = 64

var (
	defaultAvatarOnce sync.Once
	defaultAvatarPNG  []byte
)

// DefaultAvatar returns a generated PNG: a filled circle with a lighter ring.
func DefaultAvatar() []byte {
	defaultAvatarOnce.Do(func() {
		defaultAvatarPNG = drawAvatar(defaultIconSize)
	})
	return defaultAvatarPNG
}

func drawAvatar(size int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	fill := color.NRGBA{R: 0x1f, G: 0x6f, B: 0xeb, A: 0xff}
	ring := color.NRGBA{R: 0x9c, G: 0xc3, B: 0xff, A: 0xff}

	c := float64(size-1) / 2
	outer := c * c
	inner := (c - 4) * (c - 4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			d := dx*dx + dy*dy
			switch {
			case d <= inner:
				img.SetNRGBA(x, y, fill)
			case d <= outer:
				img.SetNRGBA(x, y, ring)
			}
		}
	}

	var buf bytes.Buffer
	// Encoding an in-memory NRGBA cannot fail.
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// DefaultFavicon returns an ICO file holding the default avatar as its one
// PNG-compressed image.
func DefaultFavicon() []byte {
	return WrapICO(DefaultAvatar(), defaultIconSize)
}

// WrapICO builds a single-image ICO container around PNG data.
func WrapICO(pngData []byte, size int) []byte {
	const headerLen = 6 + 16
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}

	var buf bytes.Buffer
	buf.Grow(headerLen + len(pngData))
	// ICONDIR
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	// ICONDIRENTRY
	buf.WriteByte(dim)
	buf.WriteByte(dim)
	buf.WriteByte(0)
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(32))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	binary.Write(&buf, binary.LittleEndian, uint32(headerLen))
	buf.Write(pngData)
	return buf.Bytes()
}

func isICO(data []byte) bool {
	return len(data) >= 4 && data[0] == 0 && data[1] == 0 && data[2] == 1 && data[3] == 0
}

// InitAssets writes the built-in resources into cfg.Dir. Existing files are
// kept unless force is set. It returns the paths that were written.
func InitAssets(cfg config.ResourcesConfig, force bool) ([]string, error) {
	files := []struct {
		name string
		data []byte
	}{
		{cfg.Template, []byte(markdown.DefaultTemplateText())},
		{cfg.Avatar, DefaultAvatar()},
		{cfg.Style, []byte(DefaultStyle())},
		{cfg.Favicon, DefaultFavicon()},
	}

	var written []string
	for _, f := range files {
		if f.name == "" {
			continue
		}
		path := cfg.Path(f.name)
		if force {
			if err := util.AtomicWriteFile(path, f.data, 0644); err != nil {
				return written, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
			}
			written = append(written, path)
			continue
		}
		ok, err := util.WriteFileIfMissing(path, f.data, 0644)
		if err != nil {
			return written, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		}
		if ok {
			written = append(written, path)
		}
	}
	return written, nil
}
