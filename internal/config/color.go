package config

import (
	"fmt"
	"strconv"
	"strings"
)

// RGBA is a parsed color
type RGBA struct {
	R, G, B, A uint8
}

// Palette holds the parsed measurement colors
type Palette struct {
	Line    RGBA
	Preview RGBA
	Hover   RGBA
	Delete  RGBA
}

// Palette parses all colors
func (c Colors) Palette() (Palette, error) {
	var p Palette
	for _, f := range []struct {
		key string
		in  string
		out *RGBA
	}{
		{"line", c.Line, &p.Line},
		{"preview", c.Preview, &p.Preview},
		{"hover", c.Hover, &p.Hover},
		{"delete", c.Delete, &p.Delete},
	} {
		rgba, err := ParseColor(f.in)
		if err != nil {
			return Palette{}, fmt.Errorf("view.colors.%s: %w", f.key, err)
		}
		*f.out = rgba
	}
	return p, nil
}

// ParseColor parses #rrggbb or #rrggbbaa
func ParseColor(s string) (RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return RGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}
