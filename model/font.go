/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package model

import (
	"errors"

	"github.com/quillpdf/quillpdf/internal/transform"
)

// Font is the capability the content stream processor needs from a font.
// Encoding tables, width tables and the font matrix live behind this
// interface; the processor never inspects font dictionaries itself.
//
// The byte-slice operations take an (offset, length) window into the
// encoded glyph run because composite fonts consume more than one byte per
// code.
type Font interface {
	// Encode decodes the code at data[offset:offset+length] to a Unicode
	// string. The bool result is false when the code has no mapping.
	Encode(data []byte, offset, length int) (string, bool)

	// CodeFromArray returns the numeric character code at the window.
	CodeFromArray(data []byte, offset, length int) int

	// FontWidth returns the advance width in glyph units for the code at
	// the window.
	FontWidth(data []byte, offset, length int) float64

	// FontHeight returns the glyph height in glyph units for the code at
	// the window.
	FontHeight(data []byte, offset, length int) float64

	// SpaceWidth returns the width of the space glyph in glyph units.
	// Fonts without a space glyph return an error.
	SpaceWidth() (float64, error)

	// AverageFontWidth returns the average glyph width in glyph units.
	AverageFontWidth() float64

	// FontMatrix returns the glyph-space to text-space matrix. Standard
	// fonts use 0.001 scaling; Type 3 fonts supply their own.
	FontMatrix() transform.Matrix

	// IsType3 reports whether the font is a Type 3 font.
	IsType3() bool

	// BaseFont returns the font's base name, for diagnostics.
	BaseFont() string
}

// ErrNoSpaceGlyph is returned by SpaceWidth for fonts without a space glyph.
var ErrNoSpaceGlyph = errors.New("font has no space glyph")

// WidthTableFont is a Font over explicit per-code width and Unicode tables.
// It covers 1-byte encodings, multi-byte codes read big-endian and, with its
// own font matrix, Type 3 fonts. It is also the font the package tests run against.
type WidthTableFont struct {
	// Name is the base font name.
	Name string

	// Widths maps character code to advance width in glyph units.
	Widths map[int]float64

	// Heights maps character code to glyph height in glyph units. Codes
	// missing from the map have zero height.
	Heights map[int]float64

	// Unicode maps character code to its decoded string. Codes missing
	// from the map fail to decode.
	Unicode map[int]string

	// DefaultWidth is used for codes missing from Widths.
	DefaultWidth float64

	// AverageWidth is the average glyph width. Zero falls back to a
	// computed mean of Widths.
	AverageWidth float64

	// Matrix overrides the standard 0.001 font matrix when Type3 is set.
	Matrix transform.Matrix

	// Type3 marks the font as a Type 3 font with its own Matrix.
	Type3 bool
}

// Encode decodes the code at the window, read as by CodeFromArray, through
// the Unicode table.
func (f *WidthTableFont) Encode(data []byte, offset, length int) (string, bool) {
	s, ok := f.Unicode[f.CodeFromArray(data, offset, length)]
	return s, ok
}

// CodeFromArray returns the big-endian numeric code at the window.
func (f *WidthTableFont) CodeFromArray(data []byte, offset, length int) int {
	code := 0
	for i := 0; i < length && offset+i < len(data); i++ {
		code = code<<8 | int(data[offset+i])
	}
	return code
}

// FontWidth returns the advance width for the code at the window.
func (f *WidthTableFont) FontWidth(data []byte, offset, length int) float64 {
	if w, ok := f.Widths[f.CodeFromArray(data, offset, length)]; ok {
		return w
	}
	return f.DefaultWidth
}

// FontHeight returns the glyph height for the code at the window.
func (f *WidthTableFont) FontHeight(data []byte, offset, length int) float64 {
	return f.Heights[f.CodeFromArray(data, offset, length)]
}

// SpaceWidth returns the width of code 0x20.
func (f *WidthTableFont) SpaceWidth() (float64, error) {
	if w, ok := f.Widths[0x20]; ok {
		return w, nil
	}
	return 0, ErrNoSpaceGlyph
}

// AverageFontWidth returns the configured average width, or the mean of
// the width table when not configured.
func (f *WidthTableFont) AverageFontWidth() float64 {
	if f.AverageWidth != 0 {
		return f.AverageWidth
	}
	if len(f.Widths) == 0 {
		return f.DefaultWidth
	}
	total := 0.0
	for _, w := range f.Widths {
		total += w
	}
	return total / float64(len(f.Widths))
}

// FontMatrix returns the font's glyph-space matrix.
func (f *WidthTableFont) FontMatrix() transform.Matrix {
	if f.Type3 {
		return f.Matrix
	}
	return transform.ScaleMatrix(0.001, 0.001)
}

// IsType3 reports whether the font is a Type 3 font.
func (f *WidthTableFont) IsType3() bool {
	return f.Type3
}

// BaseFont returns the font's base name.
func (f *WidthTableFont) BaseFont() string {
	return f.Name
}
