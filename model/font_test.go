/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpdf/quillpdf/internal/transform"
)

func TestWidthTableFontCodes(t *testing.T) {
	font := &WidthTableFont{
		Name:         "Test",
		Widths:       map[int]float64{0x41: 500, 0x20: 250},
		Unicode:      map[int]string{0x41: "A", 0x20: " "},
		DefaultWidth: 400,
	}

	data := []byte{0x41, 0x20, 0x42}

	s, ok := font.Encode(data, 0, 1)
	require.True(t, ok)
	assert.Equal(t, "A", s)

	_, ok = font.Encode(data, 2, 1)
	assert.False(t, ok)

	assert.Equal(t, 0x41, font.CodeFromArray(data, 0, 1))
	assert.Equal(t, 0x4120, font.CodeFromArray(data, 0, 2))

	assert.Equal(t, 500.0, font.FontWidth(data, 0, 1))
	assert.Equal(t, 400.0, font.FontWidth(data, 2, 1))
}

func TestWidthTableFontSpaceWidth(t *testing.T) {
	font := &WidthTableFont{Widths: map[int]float64{0x20: 250}}
	w, err := font.SpaceWidth()
	require.NoError(t, err)
	assert.Equal(t, 250.0, w)

	noSpace := &WidthTableFont{Widths: map[int]float64{0x41: 500}}
	_, err = noSpace.SpaceWidth()
	assert.ErrorIs(t, err, ErrNoSpaceGlyph)
}

func TestWidthTableFontAverageWidth(t *testing.T) {
	font := &WidthTableFont{Widths: map[int]float64{1: 100, 2: 300}}
	assert.Equal(t, 200.0, font.AverageFontWidth())

	configured := &WidthTableFont{AverageWidth: 512}
	assert.Equal(t, 512.0, configured.AverageFontWidth())
}

func TestWidthTableFontMatrix(t *testing.T) {
	standard := &WidthTableFont{}
	fm := standard.FontMatrix()
	assert.Equal(t, 0.001, fm[0])
	assert.Equal(t, 0.001, fm[4])
	assert.False(t, standard.IsType3())

	type3 := &WidthTableFont{
		Type3:  true,
		Matrix: transform.ScaleMatrix(0.002, 0.002),
	}
	fm = type3.FontMatrix()
	assert.Equal(t, 0.002, fm[0])
	assert.True(t, type3.IsType3())
}
