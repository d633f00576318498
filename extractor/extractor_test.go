/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpdf/quillpdf/model"
)

func pageSize() model.PdfRectangle {
	return model.PdfRectangle{Urx: 612, Ury: 792}
}

func resourcesWithFont() *model.Resources {
	font := &model.WidthTableFont{
		Name:    "Helv",
		Widths:  map[int]float64{0x41: 500, 0x42: 600, 0x20: 250, 0x66: 300},
		Unicode: map[int]string{0x41: "A", 0x42: "B", 0x20: " ", 0x66: "ﬁ"},
	}
	r := model.NewResources()
	r.SetFontByName("F1", font)
	return r
}

func TestExtractSimpleText(t *testing.T) {
	e := New()
	text, err := e.ExtractText("BT /F1 12 Tf (AB) Tj ET", resourcesWithFont(), pageSize(), 0)
	require.NoError(t, err)
	assert.Equal(t, "AB", text)
	assert.Len(t, e.Positions(), 2)
}

func TestExtractExplicitSpaces(t *testing.T) {
	e := New()
	text, err := e.ExtractText("BT /F1 12 Tf (A B) Tj ET", resourcesWithFont(), pageSize(), 0)
	require.NoError(t, err)
	assert.Equal(t, "A B", text)
}

func TestWordBreakFromPositioningGap(t *testing.T) {
	// No space glyph is shown; the jump in x must become a word break.
	e := New()
	content := "BT /F1 12 Tf (AB) Tj 30 0 Td (AB) Tj ET"
	text, err := e.ExtractText(content, resourcesWithFont(), pageSize(), 0)
	require.NoError(t, err)
	assert.Equal(t, "AB AB", text)
}

func TestWordBreakFromCharSpacing(t *testing.T) {
	// Character spacing widens the advance but not the glyph end
	// position, so the raw gap reveals the break.
	e := New()
	content := "BT /F1 12 Tf 10 Tc (AB) Tj ET"
	text, err := e.ExtractText(content, resourcesWithFont(), pageSize(), 0)
	require.NoError(t, err)
	assert.Equal(t, "A B", text)
}

func TestLineBreakFromLeading(t *testing.T) {
	e := New()
	content := "BT /F1 12 Tf 14 TL (AB) Tj T* (AB) Tj ET"
	text, err := e.ExtractText(content, resourcesWithFont(), pageSize(), 0)
	require.NoError(t, err)
	assert.Equal(t, "AB\nAB", text)
}

func TestLigatureNormalization(t *testing.T) {
	// NFKC decomposes the fi ligature the font decodes to.
	e := New()
	text, err := e.ExtractText("BT /F1 12 Tf (f) Tj ET", resourcesWithFont(), pageSize(), 0)
	require.NoError(t, err)
	assert.Equal(t, "fi", text)
}

func TestExtractorReusableAcrossPages(t *testing.T) {
	e := New()
	text, err := e.ExtractText("BT /F1 12 Tf (AB) Tj ET", resourcesWithFont(), pageSize(), 0)
	require.NoError(t, err)
	assert.Equal(t, "AB", text)

	text, err = e.ExtractText("BT /F1 12 Tf (B) Tj ET", resourcesWithFont(), pageSize(), 0)
	require.NoError(t, err)
	assert.Equal(t, "B", text)
	assert.Len(t, e.Positions(), 1)
}
