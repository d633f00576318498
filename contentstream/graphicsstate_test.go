/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpdf/quillpdf/core"
	"github.com/quillpdf/quillpdf/internal/transform"
	"github.com/quillpdf/quillpdf/model"
)

func testPageSize() model.PdfRectangle {
	return model.PdfRectangle{Llx: 0, Lly: 0, Urx: 612, Ury: 792}
}

func TestGraphicsStateDefaults(t *testing.T) {
	gs := NewGraphicsState(testPageSize())

	assert.Equal(t, transform.IdentityMatrix(), gs.CTM)
	assert.Equal(t, 100.0, gs.Text.HorizontalScaling)
	assert.Equal(t, RenderModeFill, gs.Text.RenderMode)
	assert.True(t, gs.Text.Knockout)
	assert.Equal(t, 1.0, gs.LineWidth)
	assert.Equal(t, 10.0, gs.MiterLimit)
	assert.Equal(t, "DeviceGray", string(gs.FillColor.Space))
}

// cmpOptions lets go-cmp look inside the clipping path primitive.
func cmpOptions() []cmp.Option {
	return []cmp.Option{
		cmp.AllowUnexported(core.PdfObjectArray{}),
	}
}

func TestGraphicsStateCloneIsolation(t *testing.T) {
	gs := NewGraphicsState(testPageSize())
	gs.Dash = DashPattern{Array: []float64{3, 2}, Phase: 1}
	gs.FillColor = ColorSpec{Space: "DeviceRGB", Components: []float64{0.5, 0.5, 0.5}}
	gs.Text.FontSize = 14
	gs.Text.Font = &model.WidthTableFont{Name: "Test"}

	clone := gs.Clone()
	require.Empty(t, cmp.Diff(gs, clone, cmpOptions()...))

	// Mutating the clone in every shared-looking field leaves the source
	// unchanged.
	clone.CTM.Concat(transform.ScaleMatrix(2, 2))
	clone.Dash.Array[0] = 99
	clone.Dash.Phase = 7
	clone.FillColor.Components[0] = 0.9
	clone.Text.FontSize = 99
	clone.Text.CharSpacing = 5
	clone.LineWidth = 30

	assert.Equal(t, transform.IdentityMatrix(), gs.CTM)
	assert.Equal(t, 3.0, gs.Dash.Array[0])
	assert.Equal(t, 1.0, gs.Dash.Phase)
	assert.Equal(t, 0.5, gs.FillColor.Components[0])
	assert.Equal(t, 14.0, gs.Text.FontSize)
	assert.Equal(t, 0.0, gs.Text.CharSpacing)
	assert.Equal(t, 1.0, gs.LineWidth)
}

func TestSaveRestoreIdentity(t *testing.T) {
	p := NewStreamProcessor()
	p.SetGraphicsState(NewGraphicsState(testPageSize()))

	before := p.GetGraphicsState().Clone()

	p.SaveGraphicsState()
	gs := p.GetGraphicsState()
	gs.CTM.Concat(transform.ScaleMatrix(3, 3))
	gs.Text.FontSize = 44
	gs.Dash = DashPattern{Array: []float64{1}, Phase: 0}
	p.RestoreGraphicsState()

	require.Empty(t, cmp.Diff(before, p.GetGraphicsState(), cmpOptions()...))
	assert.Equal(t, 0, p.GraphicsStackSize())
}

func TestRestoreUnderflow(t *testing.T) {
	p := NewStreamProcessor()
	p.SetGraphicsState(NewGraphicsState(testPageSize()))
	gs := p.GetGraphicsState()

	// Underflow leaves the current state untouched.
	p.RestoreGraphicsState()
	assert.Same(t, gs, p.GetGraphicsState())
	assert.Equal(t, 0, p.GraphicsStackSize())
}
