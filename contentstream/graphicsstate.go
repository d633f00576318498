/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"fmt"

	"github.com/quillpdf/quillpdf/core"
	"github.com/quillpdf/quillpdf/internal/transform"
	"github.com/quillpdf/quillpdf/model"
)

// RenderMode specifies the text rendering mode (Tr operator).
type RenderMode int

// Text rendering modes (Table 106).
const (
	RenderModeFill RenderMode = iota
	RenderModeStroke
	RenderModeFillStroke
	RenderModeInvisible
	RenderModeFillClip
	RenderModeStrokeClip
	RenderModeFillStrokeClip
	RenderModeClip
)

// TextState holds the text state parameters of the graphics state
// (9.3 Text State Parameters and Operators).
// Spacing, leading and rise are expressed in unscaled text space units.
type TextState struct {
	Font        model.Font // Text font.
	FontSize    float64    // Text font size.
	CharSpacing float64    // Character spacing (Tc).
	WordSpacing float64    // Word spacing (Tw).
	// HorizontalScaling adjusts the width of glyphs (Tz). Stored as a
	// percentage; 100 is unscaled.
	HorizontalScaling float64
	Leading           float64    // Leading (TL).
	Rise              float64    // Text rise (Ts).
	RenderMode        RenderMode // Text rendering mode (Tr).
	Knockout          bool       // Text knockout flag (TK entry of ExtGState).
}

// newTextState returns a TextState with the PDF defaults.
func newTextState() TextState {
	return TextState{
		HorizontalScaling: 100,
		RenderMode:        RenderModeFill,
		Knockout:          true,
	}
}

// Clone returns a copy of the text state. TextState holds no shared
// mutable sub-records; the font handle is read-only and shared.
func (ts TextState) Clone() TextState {
	return ts
}

// String returns a description of `ts`.
func (ts TextState) String() string {
	fontName := "[NOT SET]"
	if ts.Font != nil {
		fontName = ts.Font.BaseFont()
	}
	return fmt.Sprintf("tc=%.2f tw=%.2f tfs=%.2f font=%q",
		ts.CharSpacing, ts.WordSpacing, ts.FontSize, fontName)
}

// ColorSpec records the colorspace name and component values of a stroking
// or non-stroking color. This layer tracks color state; it renders nothing.
type ColorSpec struct {
	Space      core.PdfObjectName
	Components []float64
}

// Clone returns a deep copy of the color spec.
func (c ColorSpec) Clone() ColorSpec {
	out := ColorSpec{Space: c.Space}
	if c.Components != nil {
		out.Components = make([]float64, len(c.Components))
		copy(out.Components, c.Components)
	}
	return out
}

// DashPattern is the line dash pattern (d operator).
type DashPattern struct {
	Array []float64
	Phase float64
}

// Clone returns a deep copy of the dash pattern.
func (d DashPattern) Clone() DashPattern {
	out := DashPattern{Phase: d.Phase}
	if d.Array != nil {
		out.Array = make([]float64, len(d.Array))
		copy(out.Array, d.Array)
	}
	return out
}

// GraphicsState is the PDF graphics state (8.4 Graphics State). One current
// instance is live on the processor; q/Q push and pop deep copies.
type GraphicsState struct {
	// CTM is the current transformation matrix mapping user space to
	// device space.
	CTM transform.Matrix

	// Text is the embedded text state.
	Text TextState

	LineWidth  float64
	LineCap    int
	LineJoin   int
	MiterLimit float64
	Dash       DashPattern

	RenderingIntent core.PdfObjectName
	Flatness        float64
	Smoothness      float64

	StrokeColor ColorSpec
	FillColor   ColorSpec

	// ClippingPath references the current clipping path. The reference is
	// shared between clones; the referenced object is treated as
	// immutable (W replaces the reference rather than mutating it).
	ClippingPath core.PdfObject
}

// NewGraphicsState returns a graphics state with PDF defaults, with the
// clipping path covering `pageSize`.
func NewGraphicsState(pageSize model.PdfRectangle) *GraphicsState {
	return &GraphicsState{
		CTM:             transform.IdentityMatrix(),
		Text:            newTextState(),
		LineWidth:       1.0,
		MiterLimit:      10.0,
		RenderingIntent: "RelativeColorimetric",
		Smoothness:      0.02,
		StrokeColor:     ColorSpec{Space: "DeviceGray", Components: []float64{0}},
		FillColor:       ColorSpec{Space: "DeviceGray", Components: []float64{0}},
		ClippingPath: core.MakeArrayFromFloats([]float64{
			pageSize.Llx, pageSize.Lly, pageSize.Urx, pageSize.Ury,
		}),
	}
}

// Clone returns a deep copy of the graphics state: mutating the clone in
// any field leaves the source unchanged.
func (gs *GraphicsState) Clone() *GraphicsState {
	clone := *gs
	clone.Text = gs.Text.Clone()
	clone.Dash = gs.Dash.Clone()
	clone.StrokeColor = gs.StrokeColor.Clone()
	clone.FillColor = gs.FillColor.Clone()
	return &clone
}

// Transform returns coordinates x, y transformed by the CTM.
func (gs *GraphicsState) Transform(x, y float64) (float64, float64) {
	return gs.CTM.Transform(x, y)
}
