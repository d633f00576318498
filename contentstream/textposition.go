/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"fmt"

	"github.com/quillpdf/quillpdf/internal/transform"
	"github.com/quillpdf/quillpdf/model"
)

// TextPosition describes one shown glyph with its fully resolved
// display-space geometry. The processor emits one TextPosition per code
// consumed by a text-showing operator.
type TextPosition struct {
	// PageRotation is the page rotation in degrees.
	PageRotation int

	// PageWidth and PageHeight are the page dimensions in user space.
	PageWidth  float64
	PageHeight float64

	// TextMatrix is the start-of-glyph matrix in display space. Each
	// emission carries a distinct instance; consumers may retain it.
	TextMatrix transform.Matrix

	// EndX, EndY give the end-of-glyph position in display space. The
	// character and word spacing contributions are excluded so that the
	// raw inter-glyph gap survives for word-break detection.
	EndX float64
	EndY float64

	// VerticalDisplacement is the total vertical displacement of the run
	// so far, in display units.
	VerticalDisplacement float64

	// Width is EndX minus the start x position of TextMatrix, in display
	// space; character and word spacing are excluded.
	Width float64

	// SpaceWidth is the width of a space in this font, in display units.
	// A hint for consumers segmenting words.
	SpaceWidth float64

	// Text is the decoded Unicode string for the code. Codes that fail to
	// decode carry "?".
	Text string

	// CodePoints holds the raw character code(s) for the emission.
	CodePoints []int

	// Font is the font the glyph was shown with.
	Font model.Font

	// FontSize is the font size from the text state.
	FontSize float64

	// FontSizePx is the effective font size in display units.
	FontSizePx float64
}

// String returns a string describing `tp`.
func (tp *TextPosition) String() string {
	return fmt.Sprintf("{TextPosition: %q (%.2f,%.2f)-(%.2f,%.2f) w=%.2f size=%.2f}",
		tp.Text, tp.TextMatrix.XPosition(), tp.TextMatrix.YPosition(), tp.EndX, tp.EndY,
		tp.Width, tp.FontSize)
}

// TextPositionSink receives TextPositions as the processor shows text.
// OnTextPosition is called synchronously, in glyph order within each
// showing operator and in operator order across the stream.
type TextPositionSink interface {
	OnTextPosition(tp *TextPosition)
}

// TextPositionFunc adapts a function to the TextPositionSink interface.
type TextPositionFunc func(tp *TextPosition)

// OnTextPosition implements TextPositionSink.
func (f TextPositionFunc) OnTextPosition(tp *TextPosition) {
	f(tp)
}
