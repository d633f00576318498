/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package extractor turns the content stream processor's TextPosition
// emissions into plain page text.
package extractor

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/quillpdf/quillpdf/contentstream"
	"github.com/quillpdf/quillpdf/model"
)

// wordGapFraction is the fraction of the space-width hint the raw
// inter-glyph gap must exceed before a word break is inserted.
const wordGapFraction = 0.3

// lineGapFraction is the fraction of the effective font size the vertical
// jump between consecutive glyphs must exceed before a line break is
// inserted.
const lineGapFraction = 0.5

// Extractor extracts text from page content streams. It drives a
// StreamProcessor and collects the emitted TextPositions.
type Extractor struct {
	processor *contentstream.StreamProcessor
	positions []*contentstream.TextPosition
}

// New returns an Extractor backed by a default StreamProcessor.
func New() *Extractor {
	e := &Extractor{processor: contentstream.NewStreamProcessor()}
	e.processor.SetTextPositionSink(contentstream.TextPositionFunc(e.onTextPosition))
	return e
}

// Processor exposes the underlying processor, e.g. to register extra
// operator handlers or toggle force parsing before extraction.
func (e *Extractor) Processor() *contentstream.StreamProcessor {
	return e.processor
}

func (e *Extractor) onTextPosition(tp *contentstream.TextPosition) {
	e.positions = append(e.positions, tp)
}

// ExtractText interprets `content` against `resources` and returns the
// page text. Recoverable stream damage still yields the text shown before
// the failure, alongside the error.
func (e *Extractor) ExtractText(content string, resources *model.Resources,
	pageSize model.PdfRectangle, rotation int) (string, error) {
	e.positions = nil
	err := e.processor.ProcessContent(resources, content, pageSize, rotation)
	return e.assemble(), err
}

// Positions returns the TextPositions collected by the last ExtractText
// call, in emission order, for callers that need geometry.
func (e *Extractor) Positions() []*contentstream.TextPosition {
	return e.positions
}

// assemble joins the collected glyphs into text, inserting word breaks
// where the raw inter-glyph gap exceeds a fraction of the space width and
// line breaks on vertical jumps. The gap is measured from the previous
// glyph's spacing-free end position, which is what makes gaps produced by
// Tc/Tw detectable.
func (e *Extractor) assemble() string {
	var b strings.Builder
	var prev *contentstream.TextPosition
	for _, tp := range e.positions {
		if tp.Text == "" {
			continue
		}
		if prev != nil {
			if lineBreakBetween(prev, tp) {
				b.WriteString("\n")
			} else if wordBreakBetween(prev, tp) {
				b.WriteString(" ")
			}
		}
		b.WriteString(tp.Text)
		prev = tp
	}
	return norm.NFKC.String(b.String())
}

func lineBreakBetween(prev, cur *contentstream.TextPosition) bool {
	threshold := lineGapFraction * cur.FontSizePx
	if threshold <= 0 {
		threshold = 1.0
	}
	return math.Abs(cur.TextMatrix.YPosition()-prev.TextMatrix.YPosition()) > threshold
}

func wordBreakBetween(prev, cur *contentstream.TextPosition) bool {
	if strings.HasSuffix(prev.Text, " ") || strings.HasPrefix(cur.Text, " ") {
		return false
	}
	gap := cur.TextMatrix.XPosition() - prev.EndX
	spaceWidth := cur.SpaceWidth
	if spaceWidth <= 0 {
		return false
	}
	return gap > wordGapFraction*spaceWidth
}
