/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/quillpdf/quillpdf/common"
	"github.com/quillpdf/quillpdf/core"
	"github.com/quillpdf/quillpdf/internal/transform"
	"github.com/quillpdf/quillpdf/model"
)

// StreamProcessor interprets PDF content streams: it owns the graphics
// state stack, the resource scope stack and the text matrices, dispatches
// operators through its registry, and emits a TextPosition per shown glyph
// to the configured sink.
//
// A StreamProcessor is single threaded. Recursive calls to
// ProcessSubStream on the same instance are supported and required: the Do
// operator re-enters the processor while a parent sub-stream is still
// executing.
type StreamProcessor struct {
	graphicsState *GraphicsState
	graphicsStack []*GraphicsState

	// textMatrix and textLineMatrix are non-nil only between BT and ET.
	textMatrix     *transform.Matrix
	textLineMatrix *transform.Matrix

	resourcesStack []*model.Resources

	registry *OperatorRegistry
	sink     TextPositionSink

	pageRotation int
	drawingRect  model.PdfRectangle
	forceParsing bool

	// unsupported records operators that were reported once already.
	unsupported map[string]struct{}

	disposed bool
}

// NewStreamProcessor returns a processor with the default operator
// registry and a no-op sink.
func NewStreamProcessor() *StreamProcessor {
	return &StreamProcessor{
		graphicsState: NewGraphicsState(model.PdfRectangle{}),
		registry:      DefaultOperatorRegistry(),
		unsupported:   map[string]struct{}{},
	}
}

// NewStreamProcessorFromConfig returns a processor whose registry is built
// from `config`, a mnemonic to builtin-handler-identifier mapping. An
// identifier that does not resolve is a construction error.
func NewStreamProcessorFromConfig(config map[string]string) (*StreamProcessor, error) {
	registry, err := NewOperatorRegistryFromConfig(config)
	if err != nil {
		return nil, err
	}
	return &StreamProcessor{
		graphicsState: NewGraphicsState(model.PdfRectangle{}),
		registry:      registry,
		unsupported:   map[string]struct{}{},
	}, nil
}

// SetTextPositionSink sets the sink receiving TextPositions. A nil sink
// discards emissions.
func (p *StreamProcessor) SetTextPositionSink(sink TextPositionSink) {
	p.sink = sink
}

// SetForceParsing asks downstream token parsing to recover from malformed
// input instead of failing the page.
func (p *StreamProcessor) SetForceParsing(force bool) {
	p.forceParsing = force
}

// ForceParsing reports whether force parsing is enabled.
func (p *StreamProcessor) ForceParsing() bool {
	return p.forceParsing
}

// ProcessStream interprets a page content stream. It initialises the
// drawing rectangle and rotation, resets the graphics state to the PDF
// defaults scoped to `pageSize`, clears both stacks and the text matrices,
// then executes `it` as the top-level sub-stream against `resources`.
func (p *StreamProcessor) ProcessStream(resources *model.Resources, it TokenIterator,
	pageSize model.PdfRectangle, rotation int) error {
	if p.disposed {
		return ErrDisposed
	}
	p.drawingRect = pageSize
	p.pageRotation = rotation
	p.graphicsState = NewGraphicsState(pageSize)
	p.graphicsStack = nil
	p.resourcesStack = nil
	p.textMatrix = nil
	p.textLineMatrix = nil

	return p.ProcessSubStream(resources, it)
}

// ProcessContent parses and interprets raw page content. Convenience
// wrapper around ProcessStream with a parser-backed token iterator.
func (p *StreamProcessor) ProcessContent(resources *model.Resources, content string,
	pageSize model.PdfRectangle, rotation int) error {
	parser := NewContentStreamParser(content)
	parser.SetForceParsing(p.forceParsing)
	return p.ProcessStream(resources, parser.TokenIterator(), pageSize, rotation)
}

// ProcessSubStream executes one (sub-)stream against `resources`. The
// scope is pushed for the duration of the stream and popped on every exit
// path, normal return or propagated error. The Do handler calls this
// recursively for form XObjects; no built-in handler runs Type 3 glyph
// procedures.
func (p *StreamProcessor) ProcessSubStream(resources *model.Resources, it TokenIterator) error {
	if p.disposed {
		return ErrDisposed
	}
	if resources != nil {
		p.resourcesStack = append(p.resourcesStack, resources)
		defer func() {
			p.resourcesStack = p.resourcesStack[:len(p.resourcesStack)-1]
		}()
	}
	return p.processTokens(it)
}

// processTokens is the interpretation loop: operand tokens accumulate into
// a buffer until an operator token dispatches them. Indirect references
// are dereferenced before accumulation. The iterator is closed on all exit
// paths.
func (p *StreamProcessor) processTokens(it TokenIterator) error {
	defer it.Close()

	var params []core.PdfObject
	for {
		tok, err := it.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if p.forceParsing {
				common.Log.Warning("Token stream error, abandoning rest of sub-stream: %v", err)
				return nil
			}
			return xerrors.Errorf("token stream: %w", err)
		}

		if !tok.IsOperator {
			params = append(params, core.TraceToDirectObject(tok.Obj))
			continue
		}

		op := &Operation{Operand: tok.Operand, Params: params}
		params = nil
		if err := p.processOperator(op); err != nil {
			return err
		}
	}
}

// processOperator resolves and runs the handler for `op`. Unknown
// operators are reported once per run and skipped. Handler errors
// propagate so that nested sub-streams unwind.
func (p *StreamProcessor) processOperator(op *Operation) error {
	if p.registry == nil {
		return ErrDisposed
	}
	if p.registry.IsDisabled(op.Operand) {
		return nil
	}
	handler, has := p.registry.Lookup(op.Operand)
	if !has {
		if _, reported := p.unsupported[op.Operand]; !reported {
			p.unsupported[op.Operand] = struct{}{}
			common.Log.Debug("Unsupported operator %#q - skipping", op.Operand)
		}
		return nil
	}
	return handler(p, op)
}

// ProcessOperator runs a single operator by mnemonic with `params`. This
// is the public entry point for callers outside the interpretation loop;
// unlike sub-stream dispatch it catches handler errors and logs them as
// warnings.
func (p *StreamProcessor) ProcessOperator(operand string, params []core.PdfObject) {
	if err := p.processOperator(&Operation{Operand: operand, Params: params}); err != nil {
		common.Log.Warning("Operator %#q failed: %v", operand, err)
	}
}

// RegisterOperatorProcessor binds `handler` to `mnemonic`, replacing any
// existing binding.
func (p *StreamProcessor) RegisterOperatorProcessor(mnemonic string, handler OperatorFunc) {
	if p.registry == nil {
		common.Log.Debug("ERROR: register on disposed processor")
		return
	}
	p.registry.Register(mnemonic, handler)
}

// SaveGraphicsState pushes a deep clone of the current graphics state onto
// the stack. The current state stays directly mutable.
func (p *StreamProcessor) SaveGraphicsState() {
	p.graphicsStack = append(p.graphicsStack, p.graphicsState.Clone())
}

// RestoreGraphicsState pops the topmost saved state and makes it current.
// Underflow is reported and leaves the state unchanged.
func (p *StreamProcessor) RestoreGraphicsState() {
	n := len(p.graphicsStack)
	if n == 0 {
		common.Log.Debug("WARN: invalid restore. Graphics state stack is empty - skipping")
		return
	}
	p.graphicsState = p.graphicsStack[n-1]
	p.graphicsStack = p.graphicsStack[:n-1]
}

// GraphicsStackSize returns the number of saved graphics states.
func (p *StreamProcessor) GraphicsStackSize() int {
	return len(p.graphicsStack)
}

// GetGraphicsState returns the current graphics state.
func (p *StreamProcessor) GetGraphicsState() *GraphicsState {
	return p.graphicsState
}

// SetGraphicsState replaces the current graphics state.
func (p *StreamProcessor) SetGraphicsState(gs *GraphicsState) {
	p.graphicsState = gs
}

// GetTextMatrix returns the text matrix, nil outside a text object.
func (p *StreamProcessor) GetTextMatrix() *transform.Matrix {
	return p.textMatrix
}

// SetTextMatrix sets the text matrix.
func (p *StreamProcessor) SetTextMatrix(m *transform.Matrix) {
	p.textMatrix = m
}

// GetTextLineMatrix returns the text line matrix, nil outside a text
// object.
func (p *StreamProcessor) GetTextLineMatrix() *transform.Matrix {
	return p.textLineMatrix
}

// SetTextLineMatrix sets the text line matrix.
func (p *StreamProcessor) SetTextLineMatrix(m *transform.Matrix) {
	p.textLineMatrix = m
}

// PageRotation returns the rotation passed to ProcessStream, in degrees.
func (p *StreamProcessor) PageRotation() int {
	return p.pageRotation
}

// DrawingRectangle returns the page size passed to ProcessStream.
func (p *StreamProcessor) DrawingRectangle() model.PdfRectangle {
	return p.drawingRect
}

// GetResources returns the resource scope of the currently executing
// sub-stream, or nil if no scope is on the stack.
func (p *StreamProcessor) GetResources() *model.Resources {
	if len(p.resourcesStack) == 0 {
		return nil
	}
	return p.resourcesStack[len(p.resourcesStack)-1]
}

// GetFonts returns the font map of the current scope. Queries on an empty
// scope stack return an empty map.
func (p *StreamProcessor) GetFonts() map[core.PdfObjectName]model.Font {
	r := p.GetResources()
	if r == nil {
		return map[core.PdfObjectName]model.Font{}
	}
	return r.Fonts()
}

// SetFonts replaces the font map of the current scope. With no scope on
// the stack the call is reported and ignored.
func (p *StreamProcessor) SetFonts(fonts map[core.PdfObjectName]model.Font) {
	r := p.GetResources()
	if r == nil {
		common.Log.Debug("SetFonts with no resource scope - ignoring")
		return
	}
	r.SetFonts(fonts)
}

// GetXObjects returns the XObject map of the current scope. Queries on an
// empty scope stack return an empty map.
func (p *StreamProcessor) GetXObjects() map[core.PdfObjectName]*model.XObject {
	r := p.GetResources()
	if r == nil {
		return map[core.PdfObjectName]*model.XObject{}
	}
	return r.XObjects()
}

// GetGraphicsStates returns the extended graphics state map of the current
// scope. Queries on an empty scope stack return an empty map.
func (p *StreamProcessor) GetGraphicsStates() map[core.PdfObjectName]*core.PdfObjectDictionary {
	r := p.GetResources()
	if r == nil {
		return map[core.PdfObjectName]*core.PdfObjectDictionary{}
	}
	return r.ExtGStates()
}

// SetGraphicsStates replaces the extended graphics state map of the
// current scope. With no scope on the stack the call is reported and
// ignored.
func (p *StreamProcessor) SetGraphicsStates(states map[core.PdfObjectName]*core.PdfObjectDictionary) {
	r := p.GetResources()
	if r == nil {
		common.Log.Debug("SetGraphicsStates with no resource scope - ignoring")
		return
	}
	r.SetExtGStates(states)
}

// ResourceStackDepth returns the depth of the resource scope stack.
func (p *StreamProcessor) ResourceStackDepth() int {
	return len(p.resourcesStack)
}

// Reset flushes per-document state so the processor can run another
// document: the unsupported-operator set, both stacks and the text
// matrices. Registered handlers survive.
func (p *StreamProcessor) Reset() {
	p.unsupported = map[string]struct{}{}
	p.graphicsState = NewGraphicsState(model.PdfRectangle{})
	p.graphicsStack = nil
	p.resourcesStack = nil
	p.textMatrix = nil
	p.textLineMatrix = nil
}

// Dispose drops all stacks and handler registrations. The processor is
// unusable afterwards.
func (p *StreamProcessor) Dispose() {
	p.Reset()
	p.registry = nil
	p.sink = nil
	p.unsupported = nil
	p.disposed = true
}

// spaceWidthOf asks the font for its space width, containing panics from
// font implementations, which vary in quality.
func spaceWidthOf(font model.Font) (width float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			common.Log.Debug("Font space width panic: %v", r)
			err = model.ErrNoSpaceGlyph
		}
	}()
	return font.SpaceWidth()
}

// glyphSpaceToTextSpaceFactor is the standard glyph unit scaling for
// everything but Type 3 fonts.
const glyphSpaceToTextSpaceFactor = 1.0 / 1000.0

// ShowEncodedText shows an encoded glyph run in the current font,
// producing one TextPosition per code. This is the arithmetic core of the
// processor: per code it decodes the bytes, derives the start and end
// display matrices, advances the text matrix by the spaced displacement
// and emits the resolved geometry to the sink.
func (p *StreamProcessor) ShowEncodedText(data []byte) error {
	if p.disposed {
		return ErrDisposed
	}
	if p.textMatrix == nil || p.textLineMatrix == nil {
		// Text outside BT/ET. Recover with identity matrices so the rest
		// of the page still extracts.
		common.Log.Debug("Text showing outside of a text object - recovering")
		tm := transform.IdentityMatrix()
		tlm := transform.IdentityMatrix()
		p.textMatrix = &tm
		p.textLineMatrix = &tlm
	}

	state := &p.graphicsState.Text
	font := state.Font
	if font == nil {
		common.Log.Debug("ERROR: No font set before text showing - skipping run")
		return nil
	}

	fontSize := state.FontSize
	th := state.HorizontalScaling / 100.0

	// Glyph space scaling: 1/1000 except for Type 3 fonts, which carry
	// their own font matrix.
	fontMatrixXScaling := glyphSpaceToTextSpaceFactor
	fontMatrixYScaling := glyphSpaceToTextSpaceFactor
	glyphToText := glyphSpaceToTextSpaceFactor
	if font.IsType3() {
		fm := font.FontMatrix()
		if fm[0] == 0 {
			common.Log.Debug("ERROR: Type 3 font %q with zero x-scale font matrix - using 1/1000",
				font.BaseFont())
		} else {
			fontMatrixXScaling = fm[0]
			fontMatrixYScaling = fm[4]
			glyphToText = 1.0 / fm[0]
		}
	}

	// Space width hint with fallbacks for fonts that have no space glyph
	// or report a zero width.
	spaceWidthText := 0.0
	if sw, err := spaceWidthOf(font); err == nil {
		spaceWidthText = sw * glyphToText
	}
	if spaceWidthText == 0 {
		spaceWidthText = font.AverageFontWidth() * glyphToText * 0.80
	}
	if spaceWidthText == 0 {
		spaceWidthText = 1.0
	}

	// Text space is converted to device space by this transform (9.4.4):
	//        | Tfs x Th   0      0 |
	// Trm  = | 0         Tfs     0 | × Tm × CTM
	//        | 0         Trise   1 |
	stateMatrix := transform.NewMatrix(
		fontSize*th, 0,
		0, fontSize,
		0, state.Rise)

	maxVerticalDisplacement := 0.0

	for i := 0; i < len(data); {
		length := 1
		decoded, ok := font.Encode(data, i, length)
		if !ok && i+1 < len(data) {
			// Try a two byte code.
			length = 2
			decoded, ok = font.Encode(data, i, length)
		}
		code := font.CodeFromArray(data, i, length)
		if !ok {
			common.Log.Trace("No unicode mapping for code %d - substituting '?'", code)
			decoded = "?"
		}

		textXctm := p.graphicsState.CTM.Mult(*p.textMatrix)

		spaceWidthDisp := spaceWidthText * fontSize * th *
			p.textMatrix.ScalingFactorX() * p.graphicsState.CTM.ScalingFactorX()

		// Displacement in text space.
		dxText := font.FontWidth(data, i, length) * fontMatrixXScaling
		dyText := font.FontHeight(data, i, length) * fontMatrixYScaling
		if dyText > maxVerticalDisplacement {
			maxVerticalDisplacement = dyText
		}

		// Word spacing applies to single byte code 32 only (9.3.3).
		wordSpacing := 0.0
		if length == 1 && data[i] == 0x20 {
			wordSpacing = state.WordSpacing
		}

		// Start of glyph in display space. The instance is handed to the
		// sink and never reused.
		textMatrixStart := textXctm.Mult(stateMatrix)

		// End of glyph, excluding the character and word spacing so the
		// raw inter-glyph gap survives for word-break detection.
		td := transform.TranslationMatrix(dxText*fontSize*th, 0)
		textMatrixEnd := textXctm.Mult(td).Mult(stateMatrix)
		endX := textMatrixEnd.XPosition()
		endY := textMatrixEnd.YPosition()

		// Advance the text matrix, spacing included.
		// TODO(vertical writing): swap tx into ty for fonts with vertical
		// writing mode; WMode is not surfaced by the Font capability yet.
		tx := (dxText*fontSize + state.CharSpacing + wordSpacing) * th
		p.textMatrix.Concat(transform.TranslationMatrix(tx, 0))

		widthText := endX - textMatrixStart.XPosition()
		totalVertDisp := maxVerticalDisplacement * fontSize * textXctm.ScalingFactorY()

		if p.sink != nil {
			p.sink.OnTextPosition(&TextPosition{
				PageRotation:         p.pageRotation,
				PageWidth:            p.drawingRect.Width(),
				PageHeight:           p.drawingRect.Height(),
				TextMatrix:           textMatrixStart.Clone(),
				EndX:                 endX,
				EndY:                 endY,
				VerticalDisplacement: totalVertDisp,
				Width:                widthText,
				SpaceWidth:           spaceWidthDisp,
				Text:                 decoded,
				CodePoints:           []int{code},
				Font:                 font,
				FontSize:             fontSize,
				FontSizePx:           fontSize * textXctm.ScalingFactorX(),
			})
		}

		i += length
	}

	return nil
}
