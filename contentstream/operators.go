/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"golang.org/x/xerrors"

	"github.com/quillpdf/quillpdf/common"
	"github.com/quillpdf/quillpdf/core"
	"github.com/quillpdf/quillpdf/internal/transform"
	"github.com/quillpdf/quillpdf/model"
)

// OperatorFunc is a content stream operator handler. Handlers read the
// operation's parameters and call back into the processor.
type OperatorFunc func(p *StreamProcessor, op *Operation) error

// OperatorRegistry maps operator mnemonics to handlers. Operators can also
// be disabled, which makes the processor skip them silently instead of
// reporting them as unsupported.
type OperatorRegistry struct {
	handlers map[string]OperatorFunc
	disabled map[string]struct{}
}

// NewOperatorRegistry returns an empty registry.
func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{
		handlers: map[string]OperatorFunc{},
		disabled: map[string]struct{}{},
	}
}

// Register binds `handler` to `mnemonic`, clearing a disable if present.
func (r *OperatorRegistry) Register(mnemonic string, handler OperatorFunc) {
	delete(r.disabled, mnemonic)
	r.handlers[mnemonic] = handler
}

// Disable records `mnemonic` as silently ignored.
func (r *OperatorRegistry) Disable(mnemonic string) {
	delete(r.handlers, mnemonic)
	r.disabled[mnemonic] = struct{}{}
}

// Lookup returns the handler for `mnemonic` if one is registered.
func (r *OperatorRegistry) Lookup(mnemonic string) (OperatorFunc, bool) {
	handler, has := r.handlers[mnemonic]
	return handler, has
}

// IsDisabled reports whether `mnemonic` is silently ignored.
func (r *OperatorRegistry) IsDisabled(mnemonic string) bool {
	_, disabled := r.disabled[mnemonic]
	return disabled
}

// builtinHandlers is the compile-time table configuration identifiers
// resolve against. Identifiers, not Go symbols, so that configurations are
// stable across refactors.
var builtinHandlers = map[string]OperatorFunc{
	"graphics_save":        opSaveGraphicsState,
	"graphics_restore":     opRestoreGraphicsState,
	"graphics_concat":      opConcatMatrix,
	"graphics_ext_state":   opSetExtGState,
	"graphics_line_width":  opSetLineWidth,
	"graphics_line_cap":    opSetLineCap,
	"graphics_line_join":   opSetLineJoin,
	"graphics_miter_limit": opSetMiterLimit,
	"graphics_dash":        opSetDash,
	"graphics_intent":      opSetRenderingIntent,
	"graphics_flatness":    opSetFlatness,
	"color_fill":           opSetFillColor,
	"color_stroke":         opSetStrokeColor,
	"color_fill_space":     opSetFillColorSpace,
	"color_stroke_space":   opSetStrokeColorSpace,
	"text_begin":           opBeginText,
	"text_end":             opEndText,
	"text_font":            opSetFont,
	"text_char_spacing":    opSetCharSpacing,
	"text_word_spacing":    opSetWordSpacing,
	"text_scaling":         opSetHorizontalScaling,
	"text_leading":         opSetLeading,
	"text_rise":            opSetRise,
	"text_render_mode":     opSetRenderMode,
	"text_move":            opMoveText,
	"text_move_leading":    opMoveTextSetLeading,
	"text_matrix":          opSetTextMatrix,
	"text_next_line":       opNextLine,
	"text_show":            opShowText,
	"text_show_line":       opShowTextLine,
	"text_show_spaced":     opShowTextLineSpaced,
	"text_show_adjusted":   opShowTextAdjusted,
	"xobject_do":           opDo,
	"type3_width":          opType3Metrics,
	"type3_width_bbox":     opType3Metrics,
	"inline_image":         opInlineImage,
}

// DefaultOperatorConfig returns the default operator configuration:
// mnemonic to builtin handler identifier, with the empty string marking
// operators that are recognised but silently ignored (path construction
// and painting, clipping, marked content).
func DefaultOperatorConfig() map[string]string {
	config := map[string]string{
		"q":   "graphics_save",
		"Q":   "graphics_restore",
		"cm":  "graphics_concat",
		"gs":  "graphics_ext_state",
		"w":   "graphics_line_width",
		"J":   "graphics_line_cap",
		"j":   "graphics_line_join",
		"M":   "graphics_miter_limit",
		"d":   "graphics_dash",
		"ri":  "graphics_intent",
		"i":   "graphics_flatness",
		"g":   "color_fill",
		"rg":  "color_fill",
		"k":   "color_fill",
		"sc":  "color_fill",
		"scn": "color_fill",
		"G":   "color_stroke",
		"RG":  "color_stroke",
		"K":   "color_stroke",
		"SC":  "color_stroke",
		"SCN": "color_stroke",
		"cs":  "color_fill_space",
		"CS":  "color_stroke_space",
		"BT":  "text_begin",
		"ET":  "text_end",
		"Tf":  "text_font",
		"Tc":  "text_char_spacing",
		"Tw":  "text_word_spacing",
		"Tz":  "text_scaling",
		"TL":  "text_leading",
		"Ts":  "text_rise",
		"Tr":  "text_render_mode",
		"Td":  "text_move",
		"TD":  "text_move_leading",
		"Tm":  "text_matrix",
		"T*":  "text_next_line",
		"Tj":  "text_show",
		"'":   "text_show_line",
		`"`:   "text_show_spaced",
		"TJ":  "text_show_adjusted",
		"Do":  "xobject_do",
		"d0":  "type3_width",
		"d1":  "type3_width_bbox",
		"BI":  "inline_image",
	}
	// Path construction/painting, clipping and marked content produce no
	// text; recognised so they are not reported as unsupported.
	for _, mnemonic := range []string{
		"m", "l", "c", "v", "y", "h", "re",
		"S", "s", "f", "F", "f*", "B", "B*", "b", "b*", "n",
		"W", "W*", "sh",
		"BMC", "BDC", "EMC", "MP", "DP", "BX", "EX",
	} {
		config[mnemonic] = ""
	}
	return config
}

// NewOperatorRegistryFromConfig builds a registry from a mnemonic to
// handler-identifier mapping. The empty identifier disables the operator;
// identifiers that do not resolve against the builtin table are a
// construction error.
func NewOperatorRegistryFromConfig(config map[string]string) (*OperatorRegistry, error) {
	registry := NewOperatorRegistry()
	for mnemonic, identifier := range config {
		if identifier == "" {
			registry.Disable(mnemonic)
			continue
		}
		handler, has := builtinHandlers[identifier]
		if !has {
			return nil, xerrors.Errorf("operator %#q: unknown handler identifier %q", mnemonic, identifier)
		}
		registry.Register(mnemonic, handler)
	}
	return registry, nil
}

// DefaultOperatorRegistry returns a registry seeded with every builtin
// handler.
func DefaultOperatorRegistry() *OperatorRegistry {
	registry, err := NewOperatorRegistryFromConfig(DefaultOperatorConfig())
	if err != nil {
		// The default table resolves by construction.
		panic(err)
	}
	return registry
}

// checkParams returns an error if `op` does not carry exactly `count`
// parameters.
func checkParams(op *Operation, count int) error {
	if len(op.Params) != count {
		common.Log.Debug("ERROR: %#q should have %d input params, got %d %+v",
			op.Operand, count, len(op.Params), op.Params)
		return core.ErrRangeError
	}
	return nil
}

// floatParam returns the single numeric parameter of `op`.
func floatParam(op *Operation) (float64, error) {
	if err := checkParams(op, 1); err != nil {
		return 0, err
	}
	return core.GetNumberAsFloat(op.Params[0])
}

//
// Graphics state operators.
//

// q: push the current graphics state.
func opSaveGraphicsState(p *StreamProcessor, op *Operation) error {
	p.SaveGraphicsState()
	return nil
}

// Q: pop the graphics state.
func opRestoreGraphicsState(p *StreamProcessor, op *Operation) error {
	p.RestoreGraphicsState()
	return nil
}

// cm: concatenate an affine transform to the CTM.
func opConcatMatrix(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 6); err != nil {
		return err
	}
	f, err := core.GetNumbersAsFloat(op.Params)
	if err != nil {
		return err
	}
	m := transform.NewMatrix(f[0], f[1], f[2], f[3], f[4], f[5])
	p.graphicsState.CTM.Concat(m)
	return nil
}

// gs: apply a named extended graphics state dictionary.
func opSetExtGState(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	name, ok := core.GetName(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	dict, has := p.GetGraphicsStates()[*name]
	if !has {
		common.Log.Debug("ExtGState %#q not in resources - skipping", *name)
		return nil
	}

	gs := p.graphicsState
	for _, key := range dict.Keys() {
		val := dict.Get(key)
		switch key {
		case "LW":
			if v, err := core.GetNumberAsFloat(val); err == nil {
				gs.LineWidth = v
			}
		case "LC":
			if v, ok := core.GetIntVal(val); ok {
				gs.LineCap = v
			}
		case "LJ":
			if v, ok := core.GetIntVal(val); ok {
				gs.LineJoin = v
			}
		case "ML":
			if v, err := core.GetNumberAsFloat(val); err == nil {
				gs.MiterLimit = v
			}
		case "D":
			if arr, ok := core.GetArray(val); ok && arr.Len() == 2 {
				dashes, ok := core.GetArray(arr.Get(0))
				phase, err := core.GetNumberAsFloat(arr.Get(1))
				if ok && err == nil {
					if vals, err := dashes.ToFloat64Array(); err == nil {
						gs.Dash = DashPattern{Array: vals, Phase: phase}
					}
				}
			}
		case "RI":
			if v, ok := core.GetName(val); ok {
				gs.RenderingIntent = *v
			}
		case "FL":
			if v, err := core.GetNumberAsFloat(val); err == nil {
				gs.Flatness = v
			}
		case "SM":
			if v, err := core.GetNumberAsFloat(val); err == nil {
				gs.Smoothness = v
			}
		case "TK":
			if v, ok := core.GetBoolVal(val); ok {
				gs.Text.Knockout = v
			}
		case "Font":
			// The Font entry references a font dictionary directly, not a
			// resource name; resolving it needs the document layer.
			common.Log.Debug("ExtGState Font entry not supported - skipping")
		default:
			common.Log.Trace("ExtGState entry %#q not tracked", key)
		}
	}
	return nil
}

// w: set line width.
func opSetLineWidth(p *StreamProcessor, op *Operation) error {
	v, err := floatParam(op)
	if err != nil {
		return err
	}
	p.graphicsState.LineWidth = v
	return nil
}

// J: set line cap style.
func opSetLineCap(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	v, ok := core.GetIntVal(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	p.graphicsState.LineCap = v
	return nil
}

// j: set line join style.
func opSetLineJoin(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	v, ok := core.GetIntVal(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	p.graphicsState.LineJoin = v
	return nil
}

// M: set miter limit.
func opSetMiterLimit(p *StreamProcessor, op *Operation) error {
	v, err := floatParam(op)
	if err != nil {
		return err
	}
	p.graphicsState.MiterLimit = v
	return nil
}

// d: set line dash pattern.
func opSetDash(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 2); err != nil {
		return err
	}
	arr, ok := core.GetArray(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	phase, err := core.GetNumberAsFloat(op.Params[1])
	if err != nil {
		return err
	}
	vals, err := arr.ToFloat64Array()
	if err != nil {
		return err
	}
	p.graphicsState.Dash = DashPattern{Array: vals, Phase: phase}
	return nil
}

// ri: set rendering intent.
func opSetRenderingIntent(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	name, ok := core.GetName(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	p.graphicsState.RenderingIntent = *name
	return nil
}

// i: set flatness tolerance.
func opSetFlatness(p *StreamProcessor, op *Operation) error {
	v, err := floatParam(op)
	if err != nil {
		return err
	}
	p.graphicsState.Flatness = v
	return nil
}

//
// Color operators. This layer tracks color state only; nothing is
// rendered.
//

func colorSpecFromOp(op *Operation) ColorSpec {
	spec := ColorSpec{}
	for _, param := range op.Params {
		if v, err := core.GetNumberAsFloat(param); err == nil {
			spec.Components = append(spec.Components, v)
		} else if name, ok := core.GetName(param); ok {
			// Pattern name (scn/SCN).
			spec.Space = *name
		}
	}
	switch op.Operand {
	case "g", "G":
		spec.Space = "DeviceGray"
	case "rg", "RG":
		spec.Space = "DeviceRGB"
	case "k", "K":
		spec.Space = "DeviceCMYK"
	}
	return spec
}

// g, rg, k, sc, scn: set non-stroking color.
func opSetFillColor(p *StreamProcessor, op *Operation) error {
	spec := colorSpecFromOp(op)
	if spec.Space == "" {
		spec.Space = p.graphicsState.FillColor.Space
	}
	p.graphicsState.FillColor = spec
	return nil
}

// G, RG, K, SC, SCN: set stroking color.
func opSetStrokeColor(p *StreamProcessor, op *Operation) error {
	spec := colorSpecFromOp(op)
	if spec.Space == "" {
		spec.Space = p.graphicsState.StrokeColor.Space
	}
	p.graphicsState.StrokeColor = spec
	return nil
}

// cs: set non-stroking colorspace.
func opSetFillColorSpace(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	name, ok := core.GetName(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	p.graphicsState.FillColor = ColorSpec{Space: *name}
	return nil
}

// CS: set stroking colorspace.
func opSetStrokeColorSpace(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	name, ok := core.GetName(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	p.graphicsState.StrokeColor = ColorSpec{Space: *name}
	return nil
}

//
// Text object and text state operators.
//

// BT: begin a text object, initializing the text matrix and the text line
// matrix to the identity matrix. Text objects cannot be nested; a second
// BT before an ET resets both matrices anyway so content keeps flowing.
func opBeginText(p *StreamProcessor, op *Operation) error {
	if p.textMatrix != nil {
		common.Log.Debug("BT while already in a text object")
	}
	tm := transform.IdentityMatrix()
	tlm := transform.IdentityMatrix()
	p.textMatrix = &tm
	p.textLineMatrix = &tlm
	return nil
}

// ET: end the text object, discarding the text matrices.
func opEndText(p *StreamProcessor, op *Operation) error {
	if p.textMatrix == nil {
		common.Log.Debug("ET outside of a text object")
	}
	p.textMatrix = nil
	p.textLineMatrix = nil
	return nil
}

// recoverTextObject re-establishes identity text matrices when a text
// positioning or showing operator runs outside BT/ET, so extraction
// continues past the malformed content.
func (p *StreamProcessor) recoverTextObject(operand string) {
	if p.textMatrix == nil || p.textLineMatrix == nil {
		common.Log.Debug("%#q outside of a text object - recovering", operand)
		tm := transform.IdentityMatrix()
		tlm := transform.IdentityMatrix()
		p.textMatrix = &tm
		p.textLineMatrix = &tlm
	}
}

// Tf: set font and size.
func opSetFont(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 2); err != nil {
		return err
	}
	name, ok := core.GetName(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	size, err := core.GetNumberAsFloat(op.Params[1])
	if err != nil {
		return err
	}

	state := &p.graphicsState.Text
	state.FontSize = size
	font, has := p.GetFonts()[*name]
	if !has {
		common.Log.Debug("ERROR: Font %#q not in resources", *name)
		state.Font = nil
		return nil
	}
	state.Font = font
	return nil
}

// Tc: set character spacing.
func opSetCharSpacing(p *StreamProcessor, op *Operation) error {
	v, err := floatParam(op)
	if err != nil {
		return err
	}
	p.graphicsState.Text.CharSpacing = v
	return nil
}

// Tw: set word spacing.
func opSetWordSpacing(p *StreamProcessor, op *Operation) error {
	v, err := floatParam(op)
	if err != nil {
		return err
	}
	p.graphicsState.Text.WordSpacing = v
	return nil
}

// Tz: set horizontal scaling (as a percentage).
func opSetHorizontalScaling(p *StreamProcessor, op *Operation) error {
	v, err := floatParam(op)
	if err != nil {
		return err
	}
	p.graphicsState.Text.HorizontalScaling = v
	return nil
}

// TL: set text leading.
func opSetLeading(p *StreamProcessor, op *Operation) error {
	v, err := floatParam(op)
	if err != nil {
		return err
	}
	p.graphicsState.Text.Leading = v
	return nil
}

// Ts: set text rise.
func opSetRise(p *StreamProcessor, op *Operation) error {
	v, err := floatParam(op)
	if err != nil {
		return err
	}
	p.graphicsState.Text.Rise = v
	return nil
}

// Tr: set text rendering mode.
func opSetRenderMode(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	mode, ok := core.GetIntVal(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	p.graphicsState.Text.RenderMode = RenderMode(mode)
	return nil
}

//
// Text positioning operators.
//

// moveTo moves the start of line pointer by `tx`,`ty` and resets the text
// pointer to it. Both are in unscaled text space units.
func (p *StreamProcessor) moveTo(tx, ty float64) {
	p.textLineMatrix.Concat(transform.TranslationMatrix(tx, ty))
	tm := p.textLineMatrix.Clone()
	p.textMatrix = &tm
}

// Td: move to the start of the next line, offset from the start of the
// current line by (tx, ty).
func opMoveText(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 2); err != nil {
		return err
	}
	f, err := core.GetNumbersAsFloat(op.Params)
	if err != nil {
		return err
	}
	p.recoverTextObject(op.Operand)
	p.moveTo(f[0], f[1])
	return nil
}

// TD: as Td, also setting the leading to -ty.
func opMoveTextSetLeading(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 2); err != nil {
		return err
	}
	f, err := core.GetNumbersAsFloat(op.Params)
	if err != nil {
		return err
	}
	p.recoverTextObject(op.Operand)
	p.graphicsState.Text.Leading = -f[1]
	p.moveTo(f[0], f[1])
	return nil
}

// Tm: set the text matrix and the text line matrix.
func opSetTextMatrix(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 6); err != nil {
		return err
	}
	f, err := core.GetNumbersAsFloat(op.Params)
	if err != nil {
		return err
	}
	tm := transform.NewMatrix(f[0], f[1], f[2], f[3], f[4], f[5])
	tlm := tm.Clone()
	p.textMatrix = &tm
	p.textLineMatrix = &tlm
	return nil
}

// T*: move to the start of the next text line, using the leading.
func opNextLine(p *StreamProcessor, op *Operation) error {
	p.recoverTextObject(op.Operand)
	p.moveTo(0, -p.graphicsState.Text.Leading)
	return nil
}

//
// Text showing operators.
//

// Tj: show a text string.
func opShowText(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	charcodes, ok := core.GetStringBytes(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	return p.ShowEncodedText(charcodes)
}

// ': move to the next line and show text.
func opShowTextLine(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	charcodes, ok := core.GetStringBytes(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	p.recoverTextObject(op.Operand)
	p.moveTo(0, -p.graphicsState.Text.Leading)
	return p.ShowEncodedText(charcodes)
}

// ": set word and character spacing, move to the next line, show text.
func opShowTextLineSpaced(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 3); err != nil {
		return err
	}
	aw, err := core.GetNumberAsFloat(op.Params[0])
	if err != nil {
		return err
	}
	ac, err := core.GetNumberAsFloat(op.Params[1])
	if err != nil {
		return err
	}
	charcodes, ok := core.GetStringBytes(op.Params[2])
	if !ok {
		return core.ErrTypeError
	}
	state := &p.graphicsState.Text
	state.WordSpacing = aw
	state.CharSpacing = ac
	p.recoverTextObject(op.Operand)
	p.moveTo(0, -state.Leading)
	return p.ShowEncodedText(charcodes)
}

// TJ: show text with per-element position adjustments. A number moves the
// text matrix by -n/1000 scaled by font size and horizontal scaling.
func opShowTextAdjusted(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	args, ok := core.GetArray(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	p.recoverTextObject(op.Operand)

	state := &p.graphicsState.Text
	for _, element := range args.Elements() {
		switch t := element.(type) {
		case *core.PdfObjectFloat, *core.PdfObjectInteger:
			adj, err := core.GetNumberAsFloat(element)
			if err != nil {
				return err
			}
			tx := -adj * glyphSpaceToTextSpaceFactor * state.FontSize *
				(state.HorizontalScaling / 100.0)
			// TODO(vertical writing): the adjustment moves ty instead.
			p.textMatrix.Concat(transform.TranslationMatrix(tx, 0))
		case *core.PdfObjectString:
			if err := p.ShowEncodedText(t.Bytes()); err != nil {
				return err
			}
		default:
			common.Log.Debug("ERROR: TJ element of unexpected type %T", element)
			return core.ErrTypeError
		}
	}
	return nil
}

//
// XObjects and Type 3 glyph metrics.
//

// Do: invoke a named XObject. Form XObjects execute as a sub-stream in
// their own resource scope under a saved graphics state with the form
// matrix applied; images are not this layer's concern.
func opDo(p *StreamProcessor, op *Operation) error {
	if err := checkParams(op, 1); err != nil {
		return err
	}
	name, ok := core.GetName(op.Params[0])
	if !ok {
		return core.ErrTypeError
	}
	xobj, has := p.GetXObjects()[*name]
	if !has {
		common.Log.Debug("XObject %#q not in resources - skipping", *name)
		return nil
	}
	if xobj.Type != model.XObjectTypeForm {
		return nil
	}

	resources := xobj.Resources
	if resources == nil {
		resources = p.GetResources()
	}

	p.SaveGraphicsState()
	defer p.RestoreGraphicsState()
	p.graphicsState.CTM.Concat(xobj.Matrix)

	parser := NewContentStreamParser(string(xobj.Content))
	parser.SetForceParsing(p.forceParsing)
	return p.ProcessSubStream(resources, parser.TokenIterator())
}

// d0, d1: Type 3 glyph metrics. Advance widths flow through the font
// matrix on the Font capability, so the declarations need no state here;
// they are accepted so glyph procedures run clean.
func opType3Metrics(p *StreamProcessor, op *Operation) error {
	return nil
}

// BI: inline image. The parser consumes the whole BI..EI span into the
// operation parameter; nothing here affects text state.
func opInlineImage(p *StreamProcessor, op *Operation) error {
	return nil
}
