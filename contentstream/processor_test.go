/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpdf/quillpdf/common"
	"github.com/quillpdf/quillpdf/core"
	"github.com/quillpdf/quillpdf/internal/transform"
	"github.com/quillpdf/quillpdf/model"
)

func testFont() *model.WidthTableFont {
	return &model.WidthTableFont{
		Name:    "TestFont",
		Widths:  map[int]float64{0x41: 500, 0x42: 600, 0x20: 250},
		Heights: map[int]float64{0x41: 700, 0x42: 700},
		Unicode: map[int]string{0x41: "A", 0x42: "B", 0x20: " "},
	}
}

func testResources() *model.Resources {
	r := model.NewResources()
	r.SetFontByName("F1", testFont())
	return r
}

// collectingProcessor returns a processor and the slice its sink appends
// emitted positions to.
func collectingProcessor() (*StreamProcessor, *[]*TextPosition) {
	p := NewStreamProcessor()
	var got []*TextPosition
	p.SetTextPositionSink(TextPositionFunc(func(tp *TextPosition) {
		got = append(got, tp)
	}))
	return p, &got
}

func TestShowTextBasicWidth(t *testing.T) {
	// Identity CTM, 1/1000 font matrix, fontSize 12, default spacing:
	// a 500 glyph-unit 'A' is 6.0 text units wide and advances by 6.0.
	p, got := collectingProcessor()
	err := p.ProcessContent(testResources(), "BT /F1 12 Tf (AA) Tj ET", testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got, 2)

	first, second := (*got)[0], (*got)[1]
	assert.InDelta(t, 6.0, first.Width, 1e-9)
	assert.InDelta(t, 0.0, first.TextMatrix.XPosition(), 1e-9)
	assert.InDelta(t, 6.0, first.EndX, 1e-9)
	assert.InDelta(t, 0.0, first.EndY, 1e-9)
	assert.Equal(t, "A", first.Text)
	assert.Equal(t, []int{0x41}, first.CodePoints)

	// The advance lands the second glyph at x=6.
	assert.InDelta(t, 6.0, second.TextMatrix.XPosition(), 1e-9)
	assert.InDelta(t, 0.0, second.TextMatrix.YPosition(), 1e-9)
}

func TestWordSpacingSingleByteSpace(t *testing.T) {
	// Word spacing joins the advance of a single byte 0x20 only:
	// tx = (250/1000 x 10 + 0 + 200) x 1.0 = 202.5.
	p, got := collectingProcessor()
	err := p.ProcessContent(testResources(), "BT /F1 10 Tf 200 Tw ( A) Tj ET", testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got, 2)

	assert.InDelta(t, 202.5, (*got)[1].TextMatrix.XPosition(), 1e-9)

	// The end position of the space excludes the word spacing.
	assert.InDelta(t, 2.5, (*got)[0].EndX, 1e-9)
}

func TestWordSpacingNotAppliedToMultiByteCode(t *testing.T) {
	// 0x20 as the first byte of a two byte code takes no word spacing.
	font := &model.WidthTableFont{
		Name:    "Composite",
		Widths:  map[int]float64{0x2041: 300, 0x42: 600},
		Unicode: map[int]string{0x2041: "X", 0x42: "B"},
	}
	resources := model.NewResources()
	resources.SetFontByName("F1", font)

	p, got := collectingProcessor()
	err := p.ProcessContent(resources, "BT /F1 10 Tf 200 Tw (\x20\x41\x42) Tj ET", testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got, 2)

	assert.Equal(t, "X", (*got)[0].Text)
	assert.Equal(t, []int{0x2041}, (*got)[0].CodePoints)

	// Advance is width x fontSize only: 300/1000 x 10 = 3.0.
	assert.InDelta(t, 3.0, (*got)[1].TextMatrix.XPosition(), 1e-9)
}

func TestNullDecodeSubstitution(t *testing.T) {
	// A code with no unicode mapping and no second byte available is
	// emitted as "?" with the numeric code preserved.
	font := &model.WidthTableFont{
		Name:   "NoMap",
		Widths: map[int]float64{0x43: 400},
	}
	resources := model.NewResources()
	resources.SetFontByName("F1", font)

	p, got := collectingProcessor()
	err := p.ProcessContent(resources, "BT /F1 12 Tf (\x43) Tj ET", testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got, 1)

	assert.Equal(t, "?", (*got)[0].Text)
	assert.Equal(t, []int{0x43}, (*got)[0].CodePoints)
}

func TestType3FontMatrixScaling(t *testing.T) {
	// A Type 3 font matrix of 0.002 gives a glyph-to-text factor of 500.
	font := &model.WidthTableFont{
		Name:    "T3",
		Widths:  map[int]float64{0x41: 500, 0x20: 250},
		Unicode: map[int]string{0x41: "A"},
		Type3:   true,
		Matrix:  transform.ScaleMatrix(0.002, 0.002),
	}
	resources := model.NewResources()
	resources.SetFontByName("F1", font)

	p, got := collectingProcessor()
	err := p.ProcessContent(resources, "BT /F1 12 Tf (A) Tj ET", testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got, 1)

	// spaceWidthText = 250 x 500 = 125000; display hint scales by the
	// font size under identity matrices.
	assert.InDelta(t, 125000*12, (*got)[0].SpaceWidth, 1e-6)

	// dxText = 500 x 0.002 = 1.0, so the glyph is fontSize wide.
	assert.InDelta(t, 12.0, (*got)[0].Width, 1e-9)
}

func TestSaveRestoreAroundShow(t *testing.T) {
	// A CTM scale applied between q/Q affects only the glyph shown
	// inside the bracket.
	p, got := collectingProcessor()
	content := "BT /F1 12 Tf q 2 0 0 2 0 0 cm (A) Tj Q (A) Tj ET"
	err := p.ProcessContent(testResources(), content, testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got, 2)

	assert.InDelta(t, 24.0, (*got)[0].TextMatrix.ScalingFactorX(), 1e-9)
	assert.InDelta(t, 24.0, (*got)[0].FontSizePx, 1e-9)

	assert.InDelta(t, 12.0, (*got)[1].TextMatrix.ScalingFactorX(), 1e-9)
	assert.InDelta(t, 12.0, (*got)[1].FontSizePx, 1e-9)
}

func TestUnknownOperatorLoggedOnceAndHarmless(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(common.NewWriterLogger(common.LogLevelDebug, &buf))
	defer common.SetLogger(common.DummyLogger{})

	p, got := collectingProcessor()
	content := "BT /F1 12 Tf Foo (A) Tj Foo Foo ET"
	err := p.ProcessContent(testResources(), content, testPageSize(), 0)
	require.NoError(t, err)

	require.Len(t, *got, 1)
	assert.InDelta(t, 6.0, (*got)[0].Width, 1e-9)

	assert.Equal(t, 1, strings.Count(buf.String(), "Foo"),
		"unsupported operator should be reported once")
}

func TestTextMatrixWindow(t *testing.T) {
	p := NewStreamProcessor()

	assert.Nil(t, p.GetTextMatrix())
	assert.Nil(t, p.GetTextLineMatrix())

	p.ProcessOperator("BT", nil)
	assert.NotNil(t, p.GetTextMatrix())
	assert.NotNil(t, p.GetTextLineMatrix())

	p.ProcessOperator("Td", []core.PdfObject{core.MakeInteger(5), core.MakeInteger(10)})
	require.NotNil(t, p.GetTextMatrix())
	assert.InDelta(t, 5.0, p.GetTextMatrix().XPosition(), 1e-9)
	assert.InDelta(t, 10.0, p.GetTextMatrix().YPosition(), 1e-9)

	p.ProcessOperator("ET", nil)
	assert.Nil(t, p.GetTextMatrix())
	assert.Nil(t, p.GetTextLineMatrix())
}

func TestMoveTextKeepsMatricesDistinct(t *testing.T) {
	p := NewStreamProcessor()
	p.ProcessOperator("BT", nil)
	p.ProcessOperator("Td", []core.PdfObject{core.MakeInteger(5), core.MakeInteger(0)})

	// Advancing the text matrix must not drag the line matrix along.
	p.GetTextMatrix().Concat(transform.TranslationMatrix(100, 0))
	assert.InDelta(t, 5.0, p.GetTextLineMatrix().XPosition(), 1e-9)
}

func TestLeadingOperators(t *testing.T) {
	p, got := collectingProcessor()
	content := "BT /F1 12 Tf 14 TL 0 0 Td (A) Tj T* (A) Tj ET"
	err := p.ProcessContent(testResources(), content, testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got, 2)

	assert.InDelta(t, 0.0, (*got)[0].TextMatrix.YPosition(), 1e-9)
	assert.InDelta(t, -14.0, (*got)[1].TextMatrix.YPosition(), 1e-9)
	// T* restarts the line: x back to the line origin.
	assert.InDelta(t, 0.0, (*got)[1].TextMatrix.XPosition(), 1e-9)
}

func TestTDSetsLeading(t *testing.T) {
	p, _ := collectingProcessor()
	err := p.ProcessContent(testResources(), "BT /F1 12 Tf 3 -15 TD ET", testPageSize(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, p.GetGraphicsState().Text.Leading, 1e-9)
}

func TestShowTextAdjusted(t *testing.T) {
	// A TJ adjustment of -1000 moves the cursor by 1000/1000 x 12 = 12
	// to the right of the first glyph's 6.0 advance.
	p, got := collectingProcessor()
	content := "BT /F1 12 Tf [(A) -1000 (A)] TJ ET"
	err := p.ProcessContent(testResources(), content, testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got, 2)

	assert.InDelta(t, 18.0, (*got)[1].TextMatrix.XPosition(), 1e-9)
}

func TestQuoteOperators(t *testing.T) {
	p, got := collectingProcessor()
	content := "BT /F1 12 Tf 14 TL (A) Tj (A) ' ET"
	err := p.ProcessContent(testResources(), content, testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got, 2)
	assert.InDelta(t, -14.0, (*got)[1].TextMatrix.YPosition(), 1e-9)

	p2, got2 := collectingProcessor()
	content = `BT /F1 10 Tf 14 TL 200 3 ( A) " ET`
	err = p2.ProcessContent(testResources(), content, testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got2, 2)
	state := p2.GetGraphicsState().Text
	assert.Equal(t, 200.0, state.WordSpacing)
	assert.Equal(t, 3.0, state.CharSpacing)
}

func TestEmissionCountMatchesConsumedBytes(t *testing.T) {
	// Mixed one and two byte codes: every consumed code emits exactly
	// one position and the consumed lengths cover the input.
	font := &model.WidthTableFont{
		Name:    "Mixed",
		Widths:  map[int]float64{0x41: 500, 0x2042: 700},
		Unicode: map[int]string{0x41: "A", 0x2042: "Y"},
	}
	resources := model.NewResources()
	resources.SetFontByName("F1", font)

	p, got := collectingProcessor()
	data := "\x41\x20\x42\x41" // A, <20 42>, A
	err := p.ProcessContent(resources, "BT /F1 12 Tf ("+data+") Tj ET", testPageSize(), 0)
	require.NoError(t, err)

	require.Len(t, *got, 3)
	consumed := 0
	for _, tp := range *got {
		if tp.CodePoints[0] > 0xFF {
			consumed += 2
		} else {
			consumed++
		}
	}
	assert.Equal(t, len(data), consumed)
}

func TestFormXObject(t *testing.T) {
	formFont := &model.WidthTableFont{
		Name:    "FormFont",
		Widths:  map[int]float64{0x42: 600},
		Unicode: map[int]string{0x42: "B"},
	}
	formResources := model.NewResources()
	formResources.SetFontByName("F2", formFont)

	form := model.NewFormXObject([]byte("BT /F2 10 Tf (B) Tj ET"))
	form.Resources = formResources
	form.Matrix = transform.ScaleMatrix(2, 2)

	resources := testResources()
	resources.SetXObjectByName("X1", form)

	p, got := collectingProcessor()
	content := "BT /F1 12 Tf (A) Tj ET /X1 Do BT /F1 12 Tf (A) Tj ET"
	err := p.ProcessContent(resources, content, testPageSize(), 0)
	require.NoError(t, err)
	require.Len(t, *got, 3)

	// The form glyph sees the form matrix through the CTM.
	assert.Equal(t, "B", (*got)[1].Text)
	assert.InDelta(t, 20.0, (*got)[1].FontSizePx, 1e-9)

	// The form's scope and graphics state do not leak.
	assert.Equal(t, "A", (*got)[2].Text)
	assert.InDelta(t, 12.0, (*got)[2].FontSizePx, 1e-9)
	assert.Equal(t, 0, p.GraphicsStackSize())
}

type failingIterator struct {
	emitted bool
}

func (f *failingIterator) Next() (Token, error) {
	if !f.emitted {
		f.emitted = true
		return Token{Operand: "q", IsOperator: true}, nil
	}
	return Token{}, errors.New("broken pipe")
}

func (f *failingIterator) Close() error { return nil }

func TestSubStreamScopeDiscipline(t *testing.T) {
	p := NewStreamProcessor()

	err := p.ProcessSubStream(testResources(), &failingIterator{})
	require.Error(t, err)
	assert.Equal(t, 0, p.ResourceStackDepth())
}

func TestForceParsingSwallowsStreamErrors(t *testing.T) {
	p := NewStreamProcessor()
	p.SetForceParsing(true)

	err := p.ProcessSubStream(testResources(), &failingIterator{})
	require.NoError(t, err)
	assert.Equal(t, 0, p.ResourceStackDepth())
}

type stubResolver struct {
	obj core.PdfObject
}

func (r stubResolver) Resolve(objNum, genNum int64) core.PdfObject {
	return r.obj
}

func TestIndirectOperandsDereferenced(t *testing.T) {
	p := NewStreamProcessor()

	ref := core.MakeReference(7, 0, stubResolver{obj: core.MakeFloat(5)})
	ops := Operations{{Operand: "Tc", Params: []core.PdfObject{ref}}}

	err := p.ProcessSubStream(nil, NewOperationTokenIterator(ops))
	require.NoError(t, err)
	assert.Equal(t, 5.0, p.GetGraphicsState().Text.CharSpacing)
}

func TestEmptyResourceStackQueries(t *testing.T) {
	p := NewStreamProcessor()

	assert.Nil(t, p.GetResources())
	assert.Empty(t, p.GetFonts())
	assert.Empty(t, p.GetXObjects())
	assert.Empty(t, p.GetGraphicsStates())
}

func TestExtGStateOperator(t *testing.T) {
	dict := core.MakeDict()
	dict.Set("LW", core.MakeFloat(4))
	dict.Set("LC", core.MakeInteger(2))
	dict.Set("SM", core.MakeFloat(0.5))

	resources := testResources()
	resources.SetExtGState("GS1", dict)

	p := NewStreamProcessor()
	err := p.ProcessContent(resources, "/GS1 gs", testPageSize(), 0)
	require.NoError(t, err)

	gs := p.GetGraphicsState()
	assert.Equal(t, 4.0, gs.LineWidth)
	assert.Equal(t, 2, gs.LineCap)
	assert.Equal(t, 0.5, gs.Smoothness)
}

func TestRegistryConfig(t *testing.T) {
	// A config with a bad identifier is a construction error.
	_, err := NewStreamProcessorFromConfig(map[string]string{"Tj": "no_such_handler"})
	require.Error(t, err)

	// Disabling Tj silences it entirely.
	config := DefaultOperatorConfig()
	config["Tj"] = ""
	p, err := NewStreamProcessorFromConfig(config)
	require.NoError(t, err)

	var got []*TextPosition
	p.SetTextPositionSink(TextPositionFunc(func(tp *TextPosition) {
		got = append(got, tp)
	}))
	err = p.ProcessContent(testResources(), "BT /F1 12 Tf (A) Tj ET", testPageSize(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRegisterOperatorProcessor(t *testing.T) {
	p := NewStreamProcessor()
	invoked := 0
	p.RegisterOperatorProcessor("Zz", func(p *StreamProcessor, op *Operation) error {
		invoked++
		return nil
	})
	err := p.ProcessContent(nil, "Zz Zz", testPageSize(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, invoked)
}

func TestDispose(t *testing.T) {
	p := NewStreamProcessor()
	p.Dispose()

	err := p.ProcessContent(testResources(), "BT ET", testPageSize(), 0)
	assert.ErrorIs(t, err, ErrDisposed)
	assert.ErrorIs(t, p.ShowEncodedText([]byte("A")), ErrDisposed)
}

func TestShowWithoutFontSkipsRun(t *testing.T) {
	p, got := collectingProcessor()
	err := p.ProcessContent(model.NewResources(), "BT /F9 12 Tf (A) Tj ET", testPageSize(), 0)
	require.NoError(t, err)
	assert.Empty(t, *got)
}
