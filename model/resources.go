/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package model

import (
	"github.com/quillpdf/quillpdf/core"
)

// Resources gives name-keyed access to the fonts, XObjects and extended
// graphics state dictionaries visible to the currently executing content
// stream. Each stream (page, form, glyph procedure) executes against its
// own Resources scope.
type Resources struct {
	fonts      map[core.PdfObjectName]Font
	xobjects   map[core.PdfObjectName]*XObject
	extGStates map[core.PdfObjectName]*core.PdfObjectDictionary
}

// NewResources returns an empty resource scope.
func NewResources() *Resources {
	return &Resources{
		fonts:      map[core.PdfObjectName]Font{},
		xobjects:   map[core.PdfObjectName]*XObject{},
		extGStates: map[core.PdfObjectName]*core.PdfObjectDictionary{},
	}
}

// GetFontByName returns the font with resource name `keyName` if it exists.
func (r *Resources) GetFontByName(keyName core.PdfObjectName) (Font, bool) {
	font, has := r.fonts[keyName]
	return font, has
}

// SetFontByName binds `font` to resource name `keyName`.
func (r *Resources) SetFontByName(keyName core.PdfObjectName, font Font) {
	r.fonts[keyName] = font
}

// GetXObjectByName returns the XObject with resource name `keyName` if it
// exists.
func (r *Resources) GetXObjectByName(keyName core.PdfObjectName) (*XObject, bool) {
	x, has := r.xobjects[keyName]
	return x, has
}

// SetXObjectByName binds `x` to resource name `keyName`.
func (r *Resources) SetXObjectByName(keyName core.PdfObjectName, x *XObject) {
	r.xobjects[keyName] = x
}

// GetExtGState returns the extended graphics state dictionary with resource
// name `keyName` if it exists.
func (r *Resources) GetExtGState(keyName core.PdfObjectName) (*core.PdfObjectDictionary, bool) {
	gs, has := r.extGStates[keyName]
	return gs, has
}

// SetExtGState binds `gsDict` to resource name `keyName`.
func (r *Resources) SetExtGState(keyName core.PdfObjectName, gsDict *core.PdfObjectDictionary) {
	r.extGStates[keyName] = gsDict
}

// Fonts returns the font map of the scope. The returned map is the live
// map; callers that replace entries affect the scope.
func (r *Resources) Fonts() map[core.PdfObjectName]Font {
	return r.fonts
}

// SetFonts replaces the font map of the scope.
func (r *Resources) SetFonts(fonts map[core.PdfObjectName]Font) {
	if fonts == nil {
		fonts = map[core.PdfObjectName]Font{}
	}
	r.fonts = fonts
}

// XObjects returns the XObject map of the scope.
func (r *Resources) XObjects() map[core.PdfObjectName]*XObject {
	return r.xobjects
}

// SetXObjects replaces the XObject map of the scope.
func (r *Resources) SetXObjects(xobjects map[core.PdfObjectName]*XObject) {
	if xobjects == nil {
		xobjects = map[core.PdfObjectName]*XObject{}
	}
	r.xobjects = xobjects
}

// ExtGStates returns the extended graphics state map of the scope.
func (r *Resources) ExtGStates() map[core.PdfObjectName]*core.PdfObjectDictionary {
	return r.extGStates
}

// SetExtGStates replaces the extended graphics state map of the scope.
func (r *Resources) SetExtGStates(states map[core.PdfObjectName]*core.PdfObjectDictionary) {
	if states == nil {
		states = map[core.PdfObjectName]*core.PdfObjectDictionary{}
	}
	r.extGStates = states
}
