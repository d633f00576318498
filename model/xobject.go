/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package model

import (
	"github.com/quillpdf/quillpdf/internal/transform"
)

// XObjectType represents the type of an XObject.
type XObjectType int

// XObject types.
const (
	XObjectTypeUndefined XObjectType = iota
	XObjectTypeImage
	XObjectTypeForm
)

// XObject is a named reusable content entity invoked via the Do operator.
// Form XObjects carry their own content stream, optional private resource
// scope and a form matrix applied before the content runs.
type XObject struct {
	Type XObjectType

	// Content is the XObject's content stream. Empty for images.
	Content []byte

	// Resources is the form's private resource scope. Nil means the form
	// inherits the resources of the invoking stream.
	Resources *Resources

	// Matrix maps form space to the space of the invoking stream.
	Matrix transform.Matrix

	// BBox is the form bounding box in form space.
	BBox PdfRectangle
}

// NewFormXObject returns a Form XObject for `content` with an identity
// form matrix.
func NewFormXObject(content []byte) *XObject {
	return &XObject{
		Type:    XObjectTypeForm,
		Content: content,
		Matrix:  transform.IdentityMatrix(),
	}
}
