/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

//
// Package quillpdf is a PDF content stream interpreter. It consumes the
// operator stream of a page's content, maintains the graphics and text
// state the PDF imaging model requires, and emits a fully resolved text
// position for every glyph shown, ready for text extraction.
//
// The contentstream package holds the interpreter; extractor turns its
// emissions into plain page text.
//

package quillpdf

import (
	_ "github.com/quillpdf/quillpdf/common"
	_ "github.com/quillpdf/quillpdf/contentstream"
	_ "github.com/quillpdf/quillpdf/extractor"
)
