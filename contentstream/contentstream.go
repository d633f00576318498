/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"bytes"

	"github.com/quillpdf/quillpdf/core"
)

// Operation represents an operation in PDF contentstream which consists of
// an operand and parameters.
type Operation struct {
	Params  []core.PdfObject
	Operand string
}

// Operations is a slice of PDF content stream operations.
type Operations []*Operation

// Bytes converts a set of content stream operations to a content stream byte
// presentation, i.e. the kind that can be stored as a PDF stream or string
// format.
func (ops Operations) Bytes() []byte {
	var buf bytes.Buffer

	for _, op := range ops {
		if op == nil {
			continue
		}

		for _, param := range op.Params {
			buf.WriteString(param.WriteString())
			buf.WriteString(" ")
		}
		buf.WriteString(op.Operand + "\n")
	}

	return buf.Bytes()
}

// String returns `ops.Bytes()` as a string.
func (ops Operations) String() string {
	return string(ops.Bytes())
}
