/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"io"

	"github.com/quillpdf/quillpdf/core"
)

// Token is one element of a content stream: either an operand value or an
// operator mnemonic.
type Token struct {
	// Obj is the operand value. Nil when IsOperator is set.
	Obj core.PdfObject

	// Operand is the operator mnemonic. Empty when IsOperator is unset.
	Operand string

	// IsOperator distinguishes operator tokens from operand tokens.
	IsOperator bool
}

// TokenIterator produces a lazy, finite sequence of content stream tokens.
// Next returns io.EOF after the last token. The processor closes the
// iterator on every exit path of its loop.
type TokenIterator interface {
	Next() (Token, error)
	Close() error
}

// operationIterator replays pre-parsed operations as tokens. It backs
// sub-stream execution of content that was already parsed, and tests.
type operationIterator struct {
	ops      Operations
	opIndex  int
	paramIdx int
}

// NewOperationTokenIterator returns a TokenIterator that yields the
// operands and operators of `ops` in stream order.
func NewOperationTokenIterator(ops Operations) TokenIterator {
	return &operationIterator{ops: ops}
}

// Next implements TokenIterator.
func (it *operationIterator) Next() (Token, error) {
	for it.opIndex < len(it.ops) {
		op := it.ops[it.opIndex]
		if op == nil {
			it.opIndex++
			continue
		}
		if it.paramIdx < len(op.Params) {
			obj := op.Params[it.paramIdx]
			it.paramIdx++
			return Token{Obj: obj}, nil
		}
		it.opIndex++
		it.paramIdx = 0
		return Token{Operand: op.Operand, IsOperator: true}, nil
	}
	return Token{}, io.EOF
}

// Close implements TokenIterator.
func (it *operationIterator) Close() error {
	it.opIndex = len(it.ops)
	return nil
}
