/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"errors"
)

// Errors reported by the contentstream package.
var (
	// ErrInvalidOperand is returned when an operator word is empty or
	// malformed.
	ErrInvalidOperand = errors.New("invalid operand")

	// ErrDisposed is returned from operations on a disposed processor.
	ErrDisposed = errors.New("processor has been disposed")
)
