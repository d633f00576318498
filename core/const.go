/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"errors"
)

// Common errors that may occur on content stream and operand processing.
var (
	// ErrTypeError indicates a type error, i.e. issue with expected types.
	ErrTypeError = errors.New("type check error")

	// ErrRangeError indicates a value range error, failing a bounds check.
	ErrRangeError = errors.New("range check error")

	// ErrNotSupported indicates a feature that is not supported.
	ErrNotSupported = errors.New("feature not currently supported")

	// ErrInvalidOperand indicates an empty or malformed operator word.
	ErrInvalidOperand = errors.New("invalid operand")

	// ErrNotANumber is returned when a numeric value was expected.
	ErrNotANumber = errors.New("not a number")
)
