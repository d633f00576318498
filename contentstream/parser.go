/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/quillpdf/quillpdf/common"
	"github.com/quillpdf/quillpdf/core"
)

// ContentStreamParser represents a content stream parser for parsing content
// streams in PDFs. It is the lexical layer under the token iterator: it
// turns raw content bytes into operand objects and operator words.
type ContentStreamParser struct {
	reader *bufio.Reader

	// forceParsing makes Parse swallow recoverable lexical errors and keep
	// scanning for the next token instead of failing the stream. The token
	// iterator does not consult it and returns every error to its caller.
	forceParsing bool
}

// NewContentStreamParser creates a new instance of the content stream parser
// from an input content stream string.
func NewContentStreamParser(contentStr string) *ContentStreamParser {
	parser := ContentStreamParser{}

	buffer := bytes.NewBufferString(contentStr + "\n") // Add newline at end to get last operand without EOF error.
	parser.reader = bufio.NewReader(buffer)

	return &parser
}

// NewContentStreamParserFromReader creates a content stream parser reading
// from `r`.
func NewContentStreamParserFromReader(r io.Reader) *ContentStreamParser {
	return &ContentStreamParser{reader: bufio.NewReader(r)}
}

// SetForceParsing controls whether recoverable lexical errors abort Parse
// or are skipped with a warning. It does not affect TokenIterator.
func (csp *ContentStreamParser) SetForceParsing(force bool) {
	csp.forceParsing = force
}

// TokenIterator returns a TokenIterator over the parser's input. The
// parser must not be used directly while the iterator is live.
func (csp *ContentStreamParser) TokenIterator() TokenIterator {
	return &parserIterator{parser: csp}
}

// Parse parses all commands in content stream, returning a list of
// operation data.
func (csp *ContentStreamParser) Parse() (Operations, error) {
	operations := Operations{}

	for {
		operation := Operation{}

		for {
			obj, isOperator, err := csp.parseObject()
			if err != nil {
				if err == io.EOF {
					// End of data. Successful exit point.
					return operations, nil
				}
				if csp.forceParsing {
					common.Log.Warning("Content parsing error, recovering: %v", err)
					continue
				}
				return operations, err
			}
			if isOperator {
				operation.Operand = obj.(string)
				operations = append(operations, &operation)
				break
			}
			operation.Params = append(operation.Params, obj.(core.PdfObject))
		}

		if operation.Operand == "BI" {
			// An inline image spans from BI to EI; the raw bytes become
			// the operation's parameter.
			img, err := csp.parseInlineImage()
			if err != nil {
				return operations, err
			}
			operation.Params = append(operation.Params, img)
		}
	}
}

// parserIterator adapts the parser to the TokenIterator interface.
type parserIterator struct {
	parser *ContentStreamParser
	closed bool

	// pendingBI is set between emitting the inline image parameter and
	// emitting the BI operator token.
	pendingBI bool
}

// Next implements TokenIterator.
func (it *parserIterator) Next() (Token, error) {
	if it.closed {
		return Token{}, io.EOF
	}
	if it.pendingBI {
		it.pendingBI = false
		return Token{Operand: "BI", IsOperator: true}, nil
	}
	obj, isOperator, err := it.parser.parseObject()
	if err != nil {
		if err == io.EOF {
			it.closed = true
		}
		return Token{}, err
	}
	if !isOperator {
		return Token{Obj: obj.(core.PdfObject)}, nil
	}
	if obj == "BI" {
		// Deliver the consumed image as an operand token followed by the
		// operator so the accumulation loop sees the usual shape.
		img, err := it.parser.parseInlineImage()
		if err != nil {
			return Token{}, err
		}
		it.pendingBI = true
		return Token{Obj: img}, nil
	}
	return Token{Operand: obj.(string), IsOperator: true}, nil
}

// Close implements TokenIterator.
func (it *parserIterator) Close() error {
	it.closed = true
	return nil
}

// skipSpacesAndComments advances past whitespace and % comments, which may
// span multiple lines.
func (csp *ContentStreamParser) skipSpacesAndComments() error {
	for {
		bb, err := csp.reader.Peek(1)
		if err != nil {
			return err
		}
		if core.IsWhiteSpace(bb[0]) {
			csp.reader.ReadByte()
		} else if bb[0] == '%' {
			for {
				b, err := csp.reader.ReadByte()
				if err != nil {
					return err
				}
				if b == '\r' || b == '\n' {
					break
				}
			}
		} else {
			return nil
		}
	}
}

// Parse a name starting with '/'.
func (csp *ContentStreamParser) parseName() (core.PdfObjectName, error) {
	name := ""
	nameStarted := false
	for {
		bb, err := csp.reader.Peek(1)
		if err == io.EOF {
			break // Can happen when loading from object stream.
		}
		if err != nil {
			return core.PdfObjectName(name), err
		}

		if !nameStarted {
			// Should always start with '/', otherwise not valid.
			if bb[0] == '/' {
				nameStarted = true
				csp.reader.ReadByte()
			} else {
				common.Log.Error("Name starting with %s (% x)", bb, bb)
				return core.PdfObjectName(name), fmt.Errorf("invalid name: (%c)", bb[0])
			}
		} else {
			if core.IsWhiteSpace(bb[0]) {
				break
			} else if (bb[0] == '/') || (bb[0] == '[') || (bb[0] == '(') || (bb[0] == ']') || (bb[0] == '<') || (bb[0] == '>') {
				break // Looks like start of next statement.
			} else if bb[0] == '#' {
				hexcode, err := csp.reader.Peek(3)
				if err != nil {
					return core.PdfObjectName(name), err
				}
				csp.reader.Discard(3)

				code, err := hex.DecodeString(string(hexcode[1:3]))
				if err != nil {
					return core.PdfObjectName(name), err
				}
				name += string(code)
			} else {
				b, _ := csp.reader.ReadByte()
				name += string(b)
			}
		}
	}
	return core.PdfObjectName(name), nil
}

// A string starts with '(' and ends with ')'.
func (csp *ContentStreamParser) parseString() (*core.PdfObjectString, error) {
	csp.reader.ReadByte()

	var result []byte
	count := 1
	for {
		bb, err := csp.reader.Peek(1)
		if err != nil {
			return core.MakeStringFromBytes(result), err
		}

		if bb[0] == '\\' { // Escape sequence.
			csp.reader.ReadByte() // Skip the escape \ byte.
			b, err := csp.reader.ReadByte()
			if err != nil {
				return core.MakeStringFromBytes(result), err
			}

			// Octal '\ddd' number (base 8).
			if core.IsOctalDigit(b) {
				bb, err := csp.reader.Peek(2)
				if err != nil {
					return core.MakeStringFromBytes(result), err
				}

				var numeric []byte
				numeric = append(numeric, b)
				for _, val := range bb {
					if core.IsOctalDigit(val) {
						numeric = append(numeric, val)
					} else {
						break
					}
				}
				csp.reader.Discard(len(numeric) - 1)

				code, err := strconv.ParseUint(string(numeric), 8, 32)
				if err != nil {
					return core.MakeStringFromBytes(result), err
				}
				result = append(result, byte(code))
				continue
			}

			switch b {
			case 'n':
				result = append(result, '\n')
			case 'r':
				result = append(result, '\r')
			case 't':
				result = append(result, '\t')
			case 'b':
				result = append(result, '\b')
			case 'f':
				result = append(result, '\f')
			case '(':
				result = append(result, '(')
			case ')':
				result = append(result, ')')
			case '\\':
				result = append(result, '\\')
			}

			continue
		} else if bb[0] == '(' {
			count++
		} else if bb[0] == ')' {
			count--
			if count == 0 {
				csp.reader.ReadByte()
				break
			}
		}

		b, _ := csp.reader.ReadByte()
		result = append(result, b)
	}

	return core.MakeStringFromBytes(result), nil
}

// Starts with '<' ends with '>'.
func (csp *ContentStreamParser) parseHexString() (*core.PdfObjectString, error) {
	csp.reader.ReadByte()

	hextable := []byte("0123456789abcdefABCDEF")

	var tmp []byte
	for {
		bb, err := csp.reader.Peek(1)
		if err != nil {
			return core.MakeHexString(""), err
		}

		if bb[0] == '>' {
			csp.reader.ReadByte()
			break
		}

		b, _ := csp.reader.ReadByte()
		if bytes.IndexByte(hextable, b) >= 0 {
			tmp = append(tmp, b)
		}
	}

	if len(tmp)%2 == 1 {
		tmp = append(tmp, '0')
	}

	buf, _ := hex.DecodeString(string(tmp))
	return core.MakeHexString(string(buf)), nil
}

// Starts with '[' ends with ']'. Can contain any kinds of direct objects.
func (csp *ContentStreamParser) parseArray() (*core.PdfObjectArray, error) {
	arr := core.MakeArray()

	csp.reader.ReadByte()

	for {
		if err := csp.skipSpacesAndComments(); err != nil {
			return arr, err
		}

		bb, err := csp.reader.Peek(1)
		if err != nil {
			return arr, err
		}

		if bb[0] == ']' {
			csp.reader.ReadByte()
			break
		}

		obj, isOperator, err := csp.parseObject()
		if err != nil {
			return arr, err
		}
		if isOperator {
			return arr, ErrInvalidOperand
		}
		arr.Append(obj.(core.PdfObject))
	}

	return arr, nil
}

// Parse bool object.
func (csp *ContentStreamParser) parseBool() (core.PdfObjectBool, error) {
	bb, err := csp.reader.Peek(4)
	if err != nil {
		return core.PdfObjectBool(false), err
	}
	if (len(bb) >= 4) && (string(bb[:4]) == "true") {
		csp.reader.Discard(4)
		return core.PdfObjectBool(true), nil
	}

	bb, err = csp.reader.Peek(5)
	if err != nil {
		return core.PdfObjectBool(false), err
	}
	if (len(bb) >= 5) && (string(bb[:5]) == "false") {
		csp.reader.Discard(5)
		return core.PdfObjectBool(false), nil
	}

	return core.PdfObjectBool(false), errors.New("unexpected boolean string")
}

// Parse null object.
func (csp *ContentStreamParser) parseNull() (core.PdfObjectNull, error) {
	_, err := csp.reader.Discard(4)
	return core.PdfObjectNull{}, err
}

func (csp *ContentStreamParser) parseDict() (*core.PdfObjectDictionary, error) {
	dict := core.MakeDict()

	// Pass the '<<'
	c, _ := csp.reader.ReadByte()
	if c != '<' {
		return nil, errors.New("invalid dict")
	}
	c, _ = csp.reader.ReadByte()
	if c != '<' {
		return nil, errors.New("invalid dict")
	}

	for {
		if err := csp.skipSpacesAndComments(); err != nil {
			return nil, err
		}

		bb, err := csp.reader.Peek(2)
		if err != nil {
			return nil, err
		}

		if (bb[0] == '>') && (bb[1] == '>') {
			csp.reader.ReadByte()
			csp.reader.ReadByte()
			break
		}

		keyName, err := csp.parseName()
		if err != nil {
			common.Log.Debug("ERROR Returning name err %s", err)
			return nil, err
		}

		if err := csp.skipSpacesAndComments(); err != nil {
			return nil, err
		}

		val, isOperator, err := csp.parseObject()
		if err != nil {
			return nil, err
		}
		if isOperator {
			return nil, ErrInvalidOperand
		}
		dict.Set(keyName, val.(core.PdfObject))
	}

	return dict, nil
}

// An operator is a text command represented by a word.
func (csp *ContentStreamParser) parseWord() (string, error) {
	var word []byte
	for {
		bb, err := csp.reader.Peek(1)
		if err != nil {
			return string(word), err
		}
		if core.IsDelimiter(bb[0]) || core.IsWhiteSpace(bb[0]) {
			break
		}

		b, _ := csp.reader.ReadByte()
		word = append(word, b)
	}

	return string(word), nil
}

// parseObject parses a generic object, returning either a core.PdfObject
// operand (isOperator false) or an operator word string (isOperator true).
func (csp *ContentStreamParser) parseObject() (obj interface{}, isOperator bool, err error) {
	if err := csp.skipSpacesAndComments(); err != nil {
		return nil, false, err
	}
	bb, err := csp.reader.Peek(2)
	if err != nil {
		return nil, false, err
	}

	switch {
	case bb[0] == '/':
		name, err := csp.parseName()
		return &name, false, err
	case bb[0] == '(':
		str, err := csp.parseString()
		return str, false, err
	case bb[0] == '<' && bb[1] != '<':
		str, err := csp.parseHexString()
		return str, false, err
	case bb[0] == '<' && bb[1] == '<':
		dict, err := csp.parseDict()
		return dict, false, err
	case bb[0] == '[':
		arr, err := csp.parseArray()
		return arr, false, err
	case core.IsFloatDigit(bb[0]) || ((bb[0] == '-' || bb[0] == '+') && core.IsFloatDigit(bb[1])):
		number, err := core.ParseNumber(csp.reader)
		return number, false, err
	}

	// Otherwise: keyword "null", "false", "true", or an operator word.
	peek, _ := csp.reader.Peek(5)
	peekStr := string(peek)

	if len(peekStr) > 3 && peekStr[:4] == "null" {
		null, err := csp.parseNull()
		return &null, false, err
	}
	if (len(peekStr) > 4 && peekStr[:5] == "false") || (len(peekStr) > 3 && peekStr[:4] == "true") {
		b, err := csp.parseBool()
		return &b, false, err
	}

	word, err := csp.parseWord()
	if err != nil {
		return word, true, err
	}
	if len(word) == 0 {
		// A delimiter we do not understand; skip one byte so scanning can
		// make progress past corrupt content.
		csp.reader.ReadByte()
		return "", true, ErrInvalidOperand
	}
	return word, true, nil
}

// parseInlineImage consumes everything between a BI operator and the
// terminating EI, returning the raw span (parameter dictionary included) as
// a string object. Image decoding is not this package's concern; the bytes
// are preserved for consumers that want them.
func (csp *ContentStreamParser) parseInlineImage() (*core.PdfObjectString, error) {
	var raw []byte
	for {
		b, err := csp.reader.ReadByte()
		if err != nil {
			return core.MakeStringFromBytes(raw), err
		}
		raw = append(raw, b)

		// EI terminates the image when delimited by whitespace.
		n := len(raw)
		if n >= 3 && raw[n-2] == 'E' && raw[n-1] == 'I' && core.IsWhiteSpace(raw[n-3]) {
			next, err := csp.reader.Peek(1)
			if err == io.EOF || (err == nil && core.IsWhiteSpace(next[0])) {
				return core.MakeStringFromBytes(raw[:n-2]), nil
			}
			if err != nil {
				return core.MakeStringFromBytes(raw), err
			}
		}
	}
}
