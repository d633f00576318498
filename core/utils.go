/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/quillpdf/quillpdf/common"
)

// ParseNumber parses a numeric objects from a buffered stream.
// Section 7.3.3.
// Integer or Float.
//
// An integer shall be written as one or more decimal digits optionally
// preceded by a sign. The value shall be interpreted as a signed
// decimal integer and shall be converted to an integer object.
//
// A real value shall be written as one or more decimal digits with an
// optional sign and a leading, trailing, or embedded PERIOD (2Eh)
// (decimal point). The value shall be interpreted as a real number
// and shall be converted to a real object.
//
// Regarding exponential numbers: 7.3.3 Numeric Objects:
// A conforming writer shall not use the PostScript syntax for numbers
// with non-decimal radices (such as 16#FFFE) or in exponential format
// (such as 6.02E23).
// Nonetheless, we sometimes get numbers with exponential format, so
// we will support it in the reader (no confusion with other types, so
// no compromise).
func ParseNumber(buf *bufio.Reader) (PdfObject, error) {
	isFloat := false
	allowSigns := true
	var r bytes.Buffer
	for {
		bb, err := buf.Peek(1)
		if err == io.EOF {
			// Handle EOF like end of line; the number may terminate the
			// stream. In other cases the EOF error surfaces elsewhere.
			break
		}
		if err != nil {
			common.Log.Debug("ERROR %s", err)
			return nil, err
		}
		if allowSigns && (bb[0] == '-' || bb[0] == '+') {
			// Only appear in the beginning, otherwise serves as a delimiter.
			b, _ := buf.ReadByte()
			r.WriteByte(b)
			allowSigns = false // Only allowed in beginning, and after e (exponential).
		} else if IsDecimalDigit(bb[0]) {
			b, _ := buf.ReadByte()
			r.WriteByte(b)
		} else if bb[0] == '.' {
			b, _ := buf.ReadByte()
			r.WriteByte(b)
			isFloat = true
		} else if bb[0] == 'e' || bb[0] == 'E' {
			// Exponential number format.
			b, _ := buf.ReadByte()
			r.WriteByte(b)
			isFloat = true
			allowSigns = true
		} else {
			break
		}
	}

	var o PdfObject
	if isFloat {
		fVal, err := strconv.ParseFloat(r.String(), 64)
		if err != nil {
			common.Log.Debug("Error parsing number %v err=%v. Using 0.0. Output may be incorrect", r.String(), err)
			fVal = 0.0
		}

		objFloat := PdfObjectFloat(fVal)
		o = &objFloat
	} else {
		intVal, err := strconv.ParseInt(r.String(), 10, 64)
		if err != nil {
			common.Log.Debug("Error parsing number %v err=%v. Using 0. Output may be incorrect", r.String(), err)
			intVal = 0
		}

		objInt := PdfObjectInteger(intVal)
		o = &objInt
	}

	return o, nil
}

// traceMaxDepth is the maximum number of indirections TraceToDirectObject
// follows before giving up on a reference loop.
const traceMaxDepth = 10

// TraceToDirectObject traces a PdfObject to a direct object, resolving
// chained references.
func TraceToDirectObject(obj PdfObject) PdfObject {
	ref, isRef := obj.(*PdfObjectReference)
	depth := 0
	for isRef {
		obj = ref.Resolve()
		ref, isRef = obj.(*PdfObjectReference)
		depth++
		if depth > traceMaxDepth {
			common.Log.Error("Trace depth level beyond %d - not going deeper!", traceMaxDepth)
			return MakeNull()
		}
	}
	return obj
}

// GetNumberAsFloat returns the contents of `obj` as a float if it is an integer or float, or an
// error if it isn't.
func GetNumberAsFloat(obj PdfObject) (float64, error) {
	obj = TraceToDirectObject(obj)
	switch t := obj.(type) {
	case *PdfObjectFloat:
		return float64(*t), nil
	case *PdfObjectInteger:
		return float64(*t), nil
	}
	return 0, ErrNotANumber
}

// GetNumbersAsFloat converts a list of pdf objects representing floats or integers to a slice of
// float64 values.
func GetNumbersAsFloat(objects []PdfObject) (floats []float64, err error) {
	for _, obj := range objects {
		val, err := GetNumberAsFloat(obj)
		if err != nil {
			return nil, err
		}
		floats = append(floats, val)
	}
	return floats, nil
}

// IsNullObject returns true if `obj` is a PdfObjectNull.
func IsNullObject(obj PdfObject) bool {
	_, isNull := TraceToDirectObject(obj).(*PdfObjectNull)
	return isNull
}

// GetBoolVal returns the bool value within a *PdObjectBool represented by an PdfObject directly or
// indirectly. If the object is not a *PdfObjectBool, `found` is false.
func GetBoolVal(obj PdfObject) (b bool, found bool) {
	boolObj, found := TraceToDirectObject(obj).(*PdfObjectBool)
	if found {
		return bool(*boolObj), true
	}
	return false, false
}

// GetIntVal returns the int value represented by the PdfObject directly or indirectly if contained
// within an indirect object. On type mismatch the found bool flag returned is false and 0 is
// returned.
func GetIntVal(obj PdfObject) (val int, found bool) {
	intObj, found := TraceToDirectObject(obj).(*PdfObjectInteger)
	if found && intObj != nil {
		return int(*intObj), true
	}
	return 0, false
}

// GetFloatVal returns the float64 value represented by the PdfObject directly or indirectly if
// contained within an indirect object. On type mismatch the found bool flag returned is false and
// 0 is returned.
func GetFloatVal(obj PdfObject) (val float64, found bool) {
	floatObj, found := TraceToDirectObject(obj).(*PdfObjectFloat)
	if found {
		return float64(*floatObj), true
	}
	return 0, false
}

// GetString returns the *PdfObjectString represented by the PdfObject directly or indirectly within
// an indirect object. On type mismatch the found bool flag is false and a nil pointer is returned.
func GetString(obj PdfObject) (so *PdfObjectString, found bool) {
	so, found = TraceToDirectObject(obj).(*PdfObjectString)
	return so, found
}

// GetStringVal returns the string value represented by the PdfObject directly or indirectly if
// contained within an indirect object. On type mismatch the found bool flag returned is false and
// an empty string is returned.
func GetStringVal(obj PdfObject) (val string, found bool) {
	so, found := TraceToDirectObject(obj).(*PdfObjectString)
	if found {
		return so.Str(), true
	}
	return "", false
}

// GetStringBytes is like GetStringVal except that it returns the string as a []byte.
// It is for convenience.
func GetStringBytes(obj PdfObject) (val []byte, found bool) {
	so, found := TraceToDirectObject(obj).(*PdfObjectString)
	if found {
		return so.Bytes(), true
	}
	return nil, false
}

// GetName returns the *PdfObjectName represented by the PdfObject directly or indirectly within an
// indirect object. On type mismatch the found bool flag is false and a nil pointer is returned.
func GetName(obj PdfObject) (name *PdfObjectName, found bool) {
	name, found = TraceToDirectObject(obj).(*PdfObjectName)
	return name, found
}

// GetNameVal returns the string value represented by the PdfObject directly or indirectly if
// contained within an indirect object. On type mismatch the found bool flag returned is false and
// an empty string is returned.
func GetNameVal(obj PdfObject) (val string, found bool) {
	name, found := TraceToDirectObject(obj).(*PdfObjectName)
	if found {
		return string(*name), true
	}
	return "", false
}

// GetArray returns the *PdfObjectArray represented by the PdfObject directly or indirectly within
// an indirect object. On type mismatch the found bool flag is false and a nil pointer is returned.
func GetArray(obj PdfObject) (arr *PdfObjectArray, found bool) {
	arr, found = TraceToDirectObject(obj).(*PdfObjectArray)
	return arr, found
}

// GetDict returns the *PdfObjectDictionary represented by the PdfObject directly or indirectly
// within an indirect object. On type mismatch the found bool flag is false and a nil pointer is
// returned.
func GetDict(obj PdfObject) (dict *PdfObjectDictionary, found bool) {
	dict, found = TraceToDirectObject(obj).(*PdfObjectDictionary)
	return dict, found
}
