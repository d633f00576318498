/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/quillpdf/quillpdf/common"
)

// PdfObject is an interface which all PDF object types implement. Content
// stream operands are PdfObjects.
type PdfObject interface {
	// String outputs a string representation of the primitive (for debugging).
	String() string

	// WriteString outputs the PDF primitive as written to file as expected by the standard.
	WriteString() string
}

// PdfObjectBool represents the primitive PDF boolean object.
type PdfObjectBool bool

// PdfObjectInteger represents the primitive PDF integer numerical object.
type PdfObjectInteger int64

// PdfObjectFloat represents the primitive PDF floating point numerical object.
type PdfObjectFloat float64

// PdfObjectString represents the primitive PDF string object.
type PdfObjectString struct {
	val   string
	isHex bool
}

// PdfObjectName represents the primitive PDF name object.
type PdfObjectName string

// PdfObjectArray represents the primitive PDF array object.
type PdfObjectArray struct {
	vec []PdfObject
}

// PdfObjectDictionary represents the primitive PDF dictionary/map object.
type PdfObjectDictionary struct {
	dict map[PdfObjectName]PdfObject
	keys []PdfObjectName
}

// PdfObjectNull represents the primitive PDF null object.
type PdfObjectNull struct{}

// Resolver resolves an indirect object reference to a direct object.
// The document layer that owns the cross-reference table supplies it.
type Resolver interface {
	Resolve(objNum, genNum int64) PdfObject
}

// PdfObjectReference represents the primitive PDF reference object.
type PdfObjectReference struct {
	ObjectNumber     int64
	GenerationNumber int64

	resolver Resolver
}

// MakeDict creates and returns an empty PdfObjectDictionary.
func MakeDict() *PdfObjectDictionary {
	d := &PdfObjectDictionary{}
	d.dict = map[PdfObjectName]PdfObject{}
	return d
}

// MakeName creates a PdfObjectName from a string.
func MakeName(s string) *PdfObjectName {
	name := PdfObjectName(s)
	return &name
}

// MakeInteger creates a PdfObjectInteger from an int64.
func MakeInteger(val int64) *PdfObjectInteger {
	num := PdfObjectInteger(val)
	return &num
}

// MakeBool creates a PdfObjectBool from a bool value.
func MakeBool(val bool) *PdfObjectBool {
	v := PdfObjectBool(val)
	return &v
}

// MakeFloat creates an PdfObjectFloat from a float64.
func MakeFloat(val float64) *PdfObjectFloat {
	num := PdfObjectFloat(val)
	return &num
}

// MakeString creates an PdfObjectString from a string.
// NOTE: PDF does not use utf-8 string encoding like Go so `s` will often not be a utf-8 encoded
// string.
func MakeString(s string) *PdfObjectString {
	str := PdfObjectString{val: s}
	return &str
}

// MakeStringFromBytes creates an PdfObjectString from a byte array.
func MakeStringFromBytes(data []byte) *PdfObjectString {
	return MakeString(string(data))
}

// MakeHexString creates an PdfObjectString that will be outputted in hexadecimal format.
func MakeHexString(s string) *PdfObjectString {
	str := PdfObjectString{val: s, isHex: true}
	return &str
}

// MakeArray creates an PdfObjectArray from a list of PdfObjects.
func MakeArray(objects ...PdfObject) *PdfObjectArray {
	return &PdfObjectArray{vec: objects}
}

// MakeArrayFromFloats creates an PdfObjectArray from a slice of float64s, where each array element
// is an PdfObjectFloat.
func MakeArrayFromFloats(vals []float64) *PdfObjectArray {
	array := MakeArray()
	for _, val := range vals {
		array.Append(MakeFloat(val))
	}
	return array
}

// MakeNull creates an PdfObjectNull.
func MakeNull() *PdfObjectNull {
	return &PdfObjectNull{}
}

// MakeReference creates a PdfObjectReference that resolves through `resolver`.
func MakeReference(objNum, genNum int64, resolver Resolver) *PdfObjectReference {
	return &PdfObjectReference{
		ObjectNumber:     objNum,
		GenerationNumber: genNum,
		resolver:         resolver,
	}
}

// Resolve resolves the reference and returns the indirect or stream object.
// If the reference cannot be resolved, a *PdfObjectNull is returned.
func (ref *PdfObjectReference) Resolve() PdfObject {
	if ref.resolver == nil {
		return MakeNull()
	}
	obj := ref.resolver.Resolve(ref.ObjectNumber, ref.GenerationNumber)
	if obj == nil {
		return MakeNull()
	}
	return obj
}

// String returns the state of the bool as "true" or "false".
func (b *PdfObjectBool) String() string {
	if *b {
		return "true"
	}
	return "false"
}

// WriteString outputs the object as it is to be written to file.
func (b *PdfObjectBool) WriteString() string {
	return b.String()
}

// String returns the state of the integer.
func (i *PdfObjectInteger) String() string {
	return fmt.Sprintf("%d", *i)
}

// WriteString outputs the object as it is to be written to file.
func (i *PdfObjectInteger) WriteString() string {
	return strconv.FormatInt(int64(*i), 10)
}

// String returns the state of the float.
func (f *PdfObjectFloat) String() string {
	return fmt.Sprintf("%f", *f)
}

// WriteString outputs the object as it is to be written to file.
func (f *PdfObjectFloat) WriteString() string {
	return strconv.FormatFloat(float64(*f), 'f', -1, 64)
}

// String returns a string representation of `str`.
func (str *PdfObjectString) String() string {
	return str.val
}

// Str returns the string value of `str`.
func (str *PdfObjectString) Str() string {
	return str.val
}

// Bytes returns the PdfObjectString content as a []byte array.
func (str *PdfObjectString) Bytes() []byte {
	return []byte(str.val)
}

// WriteString outputs the object as it is to be written to file.
func (str *PdfObjectString) WriteString() string {
	var output bytes.Buffer

	if str.isHex {
		shex := hex.EncodeToString(str.Bytes())
		output.WriteString("<" + shex + ">")
		return output.String()
	}

	escapeSequences := map[byte]string{
		'\n': "\\n",
		'\r': "\\r",
		'\t': "\\t",
		'\b': "\\b",
		'\f': "\\f",
		'(':  "\\(",
		')':  "\\)",
		'\\': "\\\\",
	}

	output.WriteString("(")
	for i := 0; i < len(str.val); i++ {
		char := str.val[i]
		if escStr, useEsc := escapeSequences[char]; useEsc {
			output.WriteString(escStr)
		} else {
			output.WriteByte(char)
		}
	}
	output.WriteString(")")
	return output.String()
}

// String returns a string representation of the name, without the leading slash.
func (name *PdfObjectName) String() string {
	return string(*name)
}

// WriteString outputs the object as it is to be written to file.
func (name *PdfObjectName) WriteString() string {
	var output bytes.Buffer

	if len(*name) > 127 {
		common.Log.Debug("ERROR: Name too long (%s)", *name)
	}

	output.WriteString("/")
	for i := 0; i < len(*name); i++ {
		char := (*name)[i]
		if !IsPrintable(char) || char == '#' || IsDelimiter(char) {
			output.WriteString(fmt.Sprintf("#%.2x", char))
		} else {
			output.WriteByte(char)
		}
	}

	return output.String()
}

// Elements returns a slice of the PdfObject elements in the array.
func (array *PdfObjectArray) Elements() []PdfObject {
	if array == nil {
		return nil
	}
	return array.vec
}

// Len returns the number of elements in the array.
func (array *PdfObjectArray) Len() int {
	if array == nil {
		return 0
	}
	return len(array.vec)
}

// Get returns the i-th element of the array or nil if out of bounds (by index).
func (array *PdfObjectArray) Get(i int) PdfObject {
	if array == nil || i >= len(array.vec) || i < 0 {
		return nil
	}
	return array.vec[i]
}

// Append appends PdfObject(s) to the array.
func (array *PdfObjectArray) Append(objects ...PdfObject) {
	if array == nil {
		common.Log.Debug("Warn - Attempt to append to a nil array")
		return
	}
	array.vec = append(array.vec, objects...)
}

// ToFloat64Array returns a slice of all elements in the array as a float64 slice.  An error is
// returned if the array contains non-numeric objects (each element can be either PdfObjectInteger
// or PdfObjectFloat).
func (array *PdfObjectArray) ToFloat64Array() ([]float64, error) {
	var vals []float64

	for _, obj := range array.Elements() {
		switch t := obj.(type) {
		case *PdfObjectInteger:
			vals = append(vals, float64(*t))
		case *PdfObjectFloat:
			vals = append(vals, float64(*t))
		default:
			return nil, ErrTypeError
		}
	}

	return vals, nil
}

// String returns a string describing `array`.
func (array *PdfObjectArray) String() string {
	outStr := "["
	for ind, o := range array.Elements() {
		outStr += o.String()
		if ind < array.Len()-1 {
			outStr += ", "
		}
	}
	outStr += "]"
	return outStr
}

// WriteString outputs the object as it is to be written to file.
func (array *PdfObjectArray) WriteString() string {
	var b strings.Builder
	b.WriteString("[")

	for ind, o := range array.Elements() {
		b.WriteString(o.WriteString())
		if ind < array.Len()-1 {
			b.WriteString(" ")
		}
	}

	b.WriteString("]")
	return b.String()
}

// Set sets the dictionary's key -> val mapping entry. Overwrites if key already set.
func (d *PdfObjectDictionary) Set(key PdfObjectName, val PdfObject) {
	_, found := d.dict[key]
	if !found {
		d.keys = append(d.keys, key)
	}
	d.dict[key] = val
}

// Get returns the PdfObject corresponding to the specified key.
// Returns a nil value if the key is not set.
func (d *PdfObjectDictionary) Get(key PdfObjectName) PdfObject {
	val, has := d.dict[key]
	if !has {
		return nil
	}
	return val
}

// Keys returns the list of keys in the dictionary.
// If `d` is nil returns a nil slice.
func (d *PdfObjectDictionary) Keys() []PdfObjectName {
	if d == nil {
		return nil
	}
	return d.keys
}

// Remove removes an element specified by key.
func (d *PdfObjectDictionary) Remove(key PdfObjectName) {
	idx := -1
	for i, k := range d.keys {
		if k == key {
			idx = i
			break
		}
	}

	if idx >= 0 {
		d.keys = append(d.keys[:idx], d.keys[idx+1:]...)
		delete(d.dict, key)
	}
}

// String returns a string describing `d`.
func (d *PdfObjectDictionary) String() string {
	var b strings.Builder
	b.WriteString("Dict(")
	for _, k := range d.keys {
		v := d.dict[k]
		b.WriteString(`"` + k.String() + `": `)
		b.WriteString(v.String())
		b.WriteString(`, `)
	}
	b.WriteString(")")
	return b.String()
}

// WriteString outputs the object as it is to be written to file.
func (d *PdfObjectDictionary) WriteString() string {
	var b strings.Builder

	b.WriteString("<<")
	for _, k := range d.keys {
		v := d.dict[k]
		b.WriteString(k.WriteString())
		b.WriteString(" ")
		b.WriteString(v.WriteString())
	}
	b.WriteString(">>")
	return b.String()
}

// String returns the string representation of the PdfObjectNull.
func (null *PdfObjectNull) String() string {
	return "null"
}

// WriteString outputs the object as it is to be written to file.
func (null *PdfObjectNull) WriteString() string {
	return "null"
}

// String returns a string describing `ref`.
func (ref *PdfObjectReference) String() string {
	return fmt.Sprintf("Ref(%d %d)", ref.ObjectNumber, ref.GenerationNumber)
}

// WriteString outputs the object as it is to be written to file.
func (ref *PdfObjectReference) WriteString() string {
	return fmt.Sprintf("%d %d R", ref.ObjectNumber, ref.GenerationNumber)
}

// SortedKeys returns the dictionary keys in sorted order. Useful for
// deterministic iteration in logs and tests.
func (d *PdfObjectDictionary) SortedKeys() []PdfObjectName {
	keys := make([]PdfObjectName, len(d.keys))
	copy(keys, d.keys)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
