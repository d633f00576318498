/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package transform

import (
	"fmt"
	"math"

	"github.com/quillpdf/quillpdf/common"
)

// Matrix is a linear transform matrix in homogenous coordinates.
// PDF coordinate transforms are always affine so only six of the nine
// entries are meaningful. See NewMatrix.
type Matrix [9]float64

// IdentityMatrix returns the identity transform.
func IdentityMatrix() Matrix {
	return NewMatrix(1, 0, 0, 1, 0, 0)
}

// TranslationMatrix returns a matrix that translates by `tx`, `ty`.
func TranslationMatrix(tx, ty float64) Matrix {
	return NewMatrix(1, 0, 0, 1, tx, ty)
}

// ScaleMatrix returns a matrix that scales by `sx`, `sy`.
func ScaleMatrix(sx, sy float64) Matrix {
	return NewMatrix(sx, 0, 0, sy, 0, 0)
}

// NewMatrix returns an affine transform matrix laid out in homogenous coordinates as
//
//	a  b  0
//	c  d  0
//	tx ty 1
func NewMatrix(a, b, c, d, tx, ty float64) Matrix {
	m := Matrix{
		a, b, 0,
		c, d, 0,
		tx, ty, 1,
	}
	m.clampRange()
	return m
}

// String returns a string describing `m`.
func (m Matrix) String() string {
	a, b, c, d, tx, ty := m[0], m[1], m[3], m[4], m[6], m[7]
	return fmt.Sprintf("[%7.4f,%7.4f,%7.4f,%7.4f:%7.4f,%7.4f]", a, b, c, d, tx, ty)
}

// Set sets `m` to affine transform a,b,c,d,tx,ty.
func (m *Matrix) Set(a, b, c, d, tx, ty float64) {
	m[0], m[1] = a, b
	m[3], m[4] = c, d
	m[6], m[7] = tx, ty
	m.clampRange()
}

// Concat sets `m` to `b` × `m`.
// `b` needs to be created by NewMatrix. i.e. It must be an affine transform.
//
//	b00 b01 0     m00 m01 0     b00*m00 + b01*m10        b00*m01 + b01*m11        0
//	b10 b11 0  ×  m10 m11 0  ➔  b10*m00 + b11*m10        b10*m01 + b11*m11        0
//	b20 b21 1     m20 m21 1     b20*m00 + b21*m10 + m20  b20*m01 + b21*m11 + m21  1
func (m *Matrix) Concat(b Matrix) {
	*m = Matrix{
		b[0]*m[0] + b[1]*m[3], b[0]*m[1] + b[1]*m[4], 0,
		b[3]*m[0] + b[4]*m[3], b[3]*m[1] + b[4]*m[4], 0,
		b[6]*m[0] + b[7]*m[3] + m[6], b[6]*m[1] + b[7]*m[4] + m[7], 1,
	}
	m.clampRange()
}

// Mult returns `b` × `m`.
func (m Matrix) Mult(b Matrix) Matrix {
	m.Concat(b)
	return m
}

// Clone returns a distinct copy of `m`. Matrix is a value type so the copy
// is implicit; Clone exists so call sites that hand matrices to long-lived
// consumers read explicitly.
func (m Matrix) Clone() Matrix {
	return m
}

// Translate returns `m` with an extra translation of `tx`,`ty`.
func (m Matrix) Translate(tx, ty float64) Matrix {
	return NewMatrix(m[0], m[1], m[3], m[4], m[6]+tx, m[7]+ty)
}

// Translation returns the translation part of `m`.
func (m Matrix) Translation() (float64, float64) {
	return m[6], m[7]
}

// XPosition returns the x position encoded in the last row of `m`.
func (m Matrix) XPosition() float64 {
	return m[6]
}

// YPosition returns the y position encoded in the last row of `m`.
func (m Matrix) YPosition() float64 {
	return m[7]
}

// Transform returns coordinates `x`,`y` transformed by `m`.
func (m Matrix) Transform(x, y float64) (float64, float64) {
	xp := x*m[0] + y*m[3] + m[6]
	yp := x*m[1] + y*m[4] + m[7]
	return xp, yp
}

// ScalingFactorX returns the X scaling of the affine transform.
func (m Matrix) ScalingFactorX() float64 {
	return math.Hypot(m[0], m[1])
}

// ScalingFactorY returns the Y scaling of the affine transform.
func (m Matrix) ScalingFactorY() float64 {
	return math.Hypot(m[3], m[4])
}

// Inverse returns the inverse of `m` and a boolean to indicate whether the inverse exists.
func (m Matrix) Inverse() (Matrix, bool) {
	a, b := m[0], m[1]
	c, d := m[3], m[4]
	tx, ty := m[6], m[7]
	det := a*d - b*c
	if math.Abs(det) < minDeterminant {
		return Matrix{}, false
	}
	aI, bI := d/det, -b/det
	cI, dI := -c/det, a/det
	txI := -(aI*tx + cI*ty)
	tyI := -(bI*tx + dI*ty)
	return NewMatrix(aI, bI, cI, dI, txI, tyI), true
}

// clampRange forces `m` to have reasonable values. It is a guard against crazy values in corrupt PDF files.
// Currently it clamps elements to [-maxAbsNumber, maxAbsNumber] to avoid floating point exceptions.
func (m *Matrix) clampRange() {
	for i, x := range m {
		if x > maxAbsNumber {
			common.Log.Debug("CLAMP: %g -> %g", x, maxAbsNumber)
			m[i] = maxAbsNumber
		} else if x < -maxAbsNumber {
			common.Log.Debug("CLAMP: %g -> %g", x, -maxAbsNumber)
			m[i] = -maxAbsNumber
		}
	}
}

// maxAbsNumber defines the maximum absolute value of allowed practical matrix element values as needed
// to avoid floating point exceptions.
const maxAbsNumber = 1e9

// minDeterminant is the smallest matrix determinant we are prepared to deal with.
// Smaller determinants may lead to rounding errors.
const minDeterminant = 1.0e-6
