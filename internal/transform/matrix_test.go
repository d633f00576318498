/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-10

func matricesEqual(t *testing.T, expected, actual Matrix) {
	t.Helper()
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], tol, "element %d", i)
	}
}

func TestIdentity(t *testing.T) {
	i := IdentityMatrix()
	m := NewMatrix(2, 1, 0.5, 3, 10, -4)

	matricesEqual(t, m, m.Mult(i))
	matricesEqual(t, m, i.Mult(m))
}

func TestMultAssociative(t *testing.T) {
	a := NewMatrix(2, 0, 0, 2, 5, 5)
	b := NewMatrix(0, 1, -1, 0, 0, 0)
	c := NewMatrix(1, 0, 0, 1, -3, 7)

	// (a×b)×c vs a×(b×c), in post-multiplication order.
	left := c.Mult(b).Mult(a)
	right := c.Mult(b.Mult(a))
	matricesEqual(t, left, right)
}

func TestConcatOrder(t *testing.T) {
	// Concat post-multiplies: the concatenated matrix applies before the
	// existing transform, so the two orders differ.
	m := IdentityMatrix()
	m.Concat(ScaleMatrix(2, 2))
	m.Concat(TranslationMatrix(10, 0))

	x, y := m.Transform(0, 0)
	assert.InDelta(t, 20.0, x, tol)
	assert.InDelta(t, 0.0, y, tol)

	m = IdentityMatrix()
	m.Concat(TranslationMatrix(10, 0))
	m.Concat(ScaleMatrix(2, 2))

	x, _ = m.Transform(0, 0)
	assert.InDelta(t, 10.0, x, tol)
}

func TestScalingFactors(t *testing.T) {
	m := NewMatrix(3, 4, 6, 8, 0, 0)
	assert.InDelta(t, 5.0, m.ScalingFactorX(), tol)
	assert.InDelta(t, 10.0, m.ScalingFactorY(), tol)

	// Rotation preserves scale magnitudes.
	s := math.Sqrt2 / 2
	r := NewMatrix(s, s, -s, s, 0, 0)
	assert.InDelta(t, 1.0, r.ScalingFactorX(), tol)
	assert.InDelta(t, 1.0, r.ScalingFactorY(), tol)
}

func TestPositionAccessors(t *testing.T) {
	m := NewMatrix(1, 0, 0, 1, 12.5, -7.25)
	assert.Equal(t, 12.5, m.XPosition())
	assert.Equal(t, -7.25, m.YPosition())

	tx, ty := m.Translation()
	assert.Equal(t, 12.5, tx)
	assert.Equal(t, -7.25, ty)
}

func TestInverse(t *testing.T) {
	m := NewMatrix(2, 0, 0, 4, 10, 20)
	inv, ok := m.Inverse()
	require.True(t, ok)
	matricesEqual(t, IdentityMatrix(), m.Mult(inv))

	singular := NewMatrix(1, 2, 2, 4, 0, 0)
	_, ok = singular.Inverse()
	require.False(t, ok)
}

func TestClampRange(t *testing.T) {
	m := NewMatrix(1e300, 0, 0, 1, 0, 0)
	assert.Equal(t, 1e9, m[0])
}

func TestCloneIsDistinct(t *testing.T) {
	m := NewMatrix(1, 0, 0, 1, 5, 5)
	c := m.Clone()
	c.Concat(TranslationMatrix(100, 100))
	assert.Equal(t, 5.0, m.XPosition())
}
