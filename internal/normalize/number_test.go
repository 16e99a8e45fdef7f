package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumber_BrazilianFormat(t *testing.T) {
	v, ok := Number("1.234,56")
	assert.True(t, ok)
	assert.InDelta(t, 1234.56, v, 1e-9)
}

func TestNumber_PlainFormat(t *testing.T) {
	v, ok := Number("1234.56")
	assert.True(t, ok)
	assert.InDelta(t, 1234.56, v, 1e-9)
}

func TestNumber_USThousands(t *testing.T) {
	v, ok := Number("1,234.56")
	assert.True(t, ok)
	assert.InDelta(t, 1234.56, v, 1e-9)
}

func TestNumber_CommaDecimal(t *testing.T) {
	v, ok := Number("87,5")
	assert.True(t, ok)
	assert.InDelta(t, 87.5, v, 1e-9)
}

func TestNumber_MultipleDots(t *testing.T) {
	v, ok := Number("1.234.567")
	assert.True(t, ok)
	assert.InDelta(t, 1234.567, v, 1e-9)
}

func TestNumber_StraySymbols(t *testing.T) {
	v, ok := Number("R$ 95,00")
	assert.True(t, ok)
	assert.InDelta(t, 95.0, v, 1e-9)
}

func TestNumber_Negative(t *testing.T) {
	v, ok := Number("-70")
	assert.True(t, ok)
	assert.InDelta(t, -70.0, v, 1e-9)
}

func TestNumber_Garbage(t *testing.T) {
	_, ok := Number("abc")
	assert.False(t, ok)
	_, ok = Number("")
	assert.False(t, ok)
	_, ok = Number("   ")
	assert.False(t, ok)
	_, ok = Number("--..,,")
	assert.False(t, ok)
}

func TestNumberOf_Scalars(t *testing.T) {
	v, ok := NumberOf(85)
	assert.True(t, ok)
	assert.Equal(t, 85.0, v)

	v, ok = NumberOf(72.5)
	assert.True(t, ok)
	assert.Equal(t, 72.5, v)

	_, ok = NumberOf(nil)
	assert.False(t, ok)

	_, ok = NumberOf(math.NaN())
	assert.False(t, ok)

	_, ok = NumberOf(math.Inf(1))
	assert.False(t, ok)
}

func TestNumberOf_PointerAndString(t *testing.T) {
	score := 68.0
	v, ok := NumberOf(&score)
	assert.True(t, ok)
	assert.Equal(t, 68.0, v)

	var missing *float64
	_, ok = NumberOf(missing)
	assert.False(t, ok)

	v, ok = NumberOf("70,5")
	assert.True(t, ok)
	assert.InDelta(t, 70.5, v, 1e-9)
}
