package math

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertMat4InDelta(t *testing.T, expected, actual Mat4, delta float64) {
	t.Helper()
	for i := range expected.Data {
		assert.InDelta(t, float64(expected.Data[i]), float64(actual.Data[i]), delta, "element %d", i)
	}
}

func TestDegToRad(t *testing.T) {
	assert.InDelta(t, gomath.Pi, float64(DegToRad(180)), 1e-6)
	assert.InDelta(t, gomath.Pi/3, float64(DegToRad(60)), 1e-6)
	assert.InDelta(t, 90.0, float64(RadToDeg(Pi/2)), 1e-4)
}

func TestMat4MulIdentity(t *testing.T) {
	translation := NewMat4Translation(NewVec3(1, 2, 3))

	assertMat4InDelta(t, translation, translation.Mul(NewMat4Identity()), 1e-6)
	assertMat4InDelta(t, translation, NewMat4Identity().Mul(translation), 1e-6)
}

func TestMat4MulAppliesReceiverFirst(t *testing.T) {
	rotate := NewMat4EulerZ(DegToRad(90))
	translate := NewMat4Translation(NewVec3(5, 0, 0))

	// Rotating first keeps the translation untouched.
	combined := rotate.Mul(translate)
	assert.InDelta(t, 5, float64(combined.Data[12]), 1e-5)
	assert.InDelta(t, 0, float64(combined.Data[13]), 1e-5)

	// Translating first rotates the offset onto the y axis.
	combined = translate.Mul(rotate)
	assert.InDelta(t, 0, float64(combined.Data[12]), 1e-5)
	assert.InDelta(t, 5, float64(combined.Data[13]), 1e-5)
}

func TestMat4EulerRotations(t *testing.T) {
	c := float32(gomath.Cos(gomath.Pi / 6))
	s := float32(gomath.Sin(gomath.Pi / 6))
	angle := DegToRad(30)

	x := NewMat4EulerX(angle)
	assert.InDelta(t, float64(c), float64(x.Data[5]), 1e-6)
	assert.InDelta(t, float64(s), float64(x.Data[6]), 1e-6)
	assert.InDelta(t, float64(-s), float64(x.Data[9]), 1e-6)
	assert.InDelta(t, float64(c), float64(x.Data[10]), 1e-6)

	y := NewMat4EulerY(angle)
	assert.InDelta(t, float64(c), float64(y.Data[0]), 1e-6)
	assert.InDelta(t, float64(-s), float64(y.Data[2]), 1e-6)
	assert.InDelta(t, float64(s), float64(y.Data[8]), 1e-6)

	z := NewMat4EulerZ(angle)
	assert.InDelta(t, float64(c), float64(z.Data[0]), 1e-6)
	assert.InDelta(t, float64(s), float64(z.Data[1]), 1e-6)
	assert.InDelta(t, float64(-s), float64(z.Data[4]), 1e-6)
}

func TestMat4Perspective(t *testing.T) {
	fov := DegToRad(60)
	aspect := float32(16.0 / 9.0)
	p := NewMat4Perspective(fov, aspect, 0.1, 100)

	halfTan := gomath.Tan(float64(fov) / 2)
	assert.InDelta(t, 1/(float64(aspect)*halfTan), float64(p.Data[0]), 1e-5)
	assert.InDelta(t, 1/halfTan, float64(p.Data[5]), 1e-5)
	assert.InDelta(t, -(100.0+0.1)/(100.0-0.1), float64(p.Data[10]), 1e-5)
	assert.InDelta(t, -1, float64(p.Data[11]), 1e-6)
	assert.InDelta(t, -(2*100.0*0.1)/(100.0-0.1), float64(p.Data[14]), 1e-5)
	assert.InDelta(t, 0, float64(p.Data[15]), 1e-6)
}

func TestMat4Translation(t *testing.T) {
	translation := NewMat4Translation(NewVec3(4, -5, 6))
	assert.Equal(t, float32(4), translation.Data[12])
	assert.Equal(t, float32(-5), translation.Data[13])
	assert.Equal(t, float32(6), translation.Data[14])
	assert.Equal(t, float32(1), translation.Data[0])
	assert.Equal(t, float32(1), translation.Data[15])
}

func TestMat4Transposed(t *testing.T) {
	translation := NewMat4Translation(NewVec3(1, 2, 3))
	transposed := NewMat4Transposed(translation)

	assert.Equal(t, float32(1), transposed.Data[3])
	assert.Equal(t, float32(2), transposed.Data[7])
	assert.Equal(t, float32(3), transposed.Data[11])
	assert.Equal(t, float32(0), transposed.Data[12])

	assertMat4InDelta(t, translation, NewMat4Transposed(transposed), 1e-6)
}

func TestVec3Operations(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(4, 5, 6)

	assert.Equal(t, NewVec3(5, 7, 9), a.Add(b))
	assert.Equal(t, NewVec3(-3, -3, -3), a.Sub(b))
	assert.Equal(t, NewVec3(2, 4, 6), a.MulScalar(2))
	assert.Equal(t, NewVec3Zero(), a.MulScalar(0))
}

func TestVec3Compare(t *testing.T) {
	a := NewVec3(1, 2, 3)
	assert.True(t, a.Compare(NewVec3(1.0005, 2, 3), 0.001))
	assert.False(t, a.Compare(NewVec3(1.1, 2, 3), 0.001))
	assert.False(t, a.Compare(NewVec3(1, 2, 3.1), 0.001))
}

func TestMinMaxClamp(t *testing.T) {
	assert.Equal(t, 3, Min(3, 7))
	assert.Equal(t, 7, Max(3, 7))
	assert.Equal(t, float32(2.5), Min(float32(2.5), 9))

	assert.Equal(t, uint32(5), Clamp(uint32(5), 1, 10))
	assert.Equal(t, uint32(1), Clamp(uint32(0), 1, 10))
	assert.Equal(t, uint32(10), Clamp(uint32(42), 1, 10))
}
