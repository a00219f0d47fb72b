package math

import (
	gomath "math"
)

const Pi = float32(gomath.Pi)

func ksin(x float32) float32 {
	return float32(gomath.Sin(float64(x)))
}

func kcos(x float32) float32 {
	return float32(gomath.Cos(float64(x)))
}

func ktan(x float32) float32 {
	return float32(gomath.Tan(float64(x)))
}

func kabs(x float32) float32 {
	return float32(gomath.Abs(float64(x)))
}

// DegToRad converts degrees to radians.
func DegToRad(degrees float32) float32 {
	return degrees * Pi / 180.0
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float32) float32 {
	return radians * 180.0 / Pi
}

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{
		X: v.X * scalar,
		Y: v.Y * scalar,
		Z: v.Z * scalar,
	}
}

// Compare returns true if all components of the two vectors are within
// tolerance of each other.
func (v Vec3) Compare(other Vec3, tolerance float32) bool {
	if kabs(v.X-other.X) > tolerance {
		return false
	}
	if kabs(v.Y-other.Y) > tolerance {
		return false
	}
	return kabs(v.Z-other.Z) <= tolerance
}

func NewMat4Identity() Mat4 {
	outMatrix := Mat4{}
	outMatrix.Data[0] = 1.0
	outMatrix.Data[5] = 1.0
	outMatrix.Data[10] = 1.0
	outMatrix.Data[15] = 1.0
	return outMatrix
}

// Mul returns the product of the two matrices. mt is applied first,
// other second: chaining rotate.Mul(translate) rotates then translates.
func (mt Mat4) Mul(other Mat4) Mat4 {
	outMatrix := Mat4{}

	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			outMatrix.Data[row*4+col] = sum
		}
	}

	return outMatrix
}

// NewMat4Perspective creates a perspective projection matrix from the field
// of view (radians), the aspect ratio and the near/far clip distances.
func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	halfTanFov := ktan(fovRadians * 0.5)
	outMatrix := Mat4{}
	outMatrix.Data[0] = 1.0 / (aspectRatio * halfTanFov)
	outMatrix.Data[5] = 1.0 / halfTanFov
	outMatrix.Data[10] = -((farClip + nearClip) / (farClip - nearClip))
	outMatrix.Data[11] = -1.0
	outMatrix.Data[14] = -((2.0 * farClip * nearClip) / (farClip - nearClip))
	return outMatrix
}

// NewMat4Orthographic creates an orthographic projection matrix. Typically
// used to render flat or 2D scenes.
func NewMat4Orthographic(left, right, bottom, top, nearClip, farClip float32) Mat4 {
	outMatrix := NewMat4Identity()

	lr := 1.0 / (left - right)
	bt := 1.0 / (bottom - top)
	nf := 1.0 / (nearClip - farClip)

	outMatrix.Data[0] = -2.0 * lr
	outMatrix.Data[5] = -2.0 * bt
	outMatrix.Data[10] = 2.0 * nf

	outMatrix.Data[12] = (left + right) * lr
	outMatrix.Data[13] = (top + bottom) * bt
	outMatrix.Data[14] = (farClip + nearClip) * nf
	return outMatrix
}

// NewMat4Translation creates a translation matrix from the given position.
func NewMat4Translation(position Vec3) Mat4 {
	outMatrix := NewMat4Identity()
	outMatrix.Data[12] = position.X
	outMatrix.Data[13] = position.Y
	outMatrix.Data[14] = position.Z
	return outMatrix
}

// NewMat4Scale returns a scale matrix using the provided scale.
func NewMat4Scale(scale Vec3) Mat4 {
	outMatrix := NewMat4Identity()
	outMatrix.Data[0] = scale.X
	outMatrix.Data[5] = scale.Y
	outMatrix.Data[10] = scale.Z
	return outMatrix
}

// NewMat4EulerX creates a rotation matrix about the x axis.
func NewMat4EulerX(angleRadians float32) Mat4 {
	outMatrix := NewMat4Identity()
	c := kcos(angleRadians)
	s := ksin(angleRadians)

	outMatrix.Data[5] = c
	outMatrix.Data[6] = s
	outMatrix.Data[9] = -s
	outMatrix.Data[10] = c
	return outMatrix
}

// NewMat4EulerY creates a rotation matrix about the y axis.
func NewMat4EulerY(angleRadians float32) Mat4 {
	outMatrix := NewMat4Identity()
	c := kcos(angleRadians)
	s := ksin(angleRadians)

	outMatrix.Data[0] = c
	outMatrix.Data[2] = -s
	outMatrix.Data[8] = s
	outMatrix.Data[10] = c
	return outMatrix
}

// NewMat4EulerZ creates a rotation matrix about the z axis.
func NewMat4EulerZ(angleRadians float32) Mat4 {
	outMatrix := NewMat4Identity()

	c := kcos(angleRadians)
	s := ksin(angleRadians)

	outMatrix.Data[0] = c
	outMatrix.Data[1] = s
	outMatrix.Data[4] = -s
	outMatrix.Data[5] = c
	return outMatrix
}

// NewMat4Transposed returns a transposed copy of the provided matrix.
func NewMat4Transposed(matrix Mat4) Mat4 {
	outMatrix := Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			outMatrix.Data[col*4+row] = matrix.Data[row*4+col]
		}
	}
	return outMatrix
}
