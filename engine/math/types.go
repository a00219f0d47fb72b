package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

// Mat4 is a 4x4 matrix stored as 16 contiguous floats, laid out the way the
// GPU consumes a std140 mat4 (translation lives in Data[12..14]).
type Mat4 struct {
	Data [16]float32
}

// Vertex2D is a position plus texture coordinate, the layout the quad
// samples feed to the vertex stage.
type Vertex2D struct {
	Position Vec3
	Texcoord Vec2
}
