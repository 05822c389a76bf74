package draw

import "golang.org/x/image/math/f32"

// Identity returns the 4x4 identity matrix.
func Identity() f32.Mat4 {
	return f32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns a×b for row-major matrices.
func Mul(a, b f32.Mat4) f32.Mat4 {
	var out f32.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[4*r+k] * b[4*k+c]
			}
			out[4*r+c] = sum
		}
	}
	return out
}

// ColumnMajor returns m in the column-major order the backend uniform uses.
func ColumnMajor(m f32.Mat4) [16]float32 {
	var out [16]float32
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[4*c+r] = m[4*r+c]
		}
	}
	return out
}

// Ortho returns an orthographic projection mapping the box
// [left,right]x[bottom,top]x[near,far] to clip space with depth in [0,1].
func Ortho(left, right, bottom, top, near, far float32) f32.Mat4 {
	return f32.Mat4{
		2 / (right - left), 0, 0, -(right + left) / (right - left),
		0, 2 / (top - bottom), 0, -(top + bottom) / (top - bottom),
		0, 0, -1 / (far - near), -near / (far - near),
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) f32.Mat4 {
	m := Identity()
	m[3], m[7], m[11] = x, y, z
	return m
}
