package math

func NewMat4Identity() Mat4 {
	out_matrix := Mat4{}
	out_matrix.Data[0] = 1.0
	out_matrix.Data[5] = 1.0
	out_matrix.Data[10] = 1.0
	out_matrix.Data[15] = 1.0
	return out_matrix
}

/**
 * @brief Returns the result of multiplying this matrix with other, applying
 * other first when transforming a column vector.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out_matrix := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[i*4+row] * other.Data[col*4+i]
			}
			out_matrix.Data[col*4+row] = sum
		}
	}
	return out_matrix
}

// MulVec4 transforms the column vector v by this matrix.
func (mt Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		X: mt.Data[0]*v.X + mt.Data[4]*v.Y + mt.Data[8]*v.Z + mt.Data[12]*v.W,
		Y: mt.Data[1]*v.X + mt.Data[5]*v.Y + mt.Data[9]*v.Z + mt.Data[13]*v.W,
		Z: mt.Data[2]*v.X + mt.Data[6]*v.Y + mt.Data[10]*v.Z + mt.Data[14]*v.W,
		W: mt.Data[3]*v.X + mt.Data[7]*v.Y + mt.Data[11]*v.Z + mt.Data[15]*v.W,
	}
}

/**
 * @brief Creates and returns a perspective matrix in Vulkan conventions:
 * right-handed view space, depth mapped to [0, 1] and Y flipped so that
 * clip-space +Y points down, as the surface expects.
 *
 * @param fov_radians The vertical field of view in radians.
 * @param aspect_ratio Width over height of the target surface.
 * @param near_clip The near clipping plane distance.
 * @param far_clip The far clipping plane distance.
 */
func NewMat4Perspective(fov_radians, aspect_ratio, near_clip, far_clip float32) Mat4 {
	f := 1.0 / ktan(fov_radians*0.5)
	out_matrix := Mat4{}
	out_matrix.Data[0] = f / aspect_ratio
	out_matrix.Data[5] = -f
	out_matrix.Data[10] = far_clip / (near_clip - far_clip)
	out_matrix.Data[11] = -1.0
	out_matrix.Data[14] = (near_clip * far_clip) / (near_clip - far_clip)
	return out_matrix
}

/**
 * @brief Creates and returns a right-handed look-at view matrix, looking
 * at target from position.
 */
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	z_axis := position.Sub(target).Normalized()
	x_axis := up.Cross(z_axis).Normalized()
	y_axis := z_axis.Cross(x_axis)

	out_matrix := Mat4{}
	out_matrix.Data[0] = x_axis.X
	out_matrix.Data[1] = y_axis.X
	out_matrix.Data[2] = z_axis.X
	out_matrix.Data[4] = x_axis.Y
	out_matrix.Data[5] = y_axis.Y
	out_matrix.Data[6] = z_axis.Y
	out_matrix.Data[8] = x_axis.Z
	out_matrix.Data[9] = y_axis.Z
	out_matrix.Data[10] = z_axis.Z
	out_matrix.Data[12] = -x_axis.Dot(position)
	out_matrix.Data[13] = -y_axis.Dot(position)
	out_matrix.Data[14] = -z_axis.Dot(position)
	out_matrix.Data[15] = 1.0
	return out_matrix
}

func NewMat4Translation(position Vec3) Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[12] = position.X
	out_matrix.Data[13] = position.Y
	out_matrix.Data[14] = position.Z
	return out_matrix
}

func NewMat4Scale(scale Vec3) Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[0] = scale.X
	out_matrix.Data[5] = scale.Y
	out_matrix.Data[10] = scale.Z
	return out_matrix
}

func NewMat4EulerX(angle_radians float32) Mat4 {
	out_matrix := NewMat4Identity()
	c := kcos(angle_radians)
	s := ksin(angle_radians)
	out_matrix.Data[5] = c
	out_matrix.Data[6] = s
	out_matrix.Data[9] = -s
	out_matrix.Data[10] = c
	return out_matrix
}

func NewMat4EulerY(angle_radians float32) Mat4 {
	out_matrix := NewMat4Identity()
	c := kcos(angle_radians)
	s := ksin(angle_radians)
	out_matrix.Data[0] = c
	out_matrix.Data[2] = -s
	out_matrix.Data[8] = s
	out_matrix.Data[10] = c
	return out_matrix
}

func NewMat4EulerZ(angle_radians float32) Mat4 {
	out_matrix := NewMat4Identity()
	c := kcos(angle_radians)
	s := ksin(angle_radians)
	out_matrix.Data[0] = c
	out_matrix.Data[1] = s
	out_matrix.Data[4] = -s
	out_matrix.Data[5] = c
	return out_matrix
}

func NewMat4EulerXYZ(x_radians, y_radians, z_radians float32) Mat4 {
	rx := NewMat4EulerX(x_radians)
	ry := NewMat4EulerY(y_radians)
	rz := NewMat4EulerZ(z_radians)
	return rz.Mul(ry).Mul(rx)
}

func NewMat4Transposed(matrix Mat4) Mat4 {
	out_matrix := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out_matrix.Data[row*4+col] = matrix.Data[col*4+row]
		}
	}
	return out_matrix
}

/**
 * @brief The coordinate fix-up for content authored with +Y opposite to the
 * world's, such as GLTF exports from Y-down tools: an identity with Y
 * negated. Compose it into the model matrix of affected instances.
 */
func NewMat4GltfToVulkan() Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[5] = -1.0
	return out_matrix
}
