package webgpu

import (
	"fmt"

	"github.com/shift-ml/shift/internal/tensor"
)

// float32Pair reports whether both operands take the GPU path.
func float32Pair(x, y *tensor.RawTensor) bool {
	return x.DType() == tensor.Float32 && y.DType() == tensor.Float32
}

// retag copies a host-computed result into a tensor tagged for this device.
func retag(res *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(res.Shape(), res.DType(), tensor.WebGPU)
	if err != nil {
		panic(fmt.Sprintf("webgpu: %v", err))
	}
	copy(out.Data(), res.Data())
	res.Release()
	return out
}

// expandFloat32 materializes t broadcast to outShape in row-major order.
func expandFloat32(t *tensor.RawTensor, outShape tensor.Shape) *tensor.RawTensor {
	out, err := tensor.NewRaw(outShape, tensor.Float32, tensor.WebGPU)
	if err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}

	src := t.AsFloat32()
	dst := out.AsFloat32()

	inShape := t.Shape()
	inStrides := inShape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	// Input dimensions align to the rightmost output dimensions.
	offset := len(outShape) - len(inShape)

	for i := range dst {
		srcIdx := 0
		rem := i
		for d := 0; d < len(outShape); d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			in := d - offset
			if in >= 0 && inShape[in] != 1 {
				srcIdx += coord * inStrides[in]
			}
		}
		dst[i] = src[srcIdx]
	}
	return out
}

// binaryF32 broadcasts the operands host-side when needed and dispatches the
// same-shape elementwise kernel.
func (b *Backend) binaryF32(name, source string, x, y *tensor.RawTensor) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	if needsBroadcast {
		if !x.Shape().Equal(outShape) {
			ex := expandFloat32(x, outShape)
			defer ex.Release()
			x = ex
		}
		if !y.Shape().Equal(outShape) {
			ey := expandFloat32(y, outShape)
			defer ey.Release()
			y = ey
		}
	}

	out, err := b.runBinaryOp(name, source, x, y)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	return out
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	if !float32Pair(x, y) {
		return retag(b.fallback.Add(x, y))
	}
	return b.binaryF32("add", addShader, x, y)
}

// Sub performs element-wise subtraction with broadcasting.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	if !float32Pair(x, y) {
		return retag(b.fallback.Sub(x, y))
	}
	return b.binaryF32("sub", subShader, x, y)
}

// Mul performs element-wise multiplication with broadcasting.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	if !float32Pair(x, y) {
		return retag(b.fallback.Mul(x, y))
	}
	return b.binaryF32("mul", mulShader, x, y)
}

// Div performs element-wise division with broadcasting.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	if !float32Pair(x, y) {
		return retag(b.fallback.Div(x, y))
	}
	return b.binaryF32("div", divShader, x, y)
}

// AddScalar adds a scalar value to each element of the tensor.
func (b *Backend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return retag(b.fallback.AddScalar(x, scalar))
	}
	s := float32(tensor.ScalarToFloat64(scalar))
	out, err := b.runScalarOp("scalar-add", scalarAddShader, x, s)
	if err != nil {
		panic(fmt.Sprintf("addScalar: %v", err))
	}
	return out
}

// SubScalar subtracts a scalar value from each element of the tensor.
func (b *Backend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return retag(b.fallback.SubScalar(x, scalar))
	}
	s := float32(tensor.ScalarToFloat64(scalar))
	out, err := b.runScalarOp("scalar-sub", scalarSubShader, x, s)
	if err != nil {
		panic(fmt.Sprintf("subScalar: %v", err))
	}
	return out
}

// MulScalar multiplies each element of the tensor by a scalar value.
func (b *Backend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return retag(b.fallback.MulScalar(x, scalar))
	}
	s := float32(tensor.ScalarToFloat64(scalar))
	out, err := b.runScalarOp("scalar-mul", scalarMulShader, x, s)
	if err != nil {
		panic(fmt.Sprintf("mulScalar: %v", err))
	}
	return out
}

// DivScalar divides each element of the tensor by a scalar value.
func (b *Backend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return retag(b.fallback.DivScalar(x, scalar))
	}
	s := tensor.ScalarToFloat64(scalar)
	if s == 0 {
		panic("divScalar: division by zero")
	}
	out, err := b.runScalarOp("scalar-div", scalarDivShader, x, float32(s))
	if err != nil {
		panic(fmt.Sprintf("divScalar: %v", err))
	}
	return out
}

// Neg computes element-wise negation: -x.
func (b *Backend) Neg(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return retag(b.fallback.Neg(x))
	}
	out, err := b.runUnaryOp("neg", negShader, x)
	if err != nil {
		panic(fmt.Sprintf("neg: %v", err))
	}
	return out
}

// Sqrt computes element-wise square root: sqrt(x).
func (b *Backend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return retag(b.fallback.Sqrt(x))
	}
	// Negative inputs are rejected before dispatch; the kernel would yield NaN.
	for i, v := range x.AsFloat32() {
		if v < 0 {
			panic(fmt.Sprintf("sqrt: negative value at index %d: %f", i, v))
		}
	}
	out, err := b.runUnaryOp("sqrt", sqrtShader, x)
	if err != nil {
		panic(fmt.Sprintf("sqrt: %v", err))
	}
	return out
}

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N).
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xShape := x.Shape()
	yShape := y.Shape()

	if len(xShape) != 2 || len(yShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(xShape), len(yShape)))
	}

	m, k := xShape[0], xShape[1]
	kAlt, n := yShape[0], yShape[1]

	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	if x.DType() != y.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch %s vs %s", x.DType(), y.DType()))
	}

	if x.DType() != tensor.Float32 {
		return retag(b.fallback.MatMul(x, y))
	}

	out, err := b.runMatMul(x, y, m, k, n)
	if err != nil {
		panic(fmt.Sprintf("matmul: %v", err))
	}
	return out
}

// Reshape returns a tensor with the same data but different shape. Pure
// metadata plus a host copy, so it delegates; the result keeps this
// device's tag through the input tensor.
func (b *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	return b.fallback.Reshape(t, newShape)
}

// Transpose transposes the tensor by permuting its dimensions. The 2D
// float32 row-column swap runs on the GPU; other ranks, dtypes, and
// permutations take the host path.
func (b *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	swap2D := len(axes) == 0 || (len(axes) == 2 && axes[0] == 1 && axes[1] == 0)
	if t.DType() == tensor.Float32 && len(shape) == 2 && swap2D {
		out, err := b.runTranspose(t, shape[0], shape[1])
		if err != nil {
			panic(fmt.Sprintf("transpose: %v", err))
		}
		return out
	}
	return b.fallback.Transpose(t, axes...)
}

// Sum computes the total sum of all elements in the tensor (scalar result).
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return retag(b.fallback.Sum(x))
	}
	out, err := b.runSum(x)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}
	return out
}

// Argmax returns the index of the maximum value along the specified
// dimension. The int64 result has no WGSL representation, so the scan runs
// on the host.
func (b *Backend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return retag(b.fallback.Argmax(x, dim))
}

// ToHost transfers the tensor to host memory and returns a detached copy.
func (b *Backend) ToHost(x *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(x.Shape(), x.DType(), tensor.CPU)
	if err != nil {
		panic(fmt.Sprintf("toHost: %v", err))
	}
	copy(out.Data(), x.Data())
	return out
}
