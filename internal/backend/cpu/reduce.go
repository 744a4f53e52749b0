package cpu

import (
	"fmt"

	"github.com/shift-ml/shift/internal/tensor"
)

// Sum computes the total sum of all elements in the tensor (scalar result).
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	// Result is a scalar (empty shape)
	result, err := tensor.NewRaw(tensor.Shape{}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		var sum float32
		for _, v := range src {
			sum += v
		}
		dst[0] = sum
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		var sum float64
		for _, v := range src {
			sum += v
		}
		dst[0] = sum
	case tensor.Int32:
		src := x.AsInt32()
		dst := result.AsInt32()
		var sum int32
		for _, v := range src {
			sum += v
		}
		dst[0] = sum
	case tensor.Int64:
		src := x.AsInt64()
		dst := result.AsInt64()
		var sum int64
		for _, v := range src {
			sum += v
		}
		dst[0] = sum
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

// Argmax returns the index of the maximum value along the specified dimension.
// The reduced dimension is removed from the output shape and the result dtype
// is int64. Ties resolve to the lowest index.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	// Normalize negative dimension
	if dim < 0 {
		dim = ndim + dim
	}

	// Validate dimension
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("argmax: dimension %d out of range for %dD tensor", dim, ndim))
	}

	// Calculate output shape (remove the reduced dimension)
	outShape := make(tensor.Shape, 0, ndim-1)
	for i := 0; i < ndim; i++ {
		if i != dim {
			outShape = append(outShape, shape[i])
		}
	}

	result, err := tensor.NewRaw(outShape, tensor.Int64, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("argmax: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		argmaxDim(x.AsFloat32(), result.AsInt64(), shape, outShape, dim)
	case tensor.Float64:
		argmaxDim(x.AsFloat64(), result.AsInt64(), shape, outShape, dim)
	case tensor.Int32:
		argmaxDim(x.AsInt32(), result.AsInt64(), shape, outShape, dim)
	case tensor.Int64:
		argmaxDim(x.AsInt64(), result.AsInt64(), shape, outShape, dim)
	default:
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}

	return result
}

// argmaxDim scans along dim for every output position. Output positions are
// enumerated in row-major order so result[i] lines up with the row-major
// layout of the output tensor.
func argmaxDim[T tensor.DType](data []T, result []int64, shape, outShape tensor.Shape, dim int) {
	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	dimSize := shape[dim]
	dimStride := inStrides[dim]

	for o := range result {
		// Decompose the output index and map each output coordinate back to
		// its input dimension (dimensions past dim shift by one).
		baseIdx := 0
		rem := o
		for j := 0; j < len(outShape); j++ {
			coord := rem / outStrides[j]
			rem %= outStrides[j]

			inDim := j
			if j >= dim {
				inDim = j + 1
			}
			baseIdx += coord * inStrides[inDim]
		}

		maxVal := data[baseIdx]
		maxIdx := int64(0)
		for i := 1; i < dimSize; i++ {
			idx := baseIdx + i*dimStride
			if data[idx] > maxVal {
				maxVal = data[idx]
				maxIdx = int64(i)
			}
		}

		result[o] = maxIdx
	}
}
