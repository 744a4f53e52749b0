package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - CPU: Pure Go reference implementation
//   - WebGPU: GPU compute via WGSL shaders
type Backend interface {
	// Element-wise binary operations
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations (element-wise with scalar)
	AddScalar(x *RawTensor, scalar any) *RawTensor // add scalar
	SubScalar(x *RawTensor, scalar any) *RawTensor // subtract scalar
	MulScalar(x *RawTensor, scalar any) *RawTensor // multiply by scalar
	DivScalar(x *RawTensor, scalar any) *RawTensor // divide by scalar

	// Unary operations (element-wise)
	Neg(x *RawTensor) *RawTensor  // numeric negation
	Sqrt(x *RawTensor) *RawTensor // square root

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Reduction operations
	Sum(x *RawTensor) *RawTensor             // total sum (scalar result)
	Argmax(x *RawTensor, dim int) *RawTensor // index of maximum value along dimension

	// ToHost transfers the tensor to host memory and returns a detached copy.
	// The result never aliases device buffers or the source tensor, so it is
	// safe to serialize or mutate after the backend moves on. Backends whose
	// tensors already live on the host still return a fresh copy.
	ToHost(x *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
