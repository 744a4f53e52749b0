package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/shift-ml/shift/internal/tensor"
)

// uniformAlign is the alignment and minimum size for uniform param buffers.
const uniformAlign = 16

// compileShader returns the cached module for name, compiling source on
// first use.
func (b *Backend) compileShader(name, source string) (*wgpu.ShaderModule, error) {
	b.mu.RLock()
	if sm, ok := b.shaders[name]; ok {
		b.mu.RUnlock()
		return sm, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if sm, ok := b.shaders[name]; ok {
		return sm, nil
	}

	sm, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return nil, fmt.Errorf("compile shader %s: %w", name, err)
	}
	b.shaders[name] = sm
	return sm, nil
}

// getOrCreatePipeline returns the cached compute pipeline for name.
func (b *Backend) getOrCreatePipeline(name, source string) (*wgpu.ComputePipeline, error) {
	b.mu.RLock()
	if p, ok := b.pipelines[name]; ok {
		b.mu.RUnlock()
		return p, nil
	}
	b.mu.RUnlock()

	sm, err := b.compileShader(name, source)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pipelines[name]; ok {
		return p, nil
	}

	p, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: name,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     sm,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline %s: %w", name, err)
	}
	b.pipelines[name] = p
	return p, nil
}

// createBufferWithData uploads host bytes into a fresh device buffer.
func (b *Backend) createBufferWithData(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: data,
		Usage:    usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}
	b.trackBufferAllocation(uint64(len(data)))
	return buf, nil
}

// dropBuffer releases a buffer created by createBufferWithData.
func (b *Backend) dropBuffer(buf *wgpu.Buffer, size uint64) {
	buf.Release()
	b.trackBufferRelease(size)
}

// packU32 packs values into little-endian bytes for a uniform struct.
// Float fields go through math.Float32bits.
func packU32(vals ...uint32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// padUniform pads params up to the uniform buffer alignment.
func padUniform(params []byte) []byte {
	if rem := len(params) % uniformAlign; rem != 0 {
		params = append(params, make([]byte, uniformAlign-rem)...)
	}
	return params
}

// dispatch encodes one compute pass over the bound entries and submits it.
// Completion is observed by the next readBuffer on the same queue.
func (b *Backend) dispatch(pipeline *wgpu.ComputePipeline, entries []wgpu.BindGroupEntry, x, y, z uint32) error {
	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()

	bindGroup, err := CreateBindGroupSimple(b.device, layout, entries)
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer bindGroup.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(x, y, z)
	pass.End()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer cmd.Release()

	b.queue.Submit(cmd)
	return nil
}

// readBuffer blocks until the queue drains, then copies size bytes from a
// storage buffer into host memory.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingUsage := wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
	staging := b.bufferPool.Acquire(size, stagingUsage)
	defer b.bufferPool.Release(staging, size, stagingUsage)

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	defer cmd.Release()

	b.queue.Submit(cmd)

	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	b.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map staging buffer: status %v", status)
	}

	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()

	return out, nil
}

// runBinaryOp dispatches an elementwise kernel over two same-shape float32
// operands and reads the result back.
func (b *Backend) runBinaryOp(name, source string, x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(x.Shape(), x.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}

	pipeline, err := b.getOrCreatePipeline(name, source)
	if err != nil {
		return nil, err
	}

	size := uint64(x.ByteSize())
	n := x.NumElements()

	xBuf, err := b.createBufferWithData(name+"-lhs", x.Data(), wgpu.BufferUsageStorage)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(xBuf, size)

	yBuf, err := b.createBufferWithData(name+"-rhs", y.Data(), wgpu.BufferUsageStorage)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(yBuf, size)

	resultUsage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	resultBuf := b.bufferPool.Acquire(size, resultUsage)
	defer b.bufferPool.Release(resultBuf, size, resultUsage)

	params := padUniform(packU32(uint32(n)))
	paramBuf, err := b.createBufferWithData(name+"-params", params, wgpu.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(paramBuf, uint64(len(params)))

	entries := []wgpu.BindGroupEntry{
		BindGroupEntry(0, xBuf, 0, size),
		BindGroupEntry(1, yBuf, 0, size),
		BindGroupEntry(2, resultBuf, 0, size),
		BindGroupEntry(3, paramBuf, 0, uint64(len(params))),
	}
	groups := uint32((n + workgroupSize - 1) / workgroupSize)
	if err := b.dispatch(pipeline, entries, groups, 1, 1); err != nil {
		return nil, err
	}

	data, err := b.readBuffer(resultBuf, size)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), data)
	return out, nil
}

// runUnaryOp dispatches an elementwise kernel over one float32 operand.
func (b *Backend) runUnaryOp(name, source string, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.runUnaryParams(name, source, x, padUniform(packU32(uint32(x.NumElements()))))
}

// runScalarOp dispatches an elementwise kernel with a scalar uniform.
func (b *Backend) runScalarOp(name, source string, x *tensor.RawTensor, scalar float32) (*tensor.RawTensor, error) {
	params := padUniform(packU32(uint32(x.NumElements()), math.Float32bits(scalar)))
	return b.runUnaryParams(name, source, x, params)
}

// runUnaryParams is the shared input/result/params dispatch for kernels
// with a single storage input.
func (b *Backend) runUnaryParams(name, source string, x *tensor.RawTensor, params []byte) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(x.Shape(), x.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}

	pipeline, err := b.getOrCreatePipeline(name, source)
	if err != nil {
		return nil, err
	}

	size := uint64(x.ByteSize())
	n := x.NumElements()

	inBuf, err := b.createBufferWithData(name+"-in", x.Data(), wgpu.BufferUsageStorage)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(inBuf, size)

	resultUsage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	resultBuf := b.bufferPool.Acquire(size, resultUsage)
	defer b.bufferPool.Release(resultBuf, size, resultUsage)

	paramBuf, err := b.createBufferWithData(name+"-params", params, wgpu.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(paramBuf, uint64(len(params)))

	entries := []wgpu.BindGroupEntry{
		BindGroupEntry(0, inBuf, 0, size),
		BindGroupEntry(1, resultBuf, 0, size),
		BindGroupEntry(2, paramBuf, 0, uint64(len(params))),
	}
	groups := uint32((n + workgroupSize - 1) / workgroupSize)
	if err := b.dispatch(pipeline, entries, groups, 1, 1); err != nil {
		return nil, err
	}

	data, err := b.readBuffer(resultBuf, size)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), data)
	return out, nil
}

// runMatMul multiplies float32 matrices x [m, k] and y [k, n] on the GPU.
func (b *Backend) runMatMul(x, y *tensor.RawTensor, m, k, n int) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(tensor.Shape{m, n}, x.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}

	pipeline, err := b.getOrCreatePipeline("matmul", matmulShader)
	if err != nil {
		return nil, err
	}

	xSize := uint64(x.ByteSize())
	ySize := uint64(y.ByteSize())
	outSize := uint64(out.ByteSize())

	xBuf, err := b.createBufferWithData("matmul-a", x.Data(), wgpu.BufferUsageStorage)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(xBuf, xSize)

	yBuf, err := b.createBufferWithData("matmul-b", y.Data(), wgpu.BufferUsageStorage)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(yBuf, ySize)

	resultUsage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	resultBuf := b.bufferPool.Acquire(outSize, resultUsage)
	defer b.bufferPool.Release(resultBuf, outSize, resultUsage)

	params := padUniform(packU32(uint32(m), uint32(k), uint32(n)))
	paramBuf, err := b.createBufferWithData("matmul-params", params, wgpu.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(paramBuf, uint64(len(params)))

	entries := []wgpu.BindGroupEntry{
		BindGroupEntry(0, xBuf, 0, xSize),
		BindGroupEntry(1, yBuf, 0, ySize),
		BindGroupEntry(2, resultBuf, 0, outSize),
		BindGroupEntry(3, paramBuf, 0, uint64(len(params))),
	}
	gx := uint32((n + matmulTile - 1) / matmulTile)
	gy := uint32((m + matmulTile - 1) / matmulTile)
	if err := b.dispatch(pipeline, entries, gx, gy, 1); err != nil {
		return nil, err
	}

	data, err := b.readBuffer(resultBuf, outSize)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), data)
	return out, nil
}

// runTranspose swaps rows and columns of a float32 matrix on the GPU.
func (b *Backend) runTranspose(x *tensor.RawTensor, rows, cols int) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(tensor.Shape{cols, rows}, x.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}

	pipeline, err := b.getOrCreatePipeline("transpose", transposeShader)
	if err != nil {
		return nil, err
	}

	size := uint64(x.ByteSize())

	inBuf, err := b.createBufferWithData("transpose-in", x.Data(), wgpu.BufferUsageStorage)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(inBuf, size)

	resultUsage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	resultBuf := b.bufferPool.Acquire(size, resultUsage)
	defer b.bufferPool.Release(resultBuf, size, resultUsage)

	params := padUniform(packU32(uint32(rows), uint32(cols)))
	paramBuf, err := b.createBufferWithData("transpose-params", params, wgpu.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(paramBuf, uint64(len(params)))

	entries := []wgpu.BindGroupEntry{
		BindGroupEntry(0, inBuf, 0, size),
		BindGroupEntry(1, resultBuf, 0, size),
		BindGroupEntry(2, paramBuf, 0, uint64(len(params))),
	}
	gx := uint32((cols + matmulTile - 1) / matmulTile)
	gy := uint32((rows + matmulTile - 1) / matmulTile)
	if err := b.dispatch(pipeline, entries, gx, gy, 1); err != nil {
		return nil, err
	}

	data, err := b.readBuffer(resultBuf, size)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), data)
	return out, nil
}

// runSum reduces a float32 tensor to a scalar. Each workgroup produces one
// partial sum on the GPU; the host adds the partials.
func (b *Backend) runSum(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(tensor.Shape{}, x.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}

	pipeline, err := b.getOrCreatePipeline("partial-sum", partialSumShader)
	if err != nil {
		return nil, err
	}

	size := uint64(x.ByteSize())
	n := x.NumElements()
	groups := uint32((n + workgroupSize - 1) / workgroupSize)
	partialSize := uint64(groups) * 4

	inBuf, err := b.createBufferWithData("sum-in", x.Data(), wgpu.BufferUsageStorage)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(inBuf, size)

	resultUsage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	partialBuf := b.bufferPool.Acquire(partialSize, resultUsage)
	defer b.bufferPool.Release(partialBuf, partialSize, resultUsage)

	params := padUniform(packU32(uint32(n)))
	paramBuf, err := b.createBufferWithData("sum-params", params, wgpu.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	defer b.dropBuffer(paramBuf, uint64(len(params)))

	entries := []wgpu.BindGroupEntry{
		BindGroupEntry(0, inBuf, 0, size),
		BindGroupEntry(1, partialBuf, 0, partialSize),
		BindGroupEntry(2, paramBuf, 0, uint64(len(params))),
	}
	if err := b.dispatch(pipeline, entries, groups, 1, 1); err != nil {
		return nil, err
	}

	data, err := b.readBuffer(partialBuf, partialSize)
	if err != nil {
		return nil, err
	}

	var total float32
	for i := uint32(0); i < groups; i++ {
		total += math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	out.AsFloat32()[0] = total

	return out, nil
}
