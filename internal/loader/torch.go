package loader

import (
	"fmt"
	"sort"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/shift-ml/shift/internal/tensor"
)

// TorchReader reads PyTorch .pt/.pth pickle archives. The whole archive is
// unpickled at open, so Close is a no-op and LoadTensor only converts.
//
// Checkpoint wrappers are unwrapped automatically: if the top-level object
// is a dict with no tensors but a nested state dict under a key like
// "state_dict" or "model", that nested dict is used.
type TorchReader struct {
	tensors map[string]*pytorch.Tensor
}

// Wrapper keys tried, in order, when the top-level dict holds no tensors.
var torchWrapperKeys = []string{"state_dict", "model_state_dict", "model", "algorithm"}

// NewTorchReader unpickles a .pt/.pth archive and locates its state dict.
func NewTorchReader(path string) (*TorchReader, error) {
	obj, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to unpickle %s: %w", path, err)
	}

	tensors, err := findTorchStateDict(obj)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &TorchReader{tensors: tensors}, nil
}

// Close releases nothing; the archive is fully parsed at open.
func (r *TorchReader) Close() error {
	return nil
}

// TensorNames returns all tensor names in sorted order.
func (r *TorchReader) TensorNames() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadTensor converts a single tensor out of the unpickled state dict.
func (r *TorchReader) LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error) {
	t, ok := r.tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	raw, err := convertTorchTensor(t, backend)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	return raw, nil
}

// ReadStateDict converts every tensor in the archive.
func (r *TorchReader) ReadStateDict(backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	stateDict := make(map[string]*tensor.RawTensor, len(r.tensors))
	for name := range r.tensors {
		raw, err := r.LoadTensor(name, backend)
		if err != nil {
			return nil, err
		}
		stateDict[name] = raw
	}
	return stateDict, nil
}

// dictEntries flattens gopickle's two dict representations into key/value
// pairs. Returns false if obj is not a dict at all.
func dictEntries(obj any) ([][2]any, bool) {
	switch d := obj.(type) {
	case *types.OrderedDict:
		entries := make([][2]any, 0, len(d.Map))
		for key, entry := range d.Map {
			entries = append(entries, [2]any{key, entry.Value})
		}
		return entries, true
	case *types.Dict:
		entries := make([][2]any, 0, len(*d))
		for _, entry := range *d {
			entries = append(entries, [2]any{entry.Key, entry.Value})
		}
		return entries, true
	default:
		return nil, false
	}
}

// findTorchStateDict extracts a name -> tensor map from an unpickled object,
// unwrapping one level of checkpoint nesting if needed.
func findTorchStateDict(obj any) (map[string]*pytorch.Tensor, error) {
	entries, ok := dictEntries(obj)
	if !ok {
		return nil, fmt.Errorf("expected a dict at top level, got %T", obj)
	}

	tensors := make(map[string]*pytorch.Tensor)
	byKey := make(map[string]any, len(entries))
	for _, kv := range entries {
		key, ok := kv[0].(string)
		if !ok {
			continue
		}
		byKey[key] = kv[1]
		if t, ok := kv[1].(*pytorch.Tensor); ok {
			tensors[key] = t
		}
	}

	if len(tensors) > 0 {
		return tensors, nil
	}

	for _, key := range torchWrapperKeys {
		nested, ok := byKey[key]
		if !ok {
			continue
		}
		if _, isDict := dictEntries(nested); isDict {
			return findTorchStateDict(nested)
		}
	}

	return nil, fmt.Errorf("no tensors found in archive")
}

// convertTorchTensor copies an unpickled tensor into a RawTensor. Only
// contiguous tensors are supported; state dict entries are contiguous in
// practice.
func convertTorchTensor(t *pytorch.Tensor, backend tensor.Backend) (*tensor.RawTensor, error) {
	shape := make(tensor.Shape, len(t.Size))
	copy(shape, t.Size)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	if !torchContiguous(t) {
		return nil, fmt.Errorf("non-contiguous tensor (size %v, stride %v)", t.Size, t.Stride)
	}

	numel := shape.NumElements()
	offset := t.StorageOffset

	switch src := t.Source.(type) {
	case *pytorch.FloatStorage:
		return rawFromSlice(shape, tensor.Float32, backend, func(raw *tensor.RawTensor) {
			copy(raw.AsFloat32(), src.Data[offset:offset+numel])
		})
	case *pytorch.HalfStorage:
		// gopickle widens half to float32 at parse time
		return rawFromSlice(shape, tensor.Float32, backend, func(raw *tensor.RawTensor) {
			copy(raw.AsFloat32(), src.Data[offset:offset+numel])
		})
	case *pytorch.BFloat16Storage:
		return rawFromSlice(shape, tensor.Float32, backend, func(raw *tensor.RawTensor) {
			copy(raw.AsFloat32(), src.Data[offset:offset+numel])
		})
	case *pytorch.DoubleStorage:
		return rawFromSlice(shape, tensor.Float64, backend, func(raw *tensor.RawTensor) {
			copy(raw.AsFloat64(), src.Data[offset:offset+numel])
		})
	case *pytorch.IntStorage:
		return rawFromSlice(shape, tensor.Int32, backend, func(raw *tensor.RawTensor) {
			copy(raw.AsInt32(), src.Data[offset:offset+numel])
		})
	case *pytorch.LongStorage:
		return rawFromSlice(shape, tensor.Int64, backend, func(raw *tensor.RawTensor) {
			copy(raw.AsInt64(), src.Data[offset:offset+numel])
		})
	default:
		return nil, fmt.Errorf("unsupported storage type %T", t.Source)
	}
}

func rawFromSlice(shape tensor.Shape, dtype tensor.DataType, backend tensor.Backend, fill func(*tensor.RawTensor)) (*tensor.RawTensor, error) {
	raw, err := tensor.NewRaw(shape, dtype, backend.Device())
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor: %w", err)
	}
	fill(raw)
	return raw, nil
}

// torchContiguous reports whether the tensor's strides match the natural
// row-major layout of its size.
func torchContiguous(t *pytorch.Tensor) bool {
	if len(t.Stride) != len(t.Size) {
		return len(t.Stride) == 0 && len(t.Size) == 0
	}
	expected := 1
	for i := len(t.Size) - 1; i >= 0; i-- {
		if t.Size[i] != 1 && t.Stride[i] != expected {
			return false
		}
		expected *= t.Size[i]
	}
	return true
}
