package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shift-ml/shift/internal/tensor"
)

// WeightFormat represents the on-disk weight format.
type WeightFormat int

// Supported weight formats.
const (
	FormatUnknown WeightFormat = iota
	FormatSafeTensors
	FormatTorchPickle
)

// String returns the format name.
func (f WeightFormat) String() string {
	switch f {
	case FormatSafeTensors:
		return "SafeTensors"
	case FormatTorchPickle:
		return "TorchPickle"
	default:
		return "Unknown"
	}
}

// WeightsReader provides a unified interface over weight file formats.
type WeightsReader interface {
	// Close closes the underlying file.
	Close() error

	// Format returns the weight format.
	Format() WeightFormat

	// Source returns the detected naming convention (torchvision, timm_vit, native).
	Source() string

	// Mapper returns the name mapper for the detected convention.
	Mapper() WeightMapper

	// TensorNames returns all tensor names in the file.
	TensorNames() []string

	// LoadTensor loads a tensor by its name in the file.
	LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error)

	// ReadStateDict loads every tensor, keyed by canonical (mapped) name.
	ReadStateDict(backend tensor.Backend) (map[string]*tensor.RawTensor, error)
}

// safeTensorsWeights wraps SafeTensorsReader to implement WeightsReader.
type safeTensorsWeights struct {
	reader *SafeTensorsReader
	source string
	mapper WeightMapper
}

func (w *safeTensorsWeights) Format() WeightFormat { return FormatSafeTensors }
func (w *safeTensorsWeights) Source() string       { return w.source }
func (w *safeTensorsWeights) Mapper() WeightMapper { return w.mapper }
func (w *safeTensorsWeights) TensorNames() []string {
	return w.reader.TensorNames()
}

func (w *safeTensorsWeights) LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error) {
	return w.reader.LoadTensor(name, backend)
}

func (w *safeTensorsWeights) ReadStateDict(backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	stateDict, err := w.reader.ReadStateDict(backend)
	if err != nil {
		return nil, err
	}
	return remapStateDict(stateDict, w.mapper)
}

func (w *safeTensorsWeights) Close() error {
	return w.reader.Close()
}

// torchWeights wraps TorchReader to implement WeightsReader.
type torchWeights struct {
	reader *TorchReader
	source string
	mapper WeightMapper
}

func (w *torchWeights) Format() WeightFormat { return FormatTorchPickle }
func (w *torchWeights) Source() string       { return w.source }
func (w *torchWeights) Mapper() WeightMapper { return w.mapper }
func (w *torchWeights) TensorNames() []string {
	return w.reader.TensorNames()
}

func (w *torchWeights) LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error) {
	return w.reader.LoadTensor(name, backend)
}

func (w *torchWeights) ReadStateDict(backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	stateDict, err := w.reader.ReadStateDict(backend)
	if err != nil {
		return nil, err
	}
	return remapStateDict(stateDict, w.mapper)
}

func (w *torchWeights) Close() error {
	return w.reader.Close()
}

// remapStateDict renames every key through the mapper. A collision after
// mapping means two source names map to the same canonical name, which is
// always a caller bug or a broken export.
func remapStateDict(stateDict map[string]*tensor.RawTensor, mapper WeightMapper) (map[string]*tensor.RawTensor, error) {
	mapped := make(map[string]*tensor.RawTensor, len(stateDict))
	for name, raw := range stateDict {
		canonical, err := mapper.MapName(name)
		if err != nil {
			return nil, fmt.Errorf("failed to map %s: %w", name, err)
		}
		if _, exists := mapped[canonical]; exists {
			return nil, fmt.Errorf("name collision: %s maps to %s, which already exists", name, canonical)
		}
		mapped[canonical] = raw
	}
	return mapped, nil
}

// OpenWeights opens a weight file and auto-detects the format from its
// extension. Supports .safetensors and .pt/.pth files.
//
// Example:
//
//	weights, err := loader.OpenWeights("resnet50.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer weights.Close()
//
//	fmt.Printf("Format: %s\n", weights.Format())
//	fmt.Printf("Source: %s\n", weights.Source())
func OpenWeights(path string) (WeightsReader, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".safetensors":
		return openSafeTensors(path)
	case ".pt", ".pth":
		return openTorchPickle(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (expected .safetensors, .pt or .pth)", ext)
	}
}

func openSafeTensors(path string) (WeightsReader, error) {
	reader, err := NewSafeTensorsReader(path)
	if err != nil {
		return nil, err
	}

	source := DetectSource(reader.TensorNames())
	return &safeTensorsWeights{
		reader: reader,
		source: source,
		mapper: GetMapper(source),
	}, nil
}

func openTorchPickle(path string) (WeightsReader, error) {
	reader, err := NewTorchReader(path)
	if err != nil {
		return nil, err
	}

	source := DetectSource(reader.TensorNames())
	return &torchWeights{
		reader: reader,
		source: source,
		mapper: GetMapper(source),
	}, nil
}
