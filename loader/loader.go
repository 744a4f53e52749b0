// Package loader provides pretrained weight loading for the shift toolkit.
//
// This package wraps internal loader implementations and exports a clean public API
// for reading model weights from external formats (SafeTensors, torch pickle).
//
// Example usage:
//
//	import (
//	    "github.com/shift-ml/shift/loader"
//	    "github.com/shift-ml/shift/backend/cpu"
//	)
//
//	// Open weights with format auto-detection
//	weights, err := loader.OpenWeights("path/to/resnet50.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer weights.Close()
//
//	// Get weight information
//	fmt.Printf("Format: %s\n", weights.Format())
//	fmt.Printf("Source: %s\n", weights.Source())
//
//	// Load the full state dict under canonical backbone./head. names
//	backend := cpu.New()
//	stateDict, err := weights.ReadStateDict(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
package loader

import (
	"github.com/shift-ml/shift/internal/loader"
)

// WeightFormat represents the on-disk weight format.
type WeightFormat = loader.WeightFormat

// Supported weight formats.
const (
	FormatUnknown     WeightFormat = loader.FormatUnknown
	FormatSafeTensors WeightFormat = loader.FormatSafeTensors
	FormatTorchPickle WeightFormat = loader.FormatTorchPickle
)

// Weight source conventions recognized by DetectSource.
const (
	SourceTorchvision = loader.SourceTorchvision
	SourceTimmViT     = loader.SourceTimmViT
	SourceNative      = loader.SourceNative
)

// WeightsReader provides a unified interface for reading weight files.
// It abstracts away the underlying file format and provides consistent
// access to tensors under the toolkit's canonical backbone/head naming.
//
// Note: This is a type alias because the LoadTensor method signature references
// internal tensor types that cannot be abstracted without a wrapper layer.
type WeightsReader = loader.WeightsReader

// OpenWeights opens a weight file and auto-detects the format.
//
// Supported formats:
//   - .safetensors (Hugging Face standard)
//   - .pt / .pth (PyTorch pickle checkpoints)
//
// The naming convention (torchvision, timm ViT, or native) is detected
// from the tensor names, and ReadStateDict remaps every name to the
// canonical "backbone." / "head." scheme.
//
// Example:
//
//	weights, err := loader.OpenWeights("path/to/resnet50.pth")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer weights.Close()
//
//	fmt.Printf("Format: %s\n", weights.Format())  // "TorchPickle"
//	fmt.Printf("Source: %s\n", weights.Source())  // "torchvision"
//
//	// List all tensors under their original names
//	for _, name := range weights.TensorNames() {
//	    fmt.Println(name)
//	}
//
//	// Load the remapped state dict
//	backend := cpu.New()
//	stateDict, err := weights.ReadStateDict(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
func OpenWeights(path string) (WeightsReader, error) {
	return loader.OpenWeights(path)
}

// WeightMapper converts source-specific parameter names to the toolkit's
// backbone/head naming, so that a torchvision export and a native
// checkpoint load into the same module tree.
type WeightMapper = loader.WeightMapper

// NewTorchvisionMapper creates a weight mapper for torchvision exports.
// ResNet variants name the classifier "fc", DenseNet names it
// "classifier"; everything else belongs to the backbone.
func NewTorchvisionMapper() WeightMapper {
	return loader.NewTorchvisionMapper()
}

// NewTimmViTMapper creates a weight mapper for timm ViT exports.
// Supports DINOv2 checkpoints with register tokens.
func NewTimmViTMapper() WeightMapper {
	return loader.NewTimmViTMapper()
}

// NewNativeMapper creates a passthrough mapper for weights already using
// the canonical naming.
func NewNativeMapper() WeightMapper {
	return loader.NewNativeMapper()
}

// DetectSource attempts to detect the naming convention from weight names.
// Returns "torchvision", "timm_vit", or "native".
func DetectSource(names []string) string {
	return loader.DetectSource(names)
}

// GetMapper returns the mapper for a source convention name, falling back
// to the native mapper for unknown sources.
func GetMapper(source string) WeightMapper {
	return loader.GetMapper(source)
}
