package loader

import (
	"strings"
)

// Weight source conventions.
const (
	SourceTorchvision = "torchvision"
	SourceTimmViT     = "timm_vit"
	SourceNative      = "native"
)

// WeightMapper converts source-specific parameter names to the toolkit's
// backbone/head naming, so that a torchvision export and a native checkpoint
// load into the same module tree.
type WeightMapper interface {
	// MapName converts a source-specific weight name to the canonical name.
	MapName(name string) (string, error)

	// Source returns the source convention name (e.g. "torchvision").
	Source() string
}

// TorchvisionMapper maps torchvision classifier exports. ResNet variants
// name the classifier "fc", DenseNet names it "classifier"; everything else
// belongs to the backbone.
type TorchvisionMapper struct{}

// NewTorchvisionMapper creates a torchvision weight mapper.
func NewTorchvisionMapper() *TorchvisionMapper {
	return &TorchvisionMapper{}
}

// MapName converts torchvision weight names.
// Examples:
//   - fc.weight -> head.weight
//   - classifier.bias -> head.bias
//   - layer1.0.conv1.weight -> backbone.layer1.0.conv1.weight
//   - features.denseblock1.denselayer1.conv1.weight -> backbone.features.denseblock1.denselayer1.conv1.weight
func (m *TorchvisionMapper) MapName(name string) (string, error) {
	switch {
	case strings.HasPrefix(name, "fc."):
		return "head." + strings.TrimPrefix(name, "fc."), nil
	case strings.HasPrefix(name, "classifier."):
		return "head." + strings.TrimPrefix(name, "classifier."), nil
	case strings.HasPrefix(name, "backbone.") || strings.HasPrefix(name, "head."):
		return name, nil // already canonical
	default:
		return "backbone." + name, nil
	}
}

// Source returns "torchvision".
func (m *TorchvisionMapper) Source() string {
	return SourceTorchvision
}

// TimmViTMapper maps timm vision transformer exports. The classifier is
// already called "head"; embedding tokens (cls_token, pos_embed, reg_token)
// and transformer blocks move under the backbone.
type TimmViTMapper struct{}

// NewTimmViTMapper creates a timm ViT weight mapper.
func NewTimmViTMapper() *TimmViTMapper {
	return &TimmViTMapper{}
}

// MapName converts timm ViT weight names.
// Examples:
//   - head.weight -> head.weight
//   - cls_token -> backbone.cls_token
//   - blocks.0.attn.qkv.weight -> backbone.blocks.0.attn.qkv.weight
//   - norm.weight -> backbone.norm.weight
func (m *TimmViTMapper) MapName(name string) (string, error) {
	switch {
	case strings.HasPrefix(name, "head."):
		return name, nil
	case strings.HasPrefix(name, "backbone."):
		return name, nil
	default:
		return "backbone." + name, nil
	}
}

// Source returns "timm_vit".
func (m *TimmViTMapper) Source() string {
	return SourceTimmViT
}

// NativeMapper passes names through unchanged, for weights saved by this
// toolkit.
type NativeMapper struct{}

// NewNativeMapper creates a pass-through mapper.
func NewNativeMapper() *NativeMapper {
	return &NativeMapper{}
}

// MapName returns the name unchanged.
func (m *NativeMapper) MapName(name string) (string, error) {
	return name, nil
}

// Source returns "native".
func (m *NativeMapper) Source() string {
	return SourceNative
}

// DetectSource guesses the naming convention from parameter names.
func DetectSource(names []string) string {
	for _, name := range names {
		// ViT embedding tokens only exist in timm exports
		if name == "cls_token" || name == "pos_embed" || name == "reg_token" ||
			strings.HasPrefix(name, "blocks.") || strings.HasPrefix(name, "patch_embed.") {
			return SourceTimmViT
		}
	}

	for _, name := range names {
		if strings.HasPrefix(name, "fc.") || strings.HasPrefix(name, "classifier.") ||
			strings.HasPrefix(name, "layer1.") || strings.HasPrefix(name, "features.") {
			return SourceTorchvision
		}
	}

	return SourceNative
}

// GetMapper returns the weight mapper for a source convention.
func GetMapper(source string) WeightMapper {
	switch source {
	case SourceTorchvision:
		return NewTorchvisionMapper()
	case SourceTimmViT:
		return NewTimmViTMapper()
	default:
		return NewNativeMapper()
	}
}
