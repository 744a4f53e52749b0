// Package zoo builds the models a shift experiment trains: linear probes
// over precomputed features, and registered backbone architectures wrapped
// with a fresh classifier head.
//
// Backbone implementations live outside the toolkit. A package providing
// one registers a Builder in its init function; Build then resolves the
// architecture named in the run configuration against the registry.
package zoo

import "sort"

// Model kinds. Backbone models consume images and need a registered
// Builder; the probe kinds consume feature vectors and need only a
// feature dimension.
const (
	KindBackbone     = "backbone"
	KindPrecomputed  = "precomputed"
	KindRawFlattened = "raw_flattened"
)

// Attributes describes a known architecture.
type Attributes struct {
	// Kind is one of KindBackbone, KindPrecomputed or KindRawFlattened.
	Kind string

	// FeatureDim is the width of the penultimate features, 0 when the
	// width depends on the dataset.
	FeatureDim int

	// InputRes is the square input resolution the architecture expects,
	// 0 when it does not consume images.
	InputRes int

	// NoDecay names parameters excluded from weight decay.
	NoDecay []string
}

// vitNoDecay lists the ViT parameters that never receive weight decay.
var vitNoDecay = []string{"pos_embed", "cls_token", "reg_token"}

// catalog holds the attributes of every architecture the toolkit knows.
var catalog = map[string]Attributes{
	"resnet50":     {Kind: KindBackbone, FeatureDim: 2048, InputRes: 224},
	"resnet34":     {Kind: KindBackbone, FeatureDim: 512, InputRes: 224},
	"wideresnet50": {Kind: KindBackbone, FeatureDim: 2048, InputRes: 224},
	"densenet121":  {Kind: KindBackbone, FeatureDim: 1024, InputRes: 224},
	"vit_base_patch14_reg4_dinov2.lvd142m": {
		Kind:       KindBackbone,
		FeatureDim: 768,
		InputRes:   224,
		NoDecay:    vitNoDecay,
	},
	"cifar-resnet50": {Kind: KindBackbone, FeatureDim: 2048, InputRes: 32},
	"linear":         {Kind: KindPrecomputed},
}

// Lookup returns the attributes of a known architecture.
func Lookup(name string) (Attributes, bool) {
	attr, ok := catalog[name]
	return attr, ok
}

// Names returns every known architecture name in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NoWeightDecay returns the parameter names excluded from weight decay for
// the named architecture. Token and position-embedding parameters are on
// the list for every model; architectures without them simply never match.
func NoWeightDecay(name string) []string {
	if attr, ok := catalog[name]; ok && len(attr.NoDecay) > 0 {
		return attr.NoDecay
	}
	return vitNoDecay
}
