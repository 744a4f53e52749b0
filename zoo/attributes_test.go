package zoo

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	attr, ok := Lookup("resnet50")
	require.True(t, ok)
	assert.Equal(t, KindBackbone, attr.Kind)
	assert.Equal(t, 2048, attr.FeatureDim)
	assert.Equal(t, 224, attr.InputRes)

	attr, ok = Lookup("vit_base_patch14_reg4_dinov2.lvd142m")
	require.True(t, ok)
	assert.Equal(t, 768, attr.FeatureDim)
	assert.Equal(t, []string{"pos_embed", "cls_token", "reg_token"}, attr.NoDecay)

	attr, ok = Lookup("cifar-resnet50")
	require.True(t, ok)
	assert.Equal(t, 32, attr.InputRes)

	attr, ok = Lookup("linear")
	require.True(t, ok)
	assert.Equal(t, KindPrecomputed, attr.Kind)

	_, ok = Lookup("alexnet")
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.True(t, sort.StringsAreSorted(names))
	assert.Len(t, names, 7)
	assert.Contains(t, names, "resnet50")
	assert.Contains(t, names, "densenet121")
	assert.Contains(t, names, "linear")
}

func TestNoWeightDecay(t *testing.T) {
	want := []string{"pos_embed", "cls_token", "reg_token"}

	// The token list applies to every architecture. CNNs have no matching
	// parameters, so for them it never excludes anything.
	assert.Equal(t, want, NoWeightDecay("resnet50"))
	assert.Equal(t, want, NoWeightDecay("vit_base_patch14_reg4_dinov2.lvd142m"))
	assert.Equal(t, want, NoWeightDecay("unknown"))
}
