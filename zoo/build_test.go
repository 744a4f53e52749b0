package zoo

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-ml/shift/harness"
	"github.com/shift-ml/shift/internal/backend/cpu"
	"github.com/shift-ml/shift/internal/loader"
	"github.com/shift-ml/shift/internal/nn"
)

// registerLinearBackbone installs a single-layer stand-in for a catalog
// architecture and removes it when the test finishes.
func registerLinearBackbone(t *testing.T, name string, features, dim int) {
	t.Helper()
	Register(name, linearBuilder(features, dim))
	t.Cleanup(func() { Unregister(name) })
}

// writeBackboneExport writes a SafeTensors file holding backbone weights
// for a [dim, features] linear feature extractor, every value set to fill.
func writeBackboneExport(t *testing.T, path string, dim, features int, fill float32) {
	t.Helper()

	weightBytes := dim * features * 4
	biasBytes := dim * 4
	header := map[string]any{
		"backbone.weight": loader.SafeTensorInfo{
			DType:       loader.SafeTensorsF32,
			Shape:       []int{dim, features},
			DataOffsets: [2]int64{0, int64(weightBytes)},
		},
		"backbone.bias": loader.SafeTensorInfo{
			DType:       loader.SafeTensorsF32,
			Shape:       []int{dim},
			DataOffsets: [2]int64{int64(weightBytes), int64(weightBytes + biasBytes)},
		},
	}
	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)

	data := make([]byte, weightBytes+biasBytes)
	for i := 0; i < len(data); i += 4 {
		binary.LittleEndian.PutUint32(data[i:], math.Float32bits(fill))
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, binary.Write(f, binary.LittleEndian, uint64(len(headerJSON))))
	_, err = f.Write(headerJSON)
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
}

func TestBuildFeatureProbe(t *testing.T) {
	backend := cpu.New()

	for _, featureType := range []string{KindPrecomputed, KindRawFlattened} {
		cfg := harness.Default()
		cfg.Model = "linear"
		cfg.FeatureType = featureType

		model, err := Build(cfg, 3, 8, backend)
		require.NoError(t, err)

		probe, ok := model.(*nn.Linear[*cpu.CPUBackend])
		require.True(t, ok)
		assert.Equal(t, 8, probe.InFeatures())
		assert.Equal(t, 3, probe.OutFeatures())
	}
}

func TestBuildFeatureProbeErrors(t *testing.T) {
	backend := cpu.New()

	cfg := harness.Default()
	cfg.FeatureType = KindPrecomputed
	cfg.TrainFromScratch = true
	_, err := Build(cfg, 3, 8, backend)
	assert.ErrorContains(t, err, "pretrained")

	cfg = harness.Default()
	cfg.FeatureType = KindPrecomputed
	_, err = Build(cfg, 3, 0, backend)
	assert.ErrorContains(t, err, "feature dimension")
}

func TestBuildUnknownModel(t *testing.T) {
	cfg := harness.Default()
	cfg.Model = "alexnet"

	_, err := Build(cfg, 3, 0, cpu.New())
	assert.ErrorContains(t, err, "not recognized")
}

func TestBuildFeatureModelNeedsFeatureType(t *testing.T) {
	cfg := harness.Default()
	cfg.Model = "linear"

	_, err := Build(cfg, 3, 8, cpu.New())
	assert.ErrorContains(t, err, "feature_type")
}

func TestBuildInvalidClassCount(t *testing.T) {
	_, err := Build(harness.Default(), 0, 8, cpu.New())
	assert.ErrorContains(t, err, "class count")
}

func TestBuildBackboneFromScratch(t *testing.T) {
	registerLinearBackbone(t, "resnet50", 4, 2048)

	cfg := harness.Default()
	cfg.TrainFromScratch = true

	model, err := Build(cfg, 3, 0, cpu.New())
	require.NoError(t, err)

	clf, ok := model.(*Classifier[*cpu.CPUBackend])
	require.True(t, ok)
	assert.Equal(t, 2048, clf.Head().InFeatures())
	assert.Equal(t, 3, clf.Head().OutFeatures())
}

func TestBuildBackboneRequiresBuilder(t *testing.T) {
	cfg := harness.Default()
	cfg.TrainFromScratch = true

	_, err := Build(cfg, 3, 0, cpu.New())
	assert.ErrorContains(t, err, "no backbone registered")
}

func TestBuildBackboneDimMismatch(t *testing.T) {
	registerLinearBackbone(t, "resnet50", 4, 7)

	cfg := harness.Default()
	cfg.TrainFromScratch = true

	_, err := Build(cfg, 3, 0, cpu.New())
	assert.ErrorContains(t, err, "want 2048")
}

func TestBuildPretrainedRequiresPath(t *testing.T) {
	registerLinearBackbone(t, "resnet50", 4, 2048)

	cfg := harness.Default()

	_, err := Build(cfg, 3, 0, cpu.New())
	assert.ErrorContains(t, err, "pretrained_path")
}

func TestBuildCIFAR10IgnoresPretrained(t *testing.T) {
	registerLinearBackbone(t, "cifar-resnet50", 4, 2048)

	cfg := harness.Default()
	cfg.Dataset = "CIFAR10"

	// No pretrained path configured: the CIFAR backbone always starts
	// from scratch, so this must still succeed.
	model, err := Build(cfg, 10, 0, cpu.New())
	require.NoError(t, err)

	clf, ok := model.(*Classifier[*cpu.CPUBackend])
	require.True(t, ok)
	assert.Equal(t, 10, clf.Head().OutFeatures())
}

func TestBuildPretrainedLoadsBackbone(t *testing.T) {
	registerLinearBackbone(t, "resnet50", 4, 2048)

	path := filepath.Join(t.TempDir(), "resnet50.safetensors")
	writeBackboneExport(t, path, 2048, 4, 0.5)

	cfg := harness.Default()
	cfg.PretrainedPath = path

	model, err := Build(cfg, 3, 0, cpu.New())
	require.NoError(t, err)

	clf := model.(*Classifier[*cpu.CPUBackend])
	backbone := clf.Backbone().(*nn.Linear[*cpu.CPUBackend])
	for _, v := range backbone.Weight().Tensor().Data() {
		require.Equal(t, float32(0.5), v)
	}
	for _, v := range backbone.Bias().Tensor().Data() {
		require.Equal(t, float32(0.5), v)
	}

	// The head keeps its fresh initialization; Xavier bounds stay far
	// below the fill value.
	for _, v := range clf.Head().Weight().Tensor().Data() {
		require.NotEqual(t, float32(0.5), v)
	}
}

func TestBuildResume(t *testing.T) {
	backend := cpu.New()

	cfg := harness.Default()
	cfg.Model = "linear"
	cfg.FeatureType = KindPrecomputed
	cfg.LogDir = t.TempDir()

	first, err := Build(cfg, 3, 8, backend)
	require.NoError(t, err)

	runDir := cfg.RunDir()
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	require.NoError(t, nn.Save(first, filepath.Join(runDir, ResumeFile), "linear", nil))

	cfg.Resume = true
	second, err := Build(cfg, 3, 8, backend)
	require.NoError(t, err)

	want := first.(*nn.Linear[*cpu.CPUBackend]).Weight().Tensor().Data()
	got := second.(*nn.Linear[*cpu.CPUBackend]).Weight().Tensor().Data()
	assert.Equal(t, want, got)
}

func TestBuildResumeMissingCheckpoint(t *testing.T) {
	cfg := harness.Default()
	cfg.Model = "linear"
	cfg.FeatureType = KindPrecomputed
	cfg.LogDir = t.TempDir()
	cfg.Resume = true

	_, err := Build(cfg, 3, 8, cpu.New())
	assert.ErrorContains(t, err, "resume")
}
