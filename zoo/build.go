package zoo

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shift-ml/shift/harness"
	"github.com/shift-ml/shift/internal/loader"
	"github.com/shift-ml/shift/internal/nn"
	"github.com/shift-ml/shift/internal/tensor"
)

// ResumeFile is the checkpoint a run writes into its run directory after
// every epoch and the file Build resumes from.
const ResumeFile = "last_model.shift"

// Build constructs the model for a run configuration.
//
// nClasses is the number of target classes and featureDim the dataset's
// feature width (used only by feature-space models). The model is chosen
// in this order:
//
//  1. CIFAR10 runs get the reduced-resolution cifar-resnet50 backbone,
//     always trained from scratch.
//  2. A precomputed or raw_flattened feature type gets a linear probe of
//     shape [featureDim, nClasses].
//  3. Otherwise cfg.Model names a registered backbone, wrapped with a
//     fresh classifier head. Unless the run trains from scratch, backbone
//     weights load from cfg.PretrainedPath.
//
// When cfg.Resume is set, weights come from ResumeFile in the run
// directory instead of any pretrained source.
func Build[B tensor.Backend](cfg *harness.Config, nClasses, featureDim int, backend B) (nn.Module[B], error) {
	if nClasses <= 0 {
		return nil, fmt.Errorf("zoo: need a positive class count, got %d", nClasses)
	}

	pretrained := !cfg.Resume && !cfg.TrainFromScratch
	model, err := buildArch(cfg, nClasses, featureDim, backend, pretrained)
	if err != nil {
		return nil, err
	}

	if cfg.Resume {
		path := filepath.Join(cfg.RunDir(), ResumeFile)
		if _, err := nn.Load(path, backend, model); err != nil {
			return nil, fmt.Errorf("zoo: failed to resume from %s: %w", path, err)
		}
	}
	return model, nil
}

func buildArch[B tensor.Backend](cfg *harness.Config, nClasses, featureDim int, backend B, pretrained bool) (nn.Module[B], error) {
	switch {
	case cfg.Dataset == "CIFAR10":
		return backboneClassifier("cifar-resnet50", nClasses, backend, cfg, false)

	case cfg.FeatureType == KindPrecomputed || cfg.FeatureType == KindRawFlattened:
		if cfg.TrainFromScratch {
			return nil, errors.New("zoo: feature-space models need features from a pretrained extractor")
		}
		if featureDim <= 0 {
			return nil, fmt.Errorf("zoo: feature-space model needs a positive feature dimension, got %d", featureDim)
		}
		return nn.NewLinear(featureDim, nClasses, backend), nil

	default:
		attr, ok := Lookup(cfg.Model)
		if !ok {
			return nil, fmt.Errorf("zoo: model %q not recognized (known: %s)",
				cfg.Model, strings.Join(Names(), ", "))
		}
		if attr.Kind != KindBackbone {
			return nil, fmt.Errorf("zoo: model %q consumes features; set feature_type to %q or %q",
				cfg.Model, KindPrecomputed, KindRawFlattened)
		}
		return backboneClassifier(cfg.Model, nClasses, backend, cfg, pretrained)
	}
}

// backboneClassifier builds a registered backbone and wraps it with a
// classifier head sized for the run.
func backboneClassifier[B tensor.Backend](arch string, nClasses int, backend B, cfg *harness.Config, pretrained bool) (nn.Module[B], error) {
	builder, err := builderFor[B](arch)
	if err != nil {
		return nil, err
	}
	features, dim, err := builder(backend)
	if err != nil {
		return nil, fmt.Errorf("zoo: failed to build %s: %w", arch, err)
	}
	if attr, ok := Lookup(arch); ok && attr.FeatureDim != 0 && attr.FeatureDim != dim {
		return nil, fmt.Errorf("zoo: %s builder produced %d features, want %d", arch, dim, attr.FeatureDim)
	}

	model := NewClassifier(features, nn.NewLinear(dim, nClasses, backend))
	if pretrained {
		if cfg.PretrainedPath == "" {
			return nil, fmt.Errorf("zoo: pretrained weights for %s requested but pretrained_path is empty", arch)
		}
		if err := loadPretrained(model, cfg.PretrainedPath, backend); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// loadPretrained loads backbone weights from an external export. Head
// weights in the export are dropped so the fresh classifier head keeps
// the run's class count, which is how an fc replacement behaves.
func loadPretrained[B tensor.Backend](model *Classifier[B], path string, backend B) error {
	r, err := loader.OpenWeights(path)
	if err != nil {
		return fmt.Errorf("zoo: failed to open pretrained weights %s: %w", path, err)
	}
	defer r.Close()

	stateDict, err := r.ReadStateDict(backend)
	if err != nil {
		return fmt.Errorf("zoo: failed to read pretrained weights %s: %w", path, err)
	}
	for key := range stateDict {
		if strings.HasPrefix(key, "head.") {
			delete(stateDict, key)
		}
	}

	if err := model.LoadStateDict(stateDict); err != nil {
		return fmt.Errorf("zoo: failed to load pretrained weights %s: %w", path, err)
	}
	return nil
}
