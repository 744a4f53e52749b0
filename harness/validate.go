package harness

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid run configuration")

// Validate checks that the arguments a shift type or method depends on
// are actually set. It fails fast at startup rather than deep inside an
// epoch.
func (c *Config) Validate() error {
	switch {
	case c.ShiftType == "confounder":
		if len(c.ConfounderNames) == 0 {
			return fmt.Errorf("%w: shift type %q requires confounder_names", ErrInvalidConfig, c.ShiftType)
		}
		if c.TargetName == "" {
			return fmt.Errorf("%w: shift type %q requires target_name", ErrInvalidConfig, c.ShiftType)
		}
	case strings.HasPrefix(c.ShiftType, "label_shift"):
		if c.MinorityFraction == 0 {
			return fmt.Errorf("%w: shift type %q requires minority_fraction", ErrInvalidConfig, c.ShiftType)
		}
		if c.ImbalanceRatio == 0 {
			return fmt.Errorf("%w: shift type %q requires imbalance_ratio", ErrInvalidConfig, c.ShiftType)
		}
	}

	if c.DISC && c.ErmPath == "" {
		return fmt.Errorf("%w: disc requires erm_path pointing at a trained reference model", ErrInvalidConfig)
	}
	return nil
}

// Method resolves which training method the selector flags describe.
// When several are set, the first in precedence order wins:
// DISC, LISA, JTT, REx, IRM, IBIRM, Fish, GroupDRO, Coral, then ERM.
func (c *Config) Method() string {
	method, _ := c.methodAndParams()
	return method
}

// RunDir returns the run's output directory:
// logDir/dataset/method/<hyperparameter string>. The hyperparameter
// string starts with the method-specific settings and always ends with
// the shared reweight/augment/lr/batch/epochs block and the seed
// (trapset_id for ISIC, whose splits are identified by trap set).
func (c *Config) RunDir() string {
	method, params := c.methodAndParams()

	common := fmt.Sprintf("reweight_groups=%d-augment=%d-lr=%s-batch_size=%d-n_epochs=%d",
		boolToInt(c.ReweightGroups), boolToInt(c.AugmentData),
		formatFloat(c.LR), c.BatchSize, c.NEpochs)
	if c.Dataset == "ISIC" {
		common += fmt.Sprintf("-trapset_id=%d", c.Seed)
	} else {
		common += fmt.Sprintf("-seed=%d", c.Seed)
	}

	if params != "" {
		params += "-" + common
	} else {
		params = common
	}
	return filepath.Join(c.LogDir, c.Dataset, method, params)
}

func (c *Config) methodAndParams() (string, string) {
	switch {
	case c.DISC:
		return "DISC", fmt.Sprintf("%s-n_concept_imgs=%d-n_clusters=%d",
			c.ConceptCategories, int(c.NConceptImgs), c.NClusters)
	case c.LISAMixUp:
		return "LISA", fmt.Sprintf("mix_ratio=%s-mix_alpha=%s-cut_mix=%t-alpha=%s",
			formatFloat(c.MixRatio), formatFloat(c.MixAlpha), c.CutMix, formatFloat(c.Alpha))
	case c.JTT:
		return "JTT", "upweight=" + formatFloat(c.JTTUpweight)
	case c.REx:
		return "REx", "penalty=" + formatFloat(c.RExPenalty)
	case c.IRM:
		return "IRM", "penalty=" + formatFloat(c.IRMPenalty)
	case c.IBIRM:
		return "IBIRM", "penalty=" + formatFloat(c.IBIRMPenalty)
	case c.Fish:
		return "Fish", "meta_lr=" + formatFloat(c.MetaLR)
	case c.Robust:
		return "GroupDRO", "robust_step_size=" + formatFloat(c.RobustStepSize)
	case c.Coral:
		return "Coral", ""
	default:
		return "ERM", ""
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
