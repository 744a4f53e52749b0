package harness

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/shift-ml/shift/internal/tensor"
)

// Launcher environment variables probed at startup.
const (
	envRank        = "RANK"
	envWorldSize   = "WORLD_SIZE"
	envSlurmNodeID = "SLURM_NODEID"
	envSlurmTasks  = "SLURM_NTASKS"
)

// EnvVar describes one launcher environment variable and its value at
// the time of the call.
type EnvVar struct {
	Name        string
	Value       string
	Description string
}

// EnvVars returns the launcher variables the toolkit inspects, keyed by
// name. Unset variables have an empty Value.
func EnvVars() map[string]EnvVar {
	vars := []EnvVar{
		{envRank, os.Getenv(envRank), "Process rank under a torchrun-style launcher"},
		{envWorldSize, os.Getenv(envWorldSize), "Process count under a torchrun-style launcher"},
		{envSlurmNodeID, os.Getenv(envSlurmNodeID), "Node ID when running as a Slurm job"},
		{envSlurmTasks, os.Getenv(envSlurmTasks), "Task count when running as a Slurm job"},
	}
	out := make(map[string]EnvVar, len(vars))
	for _, v := range vars {
		out[v.Name] = v
	}
	return out
}

// MultiGPU reports whether this run is part of a distributed launch:
// a torchrun-style launcher exported RANK, or the job runs under Slurm
// with more than one task.
func MultiGPU() bool {
	if rank() != -1 {
		return true
	}
	if os.Getenv(envSlurmNodeID) != "" {
		return envInt(envSlurmTasks, 1) > 1
	}
	return false
}

// WorldSize returns the number of processes taking part in the run.
// Slurm jobs read SLURM_NTASKS, torchrun-style launches WORLD_SIZE,
// single-process runs get 1.
func WorldSize() int {
	if os.Getenv(envSlurmNodeID) != "" {
		return envInt(envSlurmTasks, 1)
	}
	if rank() != -1 {
		return envInt(envWorldSize, 1)
	}
	return 1
}

// EffectiveBatchSize returns the per-step sample count across all
// processes. Gradient-equivalent hyperparameters (lr, weight decay)
// scale against this, not the per-process batch size.
func (c *Config) EffectiveBatchSize() int {
	return c.BatchSize * WorldSize()
}

// ScaledWeightDecay returns the normalized weight decay for a dataset of
// datasetLen samples: wd * sqrt(1 / (iterations * epochs)), following
// Loshchilov & Hutter, "Decoupled Weight Decay Regularization". The last
// partial batch is dropped, matching drop-last loading.
func (c *Config) ScaledWeightDecay(datasetLen int) (float64, error) {
	batch := c.EffectiveBatchSize()
	if batch <= 0 {
		return 0, fmt.Errorf("effective batch size %d must be positive", batch)
	}
	iterations := datasetLen / batch
	if iterations == 0 {
		return 0, fmt.Errorf("dataset of %d samples yields no full batch of %d", datasetLen, batch)
	}
	if c.NEpochs <= 0 {
		return 0, fmt.Errorf("n_epochs %d must be positive", c.NEpochs)
	}
	return c.WeightDecay * math.Sqrt(1/float64(iterations*c.NEpochs)), nil
}

// SetSeed seeds the toolkit random source so weight initialization is
// reproducible across runs.
func SetSeed(seed int64) {
	tensor.Seed(seed)
}

// rank returns the launcher-assigned process rank, or -1 outside a
// distributed launch.
func rank() int {
	v := os.Getenv(envRank)
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
