package nn

import (
	"fmt"
	"strings"
	"time"

	"github.com/shift-ml/shift/internal/serialization"
	"github.com/shift-ml/shift/internal/tensor"
)

// optimizerPrefix marks optimizer state entries in a combined state dict.
const optimizerPrefix = "optimizer."

// OptimizerState represents an optimizer that can save/load its state.
//
// Checkpoints use this interface to serialize optimizer state without
// creating an import cycle with the optim package. Every optimizer in
// the optim package implements it.
type OptimizerState interface {
	// StateDict returns the optimizer state for serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads optimizer state from serialization.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// GetLR returns the current learning rate.
	GetLR() float32
}

// OptimizerDescriber reports an optimizer's algorithm name and
// hyperparameters. Optimizers that implement it have their real type and
// configuration recorded in the checkpoint header, which `shift inspect`
// displays without loading any tensor data. Optimizers that do not are
// recorded with the generic type "Optimizer" and their learning rate.
type OptimizerDescriber interface {
	Name() string
	Config() map[string]any
}

// Checkpoint is a complete snapshot of a training run.
//
// A checkpoint bundles:
//   - Model parameters (weights and biases)
//   - Optimizer state (momentum buffers, Adam moments)
//   - Training progress (epoch, step, loss)
//   - Custom metadata such as the dataset and method name
//
// Shift runs are frequently preempted on shared clusters, so every
// experiment writes a checkpoint per epoch and resumes from the latest
// one on restart:
//
//	checkpoint := &nn.Checkpoint[cpu.Backend]{
//	    Model:     model,
//	    Optimizer: optimizer,
//	    ModelType: "resnet50",
//	    Epoch:     10,
//	    Step:      5000,
//	    Loss:      0.123,
//	    Metadata:  map[string]any{"dataset": "waterbirds", "method": "DISC"},
//	}
//	err := checkpoint.Save("run/epoch_10.shift")
//
// To resume:
//
//	checkpoint, err := nn.LoadCheckpoint("run/epoch_10.shift", backend, model, optimizer)
//	startEpoch := checkpoint.Epoch + 1
//
// Type parameter B must satisfy the tensor.Backend interface.
type Checkpoint[B tensor.Backend] struct {
	Model     Module[B]      // The model being trained
	Optimizer OptimizerState // The optimizer with its state
	ModelType string         // Architecture name recorded in the header (e.g. "resnet50")
	Epoch     int            // Training epoch number
	Step      int64          // Training step number
	Loss      float64        // Loss value at this checkpoint
	Metadata  map[string]any // Additional training metadata
	CreatedAt time.Time      // When the checkpoint was created
}

// Save writes the checkpoint to a v2 .shift file.
//
// Model parameters keep their own names; optimizer state is stored under
// the "optimizer." prefix so both live in one tensor table. The v2 frame
// carries a content checksum, so a checkpoint truncated by preemption is
// rejected at load time instead of resuming from garbage.
func (c *Checkpoint[B]) Save(path string) (err error) {
	combined := make(map[string]*tensor.RawTensor)
	for name, raw := range c.Model.StateDict() {
		combined[name] = raw
	}
	for name, raw := range c.Optimizer.StateDict() {
		combined[optimizerPrefix+name] = raw
	}

	modelType := c.ModelType
	if modelType == "" {
		modelType = "Checkpoint"
	}

	header := serialization.Header{
		FormatVersion: serialization.FormatVersionV2,
		ModelType:     modelType,
		CreatedAt:     c.CreatedAt,
		Metadata:      make(map[string]string),
		CheckpointMeta: &serialization.CheckpointMeta{
			IsCheckpoint:    true,
			Epoch:           c.Epoch,
			Step:            c.Step,
			Loss:            c.Loss,
			OptimizerType:   optimizerType(c.Optimizer),
			OptimizerConfig: optimizerConfig(c.Optimizer),
			TrainingMeta:    c.Metadata,
		},
	}

	writer, err := serialization.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := writer.WriteStateDictWithHeaderV2(combined, header); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return nil
}

// LoadCheckpoint restores a training run from a .shift checkpoint file.
//
// The model and optimizer must be pre-constructed with the same
// architecture and configuration as when the checkpoint was saved; their
// state is loaded in place. Returns serialization.ErrNotCheckpoint when
// the file is a plain state dict rather than a checkpoint.
//
// Example:
//
//	model := nn.NewLinear(featureDim, nClasses, backend)
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01}, backend)
//
//	checkpoint, err := nn.LoadCheckpoint("run/latest.shift", backend, model, optimizer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for epoch := checkpoint.Epoch + 1; epoch < totalEpochs; epoch++ {
//	    // training loop
//	}
func LoadCheckpoint[B tensor.Backend](
	path string,
	backend B,
	model Module[B],
	optimizer OptimizerState,
) (_ *Checkpoint[B], err error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	header := reader.Header()
	if header.CheckpointMeta == nil || !header.CheckpointMeta.IsCheckpoint {
		return nil, fmt.Errorf("%s: %w", path, serialization.ErrNotCheckpoint)
	}

	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return nil, fmt.Errorf("failed to read state dict: %w", err)
	}

	modelState := make(map[string]*tensor.RawTensor)
	optimizerState := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if rest, ok := strings.CutPrefix(name, optimizerPrefix); ok {
			optimizerState[rest] = raw
		} else {
			modelState[name] = raw
		}
	}

	if err := model.LoadStateDict(modelState); err != nil {
		return nil, fmt.Errorf("failed to load model state: %w", err)
	}
	if err := optimizer.LoadStateDict(optimizerState); err != nil {
		return nil, fmt.Errorf("failed to load optimizer state: %w", err)
	}

	return &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		ModelType: header.ModelType,
		Epoch:     header.CheckpointMeta.Epoch,
		Step:      header.CheckpointMeta.Step,
		Loss:      header.CheckpointMeta.Loss,
		Metadata:  header.CheckpointMeta.TrainingMeta,
		CreatedAt: header.CreatedAt,
	}, nil
}

// SaveCheckpoint saves a per-epoch checkpoint with a minimal API.
//
// Equivalent to building a Checkpoint and calling Save:
//
//	err := nn.SaveCheckpoint("run/epoch_3.shift", model, optimizer, 3)
func SaveCheckpoint[B tensor.Backend](
	path string,
	model Module[B],
	optimizer OptimizerState,
	epoch int,
) error {
	checkpoint := &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     epoch,
	}
	return checkpoint.Save(path)
}

// optimizerType returns the algorithm name recorded in the header.
func optimizerType(opt OptimizerState) string {
	if d, ok := opt.(OptimizerDescriber); ok {
		return d.Name()
	}
	return "Optimizer"
}

// optimizerConfig returns the hyperparameters recorded in the header.
func optimizerConfig(opt OptimizerState) map[string]any {
	if d, ok := opt.(OptimizerDescriber); ok {
		return d.Config()
	}
	return map[string]any{"lr": opt.GetLR()}
}
