package nn

import (
	"github.com/shift-ml/shift/internal/serialization"
	"github.com/shift-ml/shift/internal/tensor"
)

// Save writes a module's state dictionary to a .shift file.
//
// The file is written in the checksummed v2 format so that a later
// load can detect corrupted weights. modelType names the architecture
// ("Linear", "Sequential", "resnet50") and is recorded in the header;
// metadata is optional and may be nil.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(2048, 2, backend)
//	err := nn.Save(model, "probe.shift", "Linear", nil)
func Save[B tensor.Backend](module Module[B], path, modelType string, metadata map[string]string) (err error) {
	stateDict := module.StateDict()

	writer, err := serialization.NewWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return writer.WriteStateDictV2(stateDict, modelType, metadata)
}

// Load reads a state dictionary from a .shift file into module.
//
// The module must already have the right architecture: loading
// validates names, shapes, and dtypes against the module's own
// parameters. Both v1 and v2 files are accepted.
//
// Returns the file header so callers can inspect the recorded model
// type and metadata.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(2048, 2, backend)
//	header, err := nn.Load("probe.shift", backend, model)
func Load[B tensor.Backend](path string, backend B, module Module[B]) (serialization.Header, error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return serialization.Header{}, err
	}
	defer func() {
		_ = reader.Close()
	}()

	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return serialization.Header{}, err
	}

	if err := module.LoadStateDict(stateDict); err != nil {
		return serialization.Header{}, err
	}

	return reader.Header(), nil
}
