// Package serialization implements the native .shift container format for
// model weights and training checkpoints, plus a SafeTensors exporter.
//
// A v1 .shift file is laid out as:
//
//	[4 bytes: Magic "SHFT"]
//	[4 bytes: Version (uint32 LE)]
//	[4 bytes: Flags (uint32 LE)]
//	[8 bytes: Header Size (uint64 LE)]
//	[Header: JSON metadata]
//	[Tensor data: raw bytes, 64-byte aligned]
//
// A v2 file replaces the variable prefix with a fixed 64-byte header that
// additionally carries the data-section size and a SHA-256 checksum of the
// tensor data, validated on open.
//
// The format supports:
//   - float32, float64, int32 and int64 tensors of arbitrary shape
//   - Custom string metadata
//   - Checkpoint metadata (epoch, step, loss, optimizer type and config)
//   - Memory-mapped reading via MmapReader
//
// Example usage:
//
//	// Save a probe head
//	writer, err := serialization.NewWriter("probe.shift")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer writer.Close()
//	if err := writer.WriteStateDictV2(model.StateDict(), "Linear", nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load it back
//	reader, err := serialization.NewReader("probe.shift")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//	stateDict, err := reader.ReadStateDict(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model.LoadStateDict(stateDict)
package serialization
