package serialization

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/shift-ml/shift/internal/tensor"
)

const toolkitVersion = "0.3.1" // Current toolkit version

// Writer writes state dictionaries in .shift format.
//
// Tensors are written in sorted name order, so two writes of the same state
// dict produce byte-identical files (and identical v2 checksums).
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a new .shift file writer.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &Writer{
		file:   file,
		closed: false,
	}, nil
}

// WriteStateDict writes a state dictionary using format v1 (no checksum).
func (w *Writer) WriteStateDict(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	header := Header{
		FormatVersion: FormatVersion,
		ModelType:     modelType,
		Metadata:      metadata,
	}
	return w.write(stateDict, header)
}

// WriteStateDictV2 writes a state dictionary using format v2, which carries a
// SHA-256 checksum of the tensor data in its fixed header.
func (w *Writer) WriteStateDictV2(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	header := Header{
		FormatVersion: FormatVersionV2,
		ModelType:     modelType,
		Metadata:      metadata,
	}
	return w.write(stateDict, header)
}

// WriteStateDictWithHeader writes a state dictionary with a caller-built
// header, which is how checkpoints attach CheckpointMeta. The header's
// FormatVersion selects the frame; zero means v1.
func (w *Writer) WriteStateDictWithHeader(stateDict map[string]*tensor.RawTensor, header Header) error {
	if header.FormatVersion == 0 {
		header.FormatVersion = FormatVersion
	}
	return w.write(stateDict, header)
}

// WriteStateDictWithHeaderV2 writes a caller-built header using the v2 frame
// regardless of the header's FormatVersion field.
func (w *Writer) WriteStateDictWithHeaderV2(stateDict map[string]*tensor.RawTensor, header Header) error {
	header.FormatVersion = FormatVersionV2
	return w.write(stateDict, header)
}

// write fills in the bookkeeping fields of the header and emits one frame.
func (w *Writer) write(stateDict map[string]*tensor.RawTensor, header Header) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	names := sortedNames(stateDict)
	header.ShiftVersion = toolkitVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	header.Tensors = tensorTable(names, stateDict)
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	switch header.FormatVersion {
	case FormatVersion:
		return writeFrameV1(w.file, header, names, stateDict)
	case FormatVersionV2:
		return writeFrameV2(w.file, header, names, stateDict)
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.FormatVersion)
	}
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo writes a v1 state dictionary to an io.Writer.
// This is useful for writing to buffers or network connections.
func WriteTo(writer io.Writer, stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	names := sortedNames(stateDict)
	header := Header{
		FormatVersion: FormatVersion,
		ShiftVersion:  toolkitVersion,
		ModelType:     modelType,
		CreatedAt:     time.Now().UTC(),
		Tensors:       tensorTable(names, stateDict),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}
	return writeFrameV1(writer, header, names, stateDict)
}

// sortedNames returns the state dict keys in sorted order, which fixes the
// on-disk tensor layout.
func sortedNames(stateDict map[string]*tensor.RawTensor) []string {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// tensorTable computes the tensor metadata table with packed offsets in
// write order.
func tensorTable(names []string, stateDict map[string]*tensor.RawTensor) []TensorMeta {
	table := make([]TensorMeta, 0, len(names))
	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.NumElements() * raw.DType().Size())
		table = append(table, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape()),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}
	return table
}

// headerFlags derives the flags word from header contents.
func headerFlags(header *Header) uint32 {
	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.CheckpointMeta != nil && header.CheckpointMeta.IsCheckpoint {
		flags |= FlagHasOptimizer
	}
	return flags
}

// writeTensorData writes the raw bytes of every tensor in table order.
func writeTensorData(dst io.Writer, names []string, stateDict map[string]*tensor.RawTensor) error {
	for _, name := range names {
		if _, err := dst.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}

// writePadding pads dst so the next write lands on a HeaderAlignment boundary.
func writePadding(dst io.Writer, pos int64) error {
	padding := (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
	if padding == 0 {
		return nil
	}
	if _, err := dst.Write(make([]byte, padding)); err != nil {
		return fmt.Errorf("failed to write padding: %w", err)
	}
	return nil
}

// writeFrameV1 emits a v1 frame:
//
//	[4B magic][4B version][4B flags][8B header size][JSON header][pad][tensor data]
func writeFrameV1(dst io.Writer, header Header, names []string, stateDict map[string]*tensor.RawTensor) error {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if _, err := dst.Write([]byte(MagicBytes)); err != nil {
		return fmt.Errorf("failed to write magic bytes: %w", err)
	}
	if err := binary.Write(dst, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}
	if err := binary.Write(dst, binary.LittleEndian, headerFlags(&header)); err != nil {
		return fmt.Errorf("failed to write flags: %w", err)
	}
	if err := binary.Write(dst, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := dst.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// magic + version + flags + headerSize + header
	pos := int64(4+4+4+8) + int64(len(headerJSON))
	if err := writePadding(dst, pos); err != nil {
		return err
	}

	return writeTensorData(dst, names, stateDict)
}

// writeFrameV2 emits a v2 frame:
//
//	[64B fixed header][JSON header][pad][tensor data]
//
// The fixed header holds magic at 0x00, version at 0x04, flags at 0x08,
// header size at 0x10, data size at 0x18, and the SHA-256 checksum of the
// tensor data at 0x20.
func writeFrameV2(dst io.Writer, header Header, names []string, stateDict map[string]*tensor.RawTensor) error {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	// Hash pass over the tensor data. Streaming the hash avoids buffering
	// every tensor twice for large checkpoints.
	hash := sha256.New()
	var dataSize uint64
	for _, name := range names {
		data := stateDict[name].Data()
		hash.Write(data)
		dataSize += uint64(len(data))
	}
	var checksum [ChecksumSize]byte
	copy(checksum[:], hash.Sum(nil))

	fixedHeader := make([]byte, FixedHeaderSizeV2)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersionV2))
	binary.LittleEndian.PutUint32(fixedHeader[8:12], headerFlags(&header))
	// 0x0C-0x0F reserved, zero from make()
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixedHeader[24:32], dataSize)
	copy(fixedHeader[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	if _, err := dst.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := dst.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	pos := int64(FixedHeaderSizeV2) + int64(len(headerJSON))
	if err := writePadding(dst, pos); err != nil {
		return err
	}

	return writeTensorData(dst, names, stateDict)
}
