package serialization

import (
	"crypto/sha256"
	"time"
)

// Format constants.
const (
	MagicBytes      = "SRCK"
	FormatVersion   = 1
	HeaderAlignment = 64 // Tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64
	ChecksumSize    = 32
	ChecksumOffset  = 0x20
)

// DTypeFloat32 is the only element type stored in the container.
const DTypeFloat32 = "float32"

// Kinds of container.
const (
	KindCheckpoint = "Checkpoint"
	KindDataset    = "Dataset"
)

// Flags stored in the fixed header.
const (
	FlagHasOptimizer  uint32 = 1 << 1 // optimizer state included
	FlagHasMetadata   uint32 = 1 << 2 // custom metadata included
	FlagHasCheckpoint uint32 = 1 << 3 // checkpoint metadata included
)

// Header represents the JSON header of a container.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Kind          string            `json:"kind"`
	CreatedAt     time.Time         `json:"created_at"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Checkpoint    *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// CheckpointMeta contains the training state recorded with a checkpoint.
type CheckpointMeta struct {
	Iteration       int64          `json:"iteration"`
	Epoch           int            `json:"epoch"`
	RunName         string         `json:"run_name,omitempty"`
	ContentLoss     string         `json:"content_loss,omitempty"`
	GraphDigest     string         `json:"graph_digest,omitempty"`
	OptimizerType   string         `json:"optimizer_type,omitempty"`
	OptimizerConfig map[string]any `json:"optimizer_config,omitempty"`
	TrainingMeta    map[string]any `json:"training_meta,omitempty"`
}

// TensorMeta describes a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// ComputeChecksum computes the SHA-256 checksum of data.
func ComputeChecksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

// alignedDataOffset returns where the data section starts for a JSON header of headerSize bytes.
func alignedDataOffset(headerSize int64) int64 {
	pos := int64(FixedHeaderSize) + headerSize
	return pos + (HeaderAlignment-(pos%HeaderAlignment))%HeaderAlignment
}
