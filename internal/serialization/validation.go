package serialization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/superres/internal/tensor"
)

// Resource limits applied to untrusted containers.
const (
	MaxHeaderSize    = 100 * 1024 * 1024
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict checks names, shapes and the full offset table.
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and shapes only.
	ValidationNormal
	// ValidationNone skips validation. Use only with trusted input.
	ValidationNone
)

// ValidateTensorOffsets rejects negative, out-of-bounds and overlapping regions.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	sorted := make([]TensorMeta, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, t := range sorted {
		if t.Offset < 0 || t.Size < 0 {
			return &HeaderError{
				Check:   "negative_offset",
				Tensors: []string{t.Name},
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		}
		if t.Offset+t.Size > dataSize {
			return &HeaderError{
				Check:   "out_of_bounds",
				Tensors: []string{t.Name},
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
			}
		}
		if i < len(sorted)-1 {
			next := sorted[i+1]
			if t.Offset+t.Size > next.Offset {
				return &HeaderError{
					Check:   "offset_overlap",
					Tensors: []string{t.Name, next.Name},
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName rejects empty, oversized and path-like names.
// Dotted names such as "generator.conv.weight" are allowed.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &HeaderError{Check: "invalid_name", Details: "empty name"}
	case len(name) > MaxTensorNameLen:
		return &HeaderError{
			Check:   "name_too_long",
			Tensors: []string{name},
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.Contains(name, ".."):
		return &HeaderError{Check: "invalid_name", Tensors: []string{name}, Details: "contains '..'"}
	case strings.ContainsAny(name, "/\\"):
		return &HeaderError{Check: "invalid_name", Tensors: []string{name}, Details: "contains path separator"}
	case strings.Contains(name, "\x00"):
		return &HeaderError{Check: "invalid_name", Tensors: []string{name}, Details: "contains null byte"}
	}
	return nil
}

// ValidateHeader checks a decoded header against the data section size.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if h.Kind != KindCheckpoint && h.Kind != KindDataset {
		return &HeaderError{Check: "invalid_kind", Details: fmt.Sprintf("unknown kind %q", h.Kind)}
	}
	if len(h.Tensors) > MaxTensorCount {
		return &HeaderError{
			Check:   "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	seen := make(map[string]struct{}, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return &HeaderError{Check: "duplicate_name", Tensors: []string{t.Name}}
		}
		seen[t.Name] = struct{}{}

		shape := tensor.Shape(t.Shape)
		if err := shape.Validate(); err != nil {
			return &HeaderError{Check: "invalid_shape", Tensors: []string{t.Name}, Details: err.Error()}
		}
		if int64(shape.NumElements())*4 != t.Size {
			return &HeaderError{
				Check:   "size_mismatch",
				Tensors: []string{t.Name},
				Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", t.Shape, shape.NumElements()*4, t.Size),
			}
		}
	}

	if level == ValidationStrict {
		return ValidateTensorOffsets(h.Tensors, dataSize)
	}
	return nil
}
