package dataset

import (
	"iter"

	"github.com/born-ml/superres/internal/fault"
)

// Cursor yields the batch offsets of one pass over a dataset: 0, B, 2B, ...
// while offset <= L-B. The trailing partial batch is dropped. There is no
// shuffling or wraparound; each epoch builds a new Cursor.
type Cursor struct {
	length int
	batch  int
}

// NewCursor validates the batch size against the dataset length.
func NewCursor(length, batch int) (*Cursor, error) {
	if batch <= 0 {
		return nil, fault.Configf("batch size must be positive, got %d", batch)
	}
	if batch > length {
		return nil, fault.Configf("batch size %d exceeds dataset length %d", batch, length)
	}
	return &Cursor{length: length, batch: batch}, nil
}

// Count returns the number of batches per pass: floor((L-B)/B)+1.
func (c *Cursor) Count() int {
	return (c.length-c.batch)/c.batch + 1
}

// BatchSize returns B.
func (c *Cursor) BatchSize() int {
	return c.batch
}

// Offsets iterates the batch start offsets in increasing order.
func (c *Cursor) Offsets() iter.Seq[int] {
	return func(yield func(int) bool) {
		for off := 0; off <= c.length-c.batch; off += c.batch {
			if !yield(off) {
				return
			}
		}
	}
}
