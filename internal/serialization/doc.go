// Package serialization implements the .srck container used for checkpoints
// and preprocessed datasets.
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00-0x03  Magic "SRCK"
//	    0x04-0x07  Version (uint32 LE)
//	    0x08-0x0B  Flags (uint32 LE)
//	    0x0C-0x0F  Reserved
//	    0x10-0x17  JSON header size (uint64 LE)
//	    0x18-0x1F  Data section size (uint64 LE)
//	    0x20-0x3F  SHA-256 of the data section
//	  [JSON header: kind, tensor table, checkpoint metadata]
//	  [padding to a 64-byte boundary]
//	  [tensor data: float32 little-endian, in tensor-table order]
//
// Tensors are written sorted by name, so identical state produces an
// identical data section and checksum.
//
// Example usage:
//
//	header := serialization.Header{Kind: serialization.KindCheckpoint}
//	if err := serialization.WriteFile("weights-1000", header, stateDict); err != nil {
//	    return err
//	}
//
//	r, err := serialization.Open("weights-1000")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	stateDict, err := r.ReadAll()
package serialization
