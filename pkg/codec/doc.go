// Package codec provides the fixed binary layout of the persisted record.
//
// A record is one contiguous block in non-volatile memory. Its size is fixed
// once the payload size and checksum width are chosen.
//
// # Record Format
//
//	-------------------------------------------------------
//	| magic(4) | version(1) | payload(N) | checksum(2|4)  |
//	-------------------------------------------------------
//
// Fields:
//   - magic: 32-bit sentinel identifying a formatted record (little-endian)
//   - version: 8-bit layout version of the payload
//   - payload: N opaque bytes supplied by the caller
//   - checksum: CRC-16 or CRC-32 of the preceding fields (little-endian)
//
// # Checksum Calculation
//
// The checksum is calculated over the whole encoded record with the checksum
// field set to zero:
//   - magic (4 bytes)
//   - version (1 byte)
//   - payload (N bytes)
//   - zeroed checksum field (2 or 4 bytes)
//
// Encode always computes it with the magic it was given. The commit protocol
// encodes with the true sentinel and only afterwards swaps in the complemented
// magic, so a record in the pending state carries a checksum that will verify
// once the true magic is restored.
//
// # Usage
//
//	c, err := codec.NewRecordCodec(codec.Layout{PayloadSize: 18, Width: checksum.Width16})
//	if err != nil {
//	    return err
//	}
//
//	encoded, err := c.Encode(payload, 0xEFBEADDE, 1)
//	if err != nil {
//	    return err
//	}
//
//	record, err := c.Decode(encoded)
//	if err != nil {
//	    return err // wrong length only
//	}
//
// Decode never validates. Classification lives in package record.
package codec
