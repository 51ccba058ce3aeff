// Package record keeps one fixed-size record crash safe on a byte-addressable
// non-volatile device.
//
// A record read from the device is in one of three states:
//
//	Formatted      magic, version and checksum all match
//	PendingCommit  magic holds the complement of the sentinel
//	Corrupt        anything else, including erased cells
//
// Save and Format commit in two phases. The whole record is first written
// with the complemented magic, so a torn write can only leave PendingCommit
// or Corrupt behind. The true magic is then written on its own, and that is
// the only write that can make the record Formatted. After a power loss the
// record therefore holds either the old payload, the new payload, or a state
// that reports no data until Format is called.
//
// Lock writes the complemented magic over a Formatted record and Unlock
// restores it. A locked record and an interrupted commit both read as
// PendingCommit and cannot be told apart.
//
// Manager adds a typed buffer over a Block through a PayloadCodec.
package record
