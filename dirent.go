// This file implements the 16-byte directory entry: name/extension,
// RIB sector pointer, and the packed attribute byte.

package mdos

import (
	"fmt"
	"strings"
)

// entryState classifies a directory entry's first byte.
type entryState uint8

const (
	// stateTerminator marks the end of the in-use portion of the
	// directory: this slot and every slot after it have never been used.
	stateTerminator entryState = iota
	stateDeleted
	stateLive
)

func classifyFirstByte(b byte) entryState {
	switch b {
	case 0x00:
		return stateTerminator
	case 0xFF:
		return stateDeleted
	default:
		return stateLive
	}
}

// DirectoryEntry is the in-memory form of one 16-byte directory slot:
//
//	offset  0- 7: name, space-padded, uppercase
//	offset  8- 9: extension, space-padded, uppercase
//	offset 10   : attribute-high (3-bit FileType in bits 0-2, flags in bits 3-7)
//	offset 11   : attribute-low (reserved, always written zero)
//	offset 12-13: RIB physical sector, big-endian
//	offset 14-15: reserved, always written zero
type DirectoryEntry struct {
	raw [directoryEntrySize]byte
}

// NewDirectoryEntryFromBytes wraps an already-read 16-byte slot.
func NewDirectoryEntryFromBytes(data [directoryEntrySize]byte) *DirectoryEntry {
	return &DirectoryEntry{raw: data}
}

// Bytes returns the entry's on-disk representation.
func (e *DirectoryEntry) Bytes() [directoryEntrySize]byte {
	return e.raw
}

// State classifies the entry's first byte.
func (e *DirectoryEntry) State() entryState {
	return classifyFirstByte(e.raw[0])
}

// IsLive reports whether the entry names a currently-existing file.
func (e *DirectoryEntry) IsLive() bool {
	return e.State() == stateLive
}

// IsTerminator reports whether this slot, and every slot after it in the
// directory, has never been written.
func (e *DirectoryEntry) IsTerminator() bool {
	return e.State() == stateTerminator
}

// Name returns the space-trimmed, uppercased base filename.
func (e *DirectoryEntry) Name() string {
	return strings.TrimRight(string(e.raw[0:8]), " ")
}

// Ext returns the space-trimmed, uppercased extension.
func (e *DirectoryEntry) Ext() string {
	return strings.TrimRight(string(e.raw[8:10]), " ")
}

// FullName returns "NAME.EXT", or just "NAME" when the extension is empty.
func (e *DirectoryEntry) FullName() string {
	ext := e.Ext()
	if ext == "" {
		return e.Name()
	}
	return fmt.Sprintf("%s.%s", e.Name(), ext)
}

// SetName writes the 8-byte name field, space-padding or truncating as
// NormalizeFilename already would have validated.
func (e *DirectoryEntry) SetName(name string) {
	var field [8]byte
	for i := range field {
		field[i] = ' '
	}
	copy(field[:], strings.ToUpper(name))
	copy(e.raw[0:8], field[:])
}

// SetExt writes the 2-byte extension field.
func (e *DirectoryEntry) SetExt(ext string) {
	var field [2]byte
	field[0], field[1] = ' ', ' '
	copy(field[:], strings.ToUpper(ext))
	copy(e.raw[8:10], field[:])
}

// RibSector returns the physical sector of this file's Record Information
// Block.
func (e *DirectoryEntry) RibSector() PSN {
	return PSN(int(e.raw[12])<<8 | int(e.raw[13]))
}

// SetRibSector sets the physical sector of this file's Record Information
// Block.
func (e *DirectoryEntry) SetRibSector(psn PSN) {
	e.raw[12] = byte(psn >> 8)
	e.raw[13] = byte(psn)
}

// FileType extracts the 3-bit type code from the attribute-high byte's low
// bits.
func (e *DirectoryEntry) FileType() FileType {
	return FileType(e.raw[10] & 0x07)
}

// SetFileType sets the 3-bit type code, leaving the attribute flag bits
// untouched.
func (e *DirectoryEntry) SetFileType(t FileType) {
	e.raw[10] = (e.raw[10] &^ 0x07) | (byte(t) & 0x07)
}

// Attributes decodes the flag bits of the attribute-high byte.
type Attributes struct {
	WriteProtected  bool
	DeleteProtected bool
	System          bool
	Contiguous      bool
	Compressed      bool
}

// Attributes decodes this entry's attribute flags.
func (e *DirectoryEntry) Attributes() Attributes {
	b := e.raw[10]
	return Attributes{
		WriteProtected:  b&attrWriteProtect != 0,
		DeleteProtected: b&attrDeleteProtect != 0,
		System:          b&attrSystem != 0,
		Contiguous:      b&attrContiguous != 0,
		Compressed:      b&attrCompressed != 0,
	}
}

// SetAttributes encodes attribute flags into the attribute-high byte,
// preserving the file-type bits.
func (e *DirectoryEntry) SetAttributes(a Attributes) {
	b := e.raw[10] & 0x07

	if a.WriteProtected == true {
		b |= attrWriteProtect
	}
	if a.DeleteProtected == true {
		b |= attrDeleteProtect
	}
	if a.System == true {
		b |= attrSystem
	}
	if a.Contiguous == true {
		b |= attrContiguous
	}
	if a.Compressed == true {
		b |= attrCompressed
	}

	e.raw[10] = b
}

// Dump prints a one-line human-readable summary of the entry's flags, in
// the style of a bit-decomposition debug helper.
func (e *DirectoryEntry) Dump() string {
	a := e.Attributes()
	var flags []string
	if a.WriteProtected == true {
		flags = append(flags, "write-protect")
	}
	if a.DeleteProtected == true {
		flags = append(flags, "delete-protect")
	}
	if a.System == true {
		flags = append(flags, "system")
	}
	if a.Contiguous == true {
		flags = append(flags, "contiguous")
	}
	if a.Compressed == true {
		flags = append(flags, "compressed")
	}

	return fmt.Sprintf("%s type=%s rib=%d flags=[%s]",
		e.FullName(), e.FileType(), e.RibSector(), strings.Join(flags, ","))
}

// markDeleted rewrites the entry's first byte to the deleted-state marker,
// leaving the rest of the slot's bytes untouched (they are never read back
// once a slot is deleted).
func (e *DirectoryEntry) markDeleted() {
	e.raw[0] = 0xFF
}
