package bincodec

import (
	"fmt"

	"github.com/hltanaka/fiorefs/internal/dirtypes"
	"github.com/hltanaka/fiorefs/internal/fserrors"
)

func encodeName(name string, width int) []byte {
	buf := make([]byte, width)
	n := dirtypes.TruncateName(name)
	copy(buf, n)
	// buf is zero-initialized, so the byte after the copied bytes is
	// already the explicit NUL terminator spec.md §3 requires.
	return buf
}

func decodeName(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

// EncodeEntry serializes e into exactly dirtypes.EntrySize bytes.
func EncodeEntry(e *dirtypes.Entry) []byte {
	buf := make([]byte, dirtypes.EntrySize)
	endian.PutUint16(buf[0:2], e.RecLen)
	buf[2] = byte(e.FileType)
	buf[3] = byte(e.Space)
	endian.PutUint64(buf[4:12], e.EntryStartLocation)
	endian.PutUint64(buf[12:20], e.Size)
	copy(buf[20:20+dirtypes.MaxName], encodeName(e.Name, dirtypes.MaxName))
	return buf
}

// DecodeEntry parses one Entry record from data.
func DecodeEntry(data []byte) (*dirtypes.Entry, error) {
	if len(data) < dirtypes.EntrySize {
		return nil, fmt.Errorf("bincodec: data too small for entry: got %d want %d: %w", len(data), dirtypes.EntrySize, fserrors.ErrInvalidArgument)
	}
	e := &dirtypes.Entry{
		RecLen:             endian.Uint16(data[0:2]),
		FileType:           dirtypes.FileType(int8(data[2])),
		Space:              dirtypes.Space(data[3]),
		EntryStartLocation: endian.Uint64(data[4:12]),
		Size:               endian.Uint64(data[12:20]),
		Name:               decodeName(data[20 : 20+dirtypes.MaxName]),
	}
	return e, nil
}

// EncodeDirectory serializes d into exactly dirtypes.DirectorySize bytes.
func EncodeDirectory(d *dirtypes.Directory) []byte {
	buf := make([]byte, dirtypes.DirectorySize)
	off := 0
	copy(buf[off:off+dirtypes.MaxName], encodeName(d.Name, dirtypes.MaxName))
	off += dirtypes.MaxName
	endian.PutUint64(buf[off:off+8], d.DirectoryStartLocation)
	off += 8
	endian.PutUint32(buf[off:off+4], d.RecLen)
	off += 4
	endian.PutUint32(buf[off:off+4], d.DirEntryAmount)
	off += 4
	for i := range d.Entries {
		copy(buf[off:off+dirtypes.EntrySize], EncodeEntry(&d.Entries[i]))
		off += dirtypes.EntrySize
	}
	return buf
}

// DecodeDirectory parses a Directory record from data, which must be
// at least dirtypes.DirectorySize bytes.
func DecodeDirectory(data []byte) (*dirtypes.Directory, error) {
	if len(data) < dirtypes.DirectorySize {
		return nil, fmt.Errorf("bincodec: data too small for directory: got %d want %d: %w", len(data), dirtypes.DirectorySize, fserrors.ErrInvalidArgument)
	}
	d := &dirtypes.Directory{}
	off := 0
	d.Name = decodeName(data[off : off+dirtypes.MaxName])
	off += dirtypes.MaxName
	d.DirectoryStartLocation = endian.Uint64(data[off : off+8])
	off += 8
	d.RecLen = endian.Uint32(data[off : off+4])
	off += 4
	d.DirEntryAmount = endian.Uint32(data[off : off+4])
	off += 4
	for i := range d.Entries {
		e, err := DecodeEntry(data[off : off+dirtypes.EntrySize])
		if err != nil {
			return nil, err
		}
		d.Entries[i] = *e
		off += dirtypes.EntrySize
	}
	return d, nil
}
