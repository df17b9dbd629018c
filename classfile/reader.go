package classfile

import (
	"encoding/binary"
	"fmt"
)

func readU1(buf []byte, off int) (uint8, error) {
	if off < 0 || off >= len(buf) {
		return 0, fmt.Errorf("read u1 at offset %d of %d: %w", off, len(buf), ErrTruncated)
	}
	return buf[off], nil
}

func readShort(buf []byte, off int) (int16, error) {
	v, err := readUnsignedShort(buf, off)
	return int16(v), err
}

func readUnsignedShort(buf []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(buf) {
		return 0, fmt.Errorf("read u2 at offset %d of %d: %w", off, len(buf), ErrTruncated)
	}
	return binary.BigEndian.Uint16(buf[off:]), nil
}

// MajorVersion returns the class-file major version stored in the header.
func MajorVersion(buf []byte) (uint16, error) {
	return readUnsignedShort(buf, 6)
}
