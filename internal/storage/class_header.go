package storage

import "encoding/binary"

const classMagic = 0xCAFEBABE

// classHeaderSize covers magic, minor_version and major_version.
const classHeaderSize = 8

// ClassHeader is the fixed prefix of a class file.
type ClassHeader struct {
	MagicOK bool
	Major   int
	Minor   int
}

// ParseClassHeader decodes the first bytes of a class file. Short input or a
// wrong magic number yields a header with MagicOK false and zero versions.
func ParseClassHeader(b []byte) ClassHeader {
	if len(b) < classHeaderSize || binary.BigEndian.Uint32(b) != classMagic {
		return ClassHeader{}
	}
	return ClassHeader{
		MagicOK: true,
		Minor:   int(binary.BigEndian.Uint16(b[4:])),
		Major:   int(binary.BigEndian.Uint16(b[6:])),
	}
}
