package flashee

// Flash is the capability an embedder supplies. It wraps the
// three primitives the core consumes; the driver itself — sector erase,
// programmed byte/page write, raw read — is out of scope here and
// trusted: the core never retries or second-guesses it.
//
// All offsets are byte offsets from the start of the flash device.
type Flash interface {
	// Program writes len(src) bytes at addr. Every written bit may only
	// clear an existing 1 to a 0; writing a 0 over a 0 is idempotent,
	// writing a 1 over a 0 is undefined and the core never attempts it.
	// A buffering implementation must flush before returning.
	Program(addr uint32, src []byte) error

	// ReadAt reads len(dst) bytes starting at addr into dst.
	ReadAt(addr uint32, dst []byte) error

	// EraseSector erases the SectorSize-aligned sector containing addr to
	// all-0xFF.
	EraseSector(addr uint32) error

	// SectorSize returns the erase granularity in bytes.
	SectorSize() uint32
}

// readUint32 reads a little-endian uint32 at addr; the wire format is fixed
// little-endian regardless of host byte order.
func readUint32(f Flash, addr uint32) (uint32, error) {
	var buf [4]byte
	if err := f.ReadAt(addr, buf[:]); err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

// writeUint32 programs a little-endian uint32 at addr.
func writeUint32(f Flash, addr uint32, v uint32) error {
	buf := [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	return f.Program(addr, buf[:])
}

// readUint16 reads a little-endian uint16 at addr.
func readUint16(f Flash, addr uint32) (uint16, error) {
	var buf [2]byte
	if err := f.ReadAt(addr, buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

// writeUint16 programs a little-endian uint16 at addr.
func writeUint16(f Flash, addr uint32, v uint16) error {
	buf := [2]byte{byte(v), byte(v >> 8)}
	return f.Program(addr, buf[:])
}
