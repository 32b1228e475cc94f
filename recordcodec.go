package flashee

import (
	"encoding/binary"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

// defaultEncoding is the on-flash byte order: every multi-byte field is
// little-endian regardless of host architecture.
var defaultEncoding = binary.LittleEndian

const (
	// indexRecordSize is the on-flash size of an indexRecord.
	indexRecordSize = 16

	// regionStatusSize is the on-flash size of a regionStatus word.
	regionStatusSize = 4

	// chainEnd is the dataOverwriteAddr sentinel meaning "end of chain".
	chainEnd = uint16(0xFFFF)

	// dataOverwriteAddrOffset is the byte offset of the DataOverwriteAddr
	// field within one index record — the address a chain-link stamp
	// programs. It must track the packed field layout below, not the
	// 16-byte slot stride.
	dataOverwriteAddrOffset = 6
)

// dataStatus is the per-record state enum. Every legal transition
// only clears bits, so status values compare as unsigned 16-bit integers
// in a strictly decreasing chain: EMPTY > INVALID > HALFVALID > VALID.
type dataStatus uint16

const (
	statusEmpty     dataStatus = 0xFFFF
	statusInvalid   dataStatus = 0x00FF
	statusHalfValid dataStatus = 0x000F
	statusValid     dataStatus = 0x0000
)

func (s dataStatus) String() string {
	switch s {
	case statusEmpty:
		return "EMPTY"
	case statusInvalid:
		return "INVALID"
	case statusHalfValid:
		return "HALFVALID"
	case statusValid:
		return "VALID"
	default:
		return "UNKNOWN"
	}
}

// indexRecord is the 16-byte index-record wire layout. Field order and
// width are load-bearing: they are the on-flash format. The four header
// fields occupy the first 8 bytes; Reserved pads the record out to the
// 16-byte slot stride used by the index array, the overwrite sub-region,
// and the chain-link arithmetic in store.go/writer.go.
type indexRecord struct {
	DataStatus        dataStatus
	DataSize          uint16
	DataAddr          uint16
	DataOverwriteAddr uint16
	Reserved          [8]byte
}

// isOccupied reports whether the record has ever been written (not EMPTY).
func (ir indexRecord) isOccupied() bool {
	return ir.DataStatus != statusEmpty
}

// isOverwritten reports whether the chain continues past this record.
func (ir indexRecord) isOverwritten() bool {
	return ir.DataOverwriteAddr != chainEnd
}

// isLive reports whether this record's own payload (not a successor's) is
// the value a read should return: status VALID.
func (ir indexRecord) isLive() bool {
	return ir.DataStatus == statusValid
}

// occupiesDataBytes reports whether this record's payload bytes should be
// counted as "reachable" during free-cursor computation: VALID or
// HALFVALID, i.e. it occupies data-region bytes even if not fully
// committed.
func (ir indexRecord) occupiesDataBytes() bool {
	return ir.DataStatus == statusValid || ir.DataStatus == statusHalfValid
}

// decodeIndexRecord unpacks a 16-byte buffer into an indexRecord.
func decodeIndexRecord(raw []byte) (ir indexRecord, err error) {
	if len(raw) != indexRecordSize {
		return ir, log.Errorf("flashee: index record buffer must be %d bytes, got %d", indexRecordSize, len(raw))
	}

	err = restruct.Unpack(raw, defaultEncoding, &ir)
	log.PanicIf(err)

	return ir, nil
}

// encodeIndexRecord packs an indexRecord into its 16-byte wire form.
func encodeIndexRecord(ir indexRecord) (raw []byte, err error) {
	raw, err = restruct.Pack(defaultEncoding, &ir)
	log.PanicIf(err)

	return raw, nil
}

// readIndexRecord reads and decodes the 16-byte record at addr.
func readIndexRecord(f Flash, addr uint32) (ir indexRecord, err error) {
	raw := make([]byte, indexRecordSize)

	err = f.ReadAt(addr, raw)
	log.PanicIf(err)

	ir, err = decodeIndexRecord(raw)
	log.PanicIf(err)

	return ir, nil
}

// regionStatus is the 4-byte region-status word. Like dataStatus,
// every legal transition only clears bits.
type regionStatus uint32

const (
	regionErasing  regionStatus = 0xFFFFFFFF
	regionVerified regionStatus = 0x00FFFFFF
	regionCopy     regionStatus = 0x0000FFFF
	regionActive   regionStatus = 0x000000FF
)

func (s regionStatus) String() string {
	switch s {
	case regionErasing:
		return "ERASING"
	case regionVerified:
		return "VERIFIED"
	case regionCopy:
		return "COPY"
	case regionActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// readRegionStatus reads the 4-byte status word at the start of an index
// region (regionAddr, not indexStartAddr — the status word precedes it).
func readRegionStatus(f Flash, regionAddr uint32) (regionStatus, error) {
	v, err := readUint32(f, regionAddr)
	if err != nil {
		return 0, err
	}
	return regionStatus(v), nil
}

// writeRegionStatus programs the 4-byte status word at regionAddr.
func writeRegionStatus(f Flash, regionAddr uint32, s regionStatus) error {
	return writeUint32(f, regionAddr, uint32(s))
}
