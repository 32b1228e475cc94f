package flashee

import (
	"github.com/dsoprea/go-logging"
)

// Write stores buf under id, sequencing the bit-clear state transitions
// that make the write atomic-on-recovery. It returns a typed *Err
// (ResultIDOutOfRange or ResultSequence) for a rejected id, a wrapped
// error for a flash or chain failure, or nil on success; use WriteCode to
// recover the legacy numeric code at an FFI boundary.
func (e *Engine) Write(id VariableID, buf []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(r)
		}
	}()

	if !e.catalog.valid(id) {
		return errIDOutOfRange(id)
	}

	g := e.geometry

	primarySlot := primarySlotAddr(g.indexStartAddr, id)

	if primarySlot >= g.overwriteCountAreaAddr() {
		return errIDOutOfRange(id)
	}

	if id > 0 {
		prev, rerr := readIndexRecord(e.flash, primarySlotAddr(g.indexStartAddr, id-1))
		log.PanicIf(rerr)

		if prev.DataStatus == statusEmpty || prev.DataStatus == statusInvalid {
			return errSequence(id)
		}
	}

	dataFree, ferr := freeDataAddr(e.flash, g, e.catalog.Count)
	log.PanicIf(ferr)

	current, rerr := readIndexRecord(e.flash, primarySlot)
	log.PanicIf(rerr)

	if current.DataStatus == statusEmpty {
		// First write: land directly in the primary slot.
		err = writeRecord(e.flash, primarySlot, g.dataStartAddr, dataFree, buf)
		log.PanicIf(err)

		return nil
	}

	// Rewrite: append a new record to the overwrite chain.
	tailAddr, _, lerr := lastNotOverwritten(e.flash, g, id)
	log.PanicIf(lerr)

	owFree, oerr := overwriteFreeAddr(e.flash, g)
	log.PanicIf(oerr)

	indexRegionEnd := g.indexRegionEndAddr(g.indexStartAddr)

	if owFree+indexRecordSize > indexRegionEnd || dataFree+uint32(len(buf)) > g.dataRegionSize() {
		serr := e.swap()
		log.PanicIf(serr)

		g = e.geometry

		dataFree, ferr = freeDataAddr(e.flash, g, e.catalog.Count)
		log.PanicIf(ferr)

		tailAddr = primarySlotAddr(g.indexStartAddr, id)
		owFree = g.overwriteAddr
	}

	owBias := owFree - g.overwriteAddr

	// Advance the unary counter before the slot it accounts for is
	// programmed, so a crash between the two still recovers sanely.
	cerr := countAreaPlusOne(e.flash, g)
	log.PanicIf(cerr)

	err = writeRecord(e.flash, owFree, g.dataStartAddr, dataFree, buf)
	log.PanicIf(err)

	// The record found by lastNotOverwritten is the tail precisely because
	// its own link field still reads chainEnd; confirm that before
	// stamping over it.
	tailLink, tlerr := readUint16(e.flash, tailAddr+dataOverwriteAddrOffset)
	log.PanicIf(tlerr)

	if tailLink != chainEnd {
		return log.Errorf("flashee: tail record at 0x%x already links to 0x%x, refusing to clobber the chain", tailAddr, tailLink)
	}

	// Last: link the new record into the chain. Only after this write is
	// it reachable from a read.
	linkErr := writeUint16(e.flash, tailAddr+dataOverwriteAddrOffset, uint16(owBias))
	log.PanicIf(linkErr)

	return nil
}

// writeRecord sequences the bit-clear programs that bring one index
// record from EMPTY to VALID: status byte first, then the rest of the
// header, then the payload, then the final status.
func writeRecord(f Flash, slotAddr uint32, dataStartAddr uint32, dataOffset uint32, buf []byte) error {
	if err := writeUint16(f, slotAddr, uint16(statusInvalid)); err != nil {
		return err
	}

	rest := indexRecord{
		DataSize:          uint16(len(buf)),
		DataAddr:          uint16(dataOffset),
		DataOverwriteAddr: chainEnd,
	}

	restRaw := make([]byte, 0, 6)
	restRaw = appendUint16(restRaw, rest.DataSize)
	restRaw = appendUint16(restRaw, rest.DataAddr)
	restRaw = appendUint16(restRaw, rest.DataOverwriteAddr)

	if err := f.Program(slotAddr+2, restRaw); err != nil {
		return err
	}

	if err := writeUint16(f, slotAddr, uint16(statusHalfValid)); err != nil {
		return err
	}

	if err := f.Program(dataStartAddr+dataOffset, buf); err != nil {
		return err
	}

	return writeUint16(f, slotAddr, uint16(statusValid))
}

// appendUint16 appends v to dst in little-endian order.
func appendUint16(dst []byte, v uint16) []byte {
	return append(dst, byte(v), byte(v>>8))
}

// wrapPanic converts a recovered panic value into an error, the way every
// dsoprea-style exported entry point does.
func wrapPanic(r interface{}) error {
	if err, ok := r.(error); ok {
		return log.Wrap(err)
	}
	return log.Errorf("flashee: %v", r)
}
