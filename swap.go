package flashee

import (
	"github.com/dsoprea/go-logging"
)

// swap runs the four-state region-swap protocol: verify/erase the
// swap side if needed, then copy the live dataset across and flip which
// side is active. It is called inline from Write on exhaustion, and from
// boot recovery to finish an interrupted swap.
func (e *Engine) swap() error {
	swapStatus, err := readRegionStatus(e.flash, e.geometry.indexSwapStartAddr-regionStatusSize)
	log.PanicIf(err)

	switch swapStatus {
	case regionCopy, regionActive, regionErasing:
		if err := e.verifyAndEraseSwapSide(); err != nil {
			return err
		}

		if err := writeRegionStatus(e.flash, e.geometry.indexSwapStartAddr-regionStatusSize, regionVerified); err != nil {
			return err
		}

		fallthrough

	case regionVerified:
		return e.copyLive()

	default:
		return log.Errorf("flashee: swap side has unexpected status word (0x%x)", uint32(swapStatus))
	}
}

// verifyAndEraseSwapSide erases the swap index and data regions unless
// they're already confirmed fully erased.
func (e *Engine) verifyAndEraseSwapSide() error {
	g := e.geometry

	indexErased, err := isRegionErased(e.flash, g.indexSwapStartAddr-regionStatusSize, g.indexRegionEndAddr(g.indexSwapStartAddr))
	log.PanicIf(err)

	dataErased, err := isRegionErased(e.flash, g.dataSwapStartAddr, g.dataRegionEndAddr(g.dataSwapStartAddr))
	log.PanicIf(err)

	if !indexErased || !dataErased {
		if err := eraseRegion(e.flash, g.indexSwapStartAddr-regionStatusSize, g.indexRegionEndAddr(g.indexSwapStartAddr)); err != nil {
			return err
		}
		if err := eraseRegion(e.flash, g.dataSwapStartAddr, g.dataRegionEndAddr(g.dataSwapStartAddr)); err != nil {
			return err
		}
	}

	return nil
}

// copyLive copies the live record set from the active side to the swap
// side, then flips which side is active.
func (e *Engine) copyLive() error {
	g := e.geometry

	if err := writeRegionStatus(e.flash, g.indexSwapStartAddr-regionStatusSize, regionCopy); err != nil {
		return err
	}

	var dstDataCursor uint32

	for id := 0; id < e.catalog.Count; id++ {
		rec, err := readIndexRecord(e.flash, primarySlotAddr(g.indexStartAddr, VariableID(id)))
		log.PanicIf(err)

		if rec.DataStatus == statusEmpty {
			continue
		}

		var live indexRecord
		if rec.isOverwritten() {
			_, last, lerr := lastNotOverwritten(e.flash, g, VariableID(id))
			log.PanicIf(lerr)

			live = last
		} else if rec.isLive() {
			live = rec
		} else {
			// HALFVALID/INVALID with no successor: never committed.
			continue
		}

		dstSlot := primarySlotAddr(g.indexSwapStartAddr, VariableID(id))

		resolved := indexRecord{
			DataStatus:        statusValid,
			DataSize:          live.DataSize,
			DataAddr:          uint16(dstDataCursor),
			DataOverwriteAddr: chainEnd,
		}

		if err := writeResolvedRecord(e.flash, dstSlot, resolved); err != nil {
			return err
		}

		payload := make([]byte, live.DataSize)

		err = e.flash.ReadAt(g.dataStartAddr+uint32(live.DataAddr), payload)
		log.PanicIf(err)

		err = e.flash.Program(g.dataSwapStartAddr+dstDataCursor, payload)
		log.PanicIf(err)

		dstDataCursor += uint32(live.DataSize)
	}

	g.swapSides()
	e.geometry = g

	if err := writeRegionStatus(e.flash, g.indexStartAddr-regionStatusSize, regionActive); err != nil {
		return err
	}

	// The old side's status word goes from ACTIVE back to ERASING (all
	// ones) through the erase below; programming that value over ACTIVE
	// would set cleared bits, which a flash program cannot do.
	if err := eraseRegion(e.flash, g.indexSwapStartAddr-regionStatusSize, g.indexRegionEndAddr(g.indexSwapStartAddr)); err != nil {
		return err
	}
	if err := eraseRegion(e.flash, g.dataSwapStartAddr, g.dataRegionEndAddr(g.dataSwapStartAddr)); err != nil {
		return err
	}

	return nil
}

// writeResolvedRecord programs a full already-resolved index record in one
// pass at the destination slot during a swap copy — the destination has
// just been erased, so there's no crash-recovery ordering to preserve
// here the way writeRecord's EMPTY→VALID walk has to.
func writeResolvedRecord(f Flash, addr uint32, rec indexRecord) error {
	raw, err := encodeIndexRecord(rec)
	log.PanicIf(err)

	return f.Program(addr, raw)
}

// isRegionErased scans [start, end) in 4-byte words for anything other
// than 0xFFFFFFFF.
func isRegionErased(f Flash, start, end uint32) (bool, error) {
	for addr := start; addr < end; addr += 4 {
		v, err := readUint32(f, addr)
		if err != nil {
			return false, err
		}
		if v != 0xFFFFFFFF {
			return false, nil
		}
	}
	return true, nil
}

// eraseRegion erases every sector between [start, end).
func eraseRegion(f Flash, start, end uint32) error {
	sectorSize := f.SectorSize()

	for addr := start; addr < end; addr += sectorSize {
		if err := f.EraseSector(addr); err != nil {
			return err
		}
	}
	return nil
}
