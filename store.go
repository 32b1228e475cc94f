package flashee

import (
	"github.com/dsoprea/go-logging"
)

// primarySlotAddr returns the address of id's primary index-record slot.
func primarySlotAddr(indexStartAddr uint32, id VariableID) uint32 {
	return indexStartAddr + uint32(id)*indexRecordSize
}

// lastNotOverwritten walks the overwrite chain for id starting at the
// primary slot and returns the address of the last record reached.
// If the chain is empty, that address is the primary slot itself.
func lastNotOverwritten(f Flash, g regionGeometry, id VariableID) (addr uint32, rec indexRecord, err error) {
	addr = primarySlotAddr(g.indexStartAddr, id)

	rec, err = readIndexRecord(f, addr)
	log.PanicIf(err)

	// The chain cannot legitimately exceed one hop per possible overwrite
	// slot; treat more as corruption rather than spin forever.
	maxHops := g.overwriteCountAreaSize * 8

	for hops := uint32(0); rec.isOverwritten(); hops++ {
		if hops >= maxHops {
			return addr, rec, log.Errorf("flashee: overwrite chain for id (%d) exceeds %d hops, suspected cycle", id, maxHops)
		}

		addr = g.overwriteAddr + uint32(rec.DataOverwriteAddr)

		rec, err = readIndexRecord(f, addr)
		log.PanicIf(err)
	}

	return addr, rec, nil
}

// freeDataAddr returns the lowest offset in the data region known to be
// unused.
func freeDataAddr(f Flash, g regionGeometry, recordCount int) (uint32, error) {
	var freeAddr uint32

	// Scan the primary index backwards from the last slot: the sequence
	// constraint on ids guarantees the first VALID/HALFVALID slot found
	// gives the primary-side maximum.
	if recordCount > 0 {
		addr := primarySlotAddr(g.indexStartAddr, VariableID(recordCount-1))

		for {
			rec, err := readIndexRecord(f, addr)
			log.PanicIf(err)

			if rec.occupiesDataBytes() {
				freeAddr = uint32(rec.DataAddr) + uint32(rec.DataSize)
				break
			}

			if addr == g.indexStartAddr {
				break
			}

			addr -= indexRecordSize
		}
	}

	// Scan the overwrite sub-region backwards from the last occupied slot.
	lastFree, err := overwriteFreeAddr(f, g)
	if err != nil {
		return 0, err
	}

	if lastFree != g.overwriteAddr {
		addr := lastFree - indexRecordSize

		for addr >= g.overwriteAddr {
			rec, err := readIndexRecord(f, addr)
			log.PanicIf(err)

			if rec.occupiesDataBytes() {
				if candidate := uint32(rec.DataAddr) + uint32(rec.DataSize); candidate > freeAddr {
					freeAddr = candidate
				}
				break
			}

			if addr == g.overwriteAddr {
				break
			}

			addr -= indexRecordSize
		}
	}

	return freeAddr, nil
}
