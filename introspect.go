package flashee

import (
	"github.com/dsoprea/go-logging"
)

// RecordSnapshot is a read-only view of one on-flash index record, used by
// verify/ and the dump CLI tools — it never exposes the unexported
// indexRecord/regionStatus wire types outside the package.
type RecordSnapshot struct {
	Status            string
	DataSize          uint16
	DataAddr          uint16
	DataOverwriteAddr uint16 // raw field; 0xFFFF means "chain end"
}

func snapshotOf(ir indexRecord) RecordSnapshot {
	return RecordSnapshot{
		Status:            ir.DataStatus.String(),
		DataSize:          ir.DataSize,
		DataAddr:          ir.DataAddr,
		DataOverwriteAddr: ir.DataOverwriteAddr,
	}
}

// Snapshot is a point-in-time, read-only view of the engine's active side,
// sufficient to evaluate consistency properties without exposing any
// unexported type.
type Snapshot struct {
	ActiveStatus string
	SwapStatus   string

	PrimaryRecords []RecordSnapshot // one per catalog id, in id order

	OverwriteRecords []RecordSnapshot // occupied overwrite slots, in order

	OverwriteCounterZeroBits uint32 // count of cleared bits in the bitmap
	OverwriteSlotCapacity    uint32 // bits in the counter bitmap, one per slot
}

// Inspect reads the whole active-side index area and returns a Snapshot.
func (e *Engine) Inspect() (snap Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(r)
		}
	}()

	g := e.geometry

	activeStatus, serr := readRegionStatus(e.flash, g.indexStartAddr-regionStatusSize)
	log.PanicIf(serr)

	swapStatus, serr := readRegionStatus(e.flash, g.indexSwapStartAddr-regionStatusSize)
	log.PanicIf(serr)

	snap.ActiveStatus = activeStatus.String()
	snap.SwapStatus = swapStatus.String()

	snap.PrimaryRecords = make([]RecordSnapshot, e.catalog.Count)
	for id := 0; id < e.catalog.Count; id++ {
		rec, rerr := readIndexRecord(e.flash, primarySlotAddr(g.indexStartAddr, VariableID(id)))
		log.PanicIf(rerr)

		snap.PrimaryRecords[id] = snapshotOf(rec)
	}

	slotCount, cerr := overwriteSlotCount(e.flash, g)
	log.PanicIf(cerr)

	snap.OverwriteRecords = make([]RecordSnapshot, 0, slotCount)
	for i := uint32(0); i < slotCount; i++ {
		rec, rerr := readIndexRecord(e.flash, g.overwriteAddr+i*indexRecordSize)
		log.PanicIf(rerr)

		snap.OverwriteRecords = append(snap.OverwriteRecords, snapshotOf(rec))
	}

	snap.OverwriteCounterZeroBits = slotCount
	snap.OverwriteSlotCapacity = g.overwriteCountAreaSize * 8

	return snap, nil
}
