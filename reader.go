package flashee

import (
	"github.com/dsoprea/go-logging"
)

// Read resolves id's current value by walking the overwrite chain if
// necessary and returns a freshly allocated copy of the payload. Use
// ReadCode to recover the legacy numeric code at an FFI boundary.
func (e *Engine) Read(id VariableID) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(r)
		}
	}()

	if !e.catalog.valid(id) {
		return nil, errIDOutOfRange(id)
	}

	g := e.geometry

	primarySlot := primarySlotAddr(g.indexStartAddr, id)

	if primarySlot >= g.overwriteCountAreaAddr() {
		return nil, errIDOutOfRange(id)
	}

	primary, rerr := readIndexRecord(e.flash, primarySlot)
	log.PanicIf(rerr)

	if primary.DataStatus == statusEmpty {
		return nil, errNotWritten(id)
	}

	var rec indexRecord
	if primary.isOverwritten() {
		_, last, lerr := lastNotOverwritten(e.flash, g, id)
		log.PanicIf(lerr)

		rec = last
	} else if primary.isLive() {
		rec = primary
	} else {
		// INVALID or HALFVALID with an empty chain: a prior write was
		// interrupted and never superseded.
		return nil, errInvalid(id)
	}

	out := make([]byte, rec.DataSize)

	err = e.flash.ReadAt(g.dataStartAddr+uint32(rec.DataAddr), out)
	log.PanicIf(err)

	return out, nil
}
