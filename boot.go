package flashee

import (
	"github.com/dsoprea/go-logging"
)

// mount reads both region-status words and dispatches to normal mount,
// swap resumption, first-format, or reset-to-format. The dispatch table
// below is authoritative and disjoint by construction — unlike the
// original source, there is no accidental fallthrough between the ERASING
// branch and the COPY/VERIFIED branch.
func (e *Engine) mount(cfg Config) error {
	indexStatus, err := readRegionStatus(e.flash, cfg.IndexStart)
	log.PanicIf(err)

	swapStatus, err := readRegionStatus(e.flash, cfg.IndexSwapStart)
	log.PanicIf(err)

	switch {
	case indexStatus == regionActive && swapStatus == regionErasing:
		e.installGeometry(cfg, false)
		return nil

	case indexStatus == regionActive && (swapStatus == regionCopy || swapStatus == regionVerified):
		e.installGeometry(cfg, false)
		return e.swap()

	case indexStatus == regionErasing && swapStatus == regionErasing:
		e.installGeometry(cfg, false)
		return e.firstFormat()

	case indexStatus == regionErasing && swapStatus == regionActive:
		e.installGeometry(cfg, true)
		return nil

	case (indexStatus == regionCopy || indexStatus == regionVerified) && swapStatus == regionActive:
		e.installGeometry(cfg, true)
		return e.swap()

	default:
		e.installGeometry(cfg, false)
		return e.resetToFormat()
	}
}

// installGeometry computes geometry for this Config, installing it with
// active/swap swapped when swapped is true (the "active lives on the
// mirror side" cases of the mount dispatch above).
func (e *Engine) installGeometry(cfg Config, swapped bool) {
	indexStart, indexSwapStart := cfg.IndexStart, cfg.IndexSwapStart
	dataStart, dataSwapStart := cfg.DataStart, cfg.DataSwapStart

	if swapped {
		indexStart, indexSwapStart = indexSwapStart, indexStart
		dataStart, dataSwapStart = dataSwapStart, dataStart
	}

	g, err := computeGeometry(
		cfg.SectorSize,
		indexStart, indexSwapStart,
		cfg.IndexRegionSectors, cfg.IndexAreaSectors,
		dataStart, dataSwapStart,
		cfg.DataRegionSectors,
		e.catalog.Count,
	)
	log.PanicIf(err)

	e.geometry = g
}

// firstFormat erases all four sub-regions, verifies erasure, and stamps
// the active side ACTIVE.
func (e *Engine) firstFormat() error {
	g := e.geometry

	if err := eraseRegion(e.flash, g.indexStartAddr-regionStatusSize, g.indexRegionEndAddr(g.indexStartAddr)); err != nil {
		return err
	}
	if err := eraseRegion(e.flash, g.dataStartAddr, g.dataRegionEndAddr(g.dataStartAddr)); err != nil {
		return err
	}
	if err := eraseRegion(e.flash, g.indexSwapStartAddr-regionStatusSize, g.indexRegionEndAddr(g.indexSwapStartAddr)); err != nil {
		return err
	}
	if err := eraseRegion(e.flash, g.dataSwapStartAddr, g.dataRegionEndAddr(g.dataSwapStartAddr)); err != nil {
		return err
	}

	indexErased, err := isRegionErased(e.flash, g.indexStartAddr-regionStatusSize, g.indexRegionEndAddr(g.indexStartAddr))
	log.PanicIf(err)

	dataErased, err := isRegionErased(e.flash, g.dataStartAddr, g.dataRegionEndAddr(g.dataStartAddr))
	log.PanicIf(err)

	if !indexErased || !dataErased {
		return log.Errorf("flashee: active side failed to verify as erased after format")
	}

	return writeRegionStatus(e.flash, g.indexStartAddr-regionStatusSize, regionActive)
}

// resetToFormat handles any region-status pair that doesn't fit a known
// recovery case: treat it like first use and re-format everything.
func (e *Engine) resetToFormat() error {
	return e.firstFormat()
}
