package flashee

import (
	"github.com/dsoprea/go-logging"
)

// sectorsToBytes converts a sector count to a byte count given sectorSize
// (the original source's SECTORS(x) macro).
func sectorsToBytes(sectors uint16, sectorSize uint32) uint32 {
	return uint32(sectors) * sectorSize
}

// blocksToBytes converts a block count to a byte count given
// blockSectorCount and sectorSize (the original source's BLOCKS(x) macro).
func blocksToBytes(blocks uint16, blockSectorCount uint16, sectorSize uint32) uint32 {
	return uint32(blocks) * uint32(blockSectorCount) * sectorSize
}

// alignUp4 rounds n up to the next multiple of 4.
func alignUp4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// regionGeometry is the set of static layout parameters for one side's
// index and data regions, recomputed at Init and at every swap:
// overwriteAddr must never be computed once and cached across a swap,
// since a swap changes which side is active.
type regionGeometry struct {
	sectorSize uint32

	indexStartAddr     uint32 // index array base = region base + 4
	indexSwapStartAddr uint32

	indexRegionSectors uint16
	indexAreaSectors   uint16

	overwriteCountAreaSize uint32 // bytes, 4-aligned
	overwriteAddr          uint32 // base of overwrite sub-region, active side

	dataStartAddr     uint32
	dataSwapStartAddr uint32
	dataRegionSectors uint16
}

// computeGeometry validates and derives a regionGeometry from the
// user-supplied base addresses and sector counts.
func computeGeometry(
	sectorSize uint32,
	indexStart, indexSwapStart uint32,
	indexRegionSectors, indexAreaSectors uint16,
	dataStart, dataSwapStart uint32,
	dataRegionSectors uint16,
	recordCount int,
) (g regionGeometry, err error) {

	if indexAreaSectors >= indexRegionSectors {
		return g, log.Errorf("flashee: indexAreaSectors (%d) must be < indexRegionSectors (%d)", indexAreaSectors, indexRegionSectors)
	}

	primaryIndexBytes := uint32(recordCount) * indexRecordSize
	if primaryIndexBytes > sectorsToBytes(indexAreaSectors, sectorSize) {
		return g, log.Errorf(
			"flashee: primary index array (%d bytes for %d records) does not fit in indexAreaSectors (%d sectors)",
			primaryIndexBytes, recordCount, indexAreaSectors)
	}

	g.sectorSize = sectorSize
	g.indexRegionSectors = indexRegionSectors
	g.indexAreaSectors = indexAreaSectors
	g.dataRegionSectors = dataRegionSectors

	g.indexStartAddr = indexStart + regionStatusSize
	g.indexSwapStartAddr = indexSwapStart + regionStatusSize

	overwriteSlots := sectorsToBytes(indexRegionSectors-indexAreaSectors, sectorSize) / indexRecordSize
	g.overwriteCountAreaSize = alignUp4(ceilDiv(overwriteSlots, 8))

	g.overwriteAddr = recomputeOverwriteAddr(g.indexStartAddr, indexAreaSectors, sectorSize, g.overwriteCountAreaSize)

	g.dataStartAddr = dataStart
	g.dataSwapStartAddr = dataSwapStart

	return g, nil
}

// recomputeOverwriteAddr derives overwriteAddr from the *current*
// indexStartAddr. It must be called again every time indexStartAddr
// changes (Init, and every swap) — the original source cached this value
// across a region swap, which is wrong once the active side changes.
func recomputeOverwriteAddr(indexStartAddr uint32, indexAreaSectors uint16, sectorSize uint32, overwriteCountAreaSize uint32) uint32 {
	return indexStartAddr + sectorsToBytes(indexAreaSectors, sectorSize) + overwriteCountAreaSize
}

// ceilDiv divides n by d, rounding up.
func ceilDiv(n, d uint32) uint32 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}

// indexRegionEndAddr returns the address just past this side's index
// region, including the 4-byte status-word header.
func (g regionGeometry) indexRegionEndAddr(base uint32) uint32 {
	return base - regionStatusSize + sectorsToBytes(g.indexRegionSectors, g.sectorSize)
}

// dataRegionEndAddr returns the address just past this side's data region.
func (g regionGeometry) dataRegionEndAddr(base uint32) uint32 {
	return base + sectorsToBytes(g.dataRegionSectors, g.sectorSize)
}

// dataRegionSize returns the data region's size in bytes.
func (g regionGeometry) dataRegionSize() uint32 {
	return sectorsToBytes(g.dataRegionSectors, g.sectorSize)
}

// overwriteCountAreaAddr returns the base address of the overwrite
// counter bitmap, immediately preceding the overwrite sub-region.
func (g regionGeometry) overwriteCountAreaAddr() uint32 {
	return g.overwriteAddr - g.overwriteCountAreaSize
}

// swapSides exchanges the active/swap roles in place and recomputes
// overwriteAddr against the new indexStartAddr.
func (g *regionGeometry) swapSides() {
	g.indexStartAddr, g.indexSwapStartAddr = g.indexSwapStartAddr, g.indexStartAddr
	g.dataStartAddr, g.dataSwapStartAddr = g.dataSwapStartAddr, g.dataStartAddr
	g.overwriteAddr = recomputeOverwriteAddr(g.indexStartAddr, g.indexAreaSectors, g.sectorSize, g.overwriteCountAreaSize)
}
