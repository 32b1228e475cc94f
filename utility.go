package flashee

import (
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/dustin/go-humanize"
)

// RegionReport is a point-in-time snapshot of one side's layout and usage,
// the way go-exfat's BootSectorHeader.Dump() summarizes a parsed header —
// here there's no static fixture to dump, so the engine builds the report
// itself from the currently-installed geometry.
type RegionReport struct {
	Active bool

	IndexStartAddr uint32
	DataStartAddr  uint32

	IndexRegionSize datasize.ByteSize
	DataRegionSize  datasize.ByteSize

	OverwriteCountAreaSize datasize.ByteSize
	OverwriteSlotsInUse    uint32
}

// Report builds a RegionReport for the engine's currently-active side.
func (e *Engine) Report() (RegionReport, error) {
	g := e.geometry

	slotsInUse, err := overwriteSlotCount(e.flash, g)
	if err != nil {
		return RegionReport{}, err
	}

	return RegionReport{
		Active:                 true,
		IndexStartAddr:         g.indexStartAddr,
		DataStartAddr:          g.dataStartAddr,
		IndexRegionSize:        datasize.ByteSize(sectorsToBytes(g.indexRegionSectors, g.sectorSize)),
		DataRegionSize:         datasize.ByteSize(g.dataRegionSize()),
		OverwriteCountAreaSize: datasize.ByteSize(g.overwriteCountAreaSize),
		OverwriteSlotsInUse:    slotsInUse,
	}, nil
}

// String renders a RegionReport the way go-exfat's Dump() helpers print a
// parsed structure: every field on a single line, human-friendly sizes via
// go-humanize/datasize rather than raw byte counts.
func (r RegionReport) String() string {
	return fmt.Sprintf(
		"RegionReport<ACTIVE=[%v] INDEX-START=(0x%x) DATA-START=(0x%x) INDEX-REGION=(%s) DATA-REGION=(%s) OVERWRITE-COUNTER=(%s) OVERWRITE-SLOTS-IN-USE=(%s)>",
		r.Active,
		r.IndexStartAddr,
		r.DataStartAddr,
		r.IndexRegionSize.String(),
		r.DataRegionSize.String(),
		r.OverwriteCountAreaSize.String(),
		humanize.Comma(int64(r.OverwriteSlotsInUse)),
	)
}

// BlockAddr returns the base address of block number blockNum, given
// sectorSize and a Config's BlockSectorCount (the original source's
// BLOCKS(x) macro). It lets a manifest describe region base addresses by
// block number instead of raw byte offsets; see config.Manifest.
func (c Config) BlockAddr(blockNum uint16) uint32 {
	return blocksToBytes(blockNum, c.blockSectorCount(), c.SectorSize)
}
