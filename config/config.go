// Package config loads a region-geometry manifest for the cmd/ tools.
// The core flashee.Engine API never takes a file path — this is purely a
// CLI-level convenience, the way go-exfat's cmd/ binaries parse their own
// flag sets rather than push that concern into the library package.
package config

import (
	"encoding/json"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/dsoprea/go-logging"
	"github.com/tailscale/hujson"

	"github.com/donocean/go-flashee"
)

// Manifest is the on-disk, human-editable HuJSON geometry description. Size
// fields accept human strings ("4KiB", "64KiB") instead of raw byte counts.
type Manifest struct {
	SectorSize       string `json:"sectorSize"`
	BlockSectorCount uint16 `json:"blockSectorCount,omitempty"`

	IndexStart         uint32 `json:"indexStart"`
	IndexSwapStart     uint32 `json:"indexSwapStart"`
	IndexRegionSectors uint16 `json:"indexRegionSectors"`
	IndexAreaSectors   uint16 `json:"indexAreaSectors"`

	DataStart         uint32 `json:"dataStart"`
	DataSwapStart     uint32 `json:"dataSwapStart"`
	DataRegionSectors uint16 `json:"dataRegionSectors"`

	// The four *Block fields are an alternative to their byte-offset
	// counterparts above: when set, the base address is resolved via
	// Config.BlockAddr instead of taken literally, the way the original
	// source's region constants were themselves defined in terms of the
	// BLOCKS(x) macro rather than raw byte offsets.
	IndexStartBlock     uint16 `json:"indexStartBlock,omitempty"`
	IndexSwapStartBlock uint16 `json:"indexSwapStartBlock,omitempty"`
	DataStartBlock      uint16 `json:"dataStartBlock,omitempty"`
	DataSwapStartBlock  uint16 `json:"dataSwapStartBlock,omitempty"`

	CatalogCount int `json:"catalogCount"`
}

// Load reads and parses a HuJSON manifest file at path, allowing comments
// and trailing commas the way operators expect from a hand-edited sector
// map.
func Load(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, log.Wrap(err)
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return Manifest{}, log.Wrap(err)
	}

	var m Manifest
	if err := json.Unmarshal(standard, &m); err != nil {
		return Manifest{}, log.Wrap(err)
	}

	return m, nil
}

// ToEngineConfig converts a Manifest into a flashee.Config, parsing the
// human-readable sector size.
func (m Manifest) ToEngineConfig() (flashee.Config, error) {
	var sectorSize datasize.ByteSize
	if err := sectorSize.UnmarshalText([]byte(m.SectorSize)); err != nil {
		return flashee.Config{}, log.Errorf("config: invalid sectorSize %q: %v", m.SectorSize, err)
	}

	cfg := flashee.Config{
		SectorSize:         uint32(sectorSize.Bytes()),
		BlockSectorCount:   m.BlockSectorCount,
		IndexStart:         m.IndexStart,
		IndexSwapStart:     m.IndexSwapStart,
		IndexRegionSectors: m.IndexRegionSectors,
		IndexAreaSectors:   m.IndexAreaSectors,
		DataStart:          m.DataStart,
		DataSwapStart:      m.DataSwapStart,
		DataRegionSectors:  m.DataRegionSectors,
	}

	if m.IndexStartBlock != 0 {
		cfg.IndexStart = cfg.BlockAddr(m.IndexStartBlock)
	}
	if m.IndexSwapStartBlock != 0 {
		cfg.IndexSwapStart = cfg.BlockAddr(m.IndexSwapStartBlock)
	}
	if m.DataStartBlock != 0 {
		cfg.DataStart = cfg.BlockAddr(m.DataStartBlock)
	}
	if m.DataSwapStartBlock != 0 {
		cfg.DataSwapStart = cfg.BlockAddr(m.DataSwapStartBlock)
	}

	return cfg, nil
}

// Catalog builds the flashee.Catalog declared by the manifest.
func (m Manifest) Catalog() flashee.Catalog {
	return flashee.Catalog{Count: m.CatalogCount}
}
