package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleManifest = `{
	// sector size accepts human-readable units
	sectorSize: "256B",
	indexStart: 0,
	indexSwapStart: 4096,
	indexRegionSectors: 4,
	indexAreaSectors: 1,
	dataStart: 8192,
	dataSwapStart: 12288,
	dataRegionSectors: 4,
	catalogCount: 8,
}
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.hujson")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad_ParsesHuJSONWithComments(t *testing.T) {
	path := writeManifest(t, sampleManifest)

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "256B", m.SectorSize)
	require.Equal(t, uint32(4096), m.IndexSwapStart)
	require.Equal(t, 8, m.CatalogCount)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.hujson"))
	require.Error(t, err)
}

func TestManifest_ToEngineConfig_ParsesHumanSize(t *testing.T) {
	m := Manifest{
		SectorSize:         "4KiB",
		IndexStart:         0,
		IndexSwapStart:     1,
		IndexRegionSectors: 2,
		IndexAreaSectors:   1,
		DataStart:          3,
		DataSwapStart:      4,
		DataRegionSectors:  5,
	}

	cfg, err := m.ToEngineConfig()
	require.NoError(t, err)
	require.Equal(t, uint32(4096), cfg.SectorSize)
	require.Equal(t, uint16(2), cfg.IndexRegionSectors)
}

func TestManifest_ToEngineConfig_ResolvesBlockAddresses(t *testing.T) {
	m := Manifest{
		SectorSize:         "256B",
		BlockSectorCount:   4,
		IndexStartBlock:    1,
		DataStart:          999, // must be overridden by DataStartBlock below
		DataStartBlock:     2,
		IndexRegionSectors: 4,
		IndexAreaSectors:   1,
		DataRegionSectors:  4,
	}

	cfg, err := m.ToEngineConfig()
	require.NoError(t, err)
	require.Equal(t, uint32(1*4*256), cfg.IndexStart)
	require.Equal(t, uint32(2*4*256), cfg.DataStart)
}

func TestManifest_ToEngineConfig_RejectsBadSize(t *testing.T) {
	m := Manifest{SectorSize: "not-a-size"}

	_, err := m.ToEngineConfig()
	require.Error(t, err)
}

func TestManifest_Catalog(t *testing.T) {
	m := Manifest{CatalogCount: 12}
	require.Equal(t, 12, m.Catalog().Count)
}
