package flashee

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeGeometry_RejectsOversizedIndexArea(t *testing.T) {
	_, err := computeGeometry(256, 0, 4096, 4, 4, 8192, 12288, 4, 1)
	require.Error(t, err)
}

func TestComputeGeometry_RejectsIndexArrayOverflow(t *testing.T) {
	// one sector (256 bytes) of index area can hold 16 records; ask for 20.
	_, err := computeGeometry(256, 0, 4096, 4, 1, 8192, 12288, 4, 20)
	require.Error(t, err)
}

func TestComputeGeometry_RecomputesOverwriteAddr(t *testing.T) {
	g, err := computeGeometry(256, 0, 4096, 4, 1, 8192, 12288, 4, 4)
	require.NoError(t, err)

	want := recomputeOverwriteAddr(g.indexStartAddr, g.indexAreaSectors, g.sectorSize, g.overwriteCountAreaSize)
	require.Equal(t, want, g.overwriteAddr)
}

func TestRegionGeometry_SwapSides(t *testing.T) {
	g, err := computeGeometry(256, 0, 4096, 4, 1, 8192, 12288, 4, 4)
	require.NoError(t, err)

	origActive, origSwap := g.indexStartAddr, g.indexSwapStartAddr
	origOverwrite := g.overwriteAddr

	g.swapSides()

	require.Equal(t, origSwap, g.indexStartAddr)
	require.Equal(t, origActive, g.indexSwapStartAddr)
	require.NotEqual(t, origOverwrite, g.overwriteAddr)

	want := recomputeOverwriteAddr(g.indexStartAddr, g.indexAreaSectors, g.sectorSize, g.overwriteCountAreaSize)
	require.Equal(t, want, g.overwriteAddr)
}

func TestSectorsAndBlocksToBytes(t *testing.T) {
	require.Equal(t, uint32(1024), sectorsToBytes(4, 256))
	require.Equal(t, uint32(4096), blocksToBytes(1, 16, 256))
}

func TestAlignUp4(t *testing.T) {
	require.Equal(t, uint32(0), alignUp4(0))
	require.Equal(t, uint32(4), alignUp4(1))
	require.Equal(t, uint32(4), alignUp4(4))
	require.Equal(t, uint32(8), alignUp4(5))
}
