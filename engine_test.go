package flashee

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/donocean/go-flashee/simflash"
)

func testConfig() Config {
	return Config{
		SectorSize:         256,
		IndexStart:         0,
		IndexSwapStart:     4096,
		IndexRegionSectors: 4,
		IndexAreaSectors:   1,
		DataStart:          8192,
		DataSwapStart:      12288,
		DataRegionSectors:  4,
	}
}

func newTestEngine(t *testing.T, count int) (*Engine, *simflash.Memory) {
	t.Helper()

	dev := simflash.NewMemory(16384, 256)
	e := NewEngine(dev, Catalog{Count: count})

	require.NoError(t, e.Init(testConfig()))

	return e, dev
}

func TestEngine_FirstFormat_ThenWriteRead(t *testing.T) {
	e, _ := newTestEngine(t, 4)

	require.NoError(t, e.Write(0, []byte("hello")))

	got, err := e.Read(0)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestEngine_Read_NotWritten(t *testing.T) {
	e, _ := newTestEngine(t, 4)

	_, err := e.Read(0)
	require.Error(t, err)
	require.Equal(t, uint8(2), ReadCode(err))
}

func TestEngine_Write_IDOutOfRange(t *testing.T) {
	e, _ := newTestEngine(t, 2)

	err := e.Write(5, []byte("x"))
	require.Error(t, err)
	require.Equal(t, uint8(1), WriteCode(err))
}

func TestEngine_Write_SequenceViolation(t *testing.T) {
	e, _ := newTestEngine(t, 4)

	err := e.Write(1, []byte("x"))
	require.Error(t, err)
	require.Equal(t, uint8(2), WriteCode(err))
}

func TestEngine_Rewrite(t *testing.T) {
	e, _ := newTestEngine(t, 4)

	require.NoError(t, e.Write(0, []byte("one")))
	require.NoError(t, e.Write(0, []byte("two-longer")))

	got, err := e.Read(0)
	require.NoError(t, err)
	require.Equal(t, []byte("two-longer"), got)
}

func TestEngine_RemountPreservesValues(t *testing.T) {
	e, dev := newTestEngine(t, 4)

	require.NoError(t, e.Write(0, []byte("a")))
	require.NoError(t, e.Write(1, []byte("bb")))

	fresh := NewEngine(dev, Catalog{Count: 4})
	require.NoError(t, fresh.Init(testConfig()))

	got0, err := fresh.Read(0)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), got0)

	got1, err := fresh.Read(1)
	require.NoError(t, err)
	require.Equal(t, []byte("bb"), got1)
}

func TestEngine_ManyRewritesTriggerSwap(t *testing.T) {
	e, _ := newTestEngine(t, 1)

	const rewrites = 120

	for i := 0; i < rewrites; i++ {
		require.NoError(t, e.Write(0, []byte{byte(i)}))
	}

	got, err := e.Read(0)
	require.NoError(t, err)
	require.Equal(t, []byte{byte(rewrites - 1)}, got)
}

func TestEngine_Inspect_ReportsConsistentSnapshot(t *testing.T) {
	e, _ := newTestEngine(t, 3)

	require.NoError(t, e.Write(0, []byte("x")))
	require.NoError(t, e.Write(1, []byte("y")))

	snap, err := e.Inspect()
	require.NoError(t, err)
	require.Equal(t, "ACTIVE", snap.ActiveStatus)
	require.Equal(t, "ERASING", snap.SwapStatus)
	require.Len(t, snap.PrimaryRecords, 3)
	require.Equal(t, "VALID", snap.PrimaryRecords[0].Status)
	require.Equal(t, "VALID", snap.PrimaryRecords[1].Status)
	require.Equal(t, "EMPTY", snap.PrimaryRecords[2].Status)
}
