package lockedengine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/donocean/go-flashee"
	"github.com/donocean/go-flashee/simflash"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	dev := simflash.NewMemory(16384, 256)
	inner := flashee.NewEngine(dev, flashee.Catalog{Count: 4})

	cfg := flashee.Config{
		SectorSize:         256,
		IndexStart:         0,
		IndexSwapStart:     4096,
		IndexRegionSectors: 4,
		IndexAreaSectors:   1,
		DataStart:          8192,
		DataSwapStart:      12288,
		DataRegionSectors:  4,
	}
	require.NoError(t, inner.Init(cfg))

	return New(inner)
}

func TestLockedEngine_WriteThenRead(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.Write(0, []byte("value")))

	got, err := e.Read(0)
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}

func TestLockedEngine_Inspect(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.Write(0, []byte("x")))

	snap, err := e.Inspect()
	require.NoError(t, err)
	require.Equal(t, "ACTIVE", snap.ActiveStatus)
}

func TestLockedEngine_ConcurrentWritesSerialize(t *testing.T) {
	e := newTestEngine(t)

	var wg sync.WaitGroup
	errs := make([]error, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.Write(0, []byte{byte(i)})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	_, err := e.Read(0)
	require.NoError(t, err)
}

func TestLockedEngine_ConcurrentReadsDedupe(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Write(0, []byte("first")))
	require.NoError(t, e.Write(1, []byte("shared")))

	var wg sync.WaitGroup
	results := make([][]byte, 10)
	errs := make([]error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Read(1)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, []byte("shared"), results[i])
	}
}
