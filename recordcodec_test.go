package flashee

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/donocean/go-flashee/simflash"
)

func TestDataStatus_String(t *testing.T) {
	cases := []struct {
		status dataStatus
		want   string
	}{
		{statusEmpty, "EMPTY"},
		{statusInvalid, "INVALID"},
		{statusHalfValid, "HALFVALID"},
		{statusValid, "VALID"},
		{dataStatus(0x1234), "UNKNOWN"},
	}

	for _, c := range cases {
		require.Equal(t, c.want, c.status.String())
	}
}

func TestIndexRecord_RoundTrip(t *testing.T) {
	want := indexRecord{
		DataStatus:        statusValid,
		DataSize:          12,
		DataAddr:          0x0100,
		DataOverwriteAddr: chainEnd,
	}

	raw, err := encodeIndexRecord(want)
	require.NoError(t, err)
	require.Len(t, raw, indexRecordSize)

	got, err := decodeIndexRecord(raw)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmp.AllowUnexported(indexRecord{})); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexRecord_Predicates(t *testing.T) {
	empty := indexRecord{DataStatus: statusEmpty, DataOverwriteAddr: chainEnd}
	require.False(t, empty.isOccupied())
	require.False(t, empty.isOverwritten())
	require.False(t, empty.isLive())
	require.False(t, empty.occupiesDataBytes())

	valid := indexRecord{DataStatus: statusValid, DataOverwriteAddr: chainEnd}
	require.True(t, valid.isOccupied())
	require.False(t, valid.isOverwritten())
	require.True(t, valid.isLive())
	require.True(t, valid.occupiesDataBytes())

	overwritten := indexRecord{DataStatus: statusValid, DataOverwriteAddr: 16}
	require.True(t, overwritten.isOverwritten())

	halfValid := indexRecord{DataStatus: statusHalfValid, DataOverwriteAddr: chainEnd}
	require.False(t, halfValid.isLive())
	require.True(t, halfValid.occupiesDataBytes())

	invalid := indexRecord{DataStatus: statusInvalid, DataOverwriteAddr: chainEnd}
	require.False(t, invalid.occupiesDataBytes())
}

func TestReadWriteIndexRecord(t *testing.T) {
	dev := simflash.NewMemory(4096, 1024)

	rec := indexRecord{
		DataStatus:        statusValid,
		DataSize:          4,
		DataAddr:          8,
		DataOverwriteAddr: chainEnd,
	}

	raw, err := encodeIndexRecord(rec)
	require.NoError(t, err)
	require.NoError(t, dev.Program(0, raw))

	got, err := readIndexRecord(dev, 0)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestRegionStatus_String(t *testing.T) {
	cases := []struct {
		status regionStatus
		want   string
	}{
		{regionErasing, "ERASING"},
		{regionVerified, "VERIFIED"},
		{regionCopy, "COPY"},
		{regionActive, "ACTIVE"},
		{regionStatus(0x11223344), "UNKNOWN"},
	}

	for _, c := range cases {
		require.Equal(t, c.want, c.status.String())
	}
}

func TestReadWriteRegionStatus(t *testing.T) {
	dev := simflash.NewMemory(4096, 1024)

	require.NoError(t, writeRegionStatus(dev, 0, regionActive))

	got, err := readRegionStatus(dev, 0)
	require.NoError(t, err)
	require.Equal(t, regionActive, got)
}
