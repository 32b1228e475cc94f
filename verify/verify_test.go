package verify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/donocean/go-flashee"
)

func baseSnapshot() flashee.Snapshot {
	return flashee.Snapshot{
		ActiveStatus: "ACTIVE",
		SwapStatus:   "ERASING",
		PrimaryRecords: []flashee.RecordSnapshot{
			{Status: "VALID", DataSize: 4, DataAddr: 0, DataOverwriteAddr: 0xFFFF},
			{Status: "EMPTY", DataOverwriteAddr: 0xFFFF},
		},
		OverwriteRecords:         nil,
		OverwriteCounterZeroBits: 0,
		OverwriteSlotCapacity:    32,
	}
}

func TestCheck_PassesOnCleanSnapshot(t *testing.T) {
	require.NoError(t, Check(baseSnapshot()))
}

func TestCheckStatusValues_RejectsUnknownStatus(t *testing.T) {
	snap := baseSnapshot()
	snap.PrimaryRecords[0].Status = "BOGUS"

	err := checkStatusValues(snap)
	require.Error(t, err)
	require.Contains(t, err.Error(), "illegal status")
}

func TestCheckStatusValues_ChecksOverwriteRecordsToo(t *testing.T) {
	snap := baseSnapshot()
	snap.OverwriteRecords = []flashee.RecordSnapshot{{Status: "NOT-A-STATUS"}}

	err := checkStatusValues(snap)
	require.Error(t, err)
	require.Contains(t, err.Error(), "overwrite slot 0")
}

func TestCheckUniqueActive_RejectsNonActivePrimary(t *testing.T) {
	snap := baseSnapshot()
	snap.ActiveStatus = "COPY"

	err := checkUniqueActive(snap)
	require.Error(t, err)
}

func TestCheckUniqueActive_RejectsActiveSwapSide(t *testing.T) {
	snap := baseSnapshot()
	snap.SwapStatus = "ACTIVE"

	err := checkUniqueActive(snap)
	require.Error(t, err)
}

func TestCheckUniqueActive_AllowsInFlightSwapStates(t *testing.T) {
	for _, s := range []string{"ERASING", "VERIFIED", "COPY"} {
		snap := baseSnapshot()
		snap.SwapStatus = s
		require.NoError(t, checkUniqueActive(snap))
	}
}

func TestCheckChainAcyclic_RejectsOutOfRangeOffset(t *testing.T) {
	snap := baseSnapshot()
	snap.PrimaryRecords[0].DataOverwriteAddr = 16 * 100 // slot 100, capacity 32

	err := checkChainAcyclic(snap)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds bitmap capacity")
}

func TestCheckChainAcyclic_IgnoresChainEndSentinel(t *testing.T) {
	snap := baseSnapshot()
	snap.PrimaryRecords[0].DataOverwriteAddr = 0xFFFF

	require.NoError(t, checkChainAcyclic(snap))
}

func TestCheckCounterMatchesChain_WithinToleranceWindow(t *testing.T) {
	snap := baseSnapshot()
	snap.OverwriteRecords = []flashee.RecordSnapshot{
		{Status: "VALID"},
		{Status: "EMPTY"},
	}
	snap.OverwriteCounterZeroBits = 2 // occupied=1, diff=1, within tolerance

	require.NoError(t, checkCounterMatchesChain(snap))
}

func TestCheckCounterMatchesChain_RejectsLargeDivergence(t *testing.T) {
	snap := baseSnapshot()
	snap.OverwriteRecords = []flashee.RecordSnapshot{
		{Status: "EMPTY"},
		{Status: "EMPTY"},
	}
	snap.OverwriteCounterZeroBits = 5 // occupied=0, diff=5

	err := checkCounterMatchesChain(snap)
	require.Error(t, err)
}

func TestCheck_AccumulatesMultipleViolations(t *testing.T) {
	snap := baseSnapshot()
	snap.ActiveStatus = "VERIFIED"
	snap.PrimaryRecords[0].Status = "GARBAGE"

	err := Check(snap)
	require.Error(t, err)
	require.Contains(t, err.Error(), "illegal status")
	require.Contains(t, err.Error(), "want ACTIVE")
}
