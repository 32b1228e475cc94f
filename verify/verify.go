// Package verify implements runnable consistency checks over a
// flashee.Engine.Inspect() snapshot, accumulating every violation found
// instead of failing on the first one.
package verify

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/donocean/go-flashee"
)

// recordStatuses are the four legal dataStatus values, most-to-least
// erased: the monotone bit-clear chain every index record follows.
var recordStatuses = map[string]int{
	"EMPTY":     0,
	"INVALID":   1,
	"HALFVALID": 2,
	"VALID":     3,
}

// Check runs every invariant in this package against snap and returns the
// accumulated violations, or nil if none were found.
func Check(snap flashee.Snapshot) error {
	var result *multierror.Error

	result = multierror.Append(result, checkStatusValues(snap))
	result = multierror.Append(result, checkUniqueActive(snap))
	result = multierror.Append(result, checkChainAcyclic(snap))
	result = multierror.Append(result, checkCounterMatchesChain(snap))

	return result.ErrorOrNil()
}

// checkStatusValues confirms every observed record status is one of the
// four legal values. A single snapshot can't observe the full history of
// a record, only that the value it sees right now is a legal member of
// the chain.
func checkStatusValues(snap flashee.Snapshot) error {
	var result *multierror.Error

	for id, rec := range snap.PrimaryRecords {
		if _, ok := recordStatuses[rec.Status]; !ok {
			result = multierror.Append(result, fmt.Errorf("primary record id=%d has illegal status %q", id, rec.Status))
		}
	}

	for i, rec := range snap.OverwriteRecords {
		if _, ok := recordStatuses[rec.Status]; !ok {
			result = multierror.Append(result, fmt.Errorf("overwrite slot %d has illegal status %q", i, rec.Status))
		}
	}

	return result.ErrorOrNil()
}

// checkUniqueActive confirms exactly one region status word is ACTIVE,
// the other one of ERASING/COPY/VERIFIED, once a swap has fully settled.
// A snapshot taken while a swap is genuinely in flight is not itself a
// violation — callers that want a strict post-settle check should only
// run this against a snapshot taken after Init/Write have returned.
func checkUniqueActive(snap flashee.Snapshot) error {
	if snap.ActiveStatus != "ACTIVE" {
		return fmt.Errorf("active-side status is %q, want ACTIVE", snap.ActiveStatus)
	}
	if snap.SwapStatus != "ERASING" && snap.SwapStatus != "COPY" && snap.SwapStatus != "VERIFIED" {
		return fmt.Errorf("swap-side status is %q, want ERASING (or an in-flight swap state)", snap.SwapStatus)
	}
	return nil
}

// checkChainAcyclic confirms every overwrite-chain pointer on a primary
// record addresses a slot within the overwrite bitmap's capacity.
// Inspect() reads the occupied overwrite slots in order without walking
// any chain, and this check does not walk chains either: it only checks
// each primary record's encoded offset against the slot capacity.
func checkChainAcyclic(snap flashee.Snapshot) error {
	var result *multierror.Error

	capacity := snap.OverwriteSlotCapacity

	for id, rec := range snap.PrimaryRecords {
		if rec.DataOverwriteAddr == 0xFFFF {
			continue
		}

		slot := uint32(rec.DataOverwriteAddr) / 16
		if slot >= capacity {
			result = multierror.Append(result, fmt.Errorf("id=%d overwrite offset (%d) exceeds bitmap capacity (%d slots)", id, rec.DataOverwriteAddr, capacity))
		}
	}

	return result.ErrorOrNil()
}

// checkCounterMatchesChain confirms the number of cleared bits in the
// overwrite counter bitmap equals the number of non-EMPTY overwrite
// slots, within a window of one (the instant between the counter advance
// and the corresponding slot program).
func checkCounterMatchesChain(snap flashee.Snapshot) error {
	occupied := 0
	for _, rec := range snap.OverwriteRecords {
		if rec.Status != "EMPTY" {
			occupied++
		}
	}

	diff := int(snap.OverwriteCounterZeroBits) - occupied
	if diff < -1 || diff > 1 {
		return fmt.Errorf("counter zero-bits (%d) and occupied overwrite slots (%d) differ by more than 1", snap.OverwriteCounterZeroBits, occupied)
	}

	return nil
}
