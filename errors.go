package flashee

import (
	"github.com/dsoprea/go-logging"
)

// Result names the caller-visible outcome of a Write or Read call. The two
// operations reuse the same small id-space for different meanings (write's
// code 2 is "sequence violation", read's code 2 is "not written"), so
// Result is the typed surface and WriteCode/ReadCode below recover the
// per-operation numeric codes for FFI-style callers.
type Result uint8

const (
	// ResultOK indicates the operation completed normally.
	ResultOK Result = iota

	// ResultIDOutOfRange indicates the id's primary slot address falls
	// outside the index area.
	ResultIDOutOfRange

	// ResultSequence indicates the write-order constraint was violated: a
	// lower id has never been written. Write-only.
	ResultSequence

	// ResultNotWritten indicates a read of a primary slot whose status is
	// still EMPTY. Read-only.
	ResultNotWritten

	// ResultInvalid indicates a read of a record whose last write was
	// interrupted and never superseded. Read-only.
	ResultInvalid
)

// Err is the typed error a Write or Read call returns. A nil Err means
// ResultOK.
type Err struct {
	Result Result
	id     VariableID
}

func (e *Err) Error() string {
	switch e.Result {
	case ResultIDOutOfRange:
		return log.Errorf("flashee: id (%d) out of range", e.id).Error()
	case ResultSequence:
		return log.Errorf("flashee: id (%d) written out of sequence (prior id not yet written)", e.id).Error()
	case ResultNotWritten:
		return log.Errorf("flashee: id (%d) has never been written", e.id).Error()
	case ResultInvalid:
		return log.Errorf("flashee: id (%d) record is invalid (interrupted write, never superseded)", e.id).Error()
	default:
		return "flashee: unknown result"
	}
}

func errIDOutOfRange(id VariableID) *Err { return &Err{Result: ResultIDOutOfRange, id: id} }
func errSequence(id VariableID) *Err     { return &Err{Result: ResultSequence, id: id} }
func errNotWritten(id VariableID) *Err   { return &Err{Result: ResultNotWritten, id: id} }
func errInvalid(id VariableID) *Err      { return &Err{Result: ResultInvalid, id: id} }

// WriteCode maps a Write error onto a write-call's result codes:
// 0 OK, 1 id out of range, 2 sequence violation.
func WriteCode(err error) uint8 {
	if err == nil {
		return 0
	}

	fe, ok := err.(*Err)
	if !ok {
		return 1
	}

	switch fe.Result {
	case ResultIDOutOfRange:
		return 1
	case ResultSequence:
		return 2
	default:
		return 1
	}
}

// ReadCode maps a Read error onto a read-call's result codes:
// 0 OK, 1 id out of range, 2 not written, 3 invalid.
func ReadCode(err error) uint8 {
	if err == nil {
		return 0
	}

	fe, ok := err.(*Err)
	if !ok {
		return 3
	}

	switch fe.Result {
	case ResultIDOutOfRange:
		return 1
	case ResultNotWritten:
		return 2
	case ResultInvalid:
		return 3
	default:
		return 3
	}
}

// powerLossError wraps a cause as a power-loss error. Nothing in this
// module constructs it: the core never constructs or inspects it, and
// simflash's crash injection panics with a plain string instead.
type powerLossError struct {
	cause error
}

func (e *powerLossError) Error() string {
	return log.Errorf("flashee: power loss: %v", e.cause).Error()
}

func (e *powerLossError) Unwrap() error {
	return e.cause
}
