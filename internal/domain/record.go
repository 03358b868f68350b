package domain

import (
	"time"

	"github.com/google/uuid"
)

// Defaults supplies generated values for records constructed without them.
// Tests inject deterministic functions; nil fields fall back to the system.
type Defaults struct {
	NewID func() string
	Now   func() time.Time
}

// SystemDefaults returns random UUIDv4 ids and the current UTC time at
// microsecond precision, the resolution records are stored with.
func SystemDefaults() Defaults {
	return Defaults{
		NewID: uuid.NewString,
		Now:   systemNow,
	}
}

func systemNow() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func (d Defaults) newID() string {
	if d.NewID == nil {
		return uuid.NewString()
	}
	return d.NewID()
}

func (d Defaults) now() time.Time {
	if d.Now == nil {
		return systemNow()
	}
	return d.Now()
}

// NewStrategyRecord wraps an input and output for userID. The input is
// normalized again, and the record receives its own copy of out and a
// fresh id and timestamp.
func NewStrategyRecord(userID string, in StrategyInput, out StrategyOutput, d Defaults) (StrategyRecord, error) {
	errs := &ValidationError{Entity: "StrategyRecord"}
	norm, err := NewStrategyInput(in.BrandName, in.Industry, in.TargetAudience, in.Goals)
	if ve, ok := AsValidationError(err); ok {
		errs.Fields = append(errs.Fields, ve.Fields...)
	}
	in = norm
	rec := StrategyRecord{
		ID:             d.newID(),
		UserID:         userID,
		BrandName:      in.BrandName,
		Industry:       in.Industry,
		TargetAudience: in.TargetAudience,
		Goals:          in.Goals,
		StrategyOutput: out.Clone(),
		CreatedAt:      d.now(),
	}
	checkStruct(rec, "", errs)
	if err := errs.orNil(); err != nil {
		return StrategyRecord{}, err
	}
	return rec, nil
}
