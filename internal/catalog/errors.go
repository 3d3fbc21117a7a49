package catalog

import (
	"errors"
	"fmt"
)

// InvariantError reports a mutation that would violate one of the
// catalog's consistency invariants. The triggering transaction is rolled
// back in full before the error reaches the caller; callers never observe
// a partially applied mutation.
type InvariantError struct {
	// Code identifies the violated rule.
	Code InvariantErrorCode

	// Message is a human-readable description.
	Message string

	// CodeID identifies the affected item, when known.
	CodeID int

	// RID identifies the affected revision, when known.
	RID int
}

// InvariantErrorCode categorizes invariant violations.
type InvariantErrorCode string

const (
	// ErrCodeDuplicateCode: the item code already exists.
	ErrCodeDuplicateCode InvariantErrorCode = "DUPLICATE_CODE"

	// ErrCodeDateRange: a validity interval violates ordering,
	// contiguity, span, or containment rules.
	ErrCodeDateRange InvariantErrorCode = "DATE_RANGE"

	// ErrCodeDateOrder: a new revision's start date does not follow the
	// previous revision's start date.
	ErrCodeDateOrder InvariantErrorCode = "DATE_ORDER"

	// ErrCodeDuplicatePrototype: the item already has a prototype
	// revision.
	ErrCodeDuplicatePrototype InvariantErrorCode = "DUPLICATE_PROTOTYPE"

	// ErrCodeLastRevision: the item's only revision cannot be deleted.
	ErrCodeLastRevision InvariantErrorCode = "LAST_REVISION"

	// ErrCodePrototypeOnlyRemaining: deleting this revision would leave
	// the item with only a prototype.
	ErrCodePrototypeOnlyRemaining InvariantErrorCode = "PROTOTYPE_ONLY_REMAINING"

	// ErrCodeHasParents: an item referenced by any assembly link cannot
	// be deleted.
	ErrCodeHasParents InvariantErrorCode = "HAS_PARENTS"

	// ErrCodeConcurrentModification: the optimistic snapshot supplied by
	// the caller no longer matches the stored state.
	ErrCodeConcurrentModification InvariantErrorCode = "CONCURRENT_MODIFICATION"

	// ErrCodeNotFound: the named item or revision does not exist.
	ErrCodeNotFound InvariantErrorCode = "NOT_FOUND"
)

// Error implements the error interface.
func (e *InvariantError) Error() string {
	switch {
	case e.RID != 0:
		return fmt.Sprintf("%s: %s (rid=%d)", e.Code, e.Message, e.RID)
	case e.CodeID != 0:
		return fmt.Sprintf("%s: %s (code_id=%d)", e.Code, e.Message, e.CodeID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsDuplicateCodeError reports whether err is a duplicate-code rejection.
// Uses errors.As to handle wrapped errors.
func IsDuplicateCodeError(err error) bool { return hasCode(err, ErrCodeDuplicateCode) }

// IsDateRangeError reports whether err is an interval violation.
func IsDateRangeError(err error) bool { return hasCode(err, ErrCodeDateRange) }

// IsDateOrderError reports whether err is a start-date ordering rejection.
func IsDateOrderError(err error) bool { return hasCode(err, ErrCodeDateOrder) }

// IsDuplicatePrototypeError reports whether err is a second-prototype
// rejection.
func IsDuplicatePrototypeError(err error) bool { return hasCode(err, ErrCodeDuplicatePrototype) }

// IsLastRevisionError reports whether err is a last-revision-delete
// rejection.
func IsLastRevisionError(err error) bool { return hasCode(err, ErrCodeLastRevision) }

// IsPrototypeOnlyRemainingError reports whether err is a
// would-leave-only-prototype rejection.
func IsPrototypeOnlyRemainingError(err error) bool {
	return hasCode(err, ErrCodePrototypeOnlyRemaining)
}

// IsHasParentsError reports whether err is an orphan-delete rejection.
func IsHasParentsError(err error) bool { return hasCode(err, ErrCodeHasParents) }

// IsConcurrentModificationError reports whether err is an optimistic
// snapshot mismatch.
func IsConcurrentModificationError(err error) bool {
	return hasCode(err, ErrCodeConcurrentModification)
}

// IsNotFoundError reports whether err is a missing item/revision lookup.
func IsNotFoundError(err error) bool { return hasCode(err, ErrCodeNotFound) }

func hasCode(err error, code InvariantErrorCode) bool {
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}

func notFound(what string, id int) *InvariantError {
	return &InvariantError{Code: ErrCodeNotFound, Message: what + " not found", RID: 0, CodeID: id}
}
