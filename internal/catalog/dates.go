package catalog

import (
	"fmt"
	"sort"

	"github.com/opline/bomcat/internal/backend"
	"github.com/opline/bomcat/internal/caldate"
)

// UpdateDates rewrites the validity intervals of an item's entire
// revision history in one transaction.
//
// The caller supplies every revision of the item (any order) with its new
// interval. The full set is validated before anything is written:
//
//   - every revision of the item appears exactly once;
//   - each interval is non-negative (date_from <= date_to) and within the
//     real date range, except a prototype, which is exactly the
//     degenerate prototype interval;
//   - at most one entry is a prototype;
//   - sorted by date_from descending, the real entries are contiguous
//     (newer.date_from == older.date_to + 1) and their existing relative
//     iteration order is preserved;
//   - each revision's children cover its new interval, and the item's new
//     aggregate coverage contains every parent's recorded range.
//
// A revision moved onto the prototype pseudo-date gets the reserved
// prototype iteration; a prototype moved onto a real date is renumbered
// to the next real iteration. Any violation fails with DateRangeError
// (or DuplicatePrototypeError) and the history is left untouched.
func (e *Engine) UpdateDates(entries []RevisionDates) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(entries) == 0 {
		return &InvariantError{Code: ErrCodeDateRange, Message: "no date entries supplied"}
	}

	return e.inTransaction(func(tx *backend.Transaction) error {
		first, err := e.getRevisionByRid(tx, entries[0].RID)
		if err != nil {
			return err
		}
		hist, err := e.getHistory(tx, first.CodeID)
		if err != nil {
			return err
		}

		if len(entries) != len(hist) {
			return &InvariantError{
				Code: ErrCodeDateRange,
				Message: fmt.Sprintf("item has %d revisions, %d entries supplied",
					len(hist), len(entries)),
				CodeID: first.CodeID,
			}
		}
		byRID := make(map[int]Revision, len(hist))
		for _, r := range hist {
			byRID[r.ID] = r
		}

		type slot struct {
			rid      int
			from, to int
			oldIter  int
			newIter  int
			proto    bool
		}
		slots := make([]slot, 0, len(entries))
		protoCount := 0
		maxRealIter := -1
		for _, en := range entries {
			r, ok := byRID[en.RID]
			if !ok {
				return &InvariantError{
					Code:    ErrCodeDateRange,
					Message: fmt.Sprintf("revision %d does not belong to the item", en.RID),
					CodeID:  first.CodeID,
					RID:     en.RID,
				}
			}
			delete(byRID, en.RID)

			s := slot{rid: en.RID, from: en.DateFromDays, to: en.DateToDays, oldIter: r.Iter}
			if en.DateFromDays >= caldate.PrototypeDate {
				if en.DateFromDays != caldate.PrototypeDate || en.DateToDays != caldate.PrototypeDate {
					return &InvariantError{
						Code:    ErrCodeDateRange,
						Message: "a prototype interval must be exactly the prototype pseudo-date",
						CodeID:  first.CodeID,
						RID:     en.RID,
					}
				}
				s.proto = true
				protoCount++
			} else {
				if en.DateFromDays < 0 || en.DateToDays > caldate.EndOfTime || en.DateFromDays > en.DateToDays {
					return &InvariantError{
						Code: ErrCodeDateRange,
						Message: fmt.Sprintf("invalid interval [%d, %d] for revision %d",
							en.DateFromDays, en.DateToDays, en.RID),
						CodeID: first.CodeID,
						RID:    en.RID,
					}
				}
				if r.Iter != caldate.PrototypeIter && r.Iter > maxRealIter {
					maxRealIter = r.Iter
				}
			}
			slots = append(slots, s)
		}
		if protoCount > 1 {
			return &InvariantError{
				Code:    ErrCodeDuplicatePrototype,
				Message: "more than one entry on the prototype pseudo-date",
				CodeID:  first.CodeID,
			}
		}

		// Renumber across the prototype boundary.
		for i := range slots {
			s := &slots[i]
			switch {
			case s.proto:
				s.newIter = caldate.PrototypeIter
			case s.oldIter == caldate.PrototypeIter:
				maxRealIter++
				s.newIter = maxRealIter
			default:
				s.newIter = s.oldIter
			}
		}

		// Real entries, newest first. Contiguity and ordering are checked
		// over this sequence; the prototype sits outside the chain.
		real := make([]slot, 0, len(slots))
		for _, s := range slots {
			if !s.proto {
				real = append(real, s)
			}
		}
		sort.Slice(real, func(i, j int) bool { return real[i].from > real[j].from })
		for i := 0; i < len(real)-1; i++ {
			newer, older := real[i], real[i+1]
			if newer.newIter <= older.newIter {
				return &InvariantError{
					Code: ErrCodeDateRange,
					Message: fmt.Sprintf(
						"date order conflicts with iteration order between revisions %d and %d",
						newer.rid, older.rid),
					CodeID: first.CodeID,
				}
			}
			if newer.from != older.to+1 {
				return &InvariantError{
					Code: ErrCodeDateRange,
					Message: fmt.Sprintf(
						"gap or overlap between revisions %d and %d: %d does not follow %d",
						newer.rid, older.rid, newer.from, older.to),
					CodeID: first.CodeID,
				}
			}
		}

		// Downward containment per revision.
		for _, s := range slots {
			if err := e.checkChildrenCoverage(tx, s.rid, s.from, s.to); err != nil {
				return err
			}
		}

		// Upward containment: the item's new aggregate coverage against
		// every parent's recorded range.
		aggFrom, aggTo := slots[0].from, slots[0].to
		for _, s := range slots[1:] {
			if s.from < aggFrom {
				aggFrom = s.from
			}
			if s.to > aggTo {
				aggTo = s.to
			}
		}
		parents, err := e.parentDatesRange(tx, first.CodeID)
		if err != nil {
			return err
		}
		for _, p := range parents {
			if !coverageContains(aggFrom, aggTo, p.DateFromDays, p.DateToDays) {
				return &InvariantError{
					Code: ErrCodeDateRange,
					Message: fmt.Sprintf(
						"new coverage [%d, %d] no longer contains parent %s range [%d, %d]",
						aggFrom, aggTo, p.Code, p.DateFromDays, p.DateToDays),
					CodeID: first.CodeID,
				}
			}
		}

		for _, s := range slots {
			if err := tx.Exec(
				"UPDATE item_revisions SET date_from_days = ?, date_to_days = ?, iter = ? WHERE id = ?",
				s.from, s.to, s.newIter, s.rid); err != nil {
				return err
			}
		}
		return nil
	})
}
