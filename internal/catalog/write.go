package catalog

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/opline/bomcat/internal/backend"
	"github.com/opline/bomcat/internal/caldate"
)

// coverageContains reports whether a child's aggregate coverage [cf, ct]
// contains a parent interval [pf, pt]. A prototype parent is satisfied by
// any open-ended child: the prototype pseudo-date sits above every real
// date, so the only meaningful requirement is that the child does not
// expire.
func coverageContains(cf, ct, pf, pt int) bool {
	if pf >= caldate.PrototypeDate {
		return ct >= caldate.EndOfTime
	}
	return cf <= pf && pt <= ct
}

// newInterval derives the validity interval and iteration for a revision
// starting at newDateFrom. The prototype pseudo-date yields the
// degenerate prototype interval and the reserved iteration.
func newInterval(newDateFrom int) (from, to, iter int) {
	if newDateFrom >= caldate.PrototypeDate {
		return caldate.PrototypeDate, caldate.PrototypeDate, caldate.PrototypeIter
	}
	return newDateFrom, caldate.EndOfTime, 0
}

// checkChildrenCoverage verifies the downward half of the containment
// invariant: every child linked from srcRID must cover [pf, pt].
func (e *Engine) checkChildrenCoverage(tx *backend.Transaction, srcRID, pf, pt int) error {
	ranges, err := e.childrenDatesRange(tx, srcRID)
	if err != nil {
		return err
	}
	for _, cr := range ranges {
		if !coverageContains(cr.DateFromDays, cr.DateToDays, pf, pt) {
			return &InvariantError{
				Code: ErrCodeDateRange,
				Message: fmt.Sprintf(
					"child %s covers [%d, %d], which does not contain [%d, %d]",
					cr.Code, cr.DateFromDays, cr.DateToDays, pf, pt),
				CodeID: cr.CodeID,
			}
		}
	}
	return nil
}

// copyLinks clones srcRID's assembly links onto dstRID.
func (e *Engine) copyLinks(tx *backend.Transaction, srcRID, dstRID int) error {
	children, err := e.getChildren(tx, srcRID)
	if err != nil {
		return err
	}
	nextID, err := e.nextID(tx, "assemblies")
	if err != nil {
		return err
	}
	for _, c := range children {
		l := c.Link
		l.ID = nextID
		l.RevisionID = dstRID
		nextID++
		if err := e.insertLink(tx, l); err != nil {
			return err
		}
	}
	return nil
}

// copyProperties clones srcRID's properties onto dstRID.
func (e *Engine) copyProperties(tx *backend.Transaction, srcRID, dstRID int) error {
	props, err := e.getProperties(tx, srcRID)
	if err != nil {
		return err
	}
	nextID, err := e.nextID(tx, "item_properties")
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(props) {
		if err := tx.Exec(
			"INSERT INTO item_properties (id, revision_id, name, value) VALUES (?, ?, ?, ?)",
			nextID, dstRID, name, props[name]); err != nil {
			return err
		}
		nextID++
	}
	return nil
}

// copyDrawings clones srcRID's documents onto dstRID.
func (e *Engine) copyDrawings(tx *backend.Transaction, srcRID, dstRID int) error {
	drawings, err := e.getDrawings(tx, srcRID)
	if err != nil {
		return err
	}
	nextID, err := e.nextID(tx, "drawings")
	if err != nil {
		return err
	}
	for _, d := range drawings {
		if err := tx.Exec(
			"INSERT INTO drawings (id, revision_id, name, path) VALUES (?, ?, ?, ?)",
			nextID, dstRID, d.Name, d.Path); err != nil {
			return err
		}
		nextID++
	}
	return nil
}

// CopyCode creates a new item whose first revision clones srcRID's
// attributes and assembly links (and optionally its properties and
// documents).
//
// Fails with DuplicateCodeError if newCode exists, and with
// DateRangeError if any of the source's children would not cover the new
// revision's interval — checked before any write. A prototype start date
// produces a prototype first revision.
//
// Returns the new item id and revision id.
func (e *Engine) CopyCode(newCode string, srcRID int, descr, ver string, copyProps, copyDocs bool, newDateFrom int) (codeID, rid int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	err = e.inTransaction(func(tx *backend.Transaction) error {
		existing, err := tx.Query("SELECT id FROM items WHERE code = ?", newCode)
		if err != nil {
			return err
		}
		if existing.Len() > 0 {
			return &InvariantError{
				Code:    ErrCodeDuplicateCode,
				Message: fmt.Sprintf("code %q already exists", newCode),
				CodeID:  existing.Int(0, "id"),
			}
		}

		src, err := e.getRevisionByRid(tx, srcRID)
		if err != nil {
			return err
		}

		pf, pt, iter := newInterval(newDateFrom)
		if err := e.checkChildrenCoverage(tx, srcRID, pf, pt); err != nil {
			return err
		}

		codeID, err = e.nextID(tx, "items")
		if err != nil {
			return err
		}
		if err := tx.Exec("INSERT INTO items (id, code, descr) VALUES (?, ?, ?)",
			codeID, newCode, descr); err != nil {
			return err
		}

		rid, err = e.nextID(tx, "item_revisions")
		if err != nil {
			return err
		}
		if err := e.insertRevision(tx, Revision{
			ID:           rid,
			CodeID:       codeID,
			Descr:        descr,
			DateFromDays: pf,
			DateToDays:   pt,
			Iter:         iter,
			Ver:          ver,
			DefaultUnit:  src.DefaultUnit,
			GVals:        src.GVals,
		}); err != nil {
			return err
		}

		if err := e.copyLinks(tx, srcRID, rid); err != nil {
			return err
		}
		if copyProps {
			if err := e.copyProperties(tx, srcRID, rid); err != nil {
				return err
			}
		}
		if copyDocs {
			if err := e.copyDrawings(tx, srcRID, rid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return codeID, rid, nil
}

// ReviseCode appends a new revision to the item owning srcRID, closing
// the previously newest non-superseded revision at newDateFrom - 1.
//
// Three histories are handled:
//
//   - newest is a prototype with real history below it: the new revision
//     continues the real chain (prior iteration + 1) and the prototype
//     stays on top;
//   - newest is a lone prototype: the new revision is iteration 0, the
//     item's first real revision;
//   - ordinary: iteration newest+1.
//
// A prototype start date creates a prototype revision instead; a second
// prototype fails with DuplicatePrototypeError. A start date at or before
// the chain's newest start fails with DateOrderError. Children of srcRID
// must cover the new interval (DateRangeError).
//
// Returns the new revision id.
func (e *Engine) ReviseCode(srcRID int, descr, ver string, copyProps, copyDocs bool, newDateFrom int) (rid int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	err = e.inTransaction(func(tx *backend.Transaction) error {
		src, err := e.getRevisionByRid(tx, srcRID)
		if err != nil {
			return err
		}
		hist, err := e.getHistory(tx, src.CodeID)
		if err != nil {
			return err
		}
		newest := hist[0]

		var pf, pt, iter int
		var closeRID int // revision whose date_to gets closed, 0 for none

		if newDateFrom >= caldate.PrototypeDate {
			if newest.Iter == caldate.PrototypeIter {
				return &InvariantError{
					Code:    ErrCodeDuplicatePrototype,
					Message: "item already has a prototype revision",
					CodeID:  src.CodeID,
				}
			}
			pf, pt, iter = caldate.PrototypeDate, caldate.PrototypeDate, caldate.PrototypeIter
		} else {
			pf, pt = newDateFrom, caldate.EndOfTime
			switch {
			case newest.Iter == caldate.PrototypeIter && len(hist) >= 2:
				prior := hist[1]
				if newDateFrom <= prior.DateFromDays {
					return &InvariantError{
						Code: ErrCodeDateOrder,
						Message: fmt.Sprintf(
							"new start day %d must follow the newest start day %d",
							newDateFrom, prior.DateFromDays),
						CodeID: src.CodeID,
					}
				}
				iter = prior.Iter + 1
				closeRID = prior.ID
			case newest.Iter == caldate.PrototypeIter:
				iter = 0 // lone prototype: first real revision
			default:
				if newDateFrom <= newest.DateFromDays {
					return &InvariantError{
						Code: ErrCodeDateOrder,
						Message: fmt.Sprintf(
							"new start day %d must follow the newest start day %d",
							newDateFrom, newest.DateFromDays),
						CodeID: src.CodeID,
					}
				}
				iter = newest.Iter + 1
				closeRID = newest.ID
			}
		}

		if err := e.checkChildrenCoverage(tx, srcRID, pf, pt); err != nil {
			return err
		}

		if closeRID != 0 {
			if err := tx.Exec("UPDATE item_revisions SET date_to_days = ? WHERE id = ?",
				newDateFrom-1, closeRID); err != nil {
				return err
			}
		}

		rid, err = e.nextID(tx, "item_revisions")
		if err != nil {
			return err
		}
		if err := e.insertRevision(tx, Revision{
			ID:           rid,
			CodeID:       src.CodeID,
			Descr:        descr,
			DateFromDays: pf,
			DateToDays:   pt,
			Iter:         iter,
			Ver:          ver,
			DefaultUnit:  src.DefaultUnit,
			GVals:        src.GVals,
		}); err != nil {
			return err
		}

		if err := e.copyLinks(tx, srcRID, rid); err != nil {
			return err
		}
		if copyProps {
			if err := e.copyProperties(tx, srcRID, rid); err != nil {
				return err
			}
		}
		if copyDocs {
			if err := e.copyDrawings(tx, srcRID, rid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rid, nil
}

// ExportSnapshot serializes a revision's editable state (attributes,
// links, documents, properties) to canonical JSON. Callers that intend to
// edit pass this snapshot back to UpdateByRid2, which compares it
// byte-for-byte against the then-current state.
func (e *Engine) ExportSnapshot(rid int) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(e.d, rid)
}

func (e *Engine) snapshot(q queryer, rid int) ([]byte, error) {
	r, err := e.getRevisionByRid(q, rid)
	if err != nil {
		return nil, err
	}
	children, err := e.getChildren(q, rid)
	if err != nil {
		return nil, err
	}
	drawings, err := e.getDrawings(q, rid)
	if err != nil {
		return nil, err
	}
	props, err := e.getProperties(q, rid)
	if err != nil {
		return nil, err
	}

	links := make([]any, 0, len(children))
	for _, c := range children {
		links = append(links, map[string]any{
			"child_id": c.ChildID,
			"qty":      c.Qty,
			"each":     c.Each,
			"unit":     c.Unit,
			"ref":      c.Ref,
			"gavals":   c.GAVals,
		})
	}
	docs := make([]any, 0, len(drawings))
	for _, d := range drawings {
		docs = append(docs, map[string]any{"name": d.Name, "path": d.Path})
	}

	// map keys are marshaled in sorted order, which makes the snapshot
	// deterministic and the byte comparison meaningful.
	return marshalCanonical(map[string]any{
		"descr":      r.Descr,
		"ver":        r.Ver,
		"unit":       r.DefaultUnit,
		"gvals":      r.GVals,
		"links":      links,
		"drawings":   docs,
		"properties": props,
	})
}

// UpdateByRid2 replaces a revision's attributes, assembly links and
// documents in place. Dates and iteration are never touched here; those
// change only through UpdateDates.
//
// If expectedSnapshot is non-nil it must equal the revision's current
// ExportSnapshot byte-for-byte, otherwise the call fails with
// ConcurrentModificationError without writing. New links are containment
// checked against each child's coverage (DateRangeError).
func (e *Engine) UpdateByRid2(rid int, descr, ver, unit string, gvals []string, drawings []Drawing, links []Link, expectedSnapshot []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.inTransaction(func(tx *backend.Transaction) error {
		cur, err := e.getRevisionByRid(tx, rid)
		if err != nil {
			return err
		}

		if expectedSnapshot != nil {
			current, err := e.snapshot(tx, rid)
			if err != nil {
				return err
			}
			if !bytes.Equal(current, expectedSnapshot) {
				return &InvariantError{
					Code:    ErrCodeConcurrentModification,
					Message: "revision changed since the snapshot was taken",
					RID:     rid,
				}
			}
		}

		// Downward containment for the new link set.
		for _, l := range links {
			cf, ct, err := e.childCoverage(tx, l.ChildID)
			if err != nil {
				return err
			}
			if !coverageContains(cf, ct, cur.DateFromDays, cur.DateToDays) {
				return &InvariantError{
					Code: ErrCodeDateRange,
					Message: fmt.Sprintf(
						"child %d covers [%d, %d], which does not contain [%d, %d]",
						l.ChildID, cf, ct, cur.DateFromDays, cur.DateToDays),
					CodeID: l.ChildID,
				}
			}
		}

		sets := []string{"descr = ?", "ver = ?", "default_unit = ?"}
		args := []any{descr, ver, unit}
		gv := padSlots(gvals, e.gvalsCount)
		for i, c := range e.gvalCols() {
			sets = append(sets, c+" = ?")
			args = append(args, gv[i])
		}
		args = append(args, rid)
		if err := tx.Exec(
			"UPDATE item_revisions SET "+strings.Join(sets, ", ")+" WHERE id = ?",
			args...); err != nil {
			return err
		}

		if err := tx.Exec("DELETE FROM assemblies WHERE revision_id = ?", rid); err != nil {
			return err
		}
		linkID, err := e.nextID(tx, "assemblies")
		if err != nil {
			return err
		}
		for _, l := range links {
			l.ID = linkID
			l.RevisionID = rid
			linkID++
			if err := e.insertLink(tx, l); err != nil {
				return err
			}
		}

		if err := tx.Exec("DELETE FROM drawings WHERE revision_id = ?", rid); err != nil {
			return err
		}
		drawingID, err := e.nextID(tx, "drawings")
		if err != nil {
			return err
		}
		for _, d := range drawings {
			if err := tx.Exec(
				"INSERT INTO drawings (id, revision_id, name, path) VALUES (?, ?, ?, ?)",
				drawingID, rid, d.Name, d.Path); err != nil {
				return err
			}
			drawingID++
		}
		return nil
	})
}

// childCoverage returns an item's aggregate coverage.
func (e *Engine) childCoverage(q queryer, childID int) (cf, ct int, err error) {
	rows, err := q.Query(
		"SELECT MIN(date_from_days) AS cf, MAX(date_to_days) AS ct FROM item_revisions WHERE code_id = ?",
		childID)
	if err != nil {
		return 0, 0, err
	}
	if rows.Len() == 0 || rows.Values[0][0] == "" {
		return 0, 0, notFound("item", childID)
	}
	return rows.Int(0, "cf"), rows.Int(0, "ct"), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
