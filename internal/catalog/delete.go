package catalog

import (
	"fmt"

	"github.com/opline/bomcat/internal/backend"
	"github.com/opline/bomcat/internal/caldate"
)

// DeleteCodeRevision removes one revision and its links, documents and
// properties, then repairs the item's contiguity: the deleted interval is
// absorbed by the older neighbor (its date_to extends up), or by the
// newer neighbor's date_from when the oldest revision goes. Deleting a
// prototype needs no repair.
//
// Fails with LastRevisionError when the revision is the item's only one,
// and with PrototypeOnlyRemainingError when removing it would leave only
// the prototype behind.
func (e *Engine) DeleteCodeRevision(rid int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.inTransaction(func(tx *backend.Transaction) error {
		victim, err := e.getRevisionByRid(tx, rid)
		if err != nil {
			return err
		}
		hist, err := e.getHistory(tx, victim.CodeID)
		if err != nil {
			return err
		}

		if len(hist) == 1 {
			return &InvariantError{
				Code:    ErrCodeLastRevision,
				Message: "cannot delete an item's only revision",
				CodeID:  victim.CodeID,
				RID:     rid,
			}
		}
		if victim.Iter != caldate.PrototypeIter {
			remaining := 0
			for _, r := range hist {
				if r.ID != rid && r.Iter != caldate.PrototypeIter {
					remaining++
				}
			}
			if remaining == 0 {
				return &InvariantError{
					Code:    ErrCodePrototypeOnlyRemaining,
					Message: "deletion would leave only the prototype revision",
					CodeID:  victim.CodeID,
					RID:     rid,
				}
			}
		}

		// Repair contiguity. hist is iteration-descending, which for real
		// revisions is also date-descending.
		if victim.Iter != caldate.PrototypeIter {
			var pos int
			for i, r := range hist {
				if r.ID == rid {
					pos = i
					break
				}
			}
			switch {
			case pos+1 < len(hist) && hist[pos+1].Iter != caldate.PrototypeIter:
				// Older neighbor absorbs the gap upward.
				older := hist[pos+1]
				if err := tx.Exec(
					"UPDATE item_revisions SET date_to_days = ? WHERE id = ?",
					victim.DateToDays, older.ID); err != nil {
					return err
				}
			case pos > 0 && hist[pos-1].Iter != caldate.PrototypeIter:
				// Oldest revision going: the newer neighbor reaches down.
				newer := hist[pos-1]
				if err := tx.Exec(
					"UPDATE item_revisions SET date_from_days = ? WHERE id = ?",
					victim.DateFromDays, newer.ID); err != nil {
					return err
				}
			}
		}

		return e.deleteRevisionRows(tx, rid)
	})
}

// deleteRevisionRows cascades one revision's dependent rows, then the
// revision itself.
func (e *Engine) deleteRevisionRows(tx *backend.Transaction, rid int) error {
	for _, stmt := range []string{
		"DELETE FROM assemblies WHERE revision_id = ?",
		"DELETE FROM item_properties WHERE revision_id = ?",
		"DELETE FROM drawings WHERE revision_id = ?",
		"DELETE FROM item_revisions WHERE id = ?",
	} {
		if err := tx.Exec(stmt, rid); err != nil {
			return err
		}
	}
	return nil
}

// DeleteCode removes an item with its whole revision history and every
// dependent row. Fails with HasParentsError if any assembly anywhere
// still links the item as a child: parents must drop the link first.
func (e *Engine) DeleteCode(codeID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.inTransaction(func(tx *backend.Transaction) error {
		if _, err := e.getCode(tx, codeID); err != nil {
			return err
		}
		used, err := e.isChild(tx, codeID)
		if err != nil {
			return err
		}
		if used {
			return &InvariantError{
				Code:    ErrCodeHasParents,
				Message: fmt.Sprintf("item %d is still used by parent assemblies", codeID),
				CodeID:  codeID,
			}
		}

		for _, stmt := range []string{
			"DELETE FROM assemblies WHERE revision_id IN (SELECT id FROM item_revisions WHERE code_id = ?)",
			"DELETE FROM item_properties WHERE revision_id IN (SELECT id FROM item_revisions WHERE code_id = ?)",
			"DELETE FROM drawings WHERE revision_id IN (SELECT id FROM item_revisions WHERE code_id = ?)",
			"DELETE FROM item_revisions WHERE code_id = ?",
			"DELETE FROM items WHERE id = ?",
		} {
			if err := tx.Exec(stmt, codeID); err != nil {
				return err
			}
		}
		return nil
	})
}
