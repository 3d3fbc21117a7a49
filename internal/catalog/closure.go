package catalog

import (
	"github.com/opline/bomcat/internal/caldate"
)

// GetBomByCodeID3 explodes an item's bill of materials as of a date.
//
// Starting at the revision of codeID covering asOfDays, every assembly
// link is resolved to the child revision covering the same date,
// producing one node per distinct revision id. The traversal is cycle
// safe: a revision already present in the node map is linked to but not
// re-expanded. The result is fully materialized and one-shot.
//
// Returns the root node key (revision id) and the node map.
func (e *Engine) GetBomByCodeID3(codeID, asOfDays int) (int, map[int]*BomNode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	root, err := e.getRevisionAt(e.d, codeID, asOfDays)
	if err != nil {
		return 0, nil, err
	}
	nodes := make(map[int]*BomNode)
	if err := e.explode(root, asOfDays, nodes); err != nil {
		return 0, nil, err
	}
	return root.ID, nodes, nil
}

func (e *Engine) explode(r *Revision, asOfDays int, nodes map[int]*BomNode) error {
	if _, seen := nodes[r.ID]; seen {
		return nil
	}
	node := &BomNode{
		RID:          r.ID,
		CodeID:       r.CodeID,
		Code:         r.Code,
		Descr:        r.Descr,
		Ver:          r.Ver,
		Iter:         r.Iter,
		Unit:         r.DefaultUnit,
		DateFromDays: r.DateFromDays,
		DateToDays:   r.DateToDays,
		GVals:        r.GVals,
		Deps:         make(map[int]BomDep),
	}
	// Insert before descending so a cycle terminates at the revisit.
	nodes[r.ID] = node

	children, err := e.getChildren(e.d, r.ID)
	if err != nil {
		return err
	}
	for _, c := range children {
		childRev, err := e.resolveChildAt(c.ChildID, asOfDays)
		if err != nil {
			return err
		}
		node.Deps[childRev.ID] = BomDep{
			Qty:    c.Qty,
			Each:   c.Each,
			Unit:   c.Unit,
			Ref:    c.Ref,
			GAVals: c.GAVals,
		}
		if err := e.explode(childRev, asOfDays, nodes); err != nil {
			return err
		}
	}
	return nil
}

// resolveChildAt finds the child revision applicable at a date. When the
// date is a sentinel (exploding a prototype or an open-ended view) and
// the child has no revision that far out, the child's newest revision
// applies instead.
func (e *Engine) resolveChildAt(childID, asOfDays int) (*Revision, error) {
	r, err := e.getRevisionAt(e.d, childID, asOfDays)
	if err == nil {
		return r, nil
	}
	if asOfDays >= caldate.EndOfTime && IsNotFoundError(err) {
		hist, herr := e.getHistory(e.d, childID)
		if herr != nil {
			return nil, herr
		}
		return &hist[0], nil
	}
	return nil, err
}

// GetWhereUsedFromIDCode builds the ancestor closure of an item: every
// parent slice whose validity overlaps one of the item's own slices,
// transitively.
//
// In validOnly mode only the single slice covering asOfDays is
// considered, and only parents themselves valid at that date appear —
// superseded and not-yet-effective parents are excluded. Otherwise the
// traversal starts from the item's whole history.
//
// Nodes are keyed by (item, date_from) since the same item can appear at
// several historical dates at once. Cycle defense mirrors the explode
// side: a visited key is linked to, never re-expanded.
//
// Returns the root keys (the starting slices of the item) and the node
// map.
func (e *Engine) GetWhereUsedFromIDCode(codeID int, validOnly bool, asOfDays int) ([]UsageKey, map[UsageKey]*UsageNode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var start []Revision
	if validOnly {
		r, err := e.getRevisionAt(e.d, codeID, asOfDays)
		if err != nil {
			return nil, nil, err
		}
		start = []Revision{*r}
	} else {
		hist, err := e.getHistory(e.d, codeID)
		if err != nil {
			return nil, nil, err
		}
		start = hist
	}

	nodes := make(map[UsageKey]*UsageNode)
	roots := make([]UsageKey, 0, len(start))
	for _, r := range start {
		key, err := e.ascend(r, validOnly, asOfDays, nodes)
		if err != nil {
			return nil, nil, err
		}
		roots = append(roots, key)
	}
	return roots, nodes, nil
}

func (e *Engine) ascend(r Revision, validOnly bool, asOfDays int, nodes map[UsageKey]*UsageNode) (UsageKey, error) {
	key := UsageKey{CodeID: r.CodeID, DateFromDays: r.DateFromDays}
	if _, seen := nodes[key]; seen {
		return key, nil
	}
	node := &UsageNode{
		Key:          key,
		Code:         r.Code,
		Descr:        r.Descr,
		Ver:          r.Ver,
		Iter:         r.Iter,
		RID:          r.ID,
		DateFromDays: r.DateFromDays,
		DateToDays:   r.DateToDays,
		Parents:      make(map[UsageKey]BomDep),
	}
	nodes[key] = node

	parents, err := e.parentSlices(r.CodeID, r.DateFromDays, r.DateToDays, validOnly, asOfDays)
	if err != nil {
		return key, err
	}
	for _, p := range parents {
		pkey, err := e.ascend(p.rev, validOnly, asOfDays, nodes)
		if err != nil {
			return key, err
		}
		node.Parents[pkey] = p.dep
	}
	return key, nil
}

type parentSlice struct {
	rev Revision
	dep BomDep
}

// parentSlices finds every parent revision whose interval overlaps
// [fromDays, toDays] and which links the item as a child.
func (e *Engine) parentSlices(childID, fromDays, toDays int, validOnly bool, asOfDays int) ([]parentSlice, error) {
	cond := "a.child_id = ? AND r.date_from_days <= ? AND r.date_to_days >= ?"
	args := []any{childID, toDays, fromDays}
	if validOnly {
		cond += " AND r.date_from_days <= ? AND r.date_to_days >= ?"
		args = append(args, asOfDays, asOfDays)
	}

	cols := e.revisionColumns() +
		", a.qty AS qty, a.multiplier AS multiplier, a.unit AS link_unit, a.ref AS ref"
	for _, c := range e.gavalCols() {
		cols += ", a." + c + " AS " + c
	}
	rows, err := e.d.Query(
		"SELECT "+cols+" FROM assemblies a"+
			" JOIN item_revisions r ON r.id = a.revision_id"+
			" JOIN items i ON i.id = r.code_id"+
			" WHERE "+cond+" ORDER BY r.id", args...)
	if err != nil {
		return nil, err
	}
	out := make([]parentSlice, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		dep := BomDep{
			Qty:  rows.Float(i, "qty"),
			Each: rows.Float(i, "multiplier"),
			Unit: rows.String(i, "link_unit"),
			Ref:  rows.String(i, "ref"),
		}
		for _, gc := range e.gavalCols() {
			dep.GAVals = append(dep.GAVals, rows.String(i, gc))
		}
		out = append(out, parentSlice{rev: e.scanRevision(rows, i), dep: dep})
	}
	return out, nil
}

// GetBomDatesByCodeID collects every distinct date_from at or after the
// item's own earliest date across its entire descendant closure. The
// result populates "explode as of" date pickers. Dates, not revisions,
// are deduplicated; the item graph is walked once with a visited-item
// set.
func (e *Engine) GetBomDatesByCodeID(codeID int) ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	hist, err := e.getHistory(e.d, codeID)
	if err != nil {
		return nil, err
	}
	earliest := hist[len(hist)-1].DateFromDays
	for _, r := range hist {
		if r.DateFromDays < earliest {
			earliest = r.DateFromDays
		}
	}

	dates := make(map[int]bool)
	visited := make(map[int]bool)
	if err := e.collectDates(codeID, earliest, dates, visited); err != nil {
		return nil, err
	}
	return sortedDays(dates), nil
}

func (e *Engine) collectDates(codeID, earliest int, dates, visited map[int]bool) error {
	if visited[codeID] {
		return nil
	}
	visited[codeID] = true

	rows, err := e.d.Query(
		"SELECT date_from_days FROM item_revisions WHERE code_id = ?", codeID)
	if err != nil {
		return err
	}
	for i := 0; i < rows.Len(); i++ {
		if d := rows.Int(i, "date_from_days"); d >= earliest {
			dates[d] = true
		}
	}

	children, err := e.d.Query(`SELECT DISTINCT a.child_id AS child_id
		FROM assemblies a
		JOIN item_revisions r ON r.id = a.revision_id
		WHERE r.code_id = ?`, codeID)
	if err != nil {
		return err
	}
	for i := 0; i < children.Len(); i++ {
		if err := e.collectDates(children.Int(i, "child_id"), earliest, dates, visited); err != nil {
			return err
		}
	}
	return nil
}
