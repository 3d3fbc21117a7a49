package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opline/bomcat/internal/backend"
)

// queryer is satisfied by both backend.Driver and *backend.Transaction,
// so the same row loaders serve reads and in-transaction checks.
type queryer interface {
	Query(stmt string, args ...any) (*backend.Rows, error)
}

// revisionColumns returns the select list for revision queries, joined
// against items for the code.
func (e *Engine) revisionColumns() string {
	cols := []string{
		"r.id AS id", "r.code_id AS code_id", "i.code AS code",
		"r.descr AS descr", "r.date_from_days AS date_from_days",
		"r.date_to_days AS date_to_days", "r.ver AS ver", "r.iter AS iter",
		"r.default_unit AS default_unit",
	}
	for _, c := range e.gvalCols() {
		cols = append(cols, "r."+c+" AS "+c)
	}
	return strings.Join(cols, ", ")
}

func (e *Engine) scanRevision(rows *backend.Rows, i int) Revision {
	r := Revision{
		ID:           rows.Int(i, "id"),
		CodeID:       rows.Int(i, "code_id"),
		Code:         rows.String(i, "code"),
		Descr:        rows.String(i, "descr"),
		DateFromDays: rows.Int(i, "date_from_days"),
		DateToDays:   rows.Int(i, "date_to_days"),
		Ver:          rows.String(i, "ver"),
		Iter:         rows.Int(i, "iter"),
		DefaultUnit:  rows.String(i, "default_unit"),
	}
	for _, c := range e.gvalCols() {
		r.GVals = append(r.GVals, rows.String(i, c))
	}
	return r
}

// GetCode looks up an item by id.
func (e *Engine) GetCode(codeID int) (*Code, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getCode(e.d, codeID)
}

func (e *Engine) getCode(q queryer, codeID int) (*Code, error) {
	rows, err := q.Query("SELECT id, code, descr FROM items WHERE id = ?", codeID)
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, notFound("item", codeID)
	}
	return &Code{ID: rows.Int(0, "id"), Code: rows.String(0, "code"), Descr: rows.String(0, "descr")}, nil
}

// GetCodeByRid looks up the item owning a revision.
func (e *Engine) GetCodeByRid(rid int) (*Code, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, err := e.d.Query(`SELECT i.id AS id, i.code AS code, i.descr AS descr
		FROM items i JOIN item_revisions r ON r.code_id = i.id
		WHERE r.id = ?`, rid)
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, notFound("revision", rid)
	}
	return &Code{ID: rows.Int(0, "id"), Code: rows.String(0, "code"), Descr: rows.String(0, "descr")}, nil
}

// GetCodesByCode returns items whose code matches exactly.
func (e *Engine) GetCodesByCode(code string) ([]Code, error) {
	return e.codesWhere("code = ?", code)
}

// GetCodesByLikeCode returns items whose code matches a LIKE pattern.
func (e *Engine) GetCodesByLikeCode(pattern string, caseSensitive bool) ([]Code, error) {
	if caseSensitive {
		return e.codesWhere("code LIKE ?", pattern)
	}
	return e.codesWhere("UPPER(code) LIKE UPPER(?)", pattern)
}

// GetCodesByLikeDescr returns items whose description matches a LIKE
// pattern.
func (e *Engine) GetCodesByLikeDescr(pattern string, caseSensitive bool) ([]Code, error) {
	if caseSensitive {
		return e.codesWhere("descr LIKE ?", pattern)
	}
	return e.codesWhere("UPPER(descr) LIKE UPPER(?)", pattern)
}

// GetCodesByLikeCodeAndDescr returns items matching both patterns.
func (e *Engine) GetCodesByLikeCodeAndDescr(codePattern, descrPattern string, caseSensitive bool) ([]Code, error) {
	if caseSensitive {
		return e.codesWhere("code LIKE ? AND descr LIKE ?", codePattern, descrPattern)
	}
	return e.codesWhere("UPPER(code) LIKE UPPER(?) AND UPPER(descr) LIKE UPPER(?)", codePattern, descrPattern)
}

func (e *Engine) codesWhere(cond string, args ...any) ([]Code, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, err := e.d.Query("SELECT id, code, descr FROM items WHERE "+cond+" ORDER BY code", args...)
	if err != nil {
		return nil, err
	}
	out := make([]Code, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		out = append(out, Code{ID: rows.Int(i, "id"), Code: rows.String(i, "code"), Descr: rows.String(i, "descr")})
	}
	return out, nil
}

// SearchOptions filters SearchRevisions. Empty pattern fields match
// everything; AsOfDays < 0 matches every date.
type SearchOptions struct {
	Code          string `json:"code"`
	Descr         string `json:"descr"`
	CaseSensitive bool   `json:"case_sensitive"`
	AsOfDays      int    `json:"as_of_days"`
}

// SearchRevisions returns revisions matching the options, newest first
// within each item.
func (e *Engine) SearchRevisions(opts SearchOptions) ([]Revision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var conds []string
	var args []any
	like := func(col, pattern string) {
		if opts.CaseSensitive {
			conds = append(conds, col+" LIKE ?")
		} else {
			conds = append(conds, "UPPER("+col+") LIKE UPPER(?)")
		}
		args = append(args, pattern)
	}
	if opts.Code != "" {
		like("i.code", opts.Code)
	}
	if opts.Descr != "" {
		like("r.descr", opts.Descr)
	}
	if opts.AsOfDays >= 0 {
		conds = append(conds, "r.date_from_days <= ? AND r.date_to_days >= ?")
		args = append(args, opts.AsOfDays, opts.AsOfDays)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := e.d.Query(fmt.Sprintf(
		"SELECT %s FROM item_revisions r JOIN items i ON i.id = r.code_id%s ORDER BY i.code, r.iter DESC",
		e.revisionColumns(), where), args...)
	if err != nil {
		return nil, err
	}
	out := make([]Revision, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		out = append(out, e.scanRevision(rows, i))
	}
	return out, nil
}

// getRevisionByRid loads one revision.
func (e *Engine) getRevisionByRid(q queryer, rid int) (*Revision, error) {
	rows, err := q.Query(fmt.Sprintf(
		"SELECT %s FROM item_revisions r JOIN items i ON i.id = r.code_id WHERE r.id = ?",
		e.revisionColumns()), rid)
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, notFound("revision", rid)
	}
	r := e.scanRevision(rows, 0)
	return &r, nil
}

// getHistory loads an item's full revision history, newest first
// (iteration descending).
func (e *Engine) getHistory(q queryer, codeID int) ([]Revision, error) {
	rows, err := q.Query(fmt.Sprintf(
		"SELECT %s FROM item_revisions r JOIN items i ON i.id = r.code_id WHERE r.code_id = ? ORDER BY r.iter DESC",
		e.revisionColumns()), codeID)
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, notFound("item", codeID)
	}
	out := make([]Revision, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		out = append(out, e.scanRevision(rows, i))
	}
	return out, nil
}

// getRevisionAt resolves the revision of an item covering a date.
func (e *Engine) getRevisionAt(q queryer, codeID, asOfDays int) (*Revision, error) {
	rows, err := q.Query(fmt.Sprintf(
		"SELECT %s FROM item_revisions r JOIN items i ON i.id = r.code_id WHERE r.code_id = ? AND r.date_from_days <= ? AND r.date_to_days >= ?",
		e.revisionColumns()), codeID, asOfDays, asOfDays)
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, &InvariantError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("no revision covers day %d", asOfDays),
			CodeID:  codeID,
		}
	}
	r := e.scanRevision(rows, 0)
	return &r, nil
}

// GetDatesByCodeID3 returns an item's date history, newest first.
func (e *Engine) GetDatesByCodeID3(codeID int) ([]RevisionDates, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	hist, err := e.getHistory(e.d, codeID)
	if err != nil {
		return nil, err
	}
	out := make([]RevisionDates, 0, len(hist))
	for _, r := range hist {
		out = append(out, RevisionDates{
			RID: r.ID, Ver: r.Ver, Iter: r.Iter,
			DateFromDays: r.DateFromDays, DateToDays: r.DateToDays,
		})
	}
	return out, nil
}

// GetChildrenByRid returns the assembly links of a revision, joined with
// each child's identity.
func (e *Engine) GetChildrenByRid(rid int) ([]Child, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getChildren(e.d, rid)
}

func (e *Engine) getChildren(q queryer, rid int) ([]Child, error) {
	cols := []string{
		"a.id AS id", "a.revision_id AS revision_id", "a.child_id AS child_id",
		"a.qty AS qty", "a.multiplier AS multiplier", "a.unit AS unit", "a.ref AS ref",
		"i.code AS child_code", "i.descr AS child_descr",
	}
	for _, c := range e.gavalCols() {
		cols = append(cols, "a."+c+" AS "+c)
	}
	rows, err := q.Query(fmt.Sprintf(
		"SELECT %s FROM assemblies a JOIN items i ON i.id = a.child_id WHERE a.revision_id = ? ORDER BY a.id",
		strings.Join(cols, ", ")), rid)
	if err != nil {
		return nil, err
	}
	out := make([]Child, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		c := Child{
			Link: Link{
				ID:         rows.Int(i, "id"),
				RevisionID: rows.Int(i, "revision_id"),
				ChildID:    rows.Int(i, "child_id"),
				Qty:        rows.Float(i, "qty"),
				Each:       rows.Float(i, "multiplier"),
				Unit:       rows.String(i, "unit"),
				Ref:        rows.String(i, "ref"),
			},
			ChildCode:  rows.String(i, "child_code"),
			ChildDescr: rows.String(i, "child_descr"),
		}
		for _, gc := range e.gavalCols() {
			c.GAVals = append(c.GAVals, rows.String(i, gc))
		}
		out = append(out, c)
	}
	return out, nil
}

// GetDrawingsByRid returns the documents attached to a revision.
func (e *Engine) GetDrawingsByRid(rid int) ([]Drawing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getDrawings(e.d, rid)
}

func (e *Engine) getDrawings(q queryer, rid int) ([]Drawing, error) {
	rows, err := q.Query(
		"SELECT id, revision_id, name, path FROM drawings WHERE revision_id = ? ORDER BY id", rid)
	if err != nil {
		return nil, err
	}
	out := make([]Drawing, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		out = append(out, Drawing{
			ID:         rows.Int(i, "id"),
			RevisionID: rows.Int(i, "revision_id"),
			Name:       rows.String(i, "name"),
			Path:       rows.String(i, "path"),
		})
	}
	return out, nil
}

// GetPropertiesByRid returns a revision's free-form properties.
func (e *Engine) GetPropertiesByRid(rid int) (map[string]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getProperties(e.d, rid)
}

func (e *Engine) getProperties(q queryer, rid int) (map[string]string, error) {
	rows, err := q.Query("SELECT name, value FROM item_properties WHERE revision_id = ?", rid)
	if err != nil {
		return nil, err
	}
	props := make(map[string]string, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		props[rows.String(i, "name")] = rows.String(i, "value")
	}
	return props, nil
}

// IsChild reports whether any assembly link references the item as a
// child, at any date.
func (e *Engine) IsChild(codeID int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isChild(e.d, codeID)
}

func (e *Engine) isChild(q queryer, codeID int) (bool, error) {
	rows, err := q.Query("SELECT COUNT(*) AS n FROM assemblies WHERE child_id = ?", codeID)
	if err != nil {
		return false, err
	}
	return rows.Int(0, "n") > 0, nil
}

// IsAssembly reports whether any of the item's revisions carries assembly
// links.
func (e *Engine) IsAssembly(codeID int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, err := e.d.Query(`SELECT COUNT(*) AS n FROM assemblies a
		JOIN item_revisions r ON r.id = a.revision_id
		WHERE r.code_id = ?`, codeID)
	if err != nil {
		return false, err
	}
	return rows.Int(0, "n") > 0, nil
}

// GetChildrenDatesRangeByRid returns, for each child of a revision, the
// child item's aggregate coverage (earliest date_from to latest date_to
// over its whole history). This is the downward half of the containment
// check.
func (e *Engine) GetChildrenDatesRangeByRid(rid int) ([]DatesRange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.childrenDatesRange(e.d, rid)
}

func (e *Engine) childrenDatesRange(q queryer, rid int) ([]DatesRange, error) {
	rows, err := q.Query(`SELECT i.id AS code_id, i.code AS code,
			MIN(r.date_from_days) AS date_from_days, MAX(r.date_to_days) AS date_to_days
		FROM assemblies a
		JOIN items i ON i.id = a.child_id
		JOIN item_revisions r ON r.code_id = a.child_id
		WHERE a.revision_id = ?
		GROUP BY i.id, i.code
		ORDER BY i.code`, rid)
	if err != nil {
		return nil, err
	}
	out := make([]DatesRange, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		out = append(out, DatesRange{
			CodeID:       rows.Int(i, "code_id"),
			Code:         rows.String(i, "code"),
			DateFromDays: rows.Int(i, "date_from_days"),
			DateToDays:   rows.Int(i, "date_to_days"),
		})
	}
	return out, nil
}

// GetParentDatesRangeByCodeID returns, for each parent revision that
// references the item, the parent's validity interval. This is the upward
// half of the containment check.
func (e *Engine) GetParentDatesRangeByCodeID(codeID int) ([]DatesRange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parentDatesRange(e.d, codeID)
}

func (e *Engine) parentDatesRange(q queryer, codeID int) ([]DatesRange, error) {
	rows, err := q.Query(`SELECT r.id AS rid, i.id AS code_id, i.code AS code,
			r.date_from_days AS date_from_days, r.date_to_days AS date_to_days
		FROM assemblies a
		JOIN item_revisions r ON r.id = a.revision_id
		JOIN items i ON i.id = r.code_id
		WHERE a.child_id = ?
		ORDER BY i.code, r.iter DESC`, codeID)
	if err != nil {
		return nil, err
	}
	out := make([]DatesRange, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		out = append(out, DatesRange{
			RID:          rows.Int(i, "rid"),
			CodeID:       rows.Int(i, "code_id"),
			Code:         rows.String(i, "code"),
			DateFromDays: rows.Int(i, "date_from_days"),
			DateToDays:   rows.Int(i, "date_to_days"),
		})
	}
	return out, nil
}

// sortedDays returns the keys of a day-count set in ascending order.
func sortedDays(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
