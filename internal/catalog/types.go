package catalog

import "fmt"

// Code is a catalog item: a unique textual code anchoring a history of
// revisions. Codes are immutable once created; "renaming" means creating
// a new item.
type Code struct {
	ID    int    `json:"id"`
	Code  string `json:"code"`
	Descr string `json:"descr"`
}

// Revision is one dated version of an item's attributes, valid over the
// inclusive day-count interval [DateFromDays, DateToDays].
type Revision struct {
	ID     int    `json:"id"`
	CodeID int    `json:"code_id"`
	Code   string `json:"code"`
	Descr  string `json:"descr"`

	DateFromDays int `json:"date_from_days"`
	DateToDays   int `json:"date_to_days"`

	// Iter is the monotonic per-item sequence number; the reserved
	// prototype iteration marks an unshipped revision.
	Iter int `json:"iter"`

	// Ver is the free-form version label ("A", "0", "1").
	Ver string `json:"ver"`

	DefaultUnit string `json:"default_unit"`

	// GVals are the deployment-configurable generic attribute slots.
	GVals []string `json:"gvals"`
}

// Link is an assembly link: a quantity-bearing reference from a parent
// revision to a child item. The applicable child revision is resolved at
// query time against the child's own validity history.
type Link struct {
	ID         int     `json:"id"`
	RevisionID int     `json:"revision_id"`
	ChildID    int     `json:"child_id"`
	Qty        float64 `json:"qty"`
	Each       float64 `json:"each"`
	Unit       string  `json:"unit"`
	Ref        string  `json:"ref"`

	// GAVals are the link-level generic attribute slots.
	GAVals []string `json:"gavals"`
}

// Child is a link joined with its child item's identity, as returned by
// GetChildrenByRid.
type Child struct {
	Link
	ChildCode  string `json:"child_code"`
	ChildDescr string `json:"child_descr"`
}

// Drawing is a document attached to a revision: a display name plus a
// filename or URL.
type Drawing struct {
	ID         int    `json:"id"`
	RevisionID int    `json:"revision_id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
}

// DatesRange is an aggregate validity range, used both for a child's
// coverage (min date_from to max date_to over its revisions) and for a
// parent's recorded range.
type DatesRange struct {
	CodeID       int    `json:"code_id"`
	Code         string `json:"code"`
	RID          int    `json:"rid,omitempty"`
	DateFromDays int    `json:"date_from_days"`
	DateToDays   int    `json:"date_to_days"`
}

// RevisionDates is one row of an item's date history, as passed to
// UpdateDates and returned by GetDatesByCodeID3.
type RevisionDates struct {
	RID          int    `json:"rid"`
	Ver          string `json:"ver"`
	Iter         int    `json:"iter"`
	DateFromDays int    `json:"date_from_days"`
	DateToDays   int    `json:"date_to_days"`
}

// BomNode is one node of an exploded bill of materials: a revision plus
// its resolved dependencies. Nodes are keyed by revision id.
type BomNode struct {
	RID          int      `json:"rid"`
	CodeID       int      `json:"code_id"`
	Code         string   `json:"code"`
	Descr        string   `json:"descr"`
	Ver          string   `json:"ver"`
	Iter         int      `json:"iter"`
	Unit         string   `json:"unit"`
	DateFromDays int      `json:"date_from_days"`
	DateToDays   int      `json:"date_to_days"`
	GVals        []string `json:"gvals"`

	// Deps maps child node key (revision id) to the link attributes.
	Deps map[int]BomDep `json:"deps"`
}

// BomDep carries the link attributes of one parent-to-child edge in an
// exploded BOM.
type BomDep struct {
	Qty    float64  `json:"qty"`
	Each   float64  `json:"each"`
	Unit   string   `json:"unit"`
	Ref    string   `json:"ref"`
	GAVals []string `json:"gavals"`
}

// UsageKey identifies a node in a where-used closure. The same item can
// appear at several historical dates simultaneously, so nodes are keyed
// by (item, date_from).
type UsageKey struct {
	CodeID       int `json:"code_id"`
	DateFromDays int `json:"date_from_days"`
}

// MarshalText renders the key as "codeID@dateFrom" so it can serve as a
// JSON map key on the gateway wire.
func (k UsageKey) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d@%d", k.CodeID, k.DateFromDays)), nil
}

// UnmarshalText parses the "codeID@dateFrom" form.
func (k *UsageKey) UnmarshalText(b []byte) error {
	_, err := fmt.Sscanf(string(b), "%d@%d", &k.CodeID, &k.DateFromDays)
	return err
}

// UsageNode is one node of a where-used closure: an item slice valid over
// an interval, plus every parent slice that references it.
type UsageNode struct {
	Key          UsageKey `json:"key"`
	Code         string   `json:"code"`
	Descr        string   `json:"descr"`
	Ver          string   `json:"ver"`
	Iter         int      `json:"iter"`
	RID          int      `json:"rid"`
	DateFromDays int      `json:"date_from_days"`
	DateToDays   int      `json:"date_to_days"`

	// Parents maps parent node keys to the link attributes of the edge.
	Parents map[UsageKey]BomDep `json:"parents"`
}
