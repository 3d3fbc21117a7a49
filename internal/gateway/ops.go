package gateway

import (
	"encoding/json"

	"github.com/opline/bomcat/internal/catalog"
)

// readOps is the fixed allow-list callable by any authenticated
// connection.
var readOps = map[string]bool{
	"search_revisions":                  true,
	"get_config":                        true,
	"get_children_by_rid":               true,
	"get_bom_dates_by_code_id":          true,
	"get_drawings_by_rid":               true,
	"get_where_used_from_id_code":       true,
	"get_bom_by_code_id3":               true,
	"is_child":                          true,
	"is_assembly":                       true,
	"get_children_dates_range_by_rid":   true,
	"get_parent_dates_range_by_code_id": true,
	"get_dates_by_code_id3":             true,
	"get_codes_by_like_code_and_descr":  true,
	"get_codes_by_like_descr":           true,
	"get_codes_by_like_code":            true,
	"get_codes_by_code":                 true,
	"get_code_by_rid":                   true,
	"get_code":                          true,
	"dump_tables":                       true,
	"list_main_tables":                  true,
	"dump_table":                        true,
}

// writeOps is the fixed allow-list requiring a read-write credential.
var writeOps = map[string]bool{
	"delete_code_revision": true,
	"delete_code":          true,
	"update_dates":         true,
	"update_by_rid2":       true,
	"revise_code":          true,
	"copy_code":            true,
	"create_db":            true,
	"create_first_code":    true,
}

// Argument shapes. Every operation takes named arguments; day-counts
// travel as integers, snapshots as base64 (encoding/json's []byte form).

type ridArgs struct {
	RID int `json:"rid"`
}

type codeIDArgs struct {
	CodeID int `json:"code_id"`
}

type bomArgs struct {
	CodeID   int `json:"code_id"`
	AsOfDays int `json:"as_of_days"`
}

type whereUsedArgs struct {
	CodeID    int  `json:"code_id"`
	ValidOnly bool `json:"valid_only"`
	AsOfDays  int  `json:"as_of_days"`
}

type likeArgs struct {
	Code          string `json:"code,omitempty"`
	Descr         string `json:"descr,omitempty"`
	CaseSensitive bool   `json:"case_sensitive"`
}

type tableArgs struct {
	Name string `json:"name"`
}

type updateDatesArgs struct {
	Entries []catalog.RevisionDates `json:"entries"`
}

type updateByRidArgs struct {
	RID              int               `json:"rid"`
	Descr            string            `json:"descr"`
	Ver              string            `json:"ver"`
	Unit             string            `json:"unit"`
	GVals            []string          `json:"gvals"`
	Drawings         []catalog.Drawing `json:"drawings"`
	Links            []catalog.Link    `json:"links"`
	ExpectedSnapshot []byte            `json:"expected_snapshot,omitempty"`
}

type reviseArgs struct {
	RID             int    `json:"rid"`
	Descr           string `json:"descr"`
	Ver             string `json:"ver"`
	CopyProps       bool   `json:"copy_props"`
	CopyDocs        bool   `json:"copy_docs"`
	NewDateFromDays int    `json:"new_date_from_days"`
}

type copyArgs struct {
	NewCode         string `json:"new_code"`
	RID             int    `json:"rid"`
	Descr           string `json:"descr"`
	Ver             string `json:"ver"`
	CopyProps       bool   `json:"copy_props"`
	CopyDocs        bool   `json:"copy_docs"`
	NewDateFromDays int    `json:"new_date_from_days"`
}

type createDBArgs struct {
	GValsCount  int `json:"gvals_count"`
	GAValsCount int `json:"gavals_count"`
}

// Result shapes for operations returning more than one value.

type bomResult struct {
	Root  int                      `json:"root"`
	Nodes map[int]*catalog.BomNode `json:"nodes"`
}

type whereUsedResult struct {
	Roots []catalog.UsageKey                      `json:"roots"`
	Nodes map[catalog.UsageKey]*catalog.UsageNode `json:"nodes"`
}

type createdResult struct {
	CodeID int `json:"code_id"`
	RID    int `json:"rid"`
}

// call decodes the arguments, invokes the engine, and wraps the outcome.
func (s *Server) call(op string, args json.RawMessage) Response {
	decode := func(v any) *Response {
		if len(args) == 0 {
			return nil
		}
		if err := json.Unmarshal(args, v); err != nil {
			r := errResponse(&WireError{Code: codeBadRequest, Message: "malformed arguments for " + op})
			return &r
		}
		return nil
	}
	result := func(v any, err error) Response {
		if err != nil {
			return engineError(err)
		}
		return okResponse(v)
	}

	switch op {
	case "search_revisions":
		var in catalog.SearchOptions
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.SearchRevisions(in))

	case "get_config":
		return result(s.eng.GetConfig())

	case "get_children_by_rid":
		var in ridArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetChildrenByRid(in.RID))

	case "get_bom_dates_by_code_id":
		var in codeIDArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetBomDatesByCodeID(in.CodeID))

	case "get_drawings_by_rid":
		var in ridArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetDrawingsByRid(in.RID))

	case "get_where_used_from_id_code":
		var in whereUsedArgs
		if r := decode(&in); r != nil {
			return *r
		}
		roots, nodes, err := s.eng.GetWhereUsedFromIDCode(in.CodeID, in.ValidOnly, in.AsOfDays)
		return result(whereUsedResult{Roots: roots, Nodes: nodes}, err)

	case "get_bom_by_code_id3":
		var in bomArgs
		if r := decode(&in); r != nil {
			return *r
		}
		root, nodes, err := s.eng.GetBomByCodeID3(in.CodeID, in.AsOfDays)
		return result(bomResult{Root: root, Nodes: nodes}, err)

	case "is_child":
		var in codeIDArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.IsChild(in.CodeID))

	case "is_assembly":
		var in codeIDArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.IsAssembly(in.CodeID))

	case "get_children_dates_range_by_rid":
		var in ridArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetChildrenDatesRangeByRid(in.RID))

	case "get_parent_dates_range_by_code_id":
		var in codeIDArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetParentDatesRangeByCodeID(in.CodeID))

	case "get_dates_by_code_id3":
		var in codeIDArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetDatesByCodeID3(in.CodeID))

	case "get_codes_by_like_code_and_descr":
		var in likeArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetCodesByLikeCodeAndDescr(in.Code, in.Descr, in.CaseSensitive))

	case "get_codes_by_like_descr":
		var in likeArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetCodesByLikeDescr(in.Descr, in.CaseSensitive))

	case "get_codes_by_like_code":
		var in likeArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetCodesByLikeCode(in.Code, in.CaseSensitive))

	case "get_codes_by_code":
		var in likeArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetCodesByCode(in.Code))

	case "get_code_by_rid":
		var in ridArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetCodeByRid(in.RID))

	case "get_code":
		var in codeIDArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.GetCode(in.CodeID))

	case "dump_tables":
		return result(s.eng.DumpTables())

	case "list_main_tables":
		return okResponse(s.eng.ListMainTables())

	case "dump_table":
		var in tableArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(s.eng.DumpTable(in.Name))

	case "delete_code_revision":
		var in ridArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(struct{}{}, s.eng.DeleteCodeRevision(in.RID))

	case "delete_code":
		var in codeIDArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(struct{}{}, s.eng.DeleteCode(in.CodeID))

	case "update_dates":
		var in updateDatesArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(struct{}{}, s.eng.UpdateDates(in.Entries))

	case "update_by_rid2":
		var in updateByRidArgs
		if r := decode(&in); r != nil {
			return *r
		}
		err := s.eng.UpdateByRid2(in.RID, in.Descr, in.Ver, in.Unit,
			in.GVals, in.Drawings, in.Links, in.ExpectedSnapshot)
		return result(struct{}{}, err)

	case "revise_code":
		var in reviseArgs
		if r := decode(&in); r != nil {
			return *r
		}
		rid, err := s.eng.ReviseCode(in.RID, in.Descr, in.Ver, in.CopyProps, in.CopyDocs, in.NewDateFromDays)
		return result(ridArgs{RID: rid}, err)

	case "copy_code":
		var in copyArgs
		if r := decode(&in); r != nil {
			return *r
		}
		codeID, rid, err := s.eng.CopyCode(in.NewCode, in.RID, in.Descr, in.Ver,
			in.CopyProps, in.CopyDocs, in.NewDateFromDays)
		return result(createdResult{CodeID: codeID, RID: rid}, err)

	case "create_db":
		var in createDBArgs
		if r := decode(&in); r != nil {
			return *r
		}
		return result(struct{}{}, s.eng.CreateDB(in.GValsCount, in.GAValsCount))

	case "create_first_code":
		codeID, rid, err := s.eng.CreateFirstCode()
		return result(createdResult{CodeID: codeID, RID: rid}, err)
	}

	// dispatch checked the allow-lists already; reaching here is a bug.
	return errResponse(&WireError{Code: codeInternal, Message: "unhandled operation " + op})
}
