package gateway

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/opline/bomcat/internal/catalog"
)

// Client is a remote proxy over one gateway connection. Its methods
// mirror the engine's operation surface, so callers can be written
// against either. Application errors come back typed by code via
// *WireError; framing failures make the connection unusable.
//
// A Client serializes its own calls: the protocol has no request ids, so
// requests and responses must alternate strictly.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to a gateway server.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("gateway dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// call performs one request/response exchange. out may be nil for
// operations with no meaningful result.
func (c *Client) call(op string, args any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := Request{Op: op}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("gateway %s: %w", op, err)
		}
		req.Args = raw
	}
	payload, err := json.Marshal(&req)
	if err != nil {
		return fmt.Errorf("gateway %s: %w", op, err)
	}
	if err := WriteFrame(c.conn, payload); err != nil {
		return err
	}

	respPayload, err := ReadFrame(c.conn)
	if err != nil {
		return err
	}
	var resp Response
	if err := json.Unmarshal(respPayload, &resp); err != nil {
		return fmt.Errorf("gateway %s: malformed response: %w", op, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("gateway %s: malformed result: %w", op, err)
		}
	}
	return nil
}

// Login authenticates the connection. The granted role decides whether
// write operations are allowed afterwards.
func (c *Client) Login(user, password string) (Role, error) {
	var out struct {
		Role Role `json:"role"`
	}
	if err := c.call("login", loginArgs{User: user, Password: password}, &out); err != nil {
		return "", err
	}
	return out.Role, nil
}

func (c *Client) SearchRevisions(opts catalog.SearchOptions) ([]catalog.Revision, error) {
	var out []catalog.Revision
	err := c.call("search_revisions", opts, &out)
	return out, err
}

func (c *Client) GetConfig() (map[string]string, error) {
	var out map[string]string
	err := c.call("get_config", nil, &out)
	return out, err
}

func (c *Client) GetChildrenByRid(rid int) ([]catalog.Child, error) {
	var out []catalog.Child
	err := c.call("get_children_by_rid", ridArgs{RID: rid}, &out)
	return out, err
}

func (c *Client) GetBomDatesByCodeID(codeID int) ([]int, error) {
	var out []int
	err := c.call("get_bom_dates_by_code_id", codeIDArgs{CodeID: codeID}, &out)
	return out, err
}

func (c *Client) GetDrawingsByRid(rid int) ([]catalog.Drawing, error) {
	var out []catalog.Drawing
	err := c.call("get_drawings_by_rid", ridArgs{RID: rid}, &out)
	return out, err
}

func (c *Client) GetWhereUsedFromIDCode(codeID int, validOnly bool, asOfDays int) ([]catalog.UsageKey, map[catalog.UsageKey]*catalog.UsageNode, error) {
	var out whereUsedResult
	err := c.call("get_where_used_from_id_code",
		whereUsedArgs{CodeID: codeID, ValidOnly: validOnly, AsOfDays: asOfDays}, &out)
	return out.Roots, out.Nodes, err
}

func (c *Client) GetBomByCodeID3(codeID, asOfDays int) (int, map[int]*catalog.BomNode, error) {
	var out bomResult
	err := c.call("get_bom_by_code_id3", bomArgs{CodeID: codeID, AsOfDays: asOfDays}, &out)
	return out.Root, out.Nodes, err
}

func (c *Client) IsChild(codeID int) (bool, error) {
	var out bool
	err := c.call("is_child", codeIDArgs{CodeID: codeID}, &out)
	return out, err
}

func (c *Client) IsAssembly(codeID int) (bool, error) {
	var out bool
	err := c.call("is_assembly", codeIDArgs{CodeID: codeID}, &out)
	return out, err
}

func (c *Client) GetChildrenDatesRangeByRid(rid int) ([]catalog.DatesRange, error) {
	var out []catalog.DatesRange
	err := c.call("get_children_dates_range_by_rid", ridArgs{RID: rid}, &out)
	return out, err
}

func (c *Client) GetParentDatesRangeByCodeID(codeID int) ([]catalog.DatesRange, error) {
	var out []catalog.DatesRange
	err := c.call("get_parent_dates_range_by_code_id", codeIDArgs{CodeID: codeID}, &out)
	return out, err
}

func (c *Client) GetDatesByCodeID3(codeID int) ([]catalog.RevisionDates, error) {
	var out []catalog.RevisionDates
	err := c.call("get_dates_by_code_id3", codeIDArgs{CodeID: codeID}, &out)
	return out, err
}

func (c *Client) GetCodesByLikeCodeAndDescr(codePattern, descrPattern string, caseSensitive bool) ([]catalog.Code, error) {
	var out []catalog.Code
	err := c.call("get_codes_by_like_code_and_descr",
		likeArgs{Code: codePattern, Descr: descrPattern, CaseSensitive: caseSensitive}, &out)
	return out, err
}

func (c *Client) GetCodesByLikeDescr(pattern string, caseSensitive bool) ([]catalog.Code, error) {
	var out []catalog.Code
	err := c.call("get_codes_by_like_descr", likeArgs{Descr: pattern, CaseSensitive: caseSensitive}, &out)
	return out, err
}

func (c *Client) GetCodesByLikeCode(pattern string, caseSensitive bool) ([]catalog.Code, error) {
	var out []catalog.Code
	err := c.call("get_codes_by_like_code", likeArgs{Code: pattern, CaseSensitive: caseSensitive}, &out)
	return out, err
}

func (c *Client) GetCodesByCode(code string) ([]catalog.Code, error) {
	var out []catalog.Code
	err := c.call("get_codes_by_code", likeArgs{Code: code}, &out)
	return out, err
}

func (c *Client) GetCodeByRid(rid int) (*catalog.Code, error) {
	var out catalog.Code
	if err := c.call("get_code_by_rid", ridArgs{RID: rid}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCode(codeID int) (*catalog.Code, error) {
	var out catalog.Code
	if err := c.call("get_code", codeIDArgs{CodeID: codeID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DumpTables() (map[string]*catalog.TableDump, error) {
	var out map[string]*catalog.TableDump
	err := c.call("dump_tables", nil, &out)
	return out, err
}

func (c *Client) ListMainTables() ([]string, error) {
	var out []string
	err := c.call("list_main_tables", nil, &out)
	return out, err
}

func (c *Client) DumpTable(name string) (*catalog.TableDump, error) {
	var out catalog.TableDump
	if err := c.call("dump_table", tableArgs{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCodeRevision(rid int) error {
	return c.call("delete_code_revision", ridArgs{RID: rid}, nil)
}

func (c *Client) DeleteCode(codeID int) error {
	return c.call("delete_code", codeIDArgs{CodeID: codeID}, nil)
}

func (c *Client) UpdateDates(entries []catalog.RevisionDates) error {
	return c.call("update_dates", updateDatesArgs{Entries: entries}, nil)
}

func (c *Client) UpdateByRid2(rid int, descr, ver, unit string, gvals []string, drawings []catalog.Drawing, links []catalog.Link, expectedSnapshot []byte) error {
	return c.call("update_by_rid2", updateByRidArgs{
		RID: rid, Descr: descr, Ver: ver, Unit: unit,
		GVals: gvals, Drawings: drawings, Links: links,
		ExpectedSnapshot: expectedSnapshot,
	}, nil)
}

func (c *Client) ReviseCode(srcRID int, descr, ver string, copyProps, copyDocs bool, newDateFrom int) (int, error) {
	var out ridArgs
	err := c.call("revise_code", reviseArgs{
		RID: srcRID, Descr: descr, Ver: ver,
		CopyProps: copyProps, CopyDocs: copyDocs, NewDateFromDays: newDateFrom,
	}, &out)
	return out.RID, err
}

func (c *Client) CopyCode(newCode string, srcRID int, descr, ver string, copyProps, copyDocs bool, newDateFrom int) (int, int, error) {
	var out createdResult
	err := c.call("copy_code", copyArgs{
		NewCode: newCode, RID: srcRID, Descr: descr, Ver: ver,
		CopyProps: copyProps, CopyDocs: copyDocs, NewDateFromDays: newDateFrom,
	}, &out)
	return out.CodeID, out.RID, err
}

func (c *Client) CreateDB(gvalsCount, gavalsCount int) error {
	return c.call("create_db", createDBArgs{GValsCount: gvalsCount, GAValsCount: gavalsCount}, nil)
}

func (c *Client) CreateFirstCode() (int, int, error) {
	var out createdResult
	err := c.call("create_first_code", nil, &out)
	return out.CodeID, out.RID, err
}
