package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDumpTableOrderAndColumns(t *testing.T) {
	e := newTestEngine(t)
	seedAssembly(t, e)

	require.Equal(t, MainTables, e.ListMainTables())

	td, err := e.DumpTable("items")
	require.NoError(t, err)
	require.Equal(t, []string{"id", "code", "descr"}, td.Columns)
	require.Len(t, td.Rows, 3)

	_, err = e.DumpTable("sqlite_master")
	require.True(t, IsNotFoundError(err))
}

func TestDumpRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, childID, _ := seedAssembly(t, e)

	err := e.UpdateByRid2(parentRID, "frame", "A", "NR", []string{"alu"},
		[]Drawing{{Name: "frame.pdf", Path: "/dwg/frame.pdf"}},
		[]Link{{ChildID: childID, Qty: 2, Each: 1, Unit: "NR"}}, nil)
	require.NoError(t, err)

	dump, err := e.DumpTables()
	require.NoError(t, err)

	// Wipe via a fresh schema, restore, dump again.
	require.NoError(t, e.CreateDB(0, 0))
	empty, err := e.DumpTables()
	require.NoError(t, err)
	require.Empty(t, empty["items"].Rows)

	require.NoError(t, e.RestoreTables(dump))
	restored, err := e.DumpTables()
	require.NoError(t, err)
	require.Equal(t, dump, restored)

	children, err := e.GetChildrenByRid(parentRID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, 2.0, children[0].Qty)
}

func TestRestoreRejectsUnknownTable(t *testing.T) {
	e := newTestEngine(t)

	err := e.RestoreTables(map[string]*TableDump{
		"sqlite_master": {Columns: []string{"name"}, Rows: nil},
	})
	require.True(t, IsNotFoundError(err))
}
