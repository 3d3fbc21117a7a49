package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opline/bomcat/internal/caldate"
)

func TestDeleteCodeRevisionRepairsChain(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, _, _ := seedAssembly(t, e)

	v2RID, err := e.ReviseCode(parentRID, "frame v2", "B", false, false, 100)
	require.NoError(t, err)
	v3RID, err := e.ReviseCode(v2RID, "frame v3", "C", false, false, 200)
	require.NoError(t, err)

	// Delete the middle revision: the older neighbor absorbs [100, 199].
	require.NoError(t, e.DeleteCodeRevision(v2RID))

	dates, err := e.GetDatesByCodeID3(parentID)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	require.Equal(t, v3RID, dates[0].RID)
	require.Equal(t, 200, dates[0].DateFromDays)
	require.Equal(t, parentRID, dates[1].RID)
	require.Equal(t, 0, dates[1].DateFromDays)
	require.Equal(t, 199, dates[1].DateToDays)

	// Delete the oldest: the newer neighbor reaches down to day 0.
	require.NoError(t, e.DeleteCodeRevision(parentRID))

	dates, err = e.GetDatesByCodeID3(parentID)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	require.Equal(t, v3RID, dates[0].RID)
	require.Equal(t, 0, dates[0].DateFromDays)
	require.Equal(t, caldate.EndOfTime, dates[0].DateToDays)
}

func TestDeleteCodeRevisionLastRevision(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, _, _ := seedAssembly(t, e)

	err := e.DeleteCodeRevision(parentRID)
	require.True(t, IsLastRevisionError(err))
}

func TestDeleteCodeRevisionPrototypeOnlyRemaining(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, _, _ := seedAssembly(t, e)

	protoRID, err := e.ReviseCode(parentRID, "frame proto", "P", false, false, caldate.PrototypeDate)
	require.NoError(t, err)

	err = e.DeleteCodeRevision(parentRID)
	require.True(t, IsPrototypeOnlyRemainingError(err))

	// Deleting the prototype itself is fine and needs no repair.
	require.NoError(t, e.DeleteCodeRevision(protoRID))
	_, err = e.GetCodeByRid(protoRID)
	require.True(t, IsNotFoundError(err))
}

func TestDeleteCodeRejectsUsedChild(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, childID, _ := seedAssembly(t, e)

	err := e.DeleteCode(childID)
	require.True(t, IsHasParentsError(err))

	// Drop the link, then the child goes away with all its rows.
	err = e.UpdateByRid2(parentRID, "frame", "A", "NR", nil, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, e.DeleteCode(childID))

	_, err = e.GetCode(childID)
	require.True(t, IsNotFoundError(err))

	// The parent survives.
	_, err = e.GetCode(parentID)
	require.NoError(t, err)
}

func TestDeleteCodeCascades(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, childID, _ := seedAssembly(t, e)

	err := e.UpdateByRid2(parentRID, "frame", "A", "NR", nil,
		[]Drawing{{Name: "frame.pdf", Path: "/dwg/frame.pdf"}},
		[]Link{{ChildID: childID, Qty: 2, Each: 1, Unit: "NR"}}, nil)
	require.NoError(t, err)

	parent, err := e.GetCodeByRid(parentRID)
	require.NoError(t, err)
	require.NoError(t, e.UpdateByRid2(parentRID, "frame", "A", "NR", nil, nil, nil, nil))
	require.NoError(t, e.DeleteCode(parent.ID))

	dump, err := e.DumpTables()
	require.NoError(t, err)
	for _, row := range dump["assemblies"].Rows {
		require.NotEqual(t, int64(parentRID), row[1], "link row survived the cascade")
	}
	for _, row := range dump["drawings"].Rows {
		require.NotEqual(t, int64(parentRID), row[1], "drawing row survived the cascade")
	}
}
