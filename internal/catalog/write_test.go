package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opline/bomcat/internal/caldate"
)

func TestCopyCodeClonesLinksAndAttributes(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, childID, _ := seedAssembly(t, e)

	copyID, copyRID, err := e.CopyCode("A-200", parentRID, "frame copy", "A", false, false, 10)
	require.NoError(t, err)

	c, err := e.GetCode(copyID)
	require.NoError(t, err)
	require.Equal(t, "A-200", c.Code)
	require.Equal(t, "frame copy", c.Descr)

	dates, err := e.GetDatesByCodeID3(copyID)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	require.Equal(t, 10, dates[0].DateFromDays)
	require.Equal(t, caldate.EndOfTime, dates[0].DateToDays)
	require.Equal(t, 0, dates[0].Iter)

	children, err := e.GetChildrenByRid(copyRID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, childID, children[0].ChildID)
	require.Equal(t, 2.0, children[0].Qty)
}

func TestCopyCodeDuplicate(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, _, _ := seedAssembly(t, e)

	_, _, err := e.CopyCode("A-100", parentRID, "dup", "A", false, false, 0)
	require.True(t, IsDuplicateCodeError(err))
}

func TestCopyCodePropsAndDocsFlags(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, _, _ := seedAssembly(t, e)

	err := e.UpdateByRid2(parentRID, "frame", "A", "NR",
		nil, []Drawing{{Name: "frame.pdf", Path: "/dwg/frame.pdf"}}, nil, nil)
	require.NoError(t, err)

	_, plainRID, err := e.CopyCode("A-300", parentRID, "plain", "A", false, false, 0)
	require.NoError(t, err)
	drawings, err := e.GetDrawingsByRid(plainRID)
	require.NoError(t, err)
	require.Empty(t, drawings)

	_, fullRID, err := e.CopyCode("A-400", parentRID, "full", "A", true, true, 0)
	require.NoError(t, err)
	drawings, err = e.GetDrawingsByRid(fullRID)
	require.NoError(t, err)
	require.Len(t, drawings, 1)
	require.Equal(t, "frame.pdf", drawings[0].Name)
}

// A revision at day 100 splits history in two: explosions before the
// boundary resolve the old revision and its link set, explosions after it
// resolve the new one.
func TestReviseCodeSplitsTimeline(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, childID, _ := seedAssembly(t, e)

	newRID, err := e.ReviseCode(parentRID, "frame v2", "B", false, false, 100)
	require.NoError(t, err)

	err = e.UpdateByRid2(newRID, "frame v2", "B", "NR", nil, nil,
		[]Link{{ChildID: childID, Qty: 3, Each: 1, Unit: "NR"}}, nil)
	require.NoError(t, err)

	dates, err := e.GetDatesByCodeID3(parentID)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	require.Equal(t, newRID, dates[0].RID)
	require.Equal(t, 1, dates[0].Iter)
	require.Equal(t, 100, dates[0].DateFromDays)
	require.Equal(t, caldate.EndOfTime, dates[0].DateToDays)
	require.Equal(t, parentRID, dates[1].RID)
	require.Equal(t, 0, dates[1].Iter)
	require.Equal(t, 0, dates[1].DateFromDays)
	require.Equal(t, 99, dates[1].DateToDays)

	rootBefore, bomBefore, err := e.GetBomByCodeID3(parentID, 50)
	require.NoError(t, err)
	require.Equal(t, parentRID, rootBefore)
	var qtyBefore float64
	for _, dep := range bomBefore[rootBefore].Deps {
		qtyBefore = dep.Qty
	}
	require.Equal(t, 2.0, qtyBefore)

	rootAfter, bomAfter, err := e.GetBomByCodeID3(parentID, 150)
	require.NoError(t, err)
	require.Equal(t, newRID, rootAfter)
	var qtyAfter float64
	for _, dep := range bomAfter[rootAfter].Deps {
		qtyAfter = dep.Qty
	}
	require.Equal(t, 3.0, qtyAfter)
}

func TestReviseCodeDateOrder(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, _, _ := seedAssembly(t, e)

	newRID, err := e.ReviseCode(parentRID, "frame v2", "B", false, false, 100)
	require.NoError(t, err)

	before, err := e.DumpTables()
	require.NoError(t, err)

	_, err = e.ReviseCode(newRID, "frame v3", "C", false, false, 100)
	require.True(t, IsDateOrderError(err))
	_, err = e.ReviseCode(newRID, "frame v3", "C", false, false, 50)
	require.True(t, IsDateOrderError(err))

	// Rejected mutations leave no trace.
	after, err := e.DumpTables()
	require.NoError(t, err)
	require.Equal(t, before, after)

	dates, err := e.GetDatesByCodeID3(parentID)
	require.NoError(t, err)
	require.Len(t, dates, 2)
}

func TestReviseCodePrototype(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, _, _ := seedAssembly(t, e)

	protoRID, err := e.ReviseCode(parentRID, "frame proto", "P", false, false, caldate.PrototypeDate)
	require.NoError(t, err)

	dates, err := e.GetDatesByCodeID3(parentID)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	require.Equal(t, protoRID, dates[0].RID)
	require.Equal(t, caldate.PrototypeIter, dates[0].Iter)
	require.Equal(t, caldate.PrototypeDate, dates[0].DateFromDays)
	// The prototype sits outside the chain: the real revision stays open.
	require.Equal(t, caldate.EndOfTime, dates[1].DateToDays)

	_, err = e.ReviseCode(parentRID, "second proto", "P", false, false, caldate.PrototypeDate)
	require.True(t, IsDuplicatePrototypeError(err))

	// Revising past a prototype continues the real chain underneath it.
	realRID, err := e.ReviseCode(parentRID, "frame v2", "B", false, false, 100)
	require.NoError(t, err)
	dates, err = e.GetDatesByCodeID3(parentID)
	require.NoError(t, err)
	require.Len(t, dates, 3)
	require.Equal(t, protoRID, dates[0].RID)
	require.Equal(t, realRID, dates[1].RID)
	require.Equal(t, 1, dates[1].Iter)
	require.Equal(t, 99, dates[2].DateToDays)
}

func TestUpdateByRid2ReplacesState(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, childID, _ := seedAssembly(t, e)

	err := e.UpdateByRid2(parentRID, "frame mk2", "B", "PCS",
		[]string{"alu", "raw"},
		[]Drawing{{Name: "frame.dxf", Path: "/dwg/frame.dxf"}},
		[]Link{{ChildID: childID, Qty: 5, Each: 2, Unit: "NR", Ref: "pos 1"}},
		nil)
	require.NoError(t, err)

	children, err := e.GetChildrenByRid(parentRID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, 5.0, children[0].Qty)
	require.Equal(t, 2.0, children[0].Each)
	require.Equal(t, "pos 1", children[0].Ref)

	drawings, err := e.GetDrawingsByRid(parentRID)
	require.NoError(t, err)
	require.Len(t, drawings, 1)
	require.Equal(t, "/dwg/frame.dxf", drawings[0].Path)
}

func TestUpdateByRid2SnapshotGuard(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, childID, _ := seedAssembly(t, e)

	snap, err := e.ExportSnapshot(parentRID)
	require.NoError(t, err)

	// A current snapshot passes.
	err = e.UpdateByRid2(parentRID, "frame mk2", "B", "NR", nil, nil,
		[]Link{{ChildID: childID, Qty: 2, Each: 1, Unit: "NR"}}, snap)
	require.NoError(t, err)

	before, err := e.DumpTables()
	require.NoError(t, err)

	// The same snapshot is now stale.
	err = e.UpdateByRid2(parentRID, "frame mk3", "C", "NR", nil, nil, nil, snap)
	require.True(t, IsConcurrentModificationError(err))

	after, err := e.DumpTables()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdateByRid2ContainmentCheck(t *testing.T) {
	e := newTestEngine(t)
	_, _, err := e.CreateFirstCode()
	require.NoError(t, err)

	// A child valid only from day 200 cannot be linked from a revision
	// valid from day 0.
	lateID, _, err := e.CopyCode("C-100", 1, "late part", "A", false, false, 200)
	require.NoError(t, err)
	_, parentRID, err := e.CopyCode("A-500", 1, "wide frame", "A", false, false, 0)
	require.NoError(t, err)

	err = e.UpdateByRid2(parentRID, "wide frame", "A", "NR", nil, nil,
		[]Link{{ChildID: lateID, Qty: 1, Each: 1, Unit: "NR"}}, nil)
	require.True(t, IsDateRangeError(err))
}

func TestCopyCodeContainmentCheck(t *testing.T) {
	e := newTestEngine(t)
	_, _, err := e.CreateFirstCode()
	require.NoError(t, err)

	// Parent valid from day 300 linking a child valid from day 300:
	// copying the parent to an earlier start breaks containment.
	lateID, _, err := e.CopyCode("D-100", 1, "late", "A", false, false, 300)
	require.NoError(t, err)
	_, wideRID, err := e.CopyCode("E-100", 1, "wide", "A", false, false, 300)
	require.NoError(t, err)
	err = e.UpdateByRid2(wideRID, "wide", "A", "NR", nil, nil,
		[]Link{{ChildID: lateID, Qty: 1, Each: 1, Unit: "NR"}}, nil)
	require.NoError(t, err)

	_, _, err = e.CopyCode("E-200", wideRID, "too early", "A", false, false, 100)
	require.True(t, IsDateRangeError(err))
}
