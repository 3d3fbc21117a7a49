package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opline/bomcat/internal/caldate"
)

func TestUpdateDatesShiftsBoundary(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, _, _ := seedAssembly(t, e)

	newRID, err := e.ReviseCode(parentRID, "frame v2", "B", false, false, 100)
	require.NoError(t, err)

	// Move the boundary from day 100 to day 200.
	err = e.UpdateDates([]RevisionDates{
		{RID: newRID, DateFromDays: 200, DateToDays: caldate.EndOfTime},
		{RID: parentRID, DateFromDays: 0, DateToDays: 199},
	})
	require.NoError(t, err)

	dates, err := e.GetDatesByCodeID3(parentID)
	require.NoError(t, err)
	require.Equal(t, 200, dates[0].DateFromDays)
	require.Equal(t, 199, dates[1].DateToDays)
	require.Equal(t, 1, dates[0].Iter)
	require.Equal(t, 0, dates[1].Iter)
}

func TestUpdateDatesRejectsGapAndOverlap(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, _, _ := seedAssembly(t, e)

	newRID, err := e.ReviseCode(parentRID, "frame v2", "B", false, false, 100)
	require.NoError(t, err)

	before, err := e.DumpTables()
	require.NoError(t, err)

	// Gap: day 200 does not follow day 198.
	err = e.UpdateDates([]RevisionDates{
		{RID: newRID, DateFromDays: 200, DateToDays: caldate.EndOfTime},
		{RID: parentRID, DateFromDays: 0, DateToDays: 198},
	})
	require.True(t, IsDateRangeError(err))

	// Overlap: day 200 starts before day 205 ends.
	err = e.UpdateDates([]RevisionDates{
		{RID: newRID, DateFromDays: 200, DateToDays: caldate.EndOfTime},
		{RID: parentRID, DateFromDays: 0, DateToDays: 205},
	})
	require.True(t, IsDateRangeError(err))

	// Inverted span.
	err = e.UpdateDates([]RevisionDates{
		{RID: newRID, DateFromDays: 300, DateToDays: 250},
		{RID: parentRID, DateFromDays: 0, DateToDays: 299},
	})
	require.True(t, IsDateRangeError(err))

	// Partial history.
	err = e.UpdateDates([]RevisionDates{
		{RID: newRID, DateFromDays: 100, DateToDays: caldate.EndOfTime},
	})
	require.True(t, IsDateRangeError(err))

	after, err := e.DumpTables()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

// Shrinking a child's coverage below a parent's recorded range must fail
// and leave the child's history untouched.
func TestUpdateDatesParentContainment(t *testing.T) {
	e := newTestEngine(t)
	_, _, childID, childRID := seedAssembly(t, e)

	before, err := e.GetDatesByCodeID3(childID)
	require.NoError(t, err)

	// The parent references the child over [0, end of time]; capping the
	// child at day 500 would orphan the tail of that range.
	err = e.UpdateDates([]RevisionDates{
		{RID: childRID, DateFromDays: 0, DateToDays: 500},
	})
	require.True(t, IsDateRangeError(err))

	after, err := e.GetDatesByCodeID3(childID)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdateDatesChildContainment(t *testing.T) {
	e := newTestEngine(t)
	_, _, err := e.CreateFirstCode()
	require.NoError(t, err)

	// A parent that starts at day 300 linking a child that also starts at
	// day 300: pulling the parent's start back to day 100 would leave the
	// child uncovered over [100, 299].
	lateID, _, err := e.CopyCode("L-100", 1, "late part", "A", false, false, 300)
	require.NoError(t, err)
	_, pRID, err := e.CopyCode("P-100", 1, "late frame", "A", false, false, 300)
	require.NoError(t, err)
	err = e.UpdateByRid2(pRID, "late frame", "A", "NR", nil, nil,
		[]Link{{ChildID: lateID, Qty: 1, Each: 1, Unit: "NR"}}, nil)
	require.NoError(t, err)

	err = e.UpdateDates([]RevisionDates{
		{RID: pRID, DateFromDays: 100, DateToDays: caldate.EndOfTime},
	})
	require.True(t, IsDateRangeError(err))
}

func TestUpdateDatesPrototypeRenumber(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, _, _ := seedAssembly(t, e)

	v2RID, err := e.ReviseCode(parentRID, "frame v2", "B", false, false, 100)
	require.NoError(t, err)
	protoRID, err := e.ReviseCode(v2RID, "frame proto", "P", false, false, caldate.PrototypeDate)
	require.NoError(t, err)

	// Release the prototype: give it a real interval. It takes the next
	// real iteration and joins the chain.
	err = e.UpdateDates([]RevisionDates{
		{RID: protoRID, DateFromDays: 200, DateToDays: caldate.EndOfTime},
		{RID: v2RID, DateFromDays: 100, DateToDays: 199},
		{RID: parentRID, DateFromDays: 0, DateToDays: 99},
	})
	require.NoError(t, err)

	dates, err := e.GetDatesByCodeID3(parentID)
	require.NoError(t, err)
	require.Len(t, dates, 3)
	require.Equal(t, protoRID, dates[0].RID)
	require.Equal(t, 2, dates[0].Iter)
	require.Equal(t, 200, dates[0].DateFromDays)

	// Pull it back into prototype state.
	err = e.UpdateDates([]RevisionDates{
		{RID: protoRID, DateFromDays: caldate.PrototypeDate, DateToDays: caldate.PrototypeDate},
		{RID: v2RID, DateFromDays: 100, DateToDays: caldate.EndOfTime},
		{RID: parentRID, DateFromDays: 0, DateToDays: 99},
	})
	require.NoError(t, err)

	dates, err = e.GetDatesByCodeID3(parentID)
	require.NoError(t, err)
	require.Equal(t, caldate.PrototypeIter, dates[0].Iter)
	require.Equal(t, caldate.PrototypeDate, dates[0].DateFromDays)

	// Two prototypes in one batch are rejected.
	err = e.UpdateDates([]RevisionDates{
		{RID: protoRID, DateFromDays: caldate.PrototypeDate, DateToDays: caldate.PrototypeDate},
		{RID: v2RID, DateFromDays: caldate.PrototypeDate, DateToDays: caldate.PrototypeDate},
		{RID: parentRID, DateFromDays: 0, DateToDays: caldate.EndOfTime},
	})
	require.True(t, IsDuplicatePrototypeError(err))
}
