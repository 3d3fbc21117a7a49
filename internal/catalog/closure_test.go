package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opline/bomcat/internal/caldate"
)

func TestGetBomByCodeID3TwoLevels(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, childID, childRID := seedAssembly(t, e)

	// Third level: a screw under the bracket.
	screwID, _, err := e.CopyCode("S-100", 1, "screw", "A", false, false, 0)
	require.NoError(t, err)
	err = e.UpdateByRid2(childRID, "bracket", "A", "NR", nil, nil,
		[]Link{{ChildID: screwID, Qty: 4, Each: 1, Unit: "NR"}}, nil)
	require.NoError(t, err)

	root, nodes, err := e.GetBomByCodeID3(parentID, 50)
	require.NoError(t, err)
	require.Equal(t, parentRID, root)
	require.Len(t, nodes, 3)

	require.Len(t, nodes[parentRID].Deps, 1)
	dep, ok := nodes[parentRID].Deps[childRID]
	require.True(t, ok)
	require.Equal(t, 2.0, dep.Qty)
	require.Equal(t, childID, nodes[childRID].CodeID)
	require.Len(t, nodes[childRID].Deps, 1)

	// A second explosion returns the same shape.
	root2, nodes2, err := e.GetBomByCodeID3(parentID, 50)
	require.NoError(t, err)
	require.Equal(t, root, root2)
	require.Equal(t, nodes, nodes2)
}

func TestGetBomByCodeID3Cycle(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, _, childRID := seedAssembly(t, e)

	// Close the loop: the bracket also "contains" the frame. Link edits
	// tolerate cycles; only traversals must not diverge.
	err := e.UpdateByRid2(childRID, "bracket", "A", "NR", nil, nil,
		[]Link{{ChildID: parentID, Qty: 1, Each: 1, Unit: "NR"}}, nil)
	require.NoError(t, err)

	root, nodes, err := e.GetBomByCodeID3(parentID, 50)
	require.NoError(t, err)
	require.Equal(t, parentRID, root)
	require.Len(t, nodes, 2)
	_, backEdge := nodes[childRID].Deps[parentRID]
	require.True(t, backEdge)
}

func TestGetBomByCodeID3PrototypeFallsBackToNewest(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, _, childRID := seedAssembly(t, e)

	protoRID, err := e.ReviseCode(parentRID, "frame proto", "P", false, false, caldate.PrototypeDate)
	require.NoError(t, err)

	// Exploding at the prototype pseudo-date resolves children that have
	// no revision that far out to their newest revision.
	root, nodes, err := e.GetBomByCodeID3(parentID, caldate.PrototypeDate)
	require.NoError(t, err)
	require.Equal(t, protoRID, root)
	_, ok := nodes[childRID]
	require.True(t, ok)
}

func TestGetWhereUsed(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, childID, _ := seedAssembly(t, e)

	roots, nodes, err := e.GetWhereUsedFromIDCode(childID, false, -1)
	require.NoError(t, err)
	require.Len(t, roots, 1)

	childNode := nodes[roots[0]]
	require.Len(t, childNode.Parents, 1)
	for pkey, dep := range childNode.Parents {
		require.Equal(t, parentID, pkey.CodeID)
		require.Equal(t, 2.0, dep.Qty)
		require.Equal(t, parentRID, nodes[pkey].RID)
	}
}

func TestGetWhereUsedValidOnly(t *testing.T) {
	e := newTestEngine(t)
	_, parentRID, childID, _ := seedAssembly(t, e)

	// Supersede the parent's linking revision at day 100 and drop the
	// link from the new revision.
	newRID, err := e.ReviseCode(parentRID, "frame v2", "B", false, false, 100)
	require.NoError(t, err)
	err = e.UpdateByRid2(newRID, "frame v2", "B", "NR", nil, nil, nil, nil)
	require.NoError(t, err)

	// At day 50 the old revision still links the child.
	_, nodes, err := e.GetWhereUsedFromIDCode(childID, true, 50)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	// At day 150 nothing links it.
	roots, nodes, err := e.GetWhereUsedFromIDCode(childID, true, 150)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Len(t, nodes, 1)
	require.Empty(t, nodes[roots[0]].Parents)
}

func TestGetWhereUsedCycle(t *testing.T) {
	e := newTestEngine(t)
	parentID, _, childID, childRID := seedAssembly(t, e)

	err := e.UpdateByRid2(childRID, "bracket", "A", "NR", nil, nil,
		[]Link{{ChildID: parentID, Qty: 1, Each: 1, Unit: "NR"}}, nil)
	require.NoError(t, err)

	_, nodes, err := e.GetWhereUsedFromIDCode(childID, false, -1)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
}

func TestGetBomDatesByCodeID(t *testing.T) {
	e := newTestEngine(t)
	parentID, parentRID, _, childRID := seedAssembly(t, e)

	_, err := e.ReviseCode(parentRID, "frame v2", "B", false, false, 100)
	require.NoError(t, err)
	_, err = e.ReviseCode(childRID, "bracket v2", "B", false, false, 250)
	require.NoError(t, err)

	days, err := e.GetBomDatesByCodeID(parentID)
	require.NoError(t, err)
	require.Equal(t, []int{0, 100, 250}, days)
}
