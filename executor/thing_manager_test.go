package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/snapshot/badgerstore"
	"github.com/wbrown/typeql-engine/value"
)

func openTestSnapshot(t *testing.T) *ThingManager {
	t.Helper()
	store, err := badgerstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	write, err := store.OpenWrite(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = write.Abort() })

	return NewThingManager(write, write)
}

func TestPutObjectAllocatesDistinctIDs(t *testing.T) {
	tm := openTestSnapshot(t)

	a, err := tm.PutObject(1)
	require.NoError(t, err)
	b, err := tm.PutObject(1)
	require.NoError(t, err)

	require.NotZero(t, a.ID)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, concept.ObjectThing, a.Kind)
}

func TestPutAttributeDedupsByTypeAndValue(t *testing.T) {
	tm := openTestSnapshot(t)

	first, err := tm.PutAttribute(2, "alice")
	require.NoError(t, err)
	second, err := tm.PutAttribute(2, "alice")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	third, err := tm.PutAttribute(2, "bob")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, third.ID)
}

func TestGetRoundTripsObjectAndAttribute(t *testing.T) {
	tm := openTestSnapshot(t)

	obj, err := tm.PutObject(3)
	require.NoError(t, err)
	got, ok, err := tm.Get(obj.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, obj, got)

	attr, err := tm.PutAttribute(4, int64(42))
	require.NoError(t, err)
	got, ok, err = tm.Get(attr.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, attr.Value, got.Value)
}

func TestHasRoundTripsForwardAndReverse(t *testing.T) {
	tm := openTestSnapshot(t)

	owner, err := tm.PutObject(5)
	require.NoError(t, err)
	attr, err := tm.PutAttribute(6, "alice")
	require.NoError(t, err)
	require.NoError(t, tm.Has(owner.ID, attr.ID))

	var forward []concept.ThingID
	require.NoError(t, tm.ScanHasForward(owner.ID, func(a concept.ThingID) (bool, error) {
		forward = append(forward, a)
		return true, nil
	}))
	require.Equal(t, []concept.ThingID{attr.ID}, forward)

	var reverse []concept.ThingID
	require.NoError(t, tm.ScanHasReverse(attr.ID, func(o concept.ThingID) (bool, error) {
		reverse = append(reverse, o)
		return true, nil
	}))
	require.Equal(t, []concept.ThingID{owner.ID}, reverse)

	require.NoError(t, tm.RemoveHas(owner.ID, attr.ID))
	forward = nil
	require.NoError(t, tm.ScanHasForward(owner.ID, func(a concept.ThingID) (bool, error) {
		forward = append(forward, a)
		return true, nil
	}))
	require.Empty(t, forward)
}

func TestLinksRoundTripsForwardAndReverse(t *testing.T) {
	tm := openTestSnapshot(t)

	relation, err := tm.PutObject(7)
	require.NoError(t, err)
	player, err := tm.PutObject(8)
	require.NoError(t, err)
	const role concept.TypeID = 9
	require.NoError(t, tm.Links(relation.ID, role, player.ID))

	var fwd []concept.ThingID
	require.NoError(t, tm.ScanLinksForward(relation.ID, func(r concept.TypeID, p concept.ThingID) (bool, error) {
		require.Equal(t, role, r)
		fwd = append(fwd, p)
		return true, nil
	}))
	require.Equal(t, []concept.ThingID{player.ID}, fwd)

	require.NoError(t, tm.RemoveLinks(relation.ID, role, player.ID))
	fwd = nil
	require.NoError(t, tm.ScanLinksForward(relation.ID, func(r concept.TypeID, p concept.ThingID) (bool, error) {
		fwd = append(fwd, p)
		return true, nil
	}))
	require.Empty(t, fwd)
}

func TestScanTypeIteratesOnlyMatchingType(t *testing.T) {
	tm := openTestSnapshot(t)

	a, err := tm.PutObject(10)
	require.NoError(t, err)
	b, err := tm.PutObject(10)
	require.NoError(t, err)
	_, err = tm.PutObject(11)
	require.NoError(t, err)

	var ids []concept.ThingID
	require.NoError(t, tm.ScanType(10, func(thing concept.Thing) (bool, error) {
		ids = append(ids, thing.ID)
		return true, nil
	}))
	require.ElementsMatch(t, []concept.ThingID{a.ID, b.ID}, ids)
}

func TestDeleteThingRemovesRecordAndTypeIndex(t *testing.T) {
	tm := openTestSnapshot(t)

	obj, err := tm.PutObject(12)
	require.NoError(t, err)
	require.NoError(t, tm.DeleteThing(obj.ID, 12))

	_, ok, err := tm.Get(obj.ID)
	require.NoError(t, err)
	require.False(t, ok)

	var ids []concept.ThingID
	require.NoError(t, tm.ScanType(12, func(thing concept.Thing) (bool, error) {
		ids = append(ids, thing.ID)
		return true, nil
	}))
	require.Empty(t, ids)
}

func TestPutAttributeEncodesEveryValueCategory(t *testing.T) {
	tm := openTestSnapshot(t)

	cases := []value.Value{
		"alice",
		int64(7),
		3.5,
		true,
	}
	for i, v := range cases {
		thing, err := tm.PutAttribute(concept.TypeID(100+i), v)
		require.NoError(t, err)
		got, ok, err := tm.Get(thing.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, v, got.Value)
	}
}
