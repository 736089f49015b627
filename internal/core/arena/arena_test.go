package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type leaf struct{ name string }

type box struct {
	kids []*Owned[leaf]
}

func (b *box) EachOwned(fn func(Ref)) { Visit(b.kids, fn) }

func TestAddGetMut(t *testing.T) {
	a := New[leaf](1)
	o := a.Add(&leaf{name: "a"})
	assert.Equal(t, Key(1), o.Key)
	assert.Equal(t, []Key{1}, a.Created())
	assert.Equal(t, []Key{1}, a.Modified())

	a.ResetCycle()
	obj, ok := a.Get(o.Handle)
	require.True(t, ok)
	assert.Equal(t, "a", obj.name)
	assert.Empty(t, a.Modified())

	_, ok = a.GetMut(o.Handle)
	require.True(t, ok)
	assert.Equal(t, []Key{1}, a.Modified())

	_, ok = a.Get(Handle[leaf]{Key: 1, Kind: 2})
	assert.False(t, ok, "handle of another kind must not resolve")
}

func TestDropIsDeferredAndIdempotent(t *testing.T) {
	a := New[leaf](1)
	o := a.Add(&leaf{})
	o.Drop()
	o.Drop()
	assert.True(t, o.Dropped())
	assert.True(t, a.Has(o.Key), "drop must not remove synchronously")
	assert.Equal(t, 1, a.Pending())

	assert.Equal(t, 1, a.Collect())
	assert.False(t, a.Has(o.Key))
	assert.Empty(t, a.Created(), "fresh object leaves the dirty sets")
	assert.Empty(t, a.Deleted())
}

func TestCollectRecordsDeletedForOldObjects(t *testing.T) {
	a := New[leaf](1)
	o := a.Add(&leaf{})
	a.ResetCycle()
	o.Drop()
	a.Collect()
	assert.Equal(t, []Key{o.Key}, a.Deleted())
}

func TestGarbageCollectCascades(t *testing.T) {
	boxes := New[box](1)
	leaves := New[leaf](2)
	reg := NewRegistry()
	reg.Register(leaves)
	reg.Register(boxes)

	b := &box{}
	for i := 0; i < 3; i++ {
		b.kids = append(b.kids, leaves.Add(&leaf{}))
	}
	ob := boxes.Add(b)
	ob.Drop()

	rounds, removed := reg.GarbageCollect()
	assert.Equal(t, 4, removed)
	assert.GreaterOrEqual(t, rounds, 2)
	assert.Zero(t, boxes.Len())
	assert.Zero(t, leaves.Len())
}

func TestKeysNeverReused(t *testing.T) {
	a := New[leaf](1)
	o := a.Add(&leaf{})
	o.Drop()
	a.Collect()
	o2 := a.Add(&leaf{})
	assert.Greater(t, o2.Key, o.Key)
}

func TestReserveHonorsStoredKey(t *testing.T) {
	a := New[leaf](1)
	k, remapped := a.Reserve(7)
	assert.Equal(t, Key(7), k)
	assert.False(t, remapped)

	k2, remapped := a.Reserve(7)
	assert.True(t, remapped)
	assert.NotEqual(t, Key(7), k2)

	o := a.Insert(k, &leaf{name: "loaded"})
	assert.Empty(t, a.Created(), "loaded objects are clean")
	assert.Empty(t, a.Modified())
	assert.Equal(t, Key(7), o.Key)

	o3 := a.Add(&leaf{})
	assert.NotEqual(t, k2, o3.Key, "reserved key is not handed out")
	assert.Greater(t, o3.Key, Key(7))

	a.Release(k2)
	k3, remapped := a.Reserve(k2)
	assert.Equal(t, k2, k3)
	assert.False(t, remapped)
}

func TestPageIndexDropRoot(t *testing.T) {
	p := NewPageIndex()
	r1 := RootRef{Kind: 1, Key: 1}
	r2 := RootRef{Kind: 1, Key: 2}
	p.Set(1, Location{Root: r1, Page: 32})
	p.Set(2, Location{Root: r2, Page: 32})
	p.Set(3, Location{Root: r1, Page: 96})
	p.DropRoot(r1)
	assert.Equal(t, 1, p.Len())
	_, ok := p.Get(2)
	assert.True(t, ok)
}

func TestArenaKeysUniqueProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := New[leaf](1)
		seen := map[Key]bool{}
		var live []*Owned[leaf]
		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 60).Draw(t, "ops")
		for _, op := range ops {
			switch {
			case op == 0 || len(live) == 0:
				o := a.Add(&leaf{})
				if seen[o.Key] {
					t.Fatalf("key %d issued twice", o.Key)
				}
				seen[o.Key] = true
				live = append(live, o)
			case op == 1:
				i := rapid.IntRange(0, len(live)-1).Draw(t, "victim")
				live[i].Drop()
				live = append(live[:i], live[i+1:]...)
			default:
				a.Collect()
			}
		}
		a.Collect()
		if a.Len() != len(live) {
			t.Fatalf("live %d, arena %d", len(live), a.Len())
		}
	})
}

func TestRetireReviveBury(t *testing.T) {
	boxes := New[box](1)
	leaves := New[leaf](2)
	reg := NewRegistry()
	reg.Register(boxes)
	reg.Register(leaves)

	b := &box{kids: []*Owned[leaf]{leaves.Add(&leaf{name: "x"})}}
	ob := boxes.Add(b)
	kid := b.kids[0]
	reg.ResetCycle()

	ob.Retire()
	_, removed := reg.GarbageCollect()
	assert.Equal(t, 2, removed)
	assert.Zero(t, boxes.Len())
	assert.Equal(t, 1, leaves.Retired())
	assert.Equal(t, []Key{kid.Key}, leaves.Deleted())

	require.True(t, ob.Revive())
	assert.False(t, ob.Dropped())
	assert.False(t, kid.Dropped())
	got, ok := leaves.Get(kid.Handle)
	require.True(t, ok)
	assert.Equal(t, "x", got.name)
	assert.Empty(t, leaves.Deleted())
	assert.Equal(t, []Key{kid.Key}, leaves.Modified())
	assert.False(t, ob.Revive(), "nothing left to revive")

	ob.Retire()
	reg.GarbageCollect()
	ob.Bury()
	assert.Zero(t, boxes.Retired())
	assert.Zero(t, leaves.Retired())
	assert.False(t, ob.Revive())
	assert.False(t, leaves.Has(kid.Key))
}

func TestBuryBeforeCollectDropsForGood(t *testing.T) {
	a := New[leaf](1)
	o := a.Add(&leaf{})
	o.Retire()
	o.Bury()
	assert.Equal(t, 1, a.Collect())
	assert.Zero(t, a.Retired())
	assert.False(t, o.Revive())
}
