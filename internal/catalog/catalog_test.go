package catalog

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratakv/strata/kv"
)

// fakeFlat is an in-memory ordered byte space for exercising the catalog
// without a driver.
type fakeFlat struct {
	rows map[string][]byte
}

func newFakeFlat() *fakeFlat {
	return &fakeFlat{rows: make(map[string][]byte)}
}

func (f *fakeFlat) Get(key []byte) ([]byte, bool, error) {
	v, ok := f.rows[string(key)]
	return v, ok, nil
}

func (f *fakeFlat) Set(key, value []byte) error {
	f.rows[string(key)] = append([]byte(nil), value...)
	return nil
}

func (f *fakeFlat) Delete(key []byte) error {
	delete(f.rows, string(key))
	return nil
}

func (f *fakeFlat) Scan(start, end []byte) kv.Iterator {
	var keys []string
	for k := range f.rows {
		if start != nil && k < string(start) {
			continue
		}
		if end != nil && k >= string(end) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &fakeIterator{flat: f, keys: keys}
}

type fakeIterator struct {
	flat *fakeFlat
	keys []string
	pos  int
}

func (i *fakeIterator) Next() bool {
	if i.pos >= len(i.keys) {
		return false
	}
	i.pos++
	return true
}

func (i *fakeIterator) Key() []byte   { return []byte(i.keys[i.pos-1]) }
func (i *fakeIterator) Value() []byte { return i.flat.rows[i.keys[i.pos-1]] }
func (i *fakeIterator) Err() error    { return nil }
func (i *fakeIterator) Close() error  { return nil }

func TestEnsureAssignsDistinctIDs(t *testing.T) {
	v := NewTxnView(newFakeFlat())

	first, err := v.ensure("one", kv.KindTable)
	require.NoError(t, err)
	second, err := v.ensure("two", kv.KindMultimap)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	again, err := v.ensure("one", kv.KindTable)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	_, err = v.ensure("one", kv.KindMultimap)
	require.ErrorIs(t, err, kv.ErrTableKind)
}

func TestDeleteDropsOnlyOwnRows(t *testing.T) {
	f := newFakeFlat()
	v := NewTxnView(f)

	a, err := v.CreateTable("a")
	require.NoError(t, err)
	b, err := v.CreateTable("b")
	require.NoError(t, err)

	require.NoError(t, a.Set([]byte("k1"), []byte("va")))
	require.NoError(t, a.Set([]byte("k2"), []byte("va")))
	require.NoError(t, b.Set([]byte("k1"), []byte("vb")))

	existed, err := v.DeleteTable("a")
	require.NoError(t, err)
	require.True(t, existed)

	_, err = v.OpenTable("a")
	require.ErrorIs(t, err, kv.ErrTableNotFound)

	bAgain, err := v.OpenTable("b")
	require.NoError(t, err)
	val, ok, err := bAgain.Get([]byte("k1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("vb"), val)
}

func TestMultimapValueOrder(t *testing.T) {
	v := NewTxnView(newFakeFlat())

	mm, err := v.CreateMultimap("mm")
	require.NoError(t, err)

	require.NoError(t, mm.Put([]byte("k"), []byte{0x02}))
	require.NoError(t, mm.Put([]byte("k"), []byte{0x00}))
	require.NoError(t, mm.Put([]byte("k"), []byte{0x01}))

	it := mm.ValuesOf([]byte("k"))
	defer it.Close()
	var got [][]byte
	for it.Next() {
		got = append(got, append([]byte(nil), it.Value()...))
	}
	require.NoError(t, it.Err())
	require.Equal(t, [][]byte{{0x00}, {0x01}, {0x02}}, got)
}

func TestMultimapKeysDoNotCollide(t *testing.T) {
	v := NewTxnView(newFakeFlat())

	mm, err := v.CreateMultimap("mm")
	require.NoError(t, err)

	// "ab"+"c" and "a"+"bc" must stay distinct entries.
	require.NoError(t, mm.Put([]byte("ab"), []byte("c")))
	require.NoError(t, mm.Put([]byte("a"), []byte("bc")))

	it := mm.ValuesOf([]byte("ab"))
	defer it.Close()
	require.True(t, it.Next())
	require.Equal(t, []byte("c"), it.Value())
	require.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestPrefixSuccessor(t *testing.T) {
	tests := []struct {
		prefix []byte
		want   []byte
	}{
		{[]byte{0x01}, []byte{0x02}},
		{[]byte{0x01, 0xFF}, []byte{0x02}},
		{[]byte{0x01, 0x02, 0xFF}, []byte{0x01, 0x03}},
		{[]byte{0xFF, 0xFF}, nil},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, prefixSuccessor(tt.prefix))
	}
}
