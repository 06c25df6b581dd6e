package bitmap

import (
	"iter"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/stratakv/strata/kv"
	"github.com/stratakv/strata/partition"
)

// Bitmaps stores one logical bitmap per base key, segmented and sharded by
// the partition layer. Element ids double as the values: the id being
// inserted routes the write to its shard.
type Bitmaps struct {
	store *partition.Store[*roaring64.Bitmap]
}

// New creates a bitmap store over the named segments table.
func New(table string, optFns ...func(o *partition.Options)) (*Bitmaps, error) {
	store, err := partition.New[*roaring64.Bitmap](table, Codec{}, optFns...)
	if err != nil {
		return nil, err
	}

	return &Bitmaps{store: store}, nil
}

// Store exposes the underlying partitioned store.
func (b *Bitmaps) Store() *partition.Store[*roaring64.Bitmap] { return b.store }

// Insert adds id to baseKey's bitmap.
func (b *Bitmaps) Insert(txn kv.WriteTxn, baseKey []byte, id uint64) (partition.WriteResult, error) {
	delta := roaring64.New()
	delta.Add(id)

	return b.store.Write(txn, baseKey, id, delta)
}

// InsertMany adds a batch of ids to baseKey's bitmap with one segment write
// per touched shard.
func (b *Bitmaps) InsertMany(txn kv.WriteTxn, baseKey []byte, ids []uint64) error {
	groups, order, err := b.groupByShard(baseKey, ids)
	if err != nil {
		return err
	}

	for _, shard := range order {
		g := groups[shard]
		if _, err := b.store.Write(txn, baseKey, g.router, g.ids); err != nil {
			return err
		}
	}

	return nil
}

// Remove deletes id from baseKey's bitmap and reports whether it was
// present. Only the id's shard is touched; segments shrink in place and
// never merge.
func (b *Bitmaps) Remove(txn kv.WriteTxn, baseKey []byte, id uint64) (bool, error) {
	var removed bool

	err := b.store.MutateShard(txn, baseKey, id, func(v *roaring64.Bitmap) (*roaring64.Bitmap, bool) {
		if !v.Contains(id) {
			return v, false
		}
		v.Remove(id)
		removed = true
		return v, true
	})
	if err != nil {
		return false, err
	}

	return removed, nil
}

// RemoveMany deletes a batch of ids from baseKey's bitmap with one shard
// rewrite per touched shard.
func (b *Bitmaps) RemoveMany(txn kv.WriteTxn, baseKey []byte, ids []uint64) error {
	groups, order, err := b.groupByShard(baseKey, ids)
	if err != nil {
		return err
	}

	for _, shard := range order {
		g := groups[shard]

		err := b.store.MutateShard(txn, baseKey, g.router, func(v *roaring64.Bitmap) (*roaring64.Bitmap, bool) {
			before := v.GetCardinality()
			v.AndNot(g.ids)
			return v, v.GetCardinality() != before
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Contains reports whether id is in baseKey's bitmap, reading only the
// id's shard.
func (b *Bitmaps) Contains(txn kv.ReadTxn, baseKey []byte, id uint64) (bool, error) {
	shard, err := b.store.Shard(baseKey, id)
	if err != nil {
		return false, err
	}

	v, err := b.store.ReadShard(txn, baseKey, shard)
	if err != nil {
		return false, err
	}

	return v.Contains(id), nil
}

// Count returns the cardinality of baseKey's bitmap.
func (b *Bitmaps) Count(txn kv.ReadTxn, baseKey []byte) (uint64, error) {
	v, err := b.store.Read(txn, baseKey)
	if err != nil {
		return 0, err
	}

	return v.GetCardinality(), nil
}

// Read returns baseKey's full bitmap. An absent base key reads as an empty
// bitmap.
func (b *Bitmaps) Read(txn kv.ReadTxn, baseKey []byte) (*roaring64.Bitmap, error) {
	return b.store.Read(txn, baseKey)
}

// Members yields baseKey's ids in ascending order. The union is
// materialized up front, so the sequence stays valid after the transaction
// ends.
func (b *Bitmaps) Members(txn kv.ReadTxn, baseKey []byte) (iter.Seq[uint64], error) {
	v, err := b.store.Read(txn, baseKey)
	if err != nil {
		return nil, err
	}

	return func(yield func(uint64) bool) {
		it := v.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}, nil
}

// SerializedSize returns the encoded size of baseKey's full bitmap, the
// size it would have as a single unsegmented value.
func (b *Bitmaps) SerializedSize(txn kv.ReadTxn, baseKey []byte) (int, error) {
	v, err := b.store.Read(txn, baseKey)
	if err != nil {
		return 0, err
	}

	return Codec{}.SerializedSize(v), nil
}

// Clear deletes baseKey's bitmap across all shards.
func (b *Bitmaps) Clear(txn kv.WriteTxn, baseKey []byte) error {
	return b.store.Clear(txn, baseKey)
}

type shardGroup struct {
	// router is the first id seen for the shard; any id of the group
	// routes the write identically.
	router uint64
	ids    *roaring64.Bitmap
}

// groupByShard buckets ids by the shard they map to, keeping a stable
// ascending shard order for deterministic writes.
func (b *Bitmaps) groupByShard(baseKey []byte, ids []uint64) (map[uint16]*shardGroup, []uint16, error) {
	groups := make(map[uint16]*shardGroup)

	for _, id := range ids {
		shard, err := b.store.Shard(baseKey, id)
		if err != nil {
			return nil, nil, err
		}

		g, ok := groups[shard]
		if !ok {
			g = &shardGroup{router: id, ids: roaring64.New()}
			groups[shard] = g
		}
		g.ids.Add(id)
	}

	order := make([]uint16, 0, len(groups))
	for shard := range groups {
		order = append(order, shard)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	return groups, order, nil
}
