// Package bucket groups sequence-numbered values into buckets and gives
// them two table layouts plus the machinery to read and compact them.
//
// A bucket is sequence / bucketSize for a fixed positive bucketSize. The
// package offers:
//
//   - Map and Multimap: one bucketed table holding all base keys, keyed by
//     [8-byte BE bucket][base key], iterated with RangeIterator and
//     MultimapRangeIterator. Iteration is bidirectional: Next and NextBack
//     walk the same closed bucket range from opposite ends and meet in the
//     middle, with no whole-range buffering.
//   - Consolidator: one table per bucket, named "{prefix}_{bucket}", for
//     write paths that want to retire whole buckets cheaply. Merge folds
//     bucket tables into a target under a caller-supplied merge law and
//     deletes each source it drains; MergeAll discovers the bucket range
//     from the table names.
//
// All operations run inside the caller's transaction and spawn no
// goroutines.
package bucket
