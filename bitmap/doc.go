// Package bitmap stores roaring bitmaps through the partition layer. Codec
// is the versioned value codec driving segment rolling; Bitmaps wraps it
// with member-level operations (insert, remove, contains, count) so callers
// never touch segments directly.
package bitmap
