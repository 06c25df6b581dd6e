package benchmark_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stratakv/strata/dbcopy"
	"github.com/stratakv/strata/dump"
	"github.com/stratakv/strata/kv"
)

func BenchmarkDump(b *testing.B) {
	for _, c := range []dump.Compression{dump.None, dump.Snappy, dump.LZ4, dump.Zstd} {
		b.Run(c.String(), func(b *testing.B) {
			benchmarkDump(b, c)
		})
	}
}

func benchmarkDump(b *testing.B, c dump.Compression) {
	b.ReportAllocs()

	store := newBenchStore(b)
	seedTable(b, store, "rows", 10_000, 24, 256)

	txn, err := store.BeginRead()
	if err != nil {
		b.Fatal(err)
	}
	defer txn.Discard()

	var raw int64

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n, err := countingDump(txn, c)
		if err != nil {
			b.Fatal(err)
		}
		raw = n
	}
	b.StopTimer()

	b.ReportMetric(float64(raw), "dump-bytes")
}

func countingDump(txn kv.ReadTxn, c dump.Compression) (int64, error) {
	var cw countingWriter
	err := dump.Dump(&cw, txn, func(o *dump.Options) {
		o.Compression = c
	})

	return cw.n, err
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

func BenchmarkRestore(b *testing.B) {
	b.ReportAllocs()

	src := newBenchStore(b)
	seedTable(b, src, "rows", 10_000, 24, 256)

	var buf bytes.Buffer
	txn, err := src.BeginRead()
	if err != nil {
		b.Fatal(err)
	}
	if err := dump.Dump(&buf, txn); err != nil {
		b.Fatal(err)
	}
	txn.Discard()

	data := buf.Bytes()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		dst := newBenchStore(b)
		b.StartTimer()

		wtxn, err := dst.BeginWrite()
		if err != nil {
			b.Fatal(err)
		}
		if err := dump.Restore(bytes.NewReader(data), wtxn); err != nil {
			b.Fatal(err)
		}
		if err := wtxn.Commit(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCopy(b *testing.B) {
	b.ReportAllocs()

	ctx := context.Background()

	src := newBenchStore(b)
	seedTable(b, src, "rows", 10_000, 24, 256)

	plan := dbcopy.Plan{dbcopy.Table("rows")}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		dst := newBenchStore(b)
		b.StartTimer()

		if _, err := dbcopy.Copy(ctx, src, dst, plan); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkVerify(b *testing.B) {
	b.ReportAllocs()

	ctx := context.Background()

	src := newBenchStore(b)
	dst := newBenchStore(b)
	for _, store := range []kv.Store{src, dst} {
		seedTable(b, store, "rows", 10_000, 24, 256)
	}

	plan := dbcopy.Plan{dbcopy.Table("rows")}
	verifier := dbcopy.NewVerifier()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mismatches, err := verifier.Verify(ctx, src, dst, plan)
		if err != nil {
			b.Fatal(err)
		}
		if len(mismatches) != 0 {
			b.Fatal(fmt.Errorf("unexpected mismatches: %d", len(mismatches)))
		}
	}
}
