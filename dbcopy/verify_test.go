package dbcopy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratakv/strata/dbcopy"
	"github.com/stratakv/strata/kv"
	"github.com/stratakv/strata/resource"
)

func TestVerifyMatchingStores(t *testing.T) {
	src := newKV(t)
	dst := newKV(t)
	seed(t, src)

	_, err := dbcopy.Copy(context.Background(), src, dst, seedPlan())
	require.NoError(t, err)

	mismatches, err := dbcopy.NewVerifier().Verify(context.Background(), src, dst, seedPlan())
	require.NoError(t, err)
	require.Empty(t, mismatches)
}

func TestVerifyDetectsChangedValue(t *testing.T) {
	src := newKV(t)
	dst := newKV(t)
	seed(t, src)

	_, err := dbcopy.Copy(context.Background(), src, dst, seedPlan())
	require.NoError(t, err)
	putRow(t, dst, "members", []byte("k1"), []byte("tampered"))

	mismatches, err := dbcopy.NewVerifier().Verify(context.Background(), src, dst, seedPlan())
	require.NoError(t, err)
	require.Len(t, mismatches, 1)

	m := mismatches[0]
	require.Equal(t, "members", m.Table)
	require.True(t, m.Src.Present)
	require.True(t, m.Dst.Present)
	require.Equal(t, m.Src.Rows, m.Dst.Rows)
	require.NotEqual(t, m.Src.Sum, m.Dst.Sum)
}

func TestVerifyDetectsExtraRow(t *testing.T) {
	src := newKV(t)
	dst := newKV(t)
	seed(t, src)

	_, err := dbcopy.Copy(context.Background(), src, dst, seedPlan())
	require.NoError(t, err)
	putRow(t, dst, "members", []byte("k3"), []byte("v3"))

	mismatches, err := dbcopy.NewVerifier().Verify(context.Background(), src, dst, seedPlan())
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	require.Equal(t, uint64(2), mismatches[0].Src.Rows)
	require.Equal(t, uint64(3), mismatches[0].Dst.Rows)
}

func TestVerifyDetectsMissingTable(t *testing.T) {
	src := newKV(t)
	dst := newKV(t)
	seed(t, src)

	mismatches, err := dbcopy.NewVerifier().Verify(context.Background(), src, dst, seedPlan())
	require.NoError(t, err)
	require.Len(t, mismatches, 3)

	for _, m := range mismatches {
		require.True(t, m.Src.Present)
		require.False(t, m.Dst.Present)
	}
}

func TestVerifyMissingOnBothSidesMatches(t *testing.T) {
	src := newKV(t)
	dst := newKV(t)

	mismatches, err := dbcopy.NewVerifier().Verify(context.Background(), src, dst, seedPlan())
	require.NoError(t, err)
	require.Empty(t, mismatches)
}

func TestVerifyMismatchesSorted(t *testing.T) {
	src := newKV(t)
	dst := newKV(t)
	seed(t, src)

	// Plan order differs from name order; output must be name order.
	plan := dbcopy.Plan{
		dbcopy.Table("settings"),
		dbcopy.Table("members"),
		dbcopy.Multimap("events"),
	}
	mismatches, err := dbcopy.NewVerifier().Verify(context.Background(), src, dst, plan)
	require.NoError(t, err)
	require.Len(t, mismatches, 3)
	require.Equal(t, "events", mismatches[0].Table)
	require.Equal(t, "members", mismatches[1].Table)
	require.Equal(t, "settings", mismatches[2].Table)
}

func TestVerifyKindConflictIsAnError(t *testing.T) {
	src := newKV(t)
	dst := newKV(t)
	seed(t, src)

	plan := dbcopy.Plan{dbcopy.Multimap("members")}
	_, err := dbcopy.NewVerifier().Verify(context.Background(), src, dst, plan)
	require.ErrorIs(t, err, kv.ErrTableKind)
}

func TestVerifySharedController(t *testing.T) {
	src := newKV(t)
	dst := newKV(t)
	seed(t, src)

	rc := resource.NewController(resource.Config{MaxWorkers: 2})
	v := dbcopy.NewVerifier(func(o *dbcopy.VerifyOptions) {
		o.Controller = rc
	})

	_, err := dbcopy.Copy(context.Background(), src, dst, seedPlan(), func(o *dbcopy.Options) {
		o.Controller = rc
	})
	require.NoError(t, err)

	mismatches, err := v.Verify(context.Background(), src, dst, seedPlan())
	require.NoError(t, err)
	require.Empty(t, mismatches)
}
