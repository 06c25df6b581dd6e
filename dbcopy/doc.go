// Package dbcopy bulk-copies tables between stores and verifies the
// result.
//
// A Plan lists the tables to move. Copy runs the whole plan inside one
// transaction pair and refuses to start when any planned table already
// holds rows in the destination:
//
//	plan := dbcopy.Plan{
//		dbcopy.Table("members"),
//		dbcopy.Multimap("events"),
//	}
//	report, err := dbcopy.Copy(ctx, src, dst, plan)
//
// A Verifier confirms a copy afterwards by digesting every planned
// table on both sides:
//
//	mismatches, err := dbcopy.NewVerifier().Verify(ctx, src, dst, plan)
//
// Copy IO can be throttled and Verify concurrency bounded through a
// shared resource.Controller.
package dbcopy
