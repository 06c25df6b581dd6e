package strata

import (
	"errors"
	"fmt"

	"github.com/stratakv/strata/kv"
)

var (
	// ErrNotFound is returned when a requested table is not found.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write transaction loses a conflict
	// and has to be retried by the caller.
	ErrConflict = errors.New("transaction conflict")

	// ErrClosed is returned when the database has been closed.
	ErrClosed = errors.New("database closed")

	// ErrNoStore is returned when New is called without a base store.
	ErrNoStore = errors.New("nil base store")
)

// translateError unifies base-store errors under the facade sentinels.
// Errors from the layer packages (partition, bucket, dump, dbcopy) are
// already typed and pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, kv.ErrTableNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, kv.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if errors.Is(err, kv.ErrStoreClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
