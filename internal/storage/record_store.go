package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/logger"
	"github.com/julianstephens/lightsout/internal/retry"
)

// Snapshot pairs a record with the version it was read at.
type Snapshot[T any] struct {
	Value   T
	Version Version
}

// recordStore implements load-or-create and CAS update for one JSON record.
type recordStore[T any] struct {
	files  *FileStore
	name   string
	chain  SchemaChain
	policy retry.Policy
	clone  func(T) T
}

func newRecordStore[T any](files *FileStore, name string, chain SchemaChain, clone func(T) T) *recordStore[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &recordStore[T]{
		files: files,
		name:  name,
		chain: chain,
		policy: retry.NewPolicy(retry.BackoffLinear,
			constants.CASRetryInitial, constants.CASRetryMax, constants.CASMaxAttempts),
		clone: clone,
	}
}

// load reads and decodes the record. found is false when the file is absent.
// A record needing a schema upgrade is persisted in its upgraded form before
// it is returned; losing that race to another writer yields ErrConflict.
func (r *recordStore[T]) load(ctx context.Context) (snap Snapshot[T], found bool, err error) {
	data, version, err := r.files.Read(r.name)
	if err != nil {
		return snap, false, err
	}
	snap.Version = version
	if data == nil {
		return snap, false, nil
	}

	upgraded, migrated, err := r.chain.Decode(data, &snap.Value)
	if err != nil {
		return snap, true, err
	}
	if migrated {
		newVersion, err := r.files.CompareAndSwap(ctx, r.name, version, upgraded)
		if err != nil {
			return snap, true, err
		}
		logger.Info("Upgraded persisted record", "record", r.chain.Record, "schema", r.chain.Current)
		snap.Version = newVersion
	}
	return snap, true, nil
}

// write encodes v and stores it if the record is still at expected.
func (r *recordStore[T]) write(ctx context.Context, expected Version, v T) (Version, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return NoVersion, fmt.Errorf("failed to serialize %s: %w", r.chain.Record, err)
	}
	return r.files.CompareAndSwap(ctx, r.name, expected, data)
}

// loadOrCreate returns the stored record when usable reports true for it.
// Otherwise (absent, corrupt, or superseded) fresh() replaces it on disk.
func (r *recordStore[T]) loadOrCreate(ctx context.Context, usable func(T) bool, fresh func() T) (Snapshot[T], error) {
	var out Snapshot[T]
	err := r.policy.Do(ctx, isConflict, func(int) error {
		snap, found, err := r.load(ctx)
		switch {
		case errors.Is(err, ErrCorrupt):
			logger.Warn("Discarding unreadable record", "record", r.chain.Record, "error", err)
		case err != nil:
			return err
		case found && usable(snap.Value):
			out = snap
			return nil
		}

		v := fresh()
		version, err := r.write(ctx, snap.Version, v)
		if err != nil {
			return err
		}
		out = Snapshot[T]{Value: v, Version: version}
		return nil
	})
	return out, err
}

// update applies mutate to a private copy of the current record and writes it
// back conditionally, re-reading and re-applying on conflict. mutate may
// return ErrNoChange to finish without writing; any other error aborts.
func (r *recordStore[T]) update(ctx context.Context, usable func(T) bool, fresh func() T, mutate func(*T) error) (T, error) {
	var out T
	err := r.policy.Do(ctx, isConflict, func(attempt int) error {
		snap, err := r.loadOrCreate(ctx, usable, fresh)
		if err != nil {
			return err
		}

		next := r.clone(snap.Value)
		if err := mutate(&next); err != nil {
			if errors.Is(err, ErrNoChange) {
				out = snap.Value
				return nil
			}
			return err
		}

		if _, err := r.write(ctx, snap.Version, next); err != nil {
			if isConflict(err) {
				logger.Debug("Write conflict, retrying", "record", r.chain.Record, "attempt", attempt)
			}
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func isConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
