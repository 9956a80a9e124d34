package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/models"
)

// NightStore persists the single current NightState.
type NightStore struct {
	rec *recordStore[models.NightState]
}

func NewNightStore(files *FileStore) *NightStore {
	return &NightStore{
		rec: newRecordStore(files, constants.NightStateFileName, nightChain, models.NightState.Clone),
	}
}

func usableFor(baseDeadline time.Time) func(models.NightState) bool {
	nightID := models.NightIDFor(baseDeadline)
	return func(n models.NightState) bool {
		return n.IsInitialized() && n.NightID == nightID
	}
}

func freshFor(baseDeadline time.Time) func() models.NightState {
	return func() models.NightState {
		return models.NewNightState(baseDeadline)
	}
}

// LoadOrCreateForNight returns the record for the night of baseDeadline. A
// missing, unreadable or previous-night record is superseded by a fresh one.
// The stored base deadline may differ from baseDeadline within the same night;
// reconciling that is the caller's job (see agent rebase).
func (s *NightStore) LoadOrCreateForNight(ctx context.Context, baseDeadline time.Time) (Snapshot[models.NightState], error) {
	return s.rec.loadOrCreate(ctx, usableFor(baseDeadline), freshFor(baseDeadline))
}

// Peek reads the current record without creating or superseding anything.
// Schema upgrades are still persisted.
func (s *NightStore) Peek(ctx context.Context) (Snapshot[models.NightState], bool, error) {
	return s.rec.load(ctx)
}

// ResolveBase returns the base deadline a caller at now should address. It is
// computed unless the stored record belongs to another night whose effective
// deadline is still ahead; that night is not over yet and keeps its own base.
func (s *NightStore) ResolveBase(ctx context.Context, now, computed time.Time) (time.Time, error) {
	snap, found, err := s.rec.load(ctx)
	if errors.Is(err, ErrCorrupt) {
		return computed, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	n := snap.Value
	if found && n.IsInitialized() && n.NightID != models.NightIDFor(computed) && now.Before(n.EffectiveDeadline) {
		return n.BaseDeadline, nil
	}
	return computed, nil
}

// Update applies mutate to the night of baseDeadline with CAS retry.
func (s *NightStore) Update(ctx context.Context, baseDeadline time.Time, mutate func(*models.NightState) error) (models.NightState, error) {
	return s.rec.update(ctx, usableFor(baseDeadline), freshFor(baseDeadline), mutate)
}

// CompareAndSwap writes n only if the record is still at expected.
func (s *NightStore) CompareAndSwap(ctx context.Context, expected Version, n models.NightState) (Version, error) {
	return s.rec.write(ctx, expected, n)
}
