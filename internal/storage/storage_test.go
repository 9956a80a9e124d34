package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/models"
)

var testBase = time.Date(2026, 10, 16, 2, 0, 0, 0, time.Local)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir())
}

func TestFileStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(t.TempDir())

	data, v0, err := fs.Read("doc.json")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, NoVersion, v0)

	v1, err := fs.CompareAndSwap(ctx, "doc.json", NoVersion, []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.NotEqual(t, NoVersion, v1)

	// A writer still holding the absent version loses.
	_, err = fs.CompareAndSwap(ctx, "doc.json", NoVersion, []byte(`{"a":2}`))
	require.ErrorIs(t, err, ErrConflict)

	v2, err := fs.CompareAndSwap(ctx, "doc.json", v1, []byte(`{"a":3}`))
	require.NoError(t, err)

	data, got, err := fs.Read("doc.json")
	require.NoError(t, err)
	assert.Equal(t, v2, got)
	assert.JSONEq(t, `{"a":3}`, string(data))
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)

	var conflicts int
	fs.OnConflict = func(string) { conflicts++ }

	v, err := fs.CompareAndSwap(context.Background(), "doc.json", NoVersion, []byte(`{}`))
	require.NoError(t, err)
	_, err = fs.CompareAndSwap(context.Background(), "doc.json", NoVersion, []byte(`{}`))
	require.ErrorIs(t, err, ErrConflict)
	_, err = fs.CompareAndSwap(context.Background(), "doc.json", v, []byte(`{"b":true}`))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp file left behind")
	}
	assert.Equal(t, 1, conflicts)
}

func TestLoadOrCreateForNight(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	snap, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", snap.Value.NightID)
	assert.True(t, snap.Value.EffectiveDeadline.Equal(testBase))
	assert.FileExists(t, s.Files.Path(constants.NightStateFileName))

	again, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, again.Version, "second load must not rewrite")
}

func TestLoadOrCreateSupersedesPreviousNight(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Night.Update(ctx, testBase, func(n *models.NightState) error {
		return n.ApplyOverride(time.Hour, testBase.Add(-3*time.Hour), "late deploy window")
	})
	require.NoError(t, err)

	next := testBase.AddDate(0, 0, 1)
	snap, err := s.Night.LoadOrCreateForNight(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", snap.Value.NightID)
	assert.False(t, snap.Value.OverrideUsed)
}

func TestCorruptStateIsReplaced(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	path := s.Files.Path(constants.NightStateFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	snap, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", snap.Value.NightID)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestUnversionedStateIsTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	path := s.Files.Path(constants.NightStateFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"nightId":"2026-10-16","overrideUsed":true}`), 0600))

	snap, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)
	assert.False(t, snap.Value.OverrideUsed)
	assert.Equal(t, models.NightSchemaVersion, snap.Value.SchemaVersion)
}

func TestMigrateNightV1(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	effective := testBase
	sentAt := time.Date(2026, 10, 16, 1, 30, 4, 0, time.Local)
	v1 := map[string]any{
		"schemaVersion":          1,
		"nightId":                "2026-10-16",
		"baseDeadlineLocal":      testBase,
		"effectiveDeadlineLocal": effective,
		"sentWarningsLocal":      map[string]time.Time{"30": sentAt},
	}
	raw, err := json.Marshal(v1)
	require.NoError(t, err)
	path := s.Files.Path(constants.NightStateFileName)
	require.NoError(t, os.WriteFile(path, raw, 0600))

	snap, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)

	wantKey := "2026-10-16T02:00|30"
	assert.Equal(t, models.NightSchemaVersion, snap.Value.SchemaVersion)
	require.Contains(t, snap.Value.SentWarnings, wantKey)
	assert.True(t, snap.Value.SentWarnings[wantKey].Equal(sentAt))
	assert.False(t, snap.Value.OverrideUsed)

	// The upgraded form is what is on disk now.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.JSONEq(t, "2", string(onDisk["schemaVersion"]))

	var warnings map[string]time.Time
	require.NoError(t, json.Unmarshal(onDisk["sentWarningsLocal"], &warnings))
	assert.Contains(t, warnings, wantKey)
	assert.NotContains(t, warnings, "30")

	again, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, again.Version)
	assert.True(t, again.Value.HasSentWarning(effective, 30))
}

func TestSchemaChainMissingUpgrade(t *testing.T) {
	chain := SchemaChain{Record: "test", Current: 3, Upgrades: map[int]Upgrade{
		1: func(b []byte) ([]byte, error) { return b, nil },
	}}
	var out map[string]any
	_, _, err := chain.Decode([]byte(`{"schemaVersion":1}`), &out)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestNightUpdateNoChange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	before, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)

	_, err = s.Night.Update(ctx, testBase, func(*models.NightState) error { return ErrNoChange })
	require.NoError(t, err)

	after, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
}

func TestNightUpdateAbortsOnMutateError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	errStop := errors.New("stop")

	_, err := s.Night.Update(ctx, testBase, func(n *models.NightState) error {
		n.OverrideUsed = true
		return errStop
	})
	require.ErrorIs(t, err, errStop)

	snap, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)
	assert.False(t, snap.Value.OverrideUsed)
}

func TestConcurrentNightUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)

	minutes := []int{60, 30, 5, 2}
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		landed []int
	)
	for _, m := range minutes {
		wg.Add(1)
		go func(m int) {
			defer wg.Done()
			_, err := s.Night.Update(ctx, testBase, func(n *models.NightState) error {
				n.RecordWarning(n.EffectiveDeadline, m, time.Now())
				return nil
			})
			if err != nil {
				// Running out of attempts is allowed; nothing else is.
				assert.ErrorIs(t, err, ErrConflict)
				return
			}
			mu.Lock()
			landed = append(landed, m)
			mu.Unlock()
		}(m)
	}
	wg.Wait()

	snap, err := s.Night.LoadOrCreateForNight(ctx, testBase)
	require.NoError(t, err)
	require.NotEmpty(t, landed)
	assert.Len(t, snap.Value.SentWarnings, len(landed))
	for _, m := range landed {
		assert.True(t, snap.Value.HasSentWarning(testBase, m), "update for %d minutes was lost", m)
	}
}

func TestResolveBaseKeepsLiveNight(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tomorrow := testBase.AddDate(0, 0, 1)

	got, err := s.Night.ResolveBase(ctx, testBase.Add(-time.Hour), testBase)
	require.NoError(t, err)
	assert.True(t, got.Equal(testBase), "no record yet")

	_, err = s.Night.Update(ctx, testBase, func(n *models.NightState) error {
		return n.ApplyOverride(time.Hour, testBase.Add(-3*time.Hour), "finishing the release notes")
	})
	require.NoError(t, err)

	got, err = s.Night.ResolveBase(ctx, testBase.Add(30*time.Minute), tomorrow)
	require.NoError(t, err)
	assert.True(t, got.Equal(testBase), "extended night is still running")

	got, err = s.Night.ResolveBase(ctx, testBase.Add(time.Hour), tomorrow)
	require.NoError(t, err)
	assert.True(t, got.Equal(tomorrow), "extended night is over")

	// Peek and ResolveBase never write.
	snap, found, err := s.Night.Peek(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.NightIDFor(testBase), snap.Value.NightID)
}

func TestWeeklyResetsOnNewWeek(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	thursday := time.Date(2026, 10, 15, 22, 0, 0, 0, time.Local)

	w, err := s.Weekly.IncrementOverrideCount(ctx, thursday)
	require.NoError(t, err)
	assert.Equal(t, 1, w.OverrideCount)
	assert.Equal(t, "2026-10-12", w.WeekStart)

	sameWeek, err := s.Weekly.LoadOrCreateCurrentWeek(ctx, thursday.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, sameWeek.Value.OverrideCount)

	nextWeek, err := s.Weekly.LoadOrCreateCurrentWeek(ctx, thursday.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.Equal(t, 0, nextWeek.Value.OverrideCount)
	assert.Equal(t, "2026-10-19", nextWeek.Value.WeekStart)

	data, err := os.ReadFile(filepath.Join(s.Files.Dir(), constants.WeeklyFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"weekStartLocalDate": "2026-10-19"`)
}

func TestConfigMetaReserve(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 10, 15, 20, 0, 0, 0, time.Local)
	errLimit := errors.New("limit")

	allow := func(m models.ConfigMeta) error {
		if m.SavesThisWeek >= 1 {
			return errLimit
		}
		return nil
	}

	m, err := s.ConfigMeta.Reserve(ctx, now, allow)
	require.NoError(t, err)
	assert.Equal(t, 1, m.SavesThisWeek)
	require.NotNil(t, m.LastConfigSave)

	_, err = s.ConfigMeta.Reserve(ctx, now.Add(time.Hour), allow)
	require.ErrorIs(t, err, errLimit)

	m, err = s.ConfigMeta.Reserve(ctx, now.AddDate(0, 0, 7), allow)
	require.NoError(t, err)
	assert.Equal(t, 1, m.SavesThisWeek)
}
