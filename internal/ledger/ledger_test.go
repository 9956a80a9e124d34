package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/lightsout/internal/constants"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), constants.LedgerFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)
	base := time.Date(2026, 10, 15, 22, 0, 0, 0, time.Local)

	require.NoError(t, l.Record(ctx, Event{At: base, Kind: constants.EventOverrideDenied, NightID: "2026-10-16", Code: "phrase_mismatch"}))
	require.NoError(t, l.Record(ctx, Event{At: base.Add(time.Minute), Kind: constants.EventOverrideGranted, NightID: "2026-10-16", Detail: "deploy"}))
	require.NoError(t, l.Record(ctx, Event{At: base.Add(2 * time.Minute), Kind: constants.EventPlanBuilt, NightID: "2026-10-16"}))

	events, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, constants.EventPlanBuilt, events[0].Kind)
	assert.Equal(t, constants.EventOverrideGranted, events[1].Kind)
	assert.Equal(t, "deploy", events[1].Detail)
	assert.True(t, events[1].At.Equal(base.Add(time.Minute)))
	assert.NotEmpty(t, events[0].ID)
	assert.NotZero(t, events[0].PID)
}

func TestReopenKeepsEvents(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), constants.LedgerFileName)

	l, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, Event{Kind: constants.EventShutdownRequested}))
	require.NoError(t, l.Close())

	l, err = Open(ctx, path)
	require.NoError(t, err)
	defer l.Close()

	events, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, constants.EventShutdownRequested, events[0].Kind)
}

type failingJournal struct{ calls int }

func (f *failingJournal) Record(context.Context, Event) error {
	f.calls++
	return errors.New("disk full")
}

func TestLogSwallowsErrors(t *testing.T) {
	j := &failingJournal{}
	Log(context.Background(), j, Event{Kind: constants.EventWarningPresented})
	assert.Equal(t, 1, j.calls)

	Log(context.Background(), nil, Event{Kind: constants.EventWarningPresented})
	Log(context.Background(), Discard, Event{Kind: constants.EventWarningPresented})
}
