package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/blockrow/internal/engine"
	"github.com/talgya/blockrow/internal/rules"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)

	w := engine.NewWorld("persist-test", rules.Default(), 6)
	w.Tick = 42

	require.NoError(t, db.AppendTick(w, nil, nil))

	loaded, err := db.LoadWorld()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "persist-test", loaded.Seed)
	assert.Equal(t, uint64(42), loaded.Tick)
	assert.Equal(t, len(w.Map.Districts), len(loaded.Map.Districts))
	assert.Equal(t, len(w.Properties), len(loaded.Properties))
}

func TestLoadWorldEmpty(t *testing.T) {
	db := openTestDB(t)

	w, err := db.LoadWorld()
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestSnapshotReplacesPrevious(t *testing.T) {
	db := openTestDB(t)

	w := engine.NewWorld("persist-test", rules.Default(), 6)
	require.NoError(t, db.AppendTick(w, nil, nil))
	w.Tick = 7
	require.NoError(t, db.AppendTick(w, nil, nil))

	loaded, err := db.LoadWorld()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), loaded.Tick)
}

func TestAppendCommandJournals(t *testing.T) {
	db := openTestDB(t)

	events := []engine.Event{{
		ID: "ev-1", Tick: 3, Timestamp: time.Now().UTC(),
		Type: engine.EvCrimeSuccess, AgentID: "agent-1", ZoneID: "d01",
		Payload: map[string]any{"reward": float64(40)},
	}}
	ledger := []engine.LedgerEntry{{
		Tick: 3, AgentID: "agent-1", Type: engine.LedgerCredit,
		Amount: 40, Reason: "crime: THEFT", Balance: 540, RefEventID: "ev-1",
	}}
	idem := engine.IdempotencyRecord{
		AgentID: "agent-1", RequestID: "req-1", Tick: 3,
		Result: engine.Result{OK: true},
	}

	require.NoError(t, db.AppendCommand(events, ledger, idem))

	got, err := db.AgentEvents("agent-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, engine.EvCrimeSuccess, got[0].Type)
	assert.Equal(t, float64(40), got[0].Payload["reward"])

	legs, err := db.AgentLedger("agent-1", 10)
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, int64(540), legs[0].Balance)
}

func TestIdempotencyRestore(t *testing.T) {
	db := openTestDB(t)

	rec := engine.IdempotencyRecord{
		AgentID: "agent-1", RequestID: "req-9", Tick: 5,
		Result: engine.Result{Code: engine.CodeInsufficientFunds, Message: "too broke"},
	}
	require.NoError(t, db.AppendCommand(nil, nil, rec))

	// A duplicate insert must not overwrite the original result.
	dup := rec
	dup.Result = engine.Result{OK: true}
	require.NoError(t, db.AppendCommand(nil, nil, dup))

	records, err := db.LoadIdempotency()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, engine.CodeInsufficientFunds, records[0].Result.Code)
	assert.False(t, records[0].Result.OK)
}

func TestEventsSince(t *testing.T) {
	db := openTestDB(t)

	for i := uint64(0); i < 5; i++ {
		ev := engine.Event{
			ID: "ev-" + string(rune('a'+i)), Tick: i, Timestamp: time.Now().UTC(),
			Type: engine.EvTick,
		}
		require.NoError(t, db.AppendCommand([]engine.Event{ev}, nil, engine.IdempotencyRecord{}))
	}

	got, err := db.EventsSince(3, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].Tick)
	assert.Equal(t, uint64(4), got[1].Tick)
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("schema_version", "1"))
	require.NoError(t, db.SaveMeta("schema_version", "2"))

	v, err := db.GetMeta("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}
