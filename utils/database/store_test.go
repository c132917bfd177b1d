package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"discord-modbot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func openBackends(t *testing.T) map[string]*Store {
	t.Helper()
	dir := t.TempDir()

	jsonStore, err := Open(model.StorageConfig{
		Backend:   "json",
		LogsFile:  filepath.Join(dir, "logs.json"),
		WarnsFile: filepath.Join(dir, "warns.json"),
	}, zap.NewNop())
	require.NoError(t, err)

	sqliteStore, err := Open(model.StorageConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(dir, "moderation.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]*Store{"json": jsonStore, "sqlite": sqliteStore}
}

func TestActionLogRoundTrip(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []model.ActionLogEntry{
		{Action: model.ActionWarn, Moderator: "mod (1)", Target: strPtr("user (2)"), Reason: strPtr("spam"), Timestamp: base},
		{Action: model.ActionTempMute, Moderator: "mod (1)", Target: strPtr("user (2)"), Duration: strPtr("10m"), Timestamp: base.Add(time.Second)},
		{Action: model.ActionAntiRaid, Moderator: "admin (3)", Details: strPtr("enabled"), Timestamp: base.Add(2 * time.Second)},
	}

	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, e := range entries {
				require.NoError(t, store.Actions.Append(e))
			}

			got, err := store.Actions.Entries()
			require.NoError(t, err)
			require.Len(t, got, len(entries))
			for i := range entries {
				assert.Equal(t, entries[i].Action, got[i].Action)
				assert.Equal(t, entries[i].Moderator, got[i].Moderator)
				assert.Equal(t, entries[i].Target, got[i].Target)
				assert.Equal(t, entries[i].Reason, got[i].Reason)
				assert.Equal(t, entries[i].Duration, got[i].Duration)
				assert.Equal(t, entries[i].Details, got[i].Details)
				assert.True(t, entries[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
			}
		})
	}
}

func TestWarnStoreCountsAndReset(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 1; i <= 4; i++ {
				count, err := store.Warns.Add("42", model.WarnRecord{Reason: "r", Timestamp: now})
				require.NoError(t, err)
				assert.Equal(t, i, count)
			}
			_, err := store.Warns.Add("43", model.WarnRecord{Reason: "other", Timestamp: now})
			require.NoError(t, err)

			records, err := store.Warns.List("42")
			require.NoError(t, err)
			assert.Len(t, records, 4)

			require.NoError(t, store.Warns.Reset("42"))
			count, err := store.Warns.Count("42")
			require.NoError(t, err)
			assert.Zero(t, count)

			count, err = store.Warns.Count("43")
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			_, err = store.Warns.Add("", model.WarnRecord{Reason: "r", Timestamp: now})
			assert.ErrorIs(t, err, ErrEmptyUserID)
		})
	}
}

func TestJSONWarnStoreRecoversFromCorruption(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "warns.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewJSONWarnStore(path, zap.NewNop())
	count, err := store.Count("42")
	require.NoError(t, err)
	assert.Zero(t, count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	count, err = store.Add("42", model.WarnRecord{Reason: "after reset", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestJSONDocumentsAreCreatedWithDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logsPath := filepath.Join(dir, "nested", "logs.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(logsPath), 0o755))
	require.NoError(t, os.WriteFile(logsPath, nil, 0o644))

	entries, err := NewJSONActionLog(logsPath, zap.NewNop()).Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)

	data, err := os.ReadFile(logsPath)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"actions\": []\n}", string(data))

	warnsPath := filepath.Join(dir, "warns.json")
	_, err = NewJSONWarnStore(warnsPath, zap.NewNop()).List("1")
	require.NoError(t, err)
	assert.FileExists(t, warnsPath)
}

func TestJSONResetKeepsKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "warns.json")
	store := NewJSONWarnStore(path, zap.NewNop())
	_, err := store.Add("7", model.WarnRecord{Reason: "r", Timestamp: time.Now()})
	require.NoError(t, err)
	require.NoError(t, store.Reset("7"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"7": []}`, string(data))
}

func TestJSONOptionalFieldsSerializeAsNull(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs.json")
	log := NewJSONActionLog(path, zap.NewNop())
	require.NoError(t, log.Append(model.ActionLogEntry{
		Action:    model.ActionClear,
		Moderator: "mod (1)",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"actions": [{
		"action": "clear", "moderator": "mod (1)", "target": null, "reason": null,
		"duration": null, "details": null, "timestamp": "2024-01-02T03:04:05Z"}]}`, string(data))
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Open(model.StorageConfig{Backend: "postgres"}, nil)
	assert.Error(t, err)
}
