package library_test

import (
	stdErrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/library"
)

type memoryStore struct {
	games   []library.Game
	saveErr error
	saves   int
}

func (m *memoryStore) LoadGames() ([]library.Game, error) {
	out := make([]library.Game, len(m.games))
	copy(out, m.games)
	return out, nil
}

func (m *memoryStore) SaveGames(games []library.Game) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.games = append([]library.Game(nil), games...)
	return nil
}

func completed(t *testing.T, id, path string) download.Record {
	t.Helper()
	rec := download.New(id, "", filepath.Base(path), "")
	rec.Complete(path, time.Now())
	return rec
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestSaveKeepsLaunchConfigAndIcon(t *testing.T) {
	store := &memoryStore{games: []library.Game{{
		ID:           "g1",
		Filename:     "old.zip",
		LaunchConfig: &library.LaunchConfig{ExecutablePath: "/games/g1/run.sh", LaunchMethod: "custom"},
		IconPath:     "/icons/g1.png",
	}}}
	lib := library.New(store)

	require.NoError(t, lib.Save([]download.Record{
		completed(t, "g1", "/games/new.zip"),
		completed(t, "g2", "/games/other.zip"),
	}))

	require.Len(t, store.games, 2)
	g1 := store.games[0]
	assert.Equal(t, "new.zip", g1.Filename)
	require.NotNil(t, g1.LaunchConfig)
	assert.Equal(t, "/games/g1/run.sh", g1.LaunchConfig.ExecutablePath)
	assert.Equal(t, "/icons/g1.png", g1.IconPath)
	assert.Nil(t, store.games[1].LaunchConfig)
}

func TestSavePersistenceFailure(t *testing.T) {
	store := &memoryStore{saveErr: stdErrors.New("disk full")}
	lib := library.New(store)

	err := lib.Save([]download.Record{completed(t, "g1", "/a.zip")})
	assert.True(t, errors.IsPersistence(err))
}

func TestPromote(t *testing.T) {
	store := &memoryStore{games: []library.Game{
		{ID: "g1", IconPath: "/icons/g1.png"},
		{ID: "g2"},
	}}
	lib := library.New(store)

	require.NoError(t, lib.Promote(completed(t, "g1", "/games/g1.zip")))
	require.NoError(t, lib.Promote(completed(t, "g3", "/games/g3.zip")))

	require.Len(t, store.games, 3)
	assert.Equal(t, "/games/g1.zip", store.games[0].Path)
	assert.Equal(t, "/icons/g1.png", store.games[0].IconPath)
	assert.Equal(t, "g3", store.games[2].ID)

	pending := download.New("g4", "", "g4.zip", "")
	err := lib.Promote(pending)
	assert.True(t, errors.IsInvalid(err))
}

func TestGamesDropsVanishedFiles(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.zip")
	extracted := filepath.Join(dir, "archive.zip_extracted")
	touch(t, present)
	require.NoError(t, os.Mkdir(extracted, 0o755))

	store := &memoryStore{games: []library.Game{
		{ID: "present", Path: present},
		{ID: "extracted-only", Path: filepath.Join(dir, "archive.zip"), ExtractedPath: extracted},
		{ID: "gone", Path: filepath.Join(dir, "gone.zip"), ExtractedPath: filepath.Join(dir, "gone.zip_extracted")},
		{ID: "never-extracted", Path: filepath.Join(dir, "missing.zip")},
		{ID: "no-path"},
	}}
	lib := library.New(store)

	games, err := lib.Games()
	require.NoError(t, err)

	ids := make([]string, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []string{"present", "extracted-only", "never-extracted", "no-path"}, ids)
	assert.Equal(t, 1, store.saves)
	assert.Len(t, store.games, 4)
}

func TestGamesNoChangeDoesNotSave(t *testing.T) {
	store := &memoryStore{games: []library.Game{{ID: "no-path"}}}
	lib := library.New(store)

	_, err := lib.Games()
	require.NoError(t, err)
	assert.Zero(t, store.saves)
}

func TestSetLaunchConfig(t *testing.T) {
	store := &memoryStore{games: []library.Game{{ID: "g1"}}}
	lib := library.New(store)

	cfg := library.LaunchConfig{ExecutablePath: "/g/game.exe", LaunchMethod: "wine"}
	require.NoError(t, lib.SetLaunchConfig("g1", cfg, "/icons/g1.png"))
	require.NotNil(t, store.games[0].LaunchConfig)
	assert.Equal(t, "wine", store.games[0].LaunchConfig.LaunchMethod)
	assert.Equal(t, "/icons/g1.png", store.games[0].IconPath)

	err := lib.SetLaunchConfig("missing", cfg, "")
	assert.True(t, errors.IsNotFound(err))
}
