package library

import (
	"fmt"
	"os"
	"sync"

	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/logger"
	"github.com/chanomhub/gamedl/internal/status"
)

// Store persists the saved games list as a whole.
type Store interface {
	LoadGames() ([]Game, error)
	SaveGames(games []Game) error
}

// Library is the saved games list. User-attached launch configuration and
// icons are kept across every re-save of the same id.
type Library struct {
	mu    sync.Mutex
	store Store
}

func New(store Store) *Library {
	return &Library{store: store}
}

// Save replaces the saved list with records, keeping the launch config and
// icon of games already present under the same id.
func (l *Library) Save(records []download.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.store.LoadGames()
	if err != nil {
		return fmt.Errorf("failed to load games: %w", err)
	}

	byID := make(map[string]Game, len(existing))
	for _, g := range existing {
		byID[g.ID] = g
	}

	games := make([]Game, 0, len(records))
	for _, rec := range records {
		games = append(games, merge(FromRecord(rec), byID))
	}

	if err := l.store.SaveGames(games); err != nil {
		return errors.NewPersistenceError("games", err)
	}

	logger.Infof("Saved %d game(s)", len(games))
	return nil
}

// Promote adds or refreshes one completed download, leaving other games untouched.
func (l *Library) Promote(rec download.Record) error {
	if rec.Status != status.Completed {
		return errors.NewInvalidError("promote", rec.ID, fmt.Errorf("download is %s, not completed", rec.Status))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.store.LoadGames()
	if err != nil {
		return fmt.Errorf("failed to load games: %w", err)
	}

	game := FromRecord(rec)
	games := make([]Game, 0, len(existing)+1)
	replaced := false
	for _, g := range existing {
		if g.ID == game.ID {
			g = merge(game, map[string]Game{g.ID: g})
			replaced = true
		}
		games = append(games, g)
	}
	if !replaced {
		games = append(games, game)
	}

	if err := l.store.SaveGames(games); err != nil {
		return errors.NewPersistenceError("games", err)
	}

	return nil
}

// Games returns the saved games whose files still exist. Games whose path and
// extracted path are both recorded and both gone are dropped and the list is
// persisted again.
func (l *Library) Games() ([]Game, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	games, err := l.store.LoadGames()
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}

	valid := make([]Game, 0, len(games))
	for _, g := range games {
		if onDisk(g) {
			valid = append(valid, g)
			continue
		}

		logger.Infof("Removing game %s from state as its files no longer exist", g.ID)
	}

	if len(valid) != len(games) {
		if err := l.store.SaveGames(valid); err != nil {
			return valid, errors.NewPersistenceError("games", err)
		}
	}

	return valid, nil
}

// SetLaunchConfig attaches cfg and iconPath to the saved game id.
func (l *Library) SetLaunchConfig(id string, cfg LaunchConfig, iconPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	games, err := l.store.LoadGames()
	if err != nil {
		return fmt.Errorf("failed to load games: %w", err)
	}

	found := false
	for i := range games {
		if games[i].ID == id {
			c := cfg
			games[i].LaunchConfig = &c
			games[i].IconPath = iconPath
			found = true
			break
		}
	}

	if !found {
		return errors.NewNotFoundError("set launch config", id)
	}

	if err := l.store.SaveGames(games); err != nil {
		return errors.NewPersistenceError("games", err)
	}

	logger.Infof("Updated launch config for game_id: %s", id)
	return nil
}

func merge(game Game, existing map[string]Game) Game {
	if prev, ok := existing[game.ID]; ok {
		game.LaunchConfig = prev.LaunchConfig
		game.IconPath = prev.IconPath
	}
	return game
}

// onDisk keeps a game if either its path or its extracted path exists. An
// empty path counts as present, so a game is only dropped once both are set
// and both are gone.
func onDisk(g Game) bool {
	return exists(g.Path) || exists(g.ExtractedPath)
}

func exists(path string) bool {
	if path == "" {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}
