package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/library"
)

const (
	downloadsBucket = "downloads"
	gamesBucket     = "games"
	settingsBucket  = "settings"
	metadataBucket  = "metadata"
	schemaVersion   = 1
)

// ErrSettingNotFound is returned when a setting key was never written.
var ErrSettingNotFound = errors.New("setting not found")

// BboltRepository stores the saved games, the download settings and,
// when selected as backend, the registry snapshot.
type BboltRepository struct {
	db *bbolt.DB
}

var _ library.Store = (*BboltRepository)(nil)

// NewBboltRepository creates a new bbolt repository
func NewBboltRepository(dbPath string) (*BboltRepository, error) {
	options := &bbolt.Options{
		Timeout: 1 * time.Second,
	}

	db, err := bbolt.Open(dbPath, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &BboltRepository{
		db: db,
	}

	if err := repo.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// initialize sets up buckets and schema
func (r *BboltRepository) initialize() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{downloadsBucket, gamesBucket, settingsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}

		metadataBucket, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}

		versionBytes := []byte(fmt.Sprintf("%d", schemaVersion))
		err = metadataBucket.Put([]byte("schema_version"), versionBytes)
		if err != nil {
			return fmt.Errorf("failed to store schema version: %w", err)
		}

		return nil
	})
}

// LoadDownloads reads every record of the downloads bucket.
func (r *BboltRepository) LoadDownloads() (map[string]download.Record, error) {
	downloads := make(map[string]download.Record)

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(downloadsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", downloadsBucket)
		}

		return bucket.ForEach(func(k, v []byte) error {
			var rec download.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal download %s: %w", k, err)
			}

			downloads[string(k)] = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return withIDs(downloads), nil
}

// SaveDownloads replaces the downloads bucket in a single transaction.
func (r *BboltRepository) SaveDownloads(downloads map[string]download.Record) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := recreateBucket(tx, downloadsBucket)
		if err != nil {
			return err
		}

		for id, rec := range downloads {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal download: %w", err)
			}

			if err := bucket.Put([]byte(id), data); err != nil {
				return fmt.Errorf("failed to save download: %w", err)
			}
		}

		return nil
	})
}

// LoadGames returns the saved games ordered by id.
func (r *BboltRepository) LoadGames() ([]library.Game, error) {
	var games []library.Game

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(gamesBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", gamesBucket)
		}

		return bucket.ForEach(func(k, v []byte) error {
			var game library.Game
			if err := json.Unmarshal(v, &game); err != nil {
				return fmt.Errorf("failed to unmarshal game %s: %w", k, err)
			}

			games = append(games, game)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return games, nil
}

// SaveGames replaces the saved games list.
func (r *BboltRepository) SaveGames(games []library.Game) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := recreateBucket(tx, gamesBucket)
		if err != nil {
			return err
		}

		for _, game := range games {
			if game.ID == "" {
				return errors.New("game ID cannot be empty")
			}

			data, err := json.Marshal(game)
			if err != nil {
				return fmt.Errorf("failed to marshal game: %w", err)
			}

			if err := bucket.Put([]byte(game.ID), data); err != nil {
				return fmt.Errorf("failed to save game: %w", err)
			}
		}

		return nil
	})
}

// GetSetting reads a download setting, returning ErrSettingNotFound when unset.
func (r *BboltRepository) GetSetting(key string) (string, error) {
	var value string

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(settingsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", settingsBucket)
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return ErrSettingNotFound
		}

		value = string(data)
		return nil
	})

	return value, err
}

func (r *BboltRepository) PutSetting(key, value string) error {
	if key == "" {
		return errors.New("setting key cannot be empty")
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(settingsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", settingsBucket)
		}

		return bucket.Put([]byte(key), []byte(value))
	})
}

// Close closes the database
func (r *BboltRepository) Close() error {
	return r.db.Close()
}

func recreateBucket(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	if err := tx.DeleteBucket([]byte(name)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
		return nil, fmt.Errorf("failed to clear %s bucket: %w", name, err)
	}

	bucket, err := tx.CreateBucket([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s bucket: %w", name, err)
	}

	return bucket, nil
}
