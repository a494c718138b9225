package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	studyshelf "github.com/tmuthoni/studyshelf"
	"github.com/tmuthoni/studyshelf/config"
)

func New(ctx context.Context, cfg config.Database) (studyshelf.RegistrationStore, error) {
	if cfg.Type == "firestore" {
		log.Info().Msg("creating firestore registration store")
		return newFirestoreStore(ctx, cfg.Firestore)
	} else if cfg.Type == "sqlite" {
		log.Info().Msg("creating sqlite registration store")
		return newSQLiteStore(ctx, cfg.SQLite)
	} else if cfg.Type == "file" {
		log.Info().Msg("creating file registration store")
		return NewFileStore(cfg.File.Path)
	} else {
		return nil, errors.New("invalid database type")
	}
}
