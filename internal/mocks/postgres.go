package mocks

import (
	"github.com/Billy-Davies-2/kokoloko-draft/internal/dal"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
)

// MockPostgresDAL stands in for Postgres with SQLite during local development
type MockPostgresDAL struct {
	dal.DraftDAL
}

// NewMockPostgresDAL creates a mock Postgres DAL backed by the given SQLite file
func NewMockPostgresDAL(sqliteFile string) (*MockPostgresDAL, error) {
	logger.Info("Using MOCK Postgres (SQLite) for local development", "file", sqliteFile)

	sqliteDAL, err := dal.NewSQLiteDAL(sqliteFile)
	if err != nil {
		return nil, err
	}

	return &MockPostgresDAL{DraftDAL: sqliteDAL}, nil
}
