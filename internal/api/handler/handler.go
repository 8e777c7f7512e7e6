package handler

import (
	"log/slog"

	"github.com/go-johnnyhe/jobs/internal/storage"
	"github.com/go-johnnyhe/jobs/shared/postgresql"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	DBClient *postgresql.Client
	Storage  *storage.Storage
}

// JobHandler serves the read-only tracker API
type JobHandler struct {
	logger   *slog.Logger
	dbClient *postgresql.Client
	storage  *storage.Storage
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:   deps.Logger,
		dbClient: deps.DBClient,
		storage:  deps.Storage,
	}
}
