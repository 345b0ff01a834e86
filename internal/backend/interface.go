package backend

import (
	"context"

	"bilancio/internal/services"
	"bilancio/internal/store"
)

// CleanupFunc releases what a backend opened.
type CleanupFunc func() error

// BackendResult is a ready record store plus the optional override event
// publisher. Publisher is nil when no broker is configured.
type BackendResult struct {
	Repository store.Repository
	Publisher  services.OverridePublisher
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific; empty starts with no records
	SeedFile string

	// Optional override events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
