// Package storage provides ledger persistence with pluggable backends.
package storage

import (
	"fmt"

	"github.com/rtirumala2025/investx/internal/common"
	"github.com/rtirumala2025/investx/internal/interfaces"
	"github.com/rtirumala2025/investx/internal/storage/memory"
	"github.com/rtirumala2025/investx/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendSurrealDB = "surrealdb"
	BackendMemory    = "memory"
)

// NewLedgerStore creates a ledger store based on the configuration.
// Supported backends: "surrealdb" (default), "memory".
func NewLedgerStore(logger *common.Logger, config *common.Config) (interfaces.LedgerStore, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = BackendSurrealDB
	}

	switch backend {
	case BackendSurrealDB:
		return surrealdb.NewStore(logger, config)

	case BackendMemory:
		logger.Warn().Msg("Using in-memory ledger store; data is lost on restart")
		return memory.NewStore(logger), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: surrealdb, memory)", backend)
	}
}
