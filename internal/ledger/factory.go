// File: internal/ledger/factory.go
package ledger

import (
	"strings"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/config"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// NewStore creates a new ledger store instance based on configuration
func NewStore(cfg *config.LedgerConfig) (Store, error) {
	storeConfig := &StoreConfig{
		Type:             cfg.Type,
		ConnectionString: cfg.ConnectionString,
		MaxConnections:   cfg.MaxConnections,
		MaxIdleTime:      cfg.MaxIdleTime,
	}

	switch strings.ToLower(cfg.Type) {
	case "sqlite":
		return NewSQLiteStore(storeConfig), nil
	case "postgres", "postgresql":
		return NewPostgresStore(storeConfig), nil
	default:
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported ledger type", cfg.Type)
	}
}

// ValidateLedgerConfig validates ledger configuration
func ValidateLedgerConfig(cfg *config.LedgerConfig) error {
	if cfg.Type == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Ledger type is required", "")
	}

	if cfg.ConnectionString == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Ledger connection string is required", "")
	}

	if cfg.MaxConnections <= 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Max connections must be positive", "")
	}

	supportedTypes := []string{"sqlite", "postgres", "postgresql"}
	supported := false
	for _, t := range supportedTypes {
		if strings.ToLower(cfg.Type) == t {
			supported = true
			break
		}
	}

	if !supported {
		return utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported ledger type",
			"Supported types: "+strings.Join(supportedTypes, ", "))
	}

	return nil
}
