// File: internal/document/factory.go
package document

import (
	"strings"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/config"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// NewStore creates a document store instance based on configuration
func NewStore(cfg *config.DocumentConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "http":
		if cfg.BaseURL == "" {
			return nil, utils.NewAppError(utils.ErrCodeConfiguration,
				"Document host base URL is required", "")
		}
		return NewHTTPStore(cfg), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported document store type", cfg.Type)
	}
}
