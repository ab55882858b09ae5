// Package sources contains the collectors that pull raw content from
// upstream platforms and hand back normalized Items.
package sources

import (
	"context"

	"github.com/postveille/curator/internal/models"
)

// Source is the contract every collector implements.
type Source interface {
	Name() string
	Enabled() bool
	Collect(ctx context.Context) ([]models.Item, error)
}
