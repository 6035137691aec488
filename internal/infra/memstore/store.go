package memstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tooldeck/internal/domain"
)

// Memory is one stored note.
type Memory struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store backs the memory tools. Both implementations order List and Search
// results newest first.
type Store interface {
	Add(ctx context.Context, content string, tags []string) (Memory, error)
	Search(ctx context.Context, query string, limit int) ([]Memory, error)
	List(ctx context.Context, limit int) ([]Memory, error)
	Delete(ctx context.Context, ids []string) (int, error)
	Close() error
}

// New picks the backing store once at startup: the remote API when base URL
// and key are both configured, the local file-backed store otherwise.
func New(cfg domain.MemoryConfig, logger *zap.Logger) (Store, error) {
	if cfg.Remote() {
		return NewRemote(cfg, logger), nil
	}
	return OpenLocal(cfg, logger)
}
