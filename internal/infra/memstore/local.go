package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"tooldeck/internal/domain"
)

var memoriesBucket = []byte("memories")

// Local is the file-backed fallback store used when no remote memory API is
// configured. Entries live in a single bbolt bucket keyed by UUID.
type Local struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
	logger *zap.Logger
}

func OpenLocal(cfg domain.MemoryConfig, logger *zap.Logger) (*Local, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := cfg.DataDir
	if dir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, domain.E(domain.CodeInternal, "memstore.OpenLocal", "resolve cache dir", err)
		}
		dir = filepath.Join(cacheDir, "tooldeck")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.E(domain.CodeInternal, "memstore.OpenLocal", fmt.Sprintf("ensure data dir %s", dir), err)
	}

	path := filepath.Join(dir, "memories.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "memstore.OpenLocal", fmt.Sprintf("open %s", path), err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(memoriesBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, domain.E(domain.CodeInternal, "memstore.OpenLocal", "create memories bucket", err)
	}

	named := logger.Named("memory")
	named.Debug("local memory store opened", zap.String("path", path))
	return &Local{db: db, path: path, logger: named}, nil
}

func (l *Local) Add(ctx context.Context, content string, tags []string) (Memory, error) {
	memory := Memory{
		ID:        uuid.NewString(),
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}
	encoded, err := json.Marshal(memory)
	if err != nil {
		return Memory{}, domain.E(domain.CodeInternal, "memstore.Add", "encode memory", err)
	}

	err = l.update(func(tx *bolt.Tx) error {
		return tx.Bucket(memoriesBucket).Put([]byte(memory.ID), encoded)
	})
	if err != nil {
		return Memory{}, err
	}
	l.logger.Debug("memory stored", zap.String("id", memory.ID))
	return memory, nil
}

// Path returns the location of the backing file.
func (l *Local) Path() string { return l.path }

func (l *Local) Search(ctx context.Context, query string, limit int) ([]Memory, error) {
	needle := strings.ToLower(query)
	memories, err := l.load(func(memory Memory) bool {
		return strings.Contains(strings.ToLower(memory.Content), needle)
	})
	if err != nil {
		return nil, err
	}
	return truncate(memories, limit), nil
}

func (l *Local) List(ctx context.Context, limit int) ([]Memory, error) {
	memories, err := l.load(nil)
	if err != nil {
		return nil, err
	}
	return truncate(memories, limit), nil
}

func (l *Local) Delete(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	err := l.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(memoriesBucket)
		for _, id := range ids {
			key := []byte(id)
			if bucket.Get(key) == nil {
				continue
			}
			if err := bucket.Delete(key); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

// load collects entries matching keep (nil keeps everything), newest first.
func (l *Local) load(keep func(Memory) bool) ([]Memory, error) {
	var memories []Memory
	err := l.view(func(tx *bolt.Tx) error {
		return tx.Bucket(memoriesBucket).ForEach(func(_, value []byte) error {
			var memory Memory
			if err := json.Unmarshal(value, &memory); err != nil {
				return err
			}
			if keep == nil || keep(memory) {
				memories = append(memories, memory)
			}
			return nil
		})
	})
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "memstore.Local", "read memories", err)
	}

	sort.Slice(memories, func(i, j int) bool {
		return memories[i].CreatedAt.After(memories[j].CreatedAt)
	})
	return memories, nil
}

func (l *Local) view(fn func(*bolt.Tx) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return domain.E(domain.CodeInternal, "memstore.Local", "store is closed", nil)
	}
	return l.db.View(fn)
}

func (l *Local) update(fn func(*bolt.Tx) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return domain.E(domain.CodeInternal, "memstore.Local", "store is closed", nil)
	}
	if err := l.db.Update(fn); err != nil {
		return domain.E(domain.CodeInternal, "memstore.Local", "write memories", err)
	}
	return nil
}

func truncate(memories []Memory, limit int) []Memory {
	if limit > 0 && len(memories) > limit {
		return memories[:limit]
	}
	return memories
}
