package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const provisionLockTTL = 60 * time.Second

// Provisioner serializes index provisioning per index name. The
// delete-then-create sequence of Recreate is not safe to run concurrently
// against the same name from two callers, so each recreate takes a named
// lock first: a redis SETNX lease when redis is available, an in-process
// mutex otherwise.
type Provisioner struct {
	manager *Manager
	rdb     *redis.Client

	mu    sync.Mutex
	local map[string]*sync.Mutex
}

func NewProvisioner(manager *Manager, rdb *redis.Client) *Provisioner {
	return &Provisioner{
		manager: manager,
		rdb:     rdb,
		local:   make(map[string]*sync.Mutex),
	}
}

// Recreate rebuilds the named index under the per-name lock.
func (p *Provisioner) Recreate(ctx context.Context, name string, dimension int) error {
	if p.rdb != nil {
		return p.recreateWithLease(ctx, name, dimension)
	}

	lock := p.localLock(name)
	lock.Lock()
	defer lock.Unlock()
	return p.manager.Recreate(ctx, name, dimension)
}

func (p *Provisioner) recreateWithLease(ctx context.Context, name string, dimension int) error {
	key := "provision:" + name
	ok, err := p.rdb.SetNX(ctx, key, "1", provisionLockTTL).Result()
	if err != nil {
		// Fail closed: without the lease two recreates could interleave
		// delete and create against the same name.
		return fmt.Errorf("failed to acquire provisioning lock for %q: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("index %q is already being provisioned", name)
	}
	defer p.rdb.Del(context.Background(), key)

	return p.manager.Recreate(ctx, name, dimension)
}

func (p *Provisioner) localLock(name string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lock, ok := p.local[name]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	p.local[name] = lock
	return lock
}
