package eventworker

import (
	"context"
	"sync"

	coreconfig "github.com/AzielCF/az-connect/core/config"
)

var (
	globalPool     *Pool
	globalPoolOnce sync.Once
	globalCancel   context.CancelFunc
)

// Global returns the process wide pool, started on first use with the sizes
// from the loaded config.
func Global() *Pool {
	globalPoolOnce.Do(func() {
		var ctx context.Context
		ctx, globalCancel = context.WithCancel(context.Background())

		size, queue := 0, 0
		if coreconfig.Global != nil {
			size = coreconfig.Global.WorkerPool.Size
			queue = coreconfig.Global.WorkerPool.QueueSize
		}
		globalPool = NewPool(size, queue)
		globalPool.Start(ctx)
	})
	return globalPool
}

func StopGlobal() {
	if globalPool != nil {
		globalPool.Stop()
	}
	if globalCancel != nil {
		globalCancel()
	}
}
