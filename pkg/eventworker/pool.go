package eventworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Job is a unit of side-effect work tied to a key. Jobs with the same key
// always land on the same worker and run in dispatch order.
type Job struct {
	Key     string
	Kind    string
	Handler func(ctx context.Context) error
}

type PoolStats struct {
	NumWorkers      int           `json:"num_workers"`
	QueueSize       int           `json:"queue_size"`
	ActiveWorkers   int           `json:"active_workers"`
	TotalDispatched int64         `json:"total_dispatched"`
	TotalProcessed  int64         `json:"total_processed"`
	TotalDropped    int64         `json:"total_dropped"`
	TotalErrors     int64         `json:"total_errors"`
	Workers         []WorkerStats `json:"workers"`
}

type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

// Pool is a fixed set of workers, each with its own bounded queue. Dispatch
// never blocks: a full queue drops the job and counts it.
type Pool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	mu         sync.RWMutex
	stopped    bool

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64

	// OnJobDone, when set, is called after every job with its outcome.
	OnJobDone func(job Job, err error)
}

type worker struct {
	id            int
	queue         chan Job
	ctx           context.Context
	cancel        context.CancelFunc
	busy          int32
	jobsProcessed int64
	pool          *Pool
}

func NewPool(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Pool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		wctx, cancel := context.WithCancel(ctx)
		w := &worker{id: i, queue: make(chan Job, p.queueSize), ctx: wctx, cancel: cancel, pool: p}
		p.workers[i] = w
		p.wg.Add(1)
		go w.run(&p.wg)
	}
	logrus.Infof("[EVENT_WORKER] Started %d workers, queue size %d", p.numWorkers, p.queueSize)
}

// TryDispatch queues job on its key's worker and reports whether it was
// accepted.
func (p *Pool) TryDispatch(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped || p.workers[0] == nil {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardFor(job.Key)
	atomic.AddInt64(&p.totalDispatched, 1)
	select {
	case p.workers[shard].queue <- job:
		return true
	default:
		atomic.AddInt64(&p.totalDropped, 1)
		logrus.Warnf("[EVENT_WORKER] Worker %d queue full, dropping %s job for %s", shard, job.Kind, job.Key)
		return false
	}
}

func (p *Pool) Dispatch(job Job) {
	_ = p.TryDispatch(job)
}

// Stop closes the queues and waits for queued jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		for _, w := range p.workers {
			if w != nil {
				close(w.queue)
			}
		}
		p.mu.Unlock()
		p.wg.Wait()
		for _, w := range p.workers {
			if w != nil {
				w.cancel()
			}
		}
		logrus.Info("[EVENT_WORKER] All workers stopped")
	})
}

func (p *Pool) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (p *Pool) Stats() PoolStats {
	stats := PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		Workers:         make([]WorkerStats, 0, len(p.workers)),
	}
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		busy := atomic.LoadInt32(&w.busy) == 1
		if busy {
			stats.ActiveWorkers++
		}
		stats.Workers = append(stats.Workers, WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.queue),
			IsProcessing:  busy,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		})
	}
	return stats
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range w.queue {
		w.process(job)
	}
}

func (w *worker) process(job Job) {
	var err error
	atomic.StoreInt32(&w.busy, 1)
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&w.pool.totalErrors, 1)
			logrus.Errorf("[EVENT_WORKER] Worker %d panic in %s job for %s: %v", w.id, job.Kind, job.Key, r)
		}
		atomic.StoreInt32(&w.busy, 0)
		atomic.AddInt64(&w.jobsProcessed, 1)
		atomic.AddInt64(&w.pool.totalProcessed, 1)
		if w.pool.OnJobDone != nil {
			w.pool.OnJobDone(job, err)
		}
	}()

	err = job.Handler(w.ctx)
	if err != nil {
		atomic.AddInt64(&w.pool.totalErrors, 1)
		logrus.WithError(err).Errorf("[EVENT_WORKER] %s job failed for %s", job.Kind, job.Key)
	}
}
