package host

import (
	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"
)

const defaultTaskChanSize = 256

// WorkerFunction handles one task pulled off the pool's queue. A non-nil
// error is logged and the worker goes on to the next task; it does not kill
// the supervised tomb.
type WorkerFunction func(t *tomb.Tomb, task any) error

// WorkerPool fans a queue of tasks (here, accepted connections) out across a
// fixed number of goroutines supervised by a tomb.Tomb. This replaces the
// teacher's worker pool, whose Setup loop tried to track an "activeWorkers"
// count across goroutines without synchronization and never actually bounded
// concurrency; here Setup starts exactly n long-lived workers once and lets
// the tomb own their lifetime.
type WorkerPool struct {
	size  int
	tasks chan any
}

func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{size: size, tasks: make(chan any, defaultTaskChanSize)}
}

// AddTask enqueues a task, blocking if the queue is full.
func (p *WorkerPool) AddTask(task any) {
	p.tasks <- task
}

// Setup starts the pool's workers under t. Call once.
func (p *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("workers", p.size).Msg("starting worker pool")
	for i := 0; i < p.size; i++ {
		t.Go(func() error {
			return p.loop(t, work)
		})
	}
}

func (p *WorkerPool) loop(t *tomb.Tomb, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("worker task failed")
			}
		}
	}
}
