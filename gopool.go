package goalarm

import (
	"sync"

	"github.com/eapache/queue"
)

// GoPool runs tasks on at most size reusable goroutines, parking the
// overflow in a FIFO backlog. Handy for hammering a Service from many
// schedulers without unbounded goroutine growth.
type GoPool struct {
	mtx     sync.Mutex
	backlog *queue.Queue
	running int
	size    int
}

func NewGoPool(size int) *GoPool {
	if size < 1 {
		panic("GoPool: size must be > 0")
	}
	return &GoPool{backlog: queue.New(), size: size}
}

// Go never blocks; the task runs as soon as a worker is free.
func (p *GoPool) Go(task func()) {
	p.mtx.Lock()
	p.backlog.Add(task)
	spawn := p.running < p.size
	if spawn {
		p.running++
	}
	p.mtx.Unlock()
	if spawn {
		go p.worker()
	}
}

func (p *GoPool) worker() {
	for {
		p.mtx.Lock()
		if p.backlog.Length() == 0 {
			// running is decremented under the same lock Go checks it with,
			// so a task enqueued now always sees a spawnable slot.
			p.running--
			p.mtx.Unlock()
			return
		}
		task := p.backlog.Remove().(func())
		p.mtx.Unlock()
		task()
	}
}
