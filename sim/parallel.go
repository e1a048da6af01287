package sim

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum citizen count to use parallel
// processing. Below this, single-threaded is faster due to goroutine
// overhead.
const parallelThreshold = 64

// workChunk is a half-open index range for one worker.
type workChunk struct {
	start, end int
}

// workerPool runs persistent goroutines that process index ranges. Systems
// share one pool; only one run() is ever in flight because systems execute
// sequentially under the scheduler.
type workerPool struct {
	numWorkers int
	fn         func(start, end, worker int)

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newWorkerPool() *workerPool {
	return &workerPool{numWorkers: runtime.GOMAXPROCS(0)}
}

func (p *workerPool) start() {
	if p.running {
		return
	}
	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *workerPool) stop() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *workerPool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.fn(chunk.start, chunk.end, id)
			p.doneChan <- struct{}{}
		}
	}
}

// run splits [0,n) into per-worker chunks and blocks until all complete.
// Small n runs inline on the caller.
func (p *workerPool) run(n int, fn func(start, end, worker int)) {
	if n <= 0 {
		return
	}
	if n < parallelThreshold || !p.running {
		fn(0, n, 0)
		return
	}

	p.fn = fn
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	sent := 0
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		p.workChan <- workChunk{start: start, end: end}
		sent++
	}
	for i := 0; i < sent; i++ {
		<-p.doneChan
	}
	p.fn = nil
}
