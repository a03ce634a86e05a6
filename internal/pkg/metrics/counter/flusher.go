package counter

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const DefaultFlushInterval = time.Minute

// Flusher periodically writes buffered profile views to the database.
type Flusher struct {
	interval time.Duration
	flush    func() (int, error)

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewFlusher(interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Flusher{interval: interval, flush: FlushAll}
}

func (f *Flusher) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}
	f.running = true
	f.stopCh = make(chan struct{})
	f.wg.Add(1)
	go f.loop()
}

// Stop flushes one last time before returning.
func (f *Flusher) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopCh)
	f.mu.Unlock()
	f.wg.Wait()
}

func (f *Flusher) loop() {
	defer f.wg.Done()
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stopCh:
			f.run()
			return
		case <-ticker.C:
			f.run()
		}
	}
}

func (f *Flusher) run() {
	n, err := f.flush()
	if err != nil {
		log.Errorf("[Counter] Flush failed: %v", err)
		return
	}
	if n > 0 {
		log.Debugf("[Counter] Flushed views of %d profiles", n)
	}
}
