package jobqueue

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// Service is a background component with a Start/Stop lifecycle, like the
// outbox dispatcher.
type Service interface {
	Start()
	Stop()
}

// Manager starts and stops the job queue together with the periodic
// background services of one process.
type Manager struct {
	queue    *Queue
	services []Service
	mu       sync.Mutex
	running  bool
}

func NewManager(queue *Queue, services ...Service) *Manager {
	return &Manager{queue: queue, services: services}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background services")

	if m.queue != nil {
		m.queue.Start()
	}
	for _, s := range m.services {
		s.Start()
	}
}

// Stop stops services first so nothing enqueues into a stopped queue
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	log.Info("[JobQueue Manager] Stopping background services...")
	for i := len(m.services) - 1; i >= 0; i-- {
		m.services[i].Stop()
	}
	if m.queue != nil {
		m.queue.Stop()
	}
	m.running = false
	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
