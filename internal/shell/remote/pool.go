package remote

import (
	"context"
	"errors"
	"sync"
)

// Pool caches one SSH executor per host string so consecutive operations on
// the same host reuse the connection.
type Pool struct {
	executors map[string]*SSHExecutor // host string -> executor
	config    SSHConfig
	mu        sync.RWMutex
}

// NewPool creates a new executor pool.
func NewPool(config SSHConfig) *Pool {
	return &Pool{
		executors: make(map[string]*SSHExecutor),
		config:    config,
	}
}

// Connect returns the executor for hostString, creating it on first use.
func (p *Pool) Connect(_ context.Context, hostString string) (Executor, error) {
	// Fast path: check if executor exists
	p.mu.RLock()
	exec, exists := p.executors[hostString]
	p.mu.RUnlock()
	if exists {
		return exec, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if exec, exists := p.executors[hostString]; exists {
		return exec, nil
	}

	exec, err := NewSSHExecutor(hostString, p.config)
	if err != nil {
		return nil, err
	}
	p.executors[hostString] = exec
	return exec, nil
}

// CloseAll closes every cached executor.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for host, exec := range p.executors {
		if err := exec.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.executors, host)
	}
	return errors.Join(errs...)
}

// Count returns the number of cached executors.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.executors)
}
