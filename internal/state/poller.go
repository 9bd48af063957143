package state

import (
	"context"
	"log"
	"sync"
	"time"
)

// Binding ties an operator to the extension their device registers as.
type Binding struct {
	Operator  string `json:"operator"`
	Extension string `json:"extension"`
}

// BindingSource supplies the current operator bindings. Satisfied by
// *database.Repository.
type BindingSource interface {
	OperatorBindings() ([]Binding, error)
}

// Publisher receives freshly resolved snapshots. Satisfied by
// *websocket.Hub.
type Publisher interface {
	PublishState(snap Snapshot)
}

// Snapshot is one operator's state at one poll instant.
type Snapshot struct {
	Operator  string            `json:"operator"`
	Extension string            `json:"extension"`
	State     OperatorCallState `json:"state"`
	At        time.Time         `json:"at"`
}

// Poller periodically resolves every bound operator and publishes the
// results. Resolutions within one sweep run concurrently: they share no
// state and each one is an independent chain of lookups.
type Poller struct {
	engine   *Engine
	bindings BindingSource
	pub      Publisher
	interval time.Duration

	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewPoller creates a poller. interval is the sweep period.
func NewPoller(engine *Engine, bindings BindingSource, pub Publisher, interval time.Duration) *Poller {
	return &Poller{
		engine:   engine,
		bindings: bindings,
		pub:      pub,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the polling worker.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run()
	log.Printf("[State] Poller started (interval %s)", p.interval)
}

// Stop gracefully stops the worker.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopChan)
	p.wg.Wait()
	log.Println("[State] Poller stopped")
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *Poller) sweep() {
	bindings, err := p.bindings.OperatorBindings()
	if err != nil {
		log.Printf("[State] Skipping sweep, bindings unavailable: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, b := range bindings {
		wg.Add(1)
		go func(b Binding) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), p.interval)
			defer cancel()

			st, err := p.engine.Resolve(ctx, b.Extension)
			if err != nil {
				log.Printf("[State] Resolving %s (%s): %v", b.Operator, b.Extension, err)
				return
			}
			p.pub.PublishState(Snapshot{
				Operator:  b.Operator,
				Extension: b.Extension,
				State:     st,
				At:        time.Now(),
			})
		}(b)
	}
	wg.Wait()
}
