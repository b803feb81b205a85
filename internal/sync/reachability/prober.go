package reachability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/farhanfatur/Attendance-App/internal/logging"
)

// Prober polls a URL with HEAD requests. Any HTTP response below 500
// counts as online; transport errors and 5xx count as offline.
type Prober struct {
	signal

	url      string
	interval time.Duration
	client   *http.Client

	runMu   sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewProber creates a Prober. It reports offline until the first probe.
func NewProber(url string, interval, timeout time.Duration) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Prober{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
	}
}

// Probe performs one check and updates the state.
func (p *Prober) Probe(ctx context.Context) bool {
	online := p.check(ctx)
	if p.set(online) {
		logging.Info("Reachability changed", map[string]interface{}{
			"url":    p.url,
			"online": online,
		})
	}
	return online
}

func (p *Prober) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// Start probes immediately and then on every interval until Stop or ctx is done.
func (p *Prober) Start(ctx context.Context) {
	p.runMu.Lock()
	if p.running {
		p.runMu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.runMu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.Probe(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				p.Probe(ctx)
			}
		}
	}()
}

// Stop halts probing and waits for the loop to exit.
func (p *Prober) Stop() {
	p.runMu.Lock()
	if !p.running {
		p.runMu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.runMu.Unlock()

	p.wg.Wait()
}
