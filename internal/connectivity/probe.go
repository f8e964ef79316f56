package connectivity

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"
)

// ProbeConfig configures the reachability probe.
type ProbeConfig struct {
	// URL is the endpoint polled to decide whether the remote store is
	// reachable. Any 2xx–4xx response counts as reachable; only transport
	// errors mean offline.
	URL string

	// Interval is how often to poll (default: 15s).
	Interval time.Duration

	// Client is the HTTP client used for probing. Defaults to a client
	// with a 5s timeout. Don't route the probe through the
	// simulate-offline transport; the override is applied by State
	// itself, and a probe that can't reach the network would mask it.
	Client *http.Client

	// Logger for probe activity.
	Logger *log.Logger
}

// Probe polls a remote endpoint and feeds observations into a State.
type Probe struct {
	state  *State
	config ProbeConfig
}

// NewProbe creates a reachability probe feeding the given state.
func NewProbe(state *State, config ProbeConfig) *Probe {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Second
	}
	if config.Client == nil {
		config.Client = &http.Client{Timeout: 5 * time.Second}
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[connectivity] ", log.LstdFlags)
	}
	return &Probe{state: state, config: config}
}

// Run polls until ctx is cancelled. An observation is pushed into the
// state on every tick; State deduplicates non-transitions.
func (p *Probe) Run(ctx context.Context) {
	p.observe(ctx)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.observe(ctx)
		}
	}
}

func (p *Probe) observe(ctx context.Context) {
	reachable := p.check(ctx)
	was := p.state.Online()
	p.state.SetOnline(reachable)
	if p.state.Online() != was {
		p.config.Logger.Printf("Connectivity changed: online=%v", p.state.Online())
	}
}

func (p *Probe) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.config.URL, nil)
	if err != nil {
		return false
	}

	resp, err := p.config.Client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}
