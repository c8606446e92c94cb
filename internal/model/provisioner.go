// Package model acquires the on-disk assets the landmark pipeline needs and
// loads them into capabilities, tracking the lifecycle as an explicit state.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facemark/internal/provider"
)

type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

var ErrBusy = errors.New("model is loading")

// Loader builds capabilities from the provisioned asset files.
type Loader func(ctx context.Context) (*provider.Capabilities, error)

// Status is a point-in-time snapshot of the provisioner.
type Status struct {
	State    State      `json:"state"`
	Reason   string     `json:"reason,omitempty"`
	Path     string     `json:"path"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// Provisioner serializes initialization behind one mutex; state reads use a
// separate lock so Status never waits on a download.
type Provisioner struct {
	assets  []Asset
	fetcher *Fetcher
	loader  Loader
	logger  *slog.Logger

	initMu sync.Mutex

	mu       sync.RWMutex
	state    State
	reason   string
	caps     *provider.Capabilities
	loadedAt time.Time

	startOnce sync.Once
	done      chan struct{}
}

// NewProvisioner manages assets, the first of which is the landmark model
// reported by Status.
func NewProvisioner(assets []Asset, fetcher *Fetcher, loader Loader, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		assets:  assets,
		fetcher: fetcher,
		loader:  loader,
		logger:  logger,
		state:   StateUnloaded,
		done:    make(chan struct{}),
	}
}

// Start runs Ensure once in the background. Done is closed when it returns.
func (p *Provisioner) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go func() {
			defer close(p.done)
			if err := p.Ensure(ctx); err != nil {
				p.logger.Error("model provisioning failed", "error", err)
			}
		}()
	})
}

func (p *Provisioner) Done() <-chan struct{} {
	return p.done
}

// Ensure fetches missing assets and loads them. It is a no-op once Ready;
// after a failure the next call tries again.
func (p *Provisioner) Ensure(ctx context.Context) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	if st := p.Status(); st.State == StateReady {
		return nil
	}
	p.setState(StateLoading, "", nil)

	for _, a := range p.assets {
		if a.Present() {
			p.logger.Info("asset present", "asset", a.Name, "path", a.Path)
			continue
		}
		p.logger.Info("downloading asset", "asset", a.Name, "url", a.URL, "path", a.Path)
		start := time.Now()
		if _, err := a.Ensure(ctx, p.fetcher); err != nil {
			p.setState(StateFailed, err.Error(), nil)
			return err
		}
		p.logger.Info("asset downloaded", "asset", a.Name, "duration", time.Since(start))
	}

	caps, err := p.loader(ctx)
	if err != nil {
		err = fmt.Errorf("load model: %w", err)
		p.setState(StateFailed, err.Error(), nil)
		return err
	}
	if caps == nil || caps.Locator == nil || caps.Predictor == nil {
		err = errors.New("load model: loader returned incomplete capabilities")
		p.setState(StateFailed, err.Error(), nil)
		return err
	}

	p.setState(StateReady, "", caps)
	p.logger.Info("model ready", "path", p.path())
	return nil
}

// Capabilities returns the loaded handle, or nil with the current state.
func (p *Provisioner) Capabilities() (*provider.Capabilities, State) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.caps, p.state
}

func (p *Provisioner) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st := Status{State: p.state, Reason: p.reason, Path: p.path()}
	if p.state == StateReady {
		t := p.loadedAt
		st.LoadedAt = &t
	}
	return st
}

// Reset deletes every asset file and returns to Unloaded. It fails with
// ErrBusy while a load is in progress.
func (p *Provisioner) Reset() error {
	if !p.initMu.TryLock() {
		return ErrBusy
	}
	defer p.initMu.Unlock()

	for _, a := range p.assets {
		if err := a.Remove(); err != nil {
			return err
		}
	}
	p.setState(StateUnloaded, "", nil)
	return nil
}

func (p *Provisioner) path() string {
	if len(p.assets) == 0 {
		return ""
	}
	return p.assets[0].Path
}

func (p *Provisioner) setState(s State, reason string, caps *provider.Capabilities) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = s
	p.reason = reason
	p.caps = caps
	if s == StateReady {
		p.loadedAt = time.Now()
	}
}
