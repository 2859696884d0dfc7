package assist

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Generation parameters sent with every cloud request.
const (
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
)

// ErrBusy is delivered through the wait function when StreamTurn is called
// while a previous stream is still active.
var ErrBusy = errors.New("assist: a turn is already streaming")

// Dispatcher routes prompts to the backend matching the current provider.
// It holds no cross-request state beyond the busy flag and is safe to reuse
// for sequential requests.
type Dispatcher struct {
	mu     sync.Mutex
	active bool

	settings SettingsSource
	hooks    Hooks

	onDevice Backend
	cloud    Backend
	stub     Backend

	runtimeState func() RuntimeState
}

// Options configures a new Dispatcher.
type Options struct {
	// Settings supplies the provider/model/credential selection, read at the
	// start of each request.
	Settings SettingsSource

	// Hooks are passed to every backend call.
	Hooks Hooks

	// OnDevice and Cloud may be nil; requests for a missing backend downgrade
	// to the stub. Stub is required.
	OnDevice Backend
	Cloud    Backend
	Stub     Backend

	// RuntimeState probes the on-device runtime for availability resolution.
	// Nil is treated as a runtime that is never ready.
	RuntimeState func() RuntimeState
}

// New creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Settings == nil {
		return nil, errors.New("assist: Settings is required")
	}
	if opts.Stub == nil {
		return nil, errors.New("assist: Stub backend is required")
	}
	return &Dispatcher{
		settings:     opts.Settings,
		hooks:        opts.Hooks,
		onDevice:     opts.OnDevice,
		cloud:        opts.Cloud,
		stub:         opts.Stub,
		runtimeState: opts.RuntimeState,
	}, nil
}

// SetHooks replaces the side-effect callbacks. Call before the next prompt,
// not while a stream is active.
func (d *Dispatcher) SetHooks(h Hooks) {
	d.mu.Lock()
	d.hooks = h
	d.mu.Unlock()
}

// Environment returns the current availability inputs.
func (d *Dispatcher) Environment() Environment {
	state := RuntimeIneligible
	if d.runtimeState != nil {
		state = d.runtimeState()
	}
	cred, err := d.settings.Credential()
	if err != nil {
		cred = ""
	}
	return Environment{Runtime: state, HasCredential: cred != ""}
}

// Availability resolves the current provider's availability. It is advisory:
// StreamTurn never fails on an unavailable provider, it downgrades to the
// stub instead.
func (d *Dispatcher) Availability() Availability {
	p, err := d.settings.Provider()
	if err != nil {
		return Availability{Reason: fmt.Sprintf("settings unavailable: %v", err)}
	}
	return Resolve(p, d.Environment())
}

// StreamTurn starts a stream for prompt. It never fails synchronously: every
// error, including a busy rejection, is delivered through the wait function.
// At most one stream is active at a time; a prompt submitted while a prior
// stream is still emitting is rejected with ErrBusy.
func (d *Dispatcher) StreamTurn(ctx context.Context, prompt string) (<-chan Turn, func() error) {
	if !d.begin() {
		return failedStream(ErrBusy)
	}

	backend, opts := d.route()
	ch, wait := backend.Stream(ctx, prompt, opts)

	return ch, func() error {
		err := wait()
		d.end()
		return err
	}
}

// route picks the backend for the current provider, downgrading to the stub
// when the provider is unavailable, and assembles the stream options.
func (d *Dispatcher) route() (Backend, StreamOptions) {
	d.mu.Lock()
	hooks := d.hooks
	d.mu.Unlock()

	model, err := d.settings.Model()
	if err != nil || model == "" {
		model = DefaultCloudModel()
	}
	cred, err := d.settings.Credential()
	if err != nil {
		cred = ""
	}

	temp := defaultTemperature
	opts := StreamOptions{
		Model:       model,
		Credential:  cred,
		MaxTokens:   defaultMaxTokens,
		Temperature: &temp,
		Hooks:       hooks,
	}

	provider, err := d.settings.Provider()
	if err != nil {
		return d.stub, opts
	}
	if avail := Resolve(provider, d.Environment()); !avail.Available {
		return d.stub, opts
	}

	switch provider {
	case ProviderOnDevice:
		if d.onDevice != nil {
			return d.onDevice, opts
		}
	case ProviderCloud:
		if d.cloud != nil {
			return d.cloud, opts
		}
	}
	return d.stub, opts
}

func (d *Dispatcher) begin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return false
	}
	d.active = true
	return true
}

func (d *Dispatcher) end() {
	d.mu.Lock()
	d.active = false
	d.mu.Unlock()
}

// failedStream returns a closed, empty channel and a wait function that
// reports err.
func failedStream(err error) (<-chan Turn, func() error) {
	ch := make(chan Turn)
	close(ch)
	return ch, func() error { return err }
}
