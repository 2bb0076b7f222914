package store

import (
	"context"
	"errors"
	"sync"
)

// ErrStoreClosed the provider was closed
var ErrStoreClosed = errors.New("store closed")

// Provider opens the shared store on first use. Every caller receives the same
// instance, or the same open failure.
type Provider struct {
	params Params

	once     sync.Once
	lock     sync.Mutex
	instance HealthRecordStore
	err      error
}

/*
NewProvider define a store provider

	@param params Params - store parameters
	@returns provider
*/
func NewProvider(params Params) *Provider {
	return &Provider{params: params}
}

/*
Get return the shared store, opening it on the first call. Concurrent first callers
wait for the one open in progress.

The open outlives the first caller, so it does not follow that caller's cancellation.

	@param ctx context.Context - execution context
	@returns the store
*/
func (p *Provider) Get(ctx context.Context) (HealthRecordStore, error) {
	p.once.Do(func() {
		p.instance, p.err = Open(context.WithoutCancel(ctx), p.params)
	})
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.instance, p.err
}

// Close close the shared store if it was opened. Later calls to Get fail.
func (p *Provider) Close() error {
	p.once.Do(func() {
		p.err = ErrStoreClosed
	})
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.instance == nil {
		return nil
	}
	instance := p.instance
	p.instance, p.err = nil, ErrStoreClosed
	return instance.Close()
}
