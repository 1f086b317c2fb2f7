package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dendrascience/syncfs/hfs"
	"github.com/dendrascience/syncfs/store"
	"github.com/rs/zerolog"
)

// ErrChannelClosed is returned once the proxy has been closed.
var ErrChannelClosed = errors.New("proxy channel closed")

// Proxy forwards store operations to a worker goroutine that owns the
// Store. It keeps no cache of its own.
type Proxy struct {
	requests chan request
	ready    chan struct{}
	done     chan struct{}
	initErr  error
	once     sync.Once
	logger   zerolog.Logger
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithLogger sets the logger used by the worker.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Proxy) { p.logger = l }
}

// New starts the worker, which builds its Store with open in the background.
// Operations issued before open returns wait for it.
func New(open func(context.Context) (*store.Store, error), opts ...Option) *Proxy {
	p := &Proxy{
		requests: make(chan request),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "proxy").Logger()
	go p.run(open)
	return p
}

// Open is New with a Store opened on fsys.
func Open(fsys hfs.FS, storeOpts []store.Option, opts ...Option) *Proxy {
	return New(func(ctx context.Context) (*store.Store, error) {
		return store.Open(ctx, fsys, storeOpts...)
	}, opts...)
}

// Close stops the worker. Calls already accepted still complete.
func (p *Proxy) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

type worker struct {
	ctx    context.Context
	store  *store.Store
	logger zerolog.Logger
}

func (p *Proxy) run(open func(context.Context) (*store.Store, error)) {
	ctx := context.Background()
	s, err := open(ctx)
	if err != nil {
		p.initErr = fmt.Errorf("failed to construct store: %w", err)
		p.logger.Error().Err(err).Msg("store construction failed")
		close(p.ready)
		return
	}
	close(p.ready)
	p.logger.Debug().Msg("worker ready")

	w := &worker{ctx: ctx, store: s, logger: p.logger}
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-p.done:
			return
		case req := <-p.requests:
			wg.Add(1)
			go func() {
				defer wg.Done()
				start := time.Now()
				req.serve(w)
				w.logger.Debug().Stringer("request_id", req.id()).
					Str("op", fmt.Sprintf("%T", req)).Dur("elapsed", time.Since(start)).Send()
			}()
		}
	}
}

// send hands req to the worker once the store exists.
func (p *Proxy) send(ctx context.Context, req request) error {
	select {
	case <-p.ready:
	case <-p.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	if p.initErr != nil {
		return p.initErr
	}
	select {
	case p.requests <- req:
		return nil
	case <-p.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// await waits for the reply of an accepted request. The worker finishes the
// operation even if ctx ends first.
func await[T any](ctx context.Context, reply <-chan T) (T, error) {
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (p *Proxy) Load(ctx context.Context, key store.Key) ([]byte, bool, error) {
	req := &loadRequest{header: newHeader(), Key: cloneKey(key), reply: make(chan loadResponse, 1)}
	if err := p.send(ctx, req); err != nil {
		return nil, false, err
	}
	resp, err := await(ctx, req.reply)
	if err != nil {
		return nil, false, err
	}
	return cloneBytes(resp.Data), resp.Found, resp.Err
}

func (p *Proxy) Save(ctx context.Context, key store.Key, data []byte) error {
	req := &saveRequest{header: newHeader(), Key: cloneKey(key), Data: cloneBytes(data), reply: make(chan errResponse, 1)}
	if err := p.send(ctx, req); err != nil {
		return err
	}
	resp, err := await(ctx, req.reply)
	if err != nil {
		return err
	}
	return resp.Err
}

func (p *Proxy) Remove(ctx context.Context, key store.Key) error {
	req := &removeRequest{header: newHeader(), Key: cloneKey(key), reply: make(chan errResponse, 1)}
	if err := p.send(ctx, req); err != nil {
		return err
	}
	resp, err := await(ctx, req.reply)
	if err != nil {
		return err
	}
	return resp.Err
}

func (p *Proxy) LoadRange(ctx context.Context, prefix store.Key) ([]store.Chunk, error) {
	req := &loadRangeRequest{header: newHeader(), Prefix: cloneKey(prefix), reply: make(chan loadRangeResponse, 1)}
	if err := p.send(ctx, req); err != nil {
		return nil, err
	}
	resp, err := await(ctx, req.reply)
	if err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return cloneChunks(resp.Chunks), nil
}

func (p *Proxy) RemoveRange(ctx context.Context, prefix store.Key) error {
	req := &removeRangeRequest{header: newHeader(), Prefix: cloneKey(prefix), reply: make(chan errResponse, 1)}
	if err := p.send(ctx, req); err != nil {
		return err
	}
	resp, err := await(ctx, req.reply)
	if err != nil {
		return err
	}
	return resp.Err
}

// Roots forwards store.Store.Roots.
func (p *Proxy) Roots(ctx context.Context) ([]string, error) {
	req := &rootsRequest{header: newHeader(), reply: make(chan rootsResponse, 1)}
	if err := p.send(ctx, req); err != nil {
		return nil, err
	}
	resp, err := await(ctx, req.reply)
	if err != nil {
		return nil, err
	}
	return resp.Roots, resp.Err
}

// List forwards store.Store.List.
func (p *Proxy) List(ctx context.Context, prefix store.Key) ([]store.Entry, error) {
	req := &listRequest{header: newHeader(), Prefix: cloneKey(prefix), reply: make(chan listResponse, 1)}
	if err := p.send(ctx, req); err != nil {
		return nil, err
	}
	resp, err := await(ctx, req.reply)
	if err != nil {
		return nil, err
	}
	return resp.Entries, resp.Err
}

// Stats forwards store.Store.Stats.
func (p *Proxy) Stats(ctx context.Context) (store.Stats, error) {
	req := &statsRequest{header: newHeader(), reply: make(chan store.Stats, 1)}
	if err := p.send(ctx, req); err != nil {
		return store.Stats{}, err
	}
	return await(ctx, req.reply)
}

func (r *loadRequest) serve(w *worker) {
	data, found, err := w.store.Load(w.ctx, r.Key)
	r.reply <- loadResponse{Data: cloneBytes(data), Found: found, Err: err}
}

func (r *saveRequest) serve(w *worker) {
	r.reply <- errResponse{Err: w.store.Save(w.ctx, r.Key, r.Data)}
}

func (r *removeRequest) serve(w *worker) {
	r.reply <- errResponse{Err: w.store.Remove(w.ctx, r.Key)}
}

func (r *loadRangeRequest) serve(w *worker) {
	chunks, err := w.store.LoadRange(w.ctx, r.Prefix)
	r.reply <- loadRangeResponse{Chunks: cloneChunks(chunks), Err: err}
}

func (r *removeRangeRequest) serve(w *worker) {
	r.reply <- errResponse{Err: w.store.RemoveRange(w.ctx, r.Prefix)}
}

func (r *rootsRequest) serve(w *worker) {
	roots, err := w.store.Roots(w.ctx)
	r.reply <- rootsResponse{Roots: roots, Err: err}
}

func (r *listRequest) serve(w *worker) {
	entries, err := w.store.List(w.ctx, r.Prefix)
	r.reply <- listResponse{Entries: entries, Err: err}
}

func (r *statsRequest) serve(w *worker) {
	r.reply <- w.store.Stats()
}

var (
	_ store.Storage = (*Proxy)(nil)
	_ store.Lister  = (*Proxy)(nil)
	_ store.Storage = (*store.Store)(nil)
	_ store.Lister  = (*store.Store)(nil)
)
