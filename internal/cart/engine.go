package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/grocerycart/pkg/cartapi"
	"github.com/angelmondragon/grocerycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/angelmondragon/grocerycart/pkg/metrics"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"golang.org/x/sync/singleflight"
)

// Operation names used in logs and metrics.
const (
	OpFetch     = "fetch"
	OpAdd       = "add"
	OpIncrement = "increment"
	OpDecrement = "decrement"
)

// Remote is the slice of the commerce API the engine drives.
type Remote interface {
	FetchCart(ctx context.Context, token string) (*cartapi.Cart, error)
	AddLine(ctx context.Context, token string, key types.LineKey) (*cartapi.MutationResult, error)
	IncrementLine(ctx context.Context, token string, key types.LineKey) (*cartapi.MutationResult, error)
	DecrementLine(ctx context.Context, token string, key types.LineKey) (*cartapi.MutationResult, error)
}

// Result reports the server quantity for a mutated line. Discarded is set
// when a newer response for the same line had already been folded.
type Result struct {
	Key       types.LineKey
	Quantity  int
	Discarded bool
}

// EngineOptions carries the optional collaborators of an Engine.
type EngineOptions struct {
	Policy  enums.SequencingPolicy
	Logger  *logger.Logger
	Metrics *metrics.SyncMetrics
}

// Engine issues cart operations against the remote API and folds the
// confirmed results into the Store.
type Engine struct {
	store   *Store
	remote  Remote
	policy  enums.SequencingPolicy
	logg    *logger.Logger
	metrics *metrics.SyncMetrics

	fetches singleflight.Group

	mu       sync.Mutex
	inflight int
	lanes    map[types.LineKey]*lane
	issued   map[types.LineKey]uint64
	applied  map[types.LineKey]uint64
}

// lane is the FIFO queue of requests for one line under the serialize policy.
type lane struct {
	tail chan struct{}
	refs int
}

// NewEngine wires an engine to its store and remote API.
func NewEngine(store *Store, remote Remote, opts EngineOptions) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if remote == nil {
		return nil, fmt.Errorf("cart remote required")
	}
	policy := opts.Policy
	if policy == "" {
		policy = enums.SequencingSerialize
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("invalid sequencing policy %q", policy)
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Engine{
		store:   store,
		remote:  remote,
		policy:  policy,
		logg:    logg,
		metrics: opts.Metrics,
		lanes:   map[types.LineKey]*lane{},
		issued:  map[types.LineKey]uint64{},
		applied: map[types.LineKey]uint64{},
	}, nil
}

// Store exposes the mirror the engine folds into.
func (e *Engine) Store() *Store {
	return e.store
}

// Policy reports the active sequencing policy.
func (e *Engine) Policy() enums.SequencingPolicy {
	return e.policy
}

// FetchCart replaces the local mirror with the server cart. Concurrent
// fetches for the same token share one round trip.
func (e *Engine) FetchCart(ctx context.Context, token string) (types.CartState, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.CartState{}, errNoToken()
	}

	_, err, _ := e.fetches.Do(token, func() (any, error) {
		e.begin()
		defer e.end()

		issued := e.issuedSnapshot()
		started := time.Now()
		cart, err := e.remote.FetchCart(ctx, token)
		if err != nil {
			e.fail(ctx, OpFetch, started, err)
			return nil, err
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if err := e.store.ReplaceAll(cart.Lines, cart.Totals); err != nil {
			e.fail(ctx, OpFetch, started, err)
			return nil, err
		}
		// mutations issued before the fetch are already in the server cart
		for key, seq := range issued {
			if e.applied[key] <= seq {
				e.applied[key] = seq + 1
			}
		}
		// ReplaceAll clears Pending; mutations may still be outstanding.
		if e.inflight > 1 {
			e.store.SetPending(true)
		}
		e.metrics.Observe(OpFetch, metrics.OutcomeOK, time.Since(started))
		e.logg.Debug(e.logg.WithFields(ctx, map[string]any{"operation": OpFetch, "lines": len(cart.Lines)}), "cart fetched")
		return nil, nil
	})
	if err != nil {
		return types.CartState{}, err
	}
	return e.store.Snapshot(), nil
}

// AddToCart adds one unit of the product variant.
func (e *Engine) AddToCart(ctx context.Context, productID, variantID int64, token string) (Result, error) {
	return e.mutate(ctx, OpAdd, types.LineKey{ProductID: productID, VariantID: variantID}, token, e.remote.AddLine)
}

// IncrementCart raises the line quantity by one.
func (e *Engine) IncrementCart(ctx context.Context, productID, variantID int64, token string) (Result, error) {
	return e.mutate(ctx, OpIncrement, types.LineKey{ProductID: productID, VariantID: variantID}, token, e.remote.IncrementLine)
}

// DecrementCart lowers the line quantity by one; the server decides when the
// line disappears.
func (e *Engine) DecrementCart(ctx context.Context, productID, variantID int64, token string) (Result, error) {
	return e.mutate(ctx, OpDecrement, types.LineKey{ProductID: productID, VariantID: variantID}, token, e.remote.DecrementLine)
}

type mutateFunc func(ctx context.Context, token string, key types.LineKey) (*cartapi.MutationResult, error)

func (e *Engine) mutate(ctx context.Context, op string, key types.LineKey, token string, call mutateFunc) (Result, error) {
	if !key.Valid() {
		return Result{Key: key}, pkgerrors.Validation("line", "product and variant ids must be positive")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{Key: key}, errNoToken()
	}

	ctx = e.logg.WithLine(e.logg.WithField(ctx, "operation", op), key.ProductID, key.VariantID)
	e.begin()
	defer e.end()

	if e.policy == enums.SequencingSerialize {
		release, err := e.enter(ctx, key)
		if err != nil {
			return Result{Key: key}, err
		}
		defer release()
	}
	seq := e.nextSeq(key)

	started := time.Now()
	resp, err := call(ctx, token, key)
	if err != nil {
		e.fail(ctx, op, started, err)
		return Result{Key: key}, err
	}

	result := Result{Key: key, Quantity: resp.Quantity}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.policy == enums.SequencingSequence {
		if seq < e.applied[key] {
			result.Discarded = true
			e.metrics.Observe(op, metrics.OutcomeDiscarded, time.Since(started))
			e.metrics.IncDiscarded(op)
			e.logg.Warn(e.logg.WithFields(ctx, map[string]any{"seq": seq, "applied_seq": e.applied[key], "quantity": resp.Quantity}), "stale cart response discarded")
			return result, nil
		}
		e.applied[key] = seq
	}

	if resp.Totals == nil {
		e.logg.Warn(ctx, "cart response without totals, keeping current totals")
	}
	if err := e.store.ApplyMutationResult(key.ProductID, key.VariantID, resp.Quantity, resp.Totals); err != nil {
		e.fail(ctx, op, started, err)
		return Result{Key: key}, err
	}
	e.metrics.Observe(op, metrics.OutcomeOK, time.Since(started))
	e.logg.Debug(e.logg.WithField(ctx, "quantity", resp.Quantity), "cart line updated")
	return result, nil
}

// enter waits for every earlier request on the same line to finish.
func (e *Engine) enter(ctx context.Context, key types.LineKey) (func(), error) {
	e.mu.Lock()
	l := e.lanes[key]
	if l == nil {
		l = &lane{}
		e.lanes[key] = l
	}
	prev := l.tail
	done := make(chan struct{})
	l.tail = done
	l.refs++
	e.mu.Unlock()

	release := func() {
		close(done)
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.lanes, key)
		}
		e.mu.Unlock()
	}

	if prev == nil {
		return release, nil
	}
	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		// keep the queue intact for whoever is behind us
		go func() {
			<-prev
			release()
		}()
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, ctx.Err(), "cart request abandoned while queued")
	}
}

// issuedSnapshot copies the per-line sequence counters. Only the sequence
// policy consults them.
func (e *Engine) issuedSnapshot() map[types.LineKey]uint64 {
	if e.policy != enums.SequencingSequence {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[types.LineKey]uint64, len(e.issued))
	for key, seq := range e.issued {
		out[key] = seq
	}
	return out
}

func (e *Engine) nextSeq(key types.LineKey) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.issued[key]++
	return e.issued[key]
}

func (e *Engine) begin() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight++
	e.metrics.AddInflight(1)
	e.store.SetPending(true)
}

func (e *Engine) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight--
	e.metrics.AddInflight(-1)
	e.store.SetPending(e.inflight > 0)
}

func (e *Engine) fail(ctx context.Context, op string, started time.Time, err error) {
	e.metrics.Observe(op, metrics.OutcomeError, time.Since(started))
	e.logg.Error(e.logg.WithFields(ctx, map[string]any{
		"operation":  op,
		"error_code": pkgerrors.CodeOf(err),
	}), "cart request failed", err)
}

func errNoToken() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "please log in to use the cart")
}
