// Package reconcile keeps a locally mutated product list consistent with the
// remote store. Intents are rendered immediately as pending mutations over the
// confirmed list, then confirmed or rolled back when the remote call settles.
package reconcile

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/product-desk/internal/domain/auth"
	"github.com/xenking/product-desk/internal/domain/product"
)

// Banner messages shown after a rollback.
const (
	MsgLoad   = "Unable to load products. Please try again."
	MsgStatus = "Unable to update status. Please try again."
	MsgCreate = "Unable to add product. Please try again."
	MsgDelete = "Unable to delete product. Please try again."
	MsgReset  = "Unable to reset products. Please try again."
)

// ProvisionalPrefix marks ids generated locally for records not yet stored.
const ProvisionalPrefix = "tmp-"

// Gateway is the remote product store.
type Gateway interface {
	List(ctx context.Context) ([]product.Product, error)
	Create(ctx context.Context, in product.Input) (product.Product, error)
	UpdateStatus(ctx context.Context, id string, status product.Status) (product.Product, error)
	Delete(ctx context.Context, id string) error
}

// Snapshot is a consistent view of engine state.
type Snapshot struct {
	// Version increases with every published state change.
	Version uint64
	// Products is the speculative list used for rendering.
	Products  []product.Product
	Confirmed []product.Product
	InFlight  map[string]Op
	Resetting bool
	// Err is the error behind the banner, nil when no banner is shown.
	Err     error
	Message string
}

// Busy reports whether id has an operation in flight.
func (s Snapshot) Busy(id string) bool {
	_, ok := s.InFlight[id]
	return ok
}

// Settled reports whether nothing is in flight.
func (s Snapshot) Settled() bool {
	return len(s.InFlight) == 0 && !s.Resetting
}

// Visible returns the rendered products matching f.
func (s Snapshot) Visible(f Filter) []product.Product {
	out := make([]product.Product, 0, len(s.Products))
	for _, p := range s.Products {
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Option configures an Engine.
type Option func(e *Engine)

// WithLogger sets the engine logger.
func WithLogger(lg *zap.Logger) Option {
	return func(e *Engine) { e.lg = lg }
}

// WithObserver registers fn to receive published state changes. Calls are
// serialized; a snapshot older than one already delivered is skipped. fn may
// read the engine but must not call intents synchronously.
func WithObserver(fn func(Snapshot)) Option {
	return func(e *Engine) { e.observer = fn }
}

// WithBulkConcurrency limits concurrent calls during ResetAll. Zero or less
// means unlimited.
func WithBulkConcurrency(n int) Option {
	return func(e *Engine) { e.bulkLimit = n }
}

// WithClock overrides the time source for provisional records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the provisional id generator. The result is
// prefixed with ProvisionalPrefix.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

type pending struct {
	token uint64
	m     Mutation
}

// confirmation is a change applied to confirmed state after a remote call
// succeeded. Loads that were already in flight replay it over their result.
type confirmation struct {
	seq   uint64
	apply func([]product.Product) []product.Product
}

// Engine owns the confirmed product list, the pending mutations layered over
// it and the registry of in-flight operations. It is safe for concurrent use.
type Engine struct {
	gw        Gateway
	role      auth.Role
	lg        *zap.Logger
	observer  func(Snapshot)
	bulkLimit int
	now       func() time.Time
	newID     func() string

	notifyMu  sync.Mutex
	delivered uint64

	mu        sync.Mutex
	version   uint64
	nextToken uint64
	confirmed []product.Product
	pending   []pending
	inflight  *Registry
	resetting bool
	err       error
	message   string

	// settled counts confirmations. journal keeps those newer than the
	// oldest in-flight Load, keyed in loads by load sequence.
	settled     uint64
	journal     []confirmation
	loadSeq     uint64
	appliedLoad uint64
	loads       map[uint64]uint64
}

// New returns an Engine for the given role with an empty confirmed list.
func New(gw Gateway, role auth.Role, opts ...Option) *Engine {
	e := &Engine{
		gw:        gw,
		role:      role,
		lg:        zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
		confirmed: []product.Product{},
		inflight:  NewRegistry(),
		loads:     make(map[uint64]uint64),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Role returns the role the engine gates intents with.
func (e *Engine) Role() auth.Role { return e.role }

// Can reports whether the role may perform the intent.
func (e *Engine) Can(i auth.Intent) bool { return e.role.Can(i) }

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Visible returns the speculative list filtered by f.
func (e *Engine) Visible(f Filter) []product.Product {
	return e.Snapshot().Visible(f)
}

// Load replaces confirmed state with the remote list. Pending mutations stay
// layered on top. Mutations confirmed while the list was in flight are
// replayed over it, and a list older than one already applied is discarded.
// A banner left by a failed load is cleared; rollback banners are not.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	e.loadSeq++
	seq := e.loadSeq
	e.loads[seq] = e.settled
	e.mu.Unlock()

	ps, err := e.gw.List(ctx)
	if err != nil {
		rerr := &RemoteError{Op: OpLoad, Err: err}
		e.lg.Warn("Load products failed", zap.Error(err))
		_ = e.update(func() error {
			_, current := e.finishLoad(seq)
			e.pruneJournal()
			if !current {
				return errStaleLoad
			}
			e.fail(rerr, MsgLoad)
			return nil
		})
		return rerr
	}

	replayed := 0
	err = e.update(func() error {
		since, current := e.finishLoad(seq)
		defer e.pruneJournal()
		if !current {
			return errStaleLoad
		}
		confirmed := Dedup(ps)
		for _, c := range e.journal {
			if c.seq > since {
				confirmed = c.apply(confirmed)
				replayed++
			}
		}
		e.confirmed = confirmed
		e.appliedLoad = seq
		var rerr *RemoteError
		if errors.As(e.err, &rerr) && rerr.Op == OpLoad {
			e.clearBanner()
		}
		return nil
	})
	if errors.Is(err, errStaleLoad) {
		e.lg.Debug("Stale product list discarded", zap.Int("count", len(ps)))
		return nil
	}
	e.lg.Debug("Products loaded", zap.Int("count", len(ps)), zap.Int("replayed", replayed))
	return nil
}

var errStaleLoad = errors.New("stale load")

// finishLoad unregisters load seq. It returns the confirmation count when
// the load started and whether no newer load has been applied since.
func (e *Engine) finishLoad(seq uint64) (uint64, bool) {
	since, ok := e.loads[seq]
	delete(e.loads, seq)
	return since, ok && seq > e.appliedLoad
}

// pruneJournal drops confirmations every in-flight load already covers.
func (e *Engine) pruneJournal() {
	if len(e.loads) == 0 {
		e.journal = nil
		return
	}
	oldest := uint64(math.MaxUint64)
	for _, start := range e.loads {
		oldest = min(oldest, start)
	}
	e.journal = slices.DeleteFunc(e.journal, func(c confirmation) bool { return c.seq <= oldest })
}

// ChangeStatus sets the status of a confirmed product. The new status is
// visible before the remote call is made. On failure the product reverts and
// a *RemoteError is returned.
func (e *Engine) ChangeStatus(ctx context.Context, id string, status product.Status) error {
	if !status.Valid() {
		return product.ErrInvalidStatus
	}
	if !e.role.Can(auth.IntentChangeStatus) {
		return ErrForbidden
	}

	var token uint64
	if err := e.update(func() error {
		if indexByID(e.confirmed, id) < 0 {
			return ErrUnknownProduct
		}
		if !e.inflight.Acquire(id, OpStatus) {
			return ErrBusy
		}
		token = e.push(SetStatus{ID: id, Status: status})
		return nil
	}); err != nil {
		return err
	}

	lg := e.lg.With(zap.String("product_id", id), zap.String("status", string(status)))
	lg.Debug("Status change dispatched")

	updated, err := e.gw.UpdateStatus(ctx, id, status)
	if err != nil {
		rerr := &RemoteError{Op: OpStatus, ID: id, Err: err}
		lg.Warn("Status change rolled back", zap.Error(err))
		e.update(func() error {
			e.settle(token, id)
			e.fail(rerr, MsgStatus)
			return nil
		})
		return rerr
	}

	e.update(func() error {
		e.settle(token, id)
		e.confirm(func(ps []product.Product) []product.Product { return replaceByID(ps, updated) })
		e.clearBanner()
		return nil
	})
	lg.Debug("Status change confirmed")
	return nil
}

// Create validates in and adds a provisional record at the head of the list
// before calling the remote store. On success the provisional record is
// replaced by the stored one, which is returned.
func (e *Engine) Create(ctx context.Context, in product.Input) (product.Product, error) {
	if !e.role.Can(auth.IntentCreate) {
		return product.Product{}, ErrForbidden
	}
	in, err := in.Normalize()
	if err != nil {
		return product.Product{}, err
	}

	now := e.now().UTC()
	provisional := product.Product{
		ID:          ProvisionalPrefix + e.newID(),
		Title:       in.Title,
		Description: in.Description,
		ImageURLs:   slices.Clone(in.ImageURLs),
		ProductURL:  in.ProductURL,
		Price:       in.Price,
		Status:      product.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var token uint64
	if err := e.update(func() error {
		if !e.inflight.Acquire(provisional.ID, OpCreate) {
			return ErrBusy
		}
		token = e.push(Add{Product: provisional})
		return nil
	}); err != nil {
		return product.Product{}, err
	}

	lg := e.lg.With(zap.String("provisional_id", provisional.ID))
	lg.Debug("Create dispatched")

	created, err := e.gw.Create(ctx, in)
	if err != nil {
		rerr := &RemoteError{Op: OpCreate, ID: provisional.ID, Err: err}
		lg.Warn("Create rolled back", zap.Error(err))
		e.update(func() error {
			e.settle(token, provisional.ID)
			e.fail(rerr, MsgCreate)
			return nil
		})
		return product.Product{}, rerr
	}

	e.update(func() error {
		e.settle(token, provisional.ID)
		e.confirm(func(ps []product.Product) []product.Product { return Derive(ps, Add{Product: created}) })
		e.clearBanner()
		return nil
	})
	lg.Debug("Create confirmed", zap.String("product_id", created.ID))
	return created, nil
}

// Delete removes a confirmed product from the rendered list before calling
// the remote store. On failure the product reappears.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if !e.role.Can(auth.IntentDelete) {
		return ErrForbidden
	}

	var token uint64
	if err := e.update(func() error {
		if indexByID(e.confirmed, id) < 0 {
			return ErrUnknownProduct
		}
		if !e.inflight.Acquire(id, OpDelete) {
			return ErrBusy
		}
		token = e.push(Remove{ID: id})
		return nil
	}); err != nil {
		return err
	}

	lg := e.lg.With(zap.String("product_id", id))
	lg.Debug("Delete dispatched")

	if err := e.gw.Delete(ctx, id); err != nil {
		rerr := &RemoteError{Op: OpDelete, ID: id, Err: err}
		lg.Warn("Delete rolled back", zap.Error(err))
		e.update(func() error {
			e.settle(token, id)
			e.fail(rerr, MsgDelete)
			return nil
		})
		return rerr
	}

	e.update(func() error {
		e.settle(token, id)
		e.confirm(func(ps []product.Product) []product.Product { return Derive(ps, Remove{ID: id}) })
		e.clearBanner()
		return nil
	})
	lg.Debug("Delete confirmed")
	return nil
}

// ResetAll sets every confirmed product to PENDING, one remote call per
// product, all concurrent. It waits for the whole batch. If any call fails
// the entire batch is rolled back locally and a *BulkError is returned, even
// though some calls may have committed remotely; the next Load reconciles.
func (e *Engine) ResetAll(ctx context.Context) error {
	if !e.role.Can(auth.IntentResetAll) {
		return ErrForbidden
	}

	var (
		token uint64
		ids   []string
	)
	if err := e.update(func() error {
		if e.resetting {
			return ErrBusy
		}
		ids = make([]string, 0, len(e.confirmed))
		for _, p := range e.confirmed {
			ids = append(ids, p.ID)
		}
		if !e.inflight.AcquireAll(ids, OpBulk) {
			return ErrBusy
		}
		e.resetting = true
		token = e.push(SetAllStatus{IDs: ids, Status: product.StatusPending})
		return nil
	}); err != nil {
		return err
	}

	e.lg.Debug("Bulk reset dispatched", zap.Int("count", len(ids)))

	results := make([]product.Product, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	if e.bulkLimit > 0 {
		g.SetLimit(e.bulkLimit)
	}
	for i, id := range ids {
		g.Go(func() error {
			results[i], errs[i] = e.gw.UpdateStatus(ctx, id, product.StatusPending)
			return nil
		})
	}
	_ = g.Wait()

	var bulkErr *BulkError
	for i, err := range errs {
		if err == nil {
			continue
		}
		if bulkErr == nil {
			bulkErr = &BulkError{Failed: make(map[string]error), Total: len(ids)}
		}
		bulkErr.Failed[ids[i]] = err
	}

	if bulkErr != nil {
		e.lg.Warn("Bulk reset rolled back",
			zap.Int("failed", len(bulkErr.Failed)),
			zap.Int("total", bulkErr.Total),
		)
		e.update(func() error {
			e.drop(token)
			e.inflight.Release(ids...)
			e.resetting = false
			e.fail(bulkErr, MsgReset)
			return nil
		})
		return bulkErr
	}

	e.update(func() error {
		e.drop(token)
		e.inflight.Release(ids...)
		e.resetting = false
		e.confirm(func(ps []product.Product) []product.Product {
			for _, p := range results {
				ps = replaceByID(ps, p)
			}
			return ps
		})
		e.clearBanner()
		return nil
	})
	e.lg.Debug("Bulk reset confirmed", zap.Int("count", len(ids)))
	return nil
}

// update runs fn under the state lock. If fn succeeds the new state is
// published to the observer after the lock is released.
func (e *Engine) update(fn func() error) error {
	e.mu.Lock()
	if err := fn(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.version++
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if e.observer == nil {
		return nil
	}
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	if snap.Version <= e.delivered {
		return nil
	}
	e.delivered = snap.Version
	e.observer(snap)
	return nil
}

func (e *Engine) snapshotLocked() Snapshot {
	muts := make([]Mutation, 0, len(e.pending))
	for _, p := range e.pending {
		muts = append(muts, p.m)
	}
	return Snapshot{
		Version:   e.version,
		Products:  Derive(e.confirmed, muts...),
		Confirmed: slices.Clone(e.confirmed),
		InFlight:  e.inflight.clone(),
		Resetting: e.resetting,
		Err:       e.err,
		Message:   e.message,
	}
}

func (e *Engine) push(m Mutation) uint64 {
	e.nextToken++
	e.pending = append(e.pending, pending{token: e.nextToken, m: m})
	return e.nextToken
}

func (e *Engine) drop(token uint64) {
	e.pending = slices.DeleteFunc(e.pending, func(p pending) bool { return p.token == token })
}

// settle removes the pending mutation and frees the id.
func (e *Engine) settle(token uint64, id string) {
	e.drop(token)
	e.inflight.Release(id)
}

// confirm applies a server-acknowledged change to confirmed state and
// journals it for loads still in flight.
func (e *Engine) confirm(apply func([]product.Product) []product.Product) {
	e.confirmed = apply(e.confirmed)
	e.settled++
	if len(e.loads) > 0 {
		e.journal = append(e.journal, confirmation{seq: e.settled, apply: apply})
	}
}

func (e *Engine) fail(err error, msg string) {
	e.err = err
	e.message = msg
}

func (e *Engine) clearBanner() {
	e.err = nil
	e.message = ""
}
