package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/product-desk/internal/domain/auth"
	"github.com/xenking/product-desk/internal/domain/product"
)

var errUnavailable = errors.New("503 service unavailable")

// fakeStore is a scripted in-memory remote store.
type fakeStore struct {
	mu       sync.Mutex
	products map[string]product.Product
	order    []string
	fail     map[string]error
	calls    int
	tick     time.Time

	// hooks run at the start of the matching call, before any effect.
	onUpdate func(id string)
	onCreate func()
	onDelete func(id string)

	listErr   error
	createErr error
	createID  string
}

func newFakeStore(ps ...product.Product) *fakeStore {
	s := &fakeStore{
		products: make(map[string]product.Product),
		fail:     make(map[string]error),
		tick:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		createID: "srv-1",
	}
	for _, p := range ps {
		s.products[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return s
}

func (s *fakeStore) failOn(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[id] = err
}

func (s *fakeStore) get(id string) (product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeStore) List(context.Context) ([]product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]product.Product, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, in product.Input) (product.Product, error) {
	if s.onCreate != nil {
		s.onCreate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.createErr != nil {
		return product.Product{}, s.createErr
	}
	s.tick = s.tick.Add(time.Second)
	p := product.Product{
		ID:          s.createID,
		Title:       in.Title,
		Description: in.Description,
		ImageURLs:   in.ImageURLs,
		ProductURL:  in.ProductURL,
		Price:       in.Price,
		Status:      product.StatusPending,
		CreatedAt:   s.tick,
		UpdatedAt:   s.tick,
	}
	s.products[p.ID] = p
	s.order = append([]string{p.ID}, s.order...)
	return p, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status product.Status) (product.Product, error) {
	if s.onUpdate != nil {
		s.onUpdate(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.fail[id]; err != nil {
		return product.Product{}, err
	}
	p, ok := s.products[id]
	if !ok {
		return product.Product{}, errors.New("404 Product not found")
	}
	s.tick = s.tick.Add(time.Second)
	p.Status = status
	p.UpdatedAt = s.tick
	s.products[id] = p
	return p, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	if s.onDelete != nil {
		s.onDelete(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.fail[id]; err != nil {
		return err
	}
	if _, ok := s.products[id]; !ok {
		return errors.New("404 Product not found")
	}
	delete(s.products, id)
	return nil
}

func loadedEngine(t *testing.T, store *fakeStore, role auth.Role, opts ...Option) *Engine {
	t.Helper()
	e := New(store, role, opts...)
	require.NoError(t, e.Load(context.Background()))
	return e
}

func seedProducts() []product.Product {
	return []product.Product{
		item("p1", product.StatusPending),
		item("p2", product.StatusApproved),
	}
}

func validCreateInput() product.Input {
	return product.Input{
		Title:      "Desk Lamp",
		ImageURLs:  []string{"https://img/lamp.jpg"},
		ProductURL: "https://shop/lamp",
		Price:      "1499.00",
	}
}

func findProduct(t *testing.T, ps []product.Product, id string) product.Product {
	t.Helper()
	i := indexByID(ps, id)
	require.GreaterOrEqual(t, i, 0, "product %q not found", id)
	return ps[i]
}

func TestLoad(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	e := loadedEngine(t, store, auth.RoleUser)

	snap := e.Snapshot()
	assert.Equal(t, []string{"p1", "p2"}, ids(snap.Confirmed))
	assert.Equal(t, snap.Confirmed, snap.Products)
	assert.True(t, snap.Settled())
}

func TestLoad_FailureSetsBannerUntilNextLoad(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	store.listErr = errUnavailable
	e := New(store, auth.RoleUser)

	err := e.Load(context.Background())
	require.ErrorIs(t, err, ErrRemote)
	require.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, MsgLoad, e.Snapshot().Message)

	store.listErr = nil
	require.NoError(t, e.Load(context.Background()))
	assert.Empty(t, e.Snapshot().Message)
}

func TestChangeStatus_Success(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	e := loadedEngine(t, store, auth.RoleUser)

	require.NoError(t, e.ChangeStatus(context.Background(), "p1", product.StatusApproved))

	snap := e.Snapshot()
	p1 := findProduct(t, snap.Confirmed, "p1")
	server, _ := store.get("p1")
	assert.Equal(t, product.StatusApproved, p1.Status)
	assert.Equal(t, server, p1, "confirmed state absorbs every field of the server record")
	assert.Nil(t, snap.Err)
	assert.Empty(t, snap.Message)
	assert.Equal(t, snap.Confirmed, snap.Products)
	assert.False(t, snap.Busy("p1"))
}

func TestChangeStatus_RendersBeforeRequest(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	e := loadedEngine(t, store, auth.RoleUser)

	var during Snapshot
	store.onUpdate = func(string) { during = e.Snapshot() }

	require.NoError(t, e.ChangeStatus(context.Background(), "p1", product.StatusRejected))

	assert.Equal(t, product.StatusRejected, findProduct(t, during.Products, "p1").Status)
	assert.Equal(t, product.StatusPending, findProduct(t, during.Confirmed, "p1").Status)
	assert.True(t, during.Busy("p1"))
	assert.False(t, during.Busy("p2"))
}

func TestChangeStatus_FailureRollsBack(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	store.failOn("p1", errUnavailable)
	e := loadedEngine(t, store, auth.RoleUser)
	before := e.Snapshot()

	err := e.ChangeStatus(context.Background(), "p1", product.StatusRejected)

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, OpStatus, rerr.Op)
	assert.Equal(t, "p1", rerr.ID)
	require.ErrorIs(t, err, ErrRemote)
	require.ErrorIs(t, err, errUnavailable)

	after := e.Snapshot()
	assert.Equal(t, before.Confirmed, after.Confirmed)
	assert.Equal(t, before.Products, after.Products)
	assert.Equal(t, product.StatusPending, findProduct(t, after.Confirmed, "p1").Status)
	assert.Equal(t, MsgStatus, after.Message)
	require.ErrorIs(t, after.Err, ErrRemote)
	assert.False(t, after.Busy("p1"), "controls are re-enabled once the call settles")
	assert.True(t, after.Settled())
}

func TestChangeStatus_NoAutomaticRetry(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	store.failOn("p1", errUnavailable)
	e := loadedEngine(t, store, auth.RoleUser)
	base := store.callCount()

	require.Error(t, e.ChangeStatus(context.Background(), "p1", product.StatusApproved))
	assert.Equal(t, base+1, store.callCount())
}

func TestChangeStatus_RoundTrip(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	e := loadedEngine(t, store, auth.RoleUser)
	ctx := context.Background()

	require.NoError(t, e.ChangeStatus(ctx, "p1", product.StatusApproved))
	require.NoError(t, e.ChangeStatus(ctx, "p1", product.StatusPending))

	got := findProduct(t, e.Snapshot().Confirmed, "p1")
	server, _ := store.get("p1")
	assert.Equal(t, product.StatusPending, got.Status)
	assert.Equal(t, server, got)
}

func TestChangeStatus_Rejected(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	e := loadedEngine(t, store, auth.RoleUser)
	ctx := context.Background()
	base := store.callCount()

	require.ErrorIs(t, e.ChangeStatus(ctx, "nope", product.StatusApproved), ErrUnknownProduct)
	require.ErrorIs(t, e.ChangeStatus(ctx, "p1", product.Status("DONE")), product.ErrInvalidStatus)
	assert.Equal(t, base, store.callCount())
	assert.Empty(t, e.Snapshot().Message)

	none := New(store, auth.Role(""))
	require.ErrorIs(t, none.ChangeStatus(ctx, "p1", product.StatusApproved), ErrForbidden)
}

func TestChangeStatus_BusyGuard(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	e := loadedEngine(t, store, auth.RoleAdmin)

	entered := make(chan struct{})
	release := make(chan struct{})
	store.onUpdate = func(id string) {
		if id == "p1" {
			close(entered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() { done <- e.ChangeStatus(context.Background(), "p1", product.StatusApproved) }()
	<-entered

	before := e.Snapshot()
	require.ErrorIs(t, e.ChangeStatus(context.Background(), "p1", product.StatusRejected), ErrBusy)
	require.ErrorIs(t, e.Delete(context.Background(), "p1"), ErrBusy)
	assert.Equal(t, before.Products, e.Snapshot().Products, "rejected intents do not touch state")

	// Other products are unconstrained.
	require.NoError(t, e.ChangeStatus(context.Background(), "p2", product.StatusRejected))

	close(release)
	require.NoError(t, <-done)

	snap := e.Snapshot()
	assert.Equal(t, product.StatusApproved, findProduct(t, snap.Confirmed, "p1").Status)
	assert.Equal(t, product.StatusRejected, findProduct(t, snap.Confirmed, "p2").Status)
	assert.True(t, snap.Settled())
}

func TestChangeStatus_OutOfOrderCompletion(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	store.failOn("p1", errUnavailable)
	e := loadedEngine(t, store, auth.RoleAdmin)

	p1Entered := make(chan struct{})
	p1Release := make(chan struct{})
	store.onUpdate = func(id string) {
		if id == "p1" {
			close(p1Entered)
			<-p1Release
		}
	}

	done := make(chan error, 1)
	go func() { done <- e.ChangeStatus(context.Background(), "p1", product.StatusRejected) }()
	<-p1Entered

	// p2 is dispatched after p1 but completes first.
	require.NoError(t, e.ChangeStatus(context.Background(), "p2", product.StatusPending))

	close(p1Release)
	require.ErrorIs(t, <-done, ErrRemote)

	snap := e.Snapshot()
	assert.Equal(t, product.StatusPending, findProduct(t, snap.Products, "p1").Status, "p1 rolled back")
	assert.Equal(t, product.StatusPending, findProduct(t, snap.Products, "p2").Status, "p2 change kept")
	assert.Equal(t, snap.Confirmed, snap.Products)
}

func TestCreate_EmptyImageURLs(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	e := loadedEngine(t, store, auth.RoleAdmin)
	before := e.Snapshot()
	base := store.callCount()

	in := validCreateInput()
	in.ImageURLs = []string{}
	_, err := e.Create(context.Background(), in)

	var vErr *product.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "imageUrls", vErr.Field)
	assert.Equal(t, base, store.callCount(), "no network call")
	assert.Equal(t, before, e.Snapshot(), "state unchanged")
}

func TestCreate_Success(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	e := loadedEngine(t, store, auth.RoleAdmin,
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { return "local" }),
	)

	var during Snapshot
	store.onCreate = func() { during = e.Snapshot() }

	created, err := e.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	// Provisional record visible at the head before the call.
	require.NotEmpty(t, during.Products)
	provisional := during.Products[0]
	assert.Equal(t, "tmp-local", provisional.ID)
	assert.Equal(t, product.StatusPending, provisional.Status)
	assert.Equal(t, now, provisional.CreatedAt)
	assert.True(t, during.Busy("tmp-local"))

	snap := e.Snapshot()
	assert.Equal(t, "srv-1", created.ID)
	assert.Equal(t, []string{"srv-1", "p1", "p2"}, ids(snap.Confirmed))
	assert.Equal(t, snap.Confirmed, snap.Products, "provisional record replaced")
	assert.True(t, snap.Settled())
}

func TestCreate_FailureDiscardsProvisional(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	store.createErr = errUnavailable
	e := loadedEngine(t, store, auth.RoleAdmin)
	before := e.Snapshot()

	_, err := e.Create(context.Background(), validCreateInput())

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, OpCreate, rerr.Op)

	after := e.Snapshot()
	assert.Equal(t, before.Products, after.Products)
	assert.Equal(t, before.Confirmed, after.Confirmed)
	assert.Equal(t, MsgCreate, after.Message)
	assert.True(t, after.Settled())
}

func TestCreate_UserForbidden(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	e := loadedEngine(t, store, auth.RoleUser)

	_, err := e.Create(context.Background(), validCreateInput())
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, e.Delete(context.Background(), "p1"), ErrForbidden)
	require.ErrorIs(t, e.ResetAll(context.Background()), ErrForbidden)
	assert.False(t, e.Can(auth.IntentDelete))
	assert.True(t, e.Can(auth.IntentChangeStatus))
}

func TestDelete_Success(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	e := loadedEngine(t, store, auth.RoleAdmin)

	var during Snapshot
	store.onDelete = func(string) { during = e.Snapshot() }

	require.NoError(t, e.Delete(context.Background(), "p2"))

	assert.Equal(t, []string{"p1"}, ids(during.Products), "removed before the call")
	snap := e.Snapshot()
	assert.Equal(t, []string{"p1"}, ids(snap.Confirmed))
	assert.Nil(t, snap.Err)
	assert.True(t, snap.Settled())
}

func TestDelete_FailureRestoresProduct(t *testing.T) {
	store := newFakeStore(item("p1", product.StatusPending), item("p2", product.StatusApproved), item("p3", product.StatusRejected))
	store.failOn("p2", errUnavailable)
	e := loadedEngine(t, store, auth.RoleAdmin)
	before := e.Snapshot()

	err := e.Delete(context.Background(), "p2")
	require.ErrorIs(t, err, ErrRemote)

	after := e.Snapshot()
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids(after.Products), "reappears in place")
	assert.Equal(t, before.Confirmed, after.Confirmed)
	assert.Equal(t, MsgDelete, after.Message)
}

func TestResetAll_Success(t *testing.T) {
	store := newFakeStore(item("p1", product.StatusApproved), item("p2", product.StatusRejected))
	e := loadedEngine(t, store, auth.RoleAdmin, WithBulkConcurrency(1))

	require.NoError(t, e.ResetAll(context.Background()))

	snap := e.Snapshot()
	for _, id := range []string{"p1", "p2"} {
		server, _ := store.get(id)
		assert.Equal(t, server, findProduct(t, snap.Confirmed, id))
		assert.Equal(t, product.StatusPending, server.Status)
	}
	assert.False(t, snap.Resetting)
	assert.True(t, snap.Settled())
}

func TestResetAll_PartialFailureRollsBackWholeBatch(t *testing.T) {
	store := newFakeStore(item("p1", product.StatusApproved), item("p2", product.StatusRejected))
	store.failOn("p2", errUnavailable)
	e := loadedEngine(t, store, auth.RoleAdmin)
	before := e.Snapshot()

	var (
		mu     sync.Mutex
		during []Snapshot
	)
	store.onUpdate = func(string) {
		mu.Lock()
		defer mu.Unlock()
		during = append(during, e.Snapshot())
	}

	err := e.ResetAll(context.Background())

	var bulk *BulkError
	require.ErrorAs(t, err, &bulk)
	require.ErrorIs(t, err, ErrRemote)
	assert.Equal(t, 2, bulk.Total)
	require.Len(t, bulk.Failed, 1)
	assert.ErrorIs(t, bulk.Failed["p2"], errUnavailable)

	// Every product showed PENDING while the batch was in flight.
	require.Len(t, during, 2)
	for _, s := range during {
		assert.True(t, s.Resetting)
		for _, p := range s.Products {
			assert.Equal(t, product.StatusPending, p.Status)
		}
	}

	after := e.Snapshot()
	assert.Equal(t, before.Confirmed, after.Confirmed)
	assert.Equal(t, product.StatusApproved, findProduct(t, after.Products, "p1").Status)
	assert.Equal(t, product.StatusRejected, findProduct(t, after.Products, "p2").Status)
	assert.Equal(t, MsgReset, after.Message)
	assert.True(t, after.Settled())

	// p1 committed remotely anyway; only a reload reconciles it.
	server, _ := store.get("p1")
	assert.Equal(t, product.StatusPending, server.Status)

	store.onUpdate = nil
	require.NoError(t, e.Load(context.Background()))
	assert.Equal(t, product.StatusPending, findProduct(t, e.Snapshot().Products, "p1").Status)
}

func TestResetAll_BusyWhileProductInFlight(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	e := loadedEngine(t, store, auth.RoleAdmin)

	entered := make(chan struct{})
	release := make(chan struct{})
	store.onUpdate = func(id string) {
		if id == "p1" {
			close(entered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() { done <- e.ChangeStatus(context.Background(), "p1", product.StatusRejected) }()
	<-entered

	require.ErrorIs(t, e.ResetAll(context.Background()), ErrBusy)
	assert.False(t, e.Snapshot().Resetting)

	close(release)
	require.NoError(t, <-done)
}

func TestBanner_ClearedOnlyBySuccessfulMutation(t *testing.T) {
	store := newFakeStore(seedProducts()...)
	store.failOn("p1", errUnavailable)
	e := loadedEngine(t, store, auth.RoleAdmin)
	ctx := context.Background()

	require.Error(t, e.ChangeStatus(ctx, "p1", product.StatusApproved))
	assert.Equal(t, MsgStatus, e.Snapshot().Message)

	// Rejected intents and reloads leave the banner alone.
	require.ErrorIs(t, e.ChangeStatus(ctx, "missing", product.StatusApproved), ErrUnknownProduct)
	require.NoError(t, e.Load(ctx))
	assert.Equal(t, MsgStatus, e.Snapshot().Message)

	require.NoError(t, e.ChangeStatus(ctx, "p2", product.StatusPending))
	snap := e.Snapshot()
	assert.Empty(t, snap.Message)
	assert.Nil(t, snap.Err)
}

func TestObserver_ReceivesOrderedSnapshots(t *testing.T) {
	store := newFakeStore(seedProducts()...)

	var (
		mu   sync.Mutex
		seen []Snapshot
	)
	e := New(store, auth.RoleAdmin, WithObserver(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	}))
	ctx := context.Background()

	require.NoError(t, e.Load(ctx))
	require.NoError(t, e.ChangeStatus(ctx, "p1", product.StatusApproved))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3, "load, speculative, confirmed")
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i].Version, seen[i-1].Version)
	}
	assert.Equal(t, product.StatusApproved, findProduct(t, seen[1].Products, "p1").Status)
	assert.True(t, seen[1].Busy("p1"))
	assert.True(t, seen[2].Settled())
}

// gatedStore holds one List response until released, after reading the
// store, so the list can arrive after later mutations have settled.
type gatedStore struct {
	*fakeStore

	gateMu   sync.Mutex
	captured chan struct{}
	release  chan struct{}
}

func (g *gatedStore) List(ctx context.Context) ([]product.Product, error) {
	ps, err := g.fakeStore.List(ctx)

	g.gateMu.Lock()
	captured, release := g.captured, g.release
	g.captured, g.release = nil, nil
	g.gateMu.Unlock()

	if captured != nil {
		close(captured)
		<-release
	}
	return ps, err
}

// delayedLoad runs Load with its list read before during and delivered after.
func delayedLoad(t *testing.T, e *Engine, g *gatedStore, during func()) {
	t.Helper()
	captured, release := make(chan struct{}), make(chan struct{})
	g.gateMu.Lock()
	g.captured, g.release = captured, release
	g.gateMu.Unlock()

	done := make(chan error, 1)
	go func() { done <- e.Load(context.Background()) }()
	<-captured
	during()
	close(release)
	require.NoError(t, <-done)
}

func gatedEngine(t *testing.T) (*Engine, *gatedStore) {
	t.Helper()
	g := &gatedStore{fakeStore: newFakeStore(seedProducts()...)}
	e := New(g, auth.RoleAdmin)
	require.NoError(t, e.Load(context.Background()))
	return e, g
}

func TestLoad_DelayedListKeepsDelete(t *testing.T) {
	e, g := gatedEngine(t)

	delayedLoad(t, e, g, func() {
		require.NoError(t, e.Delete(context.Background(), "p2"))
	})

	snap := e.Snapshot()
	assert.True(t, snap.Settled())
	assert.Equal(t, []string{"p1"}, ids(snap.Confirmed))
	assert.Equal(t, snap.Confirmed, snap.Products)
	assert.Empty(t, e.journal)

	err := e.ChangeStatus(context.Background(), "p2", product.StatusApproved)
	require.ErrorIs(t, err, ErrUnknownProduct)
	assert.Empty(t, e.Snapshot().Message)
}

func TestLoad_DelayedListKeepsStatusChange(t *testing.T) {
	e, g := gatedEngine(t)

	delayedLoad(t, e, g, func() {
		require.NoError(t, e.ChangeStatus(context.Background(), "p1", product.StatusApproved))
	})

	snap := e.Snapshot()
	assert.Equal(t, product.StatusApproved, findProduct(t, snap.Confirmed, "p1").Status)
	assert.Equal(t, product.StatusApproved, findProduct(t, snap.Products, "p1").Status)
	stored, _ := g.get("p1")
	assert.Equal(t, stored, findProduct(t, snap.Confirmed, "p1"))
}

func TestLoad_DelayedListKeepsCreate(t *testing.T) {
	e, g := gatedEngine(t)

	delayedLoad(t, e, g, func() {
		_, err := e.Create(context.Background(), validCreateInput())
		require.NoError(t, err)
	})

	snap := e.Snapshot()
	assert.Equal(t, []string{"srv-1", "p1", "p2"}, ids(snap.Confirmed))
	assert.Equal(t, snap.Confirmed, snap.Products)
}

func TestLoad_OlderListDiscarded(t *testing.T) {
	e, g := gatedEngine(t)

	delayedLoad(t, e, g, func() {
		// Another client removes p2; a newer load sees it first.
		require.NoError(t, g.fakeStore.Delete(context.Background(), "p2"))
		require.NoError(t, e.Load(context.Background()))
		require.Equal(t, []string{"p1"}, ids(e.Snapshot().Confirmed))
	})

	assert.Equal(t, []string{"p1"}, ids(e.Snapshot().Confirmed))
}
