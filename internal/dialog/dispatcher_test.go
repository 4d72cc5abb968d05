package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencybot/whatsapp-catalog-bot/internal/catalog"
	"github.com/agencybot/whatsapp-catalog-bot/internal/session"
)

const (
	testAgency   = "acme"
	testAgencyID = 7
	testMobile   = "911234567890"
)

// memStore keeps sessions as serialized blobs so every load goes
// through the same round trip a Redis-backed store would.
type memStore struct {
	data      map[string][]byte
	refreshed int
	loadErr   error
	saveErr   error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Load(_ context.Context, key string) (*session.Session, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	raw, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, nil
	}
	if s.Cart == nil {
		s.Cart = map[int]*session.CartLine{}
	}
	return &s, nil
}

func (m *memStore) Save(_ context.Context, key string, s *session.Session, _ time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memStore) Clear(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) RefreshTTL(_ context.Context, _ string, _ time.Duration) error {
	m.refreshed++
	return nil
}

// fakeCatalog serves:
//
//	1 catA (root, leaf)   -> prodX (id 100, ₹100)
//	2 catB (root)
//	  3 sub1 (leaf)       -> prodY (id 300, ₹55)
//	4 catC (root, leaf)   -> no products
type fakeCatalog struct {
	deleted  map[int]bool
	lastTier int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{deleted: map[int]bool{}, lastTier: -999}
}

var testNodes = map[int]catalog.Node{
	1: {ID: 1, ParentID: 0, Name: "catA"},
	2: {ID: 2, ParentID: 0, Name: "catB"},
	3: {ID: 3, ParentID: 2, Name: "sub1"},
	4: {ID: 4, ParentID: 0, Name: "catC"},
}

func (f *fakeCatalog) RootCategories(_ context.Context, _ int) ([]catalog.Node, error) {
	return f.childrenOf(0), nil
}

func (f *fakeCatalog) Children(_ context.Context, categoryID int) ([]catalog.Node, error) {
	return f.childrenOf(categoryID), nil
}

func (f *fakeCatalog) NodeByID(_ context.Context, categoryID int) (*catalog.Node, error) {
	if f.deleted[categoryID] {
		return nil, nil
	}
	n, ok := testNodes[categoryID]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (f *fakeCatalog) Products(_ context.Context, _, categoryID, tierID int) ([]catalog.Product, error) {
	f.lastTier = tierID
	switch categoryID {
	case 1:
		return []catalog.Product{{ID: 100, Name: "prodX", Price: 100}}, nil
	case 3:
		return []catalog.Product{{ID: 300, Name: "prodY", Price: 55}}, nil
	}
	return nil, nil
}

func (f *fakeCatalog) CustomerByContact(_ context.Context, mobile string) (*catalog.Customer, error) {
	if mobile == testMobile {
		tier := 2
		return &catalog.Customer{ID: 42, TierID: &tier}, nil
	}
	return nil, nil
}

func (f *fakeCatalog) childrenOf(parentID int) []catalog.Node {
	var out []catalog.Node
	for id := 1; id <= 4; id++ {
		n, ok := testNodes[id]
		if ok && n.ParentID == parentID && !f.deleted[id] {
			out = append(out, n)
		}
	}
	return out
}

type sentMsg struct {
	to      string
	text    string
	buttons []string
}

type recMessenger struct {
	sent []sentMsg
}

func (m *recMessenger) Send(_ context.Context, to, text string, buttons ...string) error {
	m.sent = append(m.sent, sentMsg{to: to, text: text, buttons: buttons})
	return nil
}

func (m *recMessenger) last(t *testing.T) sentMsg {
	t.Helper()
	require.NotEmpty(t, m.sent, "expected a reply to have been sent")
	return m.sent[len(m.sent)-1]
}

type fakeCommitter struct {
	number string
	err    error
	calls  int
}

func (f *fakeCommitter) Commit(_ context.Context, _ *session.Session) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.number, nil
}

type fixture struct {
	d         *Dispatcher
	store     *memStore
	cat       *fakeCatalog
	committer *fakeCommitter
	out       *recMessenger
	key       string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	cat := newFakeCatalog()
	committer := &fakeCommitter{number: "7-AB12CD34"}
	out := &recMessenger{}
	d := NewDispatcher(Config{
		Agency:     testAgency,
		AgencyID:   testAgencyID,
		SessionTTL: 30 * time.Minute,
	}, store, cat, committer, out)
	return &fixture{
		d:         d,
		store:     store,
		cat:       cat,
		committer: committer,
		out:       out,
		key:       session.Key(testAgency, testMobile),
	}
}

func (f *fixture) send(t *testing.T, input string) sentMsg {
	t.Helper()
	require.NoError(t, f.d.Handle(context.Background(), testMobile, input))
	return f.out.last(t)
}

func (f *fixture) sess(t *testing.T) *session.Session {
	t.Helper()
	s, err := f.store.Load(context.Background(), f.key)
	require.NoError(t, err)
	require.NotNil(t, s, "expected a stored session")
	return s
}

func TestFullOrderScenario(t *testing.T) {
	f := setup(t)

	msg := f.send(t, "hi")
	assert.Contains(t, msg.text, "Welcome to *acme*")
	assert.Equal(t, session.StepStart, f.sess(t).Step)

	msg = f.send(t, "list")
	assert.Contains(t, msg.text, "1. catA")
	assert.Contains(t, msg.text, "2. catB")
	s := f.sess(t)
	assert.Equal(t, session.StepCategory, s.Step)
	first, ok := s.Categories.At(1)
	require.True(t, ok)
	assert.Equal(t, "catA", first.Name)

	// catA is a leaf with one product priced 100.
	msg = f.send(t, "1")
	assert.Contains(t, msg.text, "prodX – ₹100.00")
	s = f.sess(t)
	assert.Equal(t, session.StepProduct, s.Step)
	assert.Equal(t, 1, s.CurrentParentID)

	msg = f.send(t, "1")
	assert.Contains(t, msg.text, "How many *prodX*?")
	assert.Equal(t, session.StepQty, f.sess(t).Step)

	msg = f.send(t, "3")
	assert.Contains(t, msg.text, "Added *prodX* x3")
	s = f.sess(t)
	assert.Equal(t, session.StepProduct, s.Step)
	require.Contains(t, s.Cart, 100)
	assert.Equal(t, 3, s.Cart[100].Quantity)

	msg = f.send(t, "cart")
	assert.Contains(t, msg.text, "prodX x3")

	msg = f.send(t, "order")
	assert.Contains(t, msg.text, "Place this order?")
	assert.Equal(t, []string{"Yes", "No"}, msg.buttons)
	assert.Equal(t, session.StepConfirmOrder, f.sess(t).Step)

	msg = f.send(t, "yes")
	assert.Contains(t, msg.text, "7-AB12CD34")
	assert.Equal(t, 1, f.committer.calls)
	_, stored := f.store.data[f.key]
	assert.False(t, stored, "session must be gone after a successful commit")
}

func TestGreetingIsAlwaysAHardReset(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	f.send(t, "1")
	f.send(t, "1")
	f.send(t, "2")

	require.NotEmpty(t, f.sess(t).Cart)

	msg := f.send(t, "hello")
	assert.Contains(t, msg.text, "Welcome")
	s := f.sess(t)
	assert.Equal(t, session.StepStart, s.Step)
	assert.Empty(t, s.Cart)
	assert.Equal(t, 0, s.CurrentParentID)
	assert.Equal(t, 42, s.CustomerID, "greeting re-resolves customer identity")
}

func TestExitIsIdempotent(t *testing.T) {
	f := setup(t)

	msg := f.send(t, "exit")
	assert.Contains(t, msg.text, "Session ended")

	f.send(t, "hi")
	f.send(t, "exit")
	_, stored := f.store.data[f.key]
	assert.False(t, stored)

	msg = f.send(t, "exit")
	assert.Contains(t, msg.text, "Session ended")
}

func TestCommandsWithoutSession(t *testing.T) {
	f := setup(t)
	for _, input := range []string{"list", "back", "cart", "1", "order"} {
		msg := f.send(t, input)
		assert.Contains(t, msg.text, "Type *Hi*", input)
	}
}

func TestInvalidSelectionKeepsState(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	before := f.sess(t)
	refreshedBefore := f.store.refreshed

	for _, input := range []string{"9", "zero", "-1"} {
		msg := f.send(t, input)
		assert.Contains(t, msg.text, "Invalid input")
	}

	after := f.sess(t)
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, before.Categories, after.Categories)
	assert.Greater(t, f.store.refreshed, refreshedBefore, "fallback slides the TTL")
}

func TestUnboundedDepthNavigation(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")

	// catB has a subcategory; the same numeric rule applies one level down.
	msg := f.send(t, "2")
	assert.Contains(t, msg.text, "catB – Subcategories")
	s := f.sess(t)
	assert.Equal(t, session.StepSubcategory, s.Step)
	assert.Equal(t, 2, s.CurrentParentID)

	msg = f.send(t, "1")
	assert.Contains(t, msg.text, "prodY")
	s = f.sess(t)
	assert.Equal(t, session.StepProduct, s.Step)
	assert.Equal(t, 3, s.CurrentParentID)
}

func TestBackMatchesDirectNavigation(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	f.send(t, "2")
	backMsg := f.send(t, "back")

	g := setup(t)
	g.send(t, "hi")
	directMsg := g.send(t, "list")

	assert.Equal(t, directMsg.text, backMsg.text, "back ascends to the same menu direct navigation shows")
	assert.Equal(t, session.StepCategory, f.sess(t).Step)
	assert.Equal(t, 0, f.sess(t).CurrentParentID)
}

func TestBackFromNestedProducts(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	f.send(t, "2")
	f.send(t, "1") // prodY menu under sub1

	msg := f.send(t, "back")
	assert.Contains(t, msg.text, "catB – Subcategories")
	s := f.sess(t)
	assert.Equal(t, session.StepSubcategory, s.Step)
	assert.Equal(t, 2, s.CurrentParentID)
}

func TestBackAtRootRedisplaysRootMenu(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")

	msg := f.send(t, "back")
	assert.Contains(t, msg.text, "1. catA")
	s := f.sess(t)
	assert.Equal(t, session.StepCategory, s.Step)
	assert.Equal(t, 0, s.CurrentParentID)
}

func TestBackFromQtyAbortsPendingProduct(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	f.send(t, "1")
	f.send(t, "1")
	require.NotNil(t, f.sess(t).PendingProduct)

	msg := f.send(t, "back")
	assert.Contains(t, msg.text, "prodX")
	s := f.sess(t)
	assert.Equal(t, session.StepProduct, s.Step)
	assert.Nil(t, s.PendingProduct)
	assert.Empty(t, s.Cart)
}

func TestBackWhenNodeDeletedUpstream(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	f.send(t, "1")

	f.cat.deleted[1] = true
	msg := f.send(t, "back")
	assert.Contains(t, msg.text, "no longer available")
	assert.Equal(t, session.StepProduct, f.sess(t).Step, "degraded back leaves state untouched")
}

func TestEmptyProductListDoesNotAdvance(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")

	msg := f.send(t, "3") // catC has no products
	assert.Contains(t, msg.text, "No products under *catC*")
	s := f.sess(t)
	assert.Equal(t, session.StepCategory, s.Step)
	assert.Equal(t, 0, s.CurrentParentID)
}

func TestQuantityAccumulatesAcrossVisits(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	f.send(t, "1")
	f.send(t, "1")
	f.send(t, "2")
	f.send(t, "1")
	f.send(t, "3")

	s := f.sess(t)
	require.Len(t, s.Cart, 1, "same product accumulates, never duplicates")
	assert.Equal(t, 5, s.Cart[100].Quantity)
}

func TestOrderWithEmptyCart(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	f.send(t, "1")

	msg := f.send(t, "order")
	assert.Contains(t, msg.text, "empty")
	assert.Equal(t, session.StepProduct, f.sess(t).Step)
	assert.Zero(t, f.committer.calls)
}

func TestCommitFailurePreservesCartForRetry(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	f.send(t, "1")
	f.send(t, "1")
	f.send(t, "2")
	f.send(t, "order")

	f.committer.err = errors.New("store down")
	msg := f.send(t, "yes")
	assert.Contains(t, msg.text, "try again")
	s := f.sess(t)
	assert.Equal(t, session.StepConfirmOrder, s.Step)
	require.Contains(t, s.Cart, 100)
	assert.Equal(t, 2, s.Cart[100].Quantity)

	f.committer.err = nil
	msg = f.send(t, "yes")
	assert.Contains(t, msg.text, "7-AB12CD34")
	_, stored := f.store.data[f.key]
	assert.False(t, stored)
}

func TestConfirmDeclineReturnsToProducts(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	f.send(t, "1")
	f.send(t, "1")
	f.send(t, "2")
	f.send(t, "order")

	msg := f.send(t, "no")
	assert.Contains(t, msg.text, "cart is kept")
	assert.Contains(t, msg.text, "prodX")
	s := f.sess(t)
	assert.Equal(t, session.StepProduct, s.Step)
	assert.Contains(t, s.Cart, 100)
	assert.Zero(t, f.committer.calls)
}

func TestAnonymousUserPricesWithSentinelTier(t *testing.T) {
	f := setup(t)
	anon := "910000000000"
	require.NoError(t, f.d.Handle(context.Background(), anon, "hi"))
	require.NoError(t, f.d.Handle(context.Background(), anon, "list"))
	require.NoError(t, f.d.Handle(context.Background(), anon, "1"))

	assert.Equal(t, catalog.NoTier, f.cat.lastTier)
}

func TestKnownCustomerPricesWithTheirTier(t *testing.T) {
	f := setup(t)
	f.send(t, "hi")
	f.send(t, "list")
	f.send(t, "1")

	assert.Equal(t, 2, f.cat.lastTier)
}

func TestStepStaysInClosedSet(t *testing.T) {
	f := setup(t)
	inputs := []string{
		"hi", "list", "2", "back", "1", "1", "1", "4", "cart",
		"order", "no", "nonsense", "back", "list", "1", "1", "2", "order", "yes",
	}
	for _, input := range inputs {
		require.NoError(t, f.d.Handle(context.Background(), testMobile, input))
		s, err := f.store.Load(context.Background(), f.key)
		require.NoError(t, err)
		if s != nil {
			assert.True(t, s.Step.Valid(), "input %q left step %q", input, s.Step)
		}
	}
}

func TestLoadFailureStillReplies(t *testing.T) {
	f := setup(t)
	f.store.loadErr = errors.New("redis down")

	msg := f.send(t, "list")
	assert.Contains(t, msg.text, "went wrong")
}
