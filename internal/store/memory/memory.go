// Package memory is an in-process implementation of store.Store.  A single
// mutex serialises every transaction and each transaction works on a copy
// of the state that is swapped in on commit, so a failing transaction
// leaves nothing behind.  It backs the tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/store"
)

type state struct {
	seq         uint64
	events      map[uint64]model.Event
	tickets     map[string]model.Ticket
	redemptions map[string]model.Redemption
	drags       map[uint64]model.Drag
	items       map[uint64]model.MerchItem
	sales       map[string]model.MerchSale
	users       map[uint64]model.User
	tokens      map[string]model.RefreshToken
}

func newState() *state {
	return &state{
		events:      map[uint64]model.Event{},
		tickets:     map[string]model.Ticket{},
		redemptions: map[string]model.Redemption{},
		drags:       map[uint64]model.Drag{},
		items:       map[uint64]model.MerchItem{},
		sales:       map[string]model.MerchSale{},
		users:       map[uint64]model.User{},
		tokens:      map[string]model.RefreshToken{},
	}
}

func (s *state) nextID() uint64 {
	s.seq++
	return s.seq
}

// clone copies every map; values are plain structs so a shallow copy of
// each entry is enough (pointer fields are never mutated in place).
func (s *state) clone() *state {
	c := &state{
		seq:         s.seq,
		events:      make(map[uint64]model.Event, len(s.events)),
		tickets:     make(map[string]model.Ticket, len(s.tickets)),
		redemptions: make(map[string]model.Redemption, len(s.redemptions)),
		drags:       make(map[uint64]model.Drag, len(s.drags)),
		items:       make(map[uint64]model.MerchItem, len(s.items)),
		sales:       make(map[string]model.MerchSale, len(s.sales)),
		users:       make(map[uint64]model.User, len(s.users)),
		tokens:      make(map[string]model.RefreshToken, len(s.tokens)),
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.redemptions {
		c.redemptions[k] = v
	}
	for k, v := range s.drags {
		c.drags[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	return c
}

// Store implements store.Store in memory.
type Store struct {
	mu     sync.Mutex
	st     *state
	faults map[string]error
	now    func() time.Time
	auto   *view
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{st: newState(), faults: map[string]error{}, now: func() time.Time { return time.Now().UTC() }}
	s.auto = &view{store: s}
	return s
}

// FailOn makes every later write named op (for example "tickets.create")
// fail with err until cleared with a nil err.  Used to exercise rollback
// paths.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// WithinTx runs fn against a private copy of the state and commits it only
// when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(ctx, &view{st: work, faults: s.faults, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

func (s *Store) Events() store.EventRepository           { return s.auto.Events() }
func (s *Store) Tickets() store.TicketRepository         { return s.auto.Tickets() }
func (s *Store) Redemptions() store.RedemptionRepository { return s.auto.Redemptions() }
func (s *Store) Drags() store.DragRepository             { return s.auto.Drags() }
func (s *Store) MerchItems() store.MerchItemRepository   { return s.auto.MerchItems() }
func (s *Store) MerchSales() store.MerchSaleRepository   { return s.auto.MerchSales() }
func (s *Store) Users() store.UserRepository             { return s.auto.Users() }
func (s *Store) Tokens() store.TokenRepository           { return s.auto.Tokens() }

// view is either bound to a transaction's working copy (st set) or runs
// each call under the store lock against the committed state (store set).
type view struct {
	store  *Store
	st     *state
	faults map[string]error
	now    func() time.Time
}

func (v *view) read(f func(st *state) error) error {
	if v.store == nil {
		return f(v.st)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return f(v.store.st)
}

func (v *view) write(op string, f func(st *state, now time.Time) error) error {
	if v.store == nil {
		if err := v.faults[op]; err != nil {
			return err
		}
		return f(v.st, v.now())
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	if err := v.store.faults[op]; err != nil {
		return err
	}
	return f(v.store.st, v.store.now())
}

func (v *view) Events() store.EventRepository           { return eventRepo{v} }
func (v *view) Tickets() store.TicketRepository         { return ticketRepo{v} }
func (v *view) Redemptions() store.RedemptionRepository { return redemptionRepo{v} }
func (v *view) Drags() store.DragRepository             { return dragRepo{v} }
func (v *view) MerchItems() store.MerchItemRepository   { return itemRepo{v} }
func (v *view) MerchSales() store.MerchSaleRepository   { return saleRepo{v} }
func (v *view) Users() store.UserRepository             { return userRepo{v} }
func (v *view) Tokens() store.TokenRepository           { return tokenRepo{v} }
