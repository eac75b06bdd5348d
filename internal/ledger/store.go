package ledger

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"time"

	"financehub/internal/core"
)

// Snapshot is a read-only copy of the ledger. Callers own the maps they get
// from Store.Snapshot and may keep them across later mutations.
type Snapshot struct {
	Version      uint64
	Accounts     map[string]core.Account
	Transactions map[string]core.Transaction
	Goals        map[string]core.Goal
	Debts        map[string]core.Debt
	Budgets      map[string]core.Budget
	Scheduled    map[string]core.ScheduledTransaction
	Investments  map[string]core.Investment
}

func newSnapshot() Snapshot {
	return Snapshot{
		Accounts:     make(map[string]core.Account),
		Transactions: make(map[string]core.Transaction),
		Goals:        make(map[string]core.Goal),
		Debts:        make(map[string]core.Debt),
		Budgets:      make(map[string]core.Budget),
		Scheduled:    make(map[string]core.ScheduledTransaction),
		Investments:  make(map[string]core.Investment),
	}
}

func (s *Snapshot) clone() Snapshot {
	out := Snapshot{
		Version:      s.Version,
		Accounts:     maps.Clone(s.Accounts),
		Transactions: make(map[string]core.Transaction, len(s.Transactions)),
		Goals:        maps.Clone(s.Goals),
		Debts:        maps.Clone(s.Debts),
		Budgets:      maps.Clone(s.Budgets),
		Scheduled:    maps.Clone(s.Scheduled),
		Investments:  maps.Clone(s.Investments),
	}
	for id, t := range s.Transactions {
		if t.DeletedAt != nil {
			at := *t.DeletedAt
			t.DeletedAt = &at
		}
		out.Transactions[id] = t
	}
	return out
}

// Get returns the record of the given kind and id.
func (s *Snapshot) Get(kind core.Kind, id string) (core.Record, bool) {
	var (
		r  core.Record
		ok bool
	)
	switch kind {
	case core.KindAccount:
		r, ok = lookup(s.Accounts, id)
	case core.KindTransaction:
		r, ok = lookup(s.Transactions, id)
	case core.KindGoal:
		r, ok = lookup(s.Goals, id)
	case core.KindDebt:
		r, ok = lookup(s.Debts, id)
	case core.KindBudget:
		r, ok = lookup(s.Budgets, id)
	case core.KindScheduled:
		r, ok = lookup(s.Scheduled, id)
	case core.KindInvestment:
		r, ok = lookup(s.Investments, id)
	}
	return r, ok
}

func lookup[T core.Record](m map[string]T, id string) (core.Record, bool) {
	v, ok := m[id]
	if !ok {
		return nil, false
	}
	return v, true
}

func (s *Snapshot) put(r core.Record) {
	switch v := r.(type) {
	case core.Account:
		s.Accounts[v.ID] = v
	case core.Transaction:
		s.Transactions[v.ID] = v
	case core.Goal:
		s.Goals[v.ID] = v
	case core.Debt:
		s.Debts[v.ID] = v
	case core.Budget:
		s.Budgets[v.ID] = v
	case core.ScheduledTransaction:
		s.Scheduled[v.ID] = v
	case core.Investment:
		s.Investments[v.ID] = v
	}
}

func (s *Snapshot) remove(kind core.Kind, id string) {
	switch kind {
	case core.KindAccount:
		delete(s.Accounts, id)
	case core.KindTransaction:
		delete(s.Transactions, id)
	case core.KindGoal:
		delete(s.Goals, id)
	case core.KindDebt:
		delete(s.Debts, id)
	case core.KindBudget:
		delete(s.Budgets, id)
	case core.KindScheduled:
		delete(s.Scheduled, id)
	case core.KindInvestment:
		delete(s.Investments, id)
	}
}

func (s *Snapshot) applyChange(c Change) {
	if c.Value == nil {
		s.remove(c.Kind, c.ID)
		return
	}
	s.put(c.Value)
}

// Len is the total number of records of every kind.
func (s *Snapshot) Len() int {
	return len(s.Accounts) + len(s.Transactions) + len(s.Goals) + len(s.Debts) +
		len(s.Budgets) + len(s.Scheduled) + len(s.Investments)
}

func sortedValues[T any](m map[string]T, compare func(a, b T) int) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, compare)
	return out
}

func byCreated(aAt, bAt time.Time, aID, bID string) int {
	if c := aAt.Compare(bAt); c != 0 {
		return c
	}
	return cmp.Compare(aID, bID)
}

// TransactionList returns every transaction, deleted ones included, newest date first.
func (s *Snapshot) TransactionList() []core.Transaction {
	return sortedValues(s.Transactions, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return -byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
}

// ActiveTransactions returns the non-deleted transactions, newest date first.
func (s *Snapshot) ActiveTransactions() []core.Transaction {
	all := s.TransactionList()
	out := all[:0]
	for _, t := range all {
		if !t.IsDeleted() {
			out = append(out, t)
		}
	}
	return out
}

// Linked returns the transactions whose origin equals o.
func (s *Snapshot) Linked(o core.Origin, includeDeleted bool) []core.Transaction {
	var out []core.Transaction
	for _, t := range s.Transactions {
		if t.Origin != o || (!includeDeleted && t.IsDeleted()) {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b core.Transaction) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Snapshot) AccountList() []core.Account {
	return sortedValues(s.Accounts, func(a, b core.Account) int { return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
}

func (s *Snapshot) GoalList() []core.Goal {
	return sortedValues(s.Goals, func(a, b core.Goal) int { return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
}

func (s *Snapshot) DebtList() []core.Debt {
	return sortedValues(s.Debts, func(a, b core.Debt) int { return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
}

func (s *Snapshot) InvestmentList() []core.Investment {
	return sortedValues(s.Investments, func(a, b core.Investment) int { return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
}

func (s *Snapshot) BudgetList() []core.Budget {
	return sortedValues(s.Budgets, func(a, b core.Budget) int {
		if c := cmp.Compare(a.CategoryID, b.CategoryID); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// ScheduledList returns the schedules ordered by next due date.
func (s *Snapshot) ScheduledList() []core.ScheduledTransaction {
	return sortedValues(s.Scheduled, func(a, b core.ScheduledTransaction) int {
		if c := a.NextDueDate.Compare(b.NextDueDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Records flattens the snapshot in core.Kinds order, accounts first.
func (s *Snapshot) Records() []core.Record {
	out := make([]core.Record, 0, s.Len())
	for _, a := range s.AccountList() {
		out = append(out, a)
	}
	for _, t := range s.TransactionList() {
		out = append(out, t)
	}
	for _, g := range s.GoalList() {
		out = append(out, g)
	}
	for _, d := range s.DebtList() {
		out = append(out, d)
	}
	for _, b := range s.BudgetList() {
		out = append(out, b)
	}
	for _, st := range s.ScheduledList() {
		out = append(out, st)
	}
	for _, i := range s.InvestmentList() {
		out = append(out, i)
	}
	return out
}

// Store is the single owner of ledger state. Only the Coordinator mutates it
// through begin/rollback/reconcile; readers get Snapshots.
type Store struct {
	mu       sync.RWMutex
	state    Snapshot
	inflight map[string]int
	stash    map[string][]Change

	subMu   sync.Mutex
	subs    map[int]chan uint64
	nextSub int
}

func NewStore() *Store {
	return &Store{
		state:    newSnapshot(),
		inflight: make(map[string]int),
		stash:    make(map[string][]Change),
		subs:     make(map[int]chan uint64),
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Version
}

// Subscribe returns a channel that receives the latest version after each
// change. Slow readers only miss intermediate versions.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

func (s *Store) notify(version uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- version:
		default:
		}
	}
}

// Load replaces the whole state with records, as when hydrating from
// persistence. It bypasses per-id serialization and must not run
// concurrently with mutations.
func (s *Store) Load(records []core.Record) {
	s.mu.Lock()
	next := newSnapshot()
	next.Version = s.state.Version + 1
	for _, r := range records {
		next.put(r)
	}
	s.state = next
	clear(s.stash)
	v := s.state.Version
	s.mu.Unlock()
	s.notify(v)
}

// Reset wipes every record. Same caveats as Load.
func (s *Store) Reset() { s.Load(nil) }

// MergeRemote applies changes pushed by the change feed. Changes for ids
// with an in-flight optimistic patch are stashed and applied once that
// mutation settles, so local patches are never clobbered mid-flight.
func (s *Store) MergeRemote(changes []Change) (applied, stashed int) {
	s.mu.Lock()
	for _, c := range changes {
		if s.inflight[c.ID] > 0 {
			s.stash[c.ID] = append(s.stash[c.ID], c)
			stashed++
			continue
		}
		s.state.applyChange(c)
		applied++
	}
	var v uint64
	if applied > 0 {
		s.state.Version++
		v = s.state.Version
	}
	s.mu.Unlock()
	if v > 0 {
		s.notify(v)
	}
	return applied, stashed
}

// InFlight returns the ids with an optimistic patch awaiting persistence.
func (s *Store) InFlight() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.inflight))
	for id := range s.inflight {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s *Store) isInFlight(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight[id] > 0
}

// inFlightLocked is isInFlight for callers already holding s.mu, such as a
// build func passed to begin.
func (s *Store) inFlightLocked(id string) bool {
	return s.inflight[id] > 0
}

func (s *Store) read(fn func(*Snapshot)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.state)
}

func (s *Store) applyLocked(p Patch) Patch {
	undo := make(Patch, 0, len(p))
	for _, c := range p {
		prev, _ := s.state.Get(c.Kind, c.ID)
		undo = append(undo, Change{Kind: c.Kind, ID: c.ID, Value: prev})
		s.state.applyChange(c)
	}
	slices.Reverse(undo)
	s.state.Version++
	return undo
}

// begin builds a patch against the live state and applies it atomically,
// marking the patched ids in flight. build must only read the state it is given.
func (s *Store) begin(build func(*Snapshot) (Patch, error)) (undo Patch, ids []string, err error) {
	s.mu.Lock()
	p, err := build(&s.state)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	if len(p) == 0 {
		s.mu.Unlock()
		return nil, nil, nil
	}
	undo = s.applyLocked(p)
	ids = p.IDs()
	for _, id := range ids {
		s.inflight[id]++
	}
	v := s.state.Version
	s.mu.Unlock()
	s.notify(v)
	return undo, ids, nil
}

// settle applies p (an undo patch on failure, canonical rows on success),
// clears the in-flight marks and replays any stashed remote changes.
func (s *Store) settle(ids []string, p Patch) {
	s.mu.Lock()
	if len(p) > 0 {
		s.applyLocked(p)
	}
	replayed := false
	for _, id := range ids {
		if s.inflight[id]--; s.inflight[id] > 0 {
			continue
		}
		delete(s.inflight, id)
		for _, c := range s.stash[id] {
			s.state.applyChange(c)
			replayed = true
		}
		delete(s.stash, id)
	}
	if replayed {
		s.state.Version++
	}
	v := s.state.Version
	s.mu.Unlock()
	s.notify(v)
}
