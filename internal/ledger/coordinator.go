// Package ledger holds the client-side ledger: the entity store, the
// mutation coordinator that applies optimistic patches and rolls them back
// when persistence fails, and the linkage rules between transactions and
// the goals, debts and transfers they belong to.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"financehub/internal/core"
	"financehub/internal/log"

	"github.com/google/uuid"
)

// Persistence is the remote, authoritative store. Commit applies every op
// or none and returns the canonical rows of the records it wrote.
type Persistence interface {
	Commit(ctx context.Context, userID string, ops []Op) ([]core.Record, error)
	Load(ctx context.Context, userID string) ([]core.Record, error)
}

// AuditSink durably stores audit entries. Failures are logged only.
type AuditSink interface {
	AppendAudit(ctx context.Context, userID string, entries []core.AuditEntry) error
}

// ChangePublisher pushes committed ops to other devices.
type ChangePublisher interface {
	PublishChanges(ctx context.Context, userID string, ops []Op) error
}

const backgroundTimeout = 10 * time.Second

type Config struct {
	UserID           string
	DefaultAccountID string
	MutationTimeout  time.Duration
	Categories       *core.CategoryRegistry
	Now              func() time.Time
	NewID            func() string
	Logger           *log.Logger
	Audit            AuditSink
	Publisher        ChangePublisher
}

// Coordinator is the single write path into a Store. Mutations on the same
// record id run one at a time in arrival order; disjoint ones run
// concurrently. Session state (in-flight ids, last error, celebrations)
// belongs to the Coordinator instance.
type Coordinator struct {
	store   *Store
	persist Persistence
	cfg     Config
	locks   *keyLocker
	audit   *AuditLog
	log     *log.Logger

	mu         sync.Mutex
	err        error
	celebrated map[string]bool
	pending    []string

	bg sync.WaitGroup
}

func NewCoordinator(store *Store, persist Persistence, cfg Config) *Coordinator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Categories == nil {
		cfg.Categories = core.DefaultCategories()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	return &Coordinator{
		store:      store,
		persist:    persist,
		cfg:        cfg,
		locks:      newKeyLocker(),
		audit:      NewAuditLog(),
		log:        cfg.Logger.WithComponent(log.ComponentLedger),
		celebrated: make(map[string]bool),
	}
}

func (c *Coordinator) Store() *Store                      { return c.store }
func (c *Coordinator) AuditLog() *AuditLog                { return c.audit }
func (c *Coordinator) Categories() *core.CategoryRegistry { return c.cfg.Categories }
func (c *Coordinator) Snapshot() Snapshot                 { return c.store.Snapshot() }

// Today is the current calendar day according to the configured clock.
func (c *Coordinator) Today() core.Date { return core.DateOf(c.cfg.Now()) }

// Hydrate replaces the store content with what persistence holds for the user.
func (c *Coordinator) Hydrate(ctx context.Context) error {
	records, err := c.persist.Load(ctx, c.cfg.UserID)
	if err != nil {
		return fmt.Errorf("hydrate ledger: %w", err)
	}
	c.store.Load(records)
	c.log.InfoContext(ctx, "Ledger hydrated", log.FieldUserID, c.cfg.UserID, "records", len(records))
	return nil
}

// Close waits for pending audit and feed writes.
func (c *Coordinator) Close() {
	c.bg.Wait()
}

// MutatingIDs returns the ids with an optimistic patch awaiting persistence.
func (c *Coordinator) MutatingIDs() []string { return c.store.InFlight() }

func (c *Coordinator) IsMutating(id string) bool { return c.store.isInFlight(id) }

// Err returns the last persistence failure until ClearError is called.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Coordinator) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = nil
}

// Celebrations returns the goals whose completion has not been acknowledged yet.
func (c *Coordinator) Celebrations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.pending)
}

func (c *Coordinator) AckCelebration(goalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = slices.DeleteFunc(c.pending, func(id string) bool { return id == goalID })
}

// Session is the presentation state of the coordinator.
type Session struct {
	Version      uint64   `json:"version"`
	MutatingIDs  []string `json:"mutating_ids"`
	Error        string   `json:"error,omitempty"`
	Celebrations []string `json:"celebrations"`
}

func (c *Coordinator) Session() Session {
	s := Session{
		Version:      c.store.Version(),
		MutatingIDs:  c.MutatingIDs(),
		Celebrations: c.Celebrations(),
	}
	if err := c.Err(); err != nil {
		s.Error = err.Error()
	}
	return s
}

// plan is the outcome of validating a mutation against current state.
type plan struct {
	ops       []Op
	completed []string // goals that reached their target in this mutation
}

type mutation struct {
	name string
	// ids lists every record id the mutation will write, given current state.
	ids   func(*Snapshot) []string
	build func(*Snapshot) (*plan, error)
}

func fixed(ids ...string) func(*Snapshot) []string {
	return func(*Snapshot) []string { return ids }
}

// run executes m. A plan that references a record another mutation has
// not settled yet (an account still being created, say) is discarded and
// retried with that id locked too, so it validates against the outcome.
func (c *Coordinator) run(ctx context.Context, m mutation) error {
	var refs []string
	for {
		pending, err := c.attempt(ctx, m, refs)
		if len(pending) == 0 {
			return err
		}
		refs = append(refs, pending...)
	}
}

func (c *Coordinator) attempt(ctx context.Context, m mutation, refs []string) ([]string, error) {
	unlock, locked, err := c.lockFor(ctx, m.ids, refs)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var p *plan
	var pending []string
	undo, ids, err := c.store.begin(func(s *Snapshot) (Patch, error) {
		var err error
		if p, err = m.build(s); err != nil {
			return nil, err
		}
		for _, ref := range references(p.ops) {
			if !slices.Contains(locked, ref) && c.store.inFlightLocked(ref) {
				pending = append(pending, ref)
			}
		}
		if len(pending) > 0 {
			return nil, nil
		}
		return opsPatch(p.ops), nil
	})
	if len(pending) > 0 {
		c.log.DebugContext(ctx, "Mutation waits on unsettled references",
			log.FieldOperation, m.name, "refs", pending)
		return pending, nil
	}
	if err != nil {
		c.log.DebugContext(ctx, "Mutation rejected",
			log.NewFields().WithOperation(m.name).WithError(err).ToSlice()...)
		return nil, err
	}
	if len(p.ops) == 0 {
		return nil, nil
	}

	canonical, err := c.commit(ctx, m.name, p.ops)
	if err != nil {
		c.store.settle(ids, undo)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		c.log.ErrorContext(ctx, "Mutation rolled back",
			log.NewFields().WithOperation(m.name).WithError(err).WithErrorType(log.ErrorTypePersistence).ToSlice()...)
		return nil, err
	}
	reconcile := make(Patch, 0, len(canonical))
	for _, r := range canonical {
		reconcile = append(reconcile, Put(r))
	}
	c.store.settle(ids, reconcile)
	c.succeeded(ctx, m.name, p)
	return nil, nil
}

// references lists the account ids the records written by ops point at.
func references(ops []Op) []string {
	var out []string
	for _, op := range ops {
		switch r := op.Record.(type) {
		case core.Transaction:
			out = append(out, r.AccountID)
		case core.ScheduledTransaction:
			if r.AccountID != "" {
				out = append(out, r.AccountID)
			}
		}
	}
	return out
}

// lockFor locks the ids a mutation touches plus refs. The set depends on
// state that may change while waiting, so it is resolved again under the
// locks and the whole set re-acquired if it grew.
func (c *Coordinator) lockFor(ctx context.Context, resolve func(*Snapshot) []string, refs []string) (func(), []string, error) {
	var ids []string
	c.store.read(func(s *Snapshot) { ids = slices.Concat(resolve(s), refs) })
	for {
		unlock, err := c.locks.Lock(ctx, ids)
		if err != nil {
			return nil, nil, err
		}
		var again []string
		c.store.read(func(s *Snapshot) { again = resolve(s) })
		var missing []string
		for _, id := range again {
			if !slices.Contains(ids, id) {
				missing = append(missing, id)
			}
		}
		if len(missing) == 0 {
			return unlock, ids, nil
		}
		unlock()
		ids = append(ids, missing...)
	}
}

// commit calls persistence bounded by MutationTimeout. Once dispatched the
// call is not cancelled by the caller's context, only by the timeout.
func (c *Coordinator) commit(ctx context.Context, name string, ops []Op) ([]core.Record, error) {
	cctx := context.WithoutCancel(ctx)
	cancel := func() {}
	if c.cfg.MutationTimeout > 0 {
		cctx, cancel = context.WithTimeout(cctx, c.cfg.MutationTimeout)
	}
	defer cancel()

	type result struct {
		records []core.Record
		err     error
	}
	done := make(chan result, 1)
	go func() {
		records, err := c.persist.Commit(cctx, c.cfg.UserID, ops)
		done <- result{records, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, &PersistenceError{Op: name, Timeout: errors.Is(r.err, context.DeadlineExceeded), Err: r.err}
		}
		return r.records, nil
	case <-cctx.Done():
		return nil, &PersistenceError{Op: name, Timeout: true, Err: cctx.Err()}
	}
}

func (c *Coordinator) succeeded(ctx context.Context, name string, p *plan) {
	now := c.cfg.Now()
	group := ""
	if len(p.ops) > 1 {
		group = c.cfg.NewID()
	}
	entries := make([]core.AuditEntry, 0, len(p.ops))
	for _, op := range p.ops {
		entries = append(entries, core.AuditEntry{
			ID:        c.cfg.NewID(),
			Action:    op.Action,
			Entity:    op.Kind,
			EntityID:  op.ID,
			Details:   op.Details,
			GroupID:   group,
			CreatedAt: now,
		})
	}
	c.audit.Append(entries...)

	if len(p.completed) > 0 {
		c.mu.Lock()
		for _, id := range p.completed {
			if !c.celebrated[id] {
				c.celebrated[id] = true
				c.pending = append(c.pending, id)
			}
		}
		c.mu.Unlock()
	}

	c.log.InfoContext(ctx, "Mutation committed",
		log.FieldOperation, name, log.FieldOps, len(p.ops), log.FieldGroupID, group)

	if c.cfg.Audit == nil && c.cfg.Publisher == nil {
		return
	}
	bctx := context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(bctx, backgroundTimeout)
		defer cancel()
		if c.cfg.Audit != nil {
			if err := c.cfg.Audit.AppendAudit(ctx, c.cfg.UserID, entries); err != nil {
				c.log.WarnContext(ctx, "Failed to persist audit entries", log.FieldOperation, name, log.FieldError, err)
			}
		}
		if c.cfg.Publisher != nil {
			if err := c.cfg.Publisher.PublishChanges(ctx, c.cfg.UserID, p.ops); err != nil {
				c.log.WarnContext(ctx, "Failed to publish changes", log.FieldOperation, name, log.FieldError, err)
			}
		}
	}()
}

// defaultAccount picks the configured default account, else the oldest one.
func (c *Coordinator) defaultAccount(s *Snapshot) (string, error) {
	if id := c.cfg.DefaultAccountID; id != "" {
		if _, ok := s.Accounts[id]; ok {
			return id, nil
		}
	}
	accounts := s.AccountList()
	if len(accounts) == 0 {
		return "", invalidf("account_id", "no account available")
	}
	return accounts[0].ID, nil
}

func (c *Coordinator) resolveAccount(s *Snapshot, id string) (string, error) {
	if id == "" {
		return c.defaultAccount(s)
	}
	if _, ok := s.Accounts[id]; !ok {
		return "", notFound("account", id)
	}
	return id, nil
}

func (c *Coordinator) checkCategory(id string) error {
	if !c.cfg.Categories.Has(id) {
		return notFound("category", id)
	}
	return nil
}

// checkTransaction validates shape and references of a transaction.
func (c *Coordinator) checkTransaction(s *Snapshot, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return invalid("transaction", err)
	}
	if err := c.checkCategory(t.CategoryID); err != nil {
		return err
	}
	if _, ok := s.Accounts[t.AccountID]; !ok {
		return notFound("account", t.AccountID)
	}
	return nil
}

func describe(t core.Transaction) string {
	return fmt.Sprintf("%s (%s)", t.Description, t.Amount)
}
