// Package memory is an in-process stand-in for the remote ledger store. It
// keeps rows in their JSON wire shape, so records come back canonicalized
// the way a real backend returns them, and it can be told to fail or stall.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"financehub/internal/core"
	"financehub/internal/ledger"
)

type row struct {
	kind core.Kind
	data []byte
}

type Store struct {
	mu    sync.Mutex
	rows  map[string]map[string]row // user -> kind/id -> row
	audit map[string][]core.AuditEntry

	failNext   error
	failAlways error
	latency    time.Duration
	hold       chan struct{}
	commits    int
}

func New() *Store {
	return &Store{
		rows:  make(map[string]map[string]row),
		audit: make(map[string][]core.AuditEntry),
	}
}

func key(kind core.Kind, id string) string { return string(kind) + "/" + id }

// Commit applies every op or none.
func (s *Store) Commit(ctx context.Context, userID string, ops []ledger.Op) ([]core.Record, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(); err != nil {
		return nil, err
	}

	staged := make(map[string]*row, len(ops))
	for _, op := range ops {
		if op.Record == nil {
			staged[key(op.Kind, op.ID)] = nil
			continue
		}
		data, err := core.EncodeRecord(op.Record)
		if err != nil {
			return nil, fmt.Errorf("commit %s %s: %w", op.Kind, op.ID, err)
		}
		staged[key(op.Kind, op.ID)] = &row{kind: op.Kind, data: data}
	}

	rows := s.userRows(userID)
	canonical := make([]core.Record, 0, len(ops))
	for k, r := range staged {
		if r == nil {
			delete(rows, k)
			continue
		}
		rows[k] = *r
		rec, err := core.DecodeRecord(r.kind, r.data)
		if err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		canonical = append(canonical, rec)
	}
	s.commits++
	return canonical, nil
}

func (s *Store) wait(ctx context.Context) error {
	s.mu.Lock()
	hold, latency := s.hold, s.latency
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Store) injected() error {
	if s.failAlways != nil {
		return s.failAlways
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	return nil
}

func (s *Store) userRows(userID string) map[string]row {
	rows, ok := s.rows[userID]
	if !ok {
		rows = make(map[string]row)
		s.rows[userID] = rows
	}
	return rows
}

// Load returns every record the user owns.
func (s *Store) Load(_ context.Context, userID string) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.rows[userID]))
	for k := range s.rows[userID] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]core.Record, 0, len(keys))
	for _, k := range keys {
		r := s.rows[userID][k]
		rec, err := core.DecodeRecord(r.kind, r.data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", k, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) AppendAudit(_ context.Context, userID string, entries []core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit[userID] = append(s.audit[userID], entries...)
	return nil
}

// Audit returns the persisted audit trail of a user.
func (s *Store) Audit(userID string) []core.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.audit[userID])
}

// Seed bulk-inserts records, bypassing failure injection.
func (s *Store) Seed(_ context.Context, userID string, records []core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.userRows(userID)
	for _, r := range records {
		data, err := core.EncodeRecord(r)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		rows[key(r.RecordKind(), r.RecordID())] = row{kind: r.RecordKind(), data: data}
	}
	return nil
}

// Wipe removes every row and audit entry of a user.
func (s *Store) Wipe(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, userID)
	delete(s.audit, userID)
	return nil
}

// FailNext makes the next commit return err.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// FailAlways makes every commit return err until called with nil.
func (s *Store) FailAlways(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAlways = err
}

// SetLatency delays every commit by d.
func (s *Store) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Hold blocks commits until the returned func is called.
func (s *Store) Hold() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.hold == ch {
				s.hold = nil
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Commits counts successful commits.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}
