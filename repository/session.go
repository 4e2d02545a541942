/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"sync"

	"github.com/uptrace/bun"
)

// ChangeKind identifies what a staged change does when flushed.
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota
	ChangeUpdate
	ChangeDelete
	ChangeStep
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	default:
		return "step"
	}
}

// StepFunc is an arbitrary staged step run inside the commit transaction,
// after every change staged before it.
type StepFunc func(ctx context.Context, db bun.IDB) error

type change interface {
	Kind() ChangeKind
	apply(ctx context.Context, db bun.IDB) error
	contains(entity any) bool
	// remove drops entity from the change and reports whether the change is
	// now empty.
	remove(entity any) bool
}

// Session is a per-request unit of work. Repositories bound to the same
// session stage their writes into one ordered list that Commit flushes in a
// single transaction. Reads never see staged changes.
type Session struct {
	db       *bun.DB
	mu       sync.Mutex
	commitMu sync.Mutex
	changes  []change
}

// NewSession returns an empty session over db.
func NewSession(db *bun.DB) *Session {
	return &Session{db: db}
}

// DB returns the durable store used for reads and commits.
func (s *Session) DB() *bun.DB { return s.db }

// Stage queues fn to run in order with the other staged changes.
func (s *Session) Stage(fn StepFunc) {
	if fn == nil {
		return
	}
	s.stage(&stepChange{fn: fn})
}

func (s *Session) stage(c change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, c)
}

// Pending returns the number of staged changes.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changes)
}

// Kinds returns the kind of each staged change in flush order.
func (s *Session) Kinds() []ChangeKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]ChangeKind, len(s.changes))
	for i, c := range s.changes {
		kinds[i] = c.Kind()
	}
	return kinds
}

// Tracked reports whether entity takes part in any staged change.
func (s *Session) Tracked(entity any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.changes {
		if c.contains(entity) {
			return true
		}
	}
	return false
}

func (s *Session) detach(entity any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.changes[:0]
	for _, c := range s.changes {
		if c.contains(entity) && c.remove(entity) {
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(s.changes); i++ {
		s.changes[i] = nil
	}
	s.changes = kept
}

// Discard drops every staged change without touching the store.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = nil
}

// Commit flushes the staged changes in one transaction. On failure the
// transaction is rolled back, the staged changes are kept, and the error
// from the store is returned as is.
func (s *Session) Commit(ctx context.Context) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	batch := make([]change, len(s.changes))
	copy(batch, s.changes)
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, c := range batch {
			if err := c.apply(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.changes = dropFlushed(s.changes, batch)
	s.mu.Unlock()
	return nil
}

func dropFlushed(current, flushed []change) []change {
	done := make(map[change]struct{}, len(flushed))
	for _, c := range flushed {
		done[c] = struct{}{}
	}
	rest := make([]change, 0, len(current))
	for _, c := range current {
		if _, ok := done[c]; !ok {
			rest = append(rest, c)
		}
	}
	return rest
}

type entityChange[T any] struct {
	kind     ChangeKind
	entities []*T
}

func (c *entityChange[T]) Kind() ChangeKind { return c.kind }

func (c *entityChange[T]) apply(ctx context.Context, db bun.IDB) error {
	if len(c.entities) == 0 {
		return nil
	}
	switch c.kind {
	case ChangeInsert:
		_, err := db.NewInsert().Model(&c.entities).Exec(ctx)
		return err
	case ChangeUpdate:
		for _, entity := range c.entities {
			if _, err := db.NewUpdate().Model(entity).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	case ChangeDelete:
		_, err := db.NewDelete().Model(&c.entities).WherePK().Exec(ctx)
		return err
	default:
		return nil
	}
}

func (c *entityChange[T]) contains(entity any) bool {
	e, ok := entity.(*T)
	if !ok {
		return false
	}
	for _, staged := range c.entities {
		if staged == e {
			return true
		}
	}
	return false
}

func (c *entityChange[T]) remove(entity any) bool {
	e, _ := entity.(*T)
	kept := c.entities[:0]
	for _, staged := range c.entities {
		if staged != e {
			kept = append(kept, staged)
		}
	}
	c.entities = kept
	return len(c.entities) == 0
}

type stepChange struct {
	fn StepFunc
}

func (c *stepChange) Kind() ChangeKind { return ChangeStep }

func (c *stepChange) apply(ctx context.Context, db bun.IDB) error { return c.fn(ctx, db) }

func (c *stepChange) contains(any) bool { return false }

func (c *stepChange) remove(any) bool { return false }
