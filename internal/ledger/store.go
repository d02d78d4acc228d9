package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrTaskIndex is returned when completing an index with no open task.
var ErrTaskIndex = errors.New("task index out of range")

// Store owns the task files for a team. All access to one agent's file goes
// through that agent's lock; Assign takes both parties' locks in a fixed
// order so concurrent delegations cannot deadlock or interleave.
type Store struct {
	dir    string
	now    func() time.Time
	rename func(oldpath, newpath string) error // for failure injection in tests

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at dir, stamping dates with now (pass the
// simulated clock in engagements).
func NewStore(dir string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		dir:    dir,
		now:    now,
		rename: os.Rename,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-agent mutex, creating it on first use.
func (s *Store) lockFor(agent string) *sync.Mutex {
	key := strings.ToLower(agent)
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

// Read returns the agent's list, initializing an empty file on first access.
func (s *Store) Read(agent string) (*List, error) {
	lock := s.lockFor(agent)
	lock.Lock()
	defer lock.Unlock()
	return s.read(agent)
}

// Create adds a self-assigned task to the agent's Current section.
func (s *Store) Create(agent, description, priority, due string) error {
	lock := s.lockFor(agent)
	lock.Lock()
	defer lock.Unlock()

	l, err := s.read(agent)
	if err != nil {
		return err
	}
	l.Current = append(l.Current, s.newTask(description, "Self", priority, due))
	return s.write(agent, l)
}

// Assign writes the task to the assignee's Current section and mirrors a
// delegation entry into the assigner's Delegated section. Both files change
// or neither does.
func (s *Store) Assign(from, to, description, priority, due string) error {
	if strings.EqualFold(from, to) {
		return s.Create(from, description, priority, due)
	}

	first, second := from, to
	if strings.ToLower(second) < strings.ToLower(first) {
		first, second = second, first
	}
	l1, l2 := s.lockFor(first), s.lockFor(second)
	l1.Lock()
	defer l1.Unlock()
	l2.Lock()
	defer l2.Unlock()

	assignee, err := s.read(to)
	if err != nil {
		return err
	}
	assigner, err := s.read(from)
	if err != nil {
		return err
	}

	assignee.Current = append(assignee.Current, s.newTask(description, from, priority, due))

	delegated := s.newTask(description, "", priority, due)
	delegated.AssignedTo = to
	assigner.Delegated = append(assigner.Delegated, delegated)

	prev, err := os.ReadFile(s.path(to)) //nolint:gosec // G304: path derived from agent name
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", s.path(to), err)
	}

	if err := s.write(to, assignee); err != nil {
		return err
	}
	if err := s.write(from, assigner); err != nil {
		// Roll the assignee's file back so the two sides stay consistent.
		if rbErr := os.WriteFile(s.path(to), prev, 0o600); rbErr != nil {
			return fmt.Errorf("assign %s->%s: %w (rollback failed: %v)", from, to, err, rbErr)
		}
		return fmt.Errorf("assign %s->%s: %w", from, to, err)
	}
	return nil
}

// Accept marks the index-th open Current task as in progress, the staff
// side of a delegation. The index counts open tasks only, starting at 0.
func (s *Store) Accept(agent string, index int) (Task, error) {
	lock := s.lockFor(agent)
	lock.Lock()
	defer lock.Unlock()

	l, err := s.read(agent)
	if err != nil {
		return Task{}, err
	}

	open := -1
	for i, t := range l.Current {
		if t.Done {
			continue
		}
		open++
		if open != index {
			continue
		}

		l.Current[i].Status = "In Progress"
		if err := s.write(agent, l); err != nil {
			return Task{}, err
		}
		return l.Current[i], nil
	}

	return Task{}, fmt.Errorf("%w: %d for %s", ErrTaskIndex, index, agent)
}

// Complete marks the index-th open Current task done, stamps it and moves it
// to the Completed section. The index counts open tasks only, starting at 0.
func (s *Store) Complete(agent string, index int) (Task, error) {
	lock := s.lockFor(agent)
	lock.Lock()
	defer lock.Unlock()

	l, err := s.read(agent)
	if err != nil {
		return Task{}, err
	}

	open := -1
	for i, t := range l.Current {
		if t.Done {
			continue
		}
		open++
		if open != index {
			continue
		}

		t.Done = true
		t.CompletedOn = s.now().Format("2006-01-02")
		l.Current = append(l.Current[:i], l.Current[i+1:]...)
		l.Completed = append(l.Completed, t)

		if err := s.write(agent, l); err != nil {
			return Task{}, err
		}
		return t, nil
	}

	return Task{}, fmt.Errorf("%w: %d for %s", ErrTaskIndex, index, agent)
}

// All parses every task file in the store, keyed by agent name.
func (s *Store) All() (map[string]*List, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*-tasks.md"))
	if err != nil {
		return nil, fmt.Errorf("glob task files: %w", err)
	}
	sort.Strings(matches)

	out := make(map[string]*List, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path) //nolint:gosec // G304: path from our own glob
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		l, err := Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if l.Agent == "" {
			l.Agent = agentFromPath(path)
		}
		out[l.Agent] = l
	}
	return out, nil
}

func (s *Store) newTask(description, assignedBy, priority, due string) Task {
	if priority == "" {
		priority = "medium"
	}
	return Task{
		Description: description,
		AssignedBy:  assignedBy,
		AssignedOn:  s.now().Format("2006-01-02"),
		Priority:    priority,
		Status:      "Not Started",
		Due:         due,
	}
}

// read loads and parses the agent's file, initializing it when missing.
// Caller holds the agent's lock.
func (s *Store) read(agent string) (*List, error) {
	path := s.path(agent)
	data, err := os.ReadFile(path) //nolint:gosec // G304: path derived from agent name
	if errors.Is(err, os.ErrNotExist) {
		l := NewList(title(agent))
		if err := s.write(agent, l); err != nil {
			return nil, err
		}
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	l, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if l.Agent == "" {
		l.Agent = title(agent)
	}
	return l, nil
}

// write renders the list and replaces the file via temp-and-rename so a
// crash never leaves a half-written ledger. Caller holds the agent's lock.
func (s *Store) write(agent string, l *List) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create tasks dir: %w", err)
	}

	path := s.path(agent)
	tmp, err := os.CreateTemp(s.dir, ".tasks-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	if _, err := tmp.WriteString(l.Render()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := s.rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func (s *Store) path(agent string) string {
	return filepath.Join(s.dir, strings.ToLower(agent)+"-tasks.md")
}

func agentFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), "-tasks.md")
	return title(base)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
