package ledger

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), fixedNow)
}

func TestReadInitializesFile(t *testing.T) {
	s := newTestStore(t)

	l, err := s.Read("esther")
	if err != nil {
		t.Fatal(err)
	}
	if l.Agent != "Esther" {
		t.Errorf("agent = %q, want Esther", l.Agent)
	}
	if _, err := os.Stat(s.path("esther")); err != nil {
		t.Errorf("expected task file on disk: %v", err)
	}
}

func TestCreateAddsSelfAssignedTask(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create("Chuck", "Review network ACLs", "high", ""); err != nil {
		t.Fatal(err)
	}

	l, err := s.Read("Chuck")
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Current) != 1 {
		t.Fatalf("current tasks = %d, want 1", len(l.Current))
	}
	task := l.Current[0]
	if task.AssignedBy != "Self" || task.Priority != "high" || task.AssignedOn != "2026-08-15" {
		t.Errorf("task = %+v", task)
	}
	if task.Status != "Not Started" {
		t.Errorf("status = %q", task.Status)
	}
}

func TestAssignWritesBothSides(t *testing.T) {
	s := newTestStore(t)

	if err := s.Assign("Esther", "Hillel", "Collect IAM credential report", "", "2026-08-20"); err != nil {
		t.Fatal(err)
	}

	assignee, err := s.Read("Hillel")
	if err != nil {
		t.Fatal(err)
	}
	if len(assignee.Current) != 1 {
		t.Fatalf("assignee current = %d, want 1", len(assignee.Current))
	}
	if got := assignee.Current[0].AssignedBy; got != "Esther" {
		t.Errorf("assigned by = %q, want Esther", got)
	}
	if got := assignee.Current[0].Priority; got != "medium" {
		t.Errorf("default priority = %q, want medium", got)
	}

	assigner, err := s.Read("Esther")
	if err != nil {
		t.Fatal(err)
	}
	if len(assigner.Delegated) != 1 {
		t.Fatalf("assigner delegated = %d, want 1", len(assigner.Delegated))
	}
	if got := assigner.Delegated[0].AssignedTo; got != "Hillel" {
		t.Errorf("assigned to = %q, want Hillel", got)
	}
	if len(assigner.Current) != 0 {
		t.Errorf("assigner current should be empty, got %d", len(assigner.Current))
	}
}

func TestAssignRollsBackAssigneeOnAssignerWriteFailure(t *testing.T) {
	s := newTestStore(t)

	// Materialize both files so the snapshot and the failure path exist.
	if _, err := s.Read("Esther"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read("Hillel"); err != nil {
		t.Fatal(err)
	}

	// Fail the assigner's write after the assignee's already landed.
	injected := errors.New("disk full")
	s.rename = func(oldpath, newpath string) error {
		if newpath == s.path("esther") {
			return injected
		}
		return os.Rename(oldpath, newpath)
	}

	err := s.Assign("Esther", "Hillel", "Collect IAM credential report", "", "")
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected write failure, got %v", err)
	}

	s.rename = os.Rename
	assignee, err := s.Read("Hillel")
	if err != nil {
		t.Fatal(err)
	}
	if len(assignee.Current) != 0 {
		t.Errorf("assignee current = %d after rollback, want 0", len(assignee.Current))
	}
	assigner, err := s.Read("Esther")
	if err != nil {
		t.Fatal(err)
	}
	if len(assigner.Delegated) != 0 {
		t.Errorf("assigner delegated = %d after rollback, want 0", len(assigner.Delegated))
	}
}

func TestAssignToSelfCreatesTask(t *testing.T) {
	s := newTestStore(t)

	if err := s.Assign("Victor", "victor", "Document logging gaps", "low", ""); err != nil {
		t.Fatal(err)
	}

	l, err := s.Read("Victor")
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Current) != 1 || len(l.Delegated) != 0 {
		t.Errorf("self-assignment sections = %d/%d, want 1/0", len(l.Current), len(l.Delegated))
	}
}

func TestAcceptMarksTaskInProgress(t *testing.T) {
	s := newTestStore(t)

	if err := s.Assign("Esther", "Hillel", "Collect MFA status export", "", ""); err != nil {
		t.Fatal(err)
	}

	task, err := s.Accept("Hillel", 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != "In Progress" {
		t.Errorf("status = %q, want In Progress", task.Status)
	}

	// The status change must survive the markdown round-trip.
	l, err := s.Read("Hillel")
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Current) != 1 || l.Current[0].Status != "In Progress" {
		t.Errorf("persisted current = %+v", l.Current)
	}

	if _, err := s.Accept("Hillel", 3); !errors.Is(err, ErrTaskIndex) {
		t.Errorf("out-of-range err = %v", err)
	}
}

func TestComplete(t *testing.T) {
	s := newTestStore(t)

	_ = s.Create("Neil", "First task", "", "")
	_ = s.Create("Neil", "Second task", "", "")

	done, err := s.Complete("Neil", 1)
	if err != nil {
		t.Fatal(err)
	}
	if done.Description != "Second task" {
		t.Errorf("completed %q, want Second task", done.Description)
	}
	if !done.Done || done.CompletedOn != "2026-08-15" {
		t.Errorf("completion stamp = %+v", done)
	}

	l, _ := s.Read("Neil")
	if len(l.Current) != 1 || len(l.Completed) != 1 {
		t.Errorf("sections = %d/%d, want 1/1", len(l.Current), len(l.Completed))
	}
	if l.Current[0].Description != "First task" {
		t.Errorf("remaining task = %q", l.Current[0].Description)
	}
}

func TestCompleteOutOfRange(t *testing.T) {
	s := newTestStore(t)
	_ = s.Create("Juman", "Only task", "", "")

	_, err := s.Complete("Juman", 5)
	if !errors.Is(err, ErrTaskIndex) {
		t.Fatalf("expected ErrTaskIndex, got %v", err)
	}
}

func TestAll(t *testing.T) {
	s := newTestStore(t)
	_ = s.Create("Esther", "A", "", "")
	_ = s.Create("Chuck", "B", "", "")

	all, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("agents = %d, want 2", len(all))
	}
	if _, ok := all["Esther"]; !ok {
		t.Error("missing Esther")
	}
	if _, ok := all["Chuck"]; !ok {
		t.Error("missing Chuck")
	}
}

func TestConcurrentAssignsStayConsistent(t *testing.T) {
	s := newTestStore(t)

	// Two parties delegating to each other concurrently must not deadlock
	// and every entry must land.
	const n = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := s.Assign("Esther", "Hillel", "from esther", "", ""); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := s.Assign("Hillel", "Esther", "from hillel", "", ""); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Wait()

	esther, _ := s.Read("Esther")
	hillel, _ := s.Read("Hillel")

	if len(esther.Current) != n || len(esther.Delegated) != n {
		t.Errorf("esther sections = %d/%d, want %d/%d",
			len(esther.Current), len(esther.Delegated), n, n)
	}
	if len(hillel.Current) != n || len(hillel.Delegated) != n {
		t.Errorf("hillel sections = %d/%d, want %d/%d",
			len(hillel.Current), len(hillel.Delegated), n, n)
	}
}
