package simclock

import (
	"testing"
	"time"
)

type fakeReal struct{ now time.Time }

func (f *fakeReal) advance(d time.Duration) { f.now = f.now.Add(d) }

func TestOneRealDayIsOneSimulatedWeek(t *testing.T) {
	real := &fakeReal{now: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	simStart := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	c, err := New(simStart, 7, func() time.Time { return real.now })
	if err != nil {
		t.Fatal(err)
	}

	if !c.Now().Equal(simStart) {
		t.Errorf("now = %v at start", c.Now())
	}

	real.advance(24 * time.Hour)
	want := simStart.Add(7 * 24 * time.Hour)
	if !c.Now().Equal(want) {
		t.Errorf("after one real day, sim now = %v, want %v", c.Now(), want)
	}

	real.advance(12 * time.Hour)
	want = simStart.Add(7*24*time.Hour + 7*12*time.Hour)
	if !c.Now().Equal(want) {
		t.Errorf("after 1.5 real days, sim now = %v, want %v", c.Now(), want)
	}
}

func TestNewRejectsNonPositiveRatio(t *testing.T) {
	if _, err := New(time.Now(), 0, nil); err == nil {
		t.Error("ratio 0 should error")
	}
	if _, err := New(time.Now(), -1, nil); err == nil {
		t.Error("negative ratio should error")
	}
}

func TestPhasesAndCurrent(t *testing.T) {
	real := &fakeReal{now: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	simStart := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	c, err := New(simStart, 7, func() time.Time { return real.now })
	if err != nil {
		t.Fatal(err)
	}

	week := 7 * 24 * time.Hour
	phases, err := c.Phases(
		[]string{"Planning", "Fieldwork", "Reporting"},
		[]time.Duration{week, 3 * week, week},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(phases) != 3 {
		t.Fatalf("phases = %d", len(phases))
	}
	if !phases[1].Start.Equal(simStart.Add(week)) || !phases[1].End.Equal(simStart.Add(4*week)) {
		t.Errorf("fieldwork = %+v", phases[1])
	}

	if p, ok := c.Current(phases); !ok || p.Name != "Planning" {
		t.Errorf("current at start = %+v", p)
	}

	// Two real days in, the simulated calendar is two weeks in: fieldwork.
	real.advance(48 * time.Hour)
	if p, ok := c.Current(phases); !ok || p.Name != "Fieldwork" {
		t.Errorf("current after two real days = %+v", p)
	}

	// Far past the end, the last phase sticks.
	real.advance(30 * 24 * time.Hour)
	if p, ok := c.Current(phases); !ok || p.Name != "Reporting" {
		t.Errorf("current past end = %+v", p)
	}
}

func TestPhasesLengthMismatch(t *testing.T) {
	c, err := New(time.Now(), 7, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Phases([]string{"a"}, nil); err == nil {
		t.Error("expected mismatch error")
	}
}
