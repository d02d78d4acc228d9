// Package simclock compresses engagement time so a multi-week audit plays
// out in days: with the default ratio of 7, one real day advances the
// simulated calendar by one week.
package simclock

import (
	"errors"
	"time"
)

// Clock maps real elapsed time onto a compressed simulated timeline.
type Clock struct {
	simStart  time.Time
	realStart time.Time
	ratio     float64
	real      func() time.Time
}

// New builds a clock whose simulated timeline begins at simStart. ratio is
// simulated time per real time; 7 means one real day is one simulated
// week. realNow may be nil for the wall clock.
func New(simStart time.Time, ratio float64, realNow func() time.Time) (*Clock, error) {
	if ratio <= 0 {
		return nil, errors.New("compression ratio must be positive")
	}
	if realNow == nil {
		realNow = time.Now
	}
	return &Clock{
		simStart:  simStart,
		realStart: realNow(),
		ratio:     ratio,
		real:      realNow,
	}, nil
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	elapsed := c.real().Sub(c.realStart)
	return c.simStart.Add(time.Duration(float64(elapsed) * c.ratio))
}

// Start returns the simulated start of the engagement.
func (c *Clock) Start() time.Time { return c.simStart }

// Ratio returns the compression factor.
func (c *Clock) Ratio() float64 { return c.ratio }

// Phase is a named stretch of the simulated schedule.
type Phase struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Phases lays consecutive phases of the given simulated durations onto the
// clock's timeline, starting at the simulated start.
func (c *Clock) Phases(names []string, durations []time.Duration) ([]Phase, error) {
	if len(names) != len(durations) {
		return nil, errors.New("phase names and durations must align")
	}
	out := make([]Phase, 0, len(names))
	cursor := c.simStart
	for i, name := range names {
		end := cursor.Add(durations[i])
		out = append(out, Phase{Name: name, Start: cursor, End: end})
		cursor = end
	}
	return out, nil
}

// Current returns the phase covering the simulated now. Before the first
// phase it returns that phase; after the last it returns the last. ok is
// false only for an empty schedule.
func (c *Clock) Current(phases []Phase) (Phase, bool) {
	if len(phases) == 0 {
		return Phase{}, false
	}
	now := c.Now()
	for _, p := range phases {
		if now.Before(p.End) {
			return p, true
		}
	}
	return phases[len(phases)-1], true
}
