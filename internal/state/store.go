// Package state holds the live game snapshot shared between the ingest and
// query servers. All access goes through one mutex; critical sections are
// field copies only and the lock is never held across I/O.
package state

import (
	"sync"

	"github.com/arena-labs/scorebridge/internal/protocol"
)

// Possession indicates which side the possession arrow points to.
type Possession int

const (
	PossessionNone Possession = iota
	PossessionHome
	PossessionGuest
)

// String returns a human-readable representation of the possession arrow.
func (p Possession) String() string {
	switch p {
	case PossessionHome:
		return "Home"
	case PossessionGuest:
		return "Guest"
	default:
		return "None"
	}
}

// Phase labels the coarse game state exposed to the overlay.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseRunning
	PhaseStopped
	PhaseFinished
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "Running"
	case PhaseStopped:
		return "Stopped"
	case PhaseFinished:
		return "Finished"
	default:
		return "NotStarted"
	}
}

const regulationPeriods = 4

// Store is the single shared mutable aggregate. It lives for the whole
// process, starts empty, and is updated by every successfully decoded event.
type Store struct {
	mu sync.Mutex

	hasData bool

	homeScore  int
	guestScore int
	period     int

	// Raw clock digit bytes as transmitted, plus the display-mode flags.
	minutesTens byte
	minutesOnes byte
	secondsTens byte
	secondsOnes byte
	tenthsMode  bool
	clockOff    bool
	hornOn      bool

	shotSecondsTens byte
	shotSecondsOnes byte
	shotTenthsMode  bool

	homeFouls     int
	guestFouls    int
	homeTimeouts  int
	guestTimeouts int

	possession Possession

	subs []func(Snapshot)
}

// NewStore returns an empty store with no game data applied.
func NewStore() *Store {
	return &Store{
		minutesTens: '0', minutesOnes: '0',
		secondsTens: '0', secondsOnes: '0',
		shotSecondsTens: '0', shotSecondsOnes: '0',
	}
}

// Subscribe registers a callback invoked with a fresh snapshot after every
// applied event. Callbacks run outside the store lock. Subscribe is intended
// for wiring at startup, before events flow.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Apply routes one decoded event to the matching update operation.
// Unknown events leave the store untouched and return false.
func (s *Store) Apply(ev protocol.Event) bool {
	switch e := ev.(type) {
	case protocol.GameClock:
		s.ApplyGameClock(e)
	case protocol.Score:
		s.ApplyScore(e)
	case protocol.Fouls:
		s.ApplyFouls(e)
	case protocol.ShotClock:
		s.ApplyShotClock(e)
	default:
		return false
	}
	return true
}

// ApplyGameClock updates the clock display, time-outs and period. A set
// new-match status bit resets the aggregate before the update lands.
func (s *Store) ApplyGameClock(e protocol.GameClock) {
	s.mu.Lock()
	if e.Status.NewMatch {
		s.resetLocked()
	}
	s.hasData = true
	s.minutesTens = e.MinutesTens
	s.minutesOnes = e.MinutesOnes
	s.secondsTens = e.SecondsTens
	s.secondsOnes = e.SecondsOnes
	s.tenthsMode = e.Status.PossessionInTenths
	s.clockOff = e.Status.GameClockOff
	s.hornOn = e.Status.HornOn
	s.homeTimeouts = digit(e.HomeTimeouts)
	s.guestTimeouts = digit(e.GuestTimeouts)
	s.period = digit(e.Period)
	snap := s.snapshotLocked()
	subs := s.subs
	s.mu.Unlock()
	notify(subs, snap)
}

// ApplyScore updates both scores.
func (s *Store) ApplyScore(e protocol.Score) {
	s.mu.Lock()
	s.hasData = true
	s.homeScore = e.Home
	s.guestScore = e.Guest
	snap := s.snapshotLocked()
	subs := s.subs
	s.mu.Unlock()
	notify(subs, snap)
}

// ApplyFouls updates the team foul counts.
func (s *Store) ApplyFouls(e protocol.Fouls) {
	s.mu.Lock()
	s.hasData = true
	s.homeFouls = digit(e.HomeFouls)
	s.guestFouls = digit(e.GuestFouls)
	snap := s.snapshotLocked()
	subs := s.subs
	s.mu.Unlock()
	notify(subs, snap)
}

// ApplyShotClock updates the possession clock display.
func (s *Store) ApplyShotClock(e protocol.ShotClock) {
	s.mu.Lock()
	s.hasData = true
	s.shotSecondsTens = e.SecondsTens
	s.shotSecondsOnes = e.SecondsOnes
	s.shotTenthsMode = e.Status.PossessionTimerTenths
	snap := s.snapshotLocked()
	subs := s.subs
	s.mu.Unlock()
	notify(subs, snap)
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

// resetLocked restores the empty-game baseline. Caller holds the lock.
func (s *Store) resetLocked() {
	s.homeScore, s.guestScore = 0, 0
	s.period = 0
	s.minutesTens, s.minutesOnes = '0', '0'
	s.secondsTens, s.secondsOnes = '0', '0'
	s.tenthsMode, s.clockOff, s.hornOn = false, false, false
	s.shotSecondsTens, s.shotSecondsOnes = '0', '0'
	s.shotTenthsMode = false
	s.homeFouls, s.guestFouls = 0, 0
	s.homeTimeouts, s.guestTimeouts = 0, 0
	s.possession = PossessionNone
}

func digit(b byte) int {
	if b < '0' || b > '9' {
		return 0
	}
	return int(b - '0')
}
