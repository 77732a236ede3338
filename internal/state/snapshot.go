package state

import "fmt"

// Snapshot is one consistent copy of the aggregate, taken under the store
// lock. Its JSON shape is the /api/state response body.
type Snapshot struct {
	HomeScore    int    `json:"home_score"`
	AwayScore    int    `json:"away_score"`
	Period       int    `json:"period"`
	PeriodName   string `json:"period_name"`
	Time         string `json:"time"`
	HomeFouls    int    `json:"home_fouls"`
	AwayFouls    int    `json:"away_fouls"`
	HomeTimeouts int    `json:"home_timeouts"`
	AwayTimeouts int    `json:"away_timeouts"`
	Possession   string `json:"possession"`
	GameState    string `json:"game_state"`
	IsOvertime   bool   `json:"is_overtime"`
	IsFinished   bool   `json:"is_finished"`

	// HasData reports whether any event has been applied yet. The query
	// server answers with an error object until it flips true.
	HasData bool `json:"-"`
}

// Snapshot returns a consistent copy of the current game state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		HomeScore:    s.homeScore,
		AwayScore:    s.guestScore,
		Period:       s.period,
		PeriodName:   s.periodNameLocked(),
		Time:         s.formatTimeLocked(),
		HomeFouls:    s.homeFouls,
		AwayFouls:    s.guestFouls,
		HomeTimeouts: s.homeTimeouts,
		AwayTimeouts: s.guestTimeouts,
		Possession:   s.possession.String(),
		GameState:    s.phaseLocked().String(),
		IsOvertime:   s.period > regulationPeriods,
		IsFinished:   s.finishedLocked(),
		HasData:      s.hasData,
	}
}

// periodNameLocked renders Q1..Q4 for regulation and OT, OT2, ... beyond.
func (s *Store) periodNameLocked() string {
	switch {
	case s.period <= 0:
		return "-"
	case s.period <= regulationPeriods:
		return fmt.Sprintf("Q%d", s.period)
	case s.period == regulationPeriods+1:
		return "OT"
	default:
		return fmt.Sprintf("OT%d", s.period-regulationPeriods)
	}
}

// formatTimeLocked applies the display rule: tenths mode shows the minutes
// digits, a dot and the trailing seconds digit; otherwise full MM:SS.
func (s *Store) formatTimeLocked() string {
	if s.tenthsMode {
		return fmt.Sprintf("%c%c.%c", s.minutesTens, s.minutesOnes, s.secondsOnes)
	}
	return fmt.Sprintf("%c%c:%c%c", s.minutesTens, s.minutesOnes, s.secondsTens, s.secondsOnes)
}

func (s *Store) clockAtZeroLocked() bool {
	zero := func(b byte) bool { return b == '0' || b == ' ' }
	return zero(s.minutesTens) && zero(s.minutesOnes) && zero(s.secondsTens) && zero(s.secondsOnes)
}

func (s *Store) finishedLocked() bool {
	return s.period >= regulationPeriods && s.clockOff && s.clockAtZeroLocked()
}

func (s *Store) phaseLocked() Phase {
	switch {
	case !s.hasData:
		return PhaseNotStarted
	case s.finishedLocked():
		return PhaseFinished
	case s.clockOff:
		return PhaseStopped
	default:
		return PhaseRunning
	}
}
