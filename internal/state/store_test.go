package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arena-labs/scorebridge/internal/protocol"
)

func TestEmptyStoreSnapshot(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()

	assert.False(t, snap.HasData)
	assert.Equal(t, "NotStarted", snap.GameState)
	assert.Equal(t, "-", snap.PeriodName)
	assert.Equal(t, "00:00", snap.Time)
	assert.Equal(t, "None", snap.Possession)
}

func TestApplyScore(t *testing.T) {
	s := NewStore()
	s.ApplyScore(protocol.Score{Home: 120, Guest: 95})

	snap := s.Snapshot()
	require.True(t, snap.HasData)
	assert.Equal(t, 120, snap.HomeScore)
	assert.Equal(t, 95, snap.AwayScore)
}

func TestApplyGameClock(t *testing.T) {
	s := NewStore()
	s.ApplyGameClock(protocol.GameClock{
		MinutesTens: '0', MinutesOnes: '9',
		SecondsTens: '4', SecondsOnes: '5',
		HomeTimeouts: '3', GuestTimeouts: '2',
		Period: '2',
	})

	snap := s.Snapshot()
	assert.Equal(t, "09:45", snap.Time)
	assert.Equal(t, 2, snap.Period)
	assert.Equal(t, "Q2", snap.PeriodName)
	assert.Equal(t, 3, snap.HomeTimeouts)
	assert.Equal(t, 2, snap.AwayTimeouts)
	assert.Equal(t, "Running", snap.GameState)
	assert.False(t, snap.IsOvertime)
	assert.False(t, snap.IsFinished)
}

func TestTenthsModeFormatting(t *testing.T) {
	s := NewStore()
	ev := protocol.GameClock{
		MinutesTens: '0', MinutesOnes: '0',
		SecondsTens: '5', SecondsOnes: '3',
		Period: '4',
	}
	ev.Status.PossessionInTenths = true
	s.ApplyGameClock(ev)

	assert.Equal(t, "00.3", s.Snapshot().Time)
}

func TestApplyFouls(t *testing.T) {
	s := NewStore()
	s.ApplyFouls(protocol.Fouls{HomeFouls: '6', GuestFouls: '4'})

	snap := s.Snapshot()
	assert.Equal(t, 6, snap.HomeFouls)
	assert.Equal(t, 4, snap.AwayFouls)
}

func TestOvertimeAndFinished(t *testing.T) {
	s := NewStore()
	ev := protocol.GameClock{
		MinutesTens: '0', MinutesOnes: '0',
		SecondsTens: '0', SecondsOnes: '0',
		Period: '5',
	}
	ev.Status.GameClockOff = true
	s.ApplyGameClock(ev)

	snap := s.Snapshot()
	assert.True(t, snap.IsOvertime)
	assert.Equal(t, "OT", snap.PeriodName)
	assert.True(t, snap.IsFinished)
	assert.Equal(t, "Finished", snap.GameState)
}

func TestClockOffIsStopped(t *testing.T) {
	s := NewStore()
	ev := protocol.GameClock{
		MinutesTens: '0', MinutesOnes: '2',
		SecondsTens: '1', SecondsOnes: '0',
		Period: '3',
	}
	ev.Status.GameClockOff = true
	s.ApplyGameClock(ev)

	snap := s.Snapshot()
	assert.Equal(t, "Stopped", snap.GameState)
	assert.False(t, snap.IsFinished)
}

func TestNewMatchResets(t *testing.T) {
	s := NewStore()
	s.ApplyScore(protocol.Score{Home: 55, Guest: 60})
	s.ApplyFouls(protocol.Fouls{HomeFouls: '4', GuestFouls: '3'})

	ev := protocol.GameClock{
		MinutesTens: '1', MinutesOnes: '0',
		SecondsTens: '0', SecondsOnes: '0',
		Period: '1',
	}
	ev.Status.NewMatch = true
	s.ApplyGameClock(ev)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.HomeScore)
	assert.Equal(t, 0, snap.AwayScore)
	assert.Equal(t, 0, snap.HomeFouls)
	assert.Equal(t, "10:00", snap.Time)
	assert.Equal(t, 1, snap.Period)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	s := NewStore()
	var got []Snapshot
	s.Subscribe(func(snap Snapshot) { got = append(got, snap) })

	s.ApplyScore(protocol.Score{Home: 2, Guest: 0})
	s.ApplyShotClock(protocol.ShotClock{SecondsTens: '1', SecondsOnes: '4'})

	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].HomeScore)
	assert.True(t, got[1].HasData)
}

// Concurrent score writers and snapshot readers must never observe a torn
// record: every snapshot reflects exactly one writer's home/guest pair.
func TestConcurrentApplyAndSnapshot(t *testing.T) {
	s := NewStore()

	const writers = 8
	const iterations = 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				// Guest is always home+1 so a torn read is detectable.
				home := w*iterations + i
				s.ApplyScore(protocol.Score{Home: home, Guest: home + 1})
			}
		}(w)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	for {
		select {
		case <-done:
			snap := s.Snapshot()
			require.Equal(t, snap.HomeScore+1, snap.AwayScore)
			return
		default:
			snap := s.Snapshot()
			if snap.HasData {
				require.Equal(t, snap.HomeScore+1, snap.AwayScore,
					"torn snapshot: home=%d away=%d", snap.HomeScore, snap.AwayScore)
			}
		}
	}
}
