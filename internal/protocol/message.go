package protocol

import (
	"errors"
	"fmt"
)

// Message type tags: two ASCII characters at the start of every payload.
const (
	TagGameClock = "18" // game time and time-outs
	TagScore     = "30" // home/guest score
	TagFouls     = "34" // team fouls and player fault line
	TagShotClock = "50" // possession (shot) clock
)

// ErrMessageTooShort reports a recognized tag whose payload is shorter than
// the fixed layout requires. The caller logs it and applies no event.
var ErrMessageTooShort = errors.New("message too short for type")

// Event is one decoded scoreboard message. Exactly one concrete type is
// produced per payload; events are applied to the store and discarded.
type Event interface {
	isEvent()
}

// ClockStatus is the status word carried by game-clock messages.
type ClockStatus struct {
	ClockType          bool // bit 0
	GameClockOff       bool // bit 1
	HornOn             bool // bit 2
	PossessionInTenths bool // bit 4
	NewMatch           bool // bit 6
	B7                 bool // bit 7
}

func clockStatusFromByte(b byte) ClockStatus {
	return ClockStatus{
		ClockType:          b&(1<<0) != 0,
		GameClockOff:       b&(1<<1) != 0,
		HornOn:             b&(1<<2) != 0,
		PossessionInTenths: b&(1<<4) != 0,
		NewMatch:           b&(1<<6) != 0,
		B7:                 b&(1<<7) != 0,
	}
}

// ShotClockStatus is the status word carried by shot-clock messages.
type ShotClockStatus struct {
	PossessionTimerActive bool // bit 1
	PossessionHorn        bool // bit 2
	ShotClockStatus       bool // bit 3
	PossessionTimerTenths bool // bit 4
	B7                    bool // bit 7
}

func shotClockStatusFromByte(b byte) ShotClockStatus {
	return ShotClockStatus{
		PossessionTimerActive: b&(1<<1) != 0,
		PossessionHorn:        b&(1<<2) != 0,
		ShotClockStatus:       b&(1<<3) != 0,
		PossessionTimerTenths: b&(1<<4) != 0,
		B7:                    b&(1<<7) != 0,
	}
}

// GameClock carries the game time, time-outs and period. Digit fields hold
// the raw ASCII bytes as transmitted so consumers can re-render either
// display mode.
type GameClock struct {
	Status        ClockStatus
	SportID       byte
	MinutesTens   byte
	MinutesOnes   byte
	SecondsTens   byte
	SecondsOnes   byte
	HomeTimeouts  byte
	GuestTimeouts byte
	Period        byte
}

// Score carries both scores already combined from their ASCII digits.
type Score struct {
	SportID byte
	Home    int
	Guest   int
}

// Fouls carries team foul counts and the player fault display line.
type Fouls struct {
	SportID          byte
	HomeFouls        byte
	GuestFouls       byte
	PlayerOnLine1    byte
	PlayerOnLine2    byte
	PlayerFaultCount byte
	PlayerTeam       byte
}

// ShotClock carries the possession clock digits.
type ShotClock struct {
	Status      ShotClockStatus
	SecondsTens byte
	SecondsOnes byte
}

// Unknown is produced for payloads whose tag is not in the decode table.
type Unknown struct {
	TagBytes [2]byte
}

func (GameClock) isEvent() {}
func (Score) isEvent()     {}
func (Fouls) isEvent()     {}
func (ShotClock) isEvent() {}
func (Unknown) isEvent()   {}

// DisplayTime renders the game clock per the tenths rule: below-a-minute
// mode shows minutes digits, a dot and the last seconds digit; otherwise
// the full MM:SS display.
func (g GameClock) DisplayTime() string {
	if g.Status.PossessionInTenths {
		return fmt.Sprintf("%c%c.%c", g.MinutesTens, g.MinutesOnes, g.SecondsOnes)
	}
	return fmt.Sprintf("%c%c:%c%c", g.MinutesTens, g.MinutesOnes, g.SecondsTens, g.SecondsOnes)
}

// DisplayTime renders the shot clock, with a tenths dot when the timer is
// counting in tenths ("1.4" vs "14").
func (s ShotClock) DisplayTime() string {
	if s.Status.PossessionTimerTenths {
		return fmt.Sprintf("%c.%c", s.SecondsTens, s.SecondsOnes)
	}
	return fmt.Sprintf("%c%c", s.SecondsTens, s.SecondsOnes)
}

// digit converts one ASCII digit byte to its numeric value. Non-digit bytes
// (blanked display positions are sent as spaces) count as zero.
func digit(b byte) int {
	if b < '0' || b > '9' {
		return 0
	}
	return int(b - '0')
}

// minimum payload lengths per tag, including the two tag bytes.
var minLen = map[string]int{
	TagGameClock: 14,
	TagScore:     9,
	TagFouls:     11,
	TagShotClock: 5,
}

// DecodeMessage interprets a validated frame payload by its two-byte type
// tag. Unrecognized tags yield Unknown; recognized tags with short payloads
// yield ErrMessageTooShort and no event.
func DecodeMessage(payload []byte) (Event, error) {
	if len(payload) < 2 {
		return nil, ErrMessageTooShort
	}
	tag := string(payload[:2])

	if min, ok := minLen[tag]; ok && len(payload) < min {
		return nil, fmt.Errorf("%w: tag %q has %d bytes, need %d", ErrMessageTooShort, tag, len(payload), min)
	}

	switch tag {
	case TagGameClock:
		return GameClock{
			Status:        clockStatusFromByte(payload[2]),
			SportID:       payload[3],
			MinutesTens:   payload[4],
			MinutesOnes:   payload[5],
			SecondsTens:   payload[6],
			SecondsOnes:   payload[7],
			HomeTimeouts:  payload[8],
			GuestTimeouts: payload[9],
			// payload[10], payload[11] reserved, ignored by this decoder
			Period: payload[12],
			// payload[13] reserved, ignored by this decoder
		}, nil

	case TagScore:
		return Score{
			SportID: payload[2],
			Home:    digit(payload[3])*100 + digit(payload[4])*10 + digit(payload[5]),
			Guest:   digit(payload[6])*100 + digit(payload[7])*10 + digit(payload[8]),
		}, nil

	case TagFouls:
		return Fouls{
			SportID: payload[2],
			// payload[3] reserved, ignored by this decoder
			HomeFouls: payload[4],
			// payload[5] reserved, ignored by this decoder
			GuestFouls:       payload[6],
			PlayerOnLine1:    payload[7],
			PlayerOnLine2:    payload[8],
			PlayerFaultCount: payload[9],
			PlayerTeam:       payload[10],
		}, nil

	case TagShotClock:
		return ShotClock{
			Status:      shotClockStatusFromByte(payload[2]),
			SecondsTens: payload[3],
			SecondsOnes: payload[4],
		}, nil
	}

	return Unknown{TagBytes: [2]byte{payload[0], payload[1]}}, nil
}
