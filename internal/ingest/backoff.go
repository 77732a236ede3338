package ingest

import (
	"math/rand"
	"time"
)

// Transient accept failures (fd exhaustion, interface flaps) are retried
// with exponential backoff so a wedged listener does not spin the log.
const (
	acceptRetryBase = 100 * time.Millisecond
	acceptRetryMax  = 5 * time.Second
)

// acceptBackoff paces accept retries. Reset after every successful accept
// so an isolated failure pays only the base delay.
type acceptBackoff struct {
	cur time.Duration
}

func newAcceptBackoff() *acceptBackoff { return &acceptBackoff{} }

// next advances the schedule and returns the jittered delay to wait.
func (b *acceptBackoff) next() time.Duration {
	if b.cur <= 0 {
		b.cur = acceptRetryBase
	} else {
		b.cur *= 2
		if b.cur > acceptRetryMax {
			b.cur = acceptRetryMax
		}
	}
	// jitter ~ +/-20%
	j := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(b.cur) * j)
}

func (b *acceptBackoff) Sleep() { time.Sleep(b.next()) }

func (b *acceptBackoff) Reset() { b.cur = 0 }
