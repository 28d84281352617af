/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown is a scoped handle on a one-second ticker. A nil or stopped
// Countdown has a nil channel, so selecting on it never fires.
type Countdown struct {
	ticker clockwork.Ticker
}

func startCountdown(clock clockwork.Clock) *Countdown {
	return &Countdown{ticker: clock.NewTicker(time.Second)}
}

func (c *Countdown) C() <-chan time.Time {
	if c == nil || c.ticker == nil {
		return nil
	}

	return c.ticker.Chan()
}

// Stop releases the ticker and discards any tick already buffered.
func (c *Countdown) Stop() {
	if c == nil || c.ticker == nil {
		return
	}

	c.ticker.Stop()

	select {
	case <-c.ticker.Chan():
	default:
	}

	c.ticker = nil
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
