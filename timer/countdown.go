// timer/countdown.go
package timer

import (
	"sync"
	"time"
)

// Countdown 是一个可取消的倒计时任务。每个tick回调一次，
// 走完全程后回调onFinish；Stop之后两者都不会再触发。
//
// Stop is safe to call from a callback and is idempotent. A countdown that is
// stopped between ticks never fires its completion callback; callers that
// need to guard against a tick already in flight compare the Countdown
// pointer they own against the one that fired.
type Countdown struct {
	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// StartCountdown invokes onTick immediately (first=true) and then once per
// tick interval. When the total duration is exhausted it invokes onFinish.
func StartCountdown(total, tick time.Duration, onTick func(remaining time.Duration, first bool), onFinish func()) *Countdown {
	c := &Countdown{
		done: make(chan struct{}),
	}

	go c.run(total, tick, onTick, onFinish)
	return c
}

func (c *Countdown) run(total, tick time.Duration, onTick func(remaining time.Duration, first bool), onFinish func()) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	remaining := total
	first := true

	for remaining > 0 {
		if c.Stopped() {
			return
		}
		onTick(remaining, first)
		first = false
		remaining -= tick

		select {
		case <-c.done:
			return
		case <-ticker.C:
		}
	}

	if c.Stopped() {
		return
	}
	onFinish()
}

// Stop 取消倒计时，幂等
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		c.stopped = true
		close(c.done)
	}
}

func (c *Countdown) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
