package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Poll is a time-boxed majority vote over the players active when it was
// created. It resolves exactly once: by a decided outcome, by full
// participation, or by timer expiry (which fails closed).
type Poll struct {
	ID      string
	Message string

	mu      sync.Mutex
	votes   map[string]int
	timeout time.Duration
	timer   *time.Timer
	once    sync.Once
	done    chan bool
}

func newPoll(message string, voters []string, timeout time.Duration) *Poll {
	p := &Poll{
		ID:      uuid.NewString(),
		Message: message,
		votes:   make(map[string]int, len(voters)),
		timeout: timeout,
		done:    make(chan bool, 1),
	}
	for _, token := range voters {
		p.votes[token] = 0
	}
	p.timer = time.AfterFunc(timeout, func() {
		p.resolve(false)
	})
	return p
}

// Vote records or overwrites one participant's vote and re-arms the timer
// so latecomers keep a full window. Votes from tokens outside the seeded
// slots are ignored.
func (p *Poll) Vote(token string, approve bool) bool {
	p.mu.Lock()
	if _, ok := p.votes[token]; !ok {
		p.mu.Unlock()
		return false
	}
	if approve {
		p.votes[token] = 1
	} else {
		p.votes[token] = -1
	}
	sum, unset := p.tally()
	p.timer.Reset(p.timeout)
	p.mu.Unlock()

	switch {
	case sum > unset:
		// No remaining vote can drag the tally non-positive.
		p.resolve(true)
	case sum+unset <= 0:
		// No remaining vote can drag the tally positive.
		p.resolve(false)
	case unset == 0:
		p.resolve(sum > 0)
	}
	return true
}

func (p *Poll) tally() (sum, unset int) {
	for _, vote := range p.votes {
		sum += vote
		if vote == 0 {
			unset++
		}
	}
	return sum, unset
}

func (p *Poll) resolve(result bool) {
	p.once.Do(func() {
		p.timer.Stop()
		p.done <- result
	})
}

// Result blocks until the poll resolves.
func (p *Poll) Result() bool {
	return <-p.done
}
