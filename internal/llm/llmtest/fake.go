// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/hackgods/conversational-appointment-booking/internal/llm"
)

// Reply is a canned answer. A non-nil Err is returned instead of Text.
type Reply struct {
	Text string
	Err  error
}

// Fake answers by request purpose. Purposes without a queued reply get
// Default. Every request is recorded.
type Fake struct {
	mu       sync.Mutex
	queued   map[string][]Reply
	Default  Reply
	requests []llm.Request
}

func New() *Fake {
	return &Fake{queued: make(map[string][]Reply)}
}

// On queues replies for a purpose, consumed in order.
func (f *Fake) On(purpose string, replies ...Reply) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[purpose] = append(f.queued[purpose], replies...)
	return f
}

func (f *Fake) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	r := f.Default
	if q := f.queued[req.Purpose]; len(q) > 0 {
		r = q[0]
		f.queued[req.Purpose] = q[1:]
	}
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Calls counts requests made for a purpose.
func (f *Fake) Calls(purpose string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Purpose == purpose {
			n++
		}
	}
	return n
}
