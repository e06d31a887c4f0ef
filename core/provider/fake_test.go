package provider

import (
	"context"
	"sync"
)

type fakeProvider struct {
	id ID

	mu        sync.Mutex
	questions []string
	replies   []fakeReply
}

type fakeReply struct {
	answer string
	err    error
	block  bool
}

func (f *fakeProvider) ID() ID { return f.id }

func (f *fakeProvider) Ask(ctx context.Context, q string) (string, error) {
	f.mu.Lock()
	f.questions = append(f.questions, q)
	var r fakeReply
	if len(f.replies) > 0 {
		r = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()
	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.answer, r.err
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.questions)
}
