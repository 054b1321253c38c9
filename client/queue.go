// File: client/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import (
	"context"
	"sync"

	"github.com/eapache/queue"
)

type outboundMessage struct {
	event string
	data  any
}

// flushQueue is the bounded outbound queue the event-flush task drains
// and emit() enqueues to exclusively (§4.8). Push blocks while the queue
// is at capacity, providing backpressure; Pop blocks until an item is
// available, ctx is done, or the queue is closed.
type flushQueue struct {
	mu     sync.Mutex
	notEmpty *sync.Cond
	q      *queue.Queue
	cap    int
	closed bool
}

func newFlushQueue(capacity int) *flushQueue {
	fq := &flushQueue{q: queue.New(), cap: capacity}
	fq.notEmpty = sync.NewCond(&fq.mu)
	return fq
}

// Push enqueues msg, blocking while the queue is full. It returns false
// if the queue was closed before the message could be enqueued.
func (fq *flushQueue) Push(msg outboundMessage) bool {
	fq.mu.Lock()
	defer fq.mu.Unlock()
	for !fq.closed && fq.cap > 0 && fq.q.Length() >= fq.cap {
		fq.notEmpty.Wait()
	}
	if fq.closed {
		return false
	}
	fq.q.Add(msg)
	fq.notEmpty.Broadcast()
	return true
}

// Pop removes and returns the oldest message, blocking until one is
// available, the queue closes, or ctx is cancelled. The second return
// value is false when no message was returned: ctx was cancelled, or the
// queue closed empty.
func (fq *flushQueue) Pop(ctx context.Context) (outboundMessage, bool) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fq.mu.Lock()
			fq.notEmpty.Broadcast()
			fq.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	fq.mu.Lock()
	defer fq.mu.Unlock()
	for fq.q.Length() == 0 && !fq.closed {
		if ctx.Err() != nil {
			return outboundMessage{}, false
		}
		fq.notEmpty.Wait()
	}
	if fq.q.Length() == 0 {
		return outboundMessage{}, false
	}
	msg := fq.q.Peek().(outboundMessage)
	fq.q.Remove()
	fq.notEmpty.Broadcast()
	return msg, true
}

func (fq *flushQueue) Len() int {
	fq.mu.Lock()
	defer fq.mu.Unlock()
	return fq.q.Length()
}

// Close wakes every blocked Push/Pop; subsequent Push calls fail.
func (fq *flushQueue) Close() {
	fq.mu.Lock()
	fq.closed = true
	fq.notEmpty.Broadcast()
	fq.mu.Unlock()
}
