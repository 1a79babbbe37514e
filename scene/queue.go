package scene

import (
	"fmt"
	"sync"
)

// Queue buffers commands and deferred functions submitted from any goroutine until the loop drains them.
// Entries run in submission order.
type Queue struct {
	mu      sync.Mutex
	entries []queueEntry
}

type queueEntry struct {
	cmd   Command
	reply func(Result)
	fn    func()
}

func NewQueue() *Queue {
	return &Queue{}
}

// Submit queues a command. reply, if not nil, receives the result on the goroutine that flushes the queue.
func (q *Queue) Submit(cmd Command, reply func(Result)) {
	q.mu.Lock()
	q.entries = append(q.entries, queueEntry{cmd: cmd, reply: reply})
	q.mu.Unlock()
}

// Defer queues a function, typically a pointer event captured on another goroutine.
func (q *Queue) Defer(fn func()) {
	q.mu.Lock()
	q.entries = append(q.entries, queueEntry{fn: fn})
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Flush runs every queued entry, executing commands with exec. Entries queued while flushing wait for the next
// flush. It returns the number of commands executed and the results that failed.
func (q *Queue) Flush(exec *Executor) (int, []Result) {
	q.mu.Lock()
	entries := q.entries
	q.entries = nil
	q.mu.Unlock()

	var (
		executed int
		failed   []Result
	)
	for _, entry := range entries {
		if entry.fn != nil {
			if err := recovered(func() error { entry.fn(); return nil }); err != nil {
				failed = append(failed, Result{Type: "defer", Err: err})
			}
			continue
		}
		res := exec.Execute(entry.cmd)
		executed++
		if res.Err != nil {
			failed = append(failed, res)
		}
		if entry.reply != nil {
			if err := recovered(func() error { entry.reply(res); return nil }); err != nil {
				failed = append(failed, Result{Type: res.Type, Err: fmt.Errorf("reply: %w", err)})
			}
		}
	}
	return executed, failed
}
