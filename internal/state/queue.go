package state

import "sync"

// writeQueue runs remote writes one at a time per entity key, in the order they were enqueued.
// Different keys drain independently.
type writeQueue struct {
  mu      sync.Mutex
  pending map[string][]func()
  run     func(func())
}

func newWriteQueue(run func(func())) *writeQueue {
  return &writeQueue{pending: make(map[string][]func()), run: run}
}

func (q *writeQueue) Enqueue(key string, job func()) {
  q.mu.Lock()
  jobs, draining := q.pending[key]
  q.pending[key] = append(jobs, job)
  q.mu.Unlock()
  if draining {
    return
  }
  q.run(func() { q.drain(key) })
}

func (q *writeQueue) drain(key string) {
  for {
    q.mu.Lock()
    jobs := q.pending[key]
    if len(jobs) == 0 {
      delete(q.pending, key)
      q.mu.Unlock()
      return
    }
    job := jobs[0]
    q.pending[key] = jobs[1:]
    q.mu.Unlock()
    job()
  }
}

// Pending reports how many keys still have queued or running writes.
func (q *writeQueue) Pending() int {
  q.mu.Lock()
  defer q.mu.Unlock()
  return len(q.pending)
}
