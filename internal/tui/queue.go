package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// queue runs console actions one at a time in the order Update queued them.
// bubbletea runs every tea.Cmd on its own goroutine, so the order lives in
// the queue and each returned command only drains it.
type queue struct {
	mu   sync.Mutex
	jobs []func()
	run  sync.Mutex
}

func newQueue() *queue {
	return &queue{}
}

// push queues job and returns the command that runs it
func (q *queue) push(job func()) tea.Cmd {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	return q.drain
}

func (q *queue) drain() tea.Msg {
	q.run.Lock()
	defer q.run.Unlock()
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return nil
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		job()
	}
}
