package pipeline

import "time"

type State string

const (
	StateStarting         State = "STARTING"
	StateBaselining       State = "BASELINING"
	StatePolling          State = "POLLING"
	StateQueuedPublishing State = "QUEUED_PUBLISHING"
	StateIdleWait         State = "IDLE_WAIT"
	StateStopped          State = "STOPPED"
)

// Status is a point-in-time snapshot of the pipeline.
type Status struct {
	State           State
	Cycle           string
	Cycles          int
	LastCycleStart  time.Time
	LastCycleEnd    time.Time
	BaselinePending bool
	SeenLinks       int
	Queued          int
	Published       int
	Skipped         int
}

func (p *Pipeline) Status() Status {
	p.mu.RLock()
	status := p.status
	p.mu.RUnlock()

	status.SeenLinks = p.seen.Len()
	return status
}

func (p *Pipeline) setState(state State) {
	p.mu.Lock()
	p.status.State = state
	p.mu.Unlock()
}

func (p *Pipeline) updateStatus(update func(s *Status)) {
	p.mu.Lock()
	update(&p.status)
	p.mu.Unlock()
}
