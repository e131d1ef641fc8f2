package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput       Phase = iota // 0: dispatch last tick's events
	PhaseProduce                  // 1: scripts and producers stage inserts/removes
	PhaseMaintenance              // 2: commit staged work in every pool
	PhaseConsume                  // 3: readers walk stored/inserted/removed views
	PhasePersist                  // 4: snapshot export
	PhaseCleanup                  // 5: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseProduce:
		return "produce"
	case PhaseMaintenance:
		return "maintenance"
	case PhaseConsume:
		return "consume"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
