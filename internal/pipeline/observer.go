package pipeline

import "github.com/joseph-ayodele/notas-reader/constants"

// Observer receives run transitions and overall progress (0..100, monotonic).
// Callbacks run on the run's goroutine and must not block.
type Observer interface {
	OnState(state constants.RunState)
	OnProgress(percent int)
}

type nopObserver struct{}

func (nopObserver) OnState(constants.RunState) {}
func (nopObserver) OnProgress(int)             {}

// monotonic drops progress values lower than the last one reported.
type monotonic struct {
	Observer
	last int
}

func (m *monotonic) OnProgress(p int) {
	if p < m.last {
		return
	}
	if p > 100 {
		p = 100
	}
	m.last = p
	m.Observer.OnProgress(p)
}

// Overall progress bands; conversion milestones are scaled into the first.
const (
	progressConvertEnd = 60
	progressExtracting = 70
	progressDone       = 100
)
