package constants

// RunState is the per-run pipeline state. Runs are never persisted.
type RunState string

const (
	RunStateIdle                RunState = "IDLE"
	RunStateQueued              RunState = "QUEUED"
	RunStateConverting          RunState = "CONVERTING"
	RunStateConverted           RunState = "CONVERTED"
	RunStateExtracting          RunState = "EXTRACTING"
	RunStateDone                RunState = "DONE"                 // terminal, fields extracted
	RunStateAwaitingCredentials RunState = "AWAITING_CREDENTIALS" // terminal, conversion only
	RunStateFailed              RunState = "FAILED"               // terminal failure
)

// Terminal reports whether no further transition can happen in this run.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateDone, RunStateAwaitingCredentials, RunStateFailed:
		return true
	}
	return false
}
