package syncer

// State is the interface all sync run states implement. Transitions are
// enforced by the type system: each state exposes only the moves the
// pipeline allows from it.
type State interface {
	Name() string
}

// IdleState - run created, not yet started
type IdleState struct{}

func (s *IdleState) Name() string { return "idle" }
func (s *IdleState) ToFetching() *FetchingState {
	return &FetchingState{}
}
func (s *IdleState) ToCancelled() *CancelledState {
	return &CancelledState{}
}

// FetchingState - pulling courses and assignments from Canvas
type FetchingState struct{}

func (s *FetchingState) Name() string { return "fetching" }
func (s *FetchingState) ToClassifying() *ClassifyingState {
	return &ClassifyingState{}
}
func (s *FetchingState) ToFailed() *FailedState {
	return &FailedState{}
}
func (s *FetchingState) ToCancelled() *CancelledState {
	return &CancelledState{}
}

// ClassifyingState - bucketing and filtering fetched assignments.
// Pure computation; the only exit besides success is cancellation.
type ClassifyingState struct{}

func (s *ClassifyingState) Name() string { return "classifying" }
func (s *ClassifyingState) ToReconciling() *ReconcilingState {
	return &ReconcilingState{}
}
func (s *ClassifyingState) ToCancelled() *CancelledState {
	return &CancelledState{}
}

// ReconcilingState - resolving assignments against existing Notion pages
type ReconcilingState struct{}

func (s *ReconcilingState) Name() string { return "reconciling" }
func (s *ReconcilingState) ToWriting() *WritingState {
	return &WritingState{}
}
func (s *ReconcilingState) ToFailed() *FailedState {
	return &FailedState{}
}
func (s *ReconcilingState) ToCancelled() *CancelledState {
	return &CancelledState{}
}

// WritingState - executing scheduled creates and updates
type WritingState struct{}

func (s *WritingState) Name() string { return "writing" }
func (s *WritingState) ToCompleted() *CompletedState {
	return &CompletedState{}
}
func (s *WritingState) ToFailed() *FailedState {
	return &FailedState{}
}
func (s *WritingState) ToCancelled() *CancelledState {
	return &CancelledState{}
}

// Terminal states

// CompletedState - run finished normally
type CompletedState struct{}

func (s *CompletedState) Name() string { return "completed" }

// FailedState - run aborted on an unrecoverable error
type FailedState struct{}

func (s *FailedState) Name() string { return "failed" }

// CancelledState - run stopped at an assignment boundary by the user
type CancelledState struct{}

func (s *CancelledState) Name() string { return "cancelled" }

// IsTerminal reports whether the state ends the run loop.
func IsTerminal(s State) bool {
	switch s.(type) {
	case *CompletedState, *FailedState, *CancelledState:
		return true
	}
	return false
}

// StateRecorder tracks state transitions for testing
type StateRecorder struct {
	path []string
}

func NewStateRecorder() *StateRecorder {
	return &StateRecorder{path: make([]string, 0)}
}

func (r *StateRecorder) Record(state State) {
	r.path = append(r.path, state.Name())
}

func (r *StateRecorder) Path() []string {
	return r.path
}
