package evaluation

import "fmt"

// Workflow error codes. Input errors and state-machine violations reject
// before any mutation; ordering conflicts are blocking by default and
// downgradeable to warnings via explicit caller opt-in.
const (
	CodeEpisodeNotFound      = "EPISODE_NOT_FOUND"
	CodeNoEventTag           = "NO_EVENT_TAG"
	CodeNotComputed          = "NOT_COMPUTED"
	CodeAlreadyAccepted      = "ALREADY_ACCEPTED"
	CodeNotAccepted          = "NOT_ACCEPTED"
	CodeInvalidTier          = "INVALID_TIER"
	CodeUnknownReason        = "UNKNOWN_REASON_CODE"
	CodeMaxOverridesExceeded = "MAX_OVERRIDES_EXCEEDED"
	CodeOutOfOrder           = "OUT_OF_ORDER"
	CodeNotLatestApplied     = "NOT_LATEST_APPLIED"
)

// Warning codes.
const (
	WarnOutOfOrderEpisode = "OUT_OF_ORDER_EPISODE"
	WarnOutOfOrderApply   = "OUT_OF_ORDER_APPLY"
)

// WorkflowError is the structured error returned by the workflow. It
// carries enough detail (the current status, the conflicting episode)
// for a UI to explain the rejection without guessing.
type WorkflowError struct {
	Code            string `json:"code"`
	Message         string `json:"message"`
	Status          string `json:"status,omitempty"`
	ConflictEpisode int    `json:"conflict_episode,omitempty"`
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errNotComputed(status string) *WorkflowError {
	return &WorkflowError{
		Code:    CodeNotComputed,
		Message: "episode must be evaluated before this operation, current status: " + status,
		Status:  status,
	}
}
