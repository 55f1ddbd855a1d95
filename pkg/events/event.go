// Package events defines the audit event record written for every gated
// action and the store abstraction that persists it. Two interchangeable
// backends exist: a local JSON log file (Swarm mode) and a Kubernetes custom
// resource per event (Kubernetes mode). Everything outside this package sees
// the same ActionEvent shape regardless of backend.
package events

// Action types recorded for executed mutations. A denied action is recorded
// with the same type prefixed by "attempt_".
const (
	ActionUpdate      = "update"
	ActionForceUpdate = "force_update"
	ActionScale       = "scale"
	ActionRestore     = "restore"

	attemptPrefix = "attempt_"
)

// AttemptType returns the event type recorded when an action is blocked.
func AttemptType(actionType string) string {
	return attemptPrefix + actionType
}

// IsAttempt reports whether an event type records a blocked action.
func IsAttempt(eventType string) bool {
	return len(eventType) > len(attemptPrefix) && eventType[:len(attemptPrefix)] == attemptPrefix
}

// ActionEvent is an immutable audit record of one gating decision or executed
// action. Time is milliseconds since epoch, set at creation.
type ActionEvent struct {
	Type       string         `json:"type"`
	Username   string         `json:"username"`
	Service    string         `json:"service"`
	Parameters map[string]any `json:"parameters"`
	Time       int64          `json:"time"`
}
