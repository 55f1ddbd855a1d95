// Package orchestrator wraps the two container platforms Ship can drive:
// Docker Swarm services and Kubernetes deployments. The rest of the system
// only sees the Orchestrator interface and pass/fail results.
package orchestrator

import (
	"context"
	"errors"
	"strings"
)

// ErrServiceNotFound is returned when the named service or deployment does
// not exist on the active platform.
var ErrServiceNotFound = errors.New("service not found")

// Service is a platform-neutral summary of one managed unit. Name is the
// bare service name on Swarm and "namespace/name" on Kubernetes.
type Service struct {
	Name     string `json:"name"`
	Image    string `json:"image"`
	Replicas uint64 `json:"replicas"`
}

// Orchestrator is the mutation surface the action pipeline's callers invoke
// after an action has been allowed and audited.
type Orchestrator interface {
	ListServices(ctx context.Context) ([]Service, error)
	UpdateImage(ctx context.Context, service, image, tag string) error
	ForceRedeploy(ctx context.Context, service string) error
	Scale(ctx context.Context, service string, replicas uint64) error
	Rollback(ctx context.Context, service string) error
}

// SplitKey splits a Kubernetes "namespace/name" service key. A key without a
// namespace falls back to "default".
func SplitKey(key string) (namespace, name string) {
	if idx := strings.IndexByte(key, '/'); idx >= 0 {
		return key[:idx], key[idx+1:]
	}
	return "default", key
}
