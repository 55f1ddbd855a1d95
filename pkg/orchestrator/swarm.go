package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"
)

// stackImageLabel is the label Docker stack deploys keep in sync with the
// running image; Ship updates it alongside the container spec.
const stackImageLabel = "com.docker.stack.image"

// dockerClient is the slice of the Docker API the orchestrator uses,
// satisfied by *client.Client.
type dockerClient interface {
	ServiceList(ctx context.Context, options types.ServiceListOptions) ([]swarm.Service, error)
	ServiceUpdate(ctx context.Context, serviceID string, version swarm.Version, service swarm.ServiceSpec, options types.ServiceUpdateOptions) (swarm.ServiceUpdateResponse, error)
}

// SwarmOrchestrator drives Docker Swarm services through the Docker API.
type SwarmOrchestrator struct {
	cli    dockerClient
	logger *slog.Logger
}

// NewSwarmOrchestrator connects to the Docker daemon using the standard
// environment configuration (DOCKER_HOST etc.).
func NewSwarmOrchestrator(logger *slog.Logger) (*SwarmOrchestrator, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("swarm: failed to create docker client: %w", err)
	}
	return NewSwarmOrchestratorWithClient(cli, logger), nil
}

// NewSwarmOrchestratorWithClient wraps an existing Docker API client.
func NewSwarmOrchestratorWithClient(cli dockerClient, logger *slog.Logger) *SwarmOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SwarmOrchestrator{cli: cli, logger: logger}
}

// ListServices returns all swarm services sorted by the daemon's order.
func (o *SwarmOrchestrator) ListServices(ctx context.Context) ([]Service, error) {
	services, err := o.cli.ServiceList(ctx, types.ServiceListOptions{})
	if err != nil {
		return nil, fmt.Errorf("swarm: failed to list services: %w", err)
	}

	out := make([]Service, 0, len(services))
	for _, svc := range services {
		s := Service{Name: svc.Spec.Name}
		if svc.Spec.TaskTemplate.ContainerSpec != nil {
			s.Image = svc.Spec.TaskTemplate.ContainerSpec.Image
		}
		if svc.Spec.Mode.Replicated != nil && svc.Spec.Mode.Replicated.Replicas != nil {
			s.Replicas = *svc.Spec.Mode.Replicated.Replicas
		}
		out = append(out, s)
	}
	return out, nil
}

// UpdateImage updates the service to image:tag and resets the force counter,
// keeping the stack image label in sync.
func (o *SwarmOrchestrator) UpdateImage(ctx context.Context, service, image, tag string) error {
	svc, err := o.getService(ctx, service)
	if err != nil {
		return err
	}

	ref := fmt.Sprintf("%s:%s", image, tag)
	spec := svc.Spec
	spec.TaskTemplate.ForceUpdate = 0
	if spec.TaskTemplate.ContainerSpec == nil {
		return fmt.Errorf("swarm: service %s has no container spec", service)
	}
	spec.TaskTemplate.ContainerSpec.Image = ref
	if spec.Labels == nil {
		spec.Labels = map[string]string{}
	}
	spec.Labels[stackImageLabel] = ref

	return o.update(ctx, svc, spec, types.ServiceUpdateOptions{})
}

// ForceRedeploy bumps the force counter, redeploying all tasks in place.
func (o *SwarmOrchestrator) ForceRedeploy(ctx context.Context, service string) error {
	svc, err := o.getService(ctx, service)
	if err != nil {
		return err
	}

	spec := svc.Spec
	spec.TaskTemplate.ForceUpdate++

	return o.update(ctx, svc, spec, types.ServiceUpdateOptions{})
}

// Scale sets the replica count of a replicated service.
func (o *SwarmOrchestrator) Scale(ctx context.Context, service string, replicas uint64) error {
	svc, err := o.getService(ctx, service)
	if err != nil {
		return err
	}

	spec := svc.Spec
	if spec.Mode.Replicated == nil {
		return fmt.Errorf("swarm: service %s is not replicated", service)
	}
	spec.Mode.Replicated.Replicas = &replicas

	return o.update(ctx, svc, spec, types.ServiceUpdateOptions{})
}

// Rollback restores the service to its previous definition.
func (o *SwarmOrchestrator) Rollback(ctx context.Context, service string) error {
	svc, err := o.getService(ctx, service)
	if err != nil {
		return err
	}

	return o.update(ctx, svc, svc.Spec, types.ServiceUpdateOptions{Rollback: "previous"})
}

// getService resolves a service by its exact name.
func (o *SwarmOrchestrator) getService(ctx context.Context, name string) (swarm.Service, error) {
	services, err := o.cli.ServiceList(ctx, types.ServiceListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return swarm.Service{}, fmt.Errorf("swarm: failed to list services: %w", err)
	}

	// The name filter is a prefix match; require the exact name.
	for _, svc := range services {
		if svc.Spec.Name == name {
			return svc, nil
		}
	}
	return swarm.Service{}, fmt.Errorf("swarm: %s: %w", name, ErrServiceNotFound)
}

// update applies the mutated spec at the service's current version index.
func (o *SwarmOrchestrator) update(ctx context.Context, svc swarm.Service, spec swarm.ServiceSpec, opts types.ServiceUpdateOptions) error {
	resp, err := o.cli.ServiceUpdate(ctx, svc.ID, svc.Version, spec, opts)
	if err != nil {
		return fmt.Errorf("swarm: failed to update service %s: %w", svc.Spec.Name, err)
	}
	for _, warn := range resp.Warnings {
		o.logger.Warn("swarm service update warning", "service", svc.Spec.Name, "warning", warn)
	}
	return nil
}

// Compile-time interface check.
var _ Orchestrator = (*SwarmOrchestrator)(nil)
