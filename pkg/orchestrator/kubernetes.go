package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const (
	// restartedAtAnnotation triggers a rolling restart when bumped, the same
	// way kubectl rollout restart does.
	restartedAtAnnotation = "ship.shipops.dev/restartedAt"

	// revisionAnnotation is set by the deployment controller on every
	// ReplicaSet it manages.
	revisionAnnotation = "deployment.kubernetes.io/revision"
)

// KubernetesOrchestrator drives Kubernetes deployments through the typed
// client. Service keys are "namespace/name".
type KubernetesOrchestrator struct {
	client kubernetes.Interface
	logger *slog.Logger
}

// NewKubernetesOrchestrator wraps a Kubernetes clientset.
func NewKubernetesOrchestrator(client kubernetes.Interface, logger *slog.Logger) *KubernetesOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &KubernetesOrchestrator{client: client, logger: logger}
}

// ListServices returns all deployments across namespaces, keyed by
// "namespace/name" and sorted by key.
func (o *KubernetesOrchestrator) ListServices(ctx context.Context) ([]Service, error) {
	deployments, err := o.client.AppsV1().Deployments(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("kubernetes: failed to list deployments: %w", err)
	}

	out := make([]Service, 0, len(deployments.Items))
	for _, d := range deployments.Items {
		s := Service{Name: d.Namespace + "/" + d.Name}
		if len(d.Spec.Template.Spec.Containers) > 0 {
			s.Image = d.Spec.Template.Spec.Containers[0].Image
		}
		if d.Spec.Replicas != nil {
			s.Replicas = uint64(*d.Spec.Replicas)
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateImage sets the deployment's first container to image:tag.
func (o *KubernetesOrchestrator) UpdateImage(ctx context.Context, service, image, tag string) error {
	namespace, name := SplitKey(service)

	deployment, err := o.getDeployment(ctx, namespace, name)
	if err != nil {
		return err
	}
	if len(deployment.Spec.Template.Spec.Containers) == 0 {
		return fmt.Errorf("kubernetes: deployment %s has no containers", service)
	}

	deployment.Spec.Template.Spec.Containers[0].Image = fmt.Sprintf("%s:%s", image, tag)
	return o.update(ctx, namespace, deployment)
}

// ForceRedeploy bumps the restart annotation on the pod template, triggering
// a rolling restart with an unchanged image.
func (o *KubernetesOrchestrator) ForceRedeploy(ctx context.Context, service string) error {
	namespace, name := SplitKey(service)

	deployment, err := o.getDeployment(ctx, namespace, name)
	if err != nil {
		return err
	}

	if deployment.Spec.Template.Annotations == nil {
		deployment.Spec.Template.Annotations = map[string]string{}
	}
	deployment.Spec.Template.Annotations[restartedAtAnnotation] = time.Now().Format(time.RFC3339)

	return o.update(ctx, namespace, deployment)
}

// Scale sets the deployment's replica count via the scale subresource.
func (o *KubernetesOrchestrator) Scale(ctx context.Context, service string, replicas uint64) error {
	namespace, name := SplitKey(service)

	scale, err := o.client.AppsV1().Deployments(namespace).GetScale(ctx, name, metav1.GetOptions{})
	if err != nil {
		if k8serrors.IsNotFound(err) {
			return fmt.Errorf("kubernetes: %s: %w", service, ErrServiceNotFound)
		}
		return fmt.Errorf("kubernetes: failed to get scale for %s: %w", service, err)
	}

	scale.Spec.Replicas = int32(replicas)
	if _, err := o.client.AppsV1().Deployments(namespace).UpdateScale(ctx, name, scale, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("kubernetes: failed to scale %s: %w", service, err)
	}
	return nil
}

// Rollback restores the deployment's pod template from the previous-revision
// ReplicaSet, the same template kubectl rollout undo applies.
func (o *KubernetesOrchestrator) Rollback(ctx context.Context, service string) error {
	namespace, name := SplitKey(service)

	deployment, err := o.getDeployment(ctx, namespace, name)
	if err != nil {
		return err
	}

	previous, err := o.previousReplicaSet(ctx, namespace, deployment)
	if err != nil {
		return err
	}

	template := previous.Spec.Template.DeepCopy()
	// The hash label is ReplicaSet-specific and must not leak back into the
	// deployment template.
	delete(template.Labels, appsv1.DefaultDeploymentUniqueLabelKey)

	deployment.Spec.Template = *template
	return o.update(ctx, namespace, deployment)
}

// previousReplicaSet finds the owned ReplicaSet with the second-highest
// controller revision.
func (o *KubernetesOrchestrator) previousReplicaSet(ctx context.Context, namespace string, deployment *appsv1.Deployment) (*appsv1.ReplicaSet, error) {
	selector, err := metav1.LabelSelectorAsSelector(deployment.Spec.Selector)
	if err != nil {
		return nil, fmt.Errorf("kubernetes: invalid selector on %s/%s: %w", namespace, deployment.Name, err)
	}

	list, err := o.client.AppsV1().ReplicaSets(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector.String()})
	if err != nil {
		return nil, fmt.Errorf("kubernetes: failed to list replica sets for %s/%s: %w", namespace, deployment.Name, err)
	}

	type revisioned struct {
		rs       *appsv1.ReplicaSet
		revision int64
	}
	var owned []revisioned
	for i := range list.Items {
		rs := &list.Items[i]
		if !metav1.IsControlledBy(rs, deployment) {
			continue
		}
		rev, err := strconv.ParseInt(rs.Annotations[revisionAnnotation], 10, 64)
		if err != nil {
			continue
		}
		owned = append(owned, revisioned{rs: rs, revision: rev})
	}

	if len(owned) < 2 {
		return nil, fmt.Errorf("kubernetes: no previous revision for %s/%s", namespace, deployment.Name)
	}

	sort.Slice(owned, func(i, j int) bool { return owned[i].revision > owned[j].revision })
	return owned[1].rs, nil
}

func (o *KubernetesOrchestrator) getDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	deployment, err := o.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if k8serrors.IsNotFound(err) {
			return nil, fmt.Errorf("kubernetes: %s/%s: %w", namespace, name, ErrServiceNotFound)
		}
		return nil, fmt.Errorf("kubernetes: failed to get deployment %s/%s: %w", namespace, name, err)
	}
	return deployment, nil
}

func (o *KubernetesOrchestrator) update(ctx context.Context, namespace string, deployment *appsv1.Deployment) error {
	if _, err := o.client.AppsV1().Deployments(namespace).Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("kubernetes: failed to update deployment %s/%s: %w", namespace, deployment.Name, err)
	}
	return nil
}

// Compile-time interface check.
var _ Orchestrator = (*KubernetesOrchestrator)(nil)
