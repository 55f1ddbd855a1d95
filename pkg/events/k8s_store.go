package events

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
)

const (
	// eventGroup is the API group of the ShipEvent custom resource.
	eventGroup = "ship.shipops.dev"

	// eventVersion is the served version of the ShipEvent custom resource.
	eventVersion = "v1"

	// eventResource is the plural resource name of ShipEvent.
	eventResource = "shipevents"

	// eventKind is the custom resource kind holding one audit event each.
	eventKind = "ShipEvent"
)

// EventGVR is the GroupVersionResource of the ShipEvent custom resource.
var EventGVR = schema.GroupVersionResource{
	Group:    eventGroup,
	Version:  eventVersion,
	Resource: eventResource,
}

// KubernetesStore is the cluster-mode backend: each event is one ShipEvent
// custom resource. Uniqueness and write concurrency are delegated to the
// cluster's object store, so appends never race each other.
type KubernetesStore struct {
	client    dynamic.Interface
	namespace string
}

// NewKubernetesStore creates a store writing ShipEvent resources into the
// given namespace.
func NewKubernetesStore(client dynamic.Interface, namespace string) *KubernetesStore {
	if namespace == "" {
		namespace = "default"
	}
	return &KubernetesStore{client: client, namespace: namespace}
}

// Append creates one ShipEvent resource for the event. The object name is
// derived from the event timestamp with a short random suffix so that two
// events landing in the same millisecond still get distinct names.
func (s *KubernetesStore) Append(ctx context.Context, event *ActionEvent) error {
	name := fmt.Sprintf("ship-event-%d-%s", event.Time, uuid.NewString()[:8])

	obj := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": eventGroup + "/" + eventVersion,
		"kind":       eventKind,
		"metadata": map[string]any{
			"name": name,
		},
		"spec": map[string]any{
			"type":       event.Type,
			"username":   event.Username,
			"service":    event.Service,
			"parameters": event.Parameters,
			"time":       event.Time,
		},
	}}

	_, err := s.client.Resource(EventGVR).Namespace(s.namespace).Create(ctx, obj, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("event store: failed to create %s %s: %w", eventKind, name, err)
	}
	return nil
}

// ListForService lists all events and filters client-side on the embedded
// service field; the cluster keeps no index on it.
func (s *KubernetesStore) ListForService(ctx context.Context, serviceKey string) ([]ActionEvent, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ActionEvent, 0, len(all))
	for _, e := range all {
		if e.Service == serviceKey {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListAll returns every stored event, oldest first by event time.
func (s *KubernetesStore) ListAll(ctx context.Context) ([]ActionEvent, error) {
	items, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ActionEvent, 0, len(items))
	for _, item := range items {
		out = append(out, eventFromObject(&item))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out, nil
}

// PurgeOldest deletes every event resource beyond the keep most recent ones.
func (s *KubernetesStore) PurgeOldest(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	items, err := s.list(ctx)
	if err != nil {
		return 0, err
	}
	if len(items) <= keep {
		return 0, nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		return eventTime(&items[i]) > eventTime(&items[j])
	})

	removed := 0
	for _, item := range items[keep:] {
		name := item.GetName()
		if err := s.client.Resource(EventGVR).Namespace(s.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
			return removed, fmt.Errorf("event store: failed to delete %s %s: %w", eventKind, name, err)
		}
		removed++
	}

	return removed, nil
}

// list fetches the raw ShipEvent objects in the store's namespace.
func (s *KubernetesStore) list(ctx context.Context) ([]unstructured.Unstructured, error) {
	res, err := s.client.Resource(EventGVR).Namespace(s.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("event store: failed to list %s resources: %w", eventKind, err)
	}
	return res.Items, nil
}

// eventFromObject maps a ShipEvent object's spec back to an ActionEvent.
func eventFromObject(obj *unstructured.Unstructured) ActionEvent {
	spec, _, _ := unstructured.NestedMap(obj.Object, "spec")
	if spec == nil {
		return ActionEvent{}
	}

	e := ActionEvent{
		Type:     stringField(spec, "type"),
		Username: stringField(spec, "username"),
		Service:  stringField(spec, "service"),
		Time:     int64Field(spec, "time"),
	}
	if params, ok := spec["parameters"].(map[string]any); ok {
		e.Parameters = params
	} else {
		e.Parameters = map[string]any{}
	}
	return e
}

// eventTime extracts the event timestamp without building a full ActionEvent.
func eventTime(obj *unstructured.Unstructured) int64 {
	spec, _, _ := unstructured.NestedMap(obj.Object, "spec")
	if spec == nil {
		return 0
	}
	return int64Field(spec, "time")
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// int64Field tolerates both int64 and float64 numeric encodings, since the
// value roundtrips through JSON on its way to and from the API server.
func int64Field(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// Compile-time interface check.
var _ Store = (*KubernetesStore)(nil)
