package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
)

func newTestKubernetesStore() *KubernetesStore {
	scheme := runtime.NewScheme()
	client := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme,
		map[schema.GroupVersionResource]string{EventGVR: "ShipEventList"})
	return NewKubernetesStore(client, "ship")
}

func TestKubernetesStore_AppendAndList(t *testing.T) {
	store := newTestKubernetesStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testEvent("prod/api", 3000)))
	require.NoError(t, store.Append(ctx, testEvent("prod/web", 1000)))
	require.NoError(t, store.Append(ctx, testEvent("prod/api", 2000)))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Sorted oldest first by event time regardless of creation order.
	assert.Equal(t, int64(1000), all[0].Time)
	assert.Equal(t, int64(2000), all[1].Time)
	assert.Equal(t, int64(3000), all[2].Time)

	forService, err := store.ListForService(ctx, "prod/api")
	require.NoError(t, err)
	require.Len(t, forService, 2)
	for _, e := range forService {
		assert.Equal(t, "prod/api", e.Service)
	}
}

func TestKubernetesStore_EventShapeSurvivesRoundtrip(t *testing.T) {
	store := newTestKubernetesStore()
	ctx := context.Background()

	in := &ActionEvent{
		Type:     ActionScale,
		Username: "alice",
		Service:  "prod/api",
		Parameters: map[string]any{
			"scale": int64(3),
		},
		Time: 1700000000000,
	}
	require.NoError(t, store.Append(ctx, in))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	out := all[0]
	assert.Equal(t, "scale", out.Type)
	assert.Equal(t, "alice", out.Username)
	assert.Equal(t, "prod/api", out.Service)
	assert.Equal(t, int64(1700000000000), out.Time)
	assert.NotNil(t, out.Parameters)
}

func TestKubernetesStore_UniqueNamesForSameMillisecond(t *testing.T) {
	store := newTestKubernetesStore()
	ctx := context.Background()

	// Two events in the same millisecond must not collide on object name.
	require.NoError(t, store.Append(ctx, testEvent("prod/api", 5000)))
	require.NoError(t, store.Append(ctx, testEvent("prod/api", 5000)))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestKubernetesStore_PurgeOldest(t *testing.T) {
	store := newTestKubernetesStore()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		require.NoError(t, store.Append(ctx, testEvent("prod/api", int64(i*100))))
	}

	removed, err := store.PurgeOldest(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, removed)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, int64(700), all[0].Time, "only the most recent events remain")
	assert.Equal(t, int64(1100), all[4].Time)
}

func TestKubernetesStore_PurgeBelowKeepIsNoop(t *testing.T) {
	store := newTestKubernetesStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testEvent("prod/api", 1000)))

	removed, err := store.PurgeOldest(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestKubernetesStore_DefaultNamespace(t *testing.T) {
	scheme := runtime.NewScheme()
	client := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme,
		map[schema.GroupVersionResource]string{EventGVR: "ShipEventList"})

	store := NewKubernetesStore(client, "")
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testEvent("prod/api", 1000)))

	// The event landed in the default namespace.
	list, err := client.Resource(EventGVR).Namespace("default").List(ctx, metav1.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}
