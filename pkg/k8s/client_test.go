package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func service(name string, ports ...int32) *corev1.Service {
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "team-a"},
	}
	for _, p := range ports {
		svc.Spec.Ports = append(svc.Spec.Ports, corev1.ServicePort{Port: p})
	}
	return svc
}

func pod(name string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "team-a"},
	}
}

func TestListServicesSortedWithPorts(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		service("web", 8080, 9090),
		service("api", 8000),
		service("cache", 6379),
	)
	client := &Client{clientset: clientset, namespace: "team-a"}

	services, err := client.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 3)

	assert.Equal(t, "api", services[0].Name)
	assert.Equal(t, []int{8000}, services[0].Ports)
	assert.Equal(t, "cache", services[1].Name)
	assert.Equal(t, "web", services[2].Name)
	assert.Equal(t, []int{8080, 9090}, services[2].Ports)
}

func TestListServicesEmptyNamespace(t *testing.T) {
	client := &Client{clientset: fake.NewSimpleClientset(), namespace: "team-a"}

	services, err := client.ListServices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestResolvePodPrefixMatch(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		pod("api-7c9f6d4b8-x2ll4"),
		pod("web-5b8d9c7f6-kq2zn"),
	)
	client := &Client{clientset: clientset, namespace: "team-a"}

	name, err := client.ResolvePod(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "web-5b8d9c7f6-kq2zn", name)
}

func TestResolvePodNoMatch(t *testing.T) {
	clientset := fake.NewSimpleClientset(pod("api-7c9f6d4b8-x2ll4"))
	client := &Client{clientset: clientset, namespace: "team-a"}

	_, err := client.ResolvePod(context.Background(), "web")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatchingPod)
	assert.Contains(t, err.Error(), "team-a")
}
