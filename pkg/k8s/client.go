package k8s

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth" // register auth providers
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Sentinel errors for cluster access failures.
var (
	ErrConnectivity  = errors.New("cannot reach cluster API")
	ErrNoMatchingPod = errors.New("no pod matching service name")
)

// Service is one discovered service with its remote ports, in the order the
// cluster reports them.
type Service struct {
	Name  string
	Ports []int
}

// Options select the cluster, namespace and kubeconfig used by the client.
type Options struct {
	Kubeconfig string
	Context    string
	Namespace  string
}

// Client wraps the cluster API operations the tool needs: listing services,
// resolving pods and opening forward streams.
type Client struct {
	clientset  kubernetes.Interface
	restConfig *rest.Config
	namespace  string
}

// NewClient builds a clientset from the kubeconfig. When no namespace is
// given, the kubeconfig's current-context namespace is used, falling back to
// "default". This is the only fatal failure path in the whole tool.
func NewClient(opts Options) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if opts.Kubeconfig != "" {
		loadingRules.ExplicitPath = opts.Kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: opts.Context}
	kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)

	namespace := opts.Namespace
	if namespace == "" {
		ns, _, err := kubeConfig.Namespace()
		if err != nil || ns == "" {
			ns = "default"
		}
		namespace = ns
	}

	restConfig, err := kubeConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: loading kubeconfig: %v", ErrConnectivity, err)
	}
	restConfig.Timeout = 30 * time.Second

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: building clientset: %v", ErrConnectivity, err)
	}

	return &Client{clientset: clientset, restConfig: restConfig, namespace: namespace}, nil
}

// Namespace returns the namespace the client operates in.
func (c *Client) Namespace() string {
	return c.namespace
}

// ListServices returns the namespace's services with their ports, sorted by
// name. The listing is taken once at startup and never refreshed.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	list, err := c.clientset.CoreV1().Services(c.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: listing services in %s: %v", ErrConnectivity, c.namespace, err)
	}
	services := make([]Service, 0, len(list.Items))
	for _, item := range list.Items {
		svc := Service{Name: item.Name}
		for _, port := range item.Spec.Ports {
			svc.Ports = append(svc.Ports, int(port.Port))
		}
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

// ResolvePod returns the first pod whose name has the service name as a
// prefix.
//
// FIXME: a prefix match can select an unrelated pod when names collide;
// joining on the service's label selector against pod labels would be
// correct.
func (c *Client) ResolvePod(ctx context.Context, service string) (string, error) {
	pods, err := c.clientset.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: listing pods in %s: %v", ErrConnectivity, c.namespace, err)
	}
	for _, pod := range pods.Items {
		if strings.HasPrefix(pod.Name, service) {
			return pod.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %s in namespace %s", ErrNoMatchingPod, service, c.namespace)
}
