// Package k8s provides a Kubernetes client wrapper built from a cluster
// descriptor (API endpoint, bearer token and TLS policy) rather than a
// kubeconfig file.
package k8s

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/imamik/kubedash/internal/cluster"
)

const (
	// DefaultTimeout bounds every request made through a Client.
	DefaultTimeout = 10 * time.Second

	userAgent    = "kubedash"
	fieldManager = "kubedash"
)

// Client wraps the typed and dynamic clients for one control plane.
type Client struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
}

// ClientFactory builds a Client for a descriptor. Components take a factory
// so tests can substitute fake clients.
type ClientFactory func(d cluster.Descriptor, timeout time.Duration) (*Client, error)

// RESTConfig returns the client-go configuration for a descriptor.
func RESTConfig(d cluster.Descriptor, timeout time.Duration) *rest.Config {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &rest.Config{
		Host:        d.APIURL(),
		BearerToken: d.Token,
		TLSClientConfig: rest.TLSClientConfig{
			Insecure: !d.TLSPolicy.Verify(),
		},
		Timeout:   timeout,
		UserAgent: userAgent,
	}
}

// NewClient creates a Client that authenticates with the descriptor's
// bearer token.
func NewClient(d cluster.Descriptor, timeout time.Duration) (*Client, error) {
	return NewClientForConfig(RESTConfig(d, timeout))
}

// NewClientForConfig creates a Client from an explicit REST config.
func NewClientForConfig(config *rest.Config) (*Client, error) {
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return &Client{
		clientset: clientset,
		dynamic:   dynamicClient,
	}, nil
}

// NewFromClients creates a Client from pre-configured clients.
// This is useful for testing with fake clients.
func NewFromClients(clientset kubernetes.Interface, dynamicClient dynamic.Interface) *Client {
	return &Client{
		clientset: clientset,
		dynamic:   dynamicClient,
	}
}

// ProbeNamespaces issues a single read against the namespace collection,
// which exists on every cluster and requires only list permission. It is
// the cheapest call that proves a token is accepted and authorised.
func (c *Client) ProbeNamespaces(ctx context.Context) error {
	_, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to list namespaces: %w", err)
	}
	return nil
}
