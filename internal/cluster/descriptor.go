// Package cluster defines the connection descriptor for a remote Kubernetes
// control plane and the error kinds shared by the credential and rollout
// subsystems.
//
// A [Descriptor] is the only persisted entity in kubedash. It is created by a
// successful provisioning run or a direct credential submission, read by every
// operation that targets the cluster, and replaced wholesale when the cluster
// is provisioned again. Read paths expose the [Summary] projection, which never
// carries the bearer token.
package cluster

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultID is the cluster id used when a caller names no cluster and the
// store has no entries to fall back on.
const DefaultID = "default"

// DefaultAPIPort is the conventional kube-apiserver port.
const DefaultAPIPort = 6443

// TLSPolicy controls certificate verification when talking to a control plane.
type TLSPolicy string

const (
	// TLSVerify verifies the API server certificate against system roots.
	TLSVerify TLSPolicy = "verify"
	// TLSInsecure skips certificate verification. Most bootstrap targets use
	// self-signed certificates, so this is the default.
	TLSInsecure TLSPolicy = "insecure"
)

// ParseTLSPolicy converts user input into a TLSPolicy. An empty string yields
// TLSInsecure.
func ParseTLSPolicy(s string) (TLSPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(TLSInsecure), "false", "skip":
		return TLSInsecure, nil
	case string(TLSVerify), "true":
		return TLSVerify, nil
	default:
		return "", fmt.Errorf("invalid tls policy %q: must be %q or %q", s, TLSVerify, TLSInsecure)
	}
}

// TLSPolicyFromVerify maps a verify flag onto a TLSPolicy.
func TLSPolicyFromVerify(verify bool) TLSPolicy {
	if verify {
		return TLSVerify
	}
	return TLSInsecure
}

// Verify reports whether certificates must be verified.
func (p TLSPolicy) Verify() bool {
	return p == TLSVerify
}

// Descriptor holds everything needed to reach one control plane.
type Descriptor struct {
	ID        string    `json:"cluster_id" yaml:"cluster_id"`
	Host      string    `json:"host" yaml:"host"`
	Port      int       `json:"port" yaml:"port"`
	Token     string    `json:"token" yaml:"token"`
	TLSPolicy TLSPolicy `json:"tls_policy" yaml:"tls_policy"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Endpoint returns host:port.
func (d Descriptor) Endpoint() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// APIURL returns the https base URL of the control plane.
func (d Descriptor) APIURL() string {
	return "https://" + d.Endpoint()
}

// Summary returns the read projection without credential material.
func (d Descriptor) Summary() Summary {
	policy := d.TLSPolicy
	if policy == "" {
		policy = TLSInsecure
	}
	return Summary{
		ID:        d.ID,
		Host:      d.Host,
		Port:      d.Port,
		APIURL:    d.APIURL(),
		TLSPolicy: policy,
	}
}

// Validate checks the descriptor invariants enforced before persistence.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("cluster id is required")
	}
	if strings.TrimSpace(d.Host) == "" {
		return fmt.Errorf("cluster %q: host is required", d.ID)
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("cluster %q: port %d out of range", d.ID, d.Port)
	}
	if d.Token == "" {
		return fmt.Errorf("cluster %q: credential must not be empty", d.ID)
	}
	switch d.TLSPolicy {
	case TLSVerify, TLSInsecure:
	default:
		return fmt.Errorf("cluster %q: invalid tls policy %q", d.ID, d.TLSPolicy)
	}
	return nil
}

// Summary is the read projection of a Descriptor.
type Summary struct {
	ID        string    `json:"cluster_id" yaml:"cluster_id"`
	Host      string    `json:"host" yaml:"host"`
	Port      int       `json:"port" yaml:"port"`
	APIURL    string    `json:"api_url" yaml:"api_url"`
	TLSPolicy TLSPolicy `json:"tls_policy" yaml:"tls_policy"`
}

// SplitEndpoint parses "host:port", "host" or "https://host:port" into its
// parts. A missing port yields DefaultAPIPort.
func SplitEndpoint(endpoint string) (string, int, error) {
	s := strings.TrimSpace(endpoint)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return "", 0, fmt.Errorf("endpoint is empty")
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		// No port present.
		if strings.Contains(err.Error(), "missing port") {
			return strings.Trim(s, "[]"), DefaultAPIPort, nil
		}
		return "", 0, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in endpoint %q", endpoint)
	}
	return host, port, nil
}
