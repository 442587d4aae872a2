package credential

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/imamik/kubedash/internal/cluster"
)

// Provisioning defaults.
const (
	DefaultServiceAccount = "dashboard-admin"
	DefaultNamespace      = "default"
	DefaultSSHPort        = 22
)

// SSHAccess describes how to reach the bootstrap host. Password and
// PrivateKey are alternatives.
type SSHAccess struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	User       string `json:"user"`
	Password   string `json:"password,omitempty"`
	PrivateKey []byte `json:"private_key,omitempty"`
}

// Address returns host:port.
func (a SSHAccess) Address() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// ProvisionRequest is the input of one provisioning run. It is never persisted.
type ProvisionRequest struct {
	SSH SSHAccess `json:"ssh"`

	// Host and Port address the API server. Host defaults to the SSH host.
	Host string `json:"host"`
	Port int    `json:"port"`

	ServiceAccount string            `json:"service_account"`
	Namespace      string            `json:"namespace"`
	ClusterID      string            `json:"cluster_id"`
	TLSPolicy      cluster.TLSPolicy `json:"tls_policy"`
}

// Normalize returns a copy with defaults applied.
func (r ProvisionRequest) Normalize() ProvisionRequest {
	r.SSH.Host = strings.TrimSpace(r.SSH.Host)
	r.Host = strings.TrimSpace(r.Host)
	if r.SSH.Port == 0 {
		r.SSH.Port = DefaultSSHPort
	}
	if r.Host == "" {
		r.Host = r.SSH.Host
	}
	if r.Port == 0 {
		r.Port = cluster.DefaultAPIPort
	}
	if r.ServiceAccount == "" {
		r.ServiceAccount = DefaultServiceAccount
	}
	if r.Namespace == "" {
		r.Namespace = DefaultNamespace
	}
	if r.ClusterID == "" {
		r.ClusterID = cluster.DefaultID
	}
	if policy, err := cluster.ParseTLSPolicy(string(r.TLSPolicy)); err == nil {
		r.TLSPolicy = policy
	}
	return r
}

// Validate checks a normalized request. Errors wrap cluster.ErrInvalidArgument.
func (r ProvisionRequest) Validate() error {
	var problems []string
	if r.SSH.Host == "" {
		problems = append(problems, "ssh host is required")
	}
	if r.SSH.User == "" {
		problems = append(problems, "ssh user is required")
	}
	if r.SSH.Password == "" && len(r.SSH.PrivateKey) == 0 {
		problems = append(problems, "ssh password or private key is required")
	}
	if r.SSH.Port < 1 || r.SSH.Port > 65535 {
		problems = append(problems, fmt.Sprintf("ssh port %d out of range", r.SSH.Port))
	}
	if r.Port < 1 || r.Port > 65535 {
		problems = append(problems, fmt.Sprintf("api port %d out of range", r.Port))
	}
	if strings.TrimSpace(r.ClusterID) == "" {
		problems = append(problems, "cluster id is required")
	}
	for _, msg := range validation.IsDNS1123Label(r.ServiceAccount) {
		problems = append(problems, "service account: "+msg)
	}
	for _, msg := range validation.IsDNS1123Label(r.Namespace) {
		problems = append(problems, "namespace: "+msg)
	}
	if _, err := cluster.ParseTLSPolicy(string(r.TLSPolicy)); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", cluster.ErrInvalidArgument, strings.Join(problems, "; "))
	}
	return nil
}
