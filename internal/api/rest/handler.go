// Package rest exposes kubedash over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/credential"
	"github.com/imamik/kubedash/internal/k8s"
	"github.com/imamik/kubedash/internal/rollout"
)

// maxBodyBytes bounds request bodies. Credential payloads are small.
const maxBodyBytes = 256 * 1024

// Credentials is the credential management surface the handler serves.
type Credentials interface {
	Provision(ctx context.Context, req credential.ProvisionRequest) (string, error)
	SetCredential(ctx context.Context, d cluster.Descriptor) error
	ListClusters() []cluster.Summary
	GetCluster(id string) (cluster.Summary, error)
	DeleteCluster(ctx context.Context, id string) error
	TestConnection(ctx context.Context, id string) (bool, error)
}

// Rollouts is the workload surface the handler serves.
type Rollouts interface {
	Rollout(ctx context.Context, target rollout.Target) (*rollout.Outcome, error)
	Restart(ctx context.Context, target rollout.Target) (time.Time, error)
	Status(ctx context.Context, target rollout.Target) (*k8s.WorkloadStatus, error)
}

// Handler serves the REST API.
type Handler struct {
	credentials Credentials
	rollouts    Rollouts
	name        string
	version     string
	defaultTLS  cluster.TLSPolicy
	defaultSA   string
	defaultNS   string
	now         func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithVersion sets the name and version reported by the root endpoint.
func WithVersion(name, version string) Option {
	return func(h *Handler) {
		h.name = name
		h.version = version
	}
}

// WithDefaultTLSPolicy sets the TLS policy for credentials submitted
// without one.
func WithDefaultTLSPolicy(p cluster.TLSPolicy) Option {
	return func(h *Handler) {
		h.defaultTLS = p
	}
}

// WithProvisionDefaults sets the service account and namespace used when a
// provisioning request names none.
func WithProvisionDefaults(serviceAccount, namespace string) Option {
	return func(h *Handler) {
		h.defaultSA = serviceAccount
		h.defaultNS = namespace
	}
}

// NewHandler creates a new REST handler.
func NewHandler(credentials Credentials, rollouts Rollouts, opts ...Option) *Handler {
	h := &Handler{
		credentials: credentials,
		rollouts:    rollouts,
		name:        "kubedash",
		version:     "dev",
		defaultTLS:  cluster.TLSInsecure,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetupRoutes registers all API routes on router.
func SetupRoutes(router *mux.Router, h *Handler) {
	router.HandleFunc("/", h.Root).Methods("GET")
	router.HandleFunc("/health", h.Health).Methods("GET")

	router.HandleFunc("/clusters", h.ListClusters).Methods("GET")
	router.HandleFunc("/clusters/provision", h.Provision).Methods("POST")
	router.HandleFunc("/clusters/{id}", h.GetCluster).Methods("GET")
	router.HandleFunc("/clusters/{id}", h.DeleteCluster).Methods("DELETE")
	router.HandleFunc("/clusters/{id}/credential", h.SetCredential).Methods("PUT")
	router.HandleFunc("/clusters/{id}/test", h.TestConnection).Methods("GET")

	workload := "/clusters/{id}/workloads/{kind}/{namespace}/{name}"
	router.HandleFunc(workload+"/rollout", h.Rollout).Methods("POST")
	router.HandleFunc(workload+"/restart", h.Restart).Methods("POST")
	router.HandleFunc(workload+"/status", h.Status).Methods("GET")

	// Deployment routes of the first release, served against the cluster
	// named by ?cluster= or the default cluster.
	router.HandleFunc("/deployments/{namespace}/{name}/rollout", h.Rollout).Methods("POST")
	router.HandleFunc("/deployments/{namespace}/{name}/restart", h.Restart).Methods("POST")
	router.HandleFunc("/deployments/{namespace}/{name}/status", h.Status).Methods("GET")
}

// Root returns the service name and version.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": h.name, "version": h.version})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// ListClusters returns all stored clusters without credentials.
func (h *Handler) ListClusters(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"clusters": h.credentials.ListClusters()})
}

// GetCluster returns one stored cluster without its credential.
func (h *Handler) GetCluster(w http.ResponseWriter, r *http.Request) {
	summary, err := h.credentials.GetCluster(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// DeleteCluster forgets a stored cluster.
func (h *Handler) DeleteCluster(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.credentials.DeleteCluster(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"cluster_id": id, "status": "deleted"})
}

// ProvisionBody is the POST /clusters/provision payload.
type ProvisionBody struct {
	ClusterID string `json:"cluster_id"`

	SSHHost       string `json:"ssh_host"`
	SSHPort       int    `json:"ssh_port"`
	SSHUser       string `json:"ssh_user"`
	SSHPassword   string `json:"ssh_password"`
	SSHPrivateKey string `json:"ssh_private_key"`

	Host      string `json:"host"`
	Port      int    `json:"port"`
	TLSPolicy string `json:"tls_policy"`
	VerifySSL *bool  `json:"verify_ssl"`

	ServiceAccount string `json:"service_account"`
	Namespace      string `json:"namespace"`
}

// ProvisionResponse is returned after a successful provisioning run.
type ProvisionResponse struct {
	Cluster cluster.Summary `json:"cluster"`
	Token   string          `json:"token"`
}

// Provision bootstraps a credential over SSH and stores it.
func (h *Handler) Provision(w http.ResponseWriter, r *http.Request) {
	var body ProvisionBody
	if !decodeBody(w, r, &body) {
		return
	}

	policy, err := h.tlsPolicy(body.TLSPolicy, body.VerifySSL)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	req := credential.ProvisionRequest{
		SSH: credential.SSHAccess{
			Host:     body.SSHHost,
			Port:     body.SSHPort,
			User:     body.SSHUser,
			Password: body.SSHPassword,
		},
		Host:           body.Host,
		Port:           body.Port,
		ServiceAccount: body.ServiceAccount,
		Namespace:      body.Namespace,
		ClusterID:      body.ClusterID,
		TLSPolicy:      policy,
	}
	if req.ServiceAccount == "" {
		req.ServiceAccount = h.defaultSA
	}
	if req.Namespace == "" {
		req.Namespace = h.defaultNS
	}
	if body.SSHPrivateKey != "" {
		req.SSH.PrivateKey = []byte(body.SSHPrivateKey)
	}

	token, err := h.credentials.Provision(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	summary, err := h.credentials.GetCluster(req.Normalize().ClusterID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, ProvisionResponse{Cluster: summary, Token: token})
}

// CredentialBody is the PUT /clusters/{id}/credential payload. APIURL may
// replace Host and Port.
type CredentialBody struct {
	APIURL    string `json:"api_url"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Token     string `json:"token"`
	TLSPolicy string `json:"tls_policy"`
	VerifySSL *bool  `json:"verify_ssl"`
}

// SetCredential validates and stores a caller-supplied credential.
func (h *Handler) SetCredential(w http.ResponseWriter, r *http.Request) {
	var body CredentialBody
	if !decodeBody(w, r, &body) {
		return
	}

	policy, err := h.tlsPolicy(body.TLSPolicy, body.VerifySSL)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	d := cluster.Descriptor{
		ID:        mux.Vars(r)["id"],
		Host:      body.Host,
		Port:      body.Port,
		Token:     body.Token,
		TLSPolicy: policy,
	}
	if body.APIURL != "" {
		d.Host, d.Port, err = cluster.SplitEndpoint(body.APIURL)
		if err != nil {
			respondBadRequest(w, r, err.Error())
			return
		}
	}

	if err := h.credentials.SetCredential(r.Context(), d); err != nil {
		respondError(w, r, err)
		return
	}

	summary, err := h.credentials.GetCluster(d.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// TestConnection re-validates a stored credential.
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ok, err := h.credentials.TestConnection(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cluster_id": id, "connected": ok})
}

// RolloutResponse reports a finished rollout. Timeouts are reported with
// status "timeout" and a 200.
type RolloutResponse struct {
	Status    string        `json:"status"`
	Message   string        `json:"message"`
	ClusterID string        `json:"cluster_id"`
	Kind      k8s.Kind      `json:"kind"`
	Namespace string        `json:"namespace"`
	Name      string        `json:"name"`
	Replicas  *k8s.Replicas `json:"replicas,omitempty"`
	Duration  float64       `json:"duration"`
}

// Rollout restarts a workload and waits for it to converge.
func (h *Handler) Rollout(w http.ResponseWriter, r *http.Request) {
	target, err := targetFromRequest(r)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	outcome, err := h.rollouts.Rollout(r.Context(), target)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := outcome.Err(); err != nil {
		respondError(w, r, err)
		return
	}

	resp := RolloutResponse{
		Status:    string(outcome.Phase),
		Message:   outcome.Message(),
		ClusterID: outcome.Target.ClusterID,
		Kind:      outcome.Target.Kind,
		Namespace: outcome.Target.Namespace,
		Name:      outcome.Target.Name,
		Duration:  outcome.Elapsed.Seconds(),
	}
	if outcome.Phase == rollout.PhaseSuccess {
		replicas := outcome.Replicas
		resp.Replicas = &replicas
	}
	respondJSON(w, http.StatusOK, resp)
}

// Restart restarts a workload without waiting.
func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	target, err := targetFromRequest(r)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	at, err := h.rollouts.Restart(r.Context(), target)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":       "restarted",
		"workload":     target.String(),
		"restarted_at": at.UTC().Format(time.RFC3339),
	})
}

// Status returns the typed status projection of a workload.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	target, err := targetFromRequest(r)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	status, err := h.rollouts.Status(r.Context(), target)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// targetFromRequest reads the workload from the path. Routes without {id}
// or {kind} take the cluster from ?cluster= and default to deployments.
func targetFromRequest(r *http.Request) (rollout.Target, error) {
	vars := mux.Vars(r)
	query := r.URL.Query()

	target := rollout.Target{
		ClusterID: vars["id"],
		Kind:      k8s.KindDeployment,
		Namespace: vars["namespace"],
		Name:      vars["name"],
	}
	if target.ClusterID == "" {
		target.ClusterID = query.Get("cluster")
	}
	if raw, ok := vars["kind"]; ok {
		kind, err := k8s.ParseKind(raw)
		if err != nil {
			return target, err
		}
		target.Kind = kind
	}

	if raw := query.Get("timeout"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return target, fmt.Errorf("timeout must be a positive number of seconds, got %q", raw)
		}
		target.Deadline = time.Duration(seconds) * time.Second
		if target.Deadline > rollout.MaxDeadline {
			return target, fmt.Errorf("timeout must not exceed %s", rollout.MaxDeadline)
		}
	}
	return target, nil
}

func (h *Handler) tlsPolicy(raw string, verify *bool) (cluster.TLSPolicy, error) {
	switch {
	case raw != "":
		return cluster.ParseTLSPolicy(raw)
	case verify != nil:
		return cluster.TLSPolicyFromVerify(*verify), nil
	default:
		return h.defaultTLS, nil
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondBadRequest(w, r, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
