package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/config"
	"github.com/imamik/kubedash/internal/k8s"
	"github.com/imamik/kubedash/internal/rollout"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.Backend = config.StoreMemory
	return cfg
}

// writeConfig writes a config file that keeps the store under a temp dir.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	for _, name := range []string{"KUBEDASH_STORE", "KUBEDASH_STORE_PATH", "K8S_API", "K8S_TOKEN", "KUBEDASH_LOG_FILE"} {
		t.Setenv(name, "")
	}

	dir := t.TempDir()
	storePath := filepath.Join(dir, "clusters.yaml")
	cfgPath := filepath.Join(dir, "kubedash.yaml")
	content := "store:\n  backend: file\n  path: " + storePath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath, storePath
}

func TestNewApp_SeedsDefaultCluster(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.Seed = config.SeedConfig{APIURL: "https://10.0.0.5:6443", Token: "seed-token"}

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	d, err := app.Store.Get(cluster.DefaultID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", d.Host)
	assert.Equal(t, 6443, d.Port)
	assert.Equal(t, "seed-token", d.Token)
	assert.Equal(t, cluster.TLSInsecure, d.TLSPolicy)
}

func TestNewApp_SeedKeepsStoredDefault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "clusters.yaml")

	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, app.Store.Put(ctx, cluster.Descriptor{
		ID: cluster.DefaultID, Host: "192.0.2.1", Port: 6443, Token: "stored", TLSPolicy: cluster.TLSVerify,
	}))

	cfg.Seed = config.SeedConfig{APIURL: "https://10.0.0.5:6443", Token: "seed-token"}
	app, err = NewApp(ctx, cfg)
	require.NoError(t, err)

	d, err := app.Store.Get(cluster.DefaultID)
	require.NoError(t, err)
	assert.Equal(t, "stored", d.Token)
	assert.Equal(t, "192.0.2.1", d.Host)
}

func TestNewApp_Backends(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.Store.Backend = "etcd"
	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store backend "etcd"`)

	cfg = config.Default()
	cfg.Store.Backend = config.StoreSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "nested", "kubedash.db")
	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, app.Store.Put(context.Background(), cluster.Descriptor{
		ID: "prod", Host: "10.0.0.5", Port: 6443, Token: "t", TLSPolicy: cluster.TLSInsecure,
	}))
	assert.Equal(t, 1, app.Store.Len())
	require.NoError(t, app.Close())
	assert.FileExists(t, cfg.Store.SQLitePath)
}

func TestClusterCommands(t *testing.T) {
	cfgPath, storePath := writeConfig(t)
	ctx := context.Background()

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	for _, d := range []cluster.Descriptor{
		{ID: "staging", Host: "10.0.0.7", Port: 6443, Token: "s", TLSPolicy: cluster.TLSInsecure},
		{ID: "prod", Host: "10.0.0.5", Port: 6443, Token: "p", TLSPolicy: cluster.TLSVerify},
	} {
		require.NoError(t, app.Store.Put(ctx, d))
	}
	require.FileExists(t, storePath)

	var out bytes.Buffer
	require.NoError(t, ListClusters(ctx, &out, Options{ConfigPath: cfgPath, Output: OutputJSON}))
	var listed []cluster.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "staging", listed[0].ID)
	assert.Equal(t, "prod", listed[1].ID)
	assert.NotContains(t, out.String(), `"p"`, "tokens are never printed")

	out.Reset()
	require.NoError(t, ListClusters(ctx, &out, Options{ConfigPath: cfgPath}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "prod")
	assert.Contains(t, lines[2], "(default)")

	out.Reset()
	require.NoError(t, GetCluster(ctx, &out, Options{ConfigPath: cfgPath, Output: OutputYAML}, "prod"))
	assert.Contains(t, out.String(), "cluster_id: prod")
	assert.Contains(t, out.String(), "api_url: https://10.0.0.5:6443")

	out.Reset()
	require.NoError(t, DeleteCluster(ctx, &out, Options{ConfigPath: cfgPath}, "prod"))
	assert.Contains(t, out.String(), "deleted cluster prod")

	err = GetCluster(ctx, &out, Options{ConfigPath: cfgPath}, "prod")
	assert.ErrorIs(t, err, cluster.ErrNotFound)

	err = ListClusters(ctx, &out, Options{ConfigPath: cfgPath, Output: "table"})
	assert.ErrorContains(t, err, "unknown output format")
}

func TestTestAllClusters(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	ctx := context.Background()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"kind":"Status","apiVersion":"v1","status":"Failure","reason":"Unauthorized","code":401}`))
			return
		}
		_, _ = w.Write([]byte(`{"kind":"NamespaceList","apiVersion":"v1","metadata":{},"items":[]}`))
	}))
	t.Cleanup(srv.Close)
	addr := srv.Listener.Addr().(*net.TCPAddr)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	for _, d := range []cluster.Descriptor{
		{ID: "staging", Host: "127.0.0.1", Port: addr.Port, Token: "good", TLSPolicy: cluster.TLSInsecure},
		{ID: "prod", Host: "127.0.0.1", Port: addr.Port, Token: "expired", TLSPolicy: cluster.TLSInsecure},
	} {
		require.NoError(t, app.Store.Put(ctx, d))
	}

	var out bytes.Buffer
	err = TestAllClusters(ctx, &out, Options{ConfigPath: cfgPath, Output: OutputJSON})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prod: credential check failed")
	assert.NotContains(t, err.Error(), "staging")

	var results []connectionResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	assert.Equal(t, []connectionResult{
		{ClusterID: "staging", Connected: true},
		{ClusterID: "prod", Connected: false},
	}, results)

	require.NoError(t, app.Store.Delete(ctx, "prod"))
	out.Reset()
	require.NoError(t, TestAllClusters(ctx, &out, Options{ConfigPath: cfgPath}))
	assert.Contains(t, out.String(), "cluster staging accepted the stored credential")
}

func TestSetCredential_InvalidEndpoint(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	err := SetCredential(context.Background(), &bytes.Buffer{}, Options{ConfigPath: cfgPath}, CredentialOptions{ClusterID: "prod"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api url")
}

func TestSecretOrPrompt(t *testing.T) {
	origInteractive, origPrompt := isInteractive, promptSecret
	t.Cleanup(func() { isInteractive, promptSecret = origInteractive, origPrompt })

	var prompted int
	promptSecret = func(context.Context, string, string) (string, error) {
		prompted++
		return "typed", nil
	}

	got, err := secretOrPrompt(context.Background(), "given", "t", "d", "hint")
	require.NoError(t, err)
	assert.Equal(t, "given", got)
	assert.Zero(t, prompted)

	isInteractive = func() bool { return false }
	_, err = secretOrPrompt(context.Background(), "", "t", "d", "a token is required")
	assert.EqualError(t, err, "a token is required")

	isInteractive = func() bool { return true }
	got, err = secretOrPrompt(context.Background(), "", "t", "d", "hint")
	require.NoError(t, err)
	assert.Equal(t, "typed", got)
	assert.Equal(t, 1, prompted)
}

func TestBuildProvisionRequest(t *testing.T) {
	origInteractive := isInteractive
	t.Cleanup(func() { isInteractive = origInteractive })
	isInteractive = func() bool { return false }

	cfg := memoryConfig()
	cfg.Provisioning.ServiceAccount = "ops"
	cfg.Kubernetes.VerifySSL = true
	app := &App{Config: cfg}

	keyFile := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyFile, []byte("KEY"), 0o600))

	req, err := buildProvisionRequest(context.Background(), app, ProvisionOptions{
		ClusterID: "edge", SSHHost: "203.0.113.7", SSHUser: "root", SSHKeyFile: keyFile,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("KEY"), req.SSH.PrivateKey)
	assert.Equal(t, "ops", req.ServiceAccount)
	assert.Equal(t, cluster.TLSVerify, req.TLSPolicy)

	_, err = buildProvisionRequest(context.Background(), app, ProvisionOptions{SSHHost: "203.0.113.7", SSHUser: "root"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh password or key file is required")

	_, err = buildProvisionRequest(context.Background(), app, ProvisionOptions{SSHKeyFile: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorContains(t, err, "failed to read ssh key")
}

func TestReportOutcome(t *testing.T) {
	t.Parallel()

	target := rollout.Target{ClusterID: "prod", Kind: k8s.KindDeployment, Namespace: "default", Name: "web", Deadline: 30 * time.Second}

	var out bytes.Buffer
	err := reportOutcome(&out, OutputJSON, &rollout.Outcome{
		Target: target, Phase: rollout.PhaseSuccess, Elapsed: 2 * time.Second,
		Replicas: k8s.Replicas{Spec: 3, Ready: 3, Available: 3, Updated: 3},
	})
	require.NoError(t, err)
	var result rolloutResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "deployment/default/web", result.Workload)
	require.NotNil(t, result.Replicas)
	assert.Equal(t, int32(3), result.Replicas.Available)

	out.Reset()
	err = reportOutcome(&out, OutputText, &rollout.Outcome{Target: target, Phase: rollout.PhaseTimeout, Elapsed: 30 * time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not complete within 30s")
	assert.Contains(t, out.String(), warnMark)

	out.Reset()
	err = reportOutcome(&out, OutputText, &rollout.Outcome{
		Target: target, Phase: rollout.PhaseFailed, Reason: rollout.ReasonRequestRejected, Cause: errors.New("forbidden"),
	})
	assert.ErrorIs(t, err, cluster.ErrRolloutRejected)
	assert.Contains(t, out.String(), crossMark)
	assert.NotContains(t, out.String(), "replicas:")
}

func TestWorkloadOptionsTarget(t *testing.T) {
	t.Parallel()

	target, err := WorkloadOptions{Kind: "sts", Namespace: "data", Name: "db", Timeout: time.Minute}.target()
	require.NoError(t, err)
	assert.Equal(t, k8s.KindStatefulSet, target.Kind)
	assert.Equal(t, time.Minute, target.Deadline)
	assert.Empty(t, target.ClusterID)

	_, err = WorkloadOptions{Kind: "job"}.target()
	assert.ErrorContains(t, err, "unsupported workload kind")
}

func TestRenderClusters(t *testing.T) {
	t.Parallel()

	assert.Contains(t, renderClusters(nil), "No clusters stored.")

	out := renderClusters([]cluster.Summary{
		{ID: "a", APIURL: "https://10.0.0.1:6443", TLSPolicy: cluster.TLSInsecure},
		{ID: "production", APIURL: "https://10.0.0.2:6443", TLSPolicy: cluster.TLSVerify},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.NotContains(t, lines[1], "(default)")
	assert.Contains(t, lines[2], "(default)")
}

func TestRenderStatus(t *testing.T) {
	t.Parallel()

	out := renderStatus(&k8s.WorkloadStatus{
		Kind: k8s.KindDaemonSet, Namespace: "kube-system", Name: "agent",
		Replicas:   k8s.Replicas{Spec: 2, Ready: 1, Available: 1},
		Conditions: []k8s.Condition{{Type: "Available", Status: "False", Reason: "MinimumReplicasUnavailable"}},
	})
	assert.Contains(t, out, "daemonset kube-system/agent")
	assert.Contains(t, out, "progressing")
	assert.Contains(t, out, "2 desired, 1 ready, 1 available")
	assert.Contains(t, out, "MinimumReplicasUnavailable")
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, time.Second, 0) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

func TestServe_ListenError(t *testing.T) {
	t.Parallel()

	srv := &http.Server{Addr: "256.0.0.1:99999", ReadHeaderTimeout: time.Second}
	err := serve(context.Background(), srv, time.Second, 0)
	assert.ErrorContains(t, err, "failed to listen")
}
