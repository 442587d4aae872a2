package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/imamik/kubedash/internal/util/async"
)

// testConcurrency bounds how many clusters are checked at once.
const testConcurrency = 4

type connectionResult struct {
	ClusterID string `json:"cluster_id"`
	Connected bool   `json:"connected"`
}

// ListClusters prints every stored cluster. The last one is the default.
func ListClusters(ctx context.Context, w io.Writer, opts Options) error {
	if err := validateOutput(opts.Output); err != nil {
		return err
	}
	_, app, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	clusters := app.Credentials.ListClusters()
	if done, err := printStructured(w, opts.Output, clusters); done {
		return err
	}
	_, err = io.WriteString(w, renderClusters(clusters))
	return err
}

// GetCluster prints one stored cluster without its credential.
func GetCluster(ctx context.Context, w io.Writer, opts Options, id string) error {
	if err := validateOutput(opts.Output); err != nil {
		return err
	}
	_, app, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	summary, err := app.Credentials.GetCluster(id)
	if err != nil {
		return err
	}
	if done, err := printStructured(w, opts.Output, summary); done {
		return err
	}
	_, err = io.WriteString(w, renderCluster(summary))
	return err
}

// DeleteCluster forgets a stored cluster.
func DeleteCluster(ctx context.Context, w io.Writer, opts Options, id string) error {
	ctx, app, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if err := app.Credentials.DeleteCluster(ctx, id); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s deleted cluster %s\n", okStyle.Render(checkMark), id)
	return err
}

// TestCluster re-validates a stored credential. A rejected credential is
// reported as an error so the exit status reflects it.
func TestCluster(ctx context.Context, w io.Writer, opts Options, id string) error {
	if err := validateOutput(opts.Output); err != nil {
		return err
	}
	ctx, app, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	ok, err := app.Credentials.TestConnection(ctx, id)
	if err != nil {
		return err
	}

	done, err := printStructured(w, opts.Output, connectionResult{ClusterID: id, Connected: ok})
	if err != nil {
		return err
	}
	if !done {
		if _, err := io.WriteString(w, renderConnection(id, ok)); err != nil {
			return err
		}
	}

	if !ok {
		return fmt.Errorf("cluster %s: credential check failed", id)
	}
	return nil
}

// TestAllClusters re-validates every stored credential in parallel. Any
// rejected credential makes the command fail after all results are printed.
func TestAllClusters(ctx context.Context, w io.Writer, opts Options) error {
	if err := validateOutput(opts.Output); err != nil {
		return err
	}
	ctx, app, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	clusters := app.Credentials.ListClusters()
	results := make([]connectionResult, len(clusters))
	tasks := make([]async.Task, len(clusters))
	for i, c := range clusters {
		results[i].ClusterID = c.ID
		tasks[i] = async.Task{
			Name: c.ID,
			Func: func(ctx context.Context) error {
				ok, err := app.Credentials.TestConnection(ctx, c.ID)
				if err != nil {
					return err
				}
				results[i].Connected = ok
				if !ok {
					return fmt.Errorf("credential check failed")
				}
				return nil
			},
		}
	}
	checkErr := async.RunParallel(ctx, tasks, testConcurrency)

	done, err := printStructured(w, opts.Output, results)
	if err != nil {
		return err
	}
	if !done {
		var b strings.Builder
		for _, r := range results {
			b.WriteString(renderConnection(r.ClusterID, r.Connected))
		}
		if len(results) == 0 {
			b.WriteString(dimStyle.Render("No clusters stored.") + "\n")
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return checkErr
}
