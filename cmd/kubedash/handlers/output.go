package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/k8s"
	"github.com/imamik/kubedash/internal/rollout"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	okStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	failedStyle  = lipgloss.NewStyle().Foreground(colorRed)
	warningStyle = lipgloss.NewStyle().Foreground(colorYellow)
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	warnMark  = "[??]"
)

// validateOutput rejects unknown output formats.
func validateOutput(format string) error {
	switch format {
	case "", OutputText, OutputJSON, OutputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q: must be one of %s, %s, %s", format, OutputText, OutputJSON, OutputYAML)
	}
}

// printStructured writes v as JSON or YAML. It reports false for text
// output so the caller renders its own view.
func printStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case OutputJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return true, err
	case OutputYAML:
		b, err := sigsyaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("failed to encode YAML: %w", err)
		}
		_, err = w.Write(b)
		return true, err
	default:
		return false, nil
	}
}

func renderClusters(clusters []cluster.Summary) string {
	if len(clusters) == 0 {
		return dimStyle.Render("No clusters stored.") + "\n"
	}

	idWidth := len("CLUSTER")
	urlWidth := len("API URL")
	for _, c := range clusters {
		idWidth = max(idWidth, len(c.ID))
		urlWidth = max(urlWidth, len(c.APIURL))
	}

	var b strings.Builder
	row := func(id, url, tls string) string {
		return fmt.Sprintf("%-*s  %-*s  %s", idWidth, id, urlWidth, url, tls)
	}
	b.WriteString(headerStyle.Render(row("CLUSTER", "API URL", "TLS")))
	b.WriteString("\n")
	for i, c := range clusters {
		line := row(c.ID, c.APIURL, string(c.TLSPolicy))
		if i == len(clusters)-1 {
			line += dimStyle.Render("  (default)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func renderCluster(c cluster.Summary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Cluster " + c.ID))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  API URL:  %s\n", c.APIURL)
	fmt.Fprintf(&b, "  Host:     %s\n", c.Host)
	fmt.Fprintf(&b, "  Port:     %d\n", c.Port)
	fmt.Fprintf(&b, "  TLS:      %s\n", c.TLSPolicy)
	return b.String()
}

func renderConnection(id string, ok bool) string {
	if ok {
		return okStyle.Render(checkMark) + " cluster " + id + " accepted the stored credential\n"
	}
	return failedStyle.Render(crossMark) + " cluster " + id + " rejected the stored credential or is unreachable\n"
}

func renderOutcome(o *rollout.Outcome) string {
	var mark string
	switch o.Phase {
	case rollout.PhaseSuccess:
		mark = okStyle.Render(checkMark)
	case rollout.PhaseTimeout:
		mark = warningStyle.Render(warnMark)
	default:
		mark = failedStyle.Render(crossMark)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", mark, o.Message())
	b.WriteString(dimStyle.Render(fmt.Sprintf("    cluster %s, elapsed %s", o.Target.ClusterID, o.Elapsed.Round(10*time.Millisecond))))
	b.WriteString("\n")
	if o.Phase != rollout.PhaseFailed {
		fmt.Fprintf(&b, "    replicas: %s\n", formatReplicas(o.Replicas))
	}
	return b.String()
}

func renderStatus(s *k8s.WorkloadStatus) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s/%s", s.Kind, s.Namespace, s.Name)))
	b.WriteString("\n")
	state := warningStyle.Render("progressing")
	if s.Replicas.Converged() {
		state = okStyle.Render("converged")
	}
	fmt.Fprintf(&b, "  State:       %s\n", state)
	fmt.Fprintf(&b, "  Replicas:    %s\n", formatReplicas(s.Replicas))
	fmt.Fprintf(&b, "  Generation:  %d (observed %d)\n", s.Generation, s.ObservedGeneration)
	if len(s.Conditions) > 0 {
		b.WriteString(headerStyle.Render("  Conditions"))
		b.WriteString("\n")
		for _, c := range s.Conditions {
			fmt.Fprintf(&b, "    %-14s %-6s %s\n", c.Type, c.Status, dimStyle.Render(c.Reason))
		}
	}
	return b.String()
}

func formatReplicas(r k8s.Replicas) string {
	return fmt.Sprintf("%d desired, %d ready, %d available, %d updated", r.Spec, r.Ready, r.Available, r.Updated)
}
