package k8s

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
)

// RestartedAtAnnotation is the pod template annotation kubectl sets for
// `kubectl rollout restart`. Changing it forces new pods.
const RestartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// Kind is a scalable workload kind that supports restarts.
type Kind string

const (
	KindDeployment  Kind = "deployment"
	KindDaemonSet   Kind = "daemonset"
	KindStatefulSet Kind = "statefulset"
)

// Kinds lists the supported workload kinds.
var Kinds = []Kind{KindDeployment, KindDaemonSet, KindStatefulSet}

// kindInfo is the only place the workload kinds differ: where they live and
// which status fields carry the replica counts.
type kindInfo struct {
	resource string
	replicas func(p *workloadProjection) Replicas
}

var kindTable = map[Kind]kindInfo{
	KindDeployment:  {resource: "deployments", replicas: replicaSetStyle},
	KindStatefulSet: {resource: "statefulsets", replicas: replicaSetStyle},
	KindDaemonSet:   {resource: "daemonsets", replicas: daemonSetStyle},
}

// ParseKind accepts singular, plural and capitalised spellings
// ("Deployment", "deployments", "deploy").
func ParseKind(s string) (Kind, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	switch k {
	case "deployment", "deployments", "deploy":
		return KindDeployment, nil
	case "daemonset", "daemonsets", "ds":
		return KindDaemonSet, nil
	case "statefulset", "statefulsets", "sts":
		return KindStatefulSet, nil
	default:
		return "", fmt.Errorf("unsupported workload kind %q: must be one of deployment, daemonset, statefulset", s)
	}
}

// Resource returns the apps/v1 group-version-resource for the kind.
func (k Kind) Resource() schema.GroupVersionResource {
	return appsv1.SchemeGroupVersion.WithResource(kindTable[k].resource)
}

// Replicas is the replica accounting common to all workload kinds.
type Replicas struct {
	Spec        int32 `json:"spec"`
	Ready       int32 `json:"ready"`
	Available   int32 `json:"available"`
	Updated     int32 `json:"updated"`
	Unavailable int32 `json:"unavailable"`
}

// Converged reports whether every desired replica is ready and available.
// A workload scaled to zero never converges.
func (r Replicas) Converged() bool {
	return r.Spec > 0 && r.Ready == r.Spec && r.Available == r.Spec
}

// Condition is a trimmed workload status condition.
type Condition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// WorkloadStatus is the typed status projection of a workload.
type WorkloadStatus struct {
	Kind               Kind        `json:"kind"`
	Namespace          string      `json:"namespace"`
	Name               string      `json:"name"`
	Generation         int64       `json:"generation"`
	ObservedGeneration int64       `json:"observed_generation"`
	Replicas           Replicas    `json:"replicas"`
	Conditions         []Condition `json:"conditions"`
}

// workloadProjection decodes only the fields kubedash reads. Unknown fields
// in the server response are ignored.
type workloadProjection struct {
	Metadata struct {
		Name       string `json:"name"`
		Namespace  string `json:"namespace"`
		Generation int64  `json:"generation"`
	} `json:"metadata"`
	Spec struct {
		Replicas *int32 `json:"replicas,omitempty"`
	} `json:"spec"`
	Status struct {
		ObservedGeneration int64 `json:"observedGeneration"`

		// Deployment and StatefulSet.
		ReadyReplicas       int32 `json:"readyReplicas"`
		AvailableReplicas   int32 `json:"availableReplicas"`
		UpdatedReplicas     int32 `json:"updatedReplicas"`
		UnavailableReplicas int32 `json:"unavailableReplicas"`

		// DaemonSet.
		DesiredNumberScheduled int32 `json:"desiredNumberScheduled"`
		NumberReady            int32 `json:"numberReady"`
		NumberAvailable        int32 `json:"numberAvailable"`
		NumberUnavailable      int32 `json:"numberUnavailable"`
		UpdatedNumberScheduled int32 `json:"updatedNumberScheduled"`

		Conditions []Condition `json:"conditions"`
	} `json:"status"`
}

func replicaSetStyle(p *workloadProjection) Replicas {
	var spec int32
	if p.Spec.Replicas != nil {
		spec = *p.Spec.Replicas
	}
	unavailable := p.Status.UnavailableReplicas
	if unavailable == 0 && spec > p.Status.AvailableReplicas {
		// StatefulSets do not report unavailable replicas.
		unavailable = spec - p.Status.AvailableReplicas
	}
	return Replicas{
		Spec:        spec,
		Ready:       p.Status.ReadyReplicas,
		Available:   p.Status.AvailableReplicas,
		Updated:     p.Status.UpdatedReplicas,
		Unavailable: unavailable,
	}
}

func daemonSetStyle(p *workloadProjection) Replicas {
	return Replicas{
		Spec:        p.Status.DesiredNumberScheduled,
		Ready:       p.Status.NumberReady,
		Available:   p.Status.NumberAvailable,
		Updated:     p.Status.UpdatedNumberScheduled,
		Unavailable: p.Status.NumberUnavailable,
	}
}

// RestartPatch builds the merge patch that touches the restart annotation.
func RestartPatch(at time.Time) ([]byte, error) {
	patch := map[string]any{
		"spec": map[string]any{
			"template": map[string]any{
				"metadata": map[string]any{
					"annotations": map[string]string{
						RestartedAtAnnotation: at.UTC().Format(time.RFC3339),
					},
				},
			},
		},
	}
	return json.Marshal(patch)
}

// RestartWorkload forces the workload's pods to be recreated by touching the
// restart annotation on its pod template.
func (c *Client) RestartWorkload(ctx context.Context, kind Kind, namespace, name string, at time.Time) error {
	if _, ok := kindTable[kind]; !ok {
		return fmt.Errorf("unsupported workload kind %q", kind)
	}

	data, err := RestartPatch(at)
	if err != nil {
		return fmt.Errorf("failed to build restart patch: %w", err)
	}

	_, err = c.dynamic.Resource(kind.Resource()).Namespace(namespace).
		Patch(ctx, name, types.MergePatchType, data, metav1.PatchOptions{FieldManager: fieldManager})
	if err != nil {
		return fmt.Errorf("failed to patch %s %s/%s: %w", kind, namespace, name, err)
	}
	return nil
}

// GetWorkloadStatus reads the workload and projects its replica status.
func (c *Client) GetWorkloadStatus(ctx context.Context, kind Kind, namespace, name string) (*WorkloadStatus, error) {
	info, ok := kindTable[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported workload kind %q", kind)
	}

	obj, err := c.dynamic.Resource(kind.Resource()).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s/%s: %w", kind, namespace, name, err)
	}

	var proj workloadProjection
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, &proj); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s/%s: %w", kind, namespace, name, err)
	}

	conditions := proj.Status.Conditions
	if conditions == nil {
		conditions = []Condition{}
	}

	return &WorkloadStatus{
		Kind:               kind,
		Namespace:          proj.Metadata.Namespace,
		Name:               proj.Metadata.Name,
		Generation:         proj.Metadata.Generation,
		ObservedGeneration: proj.Status.ObservedGeneration,
		Replicas:           info.replicas(&proj),
		Conditions:         conditions,
	}, nil
}
