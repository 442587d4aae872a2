package cluster

import "errors"

// Error kinds shared across kubedash. Callers branch on them with errors.Is.
var (
	// ErrInvalidArgument indicates a malformed request, such as a bad name
	// or an unsupported workload kind.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates an unknown cluster id.
	ErrNotFound = errors.New("cluster not found")

	// ErrValidationFailed indicates the control plane rejected a credential.
	ErrValidationFailed = errors.New("credential validation failed")

	// ErrRolloutRejected indicates the control plane refused the restart mutation.
	ErrRolloutRejected = errors.New("rollout request rejected")

	// ErrPersistence indicates the credential store could not durably write.
	ErrPersistence = errors.New("credential store persistence failed")
)
