package credential

import "fmt"

// Stage names one step of the provisioning protocol.
type Stage string

const (
	StageConnect       Stage = "connect"
	StageIdentity      Stage = "identity"
	StageAuthorization Stage = "authorization"
	StageMint          Stage = "mint"
	StageValidate      Stage = "validate"
)

// ProvisioningError reports the stage a provisioning run failed in.
type ProvisioningError struct {
	Stage  Stage
	Detail string
	Err    error
}

func (e *ProvisioningError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provisioning failed at %s stage: %s", e.Stage, e.Detail)
	}
	return fmt.Sprintf("provisioning failed at %s stage: %s: %v", e.Stage, e.Detail, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
