package model

// ProcessStatus is the normalized state of a running process instance.
type ProcessStatus struct {
	CurrentStepId *string `json:"currentStepId,omitempty"`
	Finished      bool    `json:"finished"`
	Suspended     bool    `json:"suspended"`
}

// AwaitingUserAction is true when a step is current, the process is not finished and it is suspended.
func (s ProcessStatus) AwaitingUserAction() bool {
	return s.CurrentStepId != nil && !s.Finished && s.Suspended
}

func (s ProcessStatus) Terminal() bool {
	return s.Finished
}

func (s ProcessStatus) StepId() string {
	if s.CurrentStepId == nil {
		return ""
	}
	return *s.CurrentStepId
}
