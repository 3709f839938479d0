package model

type OnboardingStatus struct {
	CurrentStep    string   `json:"current_step"`
	CompletedSteps []string `json:"completed_steps"`
	Completed      bool     `json:"completed"`
}

// StepCompleted reports whether the named step is already in the
// completed list.
func (s OnboardingStatus) StepCompleted(step string) bool {
	for _, done := range s.CompletedSteps {
		if done == step {
			return true
		}
	}
	return false
}
