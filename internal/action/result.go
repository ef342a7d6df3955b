package action

// Result is the uniform envelope every action produces. Exactly one of the
// three shapes is populated: success with data, failure with an error, or a
// confirmation request with its message.
type Result struct {
	Success              bool   `json:"success"`
	Data                 any    `json:"data,omitempty"`
	Error                string `json:"error,omitempty"`
	RequiresConfirmation bool   `json:"requiresConfirmation,omitempty"`
	ConfirmationMessage  string `json:"confirmationMessage,omitempty"`
}

// OK returns a success result carrying data
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail returns a failure result
func Fail(msg string) Result {
	return Result{Success: false, Error: msg}
}

// NeedConfirmation returns a confirmation-pending result. It is not a
// failure: the caller is expected to re-submit with userConfirmed set.
func NeedConfirmation(msg string) Result {
	return Result{Success: false, RequiresConfirmation: true, ConfirmationMessage: msg}
}
