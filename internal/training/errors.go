package training

import "fmt"

// ConfigurationError means a credential or agent mapping is missing, or the
// logical agent is unknown. It is returned before any network call.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Key + " is not configured"
}

// OperationError is a non-success upstream response. Body is the raw
// response text, kept for diagnosis.
type OperationError struct {
	Op     string
	Status int
	Body   string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Body)
}

// ValidationError is malformed caller input, rejected before the proxy is
// asked to do anything.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "invalid " + e.Field
}
