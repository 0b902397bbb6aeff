package domain

// InferenceError reports a failed call to the hosted classifier.
// Its text is the cause's text so clients see the upstream message as is.
type InferenceError struct {
	ModelID string
	Err     error
}

func (e *InferenceError) Error() string {
	return e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
