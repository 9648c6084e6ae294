package path

import "errors"

// ErrMalformedSnapshot is returned when persisted data is not a well-formed LearningPath.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// ErrValidation is returned when an operation is called with invalid arguments.
var ErrValidation = errors.New("validation error")
