package utils

import (
	"fmt"
	"os"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateInputFile validates that an input path exists and is a regular file
func ValidateInputFile(input string) error {
	if input == "" {
		return &ValidationError{
			Field:   "input",
			Message: "input path is required",
		}
	}

	fileInfo, err := os.Stat(input)
	if err != nil {
		return &ValidationError{
			Field:   "input",
			Message: "input path does not exist",
			Err:     err,
		}
	}

	if fileInfo.IsDir() {
		return &ValidationError{
			Field:   "input",
			Message: fmt.Sprintf("input must be a file, not a directory: %s", input),
		}
	}

	return nil
}

// ValidateOutputPath validates an output path
func ValidateOutputPath(output string) error {
	if output == "" {
		return &ValidationError{
			Field:   "output",
			Message: "output path is required",
		}
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(output, 0755); err != nil {
		return &ValidationError{
			Field:   "output",
			Message: "failed to create output directory",
			Err:     err,
		}
	}

	return nil
}
