package reviews

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrExportUnavailable = errors.New("export only available for completed reviews")
	ErrLLMFailure        = errors.New("llm request failed")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeLLM        = "LLM_ERROR"
	ErrorCodeExport     = "EXPORT_UNAVAILABLE"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)
