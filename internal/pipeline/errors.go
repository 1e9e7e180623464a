package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorType int

const (
	ErrContentFetch ErrorType = iota
	ErrScenarioGeneration
	ErrImageSynthesis
	ErrAudioSynthesis
	ErrAssetCountMismatch
	ErrAssembly
	ErrBgmMix
	ErrTranscription
	ErrStore
	ErrConfig
	ErrUnknown
)

// PipelineError carries the failing stage, a message, loose context and the
// underlying cause through the job record and progress events.
type PipelineError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *PipelineError {
	return &PipelineError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *PipelineError {
	return &PipelineError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *PipelineError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		var ctxParts []string
		for k, v := range e.Context {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrContentFetch:
		return "ContentFetch"
	case ErrScenarioGeneration:
		return "ScenarioGeneration"
	case ErrImageSynthesis:
		return "ImageSynthesis"
	case ErrAudioSynthesis:
		return "AudioSynthesis"
	case ErrAssetCountMismatch:
		return "AssetCountMismatch"
	case ErrAssembly:
		return "Assembly"
	case ErrBgmMix:
		return "BgmMix"
	case ErrTranscription:
		return "Transcription"
	case ErrStore:
		return "Store"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *PipelineError {
	return NewErrorWithCause(errorType, message, err)
}
