package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/evtrack/internal/domain/calculator"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/rpggio/evtrack/internal/domain/timelog"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, tasklist.ErrTaskListNotFound):
		return &APIError{Code: "TASK_LIST_NOT_FOUND", Message: "task list not found", Details: err.Error(), RecoveryHint: "Call list_task_lists for valid names"}
	case errors.Is(err, tasklist.ErrDuplicateName):
		return &APIError{Code: "DUPLICATE_NAME", Message: "task list name already in use", Details: err.Error(), RecoveryHint: "Choose another name or delete the existing task list"}
	case errors.Is(err, tasklist.ErrInvalidDefinition):
		return &APIError{Code: "INVALID_DEFINITION", Message: "invalid task list definition", Details: err.Error(), RecoveryHint: "Read evtrack://docs/definitions"}
	case errors.Is(err, tasklist.ErrRollupCycle):
		return &APIError{Code: "ROLLUP_CYCLE", Message: "rollup contains itself", Details: err.Error(), RecoveryHint: "Remove the rollup from its own children"}
	case errors.Is(err, tasklist.ErrNotLoggable):
		return &APIError{Code: "NOT_LOGGABLE", Message: "task list has no stored time log", Details: err.Error(), RecoveryHint: "Log time against a data task list"}
	case errors.Is(err, timelog.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: "invalid time log entry", Details: err.Error(), RecoveryHint: "Give a task path and positive minutes"}
	case errors.Is(err, calculator.ErrNoSchedule), errors.Is(err, calculator.ErrNoTree):
		return &APIError{Code: "INCOMPLETE_TASK_LIST", Message: "task list is missing its tasks or schedule", Details: err.Error()}
	default:
		return nil
	}
}

// toAPIError maps err, falling back to a generic internal error.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if mapped := MapError(err); mapped != nil {
		return mapped
	}
	return &APIError{Code: "INTERNAL", Message: err.Error()}
}
