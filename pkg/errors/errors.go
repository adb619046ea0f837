package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ResourceNotFoundError struct {
	Kind string
	ID   string
}

func NewResourceNotFoundError(kind, id string) *ResourceNotFoundError {
	return &ResourceNotFoundError{Kind: kind, ID: id}
}

func (e *ResourceNotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

type UnauthorizedError struct {
	Reason string
}

func NewUnauthorizedError(reason string) *UnauthorizedError {
	return &UnauthorizedError{Reason: reason}
}

func (e *UnauthorizedError) Error() string {
	if e.Reason == "" {
		return "unauthorized"
	}
	return fmt.Sprintf("unauthorized: %s", e.Reason)
}

func IsUnauthorizedError(err error) bool {
	var e *UnauthorizedError
	return errors.As(err, &e)
}

// UnexpectedStatusError is returned when the backend answers with a status
// code the caller did not ask for.
type UnexpectedStatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func NewUnexpectedStatusError(method, path string, code int, body string) *UnexpectedStatusError {
	return &UnexpectedStatusError{Method: method, Path: path, StatusCode: code, Body: body}
}

func (e *UnexpectedStatusError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("%s %s: unexpected status code %d: %s", e.Method, e.Path, e.StatusCode, body)
}

func IsUnexpectedStatusError(err error) bool {
	var e *UnexpectedStatusError
	return errors.As(err, &e)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *UnexpectedStatusError
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

type TaskFailedError struct {
	TaskID  string
	State   string
	Message string
	Logs    []string
}

func NewTaskFailedError(taskID, state, message string, logs []string) *TaskFailedError {
	return &TaskFailedError{TaskID: taskID, State: state, Message: message, Logs: logs}
}

func (e *TaskFailedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "task %s finished in state %s", e.TaskID, e.State)
	if e.Message != "" {
		fmt.Fprintf(&sb, ": %s", e.Message)
	}
	if len(e.Logs) > 0 {
		fmt.Fprintf(&sb, " (logs: %s)", strings.Join(e.Logs, " "))
	}
	return sb.String()
}

func IsTaskFailedError(err error) bool {
	var e *TaskFailedError
	return errors.As(err, &e)
}

type TaskTimeoutError struct {
	TaskID    string
	Timeout   time.Duration
	LastState string
	Message   string
}

func NewTaskTimeoutError(taskID string, timeout time.Duration, lastState, message string) *TaskTimeoutError {
	return &TaskTimeoutError{TaskID: taskID, Timeout: timeout, LastState: lastState, Message: message}
}

func (e *TaskTimeoutError) Error() string {
	msg := fmt.Sprintf("task %s did not complete within %s (last state %q)", e.TaskID, e.Timeout, e.LastState)
	if e.Message != "" {
		msg = e.Message + ": " + msg
	}
	return msg
}

func IsTaskTimeoutError(err error) bool {
	var e *TaskTimeoutError
	return errors.As(err, &e)
}

type UnknownTaskStateError struct {
	TaskID string
	State  string
}

func NewUnknownTaskStateError(taskID, state string) *UnknownTaskStateError {
	return &UnknownTaskStateError{TaskID: taskID, State: state}
}

func (e *UnknownTaskStateError) Error() string {
	return fmt.Sprintf("task %s reported unknown state %q", e.TaskID, e.State)
}

func IsUnknownTaskStateError(err error) bool {
	var e *UnknownTaskStateError
	return errors.As(err, &e)
}

type RootTaskNotFoundError struct {
	Name       string
	ResourceID string
	ParentName string
}

func NewRootTaskNotFoundError(name, resourceID, parentName string) *RootTaskNotFoundError {
	return &RootTaskNotFoundError{Name: name, ResourceID: resourceID, ParentName: parentName}
}

func (e *RootTaskNotFoundError) Error() string {
	return fmt.Sprintf("root task not found: name %q, resource %q, parent %q", e.Name, e.ResourceID, e.ParentName)
}

func IsRootTaskNotFoundError(err error) bool {
	var e *RootTaskNotFoundError
	return errors.As(err, &e)
}

type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func NewInvalidConfigurationError(field, reason string) *InvalidConfigurationError {
	return &InvalidConfigurationError{Field: field, Reason: reason}
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

func IsInvalidConfigurationError(err error) bool {
	var e *InvalidConfigurationError
	return errors.As(err, &e)
}

// MissingTaskReferenceError is returned when an accepted response carries
// neither a Location header nor a taskUri.
type MissingTaskReferenceError struct {
	Path string
}

func NewMissingTaskReferenceError(path string) *MissingTaskReferenceError {
	return &MissingTaskReferenceError{Path: path}
}

func (e *MissingTaskReferenceError) Error() string {
	return fmt.Sprintf("response from %s carries no task reference", e.Path)
}

func IsMissingTaskReferenceError(err error) bool {
	var e *MissingTaskReferenceError
	return errors.As(err, &e)
}
