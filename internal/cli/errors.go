// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the backend could not be reached or failed
	ExitNetworkError = 5
	// ExitNotFoundError indicates a session was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates the backend did not answer in time
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ConfigError wraps a failure to load or apply configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UsageError reports invalid arguments.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ce *ConfigError
	var ue *UsageError
	switch {
	case errors.As(err, &ce):
		return ExitConfigError
	case errors.As(err, &ue):
		return ExitUsageError
	case errors.Is(err, storage.ErrNotFound):
		return ExitNotFoundError
	case backend.IsType(err, backend.ErrTypeNotConfigured):
		return ExitConfigError
	case backend.IsType(err, backend.ErrTypeTimeout):
		return ExitTimeoutError
	case backend.IsType(err, backend.ErrTypeConnection),
		backend.IsType(err, backend.ErrTypeStatus),
		backend.IsType(err, backend.ErrTypeInvalidResponse):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// turnError presents a backend failure with its short description while
// keeping the cause for ExitCode.
type turnError struct {
	err error
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	return &turnError{err: err}
}

func (e *turnError) Error() string {
	return session.DescribeError(e.err)
}

func (e *turnError) Unwrap() error {
	return e.err
}
