package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andrei-samofalov/yapas/pkg/config"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
)

// Exit codes returned by the yapas command.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// FromConfig converts a configuration loading or startup error into a
// *ConfigError. A validation error keeps its first failing field; the others
// are appended to the message.
func FromConfig(err error) *ConfigError {
	var ve config.ValidationError
	if errors.As(err, &ve) && len(ve.Errors) > 0 {
		msgs := make([]string, 0, len(ve.Errors))
		for _, fe := range ve.Errors[1:] {
			msgs = append(msgs, fe.Error())
		}
		msg := ve.Errors[0].Message
		if len(msgs) > 0 {
			msg += "; " + strings.Join(msgs, "; ")
		}
		return NewConfigError(ve.Errors[0].Field, msg)
	}

	var ce *types.ConfigurationError
	if errors.As(err, &ce) {
		return NewConfigError("", ce.Message)
	}

	return NewConfigError("", err.Error())
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cfgErr     *ConfigError
		startupErr *types.ConfigurationError
		ve         config.ValidationError
	)
	if errors.As(err, &cfgErr) || errors.As(err, &startupErr) || errors.As(err, &ve) {
		return ExitConfig
	}
	return ExitFailure
}
