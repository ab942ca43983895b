package cmdutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// Runner abstracts external command execution so callers can swap in a fake
// for tests instead of touching the real system.
type Runner interface {
	// Run executes a command given as argv (command and its arguments).
	Run(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error)

	// LookPath reports the full path of a binary, or an error if it is not
	// installed.
	LookPath(name string) (string, error)
}

// ExecOptions configures command execution.
type ExecOptions struct {
	// Dir is the working directory for the command.
	Dir string

	// Timeout is the maximum execution time.
	// If zero, no timeout is applied.
	Timeout time.Duration

	// Env contains environment variables for the command.
	// Each entry should be in the form "KEY=value".
	Env []string
}

// Result contains the result of a command execution.
type Result struct {
	// Output is the combined stdout and stderr.
	Output []byte

	// ExitCode is the exit code of the command.
	ExitCode int

	// Duration is how long the command took to execute.
	Duration time.Duration
}

// System runs commands on the real system via os/exec.
type System struct{}

// Run executes a command with the given options.
// Returns the result or an error if the command fails.
func (System) Run(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error) {
	if len(cmdParts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	// Apply timeout if specified
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env

	start := time.Now()

	var result Result
	var err error
	result.Output, err = cmd.CombinedOutput()
	result.Duration = time.Since(start)

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		return &result, fmt.Errorf("command failed: %w", err)
	}

	return &result, nil
}

// LookPath reports the full path of a binary on PATH.
func (System) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// RunSimple executes a command with default options (combined output, no
// timeout). This is a convenience wrapper around Run for simple use cases.
func RunSimple(ctx context.Context, r Runner, cmdParts []string) ([]byte, error) {
	result, err := r.Run(ctx, ExecOptions{}, cmdParts)
	if result == nil {
		return nil, err
	}
	return result.Output, err
}

// ParseCommandString parses a shell-quoted command string into parts.
// This is useful when commands are stored as strings with proper quoting.
//
// Example:
//
//	"systemctl restart httpd" -> ["systemctl", "restart", "httpd"]
func ParseCommandString(cmdStr string) ([]string, error) {
	parts, err := shellquote.Split(cmdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command string: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command string")
	}
	return parts, nil
}

// FormatCommand formats command parts into a readable string for messages.
// Example: ["mkcert", "-cert-file", "a b.pem"] -> "mkcert -cert-file 'a b.pem'"
func FormatCommand(cmdParts []string) string {
	if len(cmdParts) == 0 {
		return "<empty command>"
	}

	// Quote arguments that contain spaces or special characters
	quoted := make([]string, len(cmdParts))
	for i, part := range cmdParts {
		if strings.ContainsAny(part, " \t\n\"'") {
			quoted[i] = shellquote.Join(part)
		} else {
			quoted[i] = part
		}
	}

	return strings.Join(quoted, " ")
}
