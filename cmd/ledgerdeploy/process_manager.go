/*
Package main implements the ledgerdeploy CLI.

ProcessManager abstracts external process execution. Every docker and
kubectl invocation in the deployment pipeline goes through this
interface so the pipeline's decision logic can be tested with a double
that simulates success, transient failure, and permanent failure,
without real external infrastructure.
*/
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// ProcessManager handles external process operations.
//
// # Description
//
// This interface abstracts all interaction with the container build
// tool and the cluster control plane CLI. Production code uses
// DefaultProcessManager; tests use MockProcessManager.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
//
// # Context Handling
//
// All execution methods accept a context.Context; a cancelled context
// terminates the child process.
type ProcessManager interface {
	// Run executes a command synchronously and returns its stdout.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - args: Command arguments
	//
	// # Outputs
	//
	//   - []byte: Captured stdout
	//   - error: Non-nil if the command fails; stderr is folded into
	//     the error message for diagnosis
	//
	// # Examples
	//
	//   out, err := pm.Run(ctx, "docker", "images", "--format", "{{.Repository}}:{{.Tag}}")
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunWithInput executes a command with data piped to stdin.
	//
	// # Description
	//
	// Used for commands that consume a document on stdin, e.g.
	// submitting manifest bytes via "kubectl apply -f -".
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - input: Data written to the process's stdin
	//   - args: Command arguments
	//
	// # Outputs
	//
	//   - []byte: Captured stdout
	//   - error: Non-nil if the command fails or the stdin write fails
	RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)

	// RunStream executes a command with stdout/stderr attached to the
	// terminal. Used for long-running builds whose progress the user
	// should see live; output is not captured.
	//
	// # Outputs
	//
	//   - error: Non-nil on a non-zero exit
	RunStream(ctx context.Context, name string, args ...string) error

	// LookPath resolves an executable on the search path.
	//
	// # Outputs
	//
	//   - string: Absolute path of the resolved executable
	//   - error: Non-nil if the tool is not installed
	LookPath(name string) (string, error)
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultProcessManager implements ProcessManager using os/exec.
type DefaultProcessManager struct{}

// NewDefaultProcessManager creates the production process manager.
func NewDefaultProcessManager() *DefaultProcessManager {
	return &DefaultProcessManager{}
}

// Run executes a command synchronously and returns its stdout.
func (pm *DefaultProcessManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// RunWithInput executes a command with data piped to stdin.
func (pm *DefaultProcessManager) RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// RunStream executes a command with output attached to the terminal.
func (pm *DefaultProcessManager) RunStream(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// LookPath resolves an executable on the search path.
func (pm *DefaultProcessManager) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockProcessManager is a test double for ProcessManager.
//
// Configure the mock by setting function fields before use. A method
// whose function field is nil panics when called, which keeps tests
// honest about the commands they expect.
//
// # Examples
//
//	mock := &MockProcessManager{
//	    RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
//	        if name == "docker" && args[0] == "images" {
//	            return []byte("ledgerstack/bank-api:latest\n"), nil
//	        }
//	        return nil, fmt.Errorf("unexpected command: %s", name)
//	    },
//	}
type MockProcessManager struct {
	RunFunc          func(ctx context.Context, name string, args ...string) ([]byte, error)
	RunWithInputFunc func(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)
	RunStreamFunc    func(ctx context.Context, name string, args ...string) error
	LookPathFunc     func(name string) (string, error)

	// Calls records all method invocations for verification.
	Calls []ProcessManagerCall

	mu sync.Mutex
}

// ProcessManagerCall records a single method invocation.
type ProcessManagerCall struct {
	Method string
	Name   string
	Args   []string
	Input  []byte
}

// Run delegates to RunFunc and records the call.
func (m *MockProcessManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.record(ProcessManagerCall{Method: "Run", Name: name, Args: args})
	if m.RunFunc == nil {
		panic("MockProcessManager.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// RunWithInput delegates to RunWithInputFunc and records the call.
func (m *MockProcessManager) RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
	m.record(ProcessManagerCall{Method: "RunWithInput", Name: name, Args: args, Input: input})
	if m.RunWithInputFunc == nil {
		panic("MockProcessManager.RunWithInputFunc not set")
	}
	return m.RunWithInputFunc(ctx, name, input, args...)
}

// RunStream delegates to RunStreamFunc and records the call.
func (m *MockProcessManager) RunStream(ctx context.Context, name string, args ...string) error {
	m.record(ProcessManagerCall{Method: "RunStream", Name: name, Args: args})
	if m.RunStreamFunc == nil {
		panic("MockProcessManager.RunStreamFunc not set")
	}
	return m.RunStreamFunc(ctx, name, args...)
}

// LookPath delegates to LookPathFunc and records the call.
func (m *MockProcessManager) LookPath(name string) (string, error) {
	m.record(ProcessManagerCall{Method: "LookPath", Name: name})
	if m.LookPathFunc == nil {
		panic("MockProcessManager.LookPathFunc not set")
	}
	return m.LookPathFunc(name)
}

func (m *MockProcessManager) record(call ProcessManagerCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// GetCalls returns a copy of all recorded calls.
func (m *MockProcessManager) GetCalls() []ProcessManagerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ProcessManagerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Reset clears all recorded calls.
func (m *MockProcessManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// Compile-time interface compliance check.
var (
	_ ProcessManager = (*DefaultProcessManager)(nil)
	_ ProcessManager = (*MockProcessManager)(nil)
)
