// Copyright 2025 Jason Sherman
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor implements a small Chain of Responsibility framework. A
// workflow is a Chain of Commands sharing a single Context, which carries
// data, errors, and temp-file bookkeeping across the pipeline stages.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the default context key a command reads its primary input
	// from. The chain populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default context key a command writes its primary
	// output to. The chain moves it to CtxIn before the next command runs.
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution. It is a property
// bag for inter-command data plus the collected errors and the temporary
// files that must be removed when the workflow finishes.
type Context interface {
	// SetContext sets the Go context used for cancellation and trace
	// propagation. The chain swaps it per command span.
	SetContext(context context.Context)

	// GetContext returns the current Go context.
	GetContext() context.Context

	// Add stores a key-value pair and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// Get retrieves a value by key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// AddError records an error under the name of the failing command.
	AddError(key string, err error)

	// GetErrors returns all recorded errors keyed by command name.
	GetErrors() map[string]error

	// FirstError returns the first recorded error in insertion order,
	// or nil when the workflow has not failed.
	FirstError() error

	// HasErrors reports whether any command has failed.
	HasErrors() bool

	// AddTempFile registers a local file for removal on Close.
	AddTempFile(file string)

	// GetTempFiles returns every registered temp file path.
	GetTempFiles() []string

	// Close removes all registered temp files. Callers that create a
	// Context must defer Close so cleanup runs on every exit path.
	Close()
}

// Executable is anything with a single unit of business logic.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic, instrumented unit of work within a chain.
type Command interface {
	Executable

	// GetName returns the command name used in logs, spans, and metrics.
	GetName() string

	// GetInputParam returns the context key holding this command's input.
	GetInputParam() string

	// GetOutputParam returns the context key this command writes to.
	GetOutputParam() string

	// IsExecutable reports whether the context holds everything the
	// command needs. Commands that return false are skipped, not failed.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command,
// so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing
	// after a command records an error. Default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
