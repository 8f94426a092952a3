/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ferrors defines the error kinds of the spare-capacity maintainer's
// tick loop and wraps causes with structured context via operatorpkg/serrors,
// the same mechanism the teacher uses in pkg/batcher/createfleet.go.
package ferrors

import (
	"errors"

	"github.com/awslabs/operatorpkg/serrors"
)

// Kind classifies a tick-level failure, per spec.md §7.
type Kind string

const (
	// KindPreconditionViolated: the snapshot breaks a data-model invariant
	// (a tenant's parent is not a host) or arithmetic hit a categorical-axis
	// mismatch. Fatal for the tick.
	KindPreconditionViolated Kind = "PreconditionViolated"
	// KindBudgetExhausted: the solver reached maxIterations without finding
	// (or definitively ruling out) a plan.
	KindBudgetExhausted Kind = "BudgetExhausted"
	// KindDeployerRefused: the deployer declined to execute a move.
	KindDeployerRefused Kind = "DeployerRefused"
	// KindSnapshotUnavailable: the snapshot provider failed.
	KindSnapshotUnavailable Kind = "SnapshotUnavailable"
)

// taggedError carries a Kind alongside a structured serrors.Error so both
// log.FromContext(ctx).Error(err, ...) (which unwraps serrors' key/values)
// and Is() classification work off the same wrapped error.
type taggedError struct {
	error
	kind Kind
}

func (t *taggedError) Unwrap() error { return t.error }

// Wrap attaches kind k and any additional key/value context to err.
func Wrap(k Kind, err error, keysAndValues ...any) error {
	if err == nil {
		return nil
	}
	structured := serrors.Wrap(err, append([]any{"kind", string(k)}, keysAndValues...)...)
	return &taggedError{error: structured, kind: k}
}

// PreconditionViolated wraps err as a KindPreconditionViolated failure.
func PreconditionViolated(err error, keysAndValues ...any) error {
	return Wrap(KindPreconditionViolated, err, keysAndValues...)
}

// BudgetExhausted wraps err as a KindBudgetExhausted failure.
func BudgetExhausted(err error, keysAndValues ...any) error {
	return Wrap(KindBudgetExhausted, err, keysAndValues...)
}

// DeployerRefused wraps err as a KindDeployerRefused failure.
func DeployerRefused(err error, keysAndValues ...any) error {
	return Wrap(KindDeployerRefused, err, keysAndValues...)
}

// SnapshotUnavailable wraps err as a KindSnapshotUnavailable failure.
func SnapshotUnavailable(err error, keysAndValues ...any) error {
	return Wrap(KindSnapshotUnavailable, err, keysAndValues...)
}

// Is reports whether err (or any error it wraps) was tagged with kind k.
func Is(err error, k Kind) bool {
	for err != nil {
		if t, ok := err.(*taggedError); ok {
			if t.kind == k {
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}
