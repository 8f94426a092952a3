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

// Package config holds SpareCapacityMaintainer's tunables, per spec.md §6.
package config

import "time"

// Options carries the four tunables spec.md §6 recognises, plus
// OvercommitWarningTTL, the overcommit-warning de-duplication window. TickInterval is
// read but never acted on here: per spec.md §1/§5 the host embedder owns
// the periodic tick, so this merely carries the value through to whatever
// scheduler the embedder runs.
type Options struct {
	TickInterval          time.Duration
	MaxIterations         int
	MaxEvictionSubsetSize int
	MaxConsideredNodes    int
	OvercommitWarningTTL  time.Duration
}

// Default returns spec.md §6's defaults: 10000 iterations, eviction subsets
// up to 5 tenants, subset enumeration capped at 31 considered nodes, and a
// five-minute overcommit-warning de-duplication window.
func Default() Options {
	return Options{
		MaxIterations:         10000,
		MaxEvictionSubsetSize: 5,
		MaxConsideredNodes:    31,
		OvercommitWarningTTL:  5 * time.Minute,
	}
}
