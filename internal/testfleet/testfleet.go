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

// Package testfleet provides small fleet.FleetSnapshot builders shared
// across the module's test suites, mirroring the teacher's shared fake
// package idiom.
package testfleet

import (
	"github.com/awslabs/spare-capacity-maintainer/pkg/fleet"
	"github.com/awslabs/spare-capacity-maintainer/pkg/resources"
)

// Builder accumulates nodes for a single fleet.NewSnapshot call.
type Builder struct {
	nodes []fleet.Node
}

// New returns an empty Builder.
func New() *Builder { return &Builder{} }

// Host adds a host node named name with the given resources, and returns the
// Builder for chaining.
func (b *Builder) Host(name string, r resources.Resources) *Builder {
	b.nodes = append(b.nodes, fleet.Node{Name: name, Resources: r, State: fleet.StateActive})
	return b
}

// Tenant adds a tenant node named name, parented to host, owning the given
// resources. Its Allocation has Owner set to name and is not retired.
func (b *Builder) Tenant(name, host string, r resources.Resources) *Builder {
	return b.TenantWithAllocation(name, host, r, fleet.Allocation{Owner: name})
}

// RetiredTenant adds a tenant already marked retired, for exercising the
// "move already in progress" path (spec.md §4.F step 5 / §9 Open Question).
func (b *Builder) RetiredTenant(name, host string, r resources.Resources) *Builder {
	return b.TenantWithAllocation(name, host, r, fleet.Allocation{Owner: name, Retired: true})
}

// TenantWithAllocation adds a tenant with an explicit Allocation.
func (b *Builder) TenantWithAllocation(name, host string, r resources.Resources, alloc fleet.Allocation) *Builder {
	parent := host
	b.nodes = append(b.nodes, fleet.Node{Name: name, Resources: r, Parent: &parent, State: fleet.StateActive, Alloc: alloc})
	return b
}

// Build constructs the FleetSnapshot, panicking on an invalid fleet: test
// fixtures are expected to be valid by construction, so a panic here means
// the test itself is wrong, not the code under test.
func (b *Builder) Build() *fleet.FleetSnapshot {
	snap, err := fleet.NewSnapshot(b.nodes)
	if err != nil {
		panic(err)
	}
	return snap
}
