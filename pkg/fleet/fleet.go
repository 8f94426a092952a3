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

// Package fleet holds the immutable snapshot data model the spare-capacity
// maintainer reasons about: hosts, their tenants, and the flat, index-based
// layout spec.md §9 calls for (arena-backed vectors, no pointer cycles).
package fleet

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/awslabs/spare-capacity-maintainer/pkg/ferrors"
	"github.com/awslabs/spare-capacity-maintainer/pkg/resources"
)

// HostID and TenantID are indices into FleetSnapshot.nodes. They are
// distinct named types so the compiler catches a host passed where a tenant
// was expected, even though both are backed by the same node arena.
type HostID int

// TenantID indexes a tenant node (a node with a non-nil parent).
type TenantID int

// NodeState mirrors spec.md §3's "state ∈ {active, reserved, failed, …}".
type NodeState string

const (
	StateActive   NodeState = "active"
	StateReserved NodeState = "reserved"
	StateFailed   NodeState = "failed"
)

// Allocation is the tenant-only portion of a node: which tenant owns the
// node and whether it has been marked retired (spec.md §4.F step 5, the
// "already in progress" check).
type Allocation struct {
	Owner   string
	Retired bool
}

// Node is a single entry in the flat arena. A host has Parent == nil; a
// tenant has Parent pointing at its host's hostname.
type Node struct {
	Name      string
	Resources resources.Resources
	Parent    *string
	State     NodeState
	Alloc     Allocation
}

// IsHost reports whether n has no parent, i.e. is a physical/virtual host.
func (n Node) IsHost() bool { return n.Parent == nil }

// FleetSnapshot is an immutable, indexed view over a set of nodes. It is
// built once via NewSnapshot and never mutated afterwards; every component
// downstream (HostCapacity, CapacitySolver, CapacityChecker) treats it as a
// read-only value for the duration of one tick.
type FleetSnapshot struct {
	nodes       []Node
	byName      map[string]int // name -> index into nodes
	hostIndex   map[string]HostID
	tenantIndex map[string]TenantID
	childrenOf  map[HostID][]TenantID
	hosts       []HostID
	tenants     []TenantID
}

// NewSnapshot validates and indexes nodes, returning a ferrors.PreconditionViolated
// error combining every violation found (duplicate names, a tenant whose
// parent does not exist, a tenant parented to another tenant) rather than
// stopping at the first one, mirroring the way the teacher's provisioner
// validation accumulates every requirement error via multierr before
// reporting.
func NewSnapshot(nodes []Node) (*FleetSnapshot, error) {
	s := &FleetSnapshot{
		nodes:       append([]Node(nil), nodes...),
		byName:      make(map[string]int, len(nodes)),
		hostIndex:   make(map[string]HostID),
		tenantIndex: make(map[string]TenantID),
		childrenOf:  make(map[HostID][]TenantID),
	}
	var errs error
	for i, n := range s.nodes {
		if _, dup := s.byName[n.Name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate node name %q", n.Name))
			continue
		}
		s.byName[n.Name] = i
	}
	for i, n := range s.nodes {
		if n.IsHost() {
			s.hostIndex[n.Name] = HostID(i)
		}
	}
	for i, n := range s.nodes {
		if n.IsHost() {
			continue
		}
		idx, ok := s.byName[*n.Parent]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("tenant %q's parent %q does not exist in snapshot", n.Name, *n.Parent))
			continue
		}
		parent := s.nodes[idx]
		if !parent.IsHost() {
			errs = multierr.Append(errs, fmt.Errorf("tenant %q's parent %q is not a host", n.Name, *n.Parent))
			continue
		}
		hostID := HostID(idx)
		tenantID := TenantID(i)
		s.tenantIndex[n.Name] = tenantID
		s.childrenOf[hostID] = append(s.childrenOf[hostID], tenantID)
	}
	if errs != nil {
		return nil, ferrors.PreconditionViolated(errs)
	}
	s.hosts = lo.Values(s.hostIndex)
	s.tenants = lo.Values(s.tenantIndex)
	sort.Slice(s.hosts, func(i, j int) bool { return s.nodes[s.hosts[i]].Name < s.nodes[s.hosts[j]].Name })
	for hostID := range s.childrenOf {
		children := s.childrenOf[hostID]
		sort.Slice(children, func(i, j int) bool { return s.nodes[children[i]].Name < s.nodes[children[j]].Name })
		s.childrenOf[hostID] = children
	}
	return s, nil
}

// Hosts returns every host in the snapshot, ordered by hostname ascending.
func (s *FleetSnapshot) Hosts() []HostID { return append([]HostID(nil), s.hosts...) }

// Tenants returns every tenant in the snapshot, in arbitrary but stable order.
func (s *FleetSnapshot) Tenants() []TenantID { return append([]TenantID(nil), s.tenants...) }

// Node returns the underlying node for a host.
func (s *FleetSnapshot) Node(h HostID) Node { return s.nodes[h] }

// TenantNode returns the underlying node for a tenant.
func (s *FleetSnapshot) TenantNode(t TenantID) Node { return s.nodes[t] }

// HostByName resolves a hostname to its HostID.
func (s *FleetSnapshot) HostByName(name string) (HostID, bool) {
	id, ok := s.hostIndex[name]
	return id, ok
}

// TenantByName resolves a tenant name to its TenantID.
func (s *FleetSnapshot) TenantByName(name string) (TenantID, bool) {
	id, ok := s.tenantIndex[name]
	return id, ok
}

// ChildrenOf returns the tenants parented to host h, hostname ascending.
func (s *FleetSnapshot) ChildrenOf(h HostID) []TenantID {
	return append([]TenantID(nil), s.childrenOf[h]...)
}

// Overcommitted reports whether host h's children's summed resources exceed
// h's own resources on any numeric axis.
func (s *FleetSnapshot) Overcommitted(h HostID) bool {
	host := s.nodes[h]
	var sum resources.Resources
	for _, t := range s.childrenOf[h] {
		sum = sum.Add(s.nodes[t].Resources)
	}
	return sum.CPU > host.Resources.CPU ||
		sum.Memory > host.Resources.Memory ||
		sum.Disk > host.Resources.Disk ||
		sum.Bandwidth > host.Resources.Bandwidth ||
		sum.GPU > host.Resources.GPU
}

// OvercommittedHosts returns every overcommitted host, hostname ascending.
func (s *FleetSnapshot) OvercommittedHosts() []HostID {
	return lo.Filter(s.Hosts(), func(h HostID, _ int) bool { return s.Overcommitted(h) })
}
