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

// Package capacity implements HostCapacity, a pure, read-only view over a
// fleet.FleetSnapshot that answers free-capacity and spare-host queries.
package capacity

import (
	"sort"

	"github.com/samber/lo"

	"github.com/awslabs/spare-capacity-maintainer/pkg/fleet"
	"github.com/awslabs/spare-capacity-maintainer/pkg/resources"
)

// HostCapacity is a pure view over a FleetSnapshot; it never mutates the
// snapshot and holds no state of its own beyond the pointer to it.
type HostCapacity struct {
	snapshot *fleet.FleetSnapshot
}

// New returns a HostCapacity view over snapshot.
func New(snapshot *fleet.FleetSnapshot) *HostCapacity {
	return &HostCapacity{snapshot: snapshot}
}

// FreeCapacityOf returns host's resources minus the sum of its children's
// resources, saturating at zero per axis (P2: FreeCapacityOf(H) + sum(children) == H.Resources).
func (c *HostCapacity) FreeCapacityOf(host fleet.HostID) resources.Resources {
	hostNode := c.snapshot.Node(host)
	var used resources.Resources
	for _, t := range c.snapshot.ChildrenOf(host) {
		used = used.Add(c.snapshot.TenantNode(t).Resources)
	}
	return hostNode.Resources.Subtract(used)
}

// ChildrenOf returns host's tenants in hostname-ascending order.
func (c *HostCapacity) ChildrenOf(host fleet.HostID) []fleet.TenantID {
	return c.snapshot.ChildrenOf(host)
}

// FindSpareHosts returns the k hosts among eligibleHosts with the greatest
// free capacity, ties broken by hostname ascending. If fewer than k eligible
// hosts exist, every eligible host is returned.
func (c *HostCapacity) FindSpareHosts(eligibleHosts []fleet.HostID, k int) []fleet.HostID {
	type scored struct {
		host resources.Resources
		id   fleet.HostID
		name string
	}
	candidates := lo.Map(eligibleHosts, func(h fleet.HostID, _ int) scored {
		return scored{host: c.FreeCapacityOf(h), id: h, name: c.snapshot.Node(h).Name}
	})
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := freeScore(candidates[i].host), freeScore(candidates[j].host)
		if si != sj {
			return si > sj
		}
		return candidates[i].name < candidates[j].name
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	return lo.Map(candidates[:k], func(s scored, _ int) fleet.HostID { return s.id })
}

// freeScore reduces a Resources vector to a single orderable magnitude for
// "greatest free capacity" ranking: the sum of its numeric axes.
func freeScore(r resources.Resources) float64 {
	return r.CPU + r.Memory + r.Disk + r.Bandwidth + r.GPU
}
