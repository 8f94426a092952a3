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

// Package checker implements CapacityChecker: the worst-case host-loss walk
// that produces a fleet.HostFailurePath, per spec.md §4.E.
package checker

import (
	"sort"

	"github.com/awslabs/spare-capacity-maintainer/pkg/capacity"
	"github.com/awslabs/spare-capacity-maintainer/pkg/fleet"
	"github.com/awslabs/spare-capacity-maintainer/pkg/resources"
)

// Checker computes worst-case host-loss paths and overcommit anomalies over
// a single fleet.FleetSnapshot.
type Checker struct {
	snapshot *fleet.FleetSnapshot
	capacity *capacity.HostCapacity
}

// New returns a Checker over snapshot.
func New(snapshot *fleet.FleetSnapshot) *Checker {
	return &Checker{snapshot: snapshot, capacity: capacity.New(snapshot)}
}

// WorstCaseHostLoss walks simulated host losses, starting from every host in
// turn, and returns the shortest path whose simultaneous loss first produces
// an unplaceable tenant. It returns (nil, false) if the fleet can withstand
// the loss of every host (effectively infinite slack).
func (c *Checker) WorstCaseHostLoss() (*fleet.HostFailurePath, bool) {
	var shortest *fleet.HostFailurePath
	for _, h0 := range c.startingOrder() {
		path, offending, failed := c.simulate(h0)
		if !failed {
			continue
		}
		candidate := &fleet.HostFailurePath{Hosts: path, Offending: offending}
		if shortest == nil || len(candidate.Hosts) < len(shortest.Hosts) {
			shortest = candidate
		}
	}
	return shortest, shortest != nil
}

// OvercommittedHosts enumerates every host whose children's summed resources
// exceed its own envelope on some axis.
func (c *Checker) OvercommittedHosts() []fleet.HostID {
	return c.snapshot.OvercommittedHosts()
}

// startingOrder returns every host ordered by descending free capacity, then
// hostname ascending — the order in which starting choices of h0 are tried.
func (c *Checker) startingOrder() []fleet.HostID {
	hosts := c.snapshot.Hosts()
	sort.Slice(hosts, func(i, j int) bool {
		si, sj := magnitude(c.capacity.FreeCapacityOf(hosts[i])), magnitude(c.capacity.FreeCapacityOf(hosts[j]))
		if si != sj {
			return si > sj
		}
		return c.snapshot.Node(hosts[i]).Name < c.snapshot.Node(hosts[j]).Name
	})
	return hosts
}

// simulate walks one worst-case path starting with the loss of h0, returning
// the path, the first tenant that could not be placed (if any), and whether
// the walk ended in failure. A walk that loses every host without ever
// producing an unplaceable tenant returns failed=false.
//
// Both the free-capacity map and the host->resident-tenants map are threaded
// through the walk and updated after every step: a host lost later in the
// path must be scored against the tenants it actually holds at that point
// (including ones relocated onto it by earlier steps), never against its
// original, static children.
func (c *Checker) simulate(h0 fleet.HostID) ([]fleet.HostID, *fleet.TenantID, bool) {
	working := make(map[fleet.HostID]resources.Resources, len(c.snapshot.Hosts()))
	residents := make(map[fleet.HostID][]fleet.TenantID, len(c.snapshot.Hosts()))
	for _, h := range c.snapshot.Hosts() {
		working[h] = c.capacity.FreeCapacityOf(h)
		residents[h] = c.capacity.ChildrenOf(h)
	}
	removed := map[fleet.HostID]bool{h0: true}
	path := []fleet.HostID{h0}

	failCount, offending, afterWorking, afterResidents := c.simulateLoss(h0, working, residents, removed)
	if failCount > 0 {
		return path, offending, true
	}
	working, residents = afterWorking, afterResidents

	for {
		remaining := remainingHosts(c.snapshot.Hosts(), removed)
		if len(remaining) == 0 {
			return path, nil, false
		}
		next, nextFailCount, nextOffending, nextWorking, nextResidents := c.mostDamaging(remaining, working, residents, removed)
		path = append(path, next)
		removed[next] = true
		if nextFailCount > 0 {
			return path, nextOffending, true
		}
		working, residents = nextWorking, nextResidents
	}
}

// mostDamaging picks, among candidates, the host whose simulated loss
// maximises the number of newly unplaceable tenants, tie-broken by the
// descending size of the first offending tenant then hostname ascending.
func (c *Checker) mostDamaging(candidates []fleet.HostID, working map[fleet.HostID]resources.Resources, residents map[fleet.HostID][]fleet.TenantID, removed map[fleet.HostID]bool) (fleet.HostID, int, *fleet.TenantID, map[fleet.HostID]resources.Resources, map[fleet.HostID][]fleet.TenantID) {
	var best fleet.HostID
	bestFail := -1
	var bestOffending *fleet.TenantID
	var bestWorking map[fleet.HostID]resources.Resources
	var bestResidents map[fleet.HostID][]fleet.TenantID
	bestSize := -1.0
	haveBest := false

	for _, h := range candidates {
		trialRemoved := map[fleet.HostID]bool{h: true}
		for k := range removed {
			trialRemoved[k] = true
		}
		trialWorking := copyWorking(working)
		trialResidents := copyResidents(residents)
		failCount, offending, afterWorking, afterResidents := c.simulateLoss(h, trialWorking, trialResidents, trialRemoved)
		size := -1.0
		if offending != nil {
			size = magnitude(c.snapshot.TenantNode(*offending).Resources)
		}
		if !haveBest || better(failCount, size, c.snapshot.Node(h).Name, bestFail, bestSize, c.snapshot.Node(best).Name) {
			best, bestFail, bestOffending, bestWorking, bestResidents, bestSize, haveBest = h, failCount, offending, afterWorking, afterResidents, size, true
		}
	}
	return best, bestFail, bestOffending, bestWorking, bestResidents
}

func better(failCount int, size float64, name string, bestFail int, bestSize float64, bestName string) bool {
	if failCount != bestFail {
		return failCount > bestFail
	}
	if size != bestSize {
		return size > bestSize
	}
	return name < bestName
}

// simulateLoss greedily places every tenant currently resident on h (per the
// dynamic residents map, not h's static snapshot children) onto the host in
// working (excluding removed) with the greatest remaining free capacity that
// satisfies it, counting how many cannot be placed at all. It returns the
// number of failures, the first tenant that failed (nil if none), and the
// resulting working-capacity and residents maps (placements for tenants that
// did succeed are always applied, even alongside later failures).
func (c *Checker) simulateLoss(h fleet.HostID, working map[fleet.HostID]resources.Resources, residents map[fleet.HostID][]fleet.TenantID, removed map[fleet.HostID]bool) (int, *fleet.TenantID, map[fleet.HostID]resources.Resources, map[fleet.HostID][]fleet.TenantID) {
	nextWorking := copyWorking(working)
	nextResidents := copyResidents(residents)
	failCount := 0
	var firstOffending *fleet.TenantID
	for _, t := range residents[h] {
		tRes := c.snapshot.TenantNode(t).Resources
		dest, ok := greatestFreeHost(c.snapshot, nextWorking, removed, tRes)
		if !ok {
			failCount++
			if firstOffending == nil {
				tCopy := t
				firstOffending = &tCopy
			}
			continue
		}
		nextWorking[dest] = nextWorking[dest].Subtract(tRes)
		nextResidents[dest] = append(nextResidents[dest], t)
	}
	delete(nextResidents, h)
	return failCount, firstOffending, nextWorking, nextResidents
}

func greatestFreeHost(snap *fleet.FleetSnapshot, working map[fleet.HostID]resources.Resources, removed map[fleet.HostID]bool, req resources.Resources) (fleet.HostID, bool) {
	var best fleet.HostID
	bestScore := -1.0
	found := false
	for h, free := range working {
		if removed[h] {
			continue
		}
		if !free.Satisfies(req) {
			continue
		}
		score := magnitude(free)
		if !found || score > bestScore || (score == bestScore && snap.Node(h).Name < snap.Node(best).Name) {
			best, bestScore, found = h, score, true
		}
	}
	return best, found
}

func copyWorking(m map[fleet.HostID]resources.Resources) map[fleet.HostID]resources.Resources {
	out := make(map[fleet.HostID]resources.Resources, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// copyResidents deep-copies a host->resident-tenants map: each slice must be
// copied, not just its header, or an append on one trial branch's copy could
// grow into the backing array still referenced by another branch's copy.
func copyResidents(m map[fleet.HostID][]fleet.TenantID) map[fleet.HostID][]fleet.TenantID {
	out := make(map[fleet.HostID][]fleet.TenantID, len(m))
	for k, v := range m {
		out[k] = append([]fleet.TenantID(nil), v...)
	}
	return out
}

func remainingHosts(hosts []fleet.HostID, removed map[fleet.HostID]bool) []fleet.HostID {
	var out []fleet.HostID
	for _, h := range hosts {
		if !removed[h] {
			out = append(out, h)
		}
	}
	return out
}

// magnitude reduces a Resources vector to a single orderable score: the sum
// of its numeric axes. Mirrors pkg/capacity's ranking for "greatest free
// capacity" / "largest tenant" comparisons.
func magnitude(r resources.Resources) float64 {
	return r.CPU + r.Memory + r.Disk + r.Bandwidth + r.GPU
}
