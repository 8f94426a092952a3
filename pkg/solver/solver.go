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

// Package solver implements CapacitySolver: a memoised, budget-bounded
// recursive search for the shortest sequence of tenant relocations that
// makes room for an offending tenant on a target host, per spec.md §4.D.
package solver

import (
	"sort"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/samber/lo"

	"github.com/awslabs/spare-capacity-maintainer/pkg/capacity"
	"github.com/awslabs/spare-capacity-maintainer/pkg/fleet"
	"github.com/awslabs/spare-capacity-maintainer/pkg/resources"
	"github.com/awslabs/spare-capacity-maintainer/pkg/subsets"
)

// DefaultMaxIterations is the default per-top-level-call iteration budget.
const DefaultMaxIterations = 10000

// DefaultMaxEvictionSubsetSize bounds how many co-tenants of a host the
// solver will disturb in a single displacement step (spec.md §4.D).
const DefaultMaxEvictionSubsetSize = 5

// SolutionKey identifies one memoised search state: the tenant being placed,
// the host it's being placed on, and the two order-sensitive move lists that
// got us here. Equality and hashing are structural over all four fields.
type SolutionKey struct {
	Tenant          fleet.TenantID
	Target          fleet.HostID
	MovesConsidered []fleet.Move
	MovesMade       []fleet.Move
}

func (k SolutionKey) hash() uint64 {
	// Default hashstructure semantics (no SlicesAsSets) preserve slice
	// order, which SolutionKey's equality requires: movesConsidered and
	// movesMade are order-sensitive sequences, not sets.
	h, err := hashstructure.Hash(k, hashstructure.FormatV2, nil)
	if err != nil {
		// Hash only fails on unsupported field types, which SolutionKey's
		// plain int/struct fields never produce; a panic here would
		// indicate a programmer error in SolutionKey's shape, not bad input.
		panic(err)
	}
	return h
}

type cacheEntry struct {
	moves []fleet.Move
	found bool
}

// Solver is a single top-level CapacitySolver invocation: its memo table and
// iteration counter are instance-local and meant to be discarded after one
// call to MakeRoomFor, per spec.md §9 ("no locking needed, single-threaded").
type Solver struct {
	snapshot              *fleet.FleetSnapshot
	capacity              *capacity.HostCapacity
	maxIterations         int
	maxEvictionSubsetSize int
	maxConsideredNodes    int
	iterations            int
	memo                  map[uint64]cacheEntry
}

// New returns a Solver over snapshot. maxIterations and maxEvictionSubsetSize
// fall back to their spec.md-defined defaults when <= 0; the eviction-subset
// search considers every child of the target host, up to subsets.MaxElements.
func New(snapshot *fleet.FleetSnapshot, maxIterations, maxEvictionSubsetSize int) *Solver {
	return NewWithNodeCap(snapshot, maxIterations, maxEvictionSubsetSize, subsets.MaxElements)
}

// NewWithNodeCap is New with an explicit maxConsideredNodes (spec.md §6),
// bounding how many of a host's children are fed into the eviction-subset
// search. A value <= 0 falls back to subsets.MaxElements.
func NewWithNodeCap(snapshot *fleet.FleetSnapshot, maxIterations, maxEvictionSubsetSize, maxConsideredNodes int) *Solver {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if maxEvictionSubsetSize <= 0 {
		maxEvictionSubsetSize = DefaultMaxEvictionSubsetSize
	}
	if maxConsideredNodes <= 0 {
		maxConsideredNodes = subsets.MaxElements
	}
	return &Solver{
		snapshot:              snapshot,
		capacity:              capacity.New(snapshot),
		maxIterations:         maxIterations,
		maxEvictionSubsetSize: maxEvictionSubsetSize,
		maxConsideredNodes:    maxConsideredNodes,
		memo:                  make(map[uint64]cacheEntry),
	}
}

// Iterations reports how many recursive MakeRoomFor entries this Solver has
// performed so far, for BudgetExhausted diagnostics (P6).
func (s *Solver) Iterations() int { return s.iterations }

// MakeRoomFor searches for the shortest sequence of moves that, applied after
// movesMade, leaves target with enough free capacity to host tenant. The
// returned moves do not repeat movesMade. A tenant already parented to target
// does not count against target's free capacity and is never evicted from it.
// It returns (moves, true) on success, or (nil, false) if no plan exists
// within the iteration budget or the eviction-subset-size bound.
func (s *Solver) MakeRoomFor(tenant fleet.TenantID, target fleet.HostID, candidates []fleet.HostID, movesConsidered, movesMade []fleet.Move) ([]fleet.Move, bool) {
	key := SolutionKey{Tenant: tenant, Target: target, MovesConsidered: movesConsidered, MovesMade: movesMade}
	h := key.hash()
	if entry, ok := s.memo[h]; ok {
		return entry.moves, entry.found
	}

	s.iterations++
	if s.iterations > s.maxIterations {
		return nil, false // budget exhausted: deliberately not cached, per spec.md §4.D step 2
	}

	tenantRes := s.snapshot.TenantNode(tenant).Resources
	targetRes := s.snapshot.Node(target).Resources

	// Step 3: feasibility gate.
	if !targetRes.Satisfies(tenantRes) {
		return s.cache(h, nil, false)
	}

	// Step 4: direct fit, adjusting free capacity by movesMade so far.
	free := s.adjustedFreeCapacity(target, tenant, movesMade)
	if free.Satisfies(tenantRes) {
		return s.cache(h, []fleet.Move{}, true)
	}

	// Step 5: eviction search over subsets of target's current children.
	var best []fleet.Move
	for _, subset := range s.evictionSubsets(target) {
		if lo.Contains(subset, tenant) {
			continue // never evict the tenant room is being made for
		}
		subsetRes := sumResources(s.snapshot, subset)
		if !free.Add(subsetRes).Satisfies(tenantRes) {
			continue // lower-bound pruning
		}
		sigma, ok := s.moveSet(subset, target, candidates, movesConsidered, movesMade)
		if !ok {
			continue
		}
		if best == nil || len(sigma) < len(best) {
			best = sigma
		}
	}
	if best == nil {
		return s.cache(h, nil, false)
	}
	// best is already the delta to append to movesMade (moveSet/moveOne
	// compose deltas, not movesMade-prefixed chains); returning anything
	// else would double-count movesMade once callers concatenate it in.
	return s.cache(h, best, true)
}

func (s *Solver) cache(h uint64, moves []fleet.Move, found bool) ([]fleet.Move, bool) {
	s.memo[h] = cacheEntry{moves: moves, found: found}
	return moves, found
}

// adjustedFreeCapacity is target's free capacity with tenant's own footprint
// left out (if tenant is one of target's children), adjusted for any move in
// movesMade that touches target: moves away from target give back capacity,
// moves onto target consume it.
func (s *Solver) adjustedFreeCapacity(target fleet.HostID, tenant fleet.TenantID, movesMade []fleet.Move) resources.Resources {
	var used resources.Resources
	for _, t := range s.capacity.ChildrenOf(target) {
		if t != tenant {
			used = used.Add(s.snapshot.TenantNode(t).Resources)
		}
	}
	free := s.snapshot.Node(target).Resources.Subtract(used)
	for _, m := range movesMade {
		tenantRes := s.snapshot.TenantNode(m.Tenant).Resources
		if m.From == target {
			free = free.Add(tenantRes)
		}
		if m.To == target {
			free = free.Subtract(tenantRes)
		}
	}
	return free
}

// evictionSubsets returns every non-empty subset of target's children of
// cardinality <= maxEvictionSubsetSize, considering at most maxConsideredNodes
// of those children (spec.md §6), via pkg/subsets.
func (s *Solver) evictionSubsets(target fleet.HostID) [][]fleet.TenantID {
	children := s.capacity.ChildrenOf(target)
	return subsets.NewBounded(children, s.maxEvictionSubsetSize, s.maxConsideredNodes).All()
}

func sumResources(snap *fleet.FleetSnapshot, tenants []fleet.TenantID) resources.Resources {
	var sum resources.Resources
	for _, t := range tenants {
		sum = sum.Add(snap.TenantNode(t).Resources)
	}
	return sum
}

// moveSet tries to move every tenant in subset off target, in hostname
// order, threading an accumulating move list so later placements see
// earlier ones already made.
func (s *Solver) moveSet(subset []fleet.TenantID, target fleet.HostID, candidates []fleet.HostID, movesConsidered, movesMade []fleet.Move) ([]fleet.Move, bool) {
	var accumulated []fleet.Move
	current := movesMade
	for _, t := range subset {
		sigma, ok := s.moveOne(t, target, candidates, movesConsidered, current)
		if !ok {
			return nil, false
		}
		accumulated = append(accumulated, sigma...)
		current = append(append([]fleet.Move{}, current...), sigma...)
	}
	return accumulated, true
}

// moveOne finds the cheapest way to relocate tenant t off target to some
// other candidate host, recursively making room there if needed.
func (s *Solver) moveOne(t fleet.TenantID, target fleet.HostID, candidates []fleet.HostID, movesConsidered, movesMade []fleet.Move) ([]fleet.Move, bool) {
	if movedAlready(t, movesConsidered) || movedAlready(t, movesMade) {
		return nil, false
	}
	others := lo.Filter(sortedHosts(candidates, s.snapshot), func(h fleet.HostID, _ int) bool { return h != target })

	var best []fleet.Move
	for _, dest := range others {
		m := fleet.Move{Tenant: t, From: target, To: dest}
		sigma, ok := s.MakeRoomFor(t, dest, candidates, append(append([]fleet.Move{}, movesConsidered...), m), movesMade)
		if !ok {
			continue
		}
		candidate := append(append([]fleet.Move{}, sigma...), m)
		if best == nil || len(candidate) < len(best) {
			best = candidate
		}
	}
	return best, best != nil
}

func movedAlready(t fleet.TenantID, moves []fleet.Move) bool {
	return lo.ContainsBy(moves, func(m fleet.Move) bool { return m.Tenant == t })
}

func sortedHosts(hosts []fleet.HostID, snap *fleet.FleetSnapshot) []fleet.HostID {
	out := append([]fleet.HostID(nil), hosts...)
	sort.Slice(out, func(i, j int) bool { return snap.Node(out[i]).Name < snap.Node(out[j]).Name })
	return out
}
