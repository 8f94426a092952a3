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

package solver_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/awslabs/spare-capacity-maintainer/pkg/fleet"
	"github.com/awslabs/spare-capacity-maintainer/pkg/resources"
	"github.com/awslabs/spare-capacity-maintainer/pkg/solver"
)

func TestSolver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Solver")
}

func parent(name string) *string { return &name }

func hostID(snap *fleet.FleetSnapshot, name string) fleet.HostID {
	h, ok := snap.HostByName(name)
	Expect(ok).To(BeTrue(), "host %q not found", name)
	return h
}

func tenantID(snap *fleet.FleetSnapshot, name string) fleet.TenantID {
	t, ok := snap.TenantByName(name)
	Expect(ok).To(BeTrue(), "tenant %q not found", name)
	return t
}

var _ = Describe("Solver.MakeRoomFor", func() {
	It("returns an empty plan when the target already fits (P3: no-op move plan)", func() {
		snap, err := fleet.NewSnapshot([]fleet.Node{
			{Name: "h1", Resources: resources.Resources{CPU: 10}},
			{Name: "t1", Resources: resources.Resources{CPU: 3}, Parent: parent("h1")},
			{Name: "new", Resources: resources.Resources{CPU: 5}, Parent: parent("h1")},
		})
		Expect(err).NotTo(HaveOccurred())
		s := solver.New(snap, 0, 0)
		moves, ok := s.MakeRoomFor(tenantID(snap, "new"), hostID(snap, "h1"), snap.Hosts(), nil, nil)
		Expect(ok).To(BeTrue())
		Expect(moves).To(BeEmpty())
	})

	It("finds a single eviction that makes room (tight-fit single move)", func() {
		snap, err := fleet.NewSnapshot([]fleet.Node{
			{Name: "h1", Resources: resources.Resources{CPU: 10}},
			{Name: "h2", Resources: resources.Resources{CPU: 2}},
			{Name: "big", Resources: resources.Resources{CPU: 7}, Parent: parent("h1")},
			{Name: "small", Resources: resources.Resources{CPU: 1}, Parent: parent("h1")},
			{Name: "new", Resources: resources.Resources{CPU: 3}, Parent: parent("h1")},
		})
		Expect(err).NotTo(HaveOccurred())
		s := solver.New(snap, 0, 1)
		moves, ok := s.MakeRoomFor(tenantID(snap, "new"), hostID(snap, "h1"), snap.Hosts(), nil, nil)
		Expect(ok).To(BeTrue())
		Expect(moves).To(HaveLen(1))
		Expect(moves[0].Tenant).To(Equal(tenantID(snap, "small")))
		Expect(moves[0].From).To(Equal(hostID(snap, "h1")))
		Expect(moves[0].To).To(Equal(hostID(snap, "h2")))
	})

	It("honors maxConsideredNodes, ignoring children beyond the cap (spec.md §6)", func() {
		// Same fleet as the tight-fit case above, but "small" (the only
		// evictable tenant that actually fits on h2) sorts after "big"
		// alphabetically; capping consideration to 1 child means only
		// "big" is ever tried, and evicting a cpu=7 tenant onto a cpu=2
		// host can never succeed.
		snap, err := fleet.NewSnapshot([]fleet.Node{
			{Name: "h1", Resources: resources.Resources{CPU: 10}},
			{Name: "h2", Resources: resources.Resources{CPU: 2}},
			{Name: "big", Resources: resources.Resources{CPU: 7}, Parent: parent("h1")},
			{Name: "small", Resources: resources.Resources{CPU: 1}, Parent: parent("h1")},
			{Name: "new", Resources: resources.Resources{CPU: 3}, Parent: parent("h1")},
		})
		Expect(err).NotTo(HaveOccurred())
		s := solver.NewWithNodeCap(snap, 0, 1, 1)
		moves, ok := s.MakeRoomFor(tenantID(snap, "new"), hostID(snap, "h1"), snap.Hosts(), nil, nil)
		Expect(ok).To(BeFalse())
		Expect(moves).To(BeEmpty())
	})

	It("chains two evictions when the first destination itself needs room (two-step eviction chain)", func() {
		snap, err := fleet.NewSnapshot([]fleet.Node{
			{Name: "h1", Resources: resources.Resources{CPU: 10}},
			{Name: "h2", Resources: resources.Resources{CPU: 5}},
			{Name: "h3", Resources: resources.Resources{CPU: 10}},
			{Name: "h4", Resources: resources.Resources{CPU: 10, StorageType: resources.StorageTypeRemote}},
			{Name: "eQ", Resources: resources.Resources{CPU: 8, StorageType: resources.StorageTypeLocal}, Parent: parent("h1")},
			{Name: "f1", Resources: resources.Resources{CPU: 5}, Parent: parent("h2")},
			{Name: "g1", Resources: resources.Resources{CPU: 9}, Parent: parent("h3")},
			{Name: "new", Resources: resources.Resources{CPU: 4}, Parent: parent("h1")},
		})
		Expect(err).NotTo(HaveOccurred())
		s := solver.New(snap, 0, 1)
		moves, ok := s.MakeRoomFor(tenantID(snap, "new"), hostID(snap, "h1"), snap.Hosts(), nil, nil)
		Expect(ok).To(BeTrue())
		Expect(moves).To(HaveLen(2))

		tenantsMoved := map[fleet.TenantID]fleet.Move{}
		for _, m := range moves {
			_, dup := tenantsMoved[m.Tenant]
			Expect(dup).To(BeFalse(), "P5: no tenant may be moved twice in one plan")
			tenantsMoved[m.Tenant] = m
		}
		Expect(tenantsMoved).To(HaveKey(tenantID(snap, "eQ")))
		Expect(tenantsMoved).To(HaveKey(tenantID(snap, "g1")))
		Expect(tenantsMoved[tenantID(snap, "eQ")].To).To(Equal(hostID(snap, "h3")))
		Expect(tenantsMoved[tenantID(snap, "g1")].To).To(Equal(hostID(snap, "h4")))
	})

	It("returns null immediately on a categorical mismatch, without exploring (unsolvable)", func() {
		snap, err := fleet.NewSnapshot([]fleet.Node{
			{Name: "h1", Resources: resources.Resources{CPU: 10, StorageType: resources.StorageTypeRemote}},
			{Name: "t1", Resources: resources.Resources{CPU: 1}, Parent: parent("h1")},
			{Name: "new", Resources: resources.Resources{CPU: 1, StorageType: resources.StorageTypeLocal}, Parent: parent("h1")},
		})
		Expect(err).NotTo(HaveOccurred())
		s := solver.New(snap, 0, 0)
		moves, ok := s.MakeRoomFor(tenantID(snap, "new"), hostID(snap, "h1"), snap.Hosts(), nil, nil)
		Expect(ok).To(BeFalse())
		Expect(moves).To(BeEmpty())
		Expect(s.Iterations()).To(Equal(1), "feasibility gate must fail before any eviction search begins")
	})

	It("respects the iteration budget and returns null rather than exhausting the search (P6)", func() {
		snap, err := fleet.NewSnapshot([]fleet.Node{
			{Name: "h1", Resources: resources.Resources{CPU: 10}},
			{Name: "h2", Resources: resources.Resources{CPU: 5}},
			{Name: "h3", Resources: resources.Resources{CPU: 10}},
			{Name: "h4", Resources: resources.Resources{CPU: 10, StorageType: resources.StorageTypeRemote}},
			{Name: "eQ", Resources: resources.Resources{CPU: 8, StorageType: resources.StorageTypeLocal}, Parent: parent("h1")},
			{Name: "f1", Resources: resources.Resources{CPU: 5}, Parent: parent("h2")},
			{Name: "g1", Resources: resources.Resources{CPU: 9}, Parent: parent("h3")},
			{Name: "new", Resources: resources.Resources{CPU: 4}, Parent: parent("h1")},
		})
		Expect(err).NotTo(HaveOccurred())
		s := solver.New(snap, 1, 1)
		Expect(func() {
			moves, ok := s.MakeRoomFor(tenantID(snap, "new"), hostID(snap, "h1"), snap.Hosts(), nil, nil)
			Expect(ok).To(BeFalse())
			Expect(moves).To(BeEmpty())
		}).NotTo(Panic())
	})
})
