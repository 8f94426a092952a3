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

package capacity_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/awslabs/spare-capacity-maintainer/pkg/capacity"
	"github.com/awslabs/spare-capacity-maintainer/pkg/fleet"
	"github.com/awslabs/spare-capacity-maintainer/pkg/resources"
)

func TestCapacity(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Capacity")
}

func parent(name string) *string { return &name }

var _ = Describe("HostCapacity", func() {
	It("computes free capacity as host minus children (P2)", func() {
		snap, err := fleet.NewSnapshot([]fleet.Node{
			{Name: "h1", Resources: resources.Resources{CPU: 8, Memory: 16}},
			{Name: "t1", Resources: resources.Resources{CPU: 3, Memory: 4}, Parent: parent("h1")},
		})
		Expect(err).NotTo(HaveOccurred())
		hc := capacity.New(snap)
		h1, _ := snap.HostByName("h1")
		free := hc.FreeCapacityOf(h1)
		Expect(free.CPU).To(Equal(5.0))
		Expect(free.Memory).To(Equal(12.0))
	})

	It("orders spare hosts by descending free capacity, hostname tiebreak", func() {
		snap, err := fleet.NewSnapshot([]fleet.Node{
			{Name: "h1", Resources: resources.Resources{CPU: 8}},
			{Name: "h2", Resources: resources.Resources{CPU: 8}},
			{Name: "h3", Resources: resources.Resources{CPU: 4}},
			{Name: "t1", Resources: resources.Resources{CPU: 2}, Parent: parent("h1")},
		})
		Expect(err).NotTo(HaveOccurred())
		hc := capacity.New(snap)
		spares := hc.FindSpareHosts(snap.Hosts(), 2)
		names := []string{snap.Node(spares[0]).Name, snap.Node(spares[1]).Name}
		// h2 (free=8) beats h1 (free=6) beats h3 (free=4); top 2 are h2, h1.
		Expect(names).To(Equal([]string{"h2", "h1"}))
	})

	It("returns all eligible hosts when fewer than k exist", func() {
		snap, err := fleet.NewSnapshot([]fleet.Node{
			{Name: "h1", Resources: resources.Resources{CPU: 8}},
		})
		Expect(err).NotTo(HaveOccurred())
		hc := capacity.New(snap)
		spares := hc.FindSpareHosts(snap.Hosts(), 5)
		Expect(spares).To(HaveLen(1))
	})
})
