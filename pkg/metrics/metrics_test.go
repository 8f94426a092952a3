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

package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/awslabs/spare-capacity-maintainer/pkg/metrics"
)

func TestPrometheusSinkRoutesToTheNamedGauge(t *testing.T) {
	sink := metrics.NewPrometheusSink()
	sink.Set(metrics.OvercommittedHosts, 3)
	sink.Set(metrics.SpareHostCapacity, 1)

	expected := `
# HELP spare_capacity_maintainer_overcommitted_hosts Number of hosts whose children's summed resources exceed the host's envelope.
# TYPE spare_capacity_maintainer_overcommitted_hosts gauge
spare_capacity_maintainer_overcommitted_hosts 3
`
	err := testutil.GatherAndCompare(crmetrics.Registry, strings.NewReader(expected), "spare_capacity_maintainer_overcommitted_hosts")
	if err != nil {
		t.Fatalf("unexpected gauge state: %v", err)
	}
}

func TestPrometheusSinkIgnoresUnknownNames(t *testing.T) {
	sink := metrics.NewPrometheusSink()
	sink.Set("notAGauge", 42) // must not panic
}
