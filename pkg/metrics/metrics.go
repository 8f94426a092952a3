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

// Package metrics implements the maintainer.MetricSink contract against
// Prometheus, registering the two gauges spec.md §6 names against the
// controller-runtime global registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const namespace = "spare_capacity_maintainer"

const (
	// OvercommittedHosts is the exact gauge name spec.md §6 requires.
	OvercommittedHosts = "overcommittedHosts"
	// SpareHostCapacity is the exact gauge name spec.md §6 requires.
	SpareHostCapacity = "spareHostCapacity"
)

var (
	overcommittedHostsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "overcommitted_hosts",
		Help:      "Number of hosts whose children's summed resources exceed the host's envelope.",
	})
	spareHostCapacityGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "spare_host_capacity",
		Help:      "Number of hosts that can be lost simultaneously before some tenant becomes unplaceable.",
	})
)

func init() {
	crmetrics.Registry.MustRegister(overcommittedHostsGauge, spareHostCapacityGauge)
}

// PrometheusSink implements maintainer.MetricSink against the two
// package-level gauges above.
type PrometheusSink struct{}

// NewPrometheusSink returns a PrometheusSink. The gauges it writes to are
// registered once, at package init, against crmetrics.Registry.
func NewPrometheusSink() *PrometheusSink { return &PrometheusSink{} }

// Set records value against the gauge named name. Unknown names are a
// programmer error and are silently dropped rather than panicking, since
// MetricSink is called from the hot tick path.
func (PrometheusSink) Set(name string, value float64) {
	switch name {
	case OvercommittedHosts:
		overcommittedHostsGauge.Set(value)
	case SpareHostCapacity:
		spareHostCapacityGauge.Set(value)
	}
}
