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

// Package maintainer implements SpareCapacityMaintainer: the periodic tick
// that runs CapacityChecker, invokes CapacitySolver on danger, dispatches
// the first move of any mitigation plan, and emits the two gauges spec.md
// §6 requires.
package maintainer

import (
	"context"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/awslabs/spare-capacity-maintainer/pkg/capacity"
	"github.com/awslabs/spare-capacity-maintainer/pkg/checker"
	"github.com/awslabs/spare-capacity-maintainer/pkg/ferrors"
	"github.com/awslabs/spare-capacity-maintainer/pkg/fleet"
	"github.com/awslabs/spare-capacity-maintainer/pkg/maintainer/config"
	"github.com/awslabs/spare-capacity-maintainer/pkg/metrics"
	"github.com/awslabs/spare-capacity-maintainer/pkg/solver"
)

// SnapshotProvider supplies the immutable fleet state for one tick.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*fleet.FleetSnapshot, error)
}

// Deployer attempts to execute a chosen move.
type Deployer interface {
	ExecuteMove(ctx context.Context, move fleet.Move, reason string) (DeployOutcome, error)
}

// MetricSink records the two gauges spec.md §6 names.
type MetricSink interface {
	Set(name string, value float64)
}

// DeployOutcome is the three-way result of a Deployer.ExecuteMove call.
type DeployOutcome string

const (
	DeployDone       DeployOutcome = "done"
	DeployInProgress DeployOutcome = "inProgress"
	DeployRefused    DeployOutcome = "refused"
)

// Reason renders a short human-readable summary for log messages.
func (o DeployOutcome) Reason() string {
	switch o {
	case DeployDone:
		return "move dispatched"
	case DeployInProgress:
		return "move already in progress"
	case DeployRefused:
		return "deployer refused the move"
	default:
		return "unknown deploy outcome"
	}
}

// TickResult summarises one Tick invocation, in addition to the metrics it
// emits as a side effect: a convenience for callers and tests that would
// otherwise have to scrape the MetricSink, not a new externally observable
// behavior.
type TickResult struct {
	Skipped            bool
	OvercommittedHosts []fleet.HostID
	Slack              int
	OffendingTenant    *fleet.TenantID
	Plan               []fleet.Move
	DispatchedMove     *fleet.Move
	DeployOutcome      *DeployOutcome
}

// SharedHostingAllowed reports whether the surrounding cloud currently
// permits shared hosting at all (spec.md §4.F step 1). When false, Tick
// returns immediately and emits no metrics.
type SharedHostingAllowed func() bool

// Maintainer wires SnapshotProvider, Deployer and MetricSink together into
// the periodic tick of spec.md §4.F.
type Maintainer struct {
	snapshots     SnapshotProvider
	deployer      Deployer
	sink          MetricSink
	opts          config.Options
	allowed       SharedHostingAllowed
	overcommitted *cache.Cache
}

// New returns a Maintainer. allowed may be nil, in which case shared hosting
// is always considered permitted.
func New(snapshots SnapshotProvider, deployer Deployer, sink MetricSink, opts config.Options, allowed SharedHostingAllowed) *Maintainer {
	if allowed == nil {
		allowed = func() bool { return true }
	}
	ttl := opts.OvercommitWarningTTL
	if ttl <= 0 {
		ttl = config.Default().OvercommitWarningTTL
	}
	return &Maintainer{
		snapshots:     snapshots,
		deployer:      deployer,
		sink:          sink,
		opts:          opts,
		allowed:       allowed,
		overcommitted: cache.New(ttl, ttl),
	}
}

// Tick runs one maintenance cycle, per spec.md §4.F steps 1-6.
func (m *Maintainer) Tick(ctx context.Context) (TickResult, error) {
	if !m.allowed() {
		return TickResult{Skipped: true}, nil
	}

	logger := log.FromContext(ctx).WithValues("tick", uuid.NewString())

	snap, err := m.snapshots.Snapshot(ctx)
	if err != nil {
		wrapped := ferrors.SnapshotUnavailable(err)
		logger.Error(wrapped, "snapshot unavailable")
		return TickResult{}, wrapped
	}

	chk := checker.New(snap)

	over := chk.OvercommittedHosts()
	for _, h := range over {
		name := snap.Node(h).Name
		if _, warned := m.overcommitted.Get(name); !warned {
			logger.Info("host overcommitted", "host", name)
			m.overcommitted.SetDefault(name, struct{}{})
		}
	}
	m.sink.Set(metrics.OvercommittedHosts, float64(len(over)))

	result := TickResult{OvercommittedHosts: over}

	path, found := chk.WorstCaseHostLoss()
	slack := len(snap.Hosts())
	var offending *fleet.TenantID
	if found {
		slack = path.Slack()
		offending = path.Offending
		logger.Info("worst-case host-loss path computed", "reason", path.Reason(snap))
	}
	result.Slack = slack
	result.OffendingTenant = offending

	if slack == 0 && offending != nil {
		plan := m.planMitigation(snap, *offending)
		result.Plan = plan
		if len(plan) > 0 {
			first := plan[0]
			outcome, err := m.deployer.ExecuteMove(ctx, first, "restore spare capacity")
			alreadyRetired := snap.TenantNode(first.Tenant).Alloc.Retired
			if err != nil {
				wrapped := ferrors.DeployerRefused(err, "tenant", snap.TenantNode(first.Tenant).Name)
				logger.Info("deploy failed", "error", wrapped)
			} else {
				result.DispatchedMove = &first
				result.DeployOutcome = &outcome
			}
			// A dispatched move and a "move already in progress" both bump
			// the reported slack back to 1 even when the deployer's success
			// hasn't been observed, per spec.md §9's open-question decision.
			// A retired tenant means a move is already under way whether the
			// deployer errored or returned DeployInProgress outright.
			if alreadyRetired || (err == nil && (outcome == DeployDone || outcome == DeployInProgress)) {
				slack = 1
			}
		}
	}
	result.Slack = slack

	m.sink.Set(metrics.OvercommittedHosts, float64(len(over)))
	m.sink.Set(metrics.SpareHostCapacity, float64(slack))
	return result, nil
}

// planMitigation implements spec.md §4.F step 5: find the top 2 spare hosts
// eligible for the offending tenant, ask the solver to make room on each,
// and keep the shortest non-null plan overall. MakeRoomFor only reports the
// eviction moves needed to clear space on the spare host; the offending
// tenant's own relocation onto it is appended last, mirroring the way
// moveOne appends a tenant's own move after its eviction chain.
func (m *Maintainer) planMitigation(snap *fleet.FleetSnapshot, offending fleet.TenantID) []fleet.Move {
	tenantRes := snap.TenantNode(offending).Resources
	allHosts := snap.Hosts()
	eligible := lo.Filter(allHosts, func(h fleet.HostID, _ int) bool {
		return snap.Node(h).Resources.Satisfies(tenantRes)
	})

	currentHost, _ := snap.HostByName(*snap.TenantNode(offending).Parent)

	hc := capacity.New(snap)
	spares := hc.FindSpareHosts(eligible, 2)
	candidates := lo.Filter(allHosts, func(h fleet.HostID, _ int) bool { return !lo.Contains(spares, h) })

	var best []fleet.Move
	for _, hs := range spares {
		if hs == currentHost {
			continue
		}
		sv := solver.NewWithNodeCap(snap, m.opts.MaxIterations, m.opts.MaxEvictionSubsetSize, m.opts.MaxConsideredNodes)
		evictions, ok := sv.MakeRoomFor(offending, hs, candidates, nil, nil)
		if !ok {
			continue
		}
		full := append(append([]fleet.Move{}, evictions...), fleet.Move{Tenant: offending, From: currentHost, To: hs})
		if best == nil || len(full) < len(best) {
			best = full
		}
	}
	return best
}
