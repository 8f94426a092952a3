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

package fleet

import (
	"fmt"
	"strings"
)

// Move is a single tenant relocation: tenant currently on From, proposed to
// land on To. From != To always holds for a non-empty move.
type Move struct {
	Tenant TenantID
	From   HostID
	To     HostID
}

// Empty reports whether m names no tenant (the zero Move, used as a
// sentinel for "no move needed").
func (m Move) Empty() bool {
	return m == Move{}
}

// HostFailurePath is the result of CapacityChecker's worst-case host-loss
// walk: the ordered sequence of hosts whose simultaneous loss first makes
// some tenant unplaceable, and that offending tenant (nil if the fleet can
// absorb the loss of every host, i.e. effectively infinite slack).
type HostFailurePath struct {
	Hosts     []HostID
	Offending *TenantID
}

// Slack is len(Hosts)-1, the number of hosts that can be lost simultaneously
// before the offending tenant becomes unplaceable. A nil/empty path has no
// well-defined slack; callers check len(Hosts) == 0 first.
func (p HostFailurePath) Slack() int {
	if len(p.Hosts) == 0 {
		return -1
	}
	return len(p.Hosts) - 1
}

// Reason renders a human-readable summary of the path, for log messages.
func (p HostFailurePath) Reason(snap *FleetSnapshot) string {
	if len(p.Hosts) == 0 {
		return "fleet can withstand loss of every host"
	}
	names := make([]string, len(p.Hosts))
	for i, h := range p.Hosts {
		names[i] = snap.Node(h).Name
	}
	if p.Offending == nil {
		return fmt.Sprintf("loss of [%s] leaves every tenant placeable", strings.Join(names, ", "))
	}
	return fmt.Sprintf("loss of [%s] leaves %s unplaceable", strings.Join(names, ", "), snap.TenantNode(*p.Offending).Name)
}
