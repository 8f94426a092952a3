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

// Package resources implements arithmetic and the partial order over fleet
// resource vectors (cpu, memory, disk, bandwidth, gpu, disk-speed, storage-type).
package resources

import "fmt"

// DiskSpeed is a categorical axis with a widening lattice: Any is top.
type DiskSpeed string

const (
	DiskSpeedAny  DiskSpeed = ""
	DiskSpeedFast DiskSpeed = "fast"
	DiskSpeedSlow DiskSpeed = "slow"
)

// StorageType is a categorical axis with a widening lattice: Any is top.
type StorageType string

const (
	StorageTypeAny    StorageType = ""
	StorageTypeLocal  StorageType = "local"
	StorageTypeRemote StorageType = "remote"
)

// Resources is a pure value type: cpu, memory, disk and bandwidth are real
// quantities, gpu is a real quantity (fractional/shared GPUs are permitted),
// disk-speed and storage-type are categorical axes with "any" as top.
type Resources struct {
	CPU         float64
	Memory      float64
	Disk        float64
	Bandwidth   float64
	GPU         float64
	DiskSpeed   DiskSpeed
	StorageType StorageType
}

// Add returns the component-wise sum of r and o. Categorical axes widen:
// if either side is Any, or the two sides disagree, the result is Any;
// equal values are kept.
func (r Resources) Add(o Resources) Resources {
	return Resources{
		CPU:         r.CPU + o.CPU,
		Memory:      r.Memory + o.Memory,
		Disk:        r.Disk + o.Disk,
		Bandwidth:   r.Bandwidth + o.Bandwidth,
		GPU:         r.GPU + o.GPU,
		DiskSpeed:   widenDiskSpeed(r.DiskSpeed, o.DiskSpeed),
		StorageType: widenStorageType(r.StorageType, o.StorageType),
	}
}

// Subtract returns r minus o, saturating each numeric component at zero.
// Categorical axes are never changed by subtraction: r's categorical axes
// are returned as-is. Subtract does not check categorical compatibility and
// never reports a mismatch (e.g. r is fast-only and o requires slow); nor do
// HostCapacity.FreeCapacityOf or the solver's free-capacity adjustment,
// which subtract without calling Satisfies first.
func (r Resources) Subtract(o Resources) Resources {
	return Resources{
		CPU:         saturatingSub(r.CPU, o.CPU),
		Memory:      saturatingSub(r.Memory, o.Memory),
		Disk:        saturatingSub(r.Disk, o.Disk),
		Bandwidth:   saturatingSub(r.Bandwidth, o.Bandwidth),
		GPU:         saturatingSub(r.GPU, o.GPU),
		DiskSpeed:   r.DiskSpeed,
		StorageType: r.StorageType,
	}
}

func saturatingSub(a, b float64) float64 {
	if a < b {
		return 0
	}
	return a - b
}

// Satisfies reports whether r can host a workload requiring req: every
// numeric axis of r must be >= the corresponding axis of req, and the
// categorical axes must be compatible (Any on either side matches anything;
// otherwise r and req must agree exactly). Satisfies is reflexive, antisymmetric on
// equal vectors, and transitive, per spec P1.
func (r Resources) Satisfies(req Resources) bool {
	if r.CPU < req.CPU || r.Memory < req.Memory || r.Disk < req.Disk || r.Bandwidth < req.Bandwidth || r.GPU < req.GPU {
		return false
	}
	if !categoricalCompatible(string(r.DiskSpeed), string(req.DiskSpeed)) {
		return false
	}
	if !categoricalCompatible(string(r.StorageType), string(req.StorageType)) {
		return false
	}
	return true
}

// categoricalCompatible reports whether a host axis value `have` can serve a
// tenant requirement `want`: empty (Any) on either side always matches,
// otherwise the values must be identical.
func categoricalCompatible(have, want string) bool {
	if want == "" || have == "" {
		return true
	}
	return have == want
}

func widenDiskSpeed(a, b DiskSpeed) DiskSpeed {
	if a == DiskSpeedAny || b == DiskSpeedAny {
		return DiskSpeedAny
	}
	if a == b {
		return a
	}
	return DiskSpeedAny
}

func widenStorageType(a, b StorageType) StorageType {
	if a == StorageTypeAny || b == StorageTypeAny {
		return StorageTypeAny
	}
	if a == b {
		return a
	}
	return StorageTypeAny
}

// String renders a compact human-readable summary, used in log messages and
// error context values.
func (r Resources) String() string {
	return fmt.Sprintf("cpu=%.2g mem=%.2g disk=%.2g bw=%.2g gpu=%.2g diskSpeed=%s storage=%s",
		r.CPU, r.Memory, r.Disk, r.Bandwidth, r.GPU, orAny(string(r.DiskSpeed)), orAny(string(r.StorageType)))
}

func orAny(v string) string {
	if v == "" {
		return "any"
	}
	return v
}
