package gpu

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Fallback budget when no explicit limit is set and the driver exposes
// no dedicated-memory figure. Placeholder value carried over as-is.
const defaultMaxMemoryMB = 256

// Accountant keeps process-wide GPU texture memory totals. Virtual
// bytes count what fully resolved textures would occupy; resident
// bytes count what is actually allocated on the device. Both sides of
// the pipeline (render thread and transfer workers) report here, so
// every counter is atomic.
type Accountant struct {
	virtual  atomic.Uint64
	resident atomic.Uint64
	count    atomic.Int64

	// 0 means unset for both.
	allowedUsage atomic.Uint64
	dedicated    atomic.Uint64
}

// NewAccountant returns an empty accountant.
func NewAccountant() *Accountant { return &Accountant{} }

var defaultAccountant = NewAccountant()

// Accounting returns the process-wide accountant instance.
func Accounting() *Accountant { return defaultAccountant }

// ReportVirtualDelta replaces oldBytes with newBytes in the virtual
// total.
func (a *Accountant) ReportVirtualDelta(oldBytes, newBytes uint64) {
	applyDelta(&a.virtual, "virtual", oldBytes, newBytes)
}

// ReportResidentDelta replaces oldBytes with newBytes in the resident
// total.
func (a *Accountant) ReportResidentDelta(oldBytes, newBytes uint64) {
	applyDelta(&a.resident, "resident", oldBytes, newBytes)
}

// applyDelta adjusts a running total by (new - old). The total must
// never go negative: that is a bookkeeping bug, fatal under the
// invariants build tag and clamped to zero otherwise.
func applyDelta(c *atomic.Uint64, name string, oldBytes, newBytes uint64) {
	if newBytes >= oldBytes {
		c.Add(newBytes - oldBytes)
		return
	}
	dec := oldBytes - newBytes
	for {
		cur := c.Load()
		next := uint64(0)
		if cur >= dec {
			next = cur - dec
		} else {
			assertf("texture %s memory underflow: %d - %d", name, cur, dec)
			logrus.Errorf("texture %s memory underflow: %d - %d, clamping to 0", name, cur, dec)
		}
		if c.CompareAndSwap(cur, next) {
			return
		}
	}
}

// VirtualTotal returns the current virtual byte total.
func (a *Accountant) VirtualTotal() uint64 { return a.virtual.Load() }

// ResidentTotal returns the current resident byte total.
func (a *Accountant) ResidentTotal() uint64 { return a.resident.Load() }

// IncrementTextureCount records a live GPU texture object.
func (a *Accountant) IncrementTextureCount() { a.count.Add(1) }

// DecrementTextureCount records a destroyed GPU texture object.
func (a *Accountant) DecrementTextureCount() {
	if a.count.Add(-1) < 0 {
		assertf("texture count underflow")
		logrus.Error("texture count underflow, clamping to 0")
		a.count.Store(0)
	}
}

// TextureCount returns the number of live GPU texture objects.
func (a *Accountant) TextureCount() int64 { return a.count.Load() }

// SetAllowedUsage sets an explicit texture memory budget in bytes.
// Zero clears the limit.
func (a *Accountant) SetAllowedUsage(bytes uint64) { a.allowedUsage.Store(bytes) }

// AllowedUsage returns the explicit budget, 0 if unset.
func (a *Accountant) AllowedUsage() uint64 { return a.allowedUsage.Load() }

// SetDedicatedMemory records the device's dedicated memory as
// discovered by the backend. Zero means unknown.
func (a *Accountant) SetDedicatedMemory(bytes uint64) { a.dedicated.Store(bytes) }

// Pressure returns consumed resident bytes divided by the available
// budget. Values above 1.0 mean over budget; eviction is the caller's
// problem, never triggered here.
func (a *Accountant) Pressure() float64 {
	available := a.allowedUsage.Load()
	if available == 0 {
		total := a.dedicated.Load()
		if total == 0 {
			total = defaultMaxMemoryMB << 20
		}
		// Let textures consume 75% of whatever the device has.
		available = (total >> 2) * 3
	}
	return float64(a.resident.Load()) / float64(available)
}
