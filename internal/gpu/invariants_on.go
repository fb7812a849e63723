//go:build invariants

package gpu

import "fmt"

// assertf panics in invariant-checked builds.
func assertf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
