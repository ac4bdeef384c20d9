package optimistic

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// board is per-key caller state so concurrent actions do not overlap.
type board struct {
	mu     sync.Mutex
	values map[int]int
}

func (b *board) get(k int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.values[k]
}

func (b *board) set(k, v int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[k] = v
}

// TestConcurrentActionsSettle verifies registry bookkeeping for any mix of
// outcomes and any settlement order.
// Property: PendingCount == N after N Starts, 0 after all settle, and every
// key ends at its optimistic value iff its confirmation succeeded.
func TestConcurrentActionsSettle(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.MaxSize = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("registry drains to zero and rollbacks use own snapshot", prop.ForAll(
		func(fails []bool, seed int64) bool {
			reg := NewRegistry(WithLogger(quietLogger()))
			state := &board{values: make(map[int]int)}
			errRejected := errors.New("rejected")

			pendings := make([]*Pending[string], len(fails))
			releases := make([]chan<- outcome, len(fails))
			for i := range fails {
				key := i
				confirm, release := gatedConfirm()
				releases[i] = release
				p, err := Start(context.Background(), reg, Update[int, string]{
					Label:    fmt.Sprintf("k%d", key),
					Snapshot: func() int { return state.get(key) },
					Apply:    func() int { state.set(key, key+1); return key + 1 },
					Confirm:  confirm,
					Revert:   func(prev int) { state.set(key, prev) },
				})
				if err != nil {
					return false
				}
				pendings[i] = p
			}

			if reg.PendingCount() != len(fails) {
				return false
			}
			if reg.IsPending("") != (len(fails) > 0) {
				return false
			}

			order := rand.New(rand.NewSource(seed)).Perm(len(fails))
			for _, i := range order {
				if fails[i] {
					releases[i] <- outcome{err: errRejected}
				} else {
					releases[i] <- outcome{result: "ok"}
				}
				_, err := pendings[i].Wait()
				if fails[i] != (err == errRejected) {
					return false
				}
			}

			if reg.PendingCount() != 0 || reg.IsPending("") {
				return false
			}
			for i, failed := range fails {
				want := i + 1
				if failed {
					want = 0
				}
				if state.get(i) != want {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
