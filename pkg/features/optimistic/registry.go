package optimistic

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultLabel is used for actions registered without a label.
const DefaultLabel = "action"

// ActionInfo describes an outstanding Action.
type ActionInfo struct {
	// ID is unique within the Registry and never reused: "<label>-<seq>".
	ID string

	// Label is the grouping token supplied with the Update.
	Label string

	// Seq is the registry-scoped sequence number embedded in ID.
	Seq uint64

	// Started is when the Action was registered.
	Started time.Time
}

// action is the registry record of one in-flight optimistic change.
type action struct {
	info       ActionInfo
	optimistic any
	rollback   any
}

// Registry tracks in-flight optimistic actions.
// A Registry is safe for concurrent use. Instances are independent; there is
// no package-level state.
type Registry struct {
	mu      sync.Mutex
	seq     uint64
	actions map[string]*action

	// idle is closed whenever the registry is empty.
	idle chan struct{}

	notifier     Notifier
	logger       *slog.Logger
	interceptors []Interceptor
	now          func() time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	idle := make(chan struct{})
	close(idle)

	r := &Registry{
		actions: make(map[string]*action),
		idle:    idle,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.notifier == nil {
		r.notifier = logNotifier{logger: r.logger}
	}
	return r
}

// IsPending reports whether an outstanding action's ID contains filter.
// An empty filter matches any action, so IsPending("") reports whether the
// registry is non-empty.
func (r *Registry) IsPending(filter string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if filter == "" {
		return len(r.actions) > 0
	}
	for id := range r.actions {
		if strings.Contains(id, filter) {
			return true
		}
	}
	return false
}

// PendingCount returns the number of outstanding actions.
func (r *Registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

// Actions returns a snapshot of the outstanding actions in registration order.
func (r *Registry) Actions() []ActionInfo {
	r.mu.Lock()
	infos := make([]ActionInfo, 0, len(r.actions))
	for _, a := range r.actions {
		infos = append(infos, a.info)
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Seq < infos[j].Seq })
	return infos
}

// Drain blocks until the registry has been observed empty or ctx is done.
// Actions registered after Drain returns are not waited for.
func (r *Registry) Drain(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// register records a new action and returns its info.
func (r *Registry) register(label string, optimistic, rollback any) ActionInfo {
	if label == "" {
		label = DefaultLabel
	}

	r.mu.Lock()
	r.seq++
	info := ActionInfo{
		ID:      label + "-" + strconv.FormatUint(r.seq, 10),
		Label:   label,
		Seq:     r.seq,
		Started: r.now(),
	}
	if len(r.actions) == 0 {
		r.idle = make(chan struct{})
	}
	r.actions[info.ID] = &action{info: info, optimistic: optimistic, rollback: rollback}
	pending := len(r.actions)
	r.mu.Unlock()

	r.logger.Debug("optimistic action registered",
		"action_id", info.ID,
		"pending", pending,
	)
	return info
}

// remove deletes an action. It reports false if the action was already gone.
func (r *Registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.actions[id]; !ok {
		return false
	}
	delete(r.actions, id)
	if len(r.actions) == 0 {
		close(r.idle)
	}
	return true
}
