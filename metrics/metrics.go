package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counter names incremented by the service
const (
	RequestsTotal  = "request.total"
	RequestsGet    = "request.get"
	RequestsPost   = "request.post"
	RequestsPut    = "request.put"
	RequestsDelete = "request.delete"

	AuthTokensCreated = "auth.tokens_created"
	AuthFailed        = "auth.failed"

	UsersRegistered = "users.registered"
	UsersLoggedIn   = "users.logged_in"
	UsersLoggedOut  = "users.logged_out"

	FranchisesCreated = "franchise.created"
	FranchisesDeleted = "franchise.deleted"
	StoresCreated     = "store.created"
	StoresDeleted     = "store.deleted"

	MenuHits      = "menu.hits"
	OrdersCreated = "orders.created"
	OrdersFailed  = "orders.failed"
	// RevenueMicros accumulates order totals in millionths of the currency unit
	RevenueMicros = "orders.revenue_micros"
)

// Recorder is all the service needs from metrics. Implementations must never
// block or fail.
type Recorder interface {
	Inc(name string)
	Add(name string, delta int64)
}

// Nop discards everything
type Nop struct{}

func (Nop) Inc(string)        {}
func (Nop) Add(string, int64) {}

// Registry is a process-wide set of named atomic counters
type Registry struct {
	counters sync.Map // name -> *atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) counter(name string) *atomic.Int64 {
	if c, ok := r.counters.Load(name); ok {
		return c.(*atomic.Int64)
	}
	c, _ := r.counters.LoadOrStore(name, new(atomic.Int64))
	return c.(*atomic.Int64)
}

func (r *Registry) Inc(name string) {
	r.counter(name).Add(1)
}

func (r *Registry) Add(name string, delta int64) {
	r.counter(name).Add(delta)
}

// Value returns the current value of name, zero if it was never touched
func (r *Registry) Value(name string) int64 {
	if c, ok := r.counters.Load(name); ok {
		return c.(*atomic.Int64).Load()
	}
	return 0
}

// Sample is a counter value at snapshot time
type Sample struct {
	Name  string
	Value int64
}

// Snapshot reads every counter, sorted by name
func (r *Registry) Snapshot() []Sample {
	var samples []Sample
	r.counters.Range(func(k, v any) bool {
		samples = append(samples, Sample{Name: k.(string), Value: v.(*atomic.Int64).Load()})
		return true
	})
	sort.Slice(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples
}
