package bottle

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"feedfloat/internal/storage/kv"
)

const (
	// InitialDefaultMl is used until a default has been learned or set.
	InitialDefaultMl = 90.0

	defaultKey      = "bottle.default_ml"
	observationsKey = "bottle.observations"
	promoteAfter    = 2
)

// Learner keeps the default bottle volume and learns a larger one once the
// same volume has been entered repeatedly.
type Learner struct {
	mu    sync.Mutex
	store kv.Store
}

// NewLearner returns a Learner persisting to store. A nil store keeps
// everything in memory.
func NewLearner(store kv.Store) *Learner {
	if store == nil {
		store = kv.NewMemory()
	}
	return &Learner{store: store}
}

// Default returns the persisted default volume or InitialDefaultMl.
func (learner *Learner) Default() float64 {
	learner.mu.Lock()
	defer learner.mu.Unlock()
	return learner.defaultLocked()
}

// SetDefault persists value as the new default. Non-positive values are ignored.
func (learner *Learner) SetDefault(value float64) {
	if !isPositive(value) {
		return
	}
	learner.mu.Lock()
	defer learner.mu.Unlock()
	learner.setDefaultLocked(value)
}

// Record counts one use of amount and returns the possibly promoted default.
func (learner *Learner) Record(amount float64) float64 {
	rounded := math.Round(amount)
	if math.IsNaN(rounded) || rounded < 0 {
		rounded = 0
	}

	learner.mu.Lock()
	defer learner.mu.Unlock()

	current := learner.defaultLocked()
	if rounded == 0 || math.IsInf(rounded, 0) {
		return current
	}

	counts := learner.observationsLocked()
	key := strconv.FormatFloat(rounded, 'f', -1, 64)
	counts[key]++
	learner.saveObservationsLocked(counts)

	if rounded > current && counts[key] >= promoteAfter {
		learner.setDefaultLocked(rounded)
		slog.Info("bottle default promoted", "from_ml", current, "to_ml", rounded)
		return rounded
	}
	return current
}

// Observations returns a copy of the observed volume counts.
func (learner *Learner) Observations() map[string]int {
	learner.mu.Lock()
	defer learner.mu.Unlock()
	return learner.observationsLocked()
}

func (learner *Learner) defaultLocked() float64 {
	raw, ok, err := learner.store.Get(defaultKey)
	if err != nil {
		slog.Debug("read bottle default", "error", err)
		return InitialDefaultMl
	}
	if !ok {
		return InitialDefaultMl
	}
	var value float64
	if err := json.Unmarshal([]byte(raw), &value); err != nil || !isPositive(value) {
		return InitialDefaultMl
	}
	return value
}

func (learner *Learner) setDefaultLocked(value float64) {
	serialized, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := learner.store.Set(defaultKey, string(serialized)); err != nil {
		slog.Debug("write bottle default", "error", err)
	}
}

func (learner *Learner) observationsLocked() map[string]int {
	counts := make(map[string]int)
	raw, ok, err := learner.store.Get(observationsKey)
	if err != nil || !ok {
		return counts
	}
	var decoded map[string]int
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return counts
	}
	for key, count := range decoded {
		counts[key] = count
	}
	return counts
}

func (learner *Learner) saveObservationsLocked(counts map[string]int) {
	serialized, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err := learner.store.Set(observationsKey, string(serialized)); err != nil {
		slog.Debug("write bottle observations", "error", err)
	}
}

func isPositive(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value > 0
}
