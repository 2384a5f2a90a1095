package counters

import (
	"encoding/json"
	"sort"
)

// Counter is a single named tally attached to a card or a user.
type Counter struct {
	Name  string
	Count int
}

// NewCounter creates a new counter with the given name and count.
// Negative counts are clamped to zero.
func NewCounter(name string, count int) *Counter {
	if count < 0 {
		count = 0
	}
	return &Counter{
		Name:  name,
		Count: count,
	}
}

// Add adds the specified amount to the counter.
func (c *Counter) Add(amount int) {
	if amount > 0 {
		c.Count += amount
	}
}

// Remove removes the specified amount from the counter.
// Will not allow count to go below 0.
func (c *Counter) Remove(amount int) {
	if amount <= 0 {
		return
	}
	if c.Count >= amount {
		c.Count -= amount
	} else {
		c.Count = 0
	}
}

// Copy creates a deep copy of the counter.
func (c *Counter) Copy() *Counter {
	return &Counter{
		Name:  c.Name,
		Count: c.Count,
	}
}

// Counters manages a collection of counters keyed by name.
// The zero value is not usable; call NewCounters.
type Counters struct {
	counters map[string]*Counter
}

// NewCounters creates a new Counters collection.
func NewCounters() *Counters {
	return &Counters{
		counters: make(map[string]*Counter),
	}
}

// Add adds amount to the named counter, creating it when missing.
func (cs *Counters) Add(name string, amount int) int {
	if amount <= 0 {
		return cs.Get(name)
	}
	if existing, ok := cs.counters[name]; ok {
		existing.Add(amount)
		return existing.Count
	}
	cs.counters[name] = NewCounter(name, amount)
	return amount
}

// AddCapped adds amount to the named counter without exceeding limit and
// returns how much was actually added.
func (cs *Counters) AddCapped(name string, amount, limit int) int {
	current := cs.Get(name)
	if amount <= 0 || current >= limit {
		return 0
	}
	if current+amount > limit {
		amount = limit - current
	}
	cs.Add(name, amount)
	return amount
}

// Remove removes amount from the named counter. The counter disappears once it
// reaches zero. Returns true if any counters were removed.
func (cs *Counters) Remove(name string, amount int) bool {
	if amount <= 0 {
		return false
	}
	counter, ok := cs.counters[name]
	if !ok {
		return false
	}
	counter.Remove(amount)
	if counter.Count == 0 {
		delete(cs.counters, name)
	}
	return true
}

// Set overwrites the named counter. A non-positive count clears it.
func (cs *Counters) Set(name string, count int) {
	if count <= 0 {
		delete(cs.counters, name)
		return
	}
	cs.counters[name] = NewCounter(name, count)
}

// Get returns the count of the named counter, zero when absent.
func (cs *Counters) Get(name string) int {
	if cs == nil {
		return 0
	}
	if counter, ok := cs.counters[name]; ok {
		return counter.Count
	}
	return 0
}

// Has reports whether the named counter is present and positive.
func (cs *Counters) Has(name string) bool {
	return cs.Get(name) > 0
}

// Len returns the number of distinct counters.
func (cs *Counters) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.counters)
}

// Names returns the counter names in sorted order.
func (cs *Counters) Names() []string {
	if cs == nil {
		return nil
	}
	names := make([]string, 0, len(cs.counters))
	for name := range cs.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes every counter.
func (cs *Counters) Clear() {
	cs.counters = make(map[string]*Counter)
}

// Copy creates a deep copy of the collection.
func (cs *Counters) Copy() *Counters {
	out := NewCounters()
	if cs == nil {
		return out
	}
	for name, counter := range cs.counters {
		out.counters[name] = counter.Copy()
	}
	return out
}

// MarshalJSON encodes the collection as a flat name -> count object.
func (cs *Counters) MarshalJSON() ([]byte, error) {
	flat := make(map[string]int)
	if cs != nil {
		for name, counter := range cs.counters {
			flat[name] = counter.Count
		}
	}
	return json.Marshal(flat)
}

// UnmarshalJSON decodes a flat name -> count object.
func (cs *Counters) UnmarshalJSON(data []byte) error {
	var flat map[string]int
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	cs.counters = make(map[string]*Counter, len(flat))
	for name, count := range flat {
		if count > 0 {
			cs.counters[name] = NewCounter(name, count)
		}
	}
	return nil
}
