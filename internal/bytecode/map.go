package bytecode

// Map is a string-keyed map that iterates in insertion order.
type Map struct {
	keys  []string
	index map[string]int
	vals  []Value
}

// NewMap returns an empty map with room for n entries.
func NewMap(n int) *Map {
	return &Map{
		keys:  make([]string, 0, n),
		index: make(map[string]int, n),
		vals:  make([]Value, 0, n),
	}
}

func (m *Map) Len() int { return len(m.keys) }

func (m *Map) Get(key string) (Value, bool) {
	i, ok := m.index[key]
	if !ok {
		return Null, false
	}
	return m.vals[i], true
}

func (m *Map) Has(key string) bool {
	_, ok := m.index[key]
	return ok
}

// Set overwrites an existing key in place or appends a new one.
func (m *Map) Set(key string, v Value) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.vals[i] = v
		return
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, v)
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (m *Map) Keys() []string { return m.keys }

// At returns the i-th entry in insertion order.
func (m *Map) At(i int) (string, Value) { return m.keys[i], m.vals[i] }

// Each visits entries in insertion order until fn returns false.
func (m *Map) Each(fn func(key string, v Value) bool) {
	for i, k := range m.keys {
		if !fn(k, m.vals[i]) {
			return
		}
	}
}
