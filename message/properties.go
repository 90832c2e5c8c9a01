package message

import (
	"sort"
	"sync"
)

// Properties is a message's context property bag.
//
// It is safe for concurrent use. The zero-value is an empty property bag.
type Properties struct {
	m      sync.RWMutex
	values map[string]any
}

// Get returns the value of the property with the given name.
func (p *Properties) Get(name string) (any, bool) {
	p.m.RLock()
	defer p.m.RUnlock()

	v, ok := p.values[name]
	return v, ok
}

// Set sets the value of the property with the given name.
func (p *Properties) Set(name string, v any) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.values == nil {
		p.values = map[string]any{}
	}

	p.values[name] = v
}

// Delete removes the property with the given name.
func (p *Properties) Delete(name string) {
	p.m.Lock()
	defer p.m.Unlock()

	delete(p.values, name)
}

// Keys returns the names of all properties, in lexical order.
func (p *Properties) Keys() []string {
	p.m.RLock()
	defer p.m.RUnlock()

	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Map returns a copy of the properties as a map.
func (p *Properties) Map() map[string]any {
	p.m.RLock()
	defer p.m.RUnlock()

	m := make(map[string]any, len(p.values))
	for k, v := range p.values {
		m[k] = v
	}

	return m
}

// Load replaces all properties with the content of m.
func (p *Properties) Load(m map[string]any) {
	p.m.Lock()
	defer p.m.Unlock()

	p.values = make(map[string]any, len(m))
	for k, v := range m {
		p.values[k] = v
	}
}

// Clone returns a copy of p.
func (p *Properties) Clone() *Properties {
	c := &Properties{}
	c.Load(p.Map())
	return c
}
