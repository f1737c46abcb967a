// Package codec pairs Custom shapes with hook implementations. A Registry
// collects per-type wire conversions and compiles them into the single
// DecodeHook/EncodeHook the engine accepts.
package codec

import (
	"fmt"
	"reflect"
	"sync"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

type entry struct {
	rt     reflect.Type
	decode func(raw any) (any, error)
	encode func(v any) (any, error)
}

// Registry maps custom type names and runtime types to wire conversions.
// Registration is not safe to interleave with hook calls; populate the
// registry first, then hand its hooks to decoders and encoders.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]entry
	byType map[reflect.Type]entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: map[string]entry{},
		byType: map[reflect.Type]entry{},
	}
}

// Register installs conversions for Custom[T](name). decode turns the raw
// decoded wire value (builtins only) into T; encode turns T back into an
// encodable value. Either may be nil when only one direction is needed.
func Register[T any](r *Registry, name string, decode func(raw any) (T, error), encode func(v T) (any, error)) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	e := entry{rt: rt}
	if decode != nil {
		e.decode = func(raw any) (any, error) { return decode(raw) }
	}
	if encode != nil {
		e.encode = func(v any) (any, error) {
			t, ok := v.(T)
			if !ok {
				return nil, fmt.Errorf("codec: %q got %T, want %v", name, v, rt)
			}
			return encode(t)
		}
	}
	r.mu.Lock()
	r.byName[name] = e
	r.byType[rt] = e
	r.mu.Unlock()
}

// DecodeHook returns the decode hook dispatching over registered names.
func (r *Registry) DecodeHook() hyperspec.DecodeHook {
	return func(rt reflect.Type, name string, raw any) (any, error) {
		r.mu.RLock()
		e, ok := r.byName[name]
		if !ok && rt != nil {
			e, ok = r.byType[rt]
		}
		r.mu.RUnlock()
		if !ok || e.decode == nil {
			return nil, fmt.Errorf("codec: no decoder registered for %q", name)
		}
		return e.decode(raw)
	}
}

// EncodeHook returns the encode hook dispatching over registered runtime
// types.
func (r *Registry) EncodeHook() hyperspec.EncodeHook {
	return func(v any) (any, error) {
		r.mu.RLock()
		e, ok := r.byType[reflect.TypeOf(v)]
		r.mu.RUnlock()
		if !ok || e.encode == nil {
			return nil, fmt.Errorf("codec: no encoder registered for %T", v)
		}
		return e.encode(v)
	}
}
