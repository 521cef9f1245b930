package adapter

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/x"
)

// ConfigTyper lets an adapter expose its configuration type so YAML adapter
// settings can be resolved into the right Go struct.
type ConfigTyper interface {
	ConfigType() reflect.Type
}

// Registry holds the adapters available to the dispatcher and the binding
// from task type to adapter.
type Registry struct {
	types    *x.Registry
	adapters map[string]Adapter
	bindings map[task.Type]string
	mux      sync.RWMutex
}

// NewRegistry creates an adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		types:    x.NewRegistry(),
		adapters: make(map[string]Adapter),
		bindings: make(map[task.Type]string),
	}
}

// Register adds an adapter, recording its configuration type when exposed.
func (r *Registry) Register(adapter Adapter) {
	r.mux.Lock()
	defer r.mux.Unlock()
	if typer, ok := adapter.(ConfigTyper); ok {
		r.types.Register(x.NewType(typer.ConfigType(), x.WithName(adapter.Name())))
	}
	r.adapters[adapter.Name()] = adapter
}

// Bind routes a task type to a named adapter.
func (r *Registry) Bind(taskType task.Type, adapterName string) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	if _, ok := r.adapters[adapterName]; !ok {
		return fmt.Errorf("unknown adapter: %s", adapterName)
	}
	r.bindings[taskType] = adapterName
	return nil
}

// Lookup returns the adapter bound to the task type, falling back to the
// adapter registered under the type's own name and finally to "nop".
func (r *Registry) Lookup(taskType task.Type) Adapter {
	r.mux.RLock()
	defer r.mux.RUnlock()
	if name, ok := r.bindings[taskType]; ok {
		return r.adapters[name]
	}
	if adapter, ok := r.adapters[string(taskType)]; ok {
		return adapter
	}
	return r.adapters["nop"]
}

// ConfigType returns the registered configuration type for an adapter name.
func (r *Registry) ConfigType(name string) reflect.Type {
	r.mux.RLock()
	defer r.mux.RUnlock()
	if registered := r.types.Lookup(name); registered != nil {
		return registered.Type
	}
	return nil
}
