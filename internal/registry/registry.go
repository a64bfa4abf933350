// Package registry provides module registries for input and output
// modules.
//
// The registry enables extensible module registration: instead of
// hard-coded switch statements, modules register their constructors by
// type string. Adding a new acquisition source or writer means
// implementing the module interface, writing a constructor matching the
// registry signature, and registering it in an init() function.
//
// Built-in modules (http, file, csv, sqlite) are registered automatically
// at startup via init() in builtins.go.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/modules/input"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/modules/output"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/pkg/popdata"
)

// InputConstructor is a function that creates an input module from
// configuration. Returns an error if the configuration is invalid.
type InputConstructor func(cfg *popdata.ModuleConfig) (input.Module, error)

// OutputConstructor is a function that creates an output module from
// configuration. Returns an error if the configuration is invalid.
type OutputConstructor func(cfg *popdata.ModuleConfig) (output.Module, error)

var (
	inputMu       sync.RWMutex
	inputRegistry = make(map[string]InputConstructor)

	outputMu       sync.RWMutex
	outputRegistry = make(map[string]OutputConstructor)
)

// RegisterInput registers an input module constructor for the given type
// string. Registering the same type twice panics; it indicates two
// modules claiming one name.
func RegisterInput(moduleType string, ctor InputConstructor) {
	inputMu.Lock()
	defer inputMu.Unlock()
	if _, exists := inputRegistry[moduleType]; exists {
		panic(fmt.Sprintf("registry: input module type %q already registered", moduleType))
	}
	inputRegistry[moduleType] = ctor
}

// RegisterOutput registers an output module constructor for the given
// type string.
func RegisterOutput(moduleType string, ctor OutputConstructor) {
	outputMu.Lock()
	defer outputMu.Unlock()
	if _, exists := outputRegistry[moduleType]; exists {
		panic(fmt.Sprintf("registry: output module type %q already registered", moduleType))
	}
	outputRegistry[moduleType] = ctor
}

// BuildInput creates an input module from its configuration.
func BuildInput(cfg *popdata.ModuleConfig) (input.Module, error) {
	if cfg == nil {
		return nil, fmt.Errorf("input module configuration is nil")
	}
	inputMu.RLock()
	ctor, ok := inputRegistry[cfg.Type]
	inputMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown input module type %q (registered: %v)", cfg.Type, InputTypes())
	}
	return ctor(cfg)
}

// BuildOutput creates an output module from its configuration.
func BuildOutput(cfg *popdata.ModuleConfig) (output.Module, error) {
	if cfg == nil {
		return nil, fmt.Errorf("output module configuration is nil")
	}
	outputMu.RLock()
	ctor, ok := outputRegistry[cfg.Type]
	outputMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown output module type %q (registered: %v)", cfg.Type, OutputTypes())
	}
	return ctor(cfg)
}

// InputTypes returns the registered input module types, sorted.
func InputTypes() []string {
	inputMu.RLock()
	defer inputMu.RUnlock()
	types := make([]string, 0, len(inputRegistry))
	for t := range inputRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// OutputTypes returns the registered output module types, sorted.
func OutputTypes() []string {
	outputMu.RLock()
	defer outputMu.RUnlock()
	types := make([]string, 0, len(outputRegistry))
	for t := range outputRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
