// Package bot implements the command2llm host: a plugin registry, the chat
// event model, and the dispatch loop that routes incoming messages through
// command handlers and plugin interceptors.
//
// plugin.go defines the plugin contract and the registry that tracks which
// plugins are active and which chat commands they expose.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// CommandHandler executes a chat command. args holds the whitespace-split
// tokens following the command name. The returned string is sent back to
// the originating chat.
type CommandHandler func(ctx context.Context, ev *Event, args []string) (string, error)

// CommandSpec describes a single chat command registered by a plugin.
// Name may contain a space for grouped commands ("group sub").
type CommandSpec struct {
	Name        string
	Description string
	Handler     CommandHandler
}

// Plugin is the contract every command2llm plugin implements.
type Plugin interface {
	// Name returns the unique plugin identifier.
	Name() string

	// Description returns a short human-readable summary.
	Description() string

	// Commands returns the chat commands this plugin registers.
	Commands() []CommandSpec

	// OnMessage is called for every non-command message, in registration
	// order, until a plugin stops propagation.
	OnMessage(ctx context.Context, ev *Event) error
}

// Initializer is implemented by plugins that need startup work.
type Initializer interface {
	Init(ctx context.Context) error
}

// Terminator is implemented by plugins that need shutdown work.
type Terminator interface {
	Terminate()
}

// CommandInfo is an inventory entry: a command name with its description
// and owning plugin. This is what other components (help surfaces, the
// intent interceptor) enumerate.
type CommandInfo struct {
	Name        string
	Description string
	Plugin      string
}

// Label formats the inventory entry as "name#description", the form the
// interceptor feeds to the LLM. Commands without a description are just
// the name.
func (c CommandInfo) Label() string {
	if c.Description == "" {
		return c.Name
	}
	return c.Name + "#" + c.Description
}

// Registry tracks installed plugins, their activation state, and their
// registered commands.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*pluginEntry
	order   []string
	logger  *slog.Logger
}

type pluginEntry struct {
	plugin  Plugin
	enabled bool
}

// NewRegistry creates an empty plugin registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		plugins: make(map[string]*pluginEntry),
		logger:  logger.With("component", "registry"),
	}
}

// Register installs a plugin. Plugins are active by default and run in
// registration order.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("plugin %q already registered", name)
	}

	r.plugins[name] = &pluginEntry{plugin: p, enabled: true}
	r.order = append(r.order, name)

	r.logger.Info("plugin registered",
		"plugin", name,
		"commands", len(p.Commands()),
	)
	return nil
}

// Enable activates a plugin.
func (r *Registry) Enable(name string) error {
	return r.setEnabled(name, true)
}

// Disable deactivates a plugin. Its commands stop resolving and its
// OnMessage hook is skipped.
func (r *Registry) Disable(name string) error {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.plugins[name]
	if !ok {
		return fmt.Errorf("plugin %q not found", name)
	}
	e.enabled = enabled
	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.plugins[name]
	if !ok {
		return nil, false
	}
	return e.plugin, true
}

// Active returns all enabled plugins in registration order.
func (r *Registry) Active() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, 0, len(r.order))
	for _, name := range r.order {
		if e := r.plugins[name]; e.enabled {
			result = append(result, e.plugin)
		}
	}
	return result
}

// CommandInventory enumerates the commands of all active plugins, in
// registration order, skipping the named plugin (so a plugin can exclude
// its own commands from the list it hands to the LLM).
func (r *Registry) CommandInventory(exclude string) []CommandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var inventory []CommandInfo
	for _, name := range r.order {
		e := r.plugins[name]
		if !e.enabled || name == exclude {
			continue
		}
		for _, spec := range e.plugin.Commands() {
			inventory = append(inventory, CommandInfo{
				Name:        spec.Name,
				Description: spec.Description,
				Plugin:      name,
			})
		}
	}
	return inventory
}

// ResolveCommand finds the command matching the leading tokens of input
// (already stripped of the wake word). Two-token grouped names are tried
// before single-token names. Returns the spec, the remaining args, and
// whether a command matched.
func (r *Registry) ResolveCommand(input string) (CommandSpec, []string, bool) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return CommandSpec{}, nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	// Longest name first: "group sub" beats "group".
	if len(fields) >= 2 {
		grouped := fields[0] + " " + fields[1]
		if spec, ok := r.lookupLocked(grouped); ok {
			return spec, fields[2:], true
		}
	}
	if spec, ok := r.lookupLocked(fields[0]); ok {
		return spec, fields[1:], true
	}
	return CommandSpec{}, nil, false
}

// lookupLocked scans active plugins for a command by exact name.
// Caller holds at least a read lock.
func (r *Registry) lookupLocked(name string) (CommandSpec, bool) {
	for _, pname := range r.order {
		e := r.plugins[pname]
		if !e.enabled {
			continue
		}
		for _, spec := range e.plugin.Commands() {
			if spec.Name == name {
				return spec, true
			}
		}
	}
	return CommandSpec{}, false
}
