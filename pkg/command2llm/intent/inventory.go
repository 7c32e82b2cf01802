// inventory.go maintains the cached list of commands the interceptor can
// dispatch to: every command of every active plugin except the
// interceptor's own. The cache has a TTL and an optional cron-driven
// background refresh, plus on-demand refresh via the refresh_commands
// command.
package intent

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vmoranv/command2llm/pkg/command2llm/bot"
)

// DefaultCacheTTL is the inventory cache lifetime when none is configured.
const DefaultCacheTTL = 5 * time.Minute

// Inventory caches the enumerable command list from the host registry.
type Inventory struct {
	registry *bot.Registry

	// exclude is the plugin whose commands are never listed (the
	// interceptor itself).
	exclude string

	ttl    time.Duration
	logger *slog.Logger

	mu        sync.RWMutex
	cached    []bot.CommandInfo
	fetchedAt time.Time

	// cron drives the optional background refresh.
	cron *cron.Cron
}

// NewInventory creates an inventory over the host registry.
func NewInventory(registry *bot.Registry, exclude string, ttl time.Duration, logger *slog.Logger) *Inventory {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inventory{
		registry: registry,
		exclude:  exclude,
		ttl:      ttl,
		logger:   logger.With("component", "inventory"),
	}
}

// Commands returns the cached command inventory, re-enumerating the
// registry when the cache has expired.
func (inv *Inventory) Commands() []bot.CommandInfo {
	inv.mu.RLock()
	fresh := time.Since(inv.fetchedAt) < inv.ttl && inv.cached != nil
	cached := inv.cached
	inv.mu.RUnlock()

	if fresh {
		return cached
	}
	return inv.Refresh()
}

// Names returns the cached command names (no descriptions), in registry
// order. This is the list the fuzzy matcher scores against.
func (inv *Inventory) Names() []string {
	commands := inv.Commands()
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.Name
	}
	return names
}

// Labels returns the cached commands formatted "name#description", the
// form handed to the LLM in the system prompt.
func (inv *Inventory) Labels() []string {
	commands := inv.Commands()
	labels := make([]string, len(commands))
	for i, c := range commands {
		labels[i] = c.Label()
	}
	return labels
}

// Refresh re-enumerates the registry immediately and resets the TTL.
func (inv *Inventory) Refresh() []bot.CommandInfo {
	commands := inv.registry.CommandInventory(inv.exclude)

	inv.mu.Lock()
	inv.cached = commands
	inv.fetchedAt = time.Now()
	inv.mu.Unlock()

	inv.logger.Debug("command inventory refreshed", "commands", len(commands))
	return commands
}

// StartRefresher schedules a periodic background refresh with the given
// cron spec (e.g. "@every 5m"). No-op when schedule is empty.
func (inv *Inventory) StartRefresher(schedule string) error {
	if schedule == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { inv.Refresh() }); err != nil {
		return fmt.Errorf("scheduling inventory refresh %q: %w", schedule, err)
	}
	c.Start()
	inv.cron = c

	inv.logger.Info("inventory refresher started", "schedule", schedule)
	return nil
}

// StopRefresher stops the background refresh, if running.
func (inv *Inventory) StopRefresher() {
	if inv.cron != nil {
		inv.cron.Stop()
	}
}
