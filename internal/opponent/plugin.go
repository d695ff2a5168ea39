package opponent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayusman/handcricket/internal/plugin"
)

// PluginStrategy runs an external strategy plugin for every move.
type PluginStrategy struct {
	executor *plugin.Executor
	plugin   *plugin.Plugin
	name     string
}

// NewPluginStrategy creates a strategy that asks p for the named strategy.
func NewPluginStrategy(executor *plugin.Executor, p *plugin.Plugin, strategy string) *PluginStrategy {
	return &PluginStrategy{executor: executor, plugin: p, name: strategy}
}

// Source implements Strategy.
func (s *PluginStrategy) Source() Source { return SourcePlugin }

// Move implements Strategy.
func (s *PluginStrategy) Move(ctx context.Context, c Context) (float64, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("%w: marshal context: %v", ErrRemoteStrategy, err)
	}

	resp, err := s.executor.Execute(ctx, s.plugin, &plugin.Request{Strategy: s.name, Context: raw})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRemoteStrategy, err)
	}
	if !resp.Success {
		return 0, fmt.Errorf("%w: plugin %s: %s", ErrRemoteStrategy, s.plugin.Manifest.Name, resp.Error)
	}
	if resp.Move == nil {
		return 0, fmt.Errorf("%w: plugin %s returned no move", ErrRemoteStrategy, s.plugin.Manifest.Name)
	}
	return *resp.Move, nil
}
