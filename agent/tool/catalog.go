package tool

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	registryx "github.com/pitchside/pitchside-agent/agent/registry"
)

// Builtin is one registrable tool: descriptor plus implementation.
type Builtin struct {
	Descriptor contractx.ToolDescriptor
	Impl       contractx.Tool
}

// RegisterBuiltins installs the demo tool set into the registry. The
// implementations serve synthetic data; production deployments replace
// them with real providers behind the same descriptors.
func RegisterBuiltins(registry *registryx.Registry) error {
	for _, builtin := range Builtins() {
		if err := registry.Register(builtin.Descriptor, builtin.Impl); err != nil {
			return fmt.Errorf("register %s: %w", builtin.Descriptor.ID, err)
		}
	}
	return nil
}

func Builtins() []Builtin {
	return []Builtin{
		{
			Descriptor: contractx.ToolDescriptor{
				ID:          "match_data.latest_result",
				Category:    "match_data",
				Description: "Latest final score for one team.",
				InputSchema: []contractx.ParameterSpec{
					{Name: "team", Type: contractx.ParamString, Required: true},
				},
				Reliability: 0.97,
				Freshness:   contractx.FreshnessRealtime,
				CostWeight:  0.1,
			},
			Impl: contractx.ToolFunc(func(_ context.Context, params map[string]any) (any, error) {
				return map[string]any{
					"team":     params["team"],
					"opponent": "Brighton",
					"score":    "2-1",
					"played":   "2026-08-29",
				}, nil
			}),
		},
		{
			Descriptor: contractx.ToolDescriptor{
				ID:          "match_data.fixtures",
				Category:    "match_data",
				Description: "Upcoming fixtures for one team.",
				InputSchema: []contractx.ParameterSpec{
					{Name: "team", Type: contractx.ParamString, Required: true},
					{Name: "date_range", Type: contractx.ParamDateRange, Required: false},
				},
				Reliability: 0.95,
				Freshness:   contractx.FreshnessDaily,
				CostWeight:  0.1,
			},
			Impl: contractx.ToolFunc(func(_ context.Context, params map[string]any) (any, error) {
				return map[string]any{
					"team": params["team"],
					"fixtures": []map[string]any{
						{"opponent": "Newcastle", "date": "2026-09-05", "home": true},
						{"opponent": "Everton", "date": "2026-09-12", "home": false},
					},
				}, nil
			}),
		},
		{
			Descriptor: contractx.ToolDescriptor{
				ID:          "stats.player_form",
				Category:    "stats",
				Description: "Recent form numbers for one player.",
				InputSchema: []contractx.ParameterSpec{
					{Name: "player", Type: contractx.ParamString, Required: true},
					{Name: "date_range", Type: contractx.ParamDateRange, Required: false},
				},
				Reliability: 0.93,
				Freshness:   contractx.FreshnessDaily,
				CostWeight:  0.2,
			},
			Impl: contractx.ToolFunc(func(_ context.Context, params map[string]any) (any, error) {
				return map[string]any{
					"player":  params["player"],
					"window":  params["date_range"],
					"goals":   4,
					"assists": 2,
					"rating":  7.8,
				}, nil
			}),
		},
		{
			Descriptor: contractx.ToolDescriptor{
				ID:          "stats.team_form",
				Category:    "stats",
				Description: "Recent results and goal tallies for one team.",
				InputSchema: []contractx.ParameterSpec{
					{Name: "team", Type: contractx.ParamString, Required: true},
					{Name: "date_range", Type: contractx.ParamDateRange, Required: false},
				},
				Reliability: 0.93,
				Freshness:   contractx.FreshnessDaily,
				CostWeight:  0.2,
			},
			Impl: contractx.ToolFunc(func(_ context.Context, params map[string]any) (any, error) {
				return map[string]any{
					"team":          params["team"],
					"form":          "WWDLW",
					"goals_for":     11,
					"goals_against": 5,
				}, nil
			}),
		},
		{
			Descriptor: contractx.ToolDescriptor{
				ID:          "comparison.head_to_head",
				Category:    "comparison",
				Description: "Head-to-head record between two teams.",
				InputSchema: []contractx.ParameterSpec{
					{Name: "team_a", Type: contractx.ParamString, Required: true},
					{Name: "team_b", Type: contractx.ParamString, Required: true},
				},
				Reliability: 0.9,
				Freshness:   contractx.FreshnessStatic,
				CostWeight:  0.3,
			},
			Impl: contractx.ToolFunc(func(_ context.Context, params map[string]any) (any, error) {
				return map[string]any{
					"team_a": params["team_a"],
					"team_b": params["team_b"],
					"wins_a": 24,
					"wins_b": 19,
					"draws":  12,
				}, nil
			}),
		},
		{
			Descriptor: contractx.ToolDescriptor{
				ID:          "news.headlines",
				Category:    "news",
				Description: "Latest headlines for a team or player.",
				InputSchema: []contractx.ParameterSpec{
					{Name: "subject", Type: contractx.ParamString, Required: true},
				},
				Reliability: 0.88,
				Freshness:   contractx.FreshnessRealtime,
				CostWeight:  0.2,
			},
			Impl: contractx.ToolFunc(func(_ context.Context, params map[string]any) (any, error) {
				return map[string]any{
					"subject": params["subject"],
					"headlines": []string{
						"Squad fully fit ahead of weekend fixture",
						"Manager hints at new formation",
					},
				}, nil
			}),
		},
		{
			Descriptor: contractx.ToolDescriptor{
				ID:          "prediction.match_odds",
				Category:    "prediction",
				Description: "Win probabilities for an upcoming match.",
				InputSchema: []contractx.ParameterSpec{
					{Name: "team_a", Type: contractx.ParamString, Required: true},
					{Name: "team_b", Type: contractx.ParamString, Required: true},
				},
				Reliability: 0.85,
				Freshness:   contractx.FreshnessDaily,
				CostWeight:  0.4,
			},
			Impl: contractx.ToolFunc(func(_ context.Context, params map[string]any) (any, error) {
				return map[string]any{
					"team_a": params["team_a"],
					"team_b": params["team_b"],
					"odds":   map[string]any{"home": 0.45, "draw": 0.27, "away": 0.28},
				}, nil
			}),
		},
		{
			Descriptor: contractx.ToolDescriptor{
				ID:          "util.clock",
				Category:    "util",
				Description: "Current date and time, for resolving relative dates.",
				InputSchema: nil,
				Reliability: 1,
				Freshness:   contractx.FreshnessStatic,
				CostWeight:  0,
			},
			Impl: contractx.ToolFunc(func(context.Context, map[string]any) (any, error) {
				now := time.Now().UTC()
				return map[string]any{
					"utc":  now.Format(time.RFC3339),
					"date": now.Format("2006-01-02"),
				}, nil
			}),
		},
	}
}
