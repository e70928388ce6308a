package config

import "fmt"

// Validate checks high-impact configuration constraints.
func (c Config) Validate() error {
	if c.Heartbeat.WarnAfter <= 0 {
		return fmt.Errorf("heartbeat.warn_after must be > 0, got %s", c.Heartbeat.WarnAfter)
	}
	if c.Heartbeat.StaleAfter <= c.Heartbeat.WarnAfter {
		return fmt.Errorf("heartbeat.stale_after must exceed warn_after, got %s <= %s", c.Heartbeat.StaleAfter, c.Heartbeat.WarnAfter)
	}

	if c.Health.WarnBelow < 0 || c.Health.WarnBelow > 100 {
		return fmt.Errorf("health.warn_below must be within [0,100], got %f", c.Health.WarnBelow)
	}
	if c.Health.DegradedBelow < 0 || c.Health.DegradedBelow > c.Health.WarnBelow {
		return fmt.Errorf("health.degraded_below must be within [0, warn_below], got %f", c.Health.DegradedBelow)
	}

	if len(c.Stages.AllowedModes) == 0 {
		return fmt.Errorf("stages.allowed_modes must not be empty")
	}
	for stage, modes := range c.Stages.AllowedModes {
		if len(modes) == 0 {
			return fmt.Errorf("stages.allowed_modes[%s] must list at least one mode", stage)
		}
	}

	if c.Promotion.MinTrades < 0 {
		return fmt.Errorf("promotion.min_trades must be >= 0, got %d", c.Promotion.MinTrades)
	}
	if c.Promotion.MaxDrawdownPct < 0 || c.Promotion.MaxDrawdownPct > 100 {
		return fmt.Errorf("promotion.max_drawdown_pct must be within [0,100], got %f", c.Promotion.MaxDrawdownPct)
	}
	switch c.Promotion.HealthRequirement {
	case "", "OK_ONLY", "WARN_OK":
	default:
		return fmt.Errorf("promotion.health_requirement must be OK_ONLY or WARN_OK, got %q", c.Promotion.HealthRequirement)
	}

	for stage, th := range c.Graduation {
		if th.MaxDrawdownPct < 0 || th.MaxDrawdownPct > 100 {
			return fmt.Errorf("graduation[%s].max_drawdown_pct must be within [0,100], got %f", stage, th.MaxDrawdownPct)
		}
		if th.MinWinRate < 0 || th.MinWinRate > 100 {
			return fmt.Errorf("graduation[%s].min_win_rate must be within [0,100], got %f", stage, th.MinWinRate)
		}
	}

	if c.Rollup.WindowDays <= 0 {
		return fmt.Errorf("rollup.window_days must be > 0, got %d", c.Rollup.WindowDays)
	}
	if c.Rollup.CapitalBase <= 0 {
		return fmt.Errorf("rollup.capital_base must be > 0, got %f", c.Rollup.CapitalBase)
	}

	return nil
}
