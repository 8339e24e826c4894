package poller

import (
	"fmt"
	"strings"

	"depthview/internal/types"
)

// ControlType names a runtime display change
type ControlType string

const (
	ControlSetGranularity  ControlType = "set_granularity"
	ControlGranularityUp   ControlType = "granularity_up"
	ControlGranularityDown ControlType = "granularity_down"
	ControlSetPrecision    ControlType = "set_precision"
	ControlChangeSymbol    ControlType = "change_symbol"
)

// MaxPrecision bounds every display precision
const MaxPrecision = 8

// Control is a runtime change requested by a client. It is applied by the
// poller between ticks.
type Control struct {
	Type              ControlType
	Granularity       types.Granularity
	PricePrecision    *int32
	QuantityPrecision *int32
	Symbol            string
}

// Validate rejects controls that could never be applied
func (c Control) Validate() error {
	switch c.Type {
	case ControlSetGranularity:
		if err := c.Granularity.Validate(); err != nil {
			return err
		}
		if !types.IsAvailable(c.Granularity) {
			return fmt.Errorf("granularity %s is not selectable: %w", c.Granularity, types.ErrConfiguration)
		}
	case ControlGranularityUp, ControlGranularityDown:
	case ControlSetPrecision:
		if c.PricePrecision == nil && c.QuantityPrecision == nil {
			return fmt.Errorf("set_precision needs pricePrecision or quantityPrecision: %w", types.ErrConfiguration)
		}
		for _, p := range []*int32{c.PricePrecision, c.QuantityPrecision} {
			if p != nil && (*p < 0 || *p > MaxPrecision) {
				return fmt.Errorf("precision %d outside [0, %d]: %w", *p, MaxPrecision, types.ErrConfiguration)
			}
		}
	case ControlChangeSymbol:
		if strings.TrimSpace(c.Symbol) == "" {
			return fmt.Errorf("change_symbol needs a symbol: %w", types.ErrConfiguration)
		}
	default:
		return fmt.Errorf("unknown control %q: %w", c.Type, types.ErrConfiguration)
	}
	return nil
}
