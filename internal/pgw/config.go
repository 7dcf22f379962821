package pgw

import (
	"log/slog"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/AdguardTeam/golibs/validate"
)

// Default configuration values (spec.md §6).
const (
	DefaultBridgeCapacity   = MaxBridgeEntries
	DefaultNeighborCapacity = MaxNeighborEntries
	DefaultContextCapacity  = 4
	DefaultTickInterval     = 1 * time.Minute
)

// Config is the configuration for a Gateway.
type Config struct {
	// Logger will be used to log gateway events. It must not be nil.
	Logger *slog.Logger

	// Clock provides the current time to every component. It must not be
	// nil; production callers should use timeutil.SystemClock{}.
	Clock timeutil.Clock

	// RouterRole is the EUI-64 the gateway answers to as the 6LBR. It must
	// not be the all-zero address.
	RouterRole Eui64

	// BridgeCapacity is the maximum number of learned bridge entries. It
	// must be positive.
	BridgeCapacity int

	// NeighborCapacity must be positive. It is validated but not used by
	// New: the NeighborCache always holds MaxNeighborEntries entries.
	NeighborCapacity int

	// ContextCapacity is the number of 6LoWPAN compression contexts the
	// gateway manages. It must be within [MinContexts, MaxContexts].
	ContextCapacity int

	// TickInterval is how often Poll should be called to expire neighbor
	// and context entries. It must be positive. Advisory only: Poll itself
	// is driven by the caller, not a timer owned by Config.
	TickInterval time.Duration

	// OptionFiltering, when true, drops every RA option except Prefix
	// Information and 6LoWPAN Context from RAs forwarded onto the LowPan
	// segment, instead of forwarding them unchanged.
	OptionFiltering bool

	// DropMulticastListenerTraffic is not read by New or the Dispatcher:
	// MLD (ICMPv6 types 130-132, 143) traffic is bridged like any other
	// ICMPv6 traffic whatever its value.
	DropMulticastListenerTraffic bool
}

// type check
var _ validate.Interface = (*Config)(nil)

// Validate implements the validate.Interface interface for *Config.
func (c *Config) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotNil("Logger", c.Logger),
		validate.NotNilInterface("Clock", c.Clock),
		validate.Positive("BridgeCapacity", c.BridgeCapacity),
		validate.Positive("NeighborCapacity", c.NeighborCapacity),
		validate.Positive("TickInterval", c.TickInterval),
	}

	if c.ContextCapacity < MinContexts || c.ContextCapacity > MaxContexts {
		errs = append(errs, errors.Error("ContextCapacity: must be within [MinContexts, MaxContexts]"))
	}

	if c.RouterRole.IsZero() {
		errs = append(errs, errors.Error("RouterRole: must not be the all-zero address"))
	}

	return errors.Join(errs...)
}
