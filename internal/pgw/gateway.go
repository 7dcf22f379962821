package pgw

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/timeutil"
)

// Gateway wires together the BridgeTable, NeighborCache, ContextTable,
// NDProxy and Dispatcher into the running 6LP-GW proxy described in
// spec.md §1, reading and writing frames through the L2Device the caller
// attaches to each Interface (spec.md §6).
type Gateway struct {
	logger *slog.Logger
	clock  timeutil.Clock

	bridge     *BridgeTable
	neighbors  *NeighborCache
	contexts   *ContextTable
	proxy      *NDProxy
	dispatcher *Dispatcher

	devicesMu *sync.RWMutex
	devices   map[Interface]L2Device

	routerRole Eui64
}

// New constructs a Gateway from conf. conf must be valid; see
// Config.Validate. The gateway pre-seeds the BridgeTable with its own
// RouterRole EUI-64 bound to Local, so the Dispatcher never floods traffic
// addressed to the gateway itself back out onto the segment it arrived on
// (spec.md's BridgeTable invariant on self-addressed traffic).
func New(conf *Config) (gw *Gateway, err error) {
	if err = conf.Validate(); err != nil {
		return nil, errors.Annotate(err, "validating config: %w")
	}

	bridge := NewBridgeTable(conf.BridgeCapacity)
	if learnErr := bridge.Learn(conf.RouterRole, Local); learnErr != nil {
		return nil, errors.Annotate(learnErr, "pre-seeding bridge: %w")
	}

	neighbors := NewNeighborCache(conf.Clock)
	contexts := NewContextTable(conf.ContextCapacity, conf.Clock)
	rewriter := &OptionRewriter{FilterRAOptions: conf.OptionFiltering}
	proxy := NewNDProxy(neighbors, contexts, bridge, rewriter, conf.RouterRole, conf.Clock, conf.Logger)
	dispatcher := NewDispatcher(bridge, proxy)

	return &Gateway{
		logger:     conf.Logger,
		clock:      conf.Clock,
		bridge:     bridge,
		neighbors:  neighbors,
		contexts:   contexts,
		proxy:      proxy,
		dispatcher: dispatcher,
		devicesMu:  &sync.RWMutex{},
		devices:    map[Interface]L2Device{},
		routerRole: conf.RouterRole,
	}, nil
}

// AttachDevice binds dev as the transport for iface. iface must be
// Ethernet or LowPan; Local traffic never leaves the process.
func (gw *Gateway) AttachDevice(iface Interface, dev L2Device) {
	gw.devicesMu.Lock()
	defer gw.devicesMu.Unlock()

	gw.devices[iface] = dev
}

// Input feeds one frame payload that arrived on incoming from a sender
// whose link-layer address is srcAddr, addressed to frameDst (valid only
// if hasFrameDst), through the Dispatcher, and writes every resulting
// Emission to its target device. It is the single entry point the external
// frame-reception collaborators of spec.md §6 call.
func (gw *Gateway) Input(
	ctx context.Context,
	pkt []byte,
	incoming Interface,
	srcAddr Eui64,
	frameDst Eui64,
	hasFrameDst bool,
) (err error) {
	emissions, err := gw.dispatcher.Input(pkt, incoming, srcAddr, frameDst, hasFrameDst)
	if err != nil {
		gw.logger.WarnContext(ctx, "dispatch failed", slogutil.KeyError, err)

		return nil
	}

	for _, e := range emissions {
		gw.emit(ctx, e)
	}

	return nil
}

// emit writes one Emission to its target device, if attached, logging and
// discarding the frame otherwise (spec.md §7: nothing escapes the packet
// path).
func (gw *Gateway) emit(ctx context.Context, e Emission) {
	if e.Iface == Local {
		return
	}

	gw.devicesMu.RLock()
	dev, ok := gw.devices[e.Iface]
	gw.devicesMu.RUnlock()

	if !ok {
		gw.logger.DebugContext(ctx, "no device attached", "interface", e.Iface)

		return
	}

	if err := dev.WritePacketData(e.Pkt, e.Dst, e.HasDst); err != nil {
		gw.logger.WarnContext(ctx, "writing frame", "interface", e.Iface, slogutil.KeyError, err)
	}
}

// Poll runs the periodic neighbor and context expiry described in spec.md
// §4.4 and §4.5. Callers drive it at roughly Config.TickInterval; Poll
// itself owns no timer (spec.md §9: a single poll(now) entry point).
func (gw *Gateway) Poll(now time.Time) {
	gw.neighbors.Expire(now)
	gw.contexts.Advance(now)
}

// Shutdown closes every attached device.
func (gw *Gateway) Shutdown(ctx context.Context) (err error) {
	gw.devicesMu.Lock()
	defer gw.devicesMu.Unlock()

	var errs []error
	for iface, dev := range gw.devices {
		if closeErr := dev.Close(); closeErr != nil {
			errs = append(errs, errors.Annotate(closeErr, "closing %s: %w", iface))
		}
	}

	return errors.Join(errs...)
}
