package pgw

import (
	"log/slog"
	"time"

	"github.com/AdguardTeam/golibs/timeutil"
	"golang.org/x/net/ipv6"
)

// ND message ICMPv6 type numbers, per RFC 4861 §4, taken from
// golang.org/x/net/ipv6's ICMPType constants rather than hand-rolled so the
// numbering can never drift from what checksum.go's icmpv6MessageType
// extracts.
var (
	icmpTypeRS uint8 = uint8(ipv6.ICMPTypeRouterSolicitation)
	icmpTypeRA uint8 = uint8(ipv6.ICMPTypeRouterAdvertisement)
	icmpTypeNS uint8 = uint8(ipv6.ICMPTypeNeighborSolicitation)
	icmpTypeNA uint8 = uint8(ipv6.ICMPTypeNeighborAdvertisement)
)

// Default ARO status codes, per RFC 6775 §4.1.
const (
	aroStatusSuccess            uint8 = 0
	aroStatusDuplicate          uint8 = 1
	aroStatusNeighborCacheFull  uint8 = 2
)

// verdict is what NDProxy decided to do with a processed ND message,
// replacing the original implementation's mutation of global outgoing_if
// and uip_buf state (spec.md §9's "typed ND-message builder" / "action
// value" redesign note).
type verdict uint8

// verdict values.
const (
	// dropVerdict means the message is consumed and nothing is emitted.
	dropVerdict verdict = iota

	// forwardVerdict means NDProxy takes no decision: the Dispatcher
	// bridges the original, unmodified packet by its destination address
	// (Outgoing is not used).
	forwardVerdict

	// emitVerdict means emit Pkt (already rewritten by the handler) on
	// Outgoing.
	emitVerdict

	// floodVerdict means emit Pkt on every interface but the one the
	// message arrived on.
	floodVerdict
)

// action is the result of processing one ND message.
type action struct {
	Verdict  verdict
	Outgoing Interface
	Pkt      []byte

	// Dst is the link-layer address Pkt should be addressed to on Outgoing,
	// valid only when HasDst is set. A handler that knows it is replying to
	// or forwarding toward a single node (e.g. the registrant of a
	// proxy-DAD exchange) sets this so the Dispatcher and L2Device can
	// address the frame instead of broadcasting it (spec.md §4.7).
	Dst    Eui64
	HasDst bool
}

// dropAction is the zero action: drop.
var dropAction = action{Verdict: dropVerdict}

// NDProxy implements the IPv6 Neighbor Discovery to 6LoWPAN-ND proxying
// logic of spec.md §4.6: it owns no transport of its own, only the tables
// and pure decision logic, and returns an action for the Dispatcher to
// carry out.
type NDProxy struct {
	Neighbors *NeighborCache
	Contexts  *ContextTable
	Bridge    *BridgeTable
	Rewriter  *OptionRewriter

	// RouterRole is the EUI-64 the gateway itself answers to as the 6LBR
	// (6LoWPAN Border Router) when performing proxy-DAD and when a 6LN
	// addresses the gateway directly (spec.md §9: "RR identity captured in
	// Gateway, not globals").
	RouterRole Eui64

	Clock  timeutil.Clock
	Logger *slog.Logger
}

// NewNDProxy returns an NDProxy wired to the given tables and identity.
func NewNDProxy(
	neighbors *NeighborCache,
	contexts *ContextTable,
	bridge *BridgeTable,
	rewriter *OptionRewriter,
	routerRole Eui64,
	clock timeutil.Clock,
	logger *slog.Logger,
) (p *NDProxy) {
	return &NDProxy{
		Neighbors:  neighbors,
		Contexts:   contexts,
		Bridge:     bridge,
		Rewriter:   rewriter,
		RouterRole: routerRole,
		Clock:      clock,
		Logger:     logger,
	}
}

// icmpv6Target returns the 16-octet Target Address field common to NS and
// NA messages.
func icmpv6Target(pkt []byte) (target Ipv6Addr) {
	copy(target[:], pkt[IPv6HeaderLen+8:IPv6HeaderLen+24])

	return target
}

// srcAddr and dstAddr return the IPv6 source and destination of pkt.
func srcAddr(pkt []byte) (addr Ipv6Addr) {
	copy(addr[:], pkt[8:24])

	return addr
}

func dstAddr(pkt []byte) (addr Ipv6Addr) {
	copy(addr[:], pkt[24:40])

	return addr
}

// notProxiedAction tells the Dispatcher to fall back to plain bridging:
// unlike dropAction, this is not a decision to discard the packet, only a
// declaration that NDProxy has no opinion about it.
var notProxiedAction = action{Verdict: forwardVerdict}

// Process dispatches pkt, which arrived on incoming, to the handler for
// its ICMPv6 type. It returns notProxiedAction for anything that isn't one
// of the four ND message types NDProxy proxies, so the Dispatcher falls
// back to plain bridging instead of discarding the packet.
func (p *NDProxy) Process(pkt []byte, incoming Interface) (act action, err error) {
	if len(pkt) < IPv6HeaderLen+icmpv6HeaderLen || pkt[6] != icmpv6ProtocolNumber {
		return notProxiedAction, nil
	}

	typ, ok := icmpv6MessageType(pkt[IPv6HeaderLen:])
	if !ok {
		return notProxiedAction, nil
	}

	switch uint8(typ) {
	case icmpTypeNS:
		return p.handleNS(pkt, incoming)
	case icmpTypeNA:
		return p.handleNA(pkt, incoming)
	case icmpTypeRS:
		return p.handleRS(pkt, incoming)
	case icmpTypeRA:
		return p.handleRA(pkt, incoming)
	default:
		return notProxiedAction, nil
	}
}

// defaultRegistrationLifetime is substituted for a first-time registration
// whose ARO carries Lifetime == 0, which RFC 6775 otherwise reserves for
// deregistration.
const defaultRegistrationLifetime = 20 * time.Minute
