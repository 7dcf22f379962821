// Command pgw-gw runs a 6LoWPAN Proxy Gateway, bridging an Ethernet segment
// and a 6LoWPAN radio segment and proxying IPv6 Neighbor Discovery between
// them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/timeutil"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/hogaza-net/pgw6lo/internal/gwtime"
	"github.com/hogaza-net/pgw6lo/internal/pgw"
	"github.com/hogaza-net/pgw6lo/internal/version"
)

// fileConfig is the on-disk shape of the gateway's configuration file.
type fileConfig struct {
	EthernetInterface string `yaml:"ethernet_interface"`
	LowPanSocket      string `yaml:"lowpan_socket"`
	RouterRoleEUI64   string `yaml:"router_role_eui64"`

	BridgeCapacity   int `yaml:"bridge_capacity"`
	NeighborCapacity int `yaml:"neighbor_capacity"`
	ContextCapacity  int `yaml:"context_capacity"`

	TickInterval    gwtime.Duration `yaml:"tick_interval"`
	OptionFiltering bool            `yaml:"option_filtering"`

	LogFile    string `yaml:"log_file"`
	LogVerbose bool   `yaml:"log_verbose"`
}

func main() {
	confPath := flag.String("config", "/etc/pgw-gw/config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())

		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *confPath); err != nil {
		slog.Default().ErrorContext(ctx, "fatal", slogutil.KeyError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, confPath string) (err error) {
	fc, err := loadFileConfig(confPath)
	if err != nil {
		return errors.Annotate(err, "loading config: %w")
	}

	logger := newLogger(fc)

	var routerRole pgw.Eui64
	if err = parseEUI64(fc.RouterRoleEUI64, &routerRole); err != nil {
		return errors.Annotate(err, "parsing router_role_eui64: %w")
	}

	conf := &pgw.Config{
		Logger:           logger,
		Clock:            timeutil.SystemClock{},
		RouterRole:       routerRole,
		BridgeCapacity:   cmpDefault(fc.BridgeCapacity, pgw.DefaultBridgeCapacity),
		NeighborCapacity: cmpDefault(fc.NeighborCapacity, pgw.DefaultNeighborCapacity),
		ContextCapacity:  cmpDefault(fc.ContextCapacity, pgw.DefaultContextCapacity),
		TickInterval:     cmpDurationDefault(fc.TickInterval.Duration, pgw.DefaultTickInterval),
		OptionFiltering:  fc.OptionFiltering,
	}

	gw, err := pgw.New(conf)
	if err != nil {
		return errors.Annotate(err, "constructing gateway: %w")
	}

	ethDev, err := openEthernetDevice(fc.EthernetInterface)
	if err != nil {
		return errors.Annotate(err, "opening ethernet device: %w")
	}
	gw.AttachDevice(pgw.Ethernet, ethDev)

	lowpanDev, err := dialLowPanDevice(fc.LowPanSocket)
	if err != nil {
		return errors.Annotate(err, "opening lowpan device: %w")
	}
	gw.AttachDevice(pgw.LowPan, lowpanDev)

	logger.InfoContext(ctx, "starting", "version", version.Version())

	go readLoop(ctx, gw, pgw.Ethernet, ethDev, logger)
	go readLoop(ctx, gw, pgw.LowPan, lowpanDev, logger)

	ticker := time.NewTicker(conf.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "shutting down")

			return gw.Shutdown(context.WithoutCancel(ctx))
		case now := <-ticker.C:
			gw.Poll(now)
		}
	}
}

// readLoop reads frames from dev and feeds them into gw until ctx is
// cancelled or a read fails.
func readLoop(ctx context.Context, gw *pgw.Gateway, iface pgw.Interface, dev pgw.L2Device, logger *slog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		data, frameDst, hasFrameDst, err := dev.ReadPacketData()
		if err != nil {
			logger.WarnContext(ctx, "reading frame", "interface", iface, slogutil.KeyError, err)

			return
		}

		srcAddr, ok := sourceAddrFromPacket(data, iface)
		if !ok {
			continue
		}

		if err = gw.Input(ctx, data, iface, srcAddr, frameDst, hasFrameDst); err != nil {
			logger.WarnContext(ctx, "processing frame", "interface", iface, slogutil.KeyError, err)
		}
	}
}

// sourceAddrFromPacket derives the EUI-64 the Dispatcher should learn as
// this frame's sender by reversing the U/L-bit flip RFC 4291 appendix A
// applies when deriving a link-local address's interface identifier from a
// modified EUI-64 — the same recovery works whether the identifier
// started as a real LowPan EUI-64 or an EthMacToEUI64-widened Ethernet MAC.
func sourceAddrFromPacket(data []byte, _ pgw.Interface) (addr pgw.Eui64, ok bool) {
	if len(data) < pgw.IPv6HeaderLen {
		return pgw.Eui64{}, false
	}

	var src pgw.Ipv6Addr
	copy(src[:], data[8:24])

	var eui pgw.Eui64
	copy(eui[:], src[8:16])
	eui[0] ^= 0x02

	return eui, true
}

func loadFileConfig(path string) (fc *fileConfig, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	fc = &fileConfig{}
	if err = yaml.NewDecoder(f).Decode(fc); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}

	return fc, nil
}

func newLogger(fc *fileConfig) (logger *slog.Logger) {
	lvl := slog.LevelInfo
	if fc.LogVerbose {
		lvl = slog.LevelDebug
	}

	if fc.LogFile != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(&lumberjack.Logger{
			Filename: fc.LogFile,
			MaxSize:  100,
			MaxAge:   28,
			Compress: true,
		}, &slog.HandlerOptions{Level: lvl})))

		return slog.Default()
	}

	return slogutil.New(&slogutil.Config{
		Format: slogutil.FormatDefault,
		Level:  lvl,
	})
}

func parseEUI64(s string, out *pgw.Eui64) (err error) {
	var b [pgw.Eui64Len]byte
	n, err := fmt.Sscanf(
		s,
		"%02x:%02x:%02x:%02x:%02x:%02x:%02x:%02x",
		&b[0], &b[1], &b[2], &b[3], &b[4], &b[5], &b[6], &b[7],
	)
	if err != nil || n != pgw.Eui64Len {
		return fmt.Errorf("parsing eui-64 %q: %w", s, err)
	}

	*out = pgw.Eui64(b)

	return nil
}

func cmpDefault(v, def int) (out int) {
	if v == 0 {
		return def
	}

	return v
}

func cmpDurationDefault(v, def time.Duration) (out time.Duration) {
	if v == 0 {
		return def
	}

	return v
}

