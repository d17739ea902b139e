// Command alivescan runs one host-liveness scan and exits. It owns flag
// parsing and process exit codes only; every decision about what the scan
// actually does lives in the engine under internal/.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"alivescan/internal/config"
	"alivescan/internal/ifsel"
	"alivescan/internal/queue"
	"alivescan/internal/scan"
	"alivescan/internal/target"
)

type flags struct {
	targetFile string
	configFile string
	iface      string
	dbAddress  string
	maindbid   int
	maxScan    int
	maxAlive   int
	portRange  string
	aliveTest  string
	verbose    bool
}

func main() {
	var f flags

	com := &cobra.Command{
		Use:   "alivescan",
		Short: "Host-liveness discovery preflight scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), &f)
		},
	}

	fl := pflag.NewFlagSet("alivescan", pflag.ExitOnError)
	fl.StringVar(&f.targetFile, "targets", "", "path to the newline-delimited target list (required)")
	fl.StringVar(&f.configFile, "config", "", "path to a YAML preference file")
	fl.StringVar(&f.iface, "iface", "", "interface to probe and capture on")
	fl.StringVar(&f.dbAddress, "db-address", "", "NATS connection URL (omit to use an in-process queue)")
	fl.IntVar(&f.maindbid, "maindbid", 0, "JetStream stream suffix, for running concurrent scans")
	fl.IntVar(&f.maxScan, "max-scan-hosts", 0, "cap on published alive hosts (0 = unlimited)")
	fl.IntVar(&f.maxAlive, "max-alive-hosts", 0, "cap on hosts the emitter keeps probing for (0 = unlimited)")
	fl.StringVar(&f.portRange, "port-range", "", "fallback TCP port range, e.g. 1-1024,8080")
	fl.StringVar(&f.aliveTest, "alive-test", "", "comma-separated alive-test methods: icmp,tcp_syn,tcp_ack,arp,consider_alive (icmp when unset)")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	com.Flags().AddFlagSet(fl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := com.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	if f.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if f.targetFile == "" {
		return fmt.Errorf("alivescan: --targets is required")
	}

	tf, err := os.Open(f.targetFile)
	if err != nil {
		return fmt.Errorf("alivescan: open target list: %w", err)
	}
	defer tf.Close()

	hosts, err := target.ParseList(tf)
	if err != nil {
		return fmt.Errorf("alivescan: parse target list: %w", err)
	}

	src, err := loadConfig(f)
	if err != nil {
		return err
	}

	q, err := buildQueue(ctx, f)
	if err != nil {
		return err
	}
	defer q.Close()

	iface, err := ifsel.Select(f.iface)
	if err != nil {
		return fmt.Errorf("alivescan: select interface: %w", err)
	}
	log.Debug().Str("iface", iface.Name).Msg("alivescan: selected interface")

	summary, err := scan.Run(ctx, scan.Options{
		Targets:   hosts,
		Config:    src,
		Queue:     q,
		Interface: iface,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("scan_id", summary.ScanID).
		Int("targets", summary.TargetCount).
		Int("alive", summary.AliveCount).
		Int("dead", summary.DeadCount).
		Bool("alive_capped", summary.AliveCapped).
		Msg("alivescan: done")
	return nil
}

func loadConfig(f *flags) (config.Source, error) {
	values := map[string]string{
		config.KeyDBAddress:     f.dbAddress,
		config.KeyAliveTest:     f.aliveTest,
		config.KeyPortRange:     f.portRange,
		config.KeyMaxScanHosts:  fmt.Sprint(f.maxScan),
		config.KeyMaxAliveHosts: fmt.Sprint(f.maxAlive),
	}

	if f.configFile == "" {
		return config.MapSource(values), nil
	}

	cf, err := os.Open(f.configFile)
	if err != nil {
		return nil, fmt.Errorf("alivescan: open config file: %w", err)
	}
	defer cf.Close()

	fileSrc, err := config.LoadYAML(cf)
	if err != nil {
		return nil, fmt.Errorf("alivescan: parse config file: %w", err)
	}

	// Flags override file settings for anything explicitly set.
	merged := config.MapSource{}
	for k, v := range values {
		if v != "" && v != "0" {
			merged[k] = v
		} else if fv, ok := fileSrc.Get(k); ok {
			merged[k] = fv
		}
	}
	return merged, nil
}

func buildQueue(ctx context.Context, f *flags) (queue.Queue, error) {
	if f.dbAddress == "" {
		return queue.NewMem(), nil
	}
	return queue.DialNATS(ctx, f.dbAddress, f.maindbid)
}
