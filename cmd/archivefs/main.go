// Command archivefs mounts one or more single-stream compressed archives
// (gzip, bzip2, xz, lzop) as read-only regular files in a FUSE filesystem,
// decoding only the blocks a read actually touches.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archivemetrics"
	"github.com/rclone/archivefs/archive/archiveopt"
	"github.com/rclone/archivefs/archive/blockcache"
	"github.com/rclone/archivefs/archive/bzip2fmt"
	"github.com/rclone/archivefs/archive/gzipfmt"
	"github.com/rclone/archivefs/archive/lzopfmt"
	"github.com/rclone/archivefs/archive/pathutil"
	"github.com/rclone/archivefs/archive/workerpool"
	"github.com/rclone/archivefs/archive/xzfmt"
)

var opt = archiveopt.Default()

var (
	fuseDebug   bool
	fuseHelp    bool
	metricsAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "archivefs archive [archive...] mountpoint",
		Short: "Mount compressed archives as read-only files over FUSE",
		Args:  cobra.MinimumNArgs(2),
		RunE:  run,
	}

	flags := root.Flags()
	flags.IntVar(&opt.GzipBlockFactor, "gzip-block-factor", opt.GzipBlockFactor, "minimum 32KiB windows between recorded gzip index boundaries")
	flags.Int64Var(&opt.MaxBlockSize, "max-block-size", opt.MaxBlockSize, "maximum size in bytes of a single decoded block")
	flags.Int64Var(&opt.CacheSize, "cache-size", opt.CacheSize, "maximum total size in bytes of decoded blocks held in the shared cache")
	flags.IntVar(&opt.Workers, "workers", opt.Workers, "number of decode worker goroutines")
	flags.BoolVarP(&fuseDebug, "fuse-debug", "d", false, "log FUSE protocol traffic")
	flags.BoolVarP(&fuseHelp, "fuse-help", "H", false, "print FUSE mount option help and exit")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, e.g. 127.0.0.1:9401 (disabled if empty)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if fuseHelp {
		printFuseHelp()
		return nil
	}

	archivePaths := args[:len(args)-1]
	mountpoint := args[len(args)-1]

	if err := checkCollisions(archivePaths); err != nil {
		return err
	}

	gzipfmt.Register()
	bzip2fmt.Register()
	xzfmt.Register()
	lzopfmt.Register()

	var metrics *archivemetrics.Metrics
	var metricsSrv *http.Server
	if metricsAddr != "" {
		metrics = archivemetrics.New()
		mux := http.NewServeMux()
		mux.Handle("/debug/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Warn("metrics server stopped")
			}
		}()
		log.WithField("addr", metricsAddr).Info("serving metrics")
	}

	cache, err := blockcache.New(opt.CacheSize, metrics)
	if err != nil {
		return fmt.Errorf("creating block cache: %w", err)
	}
	pool := workerpool.New(opt.Workers, metrics)
	defer pool.Close()

	archives := make(map[string]archive.Archive, len(archivePaths))
	for _, p := range archivePaths {
		name := pathutil.VirtualName(p)
		a, err := archive.Open(p, name, opt, cache, pool)
		if err != nil {
			return fmt.Errorf("opening %s: %w", p, err)
		}
		archives[name] = a
		log.WithFields(log.Fields{"path": p, "name": name, "size": a.Size()}).Info("opened archive")
	}
	defer func() {
		for _, a := range archives {
			if err := a.Close(); err != nil {
				log.WithError(err).Warn("closing archive")
			}
		}
	}()

	conn, err := mountFUSE(mountpoint, fuseDebug)
	if err != nil {
		return fmt.Errorf("mounting %s: %w", mountpoint, err)
	}
	defer conn.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	done := make(chan error, 1)
	go func() {
		done <- serve(conn, archives)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("serving mount: %w", err)
		}
	case <-sig:
		log.Info("unmounting")
		if err := unmount(mountpoint); err != nil {
			return fmt.Errorf("unmounting %s: %w", mountpoint, err)
		}
		<-done
	}

	if metricsSrv != nil {
		_ = metricsSrv.Close()
	}
	return nil
}

func checkCollisions(paths []string) error {
	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			if pathutil.Collision(paths[i], paths[j]) {
				return fmt.Errorf("%s and %s would both be mounted as %s", paths[i], paths[j], pathutil.VirtualName(paths[i]))
			}
		}
	}
	return nil
}

func printFuseHelp() {
	fmt.Println(`archivefs mounts with a fixed set of FUSE options (read-only, with
fsname and subtype "archivefs") and accepts no user-supplied mount options.
The only FUSE-related flag is -d/--fuse-debug, which logs FUSE protocol traffic.`)
}
