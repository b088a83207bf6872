package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joonhk-lab/kosis-agent/internal/api"
	"github.com/joonhk-lab/kosis-agent/internal/chart"
	"github.com/joonhk-lab/kosis-agent/internal/domain"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/constants"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/logger"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/metrics"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/store"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/store/xpgx"
	"github.com/joonhk-lab/kosis-agent/internal/service/extract"
	"github.com/joonhk-lab/kosis-agent/internal/sink"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListenAddr  = ":8080"
	defaultSinkDir     = "data"
	defaultScheduleAt  = "00:10"
	poolConnectRetries = 5
	poolConnectDelay   = 2 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a config file (optional)")
		serve      = flag.Bool("serve", false, "Run the HTTP API server")
		schedule   = flag.Bool("schedule", false, "Run daily schedule loop")
		scheduleAt = flag.String("schedule-at", defaultScheduleAt, "Daily run time (HH:MM, local time)")
		keyword    = flag.String("keyword", "", "Search keyword to filter tables")
		maxItems   = flag.Int("max-items", 0, "Maximum number of tables per run")
		format     = flag.String("format", "", "Output format: structured, raw or both")
		delayMs    = flag.Int("delay-ms", 0, "Delay between table requests in ms")
		noMeta     = flag.Bool("no-metadata", false, "Skip per-table metadata fetches")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if err := initConfig(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Init(*debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := buildOptions(*keyword, *maxItems, *format, *delayMs, *noMeta)

	st, pool := connectStore(ctx)
	if pool != nil {
		defer pool.Close()
	}

	ndjson := sink.NewNDJSONSink(viper.GetString(constants.ViperKeySinkPath))
	defer ndjson.Close()

	targets := []sink.Emitter{ndjson}
	if st != nil {
		targets = append(targets, sink.NewStoreSink(st))
	}

	m := metrics.New()

	svcOpts := []extract.Option{
		extract.WithStore(st),
		extract.WithMetrics(m),
	}
	if uploader := buildUploader(ctx); uploader != nil {
		svcOpts = append(svcOpts, extract.WithChart(uploader.Generate))
	}
	svc := extract.NewService(sink.NewMultiSink(targets...), svcOpts...)

	if !*serve && !*schedule {
		result, err := svc.Run(ctx, opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("run=%s demo=%t tables=%d dataPoints=%d\n",
			result.RunID, result.DemoMode, result.TablesProcessed, result.DataPoints)
		return
	}

	eg, egCtx := errgroup.WithContext(ctx)

	if *serve {
		apiSvc, err := api.NewAPIService(svc, st, m)
		if err != nil {
			logger.Fatal(ctx, err)
		}
		addr := viper.GetString(constants.ViperKeyListenAddr)
		eg.Go(func() error {
			logger.Infof(egCtx, "listening on %s", addr)
			if err := apiSvc.Serve(addr); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return apiSvc.Shutdown(shutdownCtx)
		})
	}

	if *schedule {
		eg.Go(func() error {
			return scheduleDaily(egCtx, svc, opts, *scheduleAt)
		})
	}

	if err := eg.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(path string) error {
	viper.SetDefault(constants.ViperKeyListenAddr, defaultListenAddr)
	viper.SetDefault(constants.ViperKeySinkPath, defaultSinkDir)
	viper.SetDefault(constants.ViperKeyChartDir, defaultSinkDir)

	viper.SetEnvPrefix("KOSIS_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func buildOptions(keyword string, maxItems int, format string, delayMs int, noMeta bool) domain.Options {
	opts := domain.Options{}
	if keyword != "" {
		opts["searchKeyword"] = keyword
	}
	if maxItems > 0 {
		opts["maxItems"] = maxItems
	}
	if format != "" {
		opts["outputFormat"] = format
	}
	if delayMs > 0 {
		opts["delayBetweenRequestsMs"] = delayMs
	}
	if noMeta {
		opts["includeMetadata"] = false
	}
	return opts
}

// connectStore builds the Postgres-backed run ledger when a DSN is configured.
// Startup tolerates a briefly unavailable database; a missing DSN disables
// persistence entirely.
func connectStore(ctx context.Context) (store.Store, store.Pool) {
	dsn := viper.GetString(constants.ViperKeyPostgresDSN)
	if dsn == "" {
		return nil, nil
	}

	var pool store.Pool
	operation := func() error {
		p, err := xpgx.NewPool(ctx, dsn)
		if err != nil {
			logger.Warnf(ctx, "postgres connect failed, retrying: %s", err)
			return err
		}
		pool = p
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(poolConnectDelay), poolConnectRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		logger.Fatal(ctx, fmt.Errorf("connect postgres: %w", err))
	}

	return store.NewStore(pool), pool
}

func buildUploader(ctx context.Context) *chart.Uploader {
	bucket := viper.GetString(constants.ViperKeyChartBucket)
	if bucket == "" {
		return chart.NewUploader(chart.NewFileStore(viper.GetString(constants.ViperKeyChartDir)))
	}

	s3Store, err := chart.NewS3Store(ctx, chart.S3StoreConfig{
		Bucket:   bucket,
		Region:   viper.GetString(constants.ViperKeyChartRegion),
		Endpoint: viper.GetString(constants.ViperKeyChartEndpnt),
	})
	if err != nil {
		logger.Errorf(ctx, "s3 artifact store unavailable, falling back to local files: %s", err)
		return chart.NewUploader(chart.NewFileStore(viper.GetString(constants.ViperKeyChartDir)))
	}
	return chart.NewUploader(s3Store)
}

func scheduleDaily(ctx context.Context, svc *extract.Service, opts domain.Options, scheduleAt string) error {
	hour, minute, err := parseScheduleAt(scheduleAt)
	if err != nil {
		return err
	}
	for {
		next := nextRunTime(time.Now(), hour, minute)
		logger.Infof(ctx, "next scheduled run at %s", next.Format(time.RFC3339))
		if err := sleepUntil(ctx, next); err != nil {
			return err
		}
		if _, err := svc.Run(ctx, opts); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Errorf(ctx, "scheduled run failed: %s", err)
		}
	}
}

func parseScheduleAt(value string) (int, int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid schedule-at format: %s", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid schedule-at hour: %s", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid schedule-at minute: %s", value)
	}
	return hour, minute, nil
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func sleepUntil(ctx context.Context, target time.Time) error {
	delay := time.Until(target)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
