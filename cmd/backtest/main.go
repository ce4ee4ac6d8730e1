package main

import (
	"context"
	"flag"
	"log"
	"sync"

	"github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"backtest/internal/account"
	"backtest/internal/broker"
	"backtest/internal/bus"
	"backtest/internal/obs"
	"backtest/internal/ops"
	"backtest/internal/report"
	"backtest/internal/state"
)

func main() {
	walDir := flag.String("wal", "testdata/wal", "Recorded event log directory")
	prefix := flag.String("prefix", "", "WAL file prefix (default: events)")
	configPath := flag.String("config", "", "Run config (JSON or YAML); defaults apply when empty")
	fullBar := flag.Bool("full-bar", false, "Replay every candle as open, extremes and close")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	snapshotOut := flag.String("snapshot-out", "", "Write the final positions snapshot to this path")
	snapshotVerify := flag.String("snapshot-verify", "", "Compare the final positions with this snapshot")
	stopOnMarginCall := flag.Bool("stop-on-margin-call", false, "Stop the replay at the first margin call")
	logEvents := flag.Bool("log-events", false, "Log every broker event")
	eventQueue := flag.Int("event-queue", 4096, "Broker event queue size")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address, empty to disable profiling")
	flag.Parse()

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "backtest",
			ServerAddress:   *pyroscopeAddr,
			Tags: map[string]string{
				"wal": *walDir,
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	loaded, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown requested, stopping replay")
			cancel()
		case <-ctx.Done():
		}
	}()

	metrics := obs.NewMetrics()
	events := bus.NewQueue[broker.Event](*eventQueue)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		events.Run(context.Background(), func(e broker.Event) {
			if *logEvents {
				logEvent(e)
			}
		})
	}()

	cfg := loaded.Broker
	cfg.Metrics = metrics
	cfg.Publisher = events
	cfg.OnMarginCall = func(call broker.MarginCall) {
		if *stopOnMarginCall {
			cancel()
		}
	}

	acc := account.New(loaded.InitialBalance)
	b, err := broker.New(acc, cfg)
	if err != nil {
		log.Fatalf("broker init failed: %v", err)
	}

	result, err := state.Recover(ctx, state.RecoverConfig{
		WALDir:          *walDir,
		FilePrefix:      *prefix,
		DisableChecksum: *noChecksum,
		ReplayFullBar:   *fullBar || loaded.ReplayFullBar,
	}, b)
	events.Close()
	wg.Wait()
	if err != nil && ctx.Err() == nil {
		log.Fatalf("replay failed after seq %d: %v", result.LastSeq, err)
	}
	if ctx.Err() != nil {
		logs.Infof("replay stopped at seq %d", result.LastSeq)
	}

	if err := result.Exposure.Reconcile(b.Positions()); err != nil {
		logs.Errorf("positions do not match executions, err: %+v", err)
	}

	logs.Infof("replayed %d events up to %s, %d orders, %d executions, %d open positions",
		result.Events, result.LastInstant, len(b.Orders()), len(b.Executions()), len(b.Positions()))
	logs.Infof("margin used %s, available %s", b.UsedMargin(), b.AvailableMargin())
	logs.Infof("summary: %s", report.Summarize(acc))
	logMetrics(metrics.Snapshot())

	snap := state.FromPositions(b.Positions(), acc.Balance(), result.LastSeq, result.LastInstant)
	if *snapshotOut != "" {
		if err := state.WriteSnapshot(*snapshotOut, snap); err != nil {
			log.Fatalf("snapshot write failed: %v", err)
		}
		logs.Infof("snapshot written to %s", *snapshotOut)
	}
	if *snapshotVerify != "" {
		expected, err := state.ReadSnapshot(*snapshotVerify)
		if err != nil {
			log.Fatalf("snapshot read failed: %v", err)
		}
		if err := state.CompareSnapshots(expected, snap); err != nil {
			log.Fatalf("snapshot mismatch: %v", err)
		}
		logs.Info("snapshot verified")
	}
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return ops.Resolve(ops.FileConfig{})
	}
	return ops.Load(path)
}

func logEvent(e broker.Event) {
	switch e.Kind {
	case broker.EventOrderUpdated:
		logs.Infof("%s order %d %s %s %s %s: %s", e.Instant, e.Order.ID, e.Order.Params.Symbol,
			e.Order.Params.Side, e.Order.Params.Quantity, e.Order.Policy.Kind(), e.Order.Status)
	case broker.EventExecutionAdded:
		logs.Infof("%s execution %d order %d %s %s %s @ %s", e.Instant, e.Execution.ID, e.Execution.OrderID,
			e.Execution.Symbol, e.Execution.Side, e.Execution.Quantity, e.Execution.Price)
	case broker.EventPositionUpdated, broker.EventPositionClosed:
		logs.Infof("%s %s %d %s %s %s @ %s pnl %s", e.Instant, e.Kind, e.Position.ID, e.Position.Symbol,
			e.Position.Side, e.Position.Quantity, e.Position.AveragePrice, e.Position.PnL)
	case broker.EventMarginUpdated, broker.EventMarginCall:
		logs.Infof("%s %s balance %s used %s available %s", e.Instant, e.Kind,
			e.Margin.Balance, e.Margin.Used, e.Margin.Available)
	}
}

func logMetrics(s obs.Snapshot) {
	logs.Infof("orders opened %d, canceled %d, executed %d, rejected %v",
		s.OrdersOpened, s.OrdersCanceled, s.OrdersExecuted, s.Rejections)
	logs.Infof("positions closed %d, margin calls %d, dropped events %d",
		s.PositionsClosed, s.MarginCalls, s.EventDrops)
	logs.Infof("tick latency count %d avg %s max %s, order latency count %d avg %s max %s",
		s.TickLatency.Count, s.TickLatency.Avg, s.TickLatency.Max,
		s.OrderLatency.Count, s.OrderLatency.Avg, s.OrderLatency.Max)
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
