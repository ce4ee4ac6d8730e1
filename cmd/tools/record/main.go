package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"backtest/internal/codec"
	"backtest/internal/mdg"
	"backtest/internal/model"
	"backtest/internal/ops"
	"backtest/internal/recorder"
	"backtest/internal/schema"
)

func main() {
	csvPath := flag.String("csv", "", "CSV file of bars: time,open,high,low,close[,volume]")
	symbol := flag.String("symbol", "", "Symbol the bars belong to")
	configPath := flag.String("config", "", "Run config whose scripted orders are recorded")
	outputDir := flag.String("out", "testdata/wal", "Output WAL directory")
	prefix := flag.String("prefix", "", "Output WAL file prefix (default: events)")
	segmentBytes := flag.Int64("segment-bytes", 0, "Rotate segments after this many bytes (0=default)")
	fullBar := flag.Bool("full-bar", false, "Mark candles for open, extremes and close replay")
	ticks := flag.Bool("ticks", false, "Record each bar's close as a tick instead of a candle")
	synthetic := flag.Int("synthetic", 0, "Generate this many random-walk bars instead of reading csv")
	seed := flag.Int64("seed", 1, "Random walk seed")
	basePrice := flag.String("base-price", "100", "Random walk start price")
	start := flag.String("start", "2024-01-01T00:00:00Z", "Random walk first bar time (RFC 3339)")
	interval := flag.Duration("interval", time.Minute, "Random walk bar interval")
	flag.Parse()

	if *symbol == "" {
		log.Fatalf("symbol is required")
	}

	var (
		candles []model.Candle
		err     error
	)
	switch {
	case *synthetic > 0:
		candles, err = generate(*synthetic, *seed, *basePrice, *start, *interval)
	case *csvPath != "":
		candles, err = readCSV(*csvPath)
	default:
		log.Fatalf("csv or synthetic is required")
	}
	if err != nil {
		log.Fatalf("load bars failed: %v", err)
	}

	var script []ops.ScriptedAction
	if *configPath != "" {
		loaded, err := ops.Load(*configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
		script = loaded.Script()
	}

	cfg := recorder.DefaultConfig(*outputDir)
	if *prefix != "" {
		cfg.FilePrefix = *prefix
	}
	if *segmentBytes > 0 {
		cfg.SegmentMaxBytes = *segmentBytes
	}
	writer, err := recorder.NewWriter(cfg)
	if err != nil {
		log.Fatalf("writer init failed: %v", err)
	}

	var flags uint16
	if *fullBar {
		flags |= schema.FlagReplayFullBar
	}
	rec := &recording{writer: writer, symbol: *symbol, flags: flags, ticks: *ticks}

	// bars win ties so an order at a bar's open time sees that bar's prices
	next := 0
	for _, c := range candles {
		for next < len(script) && script[next].At.Before(c.OpenTime) {
			rec.action(script[next])
			next++
		}
		rec.candle(c)
	}
	for ; next < len(script); next++ {
		rec.action(script[next])
	}

	if err := writer.Close(); err != nil {
		log.Fatalf("writer close failed: %v", err)
	}
	logs.Infof("recorded %d bars and %d scripted actions as %d events into %s", len(candles), len(script), writer.LastSeq(), *outputDir)
}

func readCSV(path string) ([]model.Candle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ops.LoadCandles(file)
}

func generate(n int, seed int64, basePrice, start string, interval time.Duration) ([]model.Candle, error) {
	price, err := decimal.NewFromString(basePrice)
	if err != nil {
		return nil, err
	}
	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, err
	}
	g, err := mdg.NewGenerator(mdg.Config{
		Seed:      seed,
		Start:     startTime.UTC(),
		Interval:  interval,
		BasePrice: price,
	})
	if err != nil {
		return nil, err
	}
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = g.Next()
	}
	return candles, nil
}

type recording struct {
	writer *recorder.Writer
	symbol string
	flags  uint16
	ticks  bool
	buf    []byte
}

func (r *recording) append(t schema.EventType, at time.Time, flags uint16) {
	header := schema.NewHeader(t, 0, at)
	header.Flags = flags
	if _, err := r.writer.Append(header, r.buf); err != nil {
		log.Fatalf("append %s failed: %v", t, err)
	}
}

func (r *recording) candle(c model.Candle) {
	if r.ticks {
		r.buf = codec.EncodeTick(r.buf, schema.Tick{Symbol: r.symbol, Price: c.Close})
		r.append(schema.EventTick, c.OpenTime, 0)
		return
	}
	r.buf = codec.EncodeCandle(r.buf, schema.Candle{
		Symbol: r.symbol,
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
	})
	r.append(schema.EventCandle, c.OpenTime, r.flags)
}

func (r *recording) action(a ops.ScriptedAction) {
	if a.Cancel != nil {
		r.buf = codec.EncodeCancel(r.buf, schema.Cancel{Ref: a.Cancel.Ref})
		r.append(schema.EventCancel, a.At, 0)
		return
	}
	r.order(*a.Order)
}

func (r *recording) order(o ops.ScriptedOrder) {
	r.buf = codec.EncodeOrder(r.buf, schema.Order{
		Ref:    o.Ref,
		Params: o.Params,
		Policy: o.Spec,
		OCO:    o.OCO,
	})
	r.append(schema.EventOrder, o.At, 0)
}
