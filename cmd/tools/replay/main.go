package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"backtest/internal/codec"
	"backtest/internal/recorder"
	"backtest/internal/schema"
)

func main() {
	dir := flag.String("dir", "testdata/wal", "WAL directory")
	prefix := flag.String("prefix", "", "WAL file prefix (default: events)")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	after := flag.Uint64("after", 0, "Skip records with seq <= after")
	decode := flag.Bool("decode", false, "Decode payloads")
	flag.Parse()

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
		AfterSeq:        *after,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	var index int
	_, err = pb.Run(context.Background(), func(header schema.EventHeader, payload []byte) error {
		index++
		fmt.Printf("%06d seq=%d type=%s at=%s flags=%#x len=%d\n",
			index, header.Seq, header.Type, header.Time().Format(time.RFC3339Nano), header.Flags, len(payload))
		if *decode {
			printDecoded(header.Type, payload)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("playback run failed: %v", err)
	}
}

func printDecoded(t schema.EventType, payload []byte) {
	switch t {
	case schema.EventTick:
		tick, err := codec.DecodeTick(payload)
		if err != nil {
			fmt.Printf("  decode tick failed: %v\n", err)
			return
		}
		fmt.Printf("  tick symbol=%s price=%s\n", tick.Symbol, tick.Price)
	case schema.EventCandle:
		c, err := codec.DecodeCandle(payload)
		if err != nil {
			fmt.Printf("  decode candle failed: %v\n", err)
			return
		}
		fmt.Printf("  candle symbol=%s o=%s h=%s l=%s c=%s v=%s\n", c.Symbol, c.Open, c.High, c.Low, c.Close, c.Volume)
	case schema.EventOrder:
		o, err := codec.DecodeOrder(payload)
		if err != nil {
			fmt.Printf("  decode order failed: %v\n", err)
			return
		}
		fmt.Printf("  order ref=%d broker=%s instrument=%s symbol=%s side=%s qty=%s policy=%s price=%s trigger=%s callback=%s activation=%s oco=%q\n",
			o.Ref, o.Params.BrokerID, o.Params.Instrument, o.Params.Symbol, o.Params.Side, o.Params.Quantity,
			o.Policy.Kind, o.Policy.Price, o.Policy.Trigger, o.Policy.Callback, o.Policy.Activation, o.OCO)
	case schema.EventCancel:
		c, err := codec.DecodeCancel(payload)
		if err != nil {
			fmt.Printf("  decode cancel failed: %v\n", err)
			return
		}
		fmt.Printf("  cancel ref=%d\n", c.Ref)
	}
}
