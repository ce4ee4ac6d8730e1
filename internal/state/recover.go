package state

import (
	"context"
	"fmt"
	"time"

	"backtest/internal/broker"
	"backtest/internal/codec"
	"backtest/internal/errors"
	"backtest/internal/model"
	"backtest/internal/recorder"
	"backtest/internal/schema"
	"backtest/pkg/exception"
)

// RecoverConfig controls WAL replay into a broker.
type RecoverConfig struct {
	WALDir          string
	FilePrefix      string
	DisableChecksum bool
	MaxPayloadSize  int
	// ReplayFullBar is used for candles recorded without FlagReplayFullBar.
	ReplayFullBar bool
}

// RecoverResult contains replay metadata.
type RecoverResult struct {
	// Orders maps recorded order refs to broker order ids.
	Orders      map[uint64]model.OrderID
	Events      int
	LastSeq     uint64
	LastInstant time.Time
	Exposure    *ExposureReducer
}

// Recover replays a recorded event log into b. b should be fresh: replaying
// into a broker that already saw later instants fails on the first tick.
func Recover(ctx context.Context, cfg RecoverConfig, b *broker.Broker) (RecoverResult, error) {
	if cfg.WALDir == "" {
		return RecoverResult{}, fmt.Errorf("wal dir is empty")
	}
	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             cfg.WALDir,
		FilePrefix:      cfg.FilePrefix,
		DisableChecksum: cfg.DisableChecksum,
		MaxPayloadSize:  cfg.MaxPayloadSize,
	})
	if err != nil {
		return RecoverResult{}, err
	}

	result := RecoverResult{
		Orders:   make(map[uint64]model.OrderID),
		Exposure: NewExposureReducer(),
	}
	seen := 0

	lastSeq, err := pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		if err := apply(cfg, b, &result, header, payload); err != nil {
			return err
		}
		result.Events++
		result.LastInstant = header.Time()

		for _, exec := range b.ExecutionsSince(seen) {
			result.Exposure.Apply(exec)
			seen++
		}
		return nil
	})
	result.LastSeq = lastSeq
	if err != nil {
		return result, err
	}
	return result, nil
}

func apply(cfg RecoverConfig, b *broker.Broker, result *RecoverResult, header schema.EventHeader, payload []byte) error {
	instant := header.Time()

	switch header.Type {
	case schema.EventTick:
		tick, err := codec.DecodeTick(payload)
		if err != nil {
			return err
		}
		return b.NewPrice(instant, tick.Symbol, tick.Price)

	case schema.EventCandle:
		candle, err := codec.DecodeCandle(payload)
		if err != nil {
			return err
		}
		fullBar := cfg.ReplayFullBar || header.Flags&schema.FlagReplayFullBar != 0
		return b.NewCandle(candle.Symbol, candle.Bar(instant), fullBar)

	case schema.EventOrder:
		order, err := codec.DecodeOrder(payload)
		if err != nil {
			return err
		}
		p, err := order.Policy.Build(order.Params.Side)
		if err != nil {
			return errors.Wrapf(err, "order ref %d", order.Ref)
		}
		id, err := b.NewOrderAt(instant, order.Params, p, model.OCOID(order.OCO))
		if err != nil {
			return errors.Wrapf(err, "order ref %d", order.Ref)
		}
		result.Orders[order.Ref] = id
		return nil

	case schema.EventCancel:
		cancel, err := codec.DecodeCancel(payload)
		if err != nil {
			return err
		}
		id, ok := result.Orders[cancel.Ref]
		if !ok {
			return errors.Wrapf(exception.ErrBrokerUnknownOrder, "order ref %d", cancel.Ref)
		}
		return b.CancelOrder(id)

	default:
		return fmt.Errorf("unknown event type %d", header.Type)
	}
}
