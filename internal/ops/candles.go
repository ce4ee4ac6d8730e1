package ops

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"backtest/internal/model"
)

// LoadCandles reads bars from CSV rows of
//
//	time,open,high,low,close[,volume]
//
// time is RFC 3339 or unix seconds. A first row whose open column is not a
// number is treated as a header. Bars must be in ascending time order.
func LoadCandles(r io.Reader) ([]model.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		candles []model.Candle
		line    int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return candles, nil
		}
		if err != nil {
			return nil, err
		}
		line++

		if len(record) < 5 {
			return nil, fmt.Errorf("line %d: want at least 5 columns, got %d", line, len(record))
		}
		if line == 1 {
			if _, err := decimal.NewFromString(record[1]); err != nil {
				continue
			}
		}

		c, err := parseCandle(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(candles); n > 0 && c.OpenTime.Before(candles[n-1].OpenTime) {
			return nil, fmt.Errorf("line %d: %s is before previous bar", line, c.OpenTime.Format(time.RFC3339))
		}
		candles = append(candles, c)
	}
}

func parseCandle(record []string) (model.Candle, error) {
	openTime, err := parseTime(record[0])
	if err != nil {
		return model.Candle{}, err
	}

	values := make([]decimal.Decimal, 5)
	for i := 1; i < len(record) && i <= 5; i++ {
		if strings.TrimSpace(record[i]) == "" {
			continue
		}
		v, err := decimal.NewFromString(strings.TrimSpace(record[i]))
		if err != nil {
			return model.Candle{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		values[i-1] = v
	}

	c := model.Candle{
		OpenTime: openTime,
		Open:     values[0],
		High:     values[1],
		Low:      values[2],
		Close:    values[3],
		Volume:   values[4],
	}
	if c.High.LessThan(c.Low) || c.Open.GreaterThan(c.High) || c.Open.LessThan(c.Low) ||
		c.Close.GreaterThan(c.High) || c.Close.LessThan(c.Low) {
		return model.Candle{}, fmt.Errorf("inconsistent bar o=%s h=%s l=%s c=%s", c.Open, c.High, c.Low, c.Close)
	}
	return c, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
