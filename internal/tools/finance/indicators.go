package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/markcheno/go-talib"

	"finwiz/internal/tools"
	"finwiz/pkg/errors"
)

// minIndicatorBars is the smallest history that yields a stable RSI/SMA set.
const minIndicatorBars = 30

// IndicatorSummary computes standard technical indicators from daily closes.
func IndicatorSummary(symbol string, closes []float64) (string, error) {
	clean := closes[:0:0]
	for _, c := range closes {
		if c > 0 {
			clean = append(clean, c)
		}
	}
	if len(clean) < minIndicatorBars {
		return "", errors.Wrapf(errors.ErrInvalidInput,
			"need at least %d closes for %s, got %d", minIndicatorBars, symbol, len(clean))
	}

	rsi := talib.Rsi(clean, 14)
	sma20 := talib.Sma(clean, 20)
	ema12 := talib.Ema(clean, 12)
	macd, signal, _ := talib.Macd(clean, 12, 26, 9)

	last := len(clean) - 1
	trend := "above"
	if clean[last] < sma20[last] {
		trend = "below"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Technical indicators for %s (last %d sessions):\n", symbol, len(clean))
	fmt.Fprintf(&b, "- Close: %.2f (%s 20-day SMA %.2f)\n", clean[last], trend, sma20[last])
	fmt.Fprintf(&b, "- RSI(14): %.1f\n", rsi[last])
	fmt.Fprintf(&b, "- EMA(12): %.2f\n", ema12[last])
	fmt.Fprintf(&b, "- MACD: %.3f, signal %.3f\n", macd[last], signal[last])
	return b.String(), nil
}

// NewIndicatorsTool builds the technical_indicators tool backed by Yahoo history.
func NewIndicatorsTool(client *YahooClient) tools.Tool {
	return tools.New(
		"technical_indicators",
		"Compute RSI, SMA, EMA and MACD from recent daily closes of a ticker",
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			ticker, err := tools.StringArg(args, "ticker")
			if err != nil {
				return "", err
			}

			data, err := client.Quote(ctx, ticker, "6mo")
			if err != nil {
				return "", err
			}

			return IndicatorSummary(data.Symbol, data.Closes)
		},
	)
}
