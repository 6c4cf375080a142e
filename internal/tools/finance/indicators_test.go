package finance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwiz/pkg/errors"
)

func TestIndicatorSummary(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5)
	}

	summary, err := IndicatorSummary("AAPL", closes)
	require.NoError(t, err)
	assert.Contains(t, summary, "AAPL")
	assert.Contains(t, summary, "RSI(14)")
	assert.Contains(t, summary, "MACD")
}

func TestIndicatorSummaryNeedsHistory(t *testing.T) {
	_, err := IndicatorSummary("AAPL", []float64{100, 101, 102})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestIndicatorSummaryDropsZeroCloses(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	closes[5] = 0 // missing session

	summary, err := IndicatorSummary("MSFT", closes)
	require.NoError(t, err)
	assert.Contains(t, summary, "39 sessions")
}
