package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finwiz/internal/tools"
	"finwiz/pkg/errors"
)

const yahooQuoteURL = "https://query1.finance.yahoo.com/v8/finance/chart/"
const yahooSummaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary/"

// YahooClient calls the public Yahoo Finance endpoints.
type YahooClient struct {
	http *http.Client
}

// NewYahooClient creates a Yahoo Finance client.
func NewYahooClient(timeout time.Duration) *YahooClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooClient{http: &http.Client{Timeout: timeout}}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close  []float64 `json:"close"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches the latest quote and recent closes for a ticker.
func (c *YahooClient) Quote(ctx context.Context, ticker string, lookback string) (*QuoteData, error) {
	if lookback == "" {
		lookback = "3mo"
	}

	url := yahooQuoteURL + ticker + "?interval=1d&range=" + lookback
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "unmarshal yahoo chart response")
	}
	if parsed.Chart.Error != nil {
		return nil, errors.Wrapf(errors.ErrExternal, "yahoo: %s", parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no data for ticker %s", ticker)
	}

	result := parsed.Chart.Result[0]
	data := &QuoteData{
		Symbol:        result.Meta.Symbol,
		Currency:      result.Meta.Currency,
		Price:         decimal.NewFromFloat(result.Meta.RegularMarketPrice),
		PreviousClose: decimal.NewFromFloat(result.Meta.PreviousClose),
	}
	if len(result.Indicators.Quote) > 0 {
		q := result.Indicators.Quote[0]
		data.Closes = q.Close
		data.Highs = q.High
		data.Lows = q.Low
		data.Volumes = q.Volume
	}

	return data, nil
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// CompanyInfo fetches profile and key statistics for a ticker.
func (c *YahooClient) CompanyInfo(ctx context.Context, ticker string) (string, error) {
	url := yahooSummaryURL + ticker + "?modules=assetProfile,summaryDetail,defaultKeyStatistics"
	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}

	var parsed summaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "unmarshal yahoo summary response")
	}
	if parsed.QuoteSummary.Error != nil {
		return "", errors.Wrapf(errors.ErrExternal, "yahoo: %s", parsed.QuoteSummary.Error.Description)
	}
	if len(parsed.QuoteSummary.Result) == 0 {
		return "", errors.Wrapf(errors.ErrNotFound, "no profile for ticker %s", ticker)
	}

	var b strings.Builder
	b.WriteString("Company profile for " + ticker + ":\n")
	for module, raw := range parsed.QuoteSummary.Result[0] {
		b.WriteString(fmt.Sprintf("## %s\n%s\n", module, string(raw)))
	}
	return b.String(), nil
}

func (c *YahooClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create yahoo request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; finwiz/1.0)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTool, "send yahoo request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read yahoo response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrExternal, "yahoo API error (%d)", resp.StatusCode)
	}

	return body, nil
}

// QuoteData is the parsed quote payload.
type QuoteData struct {
	Symbol        string
	Currency      string
	Price         decimal.Decimal
	PreviousClose decimal.Decimal
	Closes        []float64
	Highs         []float64
	Lows          []float64
	Volumes       []float64
}

// Change returns the percentage change from the previous close.
func (d *QuoteData) Change() decimal.Decimal {
	if d.PreviousClose.IsZero() {
		return decimal.Zero
	}
	return d.Price.Sub(d.PreviousClose).Div(d.PreviousClose).Mul(decimal.NewFromInt(100)).Round(2)
}

// NewQuoteTool builds the yahoo_finance_quote tool.
func NewQuoteTool(client *YahooClient) tools.Tool {
	return tools.New(
		"yahoo_finance_quote",
		"Fetch the latest price, change and recent history for a stock or ETF ticker",
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			ticker, err := tools.StringArg(args, "ticker")
			if err != nil {
				return "", err
			}

			data, err := client.Quote(ctx, ticker, "")
			if err != nil {
				return "", err
			}

			return fmt.Sprintf("%s: %s %s (%s%% vs previous close), %d daily closes available",
				data.Symbol, data.Price.StringFixed(2), data.Currency, data.Change().String(), len(data.Closes)), nil
		},
	)
}

// NewCompanyInfoTool builds the yahoo_finance_company_info tool.
func NewCompanyInfoTool(client *YahooClient) tools.Tool {
	return tools.New(
		"yahoo_finance_company_info",
		"Fetch company profile, summary detail and key statistics for a ticker",
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			ticker, err := tools.StringArg(args, "ticker")
			if err != nil {
				return "", err
			}
			return client.CompanyInfo(ctx, ticker)
		},
	)
}
