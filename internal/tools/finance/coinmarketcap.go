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

const cmcQuotesURL = "https://pro-api.coinmarketcap.com/v2/cryptocurrency/quotes/latest"

// CMCClient calls the CoinMarketCap pro API.
type CMCClient struct {
	apiKey string
	http   *http.Client
}

// NewCMCClient creates a CoinMarketCap client.
func NewCMCClient(apiKey string, timeout time.Duration) *CMCClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CMCClient{apiKey: apiKey, http: &http.Client{Timeout: timeout}}
}

type cmcQuote struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Quote  map[string]struct {
		Price            float64 `json:"price"`
		Volume24h        float64 `json:"volume_24h"`
		PercentChange24h float64 `json:"percent_change_24h"`
		PercentChange7d  float64 `json:"percent_change_7d"`
		MarketCap        float64 `json:"market_cap"`
	} `json:"quote"`
}

type cmcResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string][]cmcQuote `json:"data"`
}

// Quotes fetches latest USD quotes for one or more symbols.
func (c *CMCClient) Quotes(ctx context.Context, symbols []string) (string, error) {
	if c.apiKey == "" {
		return "", errors.Wrap(errors.ErrConfig, "coinmarketcap API key not configured")
	}

	url := cmcQuotesURL + "?convert=USD&symbol=" + strings.Join(symbols, ",")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "create coinmarketcap request")
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(errors.ErrTool, "send coinmarketcap request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read coinmarketcap response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrapf(errors.ErrExternal, "coinmarketcap API error (%d)", resp.StatusCode)
	}

	var parsed cmcResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "unmarshal coinmarketcap response")
	}
	if parsed.Status.ErrorCode != 0 {
		return "", errors.Wrapf(errors.ErrExternal, "coinmarketcap: %s", parsed.Status.ErrorMessage)
	}

	var b strings.Builder
	for _, symbol := range symbols {
		listings, ok := parsed.Data[symbol]
		if !ok || len(listings) == 0 {
			b.WriteString(symbol + ": no data\n")
			continue
		}
		q, ok := listings[0].Quote["USD"]
		if !ok {
			b.WriteString(symbol + ": no USD quote\n")
			continue
		}
		price := decimal.NewFromFloat(q.Price)
		cap := decimal.NewFromFloat(q.MarketCap)
		b.WriteString(fmt.Sprintf("%s (%s): $%s, 24h %+.2f%%, 7d %+.2f%%, market cap $%s\n",
			listings[0].Name, symbol, price.StringFixed(2), q.PercentChange24h, q.PercentChange7d, cap.StringFixed(0)))
	}
	return b.String(), nil
}

// NewCryptoQuoteTool builds the coinmarketcap_quotes tool.
func NewCryptoQuoteTool(client *CMCClient) tools.Tool {
	return tools.New(
		"coinmarketcap_quotes",
		"Fetch latest USD price, 24h/7d change and market cap for crypto symbols (comma separated)",
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			raw, err := tools.StringArg(args, "symbols")
			if err != nil {
				return "", err
			}

			var symbols []string
			for _, s := range strings.Split(raw, ",") {
				if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
					symbols = append(symbols, s)
				}
			}
			if len(symbols) == 0 {
				return "", errors.Wrap(errors.ErrInvalidInput, "symbols must not be empty")
			}

			return client.Quotes(ctx, symbols)
		},
	)
}
