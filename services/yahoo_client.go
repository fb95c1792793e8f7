package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
)

// YahooFinanceClient talks to the public Yahoo Finance search and chart endpoints.
// It performs exactly one HTTP call per method; pacing lives in RateLimitedProvider.
type YahooFinanceClient struct {
	httpClient *http.Client
	searchURL  string
	chartURL   string
}

// NewYahooFinanceClient creates a client for the configured endpoints
func NewYahooFinanceClient(httpClient *http.Client, config shared.ProviderConfig) *YahooFinanceClient {
	return &YahooFinanceClient{
		httpClient: httpClient,
		searchURL:  config.YahooSearchURL,
		chartURL:   strings.TrimRight(config.YahooChartURL, "/"),
	}
}

type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		Exchange  string `json:"exchange"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

// yahooChart is the response structure of the v8 chart API
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				PreviousClose      float64 `json:"previousClose"`
				RegularMarketHigh  float64 `json:"regularMarketDayHigh"`
				RegularMarketLow   float64 `json:"regularMarketDayLow"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					High  []*float64 `json:"high"`
					Low   []*float64 `json:"low"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func valueAt(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

// SearchSymbols runs a free-text symbol search
func (c *YahooFinanceClient) SearchSymbols(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", strconv.Itoa(limit))
	params.Set("newsCount", "0")

	var response yahooSearchResponse
	if err := shared.GetJSON(ctx, c.httpClient, c.searchURL+"?"+params.Encode(), &response); err != nil {
		return nil, fmt.Errorf("yahoo search %q: %w", query, err)
	}

	matches := make([]models.SymbolMatch, 0, len(response.Quotes))
	for _, quote := range response.Quotes {
		if quote.Symbol == "" {
			continue
		}
		name := quote.ShortName
		if name == "" {
			name = quote.LongName
		}
		matches = append(matches, models.SymbolMatch{
			Symbol:    quote.Symbol,
			ShortName: name,
			Exchange:  quote.Exchange,
			QuoteType: quote.QuoteType,
		})
	}
	return matches, nil
}

func (c *YahooFinanceClient) fetchChart(ctx context.Context, symbol string, params url.Values) (*yahooChart, error) {
	requestURL := fmt.Sprintf("%s/%s?%s", c.chartURL, url.PathEscape(symbol), params.Encode())

	var chart yahooChart
	if err := shared.GetJSON(ctx, c.httpClient, requestURL, &chart); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no chart data returned for %s", symbol)
	}
	return &chart, nil
}

// GetDailyBars returns daily bars between from and to, oldest first. Null bars are skipped.
func (c *YahooFinanceClient) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(from.Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.Unix(), 10))
	params.Set("interval", "1d")

	chart, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no quote indicators for %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	bars := make([]models.DailyBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bar := models.DailyBar{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  valueAt(quote.Open, i),
			High:  valueAt(quote.High, i),
			Low:   valueAt(quote.Low, i),
			Close: valueAt(quote.Close, i),
		}
		if bar.Open == 0 && bar.High == 0 && bar.Low == 0 && bar.Close == 0 {
			continue // holidays and suspended sessions
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// GetQuote reads the current session from the chart endpoint's metadata
func (c *YahooFinanceClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")

	chart, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	quote := &models.Quote{
		Symbol:    symbol,
		Price:     result.Meta.RegularMarketPrice,
		High:      result.Meta.RegularMarketHigh,
		Low:       result.Meta.RegularMarketLow,
		PrevClose: result.Meta.ChartPreviousClose,
	}
	if quote.PrevClose == 0 {
		quote.PrevClose = result.Meta.PreviousClose
	}
	if len(result.Indicators.Quote) > 0 {
		quote.Open = valueAt(result.Indicators.Quote[0].Open, 0)
	}
	return quote, nil
}
