package models

import "time"

// Quote is a live quote snapshot for a ticker symbol
type Quote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	PrevClose float64 `json:"prev_close"`
}

// DailyBar is one day of OHLC history
type DailyBar struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// SymbolMatch is one result of a provider symbol search
type SymbolMatch struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"short_name"`
	Exchange  string `json:"exchange"`
	QuoteType string `json:"quote_type"`
}

// LiveListing is a listed IPO joined with its live quote
type LiveListing struct {
	Name          string   `json:"name"`
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	ChangePercent float64  `json:"changePercent"`
	ListingPrice  *float64 `json:"listingPrice"`
	IssuePrice    *float64 `json:"issuePrice"`
}
