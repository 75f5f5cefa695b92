package models

import "time"

// Stock is a tracked security. The engine reads stocks but never writes them.
type Stock struct {
	ID              string    `json:"id" db:"id"`
	Symbol          string    `json:"symbol" db:"symbol"`
	CompanyName     string    `json:"company_name" db:"company_name"`
	Sector          *string   `json:"sector,omitempty" db:"sector"`
	DifficultyLevel int       `json:"difficulty_level" db:"difficulty_level"`
	IsFeatured      bool      `json:"is_featured" db:"is_featured"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// StockWithQuote pairs a featured stock with its latest quote.
// Quote is nil when the provider had nothing for the symbol.
type StockWithQuote struct {
	Stock
	Quote *MarketData `json:"quote"`
}

// StockHistoryResponse is the normalized series for a symbol with an indicator snapshot.
type StockHistoryResponse struct {
	Symbol   string        `json:"symbol"`
	Interval string        `json:"interval"`
	Range    string        `json:"range"`
	Samples  []PriceSample `json:"samples"`
	SMA20    *float64      `json:"sma_20,omitempty"`
	RSI14    *float64      `json:"rsi_14,omitempty"`
}
