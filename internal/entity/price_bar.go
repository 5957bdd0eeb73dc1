package entity

import "time"

// PriceBar is one daily OHLCV record for a symbol.
type PriceBar struct {
	Symbol string    `gorm:"primaryKey" json:"symbol"`
	Date   time.Time `gorm:"primaryKey" json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// TableName specifies the table name for the PriceBar model.
func (PriceBar) TableName() string {
	return "price_bars"
}
