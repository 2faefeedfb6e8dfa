package catalog

import "time"

// Location is a stock location (warehouse).
type Location struct {
	Name      string
	Active    bool
	CreatedAt time.Time
}

type ItemGroup struct {
	Name        string
	BatchPrefix string // lot naming prefix, empty disables custom naming
}

type Item struct {
	Code         string
	Name         string
	Group        string
	StockUOM     string
	LeadTimeDays int
	IsStockItem  bool
	Disabled     bool
}
