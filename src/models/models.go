package models

// All prices and quantities travel as decimal strings so the scale written
// in the snapshot survives the round trip.

type InstrumentInfo struct {
	TickSize string `json:"tick_size"`
	MinLot   string `json:"min_lot"`
	LotStep  string `json:"lot_step"`
}

type ParseSnapshotRequest struct {
	Snapshot   string          `json:"snapshot"`
	Instrument *InstrumentInfo `json:"instrument,omitempty"`
	Depth      int             `json:"depth,omitempty"`
}

type MarketOrderRequest struct {
	Snapshot   string          `json:"snapshot"`
	Instrument *InstrumentInfo `json:"instrument,omitempty"`
	Side       string          `json:"side"`
	Quantity   string          `json:"quantity"`
}

type PriceLevelInfo struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type OrderBookResponse struct {
	Bids    []PriceLevelInfo `json:"bids"` // stored order, highest first
	Asks    []PriceLevelInfo `json:"asks"` // stored order, lowest first
	BestBid *PriceLevelInfo  `json:"best_bid,omitempty"`
	BestAsk *PriceLevelInfo  `json:"best_ask,omitempty"`
	Spread  string           `json:"spread,omitempty"`
}

type FillInfo struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type MarketOrderResponse struct {
	ExecutionID       string            `json:"execution_id"`
	Status            string            `json:"status"`
	Side              string            `json:"side"`
	RequestedQuantity string            `json:"requested_quantity"`
	FilledQuantity    string            `json:"filled_quantity"`
	EntryPrice        string            `json:"entry_price"`
	PnL               string            `json:"pnl,omitempty"` // empty when the exit side is gone
	Fills             []FillInfo        `json:"fills"`
	Book              OrderBookResponse `json:"book"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	// expectation list of a syntax error
	Expected []string `json:"expected,omitempty"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	SnapshotsParsed int64  `json:"snapshots_parsed"`
	OrdersExecuted  int64  `json:"orders_executed"`
}
