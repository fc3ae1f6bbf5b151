package handlers

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Pilmik/order-book-parser/src/engine"
	"github.com/Pilmik/order-book-parser/src/metrics"
	"github.com/Pilmik/order-book-parser/src/middleware"
	"github.com/Pilmik/order-book-parser/src/models"
)

const (
	StatusFilled      = "FILLED"
	StatusPartialFill = "PARTIAL_FILL"
)

// BookHandler serves stateless requests: every call carries its own
// snapshot, so nothing is shared between requests except counters.
type BookHandler struct {
	Metrics      *metrics.Metrics
	Instrument   *engine.InstrumentConfig
	DefaultDepth int
	MaxDepth     int
	StartTime    time.Time

	SnapshotsParsed int64
	OrdersExecuted  int64
}

type Options struct {
	// applied when a request carries no instrument; nil means no rules
	Instrument   *engine.InstrumentConfig
	DefaultDepth int
	MaxDepth     int
}

func NewBookHandler(opts Options, m *metrics.Metrics) *BookHandler {
	if opts.DefaultDepth <= 0 {
		opts.DefaultDepth = 10
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 1000
	}
	return &BookHandler{
		Metrics:      m,
		Instrument:   opts.Instrument,
		DefaultDepth: opts.DefaultDepth,
		MaxDepth:     opts.MaxDepth,
		StartTime:    time.Now(),
	}
}

func (h *BookHandler) ParseSnapshot(c *fiber.Ctx) error {
	var req models.ParseSnapshotRequest
	if err := c.BodyParser(&req); err != nil {
		return h.malformed(c, err)
	}

	instrument, err := h.instrumentFor(req.Instrument)
	if err != nil {
		return h.reject(c, err)
	}

	book, err := h.parse(req.Snapshot, instrument)
	if err != nil {
		return h.reject(c, err)
	}

	log.Info().
		Str("request_id", middleware.RequestID(c)).
		Int("bids", len(book.Bids)).
		Int("asks", len(book.Asks)).
		Msg("Snapshot parsed")

	return c.Status(fiber.StatusOK).JSON(bookResponse(book, h.depth(req.Depth)))
}

func (h *BookHandler) ExecuteMarketOrder(c *fiber.Ctx) error {
	var req models.MarketOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return h.malformed(c, err)
	}

	side, quantity, err := validateMarketOrderRequest(&req)
	if err != nil {
		return h.reject(c, err)
	}

	instrument, err := h.instrumentFor(req.Instrument)
	if err != nil {
		return h.reject(c, err)
	}

	book, err := h.parse(req.Snapshot, instrument)
	if err != nil {
		return h.reject(c, err)
	}

	if instrument != nil {
		if err := instrument.ValidateOrderQuantity(quantity); err != nil {
			h.observeOrder(side, metrics.OutcomeRejected)
			return h.reject(c, err)
		}
	}

	executionID := uuid.New().String()
	position, err := book.ExecuteMarketOrder(side, quantity)
	if err != nil {
		h.observeOrder(side, metrics.OutcomeRejected)
		log.Warn().
			Str("request_id", middleware.RequestID(c)).
			Str("execution_id", executionID).
			Str("side", string(side)).
			Str("requested", engine.FormatDecimal(quantity)).
			Msg("Market order rejected")
		return writeError(c, err)
	}

	atomic.AddInt64(&h.OrdersExecuted, 1)
	status, outcome := StatusFilled, metrics.OutcomeFilled
	if position.IsPartial() {
		status, outcome = StatusPartialFill, metrics.OutcomePartial
	}
	h.observeOrder(side, outcome)
	if h.Metrics != nil {
		ratio, _ := position.Quantity.Div(position.Requested).Float64()
		h.Metrics.FillRatio.Observe(ratio)
		h.Metrics.LevelsConsumed.Observe(float64(len(position.Fills)))
	}

	resp := models.MarketOrderResponse{
		ExecutionID:       executionID,
		Status:            status,
		Side:              string(position.Side),
		RequestedQuantity: engine.FormatDecimal(position.Requested),
		FilledQuantity:    engine.FormatDecimal(position.Quantity),
		EntryPrice:        engine.FormatDecimal(position.EntryPrice),
		Fills:             make([]models.FillInfo, 0, len(position.Fills)),
		Book:              bookResponse(book, h.DefaultDepth),
	}
	for _, f := range position.Fills {
		resp.Fills = append(resp.Fills, models.FillInfo{
			Price:    engine.FormatDecimal(f.Price),
			Quantity: engine.FormatDecimal(f.Quantity),
		})
	}
	if pnl, ok := position.CalculatePnL(book); ok {
		resp.PnL = engine.FormatDecimal(pnl)
	}

	log.Info().
		Str("request_id", middleware.RequestID(c)).
		Str("execution_id", executionID).
		Str("status", status).
		Str("side", resp.Side).
		Str("filled_quantity", resp.FilledQuantity).
		Str("entry_price", resp.EntryPrice).
		Int("fills_count", len(resp.Fills)).
		Msg("Market order executed")

	if position.IsPartial() {
		return c.Status(fiber.StatusAccepted).JSON(resp)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *BookHandler) HealthCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:          "healthy",
		UptimeSeconds:   int64(time.Since(h.StartTime).Seconds()),
		SnapshotsParsed: atomic.LoadInt64(&h.SnapshotsParsed),
		OrdersExecuted:  atomic.LoadInt64(&h.OrdersExecuted),
	})
}

func (h *BookHandler) parse(snapshot string, instrument *engine.InstrumentConfig) (*engine.OrderBook, error) {
	book, err := engine.ParseOrderBook(snapshot, instrument)

	result := metrics.ResultOK
	if err != nil {
		result = "unknown"
		if kind, ok := engine.KindOf(err); ok {
			result = kind.String()
		}
	} else {
		atomic.AddInt64(&h.SnapshotsParsed, 1)
	}
	if h.Metrics != nil {
		h.Metrics.SnapshotsTotal.WithLabelValues(result).Inc()
	}
	return book, err
}

func (h *BookHandler) instrumentFor(info *models.InstrumentInfo) (*engine.InstrumentConfig, error) {
	if info == nil {
		return h.Instrument, nil
	}
	cfg, err := engine.NewInstrumentConfigFromStrings(info.TickSize, info.MinLot, info.LotStep)
	if err != nil {
		return nil, &ValidationError{Message: "Invalid instrument: " + err.Error()}
	}
	return &cfg, nil
}

func (h *BookHandler) depth(requested int) int {
	if requested <= 0 {
		return h.DefaultDepth
	}
	// edge case: enforce maximum depth limit
	if requested > h.MaxDepth {
		return h.MaxDepth
	}
	return requested
}

func (h *BookHandler) observeOrder(side engine.Side, outcome string) {
	if h.Metrics != nil {
		h.Metrics.OrdersTotal.WithLabelValues(string(side), outcome).Inc()
	}
}

func (h *BookHandler) malformed(c *fiber.Ctx, err error) error {
	log.Warn().
		Err(err).
		Str("request_id", middleware.RequestID(c)).
		Str("ip", c.IP()).
		Str("path", c.Path()).
		Msg("Invalid request: malformed JSON")
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: "Invalid request: malformed JSON",
	})
}

func (h *BookHandler) reject(c *fiber.Ctx, err error) error {
	event := log.Warn().
		Err(err).
		Str("request_id", middleware.RequestID(c)).
		Str("path", c.Path())
	if kind, ok := engine.KindOf(err); ok {
		event = event.Str("kind", kind.String())
	}
	event.Msg("Request rejected")
	return writeError(c, err)
}

func validateMarketOrderRequest(req *models.MarketOrderRequest) (engine.Side, decimal.Decimal, error) {
	side, err := engine.ParseSide(req.Side)
	if err != nil {
		return "", decimal.Zero, &ValidationError{Message: "Invalid order: side must be BUY or SELL"}
	}

	text := strings.TrimSpace(req.Quantity)
	if text == "" {
		return "", decimal.Zero, &ValidationError{Message: "Invalid order: quantity is required"}
	}
	quantity, err := decimal.NewFromString(text)
	if err != nil {
		return "", decimal.Zero, &ValidationError{Message: "Invalid order: quantity must be a decimal number"}
	}
	if !quantity.IsPositive() {
		return "", decimal.Zero, &ValidationError{Message: "Invalid order: quantity must be positive"}
	}
	return side, quantity, nil
}

func bookResponse(book *engine.OrderBook, depth int) models.OrderBookResponse {
	bids, asks := book.Depth(depth)
	resp := models.OrderBookResponse{
		Bids: levelInfos(bids),
		Asks: levelInfos(asks),
	}
	if best, ok := book.BestBid(); ok {
		info := levelInfo(best)
		resp.BestBid = &info
	}
	if best, ok := book.BestAsk(); ok {
		info := levelInfo(best)
		resp.BestAsk = &info
	}
	if spread, ok := book.Spread(); ok {
		resp.Spread = engine.FormatDecimal(spread)
	}
	return resp
}

func levelInfos(levels []engine.Level) []models.PriceLevelInfo {
	out := make([]models.PriceLevelInfo, 0, len(levels))
	for _, l := range levels {
		out = append(out, levelInfo(l))
	}
	return out
}

func levelInfo(l engine.Level) models.PriceLevelInfo {
	return models.PriceLevelInfo{
		Price:    engine.FormatDecimal(l.Price),
		Quantity: engine.FormatDecimal(l.Quantity),
	}
}
