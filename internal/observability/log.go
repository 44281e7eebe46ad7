package observability

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// logger writes to the standard logger's current output with no prefix or
// flags, so each call emits exactly one bare JSON line.
func logger() *log.Logger { return log.New(log.Writer(), "", 0) }

// LogEvent emits one structured JSON line carrying the current RunInfo plus
// fields. fields are redacted via RedactValue before marshaling.
func LogEvent(ctx context.Context, level, event string, fields map[string]any) {
	payload := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"level": level,
		"event": event,
	}

	info := RunInfoFromContext(ctx)
	if info.RunID != "" {
		payload["run_id"] = info.RunID
	}
	if info.FlowID != "" {
		payload["flow_id"] = info.FlowID
	}
	if info.Symbol != "" {
		payload["symbol"] = info.Symbol
	}

	for key, value := range fields {
		if isSensitiveKey(key) {
			payload[key] = redactedValue
			continue
		}
		payload[key] = RedactValue(value)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger().Printf("{\"level\":\"error\",\"event\":\"log_marshal_failed\",\"error\":%q}", err.Error())
		return
	}
	logger().Print(string(raw))
}

// LogOrderSubmitted logs an order's submission.
func LogOrderSubmitted(ctx context.Context, orderID, symbol, side string, quantity int, price float64) {
	LogEvent(ctx, "info", "order_submitted", map[string]any{
		"order_id": orderID,
		"symbol":   symbol,
		"side":     side,
		"quantity": quantity,
		"price":    price,
	})
}

// LogFillReceived logs a fill applied to the account.
func LogFillReceived(ctx context.Context, fillID, orderID, symbol string, quantity int, price float64) {
	LogEvent(ctx, "info", "fill_received", map[string]any{
		"fill_id":  fillID,
		"order_id": orderID,
		"symbol":   symbol,
		"quantity": quantity,
		"price":    price,
	})
}

// LogSignalRejected logs a signal dropped by dedup or a risk gate, with reason.
func LogSignalRejected(ctx context.Context, strategyID, symbol, reason string) {
	LogEvent(ctx, "info", "signal_rejected", map[string]any{
		"strategy_id": strategyID,
		"symbol":      symbol,
		"reason":      reason,
	})
}
