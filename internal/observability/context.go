package observability

import "context"

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	flowIDKey contextKey = "flow_id"
	symbolKey contextKey = "symbol"
)

// RunInfo carries trace identifiers through a context. RunID identifies a
// single backtest or live session. FlowID spans one signal's lifecycle from
// emission through fill. Symbol is the instrument currently in scope, when
// one applies.
type RunInfo struct {
	RunID  string
	FlowID string
	Symbol string
}

// WithRunInfo attaches the non-empty fields of info to ctx.
func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	if info.RunID != "" {
		ctx = context.WithValue(ctx, runIDKey, info.RunID)
	}
	if info.FlowID != "" {
		ctx = context.WithValue(ctx, flowIDKey, info.FlowID)
	}
	if info.Symbol != "" {
		ctx = context.WithValue(ctx, symbolKey, info.Symbol)
	}
	return ctx
}

// RunInfoFromContext reads back whatever RunInfo fields were attached.
func RunInfoFromContext(ctx context.Context) RunInfo {
	info := RunInfo{}
	if v := ctx.Value(runIDKey); v != nil {
		if s, ok := v.(string); ok {
			info.RunID = s
		}
	}
	if v := ctx.Value(flowIDKey); v != nil {
		if s, ok := v.(string); ok {
			info.FlowID = s
		}
	}
	if v := ctx.Value(symbolKey); v != nil {
		if s, ok := v.(string); ok {
			info.Symbol = s
		}
	}
	return info
}

// WithFlowID attaches just a flow_id to ctx.
func WithFlowID(ctx context.Context, flowID string) context.Context {
	if flowID == "" {
		return ctx
	}
	return context.WithValue(ctx, flowIDKey, flowID)
}

// FlowIDFromContext retrieves the flow_id set by WithFlowID or WithRunInfo.
func FlowIDFromContext(ctx context.Context) string {
	if v := ctx.Value(flowIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
