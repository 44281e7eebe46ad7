// Package marketdata provides concrete data.Source adapters over live
// vendor APIs — Alpaca and Polygon.io — so a reader of this repository can
// see at least one real wire-up of the DataSource contract named in spec.md
// §6, even though fetching raw OHLC from upstream vendors is explicitly a
// non-goal of the core (spec.md §1). Nothing in internal/backtest or
// internal/data depends on this package; a backtest runs equally well
// against libs/dataset's CSV-backed source.
package marketdata

import "errors"

// ErrNoData is returned when a vendor responds successfully but has no bars
// for the requested symbol/window — distinct from a transport error so
// callers can tell "empty" from "broken".
var ErrNoData = errors.New("marketdata: no data returned")

// ErrUnsupportedFrequency is returned when a vendor adapter has no mapping
// for a requested domain.Frequency.
var ErrUnsupportedFrequency = errors.New("marketdata: unsupported frequency")
