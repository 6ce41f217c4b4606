package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyOutput     = "output"
	KeySource     = "source"
	KeyCount      = "count"
	KeyOutcome    = "outcome"
	KeyPolicy     = "policy"
	KeyURL        = "url"
	KeyAddr       = "addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr     { return slog.String(KeyPath, p) }
func Output(p string) slog.Attr   { return slog.String(KeyOutput, p) }
func Source(p string) slog.Attr   { return slog.String(KeySource, p) }
func Count(n int) slog.Attr       { return slog.Int(KeyCount, n) }
func Outcome(o string) slog.Attr  { return slog.String(KeyOutcome, o) }
func Policy(p string) slog.Attr   { return slog.String(KeyPolicy, p) }
func URL(u string) slog.Attr      { return slog.String(KeyURL, u) }
func Addr(a string) slog.Attr     { return slog.String(KeyAddr, a) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
