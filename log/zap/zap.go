// Package zap adapts a *zap.Logger to flightcache.Logger.
package zap

import (
	"sort"

	"github.com/unkn0wn-root/flightcache"
	"go.uber.org/zap"
)

var _ flightcache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names the logger "flightcache". A nil logger discards everything.
func New(l *zap.Logger) Logger {
	if l == nil {
		return Logger{L: zap.NewNop()}
	}
	return Logger{L: l.Named("flightcache")}
}

func (z Logger) Debug(msg string, f flightcache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f flightcache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f flightcache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f flightcache.Fields) { z.L.Error(msg, fields(f)...) }

// fields emits keys in sorted order; errors become zap.NamedError.
func fields(f flightcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
