// Package logrus adapts logrus to flightcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/flightcache"
)

var _ flightcache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New tags every entry with component=flightcache. nil => logrus.StandardLogger().
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return Logger{E: l.WithField("component", "flightcache")}
}

func (l Logger) Debug(msg string, f flightcache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f flightcache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f flightcache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f flightcache.Fields) { l.with(f).Error(msg) }

// with maps an "err" field to logrus' error key.
func (l Logger) with(f flightcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	out := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			out[logrus.ErrorKey] = err
			continue
		}
		out[k] = v
	}
	return l.E.WithFields(out)
}
