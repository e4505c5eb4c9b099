package store

import (
	"context"
	"time"

	"constkit/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one statement run through an adapter
type QueryEvent struct {
	Dialect   Dialect
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives query events
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer returns a tracer that prints every statement when LogSQL is on, independent of
// the process-wide root level
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "store").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := z.log.Info()
	if ev.Slow {
		evt = z.log.Warn()
	}
	evt.Str("dialect", string(ev.Dialect)).
		Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("sql query")
}

// compact folds runs of whitespace into one space
func compact(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' || r == ' ' {
			if !space {
				out = append(out, ' ')
				space = true
			}
			continue
		}
		space = false
		out = append(out, r)
	}
	return string(out)
}

// emitter times statements for one adapter; slowUS <= 0 never flags a query slow
type emitter struct {
	dialect Dialect
	tracer  QueryTracer
	slowUS  int64
}

func (e emitter) emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if e.tracer == nil {
		return
	}
	elapsed := time.Since(start).Microseconds()
	e.tracer.OnQuery(ctx, QueryEvent{
		Dialect:   e.dialect,
		SQL:       sql,
		Args:      args,
		ElapsedUS: elapsed,
		Err:       err,
		Slow:      e.slowUS > 0 && elapsed >= e.slowUS,
	})
}
