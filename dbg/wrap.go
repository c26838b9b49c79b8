// Package dbg wraps command output with optional diagnostics.
package dbg

import "time"

type Packed[T any] struct {
	Data      T   `json:"data"`
	DebugData any `json:"debug_data,omitempty"`
}

func Pack[T any](data T) *Packed[T] {
	return &Packed[T]{
		Data: data,
	}
}

// WithDebug attaches diagnostics; nil leaves the envelope unchanged.
func (p *Packed[T]) WithDebug(v any) *Packed[T] {
	if v != nil {
		p.DebugData = v
	}
	return p
}

// Statement describes one executed statement.
type Statement struct {
	Database string `json:"database"`
	Type     string `json:"type"`
	SQL      string `json:"sql"`
	Rows     int    `json:"rows"`
	Elapsed  string `json:"elapsed"`
}

// Timed fills Elapsed from start.
func (s Statement) Timed(start time.Time) Statement {
	s.Elapsed = time.Since(start).Round(time.Microsecond).String()
	return s
}
