package tui

import (
	"time"

	"github.com/charmbracelet/log"
)

type Option func(*Model)

// WithKeys applies configured key overrides.
func WithKeys(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.apply(cfg)
	}
}

// WithCellsPerColumn sets how many terminal cells one timeline bucket spans.
func WithCellsPerColumn(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.cellsPerColumn = n
		}
	}
}

// WithClipboard replaces the clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}
