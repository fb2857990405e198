package memtree

import (
	"io"
	"log/slog"

	"github.com/hupe1980/bimtree/resource"
)

// Option configures a Tree.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	concurrency int
	rc          *resource.Controller
}

// DefaultConcurrency is the number of partitions loaded in parallel by Refresh.
const DefaultConcurrency = 4

func defaultOptions() options {
	return options{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: DefaultConcurrency,
	}
}

// WithLogger sets the logger for skipped records, conflicts and failed
// partitions. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConcurrency bounds the partitions read in parallel during Refresh.
// Values below 1 are ignored. Default: DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithResourceController charges built indexes against the controller's memory
// limit and takes a load slot per partition read.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}
