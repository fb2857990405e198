package store

import (
	"io"
	"log/slog"

	"github.com/hupe1980/bimtree/codec"
	"github.com/hupe1980/bimtree/internal/compress"
	"github.com/hupe1980/bimtree/resource"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	codec       codec.Codec
	compression compress.Type
	logger      *slog.Logger
	rc          *resource.Controller
}

func defaultOptions() options {
	return options{
		codec:       codec.Default,
		compression: compress.None,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithCodec sets the record codec. Default: codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithCompression compresses records on write. Reads detect the format, so
// the setting can change on a populated store. Default: compress.None.
func WithCompression(t compress.Type) Option {
	return func(o *options) {
		o.compression = t
	}
}

// WithLogger sets the logger for skipped and unreadable records.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithResourceController charges record reads against the controller's IO
// limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}
