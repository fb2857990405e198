package bimtree

import (
	"log/slog"

	"github.com/hupe1980/bimtree/codec"
	"github.com/hupe1980/bimtree/internal/compress"
	"github.com/hupe1980/bimtree/resource"
	"github.com/hupe1980/bimtree/taxonomy"
)

// Compression selects how records are compressed on write.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

type options struct {
	codec            codec.Codec
	compression      Compression
	metricsCollector MetricsCollector
	logger           *Logger
	hierarchy        *taxonomy.Hierarchy
	taxonomySource   taxonomy.Source
	autoRefresh      bool
	recordCacheBytes int64
	resourceConfig   *resource.Config
	resources        *resource.Controller
	concurrency      int
}

// Option configures Open.
type Option func(*options)

// WithCodec configures the record codec.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression compresses records written by Ingest. Existing records stay
// readable whatever the setting. Default: CompressionNone.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &bimtree.BasicMetricsCollector{}
//	db, _ := bimtree.Open(ctx, bimtree.Local("./data"), bimtree.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Refreshes: %d, loaded components: %d\n", stats.RefreshCount, stats.LoadedComponents)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bimtree.NewJSONLogger(slog.LevelInfo)
//	db, _ := bimtree.Open(ctx, bimtree.Local("./data"), bimtree.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithTaxonomy sets the class hierarchy used to expand type filters.
func WithTaxonomy(h *taxonomy.Hierarchy) Option {
	return func(o *options) {
		o.hierarchy = h
	}
}

// WithTaxonomySource loads the class hierarchy from src during Open. If the
// source cannot be read the failure is logged and type filters match
// literally.
func WithTaxonomySource(src taxonomy.Source) Option {
	return func(o *options) {
		o.taxonomySource = src
	}
}

// WithoutAutoRefresh stops Ingest from rebuilding the memory tree. Call
// Refresh to publish stored data.
func WithoutAutoRefresh() Option {
	return func(o *options) {
		o.autoRefresh = false
	}
}

// WithRecordCache keeps up to capacityBytes of recently read records in memory.
// Useful in front of remote stores, where every refresh re-reads all records.
func WithRecordCache(capacityBytes int64) Option {
	return func(o *options) {
		o.recordCacheBytes = capacityBytes
	}
}

// WithResourceConfig bounds memory, concurrent partition loads and read
// throughput.
func WithResourceConfig(cfg resource.Config) Option {
	return func(o *options) {
		o.resourceConfig = &cfg
	}
}

// WithResourceController shares an existing controller, for example between
// several DB instances. It takes precedence over WithResourceConfig.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithConcurrency bounds the partitions read in parallel during a refresh.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		compression:      CompressionNone,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		autoRefresh:      true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.resources == nil && o.resourceConfig != nil {
		o.resources = resource.NewController(*o.resourceConfig)
	}
	return o
}
