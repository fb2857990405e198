package s3

// UploadConfig configures the S3 upload manager.
type UploadConfig struct {
	// PartSize is the minimum part size for multipart uploads.
	// Default: 8MB. Component records are far smaller and go out as a single PutObject.
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5 (matches SDK default)
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation.
	// Default: true
	EnableChecksum bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 * 1024 * 1024,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

type options struct {
	prefix    string
	region    string
	endpoint  string
	pathStyle bool
	upload    UploadConfig
}

// Option configures a Store.
type Option func(*options)

// WithPrefix sets the key prefix under which all models live.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRegion overrides the region resolved from the environment. Only used by New.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithEndpoint sets a custom base endpoint for S3-compatible services. Only used by New.
func WithEndpoint(url string) Option {
	return func(o *options) { o.endpoint = url }
}

// WithPathStyle enables path-style addressing. Only used by New.
func WithPathStyle(enabled bool) Option {
	return func(o *options) { o.pathStyle = enabled }
}

// WithUploadConfig replaces the upload manager settings.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(o *options) { o.upload = cfg }
}
