package comic

import "log/slog"

// Option configures Open and NewReader.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	maxPageSize   int64
	rarMode       RarMode
	scratchDir    string
	coverKeywords []string
	policy        *RecoveryPolicy
	cache         *PageCache
}

func defaultOptions() *options {
	return &options{
		logger:        slog.New(slog.DiscardHandler),
		maxPageSize:   defaultMaxPageSize,
		rarMode:       RarAuto,
		coverKeywords: DefaultCoverKeywords(),
		policy:        defaultRecoveryPolicy,
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithLogger sets the logger used for diagnostics. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxPageSize caps the decompressed size of a single page.
// Values <= 0 keep the default of 256 MB.
func WithMaxPageSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPageSize = n
		}
	}
}

// WithRarMode selects how RAR pages are served. See RarMode.
func WithRarMode(m RarMode) Option {
	return func(o *options) { o.rarMode = m }
}

// WithScratchDir sets the parent directory for RAR scratch directories.
// The system temporary directory is used when dir is empty.
func WithScratchDir(dir string) Option {
	return func(o *options) { o.scratchDir = dir }
}

// WithCoverKeywords replaces the keywords that mark an entry as the cover.
func WithCoverKeywords(keywords ...string) Option {
	return func(o *options) {
		o.coverKeywords = append([]string(nil), keywords...)
	}
}

// WithRecoveryPolicy replaces the filename encoding recovery policy.
func WithRecoveryPolicy(p *RecoveryPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithPageCache makes PageBytes consult c before reading the archive.
// The cache is owned by the caller and may be shared by several books.
func WithPageCache(c *PageCache) Option {
	return func(o *options) { o.cache = c }
}
