package categorize

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Config holds the tuning knobs of a Categorizer.
type Config struct {
	// Timeout bounds one call to the suggester (default: 10s)
	Timeout time.Duration

	// CacheSize is the number of remembered descriptions (default: 500)
	CacheSize int

	// CacheTTL is how long an answer is reused (default: 24h)
	CacheTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:   10 * time.Second,
		CacheSize: 500,
		CacheTTL:  24 * time.Hour,
	}
}

// Categorizer turns a Suggester into a total function: every eligible
// description resolves to a category of the enumeration. Failures of any
// kind resolve to core.CategoryOther.
type Categorizer struct {
	suggester Suggester
	timeout   time.Duration
	memo      *cache.LRUCache[string]
	group     singleflight.Group
	logger    *log.Logger
}

// NewCategorizer wraps s. A nil s models a missing credential.
func NewCategorizer(s Suggester, cfg Config, logger *log.Logger) *Categorizer {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CacheSize < 1 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Categorizer{
		suggester: s,
		timeout:   cfg.Timeout,
		memo:      cache.NewLRUCache[string](cfg.CacheSize, cfg.CacheTTL),
		logger:    logger.WithComponent(log.ComponentCategorize),
	}
}

// Cache exposes the memo so that it can be registered for cleanup.
func (c *Categorizer) Cache() *cache.LRUCache[string] {
	return c.memo
}

// Eligible reports whether a suggestion is requested at all: only expenses
// whose trimmed description is longer than five characters.
func Eligible(txType core.TransactionType, description string) bool {
	return txType == core.Expense && len([]rune(strings.TrimSpace(description))) > 5
}

// Suggest returns a category for description and whether one was
// requested. Concurrent calls for the same description share one request.
func (c *Categorizer) Suggest(ctx context.Context, txType core.TransactionType, description string) (string, bool) {
	if !Eligible(txType, description) {
		return "", false
	}
	description = strings.TrimSpace(description)
	key := strings.ToLower(description)

	if cat, ok := c.memo.Get(key); ok {
		return cat, true
	}
	if c.suggester == nil {
		c.logger.WarnContext(ctx, "No suggester configured, using default category",
			log.FieldCategory, core.CategoryOther)
		return core.CategoryOther, true
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		// The shared call must outlive the first caller's cancellation.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		raw, err := c.suggester.Suggest(callCtx, description)
		if err != nil {
			errType := log.ErrorTypeNetwork
			if errors.Is(err, context.DeadlineExceeded) {
				errType = log.ErrorTypeTimeout
			}
			c.logger.WarnContext(ctx, "Category suggestion failed, using default",
				log.FieldOperation, log.OpSuggest,
				log.FieldDescription, description,
				log.FieldError, err,
				log.FieldErrorType, errType)
			return core.CategoryOther, nil
		}
		cat := core.NormalizeCategory(raw)
		if cat == core.CategoryOther && !strings.EqualFold(strings.TrimSpace(raw), core.CategoryOther) {
			c.logger.InfoContext(ctx, "Suggestion outside the category list, using default",
				log.FieldOperation, log.OpParse,
				log.FieldCategory, raw,
				log.FieldErrorType, log.ErrorTypeValidation)
		}
		c.memo.Set(key, cat)
		return cat, nil
	})
	return v.(string), true
}
