package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/glossary/internal/format"
	"github.com/JonMunkholm/glossary/internal/logging"
)

// ErrInvalidScope is returned when the project or language is missing.
var ErrInvalidScope = errors.New("project and language are required")

// Config holds the service limits. Zero values select the defaults.
type Config struct {
	MaxFileSize          int64
	MaxConcurrentUploads int
	MaxUploadWait        time.Duration
	UploadTimeout        time.Duration
	DefaultPolicy        Policy
}

const (
	DefaultMaxFileSize   = 10 << 20
	DefaultUploadTimeout = 5 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = DefaultUploadTimeout
	}
	if c.DefaultPolicy == "" {
		c.DefaultPolicy = PolicySkip
	}
	return c
}

// Service is the entry point used by the transports. It validates input,
// bounds concurrent uploads and delegates persistence to a Store.
type Service struct {
	store    Store
	registry *format.Registry
	importer *Importer
	limiter  *UploadLimiter
	metrics  *Metrics
	cfg      Config
}

// Option customises a Service.
type Option func(*Service)

// WithMetrics records operation counters into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRegistry replaces the default format registry.
func WithRegistry(r *format.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// NewService creates a Service backed by store.
func NewService(store Store, cfg Config, opts ...Option) *Service {
	cfg = cfg.withDefaults()
	s := &Service{
		store:    store,
		registry: format.DefaultRegistry(),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.importer = NewImporter(store, s.metrics)
	s.limiter = NewUploadLimiter(cfg.MaxConcurrentUploads, cfg.MaxUploadWait)
	return s
}

// Formats lists the file formats accepted by Upload.
func (s *Service) Formats() []string {
	return s.registry.Formats()
}

// Upload imports a glossary file into scope.
//
// The file format is detected from fileName, or from the content when the
// extension is unknown. When a CSV pass applies nothing but skipped some
// records, the same bytes are parsed once more as plain source,target
// columns and imported again. The result reports the last pass.
func (s *Service) Upload(ctx context.Context, actor Actor, scope Scope, fileName string, data []byte, policy Policy) (*UploadResult, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	if actor.ID == "" {
		return nil, ErrNoActor
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(data), s.cfg.MaxFileSize)
	}
	if policy == "" {
		policy = s.cfg.DefaultPolicy
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	start := time.Now()
	logger := logging.WithFields(ctx, "scope", scope.String(), "file", fileName)

	store, err := s.registry.Load(fileName, data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", fileName, err)
	}

	result := &UploadResult{
		Scope:    scope,
		FileName: fileName,
		Format:   store.Format,
		Policy:   policy,
	}

	stats, err := s.importer.Import(ctx, actor, scope, store.Units, policy)
	result.Stats = stats
	if err != nil {
		return result.finish(start), fmt.Errorf("import %s: %w", fileName, err)
	}

	if store.Format == format.CSV && stats.Applied == 0 && stats.Skipped > 0 {
		logger.Info("nothing applied from csv, retrying as source,target", "skipped", stats.Skipped)

		fallback, err := format.NewCSVLoaderWithColumns(format.SourceTargetColumns...).Load(data)
		if err != nil {
			return result.finish(start), fmt.Errorf("reload %s: %w", fileName, err)
		}
		result.Retried = true
		stats, err = s.importer.Import(ctx, actor, scope, fallback.Units, policy)
		result.Stats = stats
		if err != nil {
			return result.finish(start), fmt.Errorf("import %s: %w", fileName, err)
		}
	}

	s.metrics.upload(result.Format, result.Retried)
	result.finish(start)
	logger.Info("upload finished",
		"format", result.Format,
		"applied", result.Applied,
		"skipped", result.Skipped,
		"retried", result.Retried,
		"duration", result.Duration,
	)
	return result, nil
}

func (r *UploadResult) finish(start time.Time) *UploadResult {
	r.Applied = r.Stats.Applied
	r.Skipped = r.Stats.Skipped
	r.Duration = time.Since(start)
	return r
}

// Create adds a single entry and records it as a new entry.
func (s *Service) Create(ctx context.Context, actor Actor, scope Scope, source, target string) (Entry, error) {
	if err := validateScope(scope); err != nil {
		return Entry{}, err
	}
	if actor.ID == "" {
		return Entry{}, ErrNoActor
	}
	source, target = strings.TrimSpace(source), strings.TrimSpace(target)
	if err := validateTerm(source, target); err != nil {
		return Entry{}, err
	}

	e, err := s.store.CreateAudited(ctx, actor, scope, source, target, ActionNew)
	if err != nil {
		return Entry{}, fmt.Errorf("create entry in %s: %w", scope, err)
	}
	s.metrics.create()
	logging.FromContext(ctx).Info("dictionary entry created", "scope", scope.String(), "id", e.ID)
	return e, nil
}

// Edit replaces the source and target of entry id. Every edit is audited.
func (s *Service) Edit(ctx context.Context, actor Actor, scope Scope, id int64, source, target string) (Entry, error) {
	if err := validateScope(scope); err != nil {
		return Entry{}, err
	}
	if actor.ID == "" {
		return Entry{}, ErrNoActor
	}
	source, target = strings.TrimSpace(source), strings.TrimSpace(target)
	if err := validateTerm(source, target); err != nil {
		return Entry{}, err
	}

	e, err := s.store.Get(ctx, scope, id)
	if err != nil {
		return Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	if err := s.store.EditAudited(ctx, actor, &e, source, target); err != nil {
		return Entry{}, fmt.Errorf("edit entry %d: %w", id, err)
	}
	s.metrics.edit()
	logging.FromContext(ctx).Info("dictionary entry edited", "scope", scope.String(), "id", e.ID)
	return e, nil
}

// List returns the entries of scope ordered by source.
func (s *Service) List(ctx context.Context, scope Scope, filter ListFilter) ([]Entry, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	entries, err := s.store.List(ctx, scope, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", scope, err)
	}
	return entries, nil
}

// Get returns entry id of scope.
func (s *Service) Get(ctx context.Context, scope Scope, id int64) (Entry, error) {
	if err := validateScope(scope); err != nil {
		return Entry{}, err
	}
	return s.store.Get(ctx, scope, id)
}

// Changes returns audit records matching filter, newest first.
func (s *Service) Changes(ctx context.Context, filter ChangeFilter) ([]Change, error) {
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", filter.Action)
	}
	changes, err := s.store.Changes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	return changes, nil
}

// UploadLimiterStatus reports upload slot usage.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight uploads finish or ctx is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func validateScope(scope Scope) error {
	if strings.TrimSpace(scope.Project) == "" || strings.TrimSpace(scope.Language) == "" {
		return ErrInvalidScope
	}
	return nil
}

func validateTerm(source, target string) error {
	if source == "" {
		return ErrEmptySource
	}
	if utf8.RuneCountInString(source) > MaxTermLength || utf8.RuneCountInString(target) > MaxTermLength {
		return ErrTooLong
	}
	return nil
}
