// Package classify turns free-text need statements into canonical categories,
// memoizing model verdicts and falling back to keyword rules when the model
// is unavailable.
package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain/taxonomy"
	"github.com/BigDataForSanDiego/resourcelink/internal/metrics"
)

// Source identifies which path produced a category.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
	SourceNone     Source = "none"
)

// Resolution is the classification outcome for one need statement.
type Resolution struct {
	Category    string
	Source      Source
	Suggestions []string
}

// memoEntry memoizes one model verdict. Empty category with resolved=true is a
// remembered "no fit", distinct from a model failure which is never cached.
type memoEntry struct {
	once     sync.Once
	category string
	resolved bool
}

// Service is the classification orchestrator. The memo guarantees the model
// collaborator runs at most once per (normalized text, model) key, concurrent
// first callers included.
type Service struct {
	classifier Classifier
	logger     *zap.Logger

	mu   sync.Mutex
	memo map[string]*memoEntry
}

// New creates a classification service. classifier may be nil, in which case
// every resolution uses the keyword fallback.
func New(classifier Classifier, logger *zap.Logger) *Service {
	return &Service{
		classifier: classifier,
		logger:     logger,
		memo:       make(map[string]*memoEntry),
	}
}

func memoKey(normalized, model string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]) + "|" + model
}

// Resolve classifies text. Order: memo, model, keyword fallback. An empty
// Category with Source "none" means neither path produced a confident label;
// Suggestions is then populated for the confirmation flow.
func (s *Service) Resolve(ctx context.Context, text string) Resolution {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return s.unresolved(normalized)
	}

	if category, source, ok := s.resolveModel(ctx, normalized); ok {
		if category != "" {
			metrics.ClassifyRequestsTotal.WithLabelValues("llm", "ok").Inc()
			return Resolution{Category: category, Source: source}
		}
		// Remembered or fresh "no fit" from the model; keyword rules still get
		// a shot because the model declines figurative phrasings it should not.
	}

	if category := taxonomy.FallbackCategory(normalized); category != "" {
		metrics.ClassifyRequestsTotal.WithLabelValues("fallback", "ok").Inc()
		return Resolution{Category: category, Source: SourceFallback}
	}

	metrics.ClassifyRequestsTotal.WithLabelValues("fallback", "miss").Inc()
	return s.unresolved(normalized)
}

// resolveModel returns (category, source, ok) where ok reports that the model
// produced a verdict, possibly empty. A model failure returns ok=false and is
// not memoized.
func (s *Service) resolveModel(ctx context.Context, normalized string) (string, Source, bool) {
	if s.classifier == nil {
		return "", SourceNone, false
	}

	key := memoKey(normalized, s.classifier.Model())

	s.mu.Lock()
	entry, hit := s.memo[key]
	if !hit {
		entry = &memoEntry{}
		s.memo[key] = entry
	}
	s.mu.Unlock()

	if hit {
		metrics.ClassifyCacheTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.ClassifyCacheTotal.WithLabelValues("miss").Inc()
	}

	// Reads of entry fields below are ordered by Once even for callers that
	// found the entry already in the map.
	entry.once.Do(func() {
		category, err := s.classifier.Classify(ctx, normalized)
		if err != nil {
			metrics.ClassifyRequestsTotal.WithLabelValues("llm", "error").Inc()
			if s.logger != nil {
				s.logger.Warn("classifier unavailable, using keyword fallback", zap.Error(err))
			}
			s.mu.Lock()
			delete(s.memo, key) // let a later request retry the model
			s.mu.Unlock()
			return
		}
		entry.category = category
		entry.resolved = true
	})

	if !entry.resolved {
		return "", SourceNone, false
	}
	source := SourceModel
	if hit {
		source = SourceCache
	}
	return entry.category, source, true
}

func (s *Service) unresolved(normalized string) Resolution {
	return Resolution{
		Source:      SourceNone,
		Suggestions: taxonomy.SuggestCategories(normalized, 4),
	}
}
