package core

// importer.go applies a parsed record stream to a glossary.
//
// Each record goes through two pure steps before anything is written:
//
//  1. screen: untranslated records are skipped (counted), oversized ones
//     are discarded (not counted), everything else proceeds to a lookup
//  2. resolve: given the lookup result and the policy, pick one of
//     apply / unchanged / add / conflict
//
// The loop then performs the chosen mutation. Every applied record is
// committed on its own; a store error stops the pass with the counts
// reached so far.

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/JonMunkholm/glossary/internal/format"
	"github.com/JonMunkholm/glossary/internal/logging"
)

type screenResult int

const (
	screenProceed screenResult = iota
	screenSkip
	screenDiscard
)

// screen classifies a record before the store is consulted.
func screen(u format.Unit) screenResult {
	if !u.IsTranslatable() || !u.IsTranslated() {
		return screenSkip
	}
	if utf8.RuneCountInString(u.Source()) > MaxTermLength || utf8.RuneCountInString(u.Target()) > MaxTermLength {
		return screenDiscard
	}
	return screenProceed
}

type resolution int

const (
	// resolveApply writes the incoming target into the looked-up entry.
	resolveApply resolution = iota
	// resolveUnchanged means the entry already carries the target.
	resolveUnchanged
	// resolveAdd creates a second entry with the same source.
	resolveAdd
	// resolveConflict leaves the existing entry alone.
	resolveConflict
)

// resolve decides what to do with a record once its entry was looked up.
func resolve(existing Entry, created bool, target string, policy Policy) resolution {
	if created {
		return resolveApply
	}
	switch {
	case existing.Target == target:
		return resolveUnchanged
	case policy == PolicyAdd:
		return resolveAdd
	case policy != PolicyOverwrite:
		return resolveConflict
	default:
		return resolveApply
	}
}

// Importer runs import passes against a Store.
type Importer struct {
	store   Store
	metrics *Metrics
}

// NewImporter returns an importer writing to store. metrics may be nil.
func NewImporter(store Store, metrics *Metrics) *Importer {
	return &Importer{store: store, metrics: metrics}
}

// Import applies units to scope under policy on behalf of actor.
//
// Entries created by the lookup of a new source are recorded with
// ActionUpload, as are the duplicates created by PolicyAdd. Overwrites of
// existing entries are not audited.
func (im *Importer) Import(ctx context.Context, actor Actor, scope Scope, units []format.Unit, policy Policy) (ImportStats, error) {
	var stats ImportStats
	logger := logging.WithFields(ctx, "scope", scope.String(), "policy", string(policy))

	for i, u := range units {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		switch screen(u) {
		case screenSkip:
			stats.Skipped++
			im.metrics.record(outcomeSkipped)
			continue
		case screenDiscard:
			stats.Discarded++
			im.metrics.record(outcomeDiscarded)
			logger.Debug("discarding oversized record", "index", i, "source_len", utf8.RuneCountInString(u.Source()))
			continue
		}

		entry, created, err := im.store.FindOrCreate(ctx, scope, u.Source())
		if err != nil {
			return stats, fmt.Errorf("lookup %q: %w", u.Source(), err)
		}

		switch resolve(entry, created, u.Target(), policy) {
		case resolveUnchanged:
			stats.Unchanged++
			im.metrics.record(outcomeUnchanged)
			continue

		case resolveConflict:
			stats.Conflicts++
			im.metrics.record(outcomeConflict)
			continue

		case resolveAdd:
			if _, err := im.store.CreateAudited(ctx, actor, scope, u.Source(), u.Target(), ActionUpload); err != nil {
				return stats, fmt.Errorf("add %q: %w", u.Source(), err)
			}

		case resolveApply:
			entry.Target = u.Target()
			if err := im.store.Save(ctx, &entry); err != nil {
				return stats, fmt.Errorf("save %q: %w", u.Source(), err)
			}
			if created {
				if err := im.store.Audit(ctx, NewChange(ctx, actor, ActionUpload, entry)); err != nil {
					return stats, fmt.Errorf("audit %q: %w", u.Source(), err)
				}
			}
		}

		stats.Applied++
		im.metrics.record(outcomeApplied)
	}

	logger.Info("import pass finished",
		slog.Int("records", len(units)),
		slog.Int("applied", stats.Applied),
		slog.Int("skipped", stats.Skipped),
		slog.Int("discarded", stats.Discarded),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("conflicts", stats.Conflicts),
	)
	return stats, nil
}
