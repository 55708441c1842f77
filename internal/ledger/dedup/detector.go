// Package dedup scores incoming transactions against the existing ledger to
// catch double-imports from overlapping bank feeds or re-uploaded statements.
package dedup

import (
	"context"
	"math"
	"time"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// Policy constants. The window, weights and threshold are tunable defaults
// carried over from operational experience, not derived values.
const (
	DefaultWindowDays         = 2
	DefaultAmountTolerance    = 0.01
	DefaultAmountWeight       = 0.7
	DefaultDateWeight         = 0.3
	DefaultDuplicateThreshold = 0.9
)

// Config controls the detector's matching policy.
type Config struct {
	// WindowDays bounds the date search to candidate date ± WindowDays.
	WindowDays int
	// AmountTolerance bounds the amount search to ± this fraction.
	AmountTolerance float64
	// AmountWeight and DateWeight blend the two similarity scores.
	AmountWeight float64
	DateWeight   float64
	// DuplicateThreshold is the confidence above which a match counts as a
	// duplicate rather than a possible match.
	DuplicateThreshold float64
}

// DefaultConfig returns the stock policy.
func DefaultConfig() Config {
	return Config{
		WindowDays:         DefaultWindowDays,
		AmountTolerance:    DefaultAmountTolerance,
		AmountWeight:       DefaultAmountWeight,
		DateWeight:         DefaultDateWeight,
		DuplicateThreshold: DefaultDuplicateThreshold,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WindowDays <= 0 {
		c.WindowDays = d.WindowDays
	}
	if c.AmountTolerance <= 0 {
		c.AmountTolerance = d.AmountTolerance
	}
	if c.AmountWeight <= 0 {
		c.AmountWeight = d.AmountWeight
	}
	if c.DateWeight <= 0 {
		c.DateWeight = d.DateWeight
	}
	if c.DuplicateThreshold <= 0 {
		c.DuplicateThreshold = d.DuplicateThreshold
	}
	return c
}

// Verdict classifies the best match.
type Verdict string

const (
	// VerdictNone means nothing in the window resembles the candidate.
	VerdictNone Verdict = "NONE"
	// VerdictPossible means a resembling transaction exists; the row should
	// go to manual review, neither silently imported nor silently dropped.
	VerdictPossible Verdict = "POSSIBLE_MATCH"
	// VerdictDuplicate means confidence exceeded the threshold.
	VerdictDuplicate Verdict = "DUPLICATE"
)

// Match is one scored candidate from the ledger.
type Match struct {
	Transaction ledger.Transaction
	AmountMatch float64
	DateMatch   float64
	Confidence  float64
}

// Result reports the highest-confidence match, if any.
type Result struct {
	Verdict Verdict
	Best    *Match
}

// TransactionSource reads existing ledger transactions inside a window.
type TransactionSource interface {
	Window(ctx context.Context, q ledger.WindowQuery) ([]ledger.Transaction, error)
}

// Detector scores candidates against the ledger. It performs a single read
// query and no writes.
type Detector struct {
	cfg    Config
	source TransactionSource
}

// NewDetector builds a detector. Zero config fields fall back to defaults.
func NewDetector(source TransactionSource, cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults(), source: source}
}

// Check scores the candidate against existing transactions on the same bank
// account. confidence = AmountWeight×amountMatch + DateWeight×dateMatch.
func (d *Detector) Check(ctx context.Context, candidate ledger.RawTransaction) (Result, error) {
	window := time.Duration(d.cfg.WindowDays) * 24 * time.Hour
	existing, err := d.source.Window(ctx, ledger.WindowQuery{
		BankAccountID: candidate.BankAccountID,
		From:          candidate.Date.Add(-window),
		To:            candidate.Date.Add(window),
		MinAmount:     candidate.Amount * (1 - d.cfg.AmountTolerance),
		MaxAmount:     candidate.Amount * (1 + d.cfg.AmountTolerance),
		Type:          candidate.Type,
	})
	if err != nil {
		return Result{}, err
	}

	var best *Match
	for _, tx := range existing {
		m := d.score(candidate, tx)
		if best == nil || m.Confidence > best.Confidence {
			best = &m
		}
	}
	if best == nil {
		return Result{Verdict: VerdictNone}, nil
	}
	verdict := VerdictPossible
	if best.Confidence > d.cfg.DuplicateThreshold {
		verdict = VerdictDuplicate
	}
	return Result{Verdict: verdict, Best: best}, nil
}

func (d *Detector) score(candidate ledger.RawTransaction, tx ledger.Transaction) Match {
	amountMatch := 0.0
	if candidate.Amount > 0 {
		amountMatch = clamp01(1 - math.Abs(tx.Amount-candidate.Amount)/candidate.Amount)
	}
	deltaDays := math.Abs(tx.Date.Sub(candidate.Date).Hours() / 24)
	dateMatch := clamp01(1 - deltaDays/float64(d.cfg.WindowDays))
	return Match{
		Transaction: tx,
		AmountMatch: amountMatch,
		DateMatch:   dateMatch,
		Confidence:  d.cfg.AmountWeight*amountMatch + d.cfg.DateWeight*dateMatch,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
