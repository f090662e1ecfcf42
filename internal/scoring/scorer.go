// Package scoring computes the versioned compatibility score, conflict-risk
// estimate, and readiness index for a pair of trait vectors. Every function
// here is pure; persistence and recomputation policy live with the callers.
package scoring

import (
	"math"
	"time"

	"taaruf/internal/traits"
)

// EngineVersion tags every result this package produces. Bump it whenever a
// formula, weight, or threshold changes; consumers treat any stored result
// with a different version as stale.
const EngineVersion = 3

// Dimension weights for trait compatibility. They sum to 1.
var compatibilityWeights = map[traits.Dimension]float64{
	traits.Dominance:          0.15,
	traits.Stability:          0.20,
	traits.Empathy:            0.15,
	traits.Logic:              0.10,
	traits.Religiosity:        0.15,
	traits.ConflictStyle:      0.10,
	traits.AttachmentSecurity: 0.10,
	traits.Ambition:           0.05,
}

// Conflict-risk rule thresholds. Part of the versioned formula, deliberately
// not configuration: a deployment-tunable threshold would break score
// reproducibility per engine version.
const (
	riskHighDominance     = 75
	riskLowStability      = 40
	riskHighConflictStyle = 70
	riskLowAttachment     = 40
	riskReligiosityGap    = 50

	// maxRawRisk is the maximum achievable raw rule total, used to normalize.
	maxRawRisk = 100
)

// Result is a full pair evaluation. Never mutated in place; recomputation
// produces a new value that replaces the old.
type Result struct {
	FinalScore         float64
	Compatibility      float64
	ConflictRisk       float64
	EmotionalStability float64
	LifeAlignment      float64
	MarriageStability  float64
	Version            int
	ComputedAt         time.Time
}

// IsStale reports whether a stored result can still gate a decision. A version
// mismatch or a test update postdating the stamp forces recomputation.
func (r Result) IsStale(testsUpdatedAt time.Time) bool {
	if r.Version != EngineVersion {
		return true
	}
	return testsUpdatedAt.After(r.ComputedAt)
}

// Neutral is the degenerate result returned when either party has no source
// tests: a flat 50 everywhere instead of a falsely confident score computed
// from defaults.
func Neutral(now time.Time) Result {
	return Result{
		FinalScore:         50,
		Compatibility:      50,
		ConflictRisk:       50,
		EmotionalStability: 50,
		LifeAlignment:      50,
		MarriageStability:  50,
		Version:            EngineVersion,
		ComputedAt:         now,
	}
}

// Compute evaluates a pair of stamped vectors. Symmetric in (a,b).
func Compute(a, b traits.Stamped, now time.Time) Result {
	if a.SourceTests == 0 || b.SourceTests == 0 {
		return Neutral(now)
	}

	compatibility := TraitCompatibility(a.Vector, b.Vector)
	risk := ConflictRisk(a.Vector, b.Vector)
	emotional := EmotionalStability(a.Vector, b.Vector)
	alignment := LifeAlignment(a.Vector, b.Vector)

	final := 0.35*compatibility + 0.25*alignment + 0.20*emotional + 0.20*(100-risk)

	return Result{
		FinalScore:         math.Round(final),
		Compatibility:      compatibility,
		ConflictRisk:       risk,
		EmotionalStability: emotional,
		LifeAlignment:      alignment,
		MarriageStability:  0.5*emotional + 0.5*(100-risk),
		Version:            EngineVersion,
		ComputedAt:         now,
	}
}

// TraitCompatibility is the weighted per-dimension closeness of two vectors.
func TraitCompatibility(a, b traits.Vector) float64 {
	var total float64
	for d, w := range compatibilityWeights {
		total += (100 - math.Abs(a[d]-b[d])) * w
	}
	return total
}

// ConflictRisk accumulates rule-based risk points and normalizes to [0,100].
// Every rule is symmetric, so the estimate is too.
func ConflictRisk(a, b traits.Vector) float64 {
	var raw float64
	if a[traits.Dominance] > riskHighDominance && b[traits.Dominance] > riskHighDominance {
		raw += 25
	}
	if a[traits.Stability] < riskLowStability && b[traits.Stability] < riskLowStability {
		raw += 25
	}
	if a[traits.ConflictStyle] > riskHighConflictStyle && b[traits.ConflictStyle] > riskHighConflictStyle {
		raw += 20
	}
	if a[traits.AttachmentSecurity] < riskLowAttachment && b[traits.AttachmentSecurity] < riskLowAttachment {
		raw += 20
	}
	if math.Abs(a[traits.Religiosity]-b[traits.Religiosity]) > riskReligiosityGap {
		raw += 10
	}
	return raw / maxRawRisk * 100
}

// EmotionalStability blends the pair's averaged stability and attachment.
func EmotionalStability(a, b traits.Vector) float64 {
	avgStability := (a[traits.Stability] + b[traits.Stability]) / 2
	avgAttachment := (a[traits.AttachmentSecurity] + b[traits.AttachmentSecurity]) / 2
	return 0.6*avgStability + 0.4*avgAttachment
}

// LifeAlignment measures how close the pair sits on ambition and religiosity.
func LifeAlignment(a, b traits.Vector) float64 {
	ambitionGap := math.Abs(a[traits.Ambition] - b[traits.Ambition])
	religiosityGap := math.Abs(a[traits.Religiosity] - b[traits.Religiosity])
	return 0.5*(100-ambitionGap) + 0.5*(100-religiosityGap)
}

// Readiness is the single-party marriage-readiness index. No pairing required.
func Readiness(v traits.Vector) float64 {
	return 0.35*v[traits.Stability] +
		0.25*v[traits.AttachmentSecurity] +
		0.20*v[traits.Religiosity] +
		0.20*v[traits.Empathy]
}

// Drift measures the absolute gap between a freshly computed final score and a
// previously stored one. Observability hook on top of the scorer, not part of
// its contract.
func Drift(expected, stored Result) float64 {
	return math.Abs(expected.FinalScore - stored.FinalScore)
}
