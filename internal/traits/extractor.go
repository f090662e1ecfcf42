package traits

import (
	"math"
	"time"

	"taaruf/pkg/domain"
)

// neutralScore is used for any dimension whose source category is absent.
const neutralScore = 50

// categoryFor maps each trait dimension to the single test category that
// sources it. The mapping is fixed; changing it requires an engine version
// bump because stored vectors become incomparable.
var categoryFor = map[Dimension]TestCategory{
	Dominance:          CategoryDISC,
	Stability:          CategoryBigFive,
	Empathy:            CategoryEQ,
	Logic:              CategoryIQ,
	Religiosity:        CategoryPreMarriage,
	ConflictStyle:      CategoryConflictStyle,
	AttachmentSecurity: CategoryAttachment,
	Ambition:           CategoryCareer,
}

// Extract maps raw per-category test scores into a trait vector. Pure and
// deterministic: unordered input, at most one score per category, missing
// categories default to neutral, malformed numeric input is clamped.
func Extract(tests []TestResult) Vector {
	byCategory := make(map[TestCategory]float64, len(tests))
	for _, t := range tests {
		byCategory[t.Category] = t.Score
	}

	v := make(Vector, len(Dimensions))
	for _, d := range Dimensions {
		score, ok := byCategory[categoryFor[d]]
		if !ok {
			v[d] = neutralScore
			continue
		}
		v[d] = Clamp(score)
	}
	return v
}

// ExtractStamped extracts and freezes a vector under the given engine version.
func ExtractStamped(userID domain.UserID, tests []TestResult, version int, now time.Time) Stamped {
	return Stamped{
		UserID:      userID,
		Vector:      Extract(tests),
		SourceTests: len(tests),
		Version:     version,
		ComputedAt:  now,
	}
}

// Clamp forces a raw score into [0,100]. NaN collapses to the neutral default
// rather than poisoning downstream arithmetic.
func Clamp(score float64) float64 {
	if math.IsNaN(score) {
		return neutralScore
	}
	return math.Min(100, math.Max(0, score))
}
