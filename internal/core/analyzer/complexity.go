package analyzer

// Complexity buckets how much work migrating a file is
type Complexity string

// Complexity buckets by occurrence count: 0, 1-3, 4-8, more than 8
const (
	ComplexityNone     Complexity = "none"
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ScoreComplexity buckets a per-file occurrence count
func ScoreComplexity(n int) Complexity {
	switch {
	case n <= 0:
		return ComplexityNone
	case n <= 3:
		return ComplexitySimple
	case n <= 8:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}
