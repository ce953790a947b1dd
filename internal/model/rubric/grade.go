package rubric

import "strings"

// Grade 是 CEI 评分表中的一个等级。
type Grade string

const (
	A      Grade = "A"
	AMinus Grade = "A-"
	BPlus  Grade = "B+"
	B      Grade = "B"
	BMinus Grade = "B-"
	CPlus  Grade = "C+"
	C      Grade = "C"
	D      Grade = "D"
)

// Band groups grades for severity display.
type Band string

const (
	BandHigh Band = "high"
	BandMid  Band = "mid"
	BandLow  Band = "low"
	BandNone Band = "none"
)

// ordered from best to worst; index is the rank.
var ordered = []Grade{A, AMinus, BPlus, B, BMinus, CPlus, C, D}

// qualifying is enumerated on purpose: B+ makes the cut, B does not.
var qualifying = map[Grade]struct{}{
	A:      {},
	AMinus: {},
	BPlus:  {},
}

// All returns every rubric grade from best to worst.
func All() []Grade {
	return append([]Grade(nil), ordered...)
}

// Parse normalises a raw token such as "a-" into a rubric grade.
func Parse(raw string) (Grade, bool) {
	candidate := Grade(strings.ToUpper(strings.TrimSpace(raw)))
	for _, g := range ordered {
		if g == candidate {
			return g, true
		}
	}
	return "", false
}

// Valid reports whether g is one of the eight rubric grades.
func (g Grade) Valid() bool {
	return g.Rank() < len(ordered)
}

// Rank returns the position of g in the rubric, 0 being best. Unknown grades rank last.
func (g Grade) Rank() int {
	for i, candidate := range ordered {
		if candidate == g {
			return i
		}
	}
	return len(ordered)
}

// Better reports whether g sits strictly above other in the rubric.
func (g Grade) Better(other Grade) bool {
	return g.Rank() < other.Rank()
}

// Qualifies reports whether a submission graded g belongs in the session ledger.
func (g Grade) Qualifies() bool {
	_, ok := qualifying[g]
	return ok
}

// Band maps g to its severity band.
func (g Grade) Band() Band {
	switch g {
	case A, AMinus:
		return BandHigh
	case BPlus, B, BMinus:
		return BandMid
	case CPlus, C:
		return BandLow
	default:
		return BandNone
	}
}

func (g Grade) String() string {
	return string(g)
}
