// Package classifier assigns a complexity level and a query type to a raw
// natural-language message using ordered regex/keyword pattern sets. It is
// pure, synchronous, and deterministic: no I/O, no randomness, and it never
// fails — an unmatched message resolves to LevelSimple/TypeUnknown with low
// confidence so the orchestrator always has a branch to take.
package classifier

import "strings"

// Level is the coarse cost/complexity tier governing which retrieval
// strategy the orchestrator uses.
type Level int

const (
	LevelSimple Level = iota
	LevelMedium
	LevelComplex
)

func (l Level) String() string {
	switch l {
	case LevelSimple:
		return "simple"
	case LevelMedium:
		return "medium"
	case LevelComplex:
		return "complex"
	default:
		return "simple"
	}
}

// Type identifies the handler branch for a classified query. The set is
// closed; switches over it must carry a default arm mapping to TypeUnknown.
type Type string

const (
	TypeListEmployees      Type = "list-employees"
	TypeListDepartments    Type = "list-departments"
	TypeListSkills         Type = "list-skills"
	TypeListProjects       Type = "list-projects"
	TypeEmployeeNameSearch Type = "employee-name-search"
	TypeFilterSearch       Type = "filter-search"
	TypeSemanticSearch     Type = "semantic-search"
	TypeComparison         Type = "comparison"
	TypeAnalysis           Type = "analysis"
	TypeUnknown            Type = "unknown"
	TypeError              Type = "error"
)

// Filters carries structured entities extracted from free text to narrow a
// retrieval query. Empty fields mean "not mentioned".
type Filters struct {
	Department string
	Skill      string
	Project    string
	Position   string
	Experience string // minimum years, as digits
}

// Empty reports whether no filter entity was extracted.
func (f Filters) Empty() bool {
	return f.Department == "" && f.Skill == "" && f.Project == "" &&
		f.Position == "" && f.Experience == ""
}

// Result is the per-message classification outcome. Produced per message,
// consumed immediately, never persisted.
type Result struct {
	Level      Level
	Type       Type
	Value      string // primary extracted entity, if any
	Keywords   []string
	Confidence float64
	Filters    Filters
}

// Classify scores the message against the three level pattern sets and maps
// the winner to a specific query type. Ties between levels prefer the lower
// level: cheaper queries must not be escalated without stronger evidence.
func Classify(message string) Result {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return Result{Level: LevelSimple, Type: TypeUnknown, Confidence: 0.1}
	}

	scores := [3]int{}
	var keywords []string
	for level, set := range patternSets {
		for _, p := range set {
			if p.re.MatchString(text) {
				scores[level] += p.weight
				keywords = append(keywords, p.keyword)
			}
		}
	}

	// Highest score wins; on ties the lower level wins because the loop only
	// escalates on a strictly greater score.
	winner := LevelSimple
	best := scores[LevelSimple]
	for _, level := range []Level{LevelMedium, LevelComplex} {
		if scores[level] > best {
			winner = level
			best = scores[level]
		}
	}

	filters := extractFilters(text)
	result := Result{
		Level:      winner,
		Keywords:   keywords,
		Filters:    filters,
		Confidence: confidence(best),
	}
	result.Type, result.Value = resolveType(winner, text, filters)

	if result.Type == TypeUnknown && best == 0 {
		result.Level = LevelSimple
		result.Confidence = 0.1
	}
	return result
}

// resolveType maps the winning level to a concrete query type using
// first-match-wins ordering over the level's priority list.
func resolveType(level Level, text string, filters Filters) (Type, string) {
	switch level {
	case LevelSimple:
		for _, m := range simpleTypeOrder {
			if m.re.MatchString(text) {
				return m.typ, ""
			}
		}
		return TypeUnknown, ""
	case LevelMedium:
		if !filters.Empty() {
			return TypeFilterSearch, firstFilterValue(filters)
		}
		return TypeSemanticSearch, ""
	case LevelComplex:
		if comparisonRe.MatchString(text) {
			return TypeComparison, ""
		}
		return TypeAnalysis, ""
	default:
		return TypeUnknown, ""
	}
}

func firstFilterValue(f Filters) string {
	for _, v := range []string{f.Department, f.Skill, f.Project, f.Position} {
		if v != "" {
			return v
		}
	}
	return ""
}

// confidence derives a heuristic score in [0,1] from match strength. It is
// not a calibrated probability.
func confidence(score int) float64 {
	if score == 0 {
		return 0.1
	}
	c := 0.4 + 0.15*float64(score)
	if c > 0.95 {
		c = 0.95
	}
	return c
}
