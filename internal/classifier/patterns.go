package classifier

import (
	"regexp"
	"strings"
)

// pattern couples a compiled regex with a score weight and the keyword
// reported in Result.Keywords when it matches.
type pattern struct {
	re      *regexp.Regexp
	weight  int
	keyword string
}

func pat(expr string, weight int, keyword string) pattern {
	return pattern{re: regexp.MustCompile(expr), weight: weight, keyword: keyword}
}

// patternSets holds the three ordered level sets, indexed by Level.
// Weights encode specificity: distinctive phrasing scores 2, generic 1.
var patternSets = [3][]pattern{
	LevelSimple: {
		pat(`danh sách|liệt kê|\blist\b`, 2, "danh sách"),
		pat(`tất cả|toàn bộ|\ball\b`, 1, "tất cả"),
		pat(`bao nhiêu|có mấy|\bđếm\b|\bcount\b|how many`, 1, "bao nhiêu"),
		pat(`cho (?:tôi|mình) xem|\bshow\b`, 1, "xem"),
		pat(`\bai là\b|who is`, 1, "ai là"),
	},
	LevelMedium: {
		pat(`kỹ năng|\bskills?\b`, 2, "kỹ năng"),
		pat(`giỏi|thành thạo|biết\b`, 2, "thành thạo"),
		pat(`(?:thuộc|ở|tại|trong|của) phòng`, 2, "thuộc phòng"),
		pat(`kinh nghiệm|experience|\d+\s*năm`, 2, "kinh nghiệm"),
		pat(`vị trí|chức vụ|position`, 1, "vị trí"),
		pat(`dự án|\bprojects?\b`, 1, "dự án"),
		pat(`tìm|\bsearch\b|\bfind\b`, 1, "tìm"),
	},
	LevelComplex: {
		pat(`so sánh|\bcompare\b`, 2, "so sánh"),
		pat(`phân tích|analy[sz]e|analysis`, 2, "phân tích"),
		pat(`đánh giá|\bevaluate\b|\bassess\b`, 2, "đánh giá"),
		pat(`tại sao|vì sao|\bwhy\b`, 2, "tại sao"),
		pat(`đề xuất|gợi ý|\brecommend\b|\bsuggest\b`, 2, "đề xuất"),
		pat(`tổng quan|\boverview\b|xu hướng|\btrend\b`, 2, "tổng quan"),
		pat(`như thế nào|\bhow\b`, 1, "như thế nào"),
	},
}

// typeMatcher maps a pattern to a query type within the simple level.
type typeMatcher struct {
	re  *regexp.Regexp
	typ Type
}

// simpleTypeOrder is the first-match-wins priority list for simple queries.
var simpleTypeOrder = []typeMatcher{
	{regexp.MustCompile(`phòng ban|phòng|department`), TypeListDepartments},
	{regexp.MustCompile(`kỹ năng|\bskills?\b`), TypeListSkills},
	{regexp.MustCompile(`dự án|\bprojects?\b`), TypeListProjects},
	{regexp.MustCompile(`nhân viên|nhân sự|employees?|\bstaff\b|người`), TypeListEmployees},
}

var comparisonRe = regexp.MustCompile(`so sánh|\bcompare\b`)

// Entity extraction regexes against common phrasing. The capture runs to the
// next connective word or punctuation; a missed match simply leaves the
// filter empty.
var (
	departmentRe = regexp.MustCompile(`(?:phòng ban|phòng|department)\s+([\p{L}\d][\p{L}\d ]*?)(?:\s+(?:có|là|nào|không|gồm|thì|và)\b|[?.,;:!]|$)`)
	skillRe      = regexp.MustCompile(`(?:kỹ năng|skill|giỏi|thành thạo|biết dùng|biết)\s+([\p{L}\d+#.][\p{L}\d+#. ]*?)(?:\s+(?:có|là|nào|không|và|hay|hoặc|thì)\b|[?.,;:!]|$)`)
	projectRe    = regexp.MustCompile(`(?:dự án|project)\s+([\p{L}\d][\p{L}\d ]*?)(?:\s+(?:có|là|nào|không|gồm|thì|và)\b|[?.,;:!]|$)`)
	positionRe   = regexp.MustCompile(`(?:vị trí|chức vụ|position)\s+([\p{L}\d][\p{L}\d ]*?)(?:\s+(?:có|là|nào|không|thì|và)\b|[?.,;:!]|$)`)
	experienceRe = regexp.MustCompile(`(\d+)\s*(?:năm|years?)`)
)

// filterStopwords are capture artifacts that mean the phrase carried no
// entity ("phòng ban" matching "phòng" + "ban").
var filterStopwords = map[string]bool{
	"ban": true, "nào": true, "gì": true, "đó": true, "này": true,
}

func extractFilters(text string) Filters {
	var f Filters
	f.Department = extractEntity(departmentRe, text)
	f.Skill = extractEntity(skillRe, text)
	f.Project = extractEntity(projectRe, text)
	f.Position = extractEntity(positionRe, text)
	if m := experienceRe.FindStringSubmatch(text); m != nil {
		f.Experience = m[1]
	}
	return f
}

func extractEntity(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	value := strings.TrimSpace(m[1])
	if value == "" || filterStopwords[value] {
		return ""
	}
	return value
}
