package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/orgkb/graphchat/internal/directory"
	"github.com/orgkb/graphchat/internal/vectorindex"
)

const helpMessage = `Tôi có thể giúp bạn tra cứu thông tin nội bộ. Ví dụ:
- "Danh sách nhân viên" / "Danh sách phòng ban"
- "Nhân viên tên Nguyễn Văn A"
- "Ai biết Python?"
- "So sánh phòng Kỹ thuật và phòng Kinh doanh"`

const noResultsMessage = "Không tìm thấy kết quả phù hợp. Bạn có thể thử từ khóa khác."

const complexSystemPrompt = `Bạn là trợ lý phân tích dữ liệu nhân sự của công ty. Dựa trên SỐ LIỆU TỔNG QUAN và hội thoại trước đó (nếu có), hãy trả lời câu hỏi một cách ngắn gọn, có cấu trúc, bằng tiếng Việt. Nếu không đủ dữ liệu để kết luận, hãy nói rõ.`

// capped truncates items at listCap and appends the overflow suffix.
func capped(items []string) []string {
	if len(items) <= listCap {
		return items
	}
	rest := len(items) - listCap
	out := make([]string, listCap, listCap+1)
	copy(out, items[:listCap])
	return append(out, fmt.Sprintf("… và %d khác", rest))
}

func formatEmployeeList(employees []directory.Employee) string {
	if len(employees) == 0 {
		return noResultsMessage
	}
	lines := make([]string, 0, len(employees))
	for _, e := range employees {
		line := e.Name
		if e.Position != "" {
			line += " - " + e.Position
		}
		if e.Department != "" {
			line += " (" + e.Department + ")"
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf("Tìm thấy %d nhân viên:\n- %s",
		len(employees), strings.Join(capped(lines), "\n- "))
}

func formatDepartmentList(departments []directory.Department) string {
	if len(departments) == 0 {
		return noResultsMessage
	}
	lines := make([]string, 0, len(departments))
	for _, d := range departments {
		line := d.Name
		if d.Headcount > 0 {
			line += fmt.Sprintf(" (%d nhân viên)", d.Headcount)
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf("Công ty có %d phòng ban:\n- %s",
		len(departments), strings.Join(capped(lines), "\n- "))
}

func formatSkillList(skills []directory.Skill) string {
	if len(skills) == 0 {
		return noResultsMessage
	}
	lines := make([]string, 0, len(skills))
	for _, s := range skills {
		line := s.Name
		if s.Category != "" {
			line += " (" + s.Category + ")"
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf("Có %d kỹ năng được ghi nhận:\n- %s",
		len(skills), strings.Join(capped(lines), "\n- "))
}

func formatProjectList(projects []directory.Project) string {
	if len(projects) == 0 {
		return noResultsMessage
	}
	lines := make([]string, 0, len(projects))
	for _, p := range projects {
		line := p.Name
		if p.Status != "" {
			line += " [" + p.Status + "]"
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf("Có %d dự án:\n- %s",
		len(projects), strings.Join(capped(lines), "\n- "))
}

func formatEmployeeProfile(e directory.Employee) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Thông tin nhân viên %s:\n", e.Name)
	if e.Position != "" {
		fmt.Fprintf(&sb, "- Chức vụ: %s\n", e.Position)
	}
	if e.Department != "" {
		fmt.Fprintf(&sb, "- Phòng ban: %s\n", e.Department)
	}
	if e.Email != "" {
		fmt.Fprintf(&sb, "- Email: %s\n", e.Email)
	}
	if e.Experience > 0 {
		fmt.Fprintf(&sb, "- Kinh nghiệm: %d năm\n", e.Experience)
	}
	if len(e.Skills) > 0 {
		fmt.Fprintf(&sb, "- Kỹ năng: %s\n", strings.Join(e.Skills, ", "))
	}
	if len(e.Projects) > 0 {
		fmt.Fprintf(&sb, "- Dự án: %s\n", strings.Join(e.Projects, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatEmployeeBrief renders the search record when the full profile is
// unavailable.
func formatEmployeeBrief(e directory.Employee) string {
	line := "Tìm thấy nhân viên " + e.Name
	if e.Position != "" {
		line += ", " + e.Position
	}
	if e.Department != "" {
		line += ", phòng " + e.Department
	}
	return line + "."
}

func formatDisambiguation(name string, matches []directory.Employee) string {
	lines := make([]string, 0, len(matches))
	for _, e := range matches {
		line := e.Name
		if e.Department != "" {
			line += " (" + e.Department + ")"
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf("Có %d nhân viên khớp với \"%s\". Bạn muốn hỏi về ai?\n- %s",
		len(matches), name, strings.Join(capped(lines), "\n- "))
}

func formatVectorResults(results []vectorindex.Result) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		line := r.Content
		if name := r.Metadata["name"]; name != "" {
			line = name + ": " + line
		}
		lines = append(lines, fmt.Sprintf("%s (độ phù hợp %.0f%%)", line, r.Score*100))
	}
	return "Thông tin liên quan nhất:\n- " + strings.Join(capped(lines), "\n- ")
}

func formatNameList(names []string) string {
	return fmt.Sprintf("Tìm thấy %d kết quả:\n- %s",
		len(names), strings.Join(capped(names), "\n- "))
}

func formatStats(s directory.Stats) string {
	return fmt.Sprintf(`SỐ LIỆU TỔNG QUAN:
- Nhân viên: %d
- Phòng ban: %d
- Kỹ năng: %d
- Dự án: %d`, s.Employees, s.Departments, s.Skills, s.Projects)
}

// filterByExperience keeps employees with at least the requested years.
// minYears arrives as digits extracted by the classifier; a non-numeric
// value disables the filter.
func filterByExperience(employees []directory.Employee, minYears string) []directory.Employee {
	min, err := strconv.Atoi(minYears)
	if err != nil {
		return employees
	}
	out := make([]directory.Employee, 0, len(employees))
	for _, e := range employees {
		if e.Experience >= min {
			out = append(out, e)
		}
	}
	return out
}
