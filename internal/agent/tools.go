package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/orgkb/graphchat/internal/directory"
	"github.com/orgkb/graphchat/internal/vectorindex"
)

// Directory is the graph-backed retrieval surface tools run against.
type Directory interface {
	SearchEmployeesByName(ctx context.Context, name string) ([]directory.Employee, error)
	EmployeeProfile(ctx context.Context, name string) (directory.Employee, error)
	EmployeesByDepartment(ctx context.Context, department string) ([]directory.Employee, error)
	EmployeesBySkill(ctx context.Context, skill string) ([]directory.Employee, error)
	EmployeesByProject(ctx context.Context, project string) ([]directory.Employee, error)
	ListDepartments(ctx context.Context) ([]directory.Department, error)
	ListSkills(ctx context.Context) ([]directory.Skill, error)
	ListProjects(ctx context.Context) ([]directory.Project, error)
	Stats(ctx context.Context) (directory.Stats, error)
}

// Searcher is vector search for the semantic_search tool.
type Searcher interface {
	Search(ctx context.Context, collection, text string, topK int) ([]vectorindex.Result, error)
}

// Tool is a named capability the executor can invoke. Input is free text
// chosen by the planner; output is text fed back as the observation.
type Tool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, input string) (string, error)
}

// Registry holds the tool set by name.
type Registry struct {
	tools  map[string]Tool
	logger *slog.Logger
}

// NewRegistry builds the standard tool set over the directory adapters and
// the vector index. collection names the vector collection semantic_search
// runs against (empty uses the ingestion default).
func NewRegistry(dir Directory, index Searcher, collection string, topK int, logger *slog.Logger) *Registry {
	if collection == "" {
		collection = vectorindex.DefaultCollection
	}
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{tools: make(map[string]Tool), logger: logger}

	r.register(Tool{
		Name:        "search_employees",
		Description: "Tìm nhân viên theo tên (khớp một phần). Input: tên cần tìm.",
		Run: func(ctx context.Context, input string) (string, error) {
			employees, err := dir.SearchEmployeesByName(ctx, input)
			if err != nil {
				return "", err
			}
			return renderEmployees(employees), nil
		},
	})
	r.register(Tool{
		Name:        "employee_profile",
		Description: "Hồ sơ đầy đủ của một nhân viên. Input: tên chính xác.",
		Run: func(ctx context.Context, input string) (string, error) {
			e, err := dir.EmployeeProfile(ctx, input)
			if err != nil {
				return "", err
			}
			return renderProfile(e), nil
		},
	})
	r.register(Tool{
		Name:        "employees_by_skill",
		Description: "Nhân viên có một kỹ năng. Input: tên kỹ năng.",
		Run: func(ctx context.Context, input string) (string, error) {
			employees, err := dir.EmployeesBySkill(ctx, input)
			if err != nil {
				return "", err
			}
			return renderEmployees(employees), nil
		},
	})
	r.register(Tool{
		Name:        "employees_by_department",
		Description: "Nhân viên thuộc một phòng ban. Input: tên phòng ban.",
		Run: func(ctx context.Context, input string) (string, error) {
			employees, err := dir.EmployeesByDepartment(ctx, input)
			if err != nil {
				return "", err
			}
			return renderEmployees(employees), nil
		},
	})
	r.register(Tool{
		Name:        "employees_by_project",
		Description: "Nhân viên tham gia một dự án. Input: tên dự án.",
		Run: func(ctx context.Context, input string) (string, error) {
			employees, err := dir.EmployeesByProject(ctx, input)
			if err != nil {
				return "", err
			}
			return renderEmployees(employees), nil
		},
	})
	r.register(Tool{
		Name:        "list_departments",
		Description: "Liệt kê tất cả phòng ban. Input: bỏ trống.",
		Run: func(ctx context.Context, _ string) (string, error) {
			departments, err := dir.ListDepartments(ctx)
			if err != nil {
				return "", err
			}
			names := make([]string, 0, len(departments))
			for _, d := range departments {
				names = append(names, fmt.Sprintf("%s (%d nhân viên)", d.Name, d.Headcount))
			}
			return strings.Join(names, "; "), nil
		},
	})
	r.register(Tool{
		Name:        "list_projects",
		Description: "Liệt kê tất cả dự án. Input: bỏ trống.",
		Run: func(ctx context.Context, _ string) (string, error) {
			projects, err := dir.ListProjects(ctx)
			if err != nil {
				return "", err
			}
			names := make([]string, 0, len(projects))
			for _, p := range projects {
				names = append(names, p.Name)
			}
			return strings.Join(names, "; "), nil
		},
	})
	r.register(Tool{
		Name:        "list_skills",
		Description: "Liệt kê tất cả kỹ năng. Input: bỏ trống.",
		Run: func(ctx context.Context, _ string) (string, error) {
			skills, err := dir.ListSkills(ctx)
			if err != nil {
				return "", err
			}
			names := make([]string, 0, len(skills))
			for _, s := range skills {
				names = append(names, s.Name)
			}
			return strings.Join(names, "; "), nil
		},
	})
	r.register(Tool{
		Name:        "semantic_search",
		Description: "Tìm kiếm ngữ nghĩa trong cơ sở tri thức. Input: câu truy vấn tự do.",
		Run: func(ctx context.Context, input string) (string, error) {
			results, err := index.Search(ctx, collection, input, topK)
			if err != nil {
				return "", err
			}
			if len(results) == 0 {
				return "không có kết quả", nil
			}
			lines := make([]string, 0, len(results))
			for _, res := range results {
				lines = append(lines, fmt.Sprintf("%s (%.0f%%)", res.Content, res.Score*100))
			}
			return strings.Join(lines, "\n"), nil
		},
	})
	r.register(Tool{
		Name:        "org_stats",
		Description: "Số liệu tổng quan: số nhân viên, phòng ban, kỹ năng, dự án. Input: bỏ trống.",
		Run: func(ctx context.Context, _ string) (string, error) {
			s, err := dir.Stats(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("nhân viên=%d, phòng ban=%d, kỹ năng=%d, dự án=%d",
				s.Employees, s.Departments, s.Skills, s.Projects), nil
		},
	})

	return r
}

func (r *Registry) register(t Tool) {
	r.tools[t.Name] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog renders the tool list for the planning prompt.
func (r *Registry) Catalog() string {
	var sb strings.Builder
	for _, name := range r.Names() {
		fmt.Fprintf(&sb, "- %s: %s\n", name, r.tools[name].Description)
	}
	return sb.String()
}

func renderEmployees(employees []directory.Employee) string {
	if len(employees) == 0 {
		return "không có kết quả"
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
	return strings.Join(lines, "\n")
}

func renderProfile(e directory.Employee) string {
	parts := []string{"Tên: " + e.Name}
	if e.Position != "" {
		parts = append(parts, "Chức vụ: "+e.Position)
	}
	if e.Department != "" {
		parts = append(parts, "Phòng ban: "+e.Department)
	}
	if e.Experience > 0 {
		parts = append(parts, fmt.Sprintf("Kinh nghiệm: %d năm", e.Experience))
	}
	if len(e.Skills) > 0 {
		parts = append(parts, "Kỹ năng: "+strings.Join(e.Skills, ", "))
	}
	if len(e.Projects) > 0 {
		parts = append(parts, "Dự án: "+strings.Join(e.Projects, ", "))
	}
	return strings.Join(parts, "; ")
}
