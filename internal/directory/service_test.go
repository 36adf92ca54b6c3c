package directory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/orgkb/graphchat/internal/graph"
)

// fakeQuerier matches queries by substring and returns canned records.
type fakeQuerier struct {
	mu      sync.Mutex
	answers map[string][]graph.Record
	err     error
	queries []string
	params  []map[string]any
}

func (f *fakeQuerier) Run(_ context.Context, query string, params map[string]any) ([]graph.Record, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.params = append(f.params, params)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for fragment, records := range f.answers {
		if strings.Contains(query, fragment) {
			return records, nil
		}
	}
	return nil, nil
}

func TestSearchEmployeesByName(t *testing.T) {
	q := &fakeQuerier{answers: map[string][]graph.Record{
		"CONTAINS toLower($name)": {
			{"id": "e1", "name": "Nguyễn Văn A", "email": "a@corp.vn", "position": "Dev", "department": "Kỹ thuật"},
		},
	}}
	s := New(q)

	got, err := s.SearchEmployeesByName(context.Background(), "  Nguyễn  ")
	if err != nil {
		t.Fatalf("SearchEmployeesByName: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d employees, want 1", len(got))
	}
	e := got[0]
	if e.ID != "e1" || e.Name != "Nguyễn Văn A" || e.Department != "Kỹ thuật" {
		t.Errorf("employee = %+v", e)
	}
	if q.params[0]["name"] != "Nguyễn" {
		t.Errorf("name param = %v, want trimmed", q.params[0]["name"])
	}
}

func TestEmployeeProfile(t *testing.T) {
	q := &fakeQuerier{answers: map[string][]graph.Record{
		"HAS_SKILL": {
			{
				"id": "e1", "name": "Trần Thị B", "position": "Kỹ sư dữ liệu",
				"department": "Dữ liệu", "experience": int64(5),
				"skills":   []any{"Python", "SQL"},
				"projects": []any{"Apollo"},
			},
		},
	}}
	s := New(q)

	e, err := s.EmployeeProfile(context.Background(), "Trần Thị B")
	if err != nil {
		t.Fatalf("EmployeeProfile: %v", err)
	}
	if e.Experience != 5 {
		t.Errorf("experience = %d, want 5", e.Experience)
	}
	if len(e.Skills) != 2 || e.Skills[0] != "Python" {
		t.Errorf("skills = %v", e.Skills)
	}
	if len(e.Projects) != 1 || e.Projects[0] != "Apollo" {
		t.Errorf("projects = %v", e.Projects)
	}
}

func TestEmployeeProfile_NoResults(t *testing.T) {
	s := New(&fakeQuerier{})

	if _, err := s.EmployeeProfile(context.Background(), "không tồn tại"); !errors.Is(err, ErrNoResults) {
		t.Errorf("err = %v, want ErrNoResults", err)
	}
}

func TestListDepartments(t *testing.T) {
	q := &fakeQuerier{answers: map[string][]graph.Record{
		"headcount": {
			{"id": "d1", "name": "Kỹ thuật", "description": "Phát triển sản phẩm", "headcount": int64(12)},
			{"id": "d2", "name": "Nhân sự", "headcount": int64(4)},
		},
	}}
	s := New(q)

	got, err := s.ListDepartments(context.Background())
	if err != nil {
		t.Fatalf("ListDepartments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d departments, want 2", len(got))
	}
	if got[0].Headcount != 12 || got[0].Description != "Phát triển sản phẩm" {
		t.Errorf("department = %+v", got[0])
	}
}

func TestSearchAll_LabelsNames(t *testing.T) {
	q := &fakeQuerier{answers: map[string][]graph.Record{
		"labels(n)[0]": {
			{"label": "Employee", "name": "Lê Văn C"},
			{"label": "Project", "name": "Apollo"},
		},
	}}
	s := New(q)

	got, err := s.SearchAll(context.Background(), "apollo")
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(got) != 2 || got[0] != "Lê Văn C (Employee)" || got[1] != "Apollo (Project)" {
		t.Errorf("results = %v", got)
	}
}

func TestStats_FansOutAllFourCounts(t *testing.T) {
	q := &fakeQuerier{answers: map[string][]graph.Record{
		"n:Employee":   {{"total": int64(42)}},
		"n:Department": {{"total": int64(6)}},
		"n:Skill":      {{"total": int64(30)}},
		"n:Project":    {{"total": int64(9)}},
	}}
	s := New(q)

	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := Stats{Employees: 42, Departments: 6, Skills: 30, Projects: 9}
	if st != want {
		t.Errorf("Stats = %+v, want %+v", st, want)
	}
	if len(q.queries) != 4 {
		t.Errorf("ran %d queries, want 4", len(q.queries))
	}
}

func TestStats_PropagatesQueryError(t *testing.T) {
	s := New(&fakeQuerier{err: errors.New("connection refused")})

	if _, err := s.Stats(context.Background()); err == nil {
		t.Fatal("expected error when counts fail")
	}
}

func TestQueryErrorPropagates(t *testing.T) {
	s := New(&fakeQuerier{err: errors.New("neo4j down")})

	if _, err := s.SearchEmployeesByName(context.Background(), "x"); err == nil {
		t.Error("SearchEmployeesByName should propagate query errors")
	}
	if _, err := s.ListSkills(context.Background()); err == nil {
		t.Error("ListSkills should propagate query errors")
	}
}
