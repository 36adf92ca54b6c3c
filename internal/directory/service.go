// Package directory provides thin read-only retrieval adapters over the
// organizational graph for each entity type: employees, departments, skills,
// and projects. All queries are parameterized; the package holds no state
// beyond the graph handle.
package directory

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/orgkb/graphchat/internal/graph"
)

// Service exposes the retrieval adapters. Construct with New.
type Service struct {
	graph graph.Querier
}

// New creates a Service over the given graph querier.
func New(q graph.Querier) *Service {
	return &Service{graph: q}
}

// ListEmployees returns up to limit employees ordered by name.
func (s *Service) ListEmployees(ctx context.Context, limit int) ([]Employee, error) {
	if limit <= 0 {
		limit = 100
	}
	records, err := s.graph.Run(ctx, `
		MATCH (e:Employee)
		OPTIONAL MATCH (e)-[:BELONGS_TO]->(d:Department)
		RETURN e.id AS id, e.name AS name, e.email AS email,
		       e.position AS position, d.name AS department
		ORDER BY e.name
		LIMIT $limit`,
		map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	return employeesFromRecords(records), nil
}

// SearchEmployeesByName returns employees whose name contains the given
// fragment, case-insensitive.
func (s *Service) SearchEmployeesByName(ctx context.Context, name string) ([]Employee, error) {
	records, err := s.graph.Run(ctx, `
		MATCH (e:Employee)
		WHERE toLower(e.name) CONTAINS toLower($name)
		OPTIONAL MATCH (e)-[:BELONGS_TO]->(d:Department)
		RETURN e.id AS id, e.name AS name, e.email AS email,
		       e.position AS position, d.name AS department
		ORDER BY e.name
		LIMIT 25`,
		map[string]any{"name": strings.TrimSpace(name)})
	if err != nil {
		return nil, err
	}
	return employeesFromRecords(records), nil
}

// EmployeeProfile returns the full profile of the employee with the exact
// name, including skills and projects.
func (s *Service) EmployeeProfile(ctx context.Context, name string) (Employee, error) {
	records, err := s.graph.Run(ctx, `
		MATCH (e:Employee)
		WHERE toLower(e.name) = toLower($name)
		OPTIONAL MATCH (e)-[:BELONGS_TO]->(d:Department)
		OPTIONAL MATCH (e)-[:HAS_SKILL]->(sk:Skill)
		OPTIONAL MATCH (e)-[:WORKS_ON]->(p:Project)
		RETURN e.id AS id, e.name AS name, e.email AS email,
		       e.position AS position, e.experience AS experience,
		       d.name AS department,
		       collect(DISTINCT sk.name) AS skills,
		       collect(DISTINCT p.name) AS projects`,
		map[string]any{"name": strings.TrimSpace(name)})
	if err != nil {
		return Employee{}, err
	}
	if len(records) == 0 {
		return Employee{}, ErrNoResults
	}
	r := records[0]
	e := employeeFromRecord(r)
	e.Experience = int(r.Int("experience"))
	e.Skills = r.StringList("skills")
	e.Projects = r.StringList("projects")
	return e, nil
}

// EmployeesByDepartment returns employees belonging to a department whose
// name contains the given fragment.
func (s *Service) EmployeesByDepartment(ctx context.Context, department string) ([]Employee, error) {
	records, err := s.graph.Run(ctx, `
		MATCH (e:Employee)-[:BELONGS_TO]->(d:Department)
		WHERE toLower(d.name) CONTAINS toLower($department)
		RETURN e.id AS id, e.name AS name, e.email AS email,
		       e.position AS position, d.name AS department
		ORDER BY e.name
		LIMIT 50`,
		map[string]any{"department": strings.TrimSpace(department)})
	if err != nil {
		return nil, err
	}
	return employeesFromRecords(records), nil
}

// EmployeesBySkill returns employees linked to a skill whose name contains
// the given fragment.
func (s *Service) EmployeesBySkill(ctx context.Context, skill string) ([]Employee, error) {
	records, err := s.graph.Run(ctx, `
		MATCH (e:Employee)-[:HAS_SKILL]->(sk:Skill)
		WHERE toLower(sk.name) CONTAINS toLower($skill)
		OPTIONAL MATCH (e)-[:BELONGS_TO]->(d:Department)
		RETURN e.id AS id, e.name AS name, e.email AS email,
		       e.position AS position, d.name AS department
		ORDER BY e.name
		LIMIT 50`,
		map[string]any{"skill": strings.TrimSpace(skill)})
	if err != nil {
		return nil, err
	}
	return employeesFromRecords(records), nil
}

// EmployeesByProject returns employees working on a project whose name
// contains the given fragment.
func (s *Service) EmployeesByProject(ctx context.Context, project string) ([]Employee, error) {
	records, err := s.graph.Run(ctx, `
		MATCH (e:Employee)-[:WORKS_ON]->(p:Project)
		WHERE toLower(p.name) CONTAINS toLower($project)
		OPTIONAL MATCH (e)-[:BELONGS_TO]->(d:Department)
		RETURN e.id AS id, e.name AS name, e.email AS email,
		       e.position AS position, d.name AS department
		ORDER BY e.name
		LIMIT 50`,
		map[string]any{"project": strings.TrimSpace(project)})
	if err != nil {
		return nil, err
	}
	return employeesFromRecords(records), nil
}

// EmployeesByPosition returns employees whose position contains the given
// fragment.
func (s *Service) EmployeesByPosition(ctx context.Context, position string) ([]Employee, error) {
	records, err := s.graph.Run(ctx, `
		MATCH (e:Employee)
		WHERE toLower(e.position) CONTAINS toLower($position)
		OPTIONAL MATCH (e)-[:BELONGS_TO]->(d:Department)
		RETURN e.id AS id, e.name AS name, e.email AS email,
		       e.position AS position, d.name AS department
		ORDER BY e.name
		LIMIT 50`,
		map[string]any{"position": strings.TrimSpace(position)})
	if err != nil {
		return nil, err
	}
	return employeesFromRecords(records), nil
}

// ListDepartments returns all departments with their headcounts.
func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	records, err := s.graph.Run(ctx, `
		MATCH (d:Department)
		OPTIONAL MATCH (e:Employee)-[:BELONGS_TO]->(d)
		RETURN d.id AS id, d.name AS name, d.description AS description,
		       count(e) AS headcount
		ORDER BY d.name`,
		nil)
	if err != nil {
		return nil, err
	}
	out := make([]Department, len(records))
	for i, r := range records {
		out[i] = Department{
			ID:          r.String("id"),
			Name:        r.String("name"),
			Description: r.String("description"),
			Headcount:   r.Int("headcount"),
		}
	}
	return out, nil
}

// ListSkills returns all skills.
func (s *Service) ListSkills(ctx context.Context) ([]Skill, error) {
	records, err := s.graph.Run(ctx, `
		MATCH (sk:Skill)
		RETURN sk.id AS id, sk.name AS name, sk.category AS category
		ORDER BY sk.name`,
		nil)
	if err != nil {
		return nil, err
	}
	out := make([]Skill, len(records))
	for i, r := range records {
		out[i] = Skill{
			ID:       r.String("id"),
			Name:     r.String("name"),
			Category: r.String("category"),
		}
	}
	return out, nil
}

// ListProjects returns all projects.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	records, err := s.graph.Run(ctx, `
		MATCH (p:Project)
		RETURN p.id AS id, p.name AS name, p.status AS status
		ORDER BY p.name`,
		nil)
	if err != nil {
		return nil, err
	}
	out := make([]Project, len(records))
	for i, r := range records {
		out[i] = Project{
			ID:     r.String("id"),
			Name:   r.String("name"),
			Status: r.String("status"),
		}
	}
	return out, nil
}

// SearchAll is the substring-search floor used when semantic retrieval is
// unavailable: it matches the text against employee, department, skill, and
// project names and returns a flat list of matching names with their labels.
func (s *Service) SearchAll(ctx context.Context, text string) ([]string, error) {
	records, err := s.graph.Run(ctx, `
		MATCH (n)
		WHERE (n:Employee OR n:Department OR n:Skill OR n:Project)
		  AND toLower(n.name) CONTAINS toLower($text)
		RETURN labels(n)[0] AS label, n.name AS name
		ORDER BY name
		LIMIT 20`,
		map[string]any{"text": strings.TrimSpace(text)})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.String("name") + " (" + r.String("label") + ")"
	}
	return out, nil
}

// Stats fetches aggregate counts for the four entity types concurrently.
// The counts have no data dependency on each other, so the four queries are
// issued in parallel and awaited jointly.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.count(gCtx, "Employee")
		st.Employees = n
		return err
	})
	g.Go(func() error {
		n, err := s.count(gCtx, "Department")
		st.Departments = n
		return err
	})
	g.Go(func() error {
		n, err := s.count(gCtx, "Skill")
		st.Skills = n
		return err
	})
	g.Go(func() error {
		n, err := s.count(gCtx, "Project")
		st.Projects = n
		return err
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *Service) count(ctx context.Context, label string) (int64, error) {
	// Label names are fixed at the call sites above, never user input.
	records, err := s.graph.Run(ctx, "MATCH (n:"+label+") RETURN count(n) AS total", nil)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return records[0].Int("total"), nil
}

func employeeFromRecord(r graph.Record) Employee {
	return Employee{
		ID:         r.String("id"),
		Name:       r.String("name"),
		Email:      r.String("email"),
		Position:   r.String("position"),
		Department: r.String("department"),
	}
}

func employeesFromRecords(records []graph.Record) []Employee {
	out := make([]Employee, len(records))
	for i, r := range records {
		out[i] = employeeFromRecord(r)
	}
	return out
}
