package directory

// Employee is a person node in the organizational graph.
type Employee struct {
	ID         string
	Name       string
	Email      string
	Position   string
	Department string
	Skills     []string
	Projects   []string
	Experience int // years
}

// Department is an organizational unit.
type Department struct {
	ID          string
	Name        string
	Description string
	Headcount   int64
}

// Skill is a capability node linked to employees.
type Skill struct {
	ID       string
	Name     string
	Category string
}

// Project is a project node linked to employees and departments.
type Project struct {
	ID     string
	Name   string
	Status string
}

// Stats carries aggregate counts across the four entity types. Used to build
// grounding context for open-ended generation.
type Stats struct {
	Employees   int64
	Departments int64
	Skills      int64
	Projects    int64
}
