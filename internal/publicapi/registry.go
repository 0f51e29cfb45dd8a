package publicapi

import (
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Vovarama1992/assistantjs-go/pkg/assistantjs"
)

type Assistant struct {
	Name         string `yaml:"name"`
	Instructions string `yaml:"instructions"`
	Inactive     bool   `yaml:"inactive"`
}

type Project struct {
	ID                     string   `yaml:"project_id"`
	Name                   string   `yaml:"name"`
	Description            string   `yaml:"description"`
	AllowedDomains         []string `yaml:"allowed_domains"`
	AllowedAssistants      []string `yaml:"allowed_assistants"`
	SessionDurationMinutes int      `yaml:"session_duration_minutes"`
	RequestsPerMinute      int      `yaml:"requests_per_minute"`
	RequestsPerDay         int      `yaml:"requests_per_day"`
	RequestsPerSession     int      `yaml:"requests_per_session"`
	Inactive               bool     `yaml:"inactive"`
}

// Registry is the static set of assistants and projects the server knows.
type Registry struct {
	Assistants []Assistant `yaml:"assistants"`
	Projects   []Project   `yaml:"projects"`
}

// DefaultRegistry has one open demo project with a "support" assistant.
func DefaultRegistry() *Registry {
	r := &Registry{
		Assistants: []Assistant{{
			Name:         "support",
			Instructions: "You are a helpful support assistant. Answer briefly.",
		}},
		Projects: []Project{{
			ID:                "proj_demo_public",
			Name:              "Demo",
			Description:       "Local development project",
			AllowedAssistants: []string{"support"},
		}},
	}
	r.applyDefaults()
	return r
}

func LoadRegistry(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read registry")
	}
	var r Registry
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrapf(err, "parse registry %s", path)
	}
	for _, p := range r.Projects {
		if !assistantjs.ValidProjectID(p.ID) {
			return nil, errors.Errorf("registry %s: invalid project id %q", path, p.ID)
		}
	}
	r.applyDefaults()
	return &r, nil
}

// Defaults match the backend's project defaults.
func (r *Registry) applyDefaults() {
	for i := range r.Projects {
		p := &r.Projects[i]
		if p.SessionDurationMinutes <= 0 {
			p.SessionDurationMinutes = 60
		}
		if p.RequestsPerMinute <= 0 {
			p.RequestsPerMinute = 10
		}
		if p.RequestsPerDay <= 0 {
			p.RequestsPerDay = 100
		}
		if p.RequestsPerSession <= 0 {
			p.RequestsPerSession = 50
		}
	}
}

func (r *Registry) project(id string) (*Project, bool) {
	for i := range r.Projects {
		if r.Projects[i].ID == id && !r.Projects[i].Inactive {
			return &r.Projects[i], true
		}
	}
	return nil, false
}

func (r *Registry) assistant(name string) (*Assistant, bool) {
	for i := range r.Assistants {
		if r.Assistants[i].Name == name && !r.Assistants[i].Inactive {
			return &r.Assistants[i], true
		}
	}
	return nil, false
}

func (p *Project) publicInfo() *assistantjs.ProjectInfo {
	return &assistantjs.ProjectInfo{
		ProjectID:              p.ID,
		Name:                   p.Name,
		Description:            p.Description,
		AllowedAssistants:      append([]string{}, p.AllowedAssistants...),
		SessionDurationMinutes: p.SessionDurationMinutes,
		RateLimits: assistantjs.RateLimits{
			RequestsPerMinute:  p.RequestsPerMinute,
			RequestsPerDay:     p.RequestsPerDay,
			RequestsPerSession: p.RequestsPerSession,
		},
	}
}

func (p *Project) allowsAssistant(name string) bool {
	if len(p.AllowedAssistants) == 0 {
		return true
	}
	for _, a := range p.AllowedAssistants {
		if a == name {
			return true
		}
	}
	return false
}

// domainAllowed checks origin against allowed; an empty list allows any
// origin. Entries may be "*.example.com" wildcards, which also match the bare
// domain.
func domainAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	domain := strings.ToLower(u.Host)
	for _, a := range allowed {
		a = strings.ToLower(a)
		if strings.HasPrefix(a, "*.") {
			base := a[2:]
			if domain == base || strings.HasSuffix(domain, "."+base) {
				return true
			}
			continue
		}
		if domain == a {
			return true
		}
	}
	return false
}
