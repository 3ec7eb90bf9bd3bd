package domain

import "slices"

// Project scopes scans to a creator, an optional active configuration and an
// optional checklist.
type Project struct {
	ProjectID    string   `json:"project_id"`
	CreatorID    string   `json:"creator_id"`
	Time         string   `json:"time"`
	ActiveConfig string   `json:"active_config,omitempty"`
	Checklist    []string `json:"checklist"`
}

// HasChecklist reports whether the checklist restricts scans.
func (p *Project) HasChecklist() bool { return p != nil && len(p.Checklist) > 0 }

// AddCheck appends name to the checklist once.
func (p *Project) AddCheck(name string) {
	if !slices.Contains(p.Checklist, name) {
		p.Checklist = append(p.Checklist, name)
	}
}

// RemoveCheck drops name from the checklist if present.
func (p *Project) RemoveCheck(name string) {
	p.Checklist = slices.DeleteFunc(p.Checklist, func(c string) bool { return c == name })
}

// ProjectConfiguration is a parameter bag a project can bind as its active config.
type ProjectConfiguration struct {
	ConfigID   string         `json:"config_id"`
	CreatorID  string         `json:"creator_id"`
	Time       string         `json:"time"`
	Parameters map[string]any `json:"parameters"`
}
