package check

import (
	"fmt"
	"slices"
	"sync"

	"github.com/iacscan/iacscan/internal/domain"
	"github.com/samber/lo"
)

// Registry holds the known checks and their enabled/configured flags.
// It is safe for concurrent use; scans work on a Snapshot.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	defs   map[string]domain.CheckDefinition
	matrix domain.CompatibilityMatrix
}

// NewRegistry builds a registry from defs, keeping their order.
func NewRegistry(defs []domain.CheckDefinition, matrix domain.CompatibilityMatrix) *Registry {
	r := &Registry{
		defs:   make(map[string]domain.CheckDefinition, len(defs)),
		matrix: matrix,
	}
	for _, d := range defs {
		if _, dup := r.defs[d.Name]; !dup {
			r.order = append(r.order, d.Name)
		}
		r.defs[d.Name] = d
	}
	return r
}

// NewDefaultRegistry builds a registry from Defaults and DefaultCompatibility.
func NewDefaultRegistry() *Registry {
	return NewRegistry(Defaults(), domain.DefaultCompatibility())
}

func (r *Registry) Matrix() domain.CompatibilityMatrix { return r.matrix }

// Names returns check names in registry order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

func (r *Registry) Lookup(name string) (domain.CheckDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	if !ok {
		return domain.CheckDefinition{}, nonexistent("lookup check", name)
	}
	return d, nil
}

// List returns the checks matching filter, in registry order.
func (r *Registry) List(filter domain.CheckFilter) []domain.CheckDefinition {
	return lo.Filter(r.Snapshot(), func(d domain.CheckDefinition, _ int) bool {
		return filter.Match(d)
	})
}

// ApplicableChecks concatenates the matrix entries of every tag.
func (r *Registry) ApplicableChecks(tags []string) []string {
	return r.matrix.ApplicableChecks(tags)
}

// Enable fails if the check is unknown or already enabled.
func (r *Registry) Enable(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.defs[name]
	if !ok {
		return "", nonexistent("enable check", name)
	}
	if d.Enabled {
		return "", domain.NewError(domain.KindConflict, "enable check", fmt.Sprintf("check %s is already enabled", name))
	}
	d.Enabled = true
	r.defs[name] = d
	return fmt.Sprintf("Check: %s is now enabled and available to use.", name), nil
}

// Disable fails if the check is unknown or already disabled.
func (r *Registry) Disable(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.defs[name]
	if !ok {
		return "", nonexistent("disable check", name)
	}
	if !d.Enabled {
		return "", domain.NewError(domain.KindConflict, "disable check", fmt.Sprintf("check %s is already disabled", name))
	}
	d.Enabled = false
	r.defs[name] = d
	return fmt.Sprintf("Check: %s is now disabled and cannot be used.", name), nil
}

// ForceEnabled sets the enabled flag without the already-set checks.
// Project-scoped enable/disable uses it alongside the project checklist.
func (r *Registry) ForceEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.defs[name]
	if !ok {
		return nonexistent("set check state", name)
	}
	d.Enabled = enabled
	r.defs[name] = d
	return nil
}

// Configure records configFile and secret for an enabled check. The inputs
// required depend on the check's ConfigMode.
func (r *Registry) Configure(name, configFile, secret string) (string, error) {
	const op = "configure check"

	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.defs[name]
	if !ok {
		return "", nonexistent(op, name)
	}
	if !d.Enabled {
		return "", domain.NewError(domain.KindValidation, op, fmt.Sprintf("check %s is disabled, you need to enable it first", name))
	}
	if err := requireInputs(d, configFile, secret); err != nil {
		return "", err
	}

	if configFile != "" {
		d.ConfigFile = configFile
	}
	if secret != "" {
		d.Secret = secret
	}
	d.Configured = true
	r.defs[name] = d
	return fmt.Sprintf("Check: %s has been configured successfully.", name), nil
}

func requireInputs(d domain.CheckDefinition, configFile, secret string) error {
	const op = "configure check"
	switch d.ConfigMode {
	case domain.ConfigModeFile, domain.ConfigModeFileOptionalSecret:
		if configFile == "" {
			return domain.NewError(domain.KindValidation, op, fmt.Sprintf("check %s requires you to pass a configuration file", d.Name))
		}
	case domain.ConfigModeSecret:
		if secret == "" {
			return domain.NewError(domain.KindValidation, op, fmt.Sprintf("check %s requires you to pass a secret", d.Name))
		}
	}
	return nil
}

// Snapshot copies every definition in registry order. Scans resolve their
// effective check set from a snapshot so concurrent enable/disable calls
// cannot change a running scan.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(Snapshot, 0, len(r.order))
	for _, name := range r.order {
		snap = append(snap, r.defs[name])
	}
	return snap
}

// Snapshot is an immutable, ordered copy of the registry.
type Snapshot []domain.CheckDefinition

func (s Snapshot) Get(name string) (domain.CheckDefinition, bool) {
	return lo.Find(s, func(d domain.CheckDefinition) bool { return d.Name == name })
}

// Unrunnable returns the requested names that are unknown, disabled or
// unconfigured, sorted and de-duplicated.
func (s Snapshot) Unrunnable(names []string) []string {
	bad := lo.Filter(lo.Uniq(names), func(name string, _ int) bool {
		d, ok := s.Get(name)
		return !ok || !d.Runnable()
	})
	slices.Sort(bad)
	return bad
}

func nonexistent(op, name string) error {
	return domain.NewError(domain.KindNotFound, op, "nonexistent check", name)
}
