package domain

import (
	"strings"
	"time"
)

// TargetEntityType tells what a check inspects.
type TargetEntityType string

const (
	TargetIaC       TargetEntityType = "IaC"
	TargetComponent TargetEntityType = "component"
	TargetBoth      TargetEntityType = "IaC and component"
)

// ConfigMode describes which inputs Configure requires for a check.
type ConfigMode string

const (
	// ConfigModeNone accepts any input, including none.
	ConfigModeNone ConfigMode = "none"
	// ConfigModeFile requires a configuration file.
	ConfigModeFile ConfigMode = "config-file"
	// ConfigModeSecret requires a secret; a configuration file is optional.
	ConfigModeSecret ConfigMode = "secret"
	// ConfigModeFileOptionalSecret requires a configuration file; a secret is optional.
	ConfigModeFileOptionalSecret ConfigMode = "config-file-optional-secret"
)

// Command template placeholders.
const (
	PlaceholderBin    = "{bin}"
	PlaceholderConfig = "{config}"
	PlaceholderSecret = "{secret}"
	PlaceholderFiles  = "{files}"
	PlaceholderFile   = "{file}"
)

// CheckDefinition describes one external tool wrapped as a check.
// Commands are templates split into argv; see the Placeholder constants.
type CheckDefinition struct {
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	TargetEntityType TargetEntityType `json:"target_entity_type"`
	Enabled          bool             `json:"enabled"`
	Configured       bool             `json:"configured"`
	ConfigMode       ConfigMode       `json:"-"`
	ConfigFile       string           `json:"config_file,omitempty"`
	Secret           string           `json:"-"`

	Binary string `json:"-"`
	// Command runs when no configuration file is set.
	Command string `json:"-"`
	// ConfiguredCommand runs instead of Command once ConfigFile is set.
	ConfiguredCommand string `json:"-"`
	// SecretCommand runs instead of the others once Secret is set.
	SecretCommand string `json:"-"`
	// AuthCommand is run once by Configure to validate a secret.
	AuthCommand string `json:"-"`
	// RequireFiles are glob patterns matched against top-level entries of the
	// scanned directory. When none match, NoFilesMessage is returned without
	// spawning the tool.
	RequireFiles   []string `json:"-"`
	NoFilesMessage string   `json:"-"`
}

// CommandTemplate picks the template that applies to the current configuration.
func (d CheckDefinition) CommandTemplate() string {
	switch {
	case d.Secret != "" && d.SecretCommand != "":
		return d.SecretCommand
	case d.ConfigFile != "" && d.ConfiguredCommand != "":
		return d.ConfiguredCommand
	default:
		return d.Command
	}
}

// Runnable reports whether the check may be requested explicitly.
func (d CheckDefinition) Runnable() bool { return d.Enabled && d.Configured }

// CheckOutput is the raw result of invoking a tool.
type CheckOutput struct {
	Output     string        `json:"output"`
	ReturnCode int           `json:"rc"`
	TimedOut   bool          `json:"timed_out,omitempty"`
	Duration   time.Duration `json:"-"`
}

// CheckFilter narrows a check listing. Nil pointers match everything.
type CheckFilter struct {
	Keyword          string
	Enabled          *bool
	Configured       *bool
	TargetEntityType TargetEntityType
}

// Match reports whether d passes every set criterion.
func (f CheckFilter) Match(d CheckDefinition) bool {
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(d.Name), kw) &&
			!strings.Contains(strings.ToLower(d.Description), kw) {
			return false
		}
	}
	if f.Enabled != nil && d.Enabled != *f.Enabled {
		return false
	}
	if f.Configured != nil && d.Configured != *f.Configured {
		return false
	}
	if f.TargetEntityType != "" && d.TargetEntityType != f.TargetEntityType {
		return false
	}
	return true
}
