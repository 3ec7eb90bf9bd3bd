package domain

import "slices"

// File-type tags produced by the archive classifier.
const (
	TagTerraform = "terraform"
	TagYAML      = "yaml"
	TagShell     = "shell"
	TagPython    = "python"
	TagJava      = "java"
	TagJS        = "js"
	TagHTML      = "html"
	TagDocker    = "docker"
	TagMarkdown  = "markdown"
	TagCSS       = "css"
	TagNginx     = "nginx"
	TagCommon    = "common"
	TagPackage   = "package"
	TagOther     = "other"
)

// ScannedFileIndex maps a file-type tag to the file names found for it.
// It is rebuilt for every scan.
type ScannedFileIndex map[string][]string

// FileTypes is the classifier's view of an unpacked archive.
type FileTypes struct {
	// Tags are de-duplicated in first-seen order; TagCommon is always last.
	Tags  []string
	Files ScannedFileIndex
}

// CompatibilityEntry lists the checks applicable to one tag.
type CompatibilityEntry struct {
	Tag    string
	Checks []string
}

// CompatibilityMatrix is an ordered tag to checks table.
type CompatibilityMatrix []CompatibilityEntry

// DefaultCompatibility returns the built-in compatibility table.
func DefaultCompatibility() CompatibilityMatrix {
	return CompatibilityMatrix{
		{TagTerraform, []string{"tfsec", "tflint", "terrascan", "git-leaks", "git-secrets", "cloc"}},
		{TagYAML, []string{"git-leaks", "yamllint", "git-secrets", "ansible-lint", "steampunk-spotter", "cloc", "opera-tosca-parser"}},
		{TagShell, []string{"shellcheck", "git-leaks", "git-secrets", "cloc"}},
		{TagPython, []string{"pylint", "bandit", "pyup-safety", "cloc"}},
		{TagJava, []string{"checkstyle", "cloc"}},
		{TagJS, []string{"es-lint", "ts-lint", "cloc"}},
		{TagHTML, []string{"htmlhint", "cloc"}},
		{TagDocker, []string{"hadolint", "cloc"}},
		{TagMarkdown, []string{"markdown-lint", "cloc"}},
		{TagCSS, []string{"stylelint", "cloc"}},
		{TagNginx, []string{"gixy", "cloc"}},
		{TagCommon, []string{"git-leaks", "git-secrets", "cloc"}},
		{TagPackage, []string{"snyk", "sonar-scanner"}},
		{TagOther, nil},
	}
}

// Tags returns every tag known to the matrix, in table order.
func (m CompatibilityMatrix) Tags() []string {
	tags := make([]string, 0, len(m))
	for _, e := range m {
		tags = append(tags, e.Tag)
	}
	return tags
}

// ChecksFor returns the checks listed for tag, or nil for an unknown tag.
func (m CompatibilityMatrix) ChecksFor(tag string) []string {
	for _, e := range m {
		if e.Tag == tag {
			return e.Checks
		}
	}
	return nil
}

// ApplicableChecks concatenates the check lists of every tag.
// Duplicates across tags are kept.
func (m CompatibilityMatrix) ApplicableChecks(tags []string) []string {
	var checks []string
	for _, tag := range tags {
		checks = append(checks, m.ChecksFor(tag)...)
	}
	return checks
}

// TagsFor returns every tag whose list contains check, in table order.
func (m CompatibilityMatrix) TagsFor(check string) []string {
	var tags []string
	for _, e := range m {
		if slices.Contains(e.Checks, check) {
			tags = append(tags, e.Tag)
		}
	}
	return tags
}

// CheckNames returns every distinct check referenced by the matrix.
func (m CompatibilityMatrix) CheckNames() []string {
	var names []string
	for _, e := range m {
		for _, c := range e.Checks {
			if !slices.Contains(names, c) {
				names = append(names, c)
			}
		}
	}
	return names
}
