package check

import (
	"slices"

	"github.com/iacscan/iacscan/internal/domain"
)

// startDisabled need credentials before they can run.
var startDisabled = []string{"steampunk-scanner", "steampunk-spotter", "snyk", "sonar-scanner"}

// Defaults returns the built-in check definitions in registry order.
func Defaults() []domain.CheckDefinition {
	defs := []domain.CheckDefinition{
		{
			Name:        "opera-tosca-parser",
			Description: "xOpera TOSCA parser can validate TOSCA YAML templates and CSARs",
			Binary:      "opera-tosca-parser",
			Command:     "{bin} parse .",
			ConfigMode:  domain.ConfigModeNone,
		},
		{
			Name:              "ansible-lint",
			Description:       "Ansible Lint is a command-line tool for linting playbooks, roles and collections aimed towards any Ansible users",
			Binary:            "ansible-lint",
			Command:           "{bin} -p",
			ConfiguredCommand: "{bin} -p -c {config}",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:             "steampunk-scanner",
			Description:      "A quality scanner for Ansible tasks, playbooks, roles and collections",
			TargetEntityType: domain.TargetBoth,
			Binary:           "steampunk-scanner",
			Command:          "{bin} scan .",
			ConfigMode:       domain.ConfigModeSecret,
		},
		{
			Name:              "steampunk-spotter",
			Description:       "Provides an Ansible Playbook Scanning Tool that analyzes and offers recommendations for your Ansible Playbooks",
			Binary:            "spotter",
			Command:           "{bin} scan .",
			ConfiguredCommand: "{bin} scan --config {config} .",
			AuthCommand:       "{bin} --api-token {secret} login",
			ConfigMode:        domain.ConfigModeSecret,
		},
		{
			Name:              "tflint",
			Description:       "A Pluggable Terraform Linter",
			Binary:            "tflint",
			Command:           "{bin} --filter=.",
			ConfiguredCommand: "{bin} -c {config} --filter=.",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:              "tfsec",
			Description:       "Security scanner for your Terraform code",
			Binary:            "tfsec",
			Command:           "{bin} .",
			ConfiguredCommand: "{bin} --config-file {config} .",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:              "terrascan",
			Description:       "Terrascan is a static code analyzer for IaC (defaults to scanning Terraform)",
			Binary:            "terrascan",
			Command:           "{bin} scan",
			ConfiguredCommand: "{bin} -c {config} scan",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:              "yamllint",
			Description:       "A linter for YAML files",
			Binary:            "yamllint",
			Command:           "{bin} .",
			ConfiguredCommand: "{bin} -c {config} .",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:              "pylint",
			Description:       "Pylint is a Python static code analysis tool that checks for errors in Python code, tries to enforce a coding standard and looks for code smells",
			Binary:            "pylint",
			Command:           "{bin} {files}",
			ConfiguredCommand: "{bin} --rcfile {config} {files}",
			RequireFiles:      []string{"*.py"},
			NoFilesMessage:    "There are no Python files to check.",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:              "bandit",
			Description:       "Bandit is a tool designed to find common security issues in Python code",
			Binary:            "bandit",
			Command:           "{bin} -r .",
			ConfiguredCommand: "{bin} -c {config} -r .",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:             "pyup-safety",
			Description:      "Safety is a PyUp CLI tool that checks your installed Python dependencies for known security vulnerabilities",
			TargetEntityType: domain.TargetComponent,
			Binary:           "safety",
			Command:          "{bin} check -r requirements.txt",
			RequireFiles:     []string{"requirements.txt"},
			NoFilesMessage:   "There is no requirements.txt to check.",
			ConfigMode:       domain.ConfigModeNone,
		},
		{
			Name:              "git-leaks",
			Description:       "Gitleaks is a SAST tool for detecting hardcoded secrets like passwords, API keys, and tokens in Git repos",
			Binary:            "gitleaks",
			Command:           "{bin} --path=.",
			ConfiguredCommand: "{bin} --config-path {config} --path=.",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:        "git-secrets",
			Description: "Prevents you from committing secrets and credentials into git repositories",
			Binary:      "git-secrets",
			Command:     "{bin} --scan -r .",
			ConfigMode:  domain.ConfigModeNone,
		},
		{
			Name:              "markdown-lint",
			Description:       "A tool to check markdown files and flag style issues",
			Binary:            "mdl",
			Command:           "{bin} .",
			ConfiguredCommand: "{bin} -c {config} .",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:              "hadolint",
			Description:       "Dockerfile linter, validate inline bash, written in Haskell",
			Binary:            "hadolint",
			Command:           "{bin} Dockerfile",
			ConfiguredCommand: "{bin} -c {config} Dockerfile",
			RequireFiles:      []string{"Dockerfile"},
			NoFilesMessage:    "There is no Dockerfile to check.",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:              "gixy",
			Description:       "Gixy is a tool to analyze Nginx configuration",
			Binary:            "gixy",
			Command:           "{bin} nginx.conf",
			ConfiguredCommand: "{bin} -c {config} nginx.conf",
			RequireFiles:      []string{"nginx.conf"},
			NoFilesMessage:    "There is no nginx.conf file to check.",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:           "shellcheck",
			Description:    "ShellCheck - a static analysis tool for shell scripts",
			Binary:         "shellcheck",
			Command:        "{bin} {files}",
			RequireFiles:   []string{"*.sh"},
			NoFilesMessage: "There are no shell scripts to check.",
			ConfigMode:     domain.ConfigModeNone,
		},
		{
			Name:              "es-lint",
			Description:       "ESLint is a tool for identifying and reporting on patterns found in ECMAScript/JavaScript code",
			Binary:            "eslint",
			Command:           "{bin} --no-error-on-unmatched-pattern --ext .js .",
			ConfiguredCommand: "{bin} -c {config} --no-error-on-unmatched-pattern --ext .js .",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:              "ts-lint",
			Description:       "TypeScript ESLint enables ESLint to support TypeScript",
			Binary:            "eslint",
			Command:           "{bin} --no-error-on-unmatched-pattern --ext .ts .",
			ConfiguredCommand: "{bin} -c {config} --no-error-on-unmatched-pattern --ext .ts .",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:              "htmlhint",
			Description:       "Static code analysis tool for HTML",
			Binary:            "htmlhint",
			Command:           "{bin} .",
			ConfiguredCommand: "{bin} --config {config} .",
			ConfigMode:        domain.ConfigModeNone,
		},
		{
			Name:              "stylelint",
			Description:       "A mighty, modern linter that helps you avoid errors and enforce conventions in your styles",
			Binary:            "stylelint",
			Command:           "{bin} --allow-empty-input {files}",
			ConfiguredCommand: "{bin} --config {config} --allow-empty-input {files}",
			RequireFiles:      []string{"*.css", "*.scss", "*.sass"},
			NoFilesMessage:    "There are no stylesheets to check.",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:        "cloc",
			Description: "Counts blank lines, comment lines, and physical lines of source code",
			Binary:      "cloc",
			Command:     "{bin} .",
			ConfigMode:  domain.ConfigModeNone,
		},
		{
			Name:              "checkstyle",
			Description:       "Checkstyle is a tool for checking Java source code for adherence to a Code Standard or set of validation rules (best practices)",
			Binary:            "checkstyle.jar",
			Command:           "java -jar {bin} -c /google_checks.xml {file}",
			ConfiguredCommand: "java -jar {bin} -c {config} {file}",
			RequireFiles:      []string{"*.java"},
			NoFilesMessage:    "There are no Java files to check.",
			ConfigMode:        domain.ConfigModeFile,
		},
		{
			Name:             "snyk",
			Description:      "Snyk helps you find, fix and monitor known vulnerabilities in open source",
			TargetEntityType: domain.TargetBoth,
			Binary:           "snyk",
			Command:          "{bin} test --json",
			AuthCommand:      "{bin} auth {secret}",
			ConfigMode:       domain.ConfigModeSecret,
		},
		{
			Name:              "sonar-scanner",
			Description:       "Official scanner used to run code analysis on SonarQube and SonarCloud",
			TargetEntityType:  domain.TargetBoth,
			Binary:            "sonar-scanner",
			Command:           "{bin}",
			ConfiguredCommand: "{bin} -Dproject.settings={config}",
			SecretCommand:     "{bin} -Dproject.settings={config} -Dsonar.login={secret}",
			ConfigMode:        domain.ConfigModeFileOptionalSecret,
		},
	}

	for i := range defs {
		if defs[i].TargetEntityType == "" {
			defs[i].TargetEntityType = domain.TargetIaC
		}
		ready := !slices.Contains(startDisabled, defs[i].Name)
		defs[i].Enabled = ready
		defs[i].Configured = ready
	}
	return defs
}
