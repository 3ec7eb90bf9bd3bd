package classifier

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/iacscan/iacscan/internal/domain"
)

const nodeModules = "node_modules"

// rule maps a file name to a tag. Rules are tried in order; the first match wins.
type rule struct {
	tag   string
	match func(name string) bool
}

func hasSuffix(suffixes ...string) func(string) bool {
	return func(name string) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(name, s) {
				return true
			}
		}
		return false
	}
}

var rules = []rule{
	{domain.TagTerraform, hasSuffix(".tf", ".tftpl")},
	{domain.TagYAML, hasSuffix(".yaml", ".yml")},
	{domain.TagShell, hasSuffix(".sh")},
	{domain.TagPython, hasSuffix(".py")},
	{domain.TagJava, hasSuffix(".java")},
	{domain.TagHTML, hasSuffix(".html")},
	{domain.TagJS, hasSuffix(".js")},
	{domain.TagDocker, func(name string) bool { return strings.Contains(name, "Dockerfile") }},
	{domain.TagMarkdown, hasSuffix(".md")},
	{domain.TagCSS, hasSuffix(".css")},
	{domain.TagNginx, func(name string) bool { return name == "nginx.conf" }},
}

// FileClassifier implements domain.ArchiveClassifier by walking the filesystem.
type FileClassifier struct {
	matrix domain.CompatibilityMatrix
}

func New(matrix domain.CompatibilityMatrix) *FileClassifier {
	return &FileClassifier{matrix: matrix}
}

// Classify walks dir and buckets every file by type. Every known tag gets an
// index entry, empty or not, and TagCommon is always the last tag.
func (c *FileClassifier) Classify(dir string) (*domain.FileTypes, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, domain.WrapError(domain.KindClassification, "classify archive", err)
	}

	result := &domain.FileTypes{Files: make(domain.ScannedFileIndex)}
	for _, tag := range c.matrix.Tags() {
		result.Files[tag] = []string{}
	}
	add := func(tag, name string) {
		if !slices.Contains(result.Tags, tag) {
			result.Tags = append(result.Tags, tag)
		}
		result.Files[tag] = append(result.Files[tag], name)
	}

	hasNodeModules := make(map[string]bool)
	packageSeen := false

	err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		name := d.Name()
		result.Files[domain.TagCommon] = append(result.Files[domain.TagCommon], name)

		for _, r := range rules {
			if r.match(name) {
				add(r.tag, name)
				return nil
			}
		}

		if !packageSeen && containsNodeModules(filepath.Dir(path), hasNodeModules) {
			packageSeen = true
			add(domain.TagPackage, nodeModules)
			return nil
		}
		add(domain.TagOther, name)
		return nil
	})
	if err != nil {
		return nil, domain.WrapError(domain.KindClassification, "classify archive", err)
	}

	result.Tags = append(slices.DeleteFunc(result.Tags, func(t string) bool { return t == domain.TagCommon }), domain.TagCommon)
	return result, nil
}

// containsNodeModules reports whether dir has a node_modules subdirectory.
// The answer is cached per directory for the duration of one walk.
func containsNodeModules(dir string, cache map[string]bool) bool {
	if seen, ok := cache[dir]; ok {
		return seen
	}
	info, err := os.Stat(filepath.Join(dir, nodeModules))
	found := err == nil && info.IsDir()
	cache[dir] = found
	return found
}
