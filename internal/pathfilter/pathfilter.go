// Package pathfilter decides which directory entries are worth surfacing.
package pathfilter

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Build artifacts, caches and editor state that the structured listing
// tools skip by default.
var defaultExcludedExtensions = []string{
	".pyc", ".pyo", ".pyd", ".so", ".dll", ".dylib",
	".exe", ".bin", ".obj", ".o", ".a", ".lib",
	".class", ".jar", ".war", ".ear",
	".log", ".tmp", ".temp", ".cache",
	".swp", ".swo", ".lock",
}

var defaultExcludedDirs = []string{
	"__pycache__", ".git", ".svn", ".hg", ".bzr",
	"node_modules", ".npm", ".yarn",
	".venv", "venv", ".virtualenv", "virtualenv",
	".tox", ".pytest_cache", ".coverage",
	"dist", "build", ".build", "target",
	".idea", ".vscode", ".vs",
	"logs", "log", "tmp", "temp", "cache",
}

// Hidden files still surfaced despite the leading dot.
var hiddenKeepList = []string{".env", ".gitignore", ".gitattributes"}

// Filter applies the default exclusion rules plus any extra glob
// patterns from configuration.
type Filter struct {
	excludedExtensions map[string]bool
	excludedDirs       map[string]bool
	keepHidden         map[string]bool
	extraPatterns      []string
}

// New creates a Filter. extraPatterns are glob patterns (matched against
// entry names) that exclude additional entries; nil is fine.
func New(extraPatterns []string) *Filter {
	f := &Filter{
		excludedExtensions: make(map[string]bool, len(defaultExcludedExtensions)),
		excludedDirs:       make(map[string]bool, len(defaultExcludedDirs)),
		keepHidden:         make(map[string]bool, len(hiddenKeepList)),
		extraPatterns:      extraPatterns,
	}
	for _, ext := range defaultExcludedExtensions {
		f.excludedExtensions[ext] = true
	}
	for _, dir := range defaultExcludedDirs {
		f.excludedDirs[dir] = true
	}
	for _, name := range hiddenKeepList {
		f.keepHidden[name] = true
	}
	return f
}

// AllowFile reports whether a file with the given base name should be
// surfaced.
func (f *Filter) AllowFile(name string) bool {
	if f.excludedExtensions[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	if strings.HasPrefix(name, ".") && !f.keepHidden[name] {
		return false
	}
	if strings.HasSuffix(name, "~") {
		return false
	}
	return !f.matchesExtra(name)
}

// AllowDir reports whether a directory with the given base name should
// be surfaced.
func (f *Filter) AllowDir(name string) bool {
	if f.excludedDirs[strings.ToLower(name)] {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	return !f.matchesExtra(name)
}

func (f *Filter) matchesExtra(name string) bool {
	for _, pattern := range f.extraPatterns {
		if globMatch(pattern, name) {
			return true
		}
	}
	return false
}

// globMatch converts a glob pattern to regex and tests it against name.
func globMatch(pattern, name string) bool {
	regexPattern := regexp.QuoteMeta(pattern)

	// Convert glob wildcards (unescape the escaped versions).
	regexPattern = strings.ReplaceAll(regexPattern, `\*\*`, ".*")
	regexPattern = strings.ReplaceAll(regexPattern, `\*`, "[^/]*")
	regexPattern = strings.ReplaceAll(regexPattern, `\?`, "[^/]")

	re, err := regexp.Compile("^" + regexPattern + "$")
	if err != nil {
		return false
	}
	return re.MatchString(name)
}
