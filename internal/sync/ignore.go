package sync

import (
	"bufio"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is an optional gitignore-style file in the source directory
// that contributes ignore rules on top of the configured ones.
const IgnoreFileName = ".syncignore"

var defaultIgnoreLines = []string{
	IgnoreFileName,
	// OS junk that asset pipelines tend to leave behind
	".DS_Store",
	"Thumbs.db",
	"*.swp",
}

// IgnoreRule is either an exact file name or a doublestar pattern.
type IgnoreRule interface {
	Matches(assetPath string) bool
}

// ExactName matches the final path segment.
type ExactName string

func (r ExactName) Matches(assetPath string) bool {
	return path.Base(assetPath) == string(r)
}

// Pattern matches a doublestar glob against the full asset path.
type Pattern string

func (r Pattern) Matches(assetPath string) bool {
	ok, err := doublestar.Match(string(r), assetPath)
	return err == nil && ok
}

// ParseIgnoreRules turns raw config entries into tagged rules. Entries with
// glob metacharacters become patterns; an entry that is not a valid pattern
// is logged and skipped rather than failing the sync.
func ParseIgnoreRules(raw []string, logger *slog.Logger) []IgnoreRule {
	rules := make([]IgnoreRule, 0, len(raw))
	for _, entry := range raw {
		if entry == "" {
			continue
		}
		if !strings.ContainsAny(entry, "*?[{") {
			rules = append(rules, ExactName(entry))
			continue
		}
		if !doublestar.ValidatePattern(entry) {
			logger.Warn("skipping invalid ignore pattern", "pattern", entry)
			continue
		}
		rules = append(rules, Pattern(entry))
	}
	return rules
}

// IgnoreList answers whether an asset path is excluded from both upload and
// remote deletion.
type IgnoreList struct {
	rules      []IgnoreRule
	ignoreFile *gitignore.GitIgnore
}

func NewIgnoreList(rules []IgnoreRule) *IgnoreList {
	return &IgnoreList{
		rules:      rules,
		ignoreFile: gitignore.CompileIgnoreLines(defaultIgnoreLines...),
	}
}

// LoadFile reads the .syncignore file under dir, if present, appending its
// lines to the default ignore set.
func (l *IgnoreList) LoadFile(dir string, logger *slog.Logger) {
	ignorePath := filepath.Join(dir, IgnoreFileName)

	file, err := os.Open(ignorePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to open ignore file", "path", ignorePath, "error", err)
		}
		return
	}
	defer file.Close()

	lines := append([]string{}, defaultIgnoreLines...)
	rules := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
			rules++
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("error reading ignore file", "path", ignorePath, "error", err)
	} else {
		logger.Info("loaded ignore file", "path", ignorePath, "rules", rules)
	}

	l.ignoreFile = gitignore.CompileIgnoreLines(lines...)
}

func (l *IgnoreList) Ignored(assetPath string) bool {
	for _, rule := range l.rules {
		if rule.Matches(assetPath) {
			return true
		}
	}
	return l.ignoreFile.MatchesPath(assetPath)
}
