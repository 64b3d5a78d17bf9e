package tools

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Category classifies a directory entry for list_working_directory.
type Category string

const (
	CategoryCode   Category = "code"
	CategoryDoc    Category = "doc"
	CategoryData   Category = "data"
	CategoryImage  Category = "image"
	CategoryConfig Category = "config"
	CategoryOther  Category = "other"
)

// Entry is one (name, category, size) tuple in a directory listing.
type Entry struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Size     int64    `json:"size"`
}

// hardIgnore mirrors the teacher's corpus conventions for noise
// directories that are never worth showing the model.
var hardIgnore = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true,
	"dist": true, "build": true, ".venv": true, "venv": true,
	".next": true, "target": true, "vendor": true, ".cache": true,
}

var categoryByExt = map[string]Category{
	".go": CategoryCode, ".py": CategoryCode, ".js": CategoryCode, ".ts": CategoryCode,
	".tsx": CategoryCode, ".jsx": CategoryCode, ".java": CategoryCode, ".rs": CategoryCode,
	".c": CategoryCode, ".cpp": CategoryCode, ".rb": CategoryCode, ".sh": CategoryCode,

	".md": CategoryDoc, ".txt": CategoryDoc, ".rst": CategoryDoc,

	".csv": CategoryData, ".json": CategoryData, ".parquet": CategoryData, ".sqlite": CategoryData,

	".png": CategoryImage, ".jpg": CategoryImage, ".jpeg": CategoryImage, ".gif": CategoryImage, ".svg": CategoryImage,

	".yml": CategoryConfig, ".yaml": CategoryConfig, ".toml": CategoryConfig, ".ini": CategoryConfig, ".env": CategoryConfig,
}

func categorize(name string) Category {
	ext := strings.ToLower(filepath.Ext(name))
	if c, ok := categoryByExt[ext]; ok {
		return c
	}
	return CategoryOther
}

// gitignoreMatcher is a minimal, directory-scoped .gitignore matcher:
// path/filepath.Match patterns, one per non-comment, non-blank line. It
// does not implement the full gitignore grammar (no double-star, no
// negation) — sufficient for keeping generated/vendor noise out of the
// listing without pulling in a dedicated parser for a single tool.
type gitignoreMatcher struct{ patterns []string }

func loadGitignore(root string) gitignoreMatcher {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return gitignoreMatcher{}
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.TrimSuffix(line, "/"))
	}
	return gitignoreMatcher{patterns: patterns}
}

func (m gitignoreMatcher) matches(name string) bool {
	for _, p := range m.patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// ListWorkingDirectory walks root up to maxDepth, honoring .gitignore plus
// the hard-coded ignore set, and categorizes each entry by extension.
func ListWorkingDirectory(root string, maxDepth int) (map[string][]Entry, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	ignore := loadGitignore(root)
	result := make(map[string][]Entry)

	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			rel = dir
		}

		var listing []Entry
		for _, de := range entries {
			name := de.Name()
			if hardIgnore[name] || ignore.matches(name) {
				continue
			}
			info, err := de.Info()
			if err != nil {
				continue
			}
			if de.IsDir() {
				if depth < maxDepth {
					if err := walk(filepath.Join(dir, name), depth+1); err != nil {
						return err
					}
				}
				continue
			}
			listing = append(listing, Entry{Name: name, Category: categorize(name), Size: info.Size()})
		}
		if len(listing) > 0 {
			sort.Slice(listing, func(i, j int) bool { return listing[i].Name < listing[j].Name })
			result[rel] = listing
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, err
	}
	return result, nil
}

// ListWorkingDirectoryTool adapts ListWorkingDirectory to the Fn contract.
func ListWorkingDirectoryTool(root string) Fn {
	return func(ctx context.Context, args map[string]any) (any, error) {
		maxDepth := 3
		if v, ok := args["max_depth"].(float64); ok && v > 0 {
			maxDepth = int(v)
		}
		return ListWorkingDirectory(root, maxDepth)
	}
}
