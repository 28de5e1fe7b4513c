package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const defaultSearchLimit = 200

func (r *Registry) findFilesSpec() Spec {
	return Spec{
		Name:        "find_files",
		Description: "Find files by glob-like pattern under workspace",
		Parameters: objectSchema(map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Workspace-relative root path",
			},
			"pattern": map[string]any{
				"type":        "string",
				"description": "Pattern like *.go or src/*.md",
			},
			"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 500},
		}, "pattern"),
		Handler: r.findFiles,
	}
}

func (r *Registry) findFiles(ctx context.Context, args map[string]any) Result {
	root, err := safeJoin(r.workspace, stringArg(args, "path", "."))
	if err != nil {
		return Fail("%v", err)
	}
	pattern := strings.TrimSpace(stringArg(args, "pattern", ""))
	if pattern == "" {
		return Fail("pattern is required")
	}
	limit := intArg(args, "limit", defaultSearchLimit)

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Fail("Path not found or not directory: %s", root)
	}

	matcher, err := compileGlob(pattern)
	if err != nil {
		return Fail("invalid pattern: %v", err)
	}

	var matches []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(r.workspace, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matcher.MatchString(rel) || matcher.MatchString(d.Name()) {
			matches = append(matches, rel)
		}
		if len(matches) >= limit {
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return Fail("walk %s: %v", root, walkErr)
	}
	if len(matches) == 0 {
		return Ok("(no matches)")
	}
	return Ok(strings.Join(matches, "\n"))
}

func (r *Registry) grepTextSpec() Spec {
	return Spec{
		Name:        "grep_text",
		Description: "Search text content with regex in workspace files",
		Parameters: objectSchema(map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Workspace-relative root path",
			},
			"pattern": map[string]any{
				"type":        "string",
				"description": "Regex pattern",
			},
			"include": map[string]any{
				"type":        "string",
				"description": "File include glob, default *",
			},
			"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 500},
		}, "pattern"),
		Handler: r.grepText,
	}
}

func (r *Registry) grepText(ctx context.Context, args map[string]any) Result {
	root, err := safeJoin(r.workspace, stringArg(args, "path", "."))
	if err != nil {
		return Fail("%v", err)
	}
	regex, err := regexp.Compile(stringArg(args, "pattern", ""))
	if err != nil {
		return Fail("invalid regex: %v", err)
	}
	include, err := compileGlob(stringArg(args, "include", "*"))
	if err != nil {
		return Fail("invalid include glob: %v", err)
	}
	limit := intArg(args, "limit", defaultSearchLimit)

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Fail("Path not found or not directory: %s", root)
	}

	var hits []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || !include.MatchString(d.Name()) {
			return nil
		}
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		rel, _ := filepath.Rel(r.workspace, path)
		rel = filepath.ToSlash(rel)
		for idx, line := range strings.Split(string(raw), "\n") {
			if regex.MatchString(line) {
				if len(line) > 300 {
					line = line[:300]
				}
				hits = append(hits, fmt.Sprintf("%s:%d: %s", rel, idx+1, line))
				if len(hits) >= limit {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if len(hits) == 0 {
		return Ok("(no matches)")
	}
	return Ok(strings.Join(hits, "\n"))
}

// compileGlob turns a shell-style wildcard pattern into an anchored
// regexp. `*` and `?` match any characters including path separators,
// matching the loose semantics the find/grep tools document.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for _, ch := range pattern {
		switch ch {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
