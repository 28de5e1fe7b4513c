package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const defaultReadCap = 20000

func (r *Registry) listFilesSpec() Spec {
	return Spec{
		Name:        "list_files",
		Description: "List files under a workspace-relative path",
		Parameters: objectSchema(map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Workspace-relative path",
			},
		}, "path"),
		Handler: r.listFiles,
	}
}

func (r *Registry) listFiles(ctx context.Context, args map[string]any) Result {
	target, err := safeJoin(r.workspace, stringArg(args, "path", "."))
	if err != nil {
		return Fail("%v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return Fail("Path not found: %s", target)
	}
	if !info.IsDir() {
		rel, _ := filepath.Rel(r.workspace, target)
		return Ok(rel)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return Fail("list %s: %v", target, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		rel, _ := filepath.Rel(r.workspace, filepath.Join(target, entry.Name()))
		if entry.IsDir() {
			rel += "/"
		}
		lines = append(lines, rel)
	}
	if len(lines) == 0 {
		return Ok("(empty)")
	}
	return Ok(strings.Join(lines, "\n"))
}

func (r *Registry) readFileSpec() Spec {
	return Spec{
		Name:        "read_file",
		Description: "Read text file content",
		Parameters: objectSchema(map[string]any{
			"path": map[string]any{"type": "string"},
			"max_chars": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 200000,
			},
		}, "path"),
		Handler: r.readFile,
	}
}

func (r *Registry) readFile(ctx context.Context, args map[string]any) Result {
	target, err := safeJoin(r.workspace, stringArg(args, "path", ""))
	if err != nil {
		return Fail("%v", err)
	}
	maxChars := intArg(args, "max_chars", defaultReadCap)

	raw, err := os.ReadFile(target)
	if err != nil {
		return Fail("read %s: %v", target, err)
	}
	content := string(raw)
	if len(content) > maxChars {
		content = content[:maxChars] + "\n...[truncated]"
	}
	return Ok(content)
}

func (r *Registry) writeFileSpec() Spec {
	return Spec{
		Name:        "write_file",
		Description: "Write text to a workspace file",
		Parameters: objectSchema(map[string]any{
			"path":    map[string]any{"type": "string"},
			"content": map[string]any{"type": "string"},
			"append":  map[string]any{"type": "boolean"},
		}, "path", "content"),
		Handler: r.writeFile,
	}
}

func (r *Registry) writeFile(ctx context.Context, args map[string]any) Result {
	target, err := safeJoin(r.workspace, stringArg(args, "path", ""))
	if err != nil {
		return Fail("%v", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Fail("create parent dir: %v", err)
	}

	content := ""
	switch v := args["content"].(type) {
	case string:
		content = v
	default:
		// Non-string content is serialized so the model can still persist
		// structured values through this tool.
		raw, err := json.Marshal(v)
		if err != nil {
			return Fail("encode content: %v", err)
		}
		content = string(raw)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if boolArg(args, "append", false) {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	fh, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		return Fail("open %s: %v", target, err)
	}
	written, err := fh.WriteString(content)
	closeErr := fh.Close()
	if err != nil {
		return Fail("write %s: %v", target, err)
	}
	if closeErr != nil {
		return Fail("close %s: %v", target, closeErr)
	}

	rel, _ := filepath.Rel(r.workspace, target)
	return Ok(fmt.Sprintf("Wrote file: %s (%d chars)", rel, written))
}

func (r *Registry) readJSONSpec() Spec {
	return Spec{
		Name:        "read_json",
		Description: "Read a JSON file from workspace",
		Parameters: objectSchema(map[string]any{
			"path": map[string]any{"type": "string"},
		}, "path"),
		Handler: r.readJSON,
	}
}

func (r *Registry) readJSON(ctx context.Context, args map[string]any) Result {
	target, err := safeJoin(r.workspace, stringArg(args, "path", ""))
	if err != nil {
		return Fail("%v", err)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		return Fail("read %s: %v", target, err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return Fail("parse %s: %v", target, err)
	}
	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return Fail("encode %s: %v", target, err)
	}
	return Ok(string(pretty))
}

func (r *Registry) writeJSONSpec() Spec {
	return Spec{
		Name:        "write_json",
		Description: "Write JSON data to a workspace file",
		Parameters: objectSchema(map[string]any{
			"path":   map[string]any{"type": "string"},
			"data":   map[string]any{"description": "Any JSON value"},
			"indent": map[string]any{"type": "integer", "minimum": 0, "maximum": 8},
		}, "path", "data"),
		Handler: r.writeJSON,
	}
}

func (r *Registry) writeJSON(ctx context.Context, args map[string]any) Result {
	target, err := safeJoin(r.workspace, stringArg(args, "path", ""))
	if err != nil {
		return Fail("%v", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Fail("create parent dir: %v", err)
	}

	indent := intArg(args, "indent", 2)
	var raw []byte
	if indent > 0 {
		raw, err = json.MarshalIndent(args["data"], "", spaces(indent))
	} else {
		raw, err = json.Marshal(args["data"])
	}
	if err != nil {
		return Fail("encode data: %v", err)
	}
	if err := os.WriteFile(target, raw, 0o644); err != nil {
		return Fail("write %s: %v", target, err)
	}

	rel, _ := filepath.Rel(r.workspace, target)
	return Ok(fmt.Sprintf("Wrote JSON file: %s", rel))
}

func spaces(n int) string {
	return strings.Repeat(" ", n)
}
