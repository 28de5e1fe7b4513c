package tools

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var errEscapesWorkspace = errors.New("path escapes workspace")

// safeJoin resolves a workspace-relative path and fails closed when the
// result is not inside or equal to the workspace root.
func safeJoin(root, value string) (string, error) {
	candidate := filepath.Clean(filepath.Join(root, value))
	if candidate == root {
		return candidate, nil
	}
	if !strings.HasPrefix(candidate, root+string(filepath.Separator)) {
		return "", errEscapesWorkspace
	}
	return candidate, nil
}

func stringArg(args map[string]any, key, fallback string) string {
	value, ok := args[key]
	if !ok || value == nil {
		return fallback
	}
	switch v := value.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intArg(args map[string]any, key string, fallback int) int {
	value, ok := args[key]
	if !ok || value == nil {
		return fallback
	}
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func boolArg(args map[string]any, key string, fallback bool) bool {
	value, ok := args[key]
	if !ok || value == nil {
		return fallback
	}
	if v, ok := value.(bool); ok {
		return v
	}
	return fallback
}
