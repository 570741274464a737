package tooling

import (
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ListFilesTool lists files and directories under a path, like ls.
type ListFilesTool struct {
	limit int
}

// NewListFilesTool creates the tool; limit caps the number of entries
// returned in one call.
func NewListFilesTool(limit int) *ListFilesTool {
	if limit <= 0 {
		limit = 20
	}
	return &ListFilesTool{limit: limit}
}

func (t *ListFilesTool) Name() string { return "list_files" }

func (t *ListFilesTool) Description() string {
	return "Lists files and directories in the specified directory (like the 'ls' command). " +
		"Supports optional recursive listing, hidden files, and filtering by file extension."
}

func (t *ListFilesTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Directory path to list. Defaults to the current directory."},
			"recursive": {"type": "boolean", "description": "If true, list files recursively in subdirectories."},
			"show_hidden": {"type": "boolean", "description": "If true, include entries starting with '.'."},
			"extensions": {"type": "array", "items": {"type": "string"}, "description": "Filter by file extensions, e.g. [\".go\", \".md\"]."}
		},
		"required": []
	}`)
}

type listedFile struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	root, _ := args["path"].(string)
	if root == "" {
		root = "."
	}
	recursive, _ := args["recursive"].(bool)
	showHidden, _ := args["show_hidden"].(bool)
	var extensions []string
	if raw, ok := args["extensions"].([]interface{}); ok {
		for _, e := range raw {
			if s, ok := e.(string); ok {
				extensions = append(extensions, s)
			}
		}
	}

	var files []listedFile
	truncated := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if !showHidden && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if len(files) >= t.limit {
			truncated = true
			return fs.SkipAll
		}
		if !d.IsDir() && !matchesExtension(name, extensions) {
			return nil
		}
		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, listedFile{Path: path, IsDir: d.IsDir(), Size: size})
		if d.IsDir() && !recursive {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	out, err := json.Marshal(map[string]interface{}{
		"status":    "success",
		"path":      root,
		"files":     files,
		"count":     len(files),
		"truncated": truncated,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func matchesExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
