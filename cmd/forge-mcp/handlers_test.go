package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aichemist/forge-mcp/internal/cursordb"
	"github.com/aichemist/forge-mcp/internal/fsguard"
	"github.com/aichemist/forge-mcp/internal/pathfilter"
	"github.com/aichemist/forge-mcp/internal/prompts"
)

// setupRoot points the package globals at a fresh temp root and returns
// its resolved path.
func setupRoot(t *testing.T) string {
	t.Helper()

	svc, err := fsguard.New([]string{t.TempDir()}, 0)
	if err != nil {
		t.Fatalf("fsguard.New: %v", err)
	}
	guard = svc
	filter = pathfilter.New(nil)

	catalog, err := prompts.Load()
	if err != nil {
		t.Fatalf("prompts.Load: %v", err)
	}
	promptCatalog = catalog

	return svc.Roots()[0]
}

func textPayload(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("expected exactly one content item, got %+v", res)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func TestHandleDirectoryTree(t *testing.T) {
	root := setupRoot(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(root, "alpha.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "beta"), 0o755); err != nil {
		t.Fatal(err)
	}

	t.Run("mixed contents", func(t *testing.T) {
		res, _, err := handleDirectoryTree(ctx, nil, DirectoryTreeInput{Path: root})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := `[
  {
    "name": "alpha.txt",
    "type": "file"
  },
  {
    "name": "beta",
    "type": "directory"
  }
]`
		if got := textPayload(t, res); got != want {
			t.Errorf("payload mismatch:\ngot:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		empty := filepath.Join(root, "beta")
		res, _, err := handleDirectoryTree(ctx, nil, DirectoryTreeInput{Path: empty})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := textPayload(t, res); got != "[]" {
			t.Errorf("expected empty array, got %q", got)
		}
	})

	t.Run("relative path", func(t *testing.T) {
		res, _, err := handleDirectoryTree(ctx, nil, DirectoryTreeInput{Path: "relative/dir"})
		if !errors.Is(err, fsguard.ErrNotAbsolute) {
			t.Fatalf("expected ErrNotAbsolute, got %v", err)
		}
		if res == nil || !res.IsError {
			t.Error("expected error result")
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		res, _, err := handleDirectoryTree(ctx, nil, DirectoryTreeInput{Path: filepath.Join(root, "gone")})
		if !errors.Is(err, fsguard.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if res == nil || !res.IsError {
			t.Error("expected error result")
		}
	})

	t.Run("outside allowed roots", func(t *testing.T) {
		_, _, err := handleDirectoryTree(ctx, nil, DirectoryTreeInput{Path: "/etc"})
		if !errors.Is(err, fsguard.ErrOutsideRoots) {
			t.Fatalf("expected ErrOutsideRoots, got %v", err)
		}
	})
}

func TestHandleListDirectory(t *testing.T) {
	root := setupRoot(t)
	ctx := context.Background()

	for _, name := range []string{"main.go", "app.pyc", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"src", "node_modules"} {
		if err := os.Mkdir(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	_, out, err := handleListDirectory(ctx, nil, ListDirectoryInput{Path: root})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantFiles := []string{"main.go", "notes.txt"}
	if len(out.Files) != len(wantFiles) {
		t.Fatalf("expected files %v, got %v", wantFiles, out.Files)
	}
	for i, name := range wantFiles {
		if out.Files[i] != name {
			t.Errorf("expected files %v, got %v", wantFiles, out.Files)
		}
	}

	if len(out.Directories) != 1 || out.Directories[0] != "src" {
		t.Errorf("expected directories [src], got %v", out.Directories)
	}
}

func TestHandleReadFile(t *testing.T) {
	root := setupRoot(t)
	ctx := context.Background()

	path := filepath.Join(root, "data.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("full read", func(t *testing.T) {
		_, out, err := handleReadFile(ctx, nil, ReadFileInput{Path: path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Content != "one\ntwo\nthree" || out.TotalLines != 3 || out.Truncated {
			t.Errorf("unexpected output: %+v", out)
		}
	})

	t.Run("offset and limit", func(t *testing.T) {
		_, out, err := handleReadFile(ctx, nil, ReadFileInput{Path: path, Offset: 1, Limit: 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Content != "two" || !out.Truncated {
			t.Errorf("unexpected output: %+v", out)
		}
	})

	t.Run("offset past end", func(t *testing.T) {
		_, out, err := handleReadFile(ctx, nil, ReadFileInput{Path: path, Offset: 10})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Content != "" || !out.Truncated || out.TotalLines != 3 {
			t.Errorf("unexpected output: %+v", out)
		}
	})

	t.Run("directory", func(t *testing.T) {
		res, _, err := handleReadFile(ctx, nil, ReadFileInput{Path: root})
		if !errors.Is(err, fsguard.ErrIsDirectory) {
			t.Fatalf("expected ErrIsDirectory, got %v", err)
		}
		if res == nil || !res.IsError {
			t.Error("expected error result")
		}
	})
}

func TestHandleCursorDB_UnknownOperation(t *testing.T) {
	res, _, err := handleCursorDB(context.Background(), nil, CursorDBInput{Operation: "drop_tables"})
	if err == nil || !strings.Contains(err.Error(), "unknown operation") {
		t.Fatalf("expected unknown operation error, got %v", err)
	}
	if res == nil || !res.IsError {
		t.Error("expected error result")
	}
}

func TestPromptAnalyzeProjectStructure(t *testing.T) {
	root := setupRoot(t)

	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("missing path", func(t *testing.T) {
		_, err := promptAnalyzeProjectStructure(map[string]string{})
		if err == nil {
			t.Fatal("expected error for missing path argument")
		}
	})

	t.Run("renders listing", func(t *testing.T) {
		res, err := promptAnalyzeProjectStructure(map[string]string{
			"path":       root,
			"focus_area": "dependencies",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Messages) != 1 {
			t.Fatalf("expected one message, got %d", len(res.Messages))
		}
		text := res.Messages[0].Content.(*mcp.TextContent).Text
		if !strings.Contains(text, `"name": "go.mod"`) {
			t.Errorf("expected listing in prompt, got:\n%s", text)
		}
		if !strings.Contains(text, "## Analysis Focus: dependencies") {
			t.Errorf("expected focus area in prompt, got:\n%s", text)
		}
	})

	t.Run("unknown focus falls back", func(t *testing.T) {
		res, err := promptAnalyzeProjectStructure(map[string]string{
			"path":       root,
			"focus_area": "bogus",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := res.Messages[0].Content.(*mcp.TextContent).Text
		if !strings.Contains(text, "## Analysis Focus: "+prompts.DefaultFocusArea) {
			t.Errorf("expected default focus area, got:\n%s", text)
		}
	})
}

func TestPromptExploreCursorProjects(t *testing.T) {
	setupRoot(t)

	projectDir := filepath.Join(t.TempDir(), "demo-project")
	if err := os.Mkdir(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "state.vscdb"), []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	cursorDB = cursordb.New("", []string{projectDir})

	t.Run("lists projects", func(t *testing.T) {
		res, err := promptExploreCursorProjects(map[string]string{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := res.Messages[0].Content.(*mcp.TextContent).Text
		if !strings.Contains(text, "demo-project") {
			t.Errorf("expected project name in prompt, got:\n%s", text)
		}
		if !strings.Contains(text, "1 found") {
			t.Errorf("expected project count in prompt, got:\n%s", text)
		}
	})

	t.Run("filter excludes everything", func(t *testing.T) {
		res, err := promptExploreCursorProjects(map[string]string{"project_filter": "nomatch"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := res.Messages[0].Content.(*mcp.TextContent).Text
		if !strings.Contains(text, "No projects found") {
			t.Errorf("expected empty-list marker, got:\n%s", text)
		}
	})
}

func TestHandleCursorProjectsResource(t *testing.T) {
	projectDir := filepath.Join(t.TempDir(), "res-project")
	if err := os.Mkdir(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "state.vscdb"), []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	cursorDB = cursordb.New("", []string{projectDir})

	res, err := handleCursorProjectsResource(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Contents))
	}
	if res.Contents[0].MIMEType != "application/json" {
		t.Errorf("MIMEType = %q", res.Contents[0].MIMEType)
	}
	if !strings.Contains(res.Contents[0].Text, "res-project") {
		t.Errorf("expected project in payload, got:\n%s", res.Contents[0].Text)
	}
}
