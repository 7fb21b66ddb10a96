package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aichemist/forge-mcp/internal/listing"
)

// handleDirectoryTree lists the immediate contents of a directory and
// returns them as a pretty-printed JSON array of {name, type} objects.
// The listing is a single level deep; entries keep the order the guard
// produced and are neither filtered nor deduplicated. Any failure from
// the guard or the encoder surfaces unchanged as a tool error.
func handleDirectoryTree(ctx context.Context, req *mcp.CallToolRequest, input DirectoryTreeInput) (*mcp.CallToolResult, any, error) {
	entries, err := guard.ListDirectory(input.Path)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, nil, err
	}

	text, err := listing.Render(listing.Snapshot(entries))
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, nil, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

func handleListDirectory(ctx context.Context, req *mcp.CallToolRequest, input ListDirectoryInput) (*mcp.CallToolResult, ListDirectoryOutput, error) {
	entries, err := guard.ListDirectory(input.Path)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ListDirectoryOutput{}, err
	}

	files := []string{}
	directories := []string{}
	for _, item := range listing.Snapshot(entries) {
		if item.Type == listing.TypeDirectory {
			if filter.AllowDir(item.Name) {
				directories = append(directories, item.Name)
			}
		} else if filter.AllowFile(item.Name) {
			files = append(files, item.Name)
		}
	}

	sort.Strings(files)
	sort.Strings(directories)

	return nil, ListDirectoryOutput{Files: files, Directories: directories}, nil
}

func handleReadFile(ctx context.Context, req *mcp.CallToolRequest, input ReadFileInput) (*mcp.CallToolResult, ReadFileOutput, error) {
	content, err := guard.ReadFile(input.Path)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ReadFileOutput{}, err
	}

	lines := strings.Split(string(content), "\n")
	totalLines := len(lines)

	offset := max(input.Offset, 0)
	if offset >= totalLines {
		return nil, ReadFileOutput{
			Content:    "",
			TotalLines: totalLines,
			Truncated:  true,
		}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = totalLines
	}

	endIdx := offset + limit
	truncated := false
	if endIdx >= totalLines {
		endIdx = totalLines
	} else {
		truncated = true
	}

	return nil, ReadFileOutput{
		Content:    strings.Join(lines[offset:endIdx], "\n"),
		TotalLines: totalLines,
		Truncated:  truncated,
	}, nil
}

// handleCursorDB dispatches on the operation field and returns the
// result as pretty-printed JSON text, mirroring the filesystem tools.
func handleCursorDB(ctx context.Context, req *mcp.CallToolRequest, input CursorDBInput) (*mcp.CallToolResult, any, error) {
	var result any
	var err error

	switch input.Operation {
	case "list_projects":
		if input.Detailed {
			result = cursorDB.Projects()
		} else {
			paths := make(map[string]string)
			for name, p := range cursorDB.Projects() {
				paths[name] = p.DBPath
			}
			result = paths
		}
	case "query_table":
		result, err = cursorDB.QueryTable(input.ProjectName, input.TableName, input.QueryType, input.Key, input.Limit)
	case "refresh_databases":
		result = cursorDB.Refresh()
	case "get_chat_data":
		result, err = cursorDB.ChatData(input.ProjectName)
	case "get_composer_ids":
		result, err = cursorDB.ComposerIDs(input.ProjectName)
	case "get_composer_data":
		result, err = cursorDB.ComposerData(input.ComposerID)
	default:
		err = fmt.Errorf("unknown operation: %s", input.Operation)
	}
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, nil, err
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
	}, nil, nil
}

func handlePrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch req.Params.Name {
	case "analyze_project_structure":
		return promptAnalyzeProjectStructure(req.Params.Arguments)
	case "explore_cursor_projects":
		return promptExploreCursorProjects(req.Params.Arguments)
	}
	return nil, fmt.Errorf("unknown prompt: %s", req.Params.Name)
}

func promptAnalyzeProjectStructure(args map[string]string) (*mcp.GetPromptResult, error) {
	path := strings.TrimSpace(args["path"])
	if path == "" {
		return nil, fmt.Errorf("argument 'path' is required")
	}

	entries, err := guard.ListDirectory(path)
	if err != nil {
		return nil, err
	}
	dirListing, err := listing.Render(listing.Snapshot(entries))
	if err != nil {
		return nil, err
	}

	focusArea, instruction := promptCatalog.FocusInstruction(args["focus_area"])
	content, err := promptCatalog.Render("analyze_project_structure", struct {
		FocusArea        string
		FocusInstruction string
		Listing          string
	}{focusArea, instruction, dirListing})
	if err != nil {
		return nil, err
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Analyze project structure for %s", path),
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: content}},
		},
	}, nil
}

func promptExploreCursorProjects(args map[string]string) (*mcp.GetPromptResult, error) {
	nameFilter := strings.ToLower(strings.TrimSpace(args["project_filter"]))

	projects := cursorDB.Projects()
	names := make([]string, 0, len(projects))
	for name := range projects {
		if nameFilter != "" && !strings.Contains(strings.ToLower(name), nameFilter) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "- **%s** (%s)\n", name, projects[name].DBPath)
	}
	if len(names) == 0 {
		sb.WriteString("_No projects found._\n")
	}

	content, err := promptCatalog.Render("explore_cursor_projects", struct {
		Count       int
		ProjectList string
	}{len(names), sb.String()})
	if err != nil {
		return nil, err
	}

	return &mcp.GetPromptResult{
		Description: "Explore Cursor IDE projects",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: content}},
		},
	}, nil
}

func handleCursorProjectsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(cursorDB.Projects(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode projects: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      "cursor://projects",
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
