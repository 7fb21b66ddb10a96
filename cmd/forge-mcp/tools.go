package main

import "github.com/modelcontextprotocol/go-sdk/mcp"

type (
	// DirectoryTreeInput contains parameters for the directory_tree tool.
	DirectoryTreeInput struct {
		Path string `json:"path" jsonschema:"Absolute path of the directory to list (e.g. /srv/project_files). Relative paths are not supported."`
	}

	// ListDirectoryInput contains parameters for the list_directory tool.
	ListDirectoryInput struct {
		Path string `json:"path" jsonschema:"Absolute path of the directory to list"`
	}

	// ListDirectoryOutput contains the filtered, sorted directory listing.
	ListDirectoryOutput struct {
		Files       []string `json:"files"`
		Directories []string `json:"directories"`
	}

	// ReadFileInput contains parameters for the read_file tool.
	ReadFileInput struct {
		Path   string `json:"path" jsonschema:"Absolute path of the file to read"`
		Offset int    `json:"offset,omitempty" jsonschema:"Line offset to start reading from (default: 0)"`
		Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of lines to return (default: all)"`
	}

	// ReadFileOutput contains the result of reading a file.
	ReadFileOutput struct {
		Content    string `json:"content"`
		TotalLines int    `json:"totalLines"`
		Truncated  bool   `json:"truncated,omitempty"`
	}

	// CursorDBInput contains parameters for the cursor_db tool.
	CursorDBInput struct {
		Operation   string `json:"operation" jsonschema:"Operation to perform: list_projects, query_table, refresh_databases, get_chat_data, get_composer_ids or get_composer_data"`
		ProjectName string `json:"projectName,omitempty" jsonschema:"Project name (required for project-specific operations)"`
		TableName   string `json:"tableName,omitempty" jsonschema:"Database table to query: ItemTable or cursorDiskKV (for query_table)"`
		QueryType   string `json:"queryType,omitempty" jsonschema:"Query type: get_all, get_by_key or search_keys (for query_table)"`
		Key         string `json:"key,omitempty" jsonschema:"Key for get_by_key or search pattern for search_keys"`
		Limit       int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default: 100, max: 1000)"`
		Detailed    bool   `json:"detailed,omitempty" jsonschema:"Return detailed project information (for list_projects)"`
		ComposerID  string `json:"composerId,omitempty" jsonschema:"Composer ID (for get_composer_data)"`
	}
)

func boolPtr(b bool) *bool { return &b }

// readOnlyHints marks a tool as a closed-world, non-destructive read.
func readOnlyHints() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:    true,
		IdempotentHint:  false,
		DestructiveHint: boolPtr(false),
		OpenWorldHint:   boolPtr(false),
	}
}

func registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "directory_tree",
		Description: "Generates a view of a directory's immediate contents as a JSON formatted string. " +
			"Each item includes 'name' and 'type' ('file' or 'directory'). " +
			"This provides a structured overview of a directory, useful for exploration and context gathering. " +
			"IMPORTANT: The path provided MUST be an absolute path (e.g. /srv/project_files). Relative paths are not supported. " +
			"The operation is restricted to pre-configured allowed directories on the server.",
		Annotations: readOnlyHints(),
	}, handleDirectoryTree)

	mcp.AddTool(server, &mcp.Tool{
		Name: "list_directory",
		Description: "List files and subdirectories of a directory, sorted by name, with build artifacts " +
			"and hidden entries filtered out. The path must be absolute and inside the allowed directories.",
		Annotations: readOnlyHints(),
	}, handleListDirectory)

	mcp.AddTool(server, &mcp.Tool{
		Name: "read_file",
		Description: "Read a file inside the allowed directories. Supports pagination with offset/limit " +
			"for large files. The path must be absolute.",
		Annotations: readOnlyHints(),
	}, handleReadFile)

	mcp.AddTool(server, &mcp.Tool{
		Name: "cursor_db",
		Description: "Query Cursor IDE state databases: list detected projects, query their key/value " +
			"tables, and retrieve AI chat and composer data.",
		Annotations: readOnlyHints(),
	}, handleCursorDB)
}

func registerPrompts(server *mcp.Server) {
	for _, def := range promptCatalog.Templates() {
		args := make([]*mcp.PromptArgument, 0, len(def.Arguments))
		for _, a := range def.Arguments {
			args = append(args, &mcp.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		server.AddPrompt(&mcp.Prompt{
			Name:        def.Name,
			Description: def.Description,
			Arguments:   args,
		}, handlePrompt)
	}
}

func registerResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         "cursor://projects",
		Name:        "cursor-projects",
		Description: "Cursor IDE projects detected on this machine",
		MIMEType:    "application/json",
	}, handleCursorProjectsResource)
}
