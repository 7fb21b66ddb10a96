// Package cursordb reads Cursor IDE state databases (state.vscdb).
package cursordb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Tables Cursor keeps its key/value state in. Queries are restricted to
// these two names.
const (
	TableItems  = "ItemTable"
	TableDiskKV = "cursorDiskKV"
)

// Query types accepted by QueryTable.
const (
	QueryGetAll     = "get_all"
	QueryGetByKey   = "get_by_key"
	QuerySearchKeys = "search_keys"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000

	chatDataKey     = "workbench.panel.aichat.view.aichat.chatdata"
	composerDataKey = "composer.composerData"
)

var (
	// ErrProjectNotFound is returned when the named project has no
	// known state database.
	ErrProjectNotFound = errors.New("project not found")
	// ErrNoGlobalStorage is returned when the global storage database
	// was not detected.
	ErrNoGlobalStorage = errors.New("global storage database not found")
)

// Project is one detected Cursor workspace with a state database.
type Project struct {
	Name         string `json:"name"`
	DBPath       string `json:"dbPath"`
	WorkspaceDir string `json:"workspaceDir,omitempty"`
	FolderURI    string `json:"folderUri,omitempty"`
}

// Row is one key/value row from a state database. Value is the decoded
// JSON document when the stored value parses as JSON, the raw string
// otherwise.
type Row struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// RefreshResult describes the outcome of a database rescan.
type RefreshResult struct {
	Message       string `json:"message"`
	ProjectsFound int    `json:"projectsFound"`
	Change        int    `json:"change"`
}

// ComposerListing holds the composer IDs found in a project along with
// the full composer document they came from.
type ComposerListing struct {
	ComposerIDs []string `json:"composerIds"`
	FullData    any      `json:"fullData"`
}

// Service discovers Cursor projects and answers queries against their
// state databases.
type Service struct {
	cursorPath  string
	projectDirs []string

	mu           sync.RWMutex
	projects     map[string]Project
	globalDBPath string
}

// DefaultCursorPath returns the OS-conventional Cursor user directory,
// or "" when it does not exist.
func DefaultCursorPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	var path string
	switch runtime.GOOS {
	case "darwin":
		path = filepath.Join(home, "Library", "Application Support", "Cursor", "User")
	case "windows":
		path = filepath.Join(home, "AppData", "Roaming", "Cursor", "User")
	default:
		path = filepath.Join(home, ".config", "Cursor", "User")
	}

	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// New creates a Service rooted at cursorPath (the Cursor user
// directory; may be "" when Cursor is not installed) plus any explicit
// project directories containing a state.vscdb. An initial scan runs
// immediately.
func New(cursorPath string, projectDirs []string) *Service {
	s := &Service{
		cursorPath:  cursorPath,
		projectDirs: projectDirs,
		projects:    make(map[string]Project),
	}
	s.Refresh()
	return s
}

// Refresh rescans the workspace storage and explicit project
// directories, replacing the known project set.
func (s *Service) Refresh() RefreshResult {
	s.mu.Lock()
	oldCount := len(s.projects)
	s.mu.Unlock()

	projects := make(map[string]Project)
	for _, p := range s.detectWorkspaceProjects() {
		projects[p.Name] = p
	}

	var globalDBPath string
	if s.cursorPath != "" {
		globalPath := filepath.Join(s.cursorPath, "globalStorage", "state.vscdb")
		if _, err := os.Stat(globalPath); err == nil {
			globalDBPath = globalPath
		} else {
			slog.Warn("global storage database not found", "path", globalPath)
		}
	}

	for _, dir := range s.projectDirs {
		dbPath := filepath.Join(dir, "state.vscdb")
		if _, err := os.Stat(dbPath); err != nil {
			slog.Warn("no state.vscdb in project directory", "dir", dir)
			continue
		}
		name := filepath.Base(filepath.Clean(dir))
		projects[name] = Project{Name: name, DBPath: dbPath}
	}

	s.mu.Lock()
	s.projects = projects
	s.globalDBPath = globalDBPath
	newCount := len(s.projects)
	s.mu.Unlock()

	return RefreshResult{
		Message:       "Database paths refreshed",
		ProjectsFound: newCount,
		Change:        newCount - oldCount,
	}
}

// detectWorkspaceProjects scans <cursorPath>/workspaceStorage for
// workspace directories carrying both a workspace.json and a
// state.vscdb.
func (s *Service) detectWorkspaceProjects() []Project {
	if s.cursorPath == "" {
		return nil
	}

	storageDir := filepath.Join(s.cursorPath, "workspaceStorage")
	dirents, err := os.ReadDir(storageDir)
	if err != nil {
		slog.Warn("workspace storage directory not readable", "path", storageDir, "error", err)
		return nil
	}

	var candidates []string
	for _, d := range dirents {
		if d.IsDir() {
			candidates = append(candidates, filepath.Join(storageDir, d.Name()))
		}
	}

	// Workspace dirs are independent; inspect them in parallel.
	numWorkers := max(min(runtime.NumCPU(), len(candidates)), 1)

	dirCh := make(chan string, len(candidates))
	resultCh := make(chan Project, len(candidates))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			for dir := range dirCh {
				project, ok := inspectWorkspaceDir(dir)
				if ok {
					resultCh <- project
				}
			}
		})
	}

	for _, dir := range candidates {
		dirCh <- dir
	}
	close(dirCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var projects []Project
	for p := range resultCh {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Name < projects[j].Name
	})
	return projects
}

func inspectWorkspaceDir(dir string) (Project, bool) {
	workspaceJSON := filepath.Join(dir, "workspace.json")
	stateDB := filepath.Join(dir, "state.vscdb")

	if _, err := os.Stat(stateDB); err != nil {
		return Project{}, false
	}
	raw, err := os.ReadFile(workspaceJSON)
	if err != nil {
		return Project{}, false
	}

	var workspace struct {
		Folder string `json:"folder"`
	}
	if err := json.Unmarshal(raw, &workspace); err != nil {
		slog.Warn("invalid workspace.json", "dir", dir, "error", err)
		return Project{}, false
	}
	if workspace.Folder == "" {
		return Project{}, false
	}

	name := ProjectNameFromFolderURI(workspace.Folder)
	if name == "" {
		return Project{}, false
	}

	return Project{
		Name:         name,
		DBPath:       stateDB,
		WorkspaceDir: dir,
		FolderURI:    workspace.Folder,
	}, true
}

// ProjectNameFromFolderURI extracts the project name (last path
// segment, percent-decoded) from a workspace folder URI such as
// file:///home/user/src/my%20project.
func ProjectNameFromFolderURI(folderURI string) string {
	trimmed := strings.TrimSuffix(folderURI, "/")
	if trimmed == "" {
		return ""
	}

	path := trimmed
	if u, err := url.Parse(trimmed); err == nil && u.Path != "" {
		path = u.Path
	}

	segment := path[strings.LastIndex(path, "/")+1:]
	if decoded, err := url.PathUnescape(segment); err == nil {
		segment = decoded
	}
	return segment
}

// Projects returns the detected projects keyed by name.
func (s *Service) Projects() map[string]Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Project, len(s.projects))
	for name, p := range s.projects {
		out[name] = p
	}
	return out
}

// ProjectNames returns the detected project names, sorted.
func (s *Service) ProjectNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.projects))
	for name := range s.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Service) projectDBPath(projectName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectName]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, projectName)
	}
	return p.DBPath, nil
}

func openReadOnly(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	return db, nil
}

// QueryTable runs a key/value query against a project's state database.
// table must be TableItems or TableDiskKV; queryType selects between
// get_all, get_by_key and search_keys (LIKE on the key).
func (s *Service) QueryTable(projectName, table, queryType, key string, limit int) ([]Row, error) {
	dbPath, err := s.projectDBPath(projectName)
	if err != nil {
		return nil, err
	}
	if table != TableItems && table != TableDiskKV {
		return nil, fmt.Errorf("table must be %q or %q", TableItems, TableDiskKV)
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	db, err := openReadOnly(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var rows *sql.Rows
	switch queryType {
	case QueryGetAll:
		rows, err = db.Query(fmt.Sprintf("SELECT key, value FROM %s LIMIT ?", table), limit)
	case QueryGetByKey:
		if key == "" {
			return nil, errors.New("key required for get_by_key")
		}
		rows, err = db.Query(fmt.Sprintf("SELECT key, value FROM %s WHERE key = ?", table), key)
	case QuerySearchKeys:
		if key == "" {
			return nil, errors.New("key pattern required for search_keys")
		}
		rows, err = db.Query(fmt.Sprintf("SELECT key, value FROM %s WHERE key LIKE ? LIMIT ?", table), "%"+key+"%", limit)
	default:
		return nil, fmt.Errorf("unknown query type: %s", queryType)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var results []Row
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		results = append(results, Row{Key: key, Value: decodeValue(value.String)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return results, nil
}

// decodeValue parses stored values as JSON when possible, falling back
// to the raw string.
func decodeValue(raw string) any {
	if raw == "" {
		return raw
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}
	return decoded
}

// ChatData retrieves the AI chat panel state for a project.
func (s *Service) ChatData(projectName string) (any, error) {
	rows, err := s.QueryTable(projectName, TableItems, QueryGetByKey, chatDataKey, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no chat data found for project %s", projectName)
	}
	return rows[0].Value, nil
}

// ComposerIDs retrieves the composer IDs recorded for a project.
func (s *Service) ComposerIDs(projectName string) (ComposerListing, error) {
	rows, err := s.QueryTable(projectName, TableItems, QueryGetByKey, composerDataKey, 1)
	if err != nil {
		return ComposerListing{}, err
	}
	if len(rows) == 0 {
		return ComposerListing{}, fmt.Errorf("no composer data found for project %s", projectName)
	}

	ids := []string{}
	if doc, ok := rows[0].Value.(map[string]any); ok {
		if all, ok := doc["allComposers"].([]any); ok {
			for _, entry := range all {
				if composer, ok := entry.(map[string]any); ok {
					if id, ok := composer["composerId"].(string); ok {
						ids = append(ids, id)
					}
				}
			}
		}
	}

	return ComposerListing{ComposerIDs: ids, FullData: rows[0].Value}, nil
}

// ComposerData retrieves one composer document from global storage.
func (s *Service) ComposerData(composerID string) (any, error) {
	s.mu.RLock()
	globalDBPath := s.globalDBPath
	s.mu.RUnlock()

	if globalDBPath == "" {
		return nil, ErrNoGlobalStorage
	}

	db, err := openReadOnly(globalDBPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var value sql.NullString
	err = db.QueryRow("SELECT value FROM cursorDiskKV WHERE key = ?", "composerData:"+composerID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no data found for composer ID: %s", composerID)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return decodeValue(value.String), nil
}
