package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)

	defs := catalog.Templates()
	require.Len(t, defs, 2)
	assert.Equal(t, "analyze_project_structure", defs[0].Name)
	assert.Equal(t, "explore_cursor_projects", defs[1].Name)

	require.NotEmpty(t, defs[0].Arguments)
	assert.Equal(t, "path", defs[0].Arguments[0].Name)
	assert.True(t, defs[0].Arguments[0].Required)
}

func TestCatalog_FocusInstruction(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)

	area, instruction := catalog.FocusInstruction("dependencies")
	assert.Equal(t, "dependencies", area)
	assert.Contains(t, instruction, "dependency")

	area, instruction = catalog.FocusInstruction("nonsense")
	assert.Equal(t, DefaultFocusArea, area)
	assert.NotEmpty(t, instruction)

	area, _ = catalog.FocusInstruction("  Architecture ")
	assert.Equal(t, "architecture", area)
}

func TestCatalog_Render(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)

	t.Run("analyze_project_structure", func(t *testing.T) {
		content, err := catalog.Render("analyze_project_structure", struct {
			FocusArea        string
			FocusInstruction string
			Listing          string
		}{"architecture", "Look at the modules.", `[{"name":"a.txt","type":"file"}]`})
		require.NoError(t, err)

		assert.Contains(t, content, "Look at the modules.")
		assert.Contains(t, content, `"name":"a.txt"`)
		assert.Contains(t, content, "## Analysis Focus: architecture")
	})

	t.Run("explore_cursor_projects", func(t *testing.T) {
		content, err := catalog.Render("explore_cursor_projects", struct {
			Count       int
			ProjectList string
		}{2, "- proj-a\n- proj-b\n"})
		require.NoError(t, err)

		assert.Contains(t, content, "2 found")
		assert.Contains(t, content, "proj-a")
	})

	t.Run("unknown prompt", func(t *testing.T) {
		_, err := catalog.Render("missing", nil)
		assert.Error(t, err)
	})
}
