package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResearchTool_Name(t *testing.T) {
	tool := researchTool()
	assert.Equal(t, ToolNameResearch, tool.OfTool.Name)
}

func TestAskUserTool_Name(t *testing.T) {
	tool := askUserTool()
	assert.Equal(t, ToolNameAskUser, tool.OfTool.Name)
}
