package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// projectIDProperty is shared by every per-project tool
var projectIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Project id (UUID) returned by upload_project or list_projects",
}

// uploadProjectTool returns the tool definition for upload_project
func uploadProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "upload_project",
		Description: "Store the code files of a directory, ZIP archive or public GitHub repository as a new project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a project directory",
				},
				"zip_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a .zip archive of the project",
				},
				"github_url": map[string]interface{}{
					"type":        "string",
					"description": "Public repository URL, e.g. https://github.com/owner/repo (main, then master branch)",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Display name (defaults to the directory, archive or repository name)",
				},
			},
		},
	}
}

// askQuestionTool returns the tool definition for ask_question
func askQuestionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question about an uploaded project using the most relevant code snippets",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectIDProperty,
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question about the codebase",
				},
			},
			Required: []string{"project_id", "question"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Rank a project's files for a question and return the matching snippets and context block",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectIDProperty,
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or identifiers)",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of files to return (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"project_id", "query"},
		},
	}
}

// getHistoryTool returns the tool definition for get_history
func getHistoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_history",
		Description: "List the most recent questions and answers of a project, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectIDProperty,
			},
			Required: []string{"project_id"},
		},
	}
}

// listProjectsTool returns the tool definition for list_projects
func listProjectsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_projects",
		Description: "List uploaded projects, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report backend, database and LLM connectivity",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
