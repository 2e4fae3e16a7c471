// Package mcp implements the Model Context Protocol (MCP) server for codeqa.
//
// The server exposes six tools over stdio:
//   - upload_project: store a directory, ZIP archive or GitHub repository
//   - ask_question: answer a question from the most relevant snippets
//   - search_code: raw relevance search without an answer
//   - get_history: recent questions and answers of a project
//   - list_projects: uploaded projects
//   - get_status: backend, database and LLM health
//
// # Tool: ask_question
//
//	Request:
//	{
//	  "name": "ask_question",
//	  "arguments": {
//	    "project_id": "3f0c5b8e-6a2d-4c1e-9b7a-2d4f8e1a6c90",
//	    "question": "Where is the Express server started?"
//	  }
//	}
//
//	Response:
//	{
//	  "answer": "The server is started in src/server.js ...",
//	  "references": [
//	    {"filePath": "src/server.js", "startLine": 12, "endLine": 24, "snippet": "..."}
//	  ],
//	  "keywords": ["express", "server", "started"],
//	  "outcome": "ok",
//	  "provider": "openrouter"
//	}
//
// If the provider fails the answer quotes the start of the context block and
// "degraded" is set.
//
// # Tool: search_code
//
// Returns the engine output verbatim: snippets, contextForLlm, keywords and
// outcome. A "truncation" object appears when size bounds cut the input.
//
// # Error Handling
//
// Errors follow JSON-RPC conventions:
//
//	-32602: Invalid params (bad id, missing source, corrupt archive)
//	-32603: Internal error
//	-32001: Project not found
//	-32002: Upload already in progress
//	-32003: Project has no files
//	-32004: Empty question or query
//	-32005: LLM unavailable
//	-32006: GitHub import failed
//
// Only one upload runs at a time; a concurrent upload_project call fails
// fast with -32002 instead of queueing.
package mcp
