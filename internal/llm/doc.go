// Package llm turns a question and its assembled code context into an answer.
//
// Two providers implement Answerer:
//
//   - openrouter: OpenRouter chat completions with retry on 5xx and 429
//     responses, plus an optional LRU answer cache
//   - local: an offline answer listing the files named in the context
//
// # Provider Selection
//
//  1. If CODEQA_LLM_PROVIDER is set → use specified provider
//  2. Else if OPENROUTER_API_KEY is set → use OpenRouter
//  3. Else → local
//
// Callers that cannot reach the provider should reply with FallbackAnswer,
// which quotes the start of the context block.
package llm
