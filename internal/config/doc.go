// Package config loads codeqa settings from YAML and the environment.
//
// Lookup order, later wins: built-in defaults, config.yaml (from --config,
// ~/.codeqa or the working directory), CODEQA_* environment variables.
// Keys map to variables by upper-casing and replacing dots, so search.top_k
// becomes CODEQA_SEARCH_TOP_K. OPENROUTER_API_KEY and APP_URL are accepted
// for the llm section.
package config
