// Package qa ties search, answer generation and history together.
//
// Ask validates the request, runs the relevance search over the project's
// files, asks the configured llm.Answerer and records the exchange. Provider
// failures never fail a question: the reply falls back to quoting the start
// of the assembled context. Each project keeps its ten most recent exchanges.
package qa
