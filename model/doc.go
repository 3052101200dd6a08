// Package model defines the contract with the language-model backend that
// produces agent replies. The orchestrator never talks to a provider
// directly; agents build a Request from conversation history and receive a
// single Response with token usage attached for cost accounting.
//
// Subpackages openai and anthropic adapt the official provider SDKs to this
// interface. MockModel provides deterministic canned replies for tests.
package model
