// Package testutil provides deterministic helpers for tests and the
// scenario harness: fixed session tokens and scripted frame sequences.
// The engine itself never imports this package.
package testutil

// FixedTokenGenerator returns the same session token every time.
//
// This enables deterministic harness runs and golden snapshot comparison:
// the same scenario with the same token produces byte-identical traces.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a fixed session token generator.
// If token is empty, Generate() returns "test-session".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-session"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed token.
//
// Implements engine.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
