package testutil

// DefaultSession is the session token used when a scenario names none.
const DefaultSession = "test-session-default"

// FixedSessionGenerator hands out the same session token on every call,
// unlike runtime.FixedGenerator which runs out.
type FixedSessionGenerator struct {
	token string
}

// NewFixedSessionGenerator returns a generator for token, or for
// DefaultSession when token is empty.
func NewFixedSessionGenerator(token string) *FixedSessionGenerator {
	if token == "" {
		token = DefaultSession
	}
	return &FixedSessionGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedSessionGenerator) Generate() string {
	return g.token
}
