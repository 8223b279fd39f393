package token

// Overridden in tests.
var (
	GenerateJWTFunc = GenerateJWT
	ParseJWTFunc    = ParseJWT
)

// ParseJWTWrapper lets the connection gate be tested with a stubbed parser.
func ParseJWTWrapper(t string) (*Claims, error) {
	return ParseJWTFunc(t)
}
