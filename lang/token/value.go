package token

// Value carries the semantic payload of a scanned token: its position and,
// depending on the token kind, a numeric or string value.
type Value struct {
	Pos    Pos
	String string  // NAME, STRING literal content, or the raw text of a NUMBER
	Number float64 // parsed value of a NUMBER token
	IsInt  bool    // true if the NUMBER token's literal had no '.' or exponent
}
