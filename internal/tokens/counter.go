package tokens

// Counter reports how many model tokens a piece of text consumes.
type Counter interface {
	// Count returns the token count for the given text.
	Count(text string) int

	// Name identifies the counting scheme.
	Name() string
}

// heuristicCharsPerToken is the approximation used when no real tokenizer
// is available: one token per four characters of text.
const heuristicCharsPerToken = 4

// HeuristicCounter approximates token counts from byte length. It is less
// accurate than a real tokenizer but never needs vocabulary data.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	return len(text) / heuristicCharsPerToken
}

func (HeuristicCounter) Name() string {
	return "heuristic"
}

// NewCounter returns the most accurate counter available: the cl100k_base
// tokenizer when its vocabulary can be loaded, otherwise the 4-chars-per-token
// heuristic. The returned counter never fails at call sites.
func NewCounter() Counter {
	if c, err := NewTiktokenCounter(); err == nil {
		return c
	}
	return HeuristicCounter{}
}
