package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName is the BPE encoding shared by the GPT-3.5/4 chat models and
// the text-embedding model family.
const encodingName = "cl100k_base"

// TiktokenCounter counts tokens with the cl100k_base tokenizer.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the cl100k_base encoding. It returns an error when
// the vocabulary cannot be loaded (for example with no network access and no
// local cache), in which case callers should fall back to HeuristicCounter.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encodingName, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

func (c *TiktokenCounter) Name() string {
	return encodingName
}
