package tokens

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Counter estimates token counts for prompt text.
type Counter interface {
	CountTokens(text string) (int, error)
}

// TiktokenCounter counts tokens with the tiktoken BPE tables.
type TiktokenCounter struct {
	encodingName string
	tke          *tiktoken.Tiktoken
	mu           sync.RWMutex
}

// NewTiktokenCounter creates a counter for the given model or encoding name,
// falling back to cl100k_base when the specific one is unavailable.
func NewTiktokenCounter(modelOrEncoding string) (*TiktokenCounter, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = defaultEncoding
	}
	encodingName := modelOrEncoding
	tke, err := tiktoken.GetEncoding(modelOrEncoding)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(modelOrEncoding)
		if err != nil {
			tke, err = tiktoken.GetEncoding(defaultEncoding)
			if err != nil {
				return nil, fmt.Errorf("failed to get default encoding %q: %w", defaultEncoding, err)
			}
			encodingName = defaultEncoding
		}
	}
	return &TiktokenCounter{encodingName: encodingName, tke: tke}, nil
}

func (c *TiktokenCounter) CountTokens(text string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tke == nil {
		return 0, fmt.Errorf("tiktoken encoder is not initialized for encoding %s", c.encodingName)
	}
	return len(c.tke.Encode(text, nil, nil)), nil
}

func (c *TiktokenCounter) Encoding() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.encodingName
}

// HeuristicCounter approximates tokens as ceil(runes/4). It backs the budget
// floor when no BPE tables are available (e.g. offline environments).
type HeuristicCounter struct{}

func (HeuristicCounter) CountTokens(text string) (int, error) {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4, nil
}
