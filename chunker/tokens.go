package chunker

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// TokenCounter counts encoder tokens in a text.
type TokenCounter interface {
	Count(text string) int
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

// tiktokenCounter counts cl100k_base tokens. The encoding tables ship with
// the offline loader, so no network access happens at startup.
type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func newTiktokenCounter() (*tiktokenCounter, error) {
	encodingOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		encoding, encodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	if encodingErr != nil {
		return nil, encodingErr
	}
	return &tiktokenCounter{encoding: encoding}, nil
}

func (c *tiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}
