package llm

import (
	"context"
	"sync"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/domain/conversation"
)

// ScriptedClient replays a fixed sequence of responses. It backs dry runs
// and tests where no provider should be reached. Once the script is
// exhausted it keeps returning the last response.
type ScriptedClient struct {
	mu        sync.Mutex
	model     string
	responses []string
	errs      []error
	CallCount int
}

// NewScriptedClient creates a client that replays responses in order.
func NewScriptedClient(model string, responses ...string) *ScriptedClient {
	return &ScriptedClient{model: model, responses: responses}
}

// FailWith schedules err to be returned for the call at the given index.
func (c *ScriptedClient) FailWith(index int, err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.errs) <= index {
		c.errs = append(c.errs, nil)
	}
	c.errs[index] = err
	return c
}

// Model returns the scripted model name.
func (c *ScriptedClient) Model() string { return c.model }

// Chat returns the next scripted response.
func (c *ScriptedClient) Chat(ctx context.Context, _ []conversation.Message) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.CallCount
	c.CallCount++

	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}

	content := ""
	if len(c.responses) > 0 {
		if i >= len(c.responses) {
			i = len(c.responses) - 1
		}
		content = c.responses[i]
	}

	return &Response{
		Content:   content,
		Model:     c.model,
		TokensIn:  len(content) / 4,
		TokensOut: len(content) / 4,
		Timestamp: time.Now(),
	}, nil
}
