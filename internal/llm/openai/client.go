package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/llm"
)

var _ llm.ChatModel = (*Client)(nil)

// StreamChat implements llm.ChatModel over the streaming chat/completions API.
// Text deltas are forwarded as they arrive; tool calls are assembled from their
// fragments and returned once the stream ends.
func (c *Client) StreamChat(ctx context.Context, req llm.ChatRequest, onDelta llm.DeltaFunc) (llm.ChatResponse, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	c.logger.Info("llm.chat.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
	)

	stream, err := c.api.CreateChatCompletionStream(ctx, c.buildRequest(req))
	if err != nil {
		c.logger.Error("llm.chat.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ChatResponse{}, fmt.Errorf("%w: openai stream: %w", common.ErrUpstream, err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			c.logger.Warn("openai stream close error", "error", err)
		}
	}()

	var (
		content strings.Builder
		finish  string
		calls   = map[int]*llm.ToolCall{}
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.logger.Error("llm.chat.stream_error",
				"req_id", rid, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.ChatResponse{}, fmt.Errorf("%w: openai stream recv: %w", common.ErrUpstream, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			finish = string(choice.FinishReason)
		}
		if d := choice.Delta.Content; d != "" {
			content.WriteString(d)
			if onDelta != nil {
				if err := onDelta(d); err != nil {
					return llm.ChatResponse{}, fmt.Errorf("deliver delta: %w", err)
				}
			}
		}
		for i, tc := range choice.Delta.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := calls[idx]
			if !ok {
				acc = &llm.ToolCall{}
				calls[idx] = acc
			}
			if tc.ID != "" {
				acc.ID = tc.ID
			}
			if acc.Name == "" {
				acc.Name = tc.Function.Name
			}
			acc.Arguments += tc.Function.Arguments
		}
	}

	out := llm.ChatResponse{Content: content.String(), FinishReason: finish}
	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		tc := *calls[idx]
		if tc.ID == "" {
			tc.ID = "call_" + uuid.New().String()
		}
		out.ToolCalls = append(out.ToolCalls, tc)
	}

	c.logger.Info("llm.chat.ok",
		"req_id", rid,
		"content_len", len(out.Content),
		"tool_calls", len(out.ToolCalls),
		"finish_reason", finish,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) buildRequest(req llm.ChatRequest) goopenai.ChatCompletionRequest {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		msg := goopenai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		msgs = append(msgs, msg)
	}

	out := goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      true,
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
