package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"callrounded-manager/internal/platform"
	"callrounded-manager/pkg/logger"
	"callrounded-manager/pkg/utils"
)

var ErrBusy = errors.New("llm: too many concurrent requests")

const (
	agentReadyOpen  = "[AGENT_READY]"
	agentReadyClose = "[/AGENT_READY]"
	slotTTL         = 2 * time.Minute
)

const systemPrompt = `You are an expert assistant that helps administrators build voice receptionist agents.

## Your job
Ask the right questions to configure a phone receptionist and extract what is needed.

## Information to collect
1. Agent name, e.g. "Elegance Receptionist"
2. Business type: hair salon, restaurant, medical practice...
3. Description of what the agent does
4. Greeting used when answering the phone
5. Language, fr-FR by default
6. Voice, female or male

## Instructions
- Ask natural questions to collect the information
- Suggest defaults based on the business type
- Once you have enough, summarise what you will create and ask for confirmation
- Stay professional and friendly

## Answer format
When the user confirms, include in your answer:
[AGENT_READY]
{"name": "...", "description": "...", "greeting": "...", "language": "fr-FR", "voice": "female"}
[/AGENT_READY]`

type Chatter interface {
	Chat(ctx context.Context, messages []Message) (Result, error)
}

type AgentCreator interface {
	CreateAgent(ctx context.Context, in platform.AgentCreate) (*platform.Agent, error)
}

type AgentPreview struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Greeting    string `json:"greeting,omitempty"`
	Voice       string `json:"voice,omitempty"`
	Language    string `json:"language,omitempty"`
}

type ChatRequest struct {
	Messages      []Message `json:"messages" binding:"required,min=1,dive"`
	ConfirmCreate bool      `json:"confirm_create"`
}

type Action struct {
	Type   string          `json:"type"`
	Status string          `json:"status"`
	Agent  *platform.Agent `json:"agent,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type ChatResponse struct {
	Message      string        `json:"message"`
	AgentPreview *AgentPreview `json:"agent_preview"`
	Action       *Action       `json:"action"`
}

// AgentBuilder runs the agent-builder conversation for admins.
type AgentBuilder struct {
	chat          Chatter
	agents        AgentCreator
	rdb           redis.Scripter
	maxConcurrent int
}

// NewAgentBuilder wires the builder. rdb may be nil, which disables the
// per-admin concurrency cap.
func NewAgentBuilder(chat Chatter, agents AgentCreator, rdb redis.Scripter, maxConcurrent int) *AgentBuilder {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &AgentBuilder{chat: chat, agents: agents, rdb: rdb, maxConcurrent: maxConcurrent}
}

func (b *AgentBuilder) Enabled() bool { return b != nil && b.chat != nil }

func (b *AgentBuilder) Chat(ctx context.Context, adminID uint, req ChatRequest) (ChatResponse, error) {
	if !b.Enabled() {
		return ChatResponse{}, ErrNotConfigured
	}
	log := logger.From(ctx)

	if b.rdb != nil {
		key := fmt.Sprintf("llm:inflight:%d", adminID)
		ok, err := utils.AcquireConcurrencyCap(ctx, b.rdb, key, b.maxConcurrent, slotTTL)
		if err != nil {
			log.Warn("llm concurrency cap unavailable", "err", err)
		} else if !ok {
			return ChatResponse{}, ErrBusy
		} else {
			defer func() {
				if err := utils.ReleaseConcurrencyCap(context.WithoutCancel(ctx), b.rdb, key); err != nil {
					log.Warn("llm concurrency release failed", "err", err)
				}
			}()
		}
	}

	msgs := make([]Message, 0, len(req.Messages)+1)
	msgs = append(msgs, Message{Role: "system", Content: systemPrompt})
	for _, m := range req.Messages {
		if m.Role == "user" || m.Role == "assistant" {
			msgs = append(msgs, m)
		}
	}
	res, err := b.chat.Chat(ctx, msgs)
	if err != nil {
		return ChatResponse{}, err
	}
	log.Info("llm chat answered", "admin_id", adminID, "turns", len(req.Messages))

	text, preview := ParseAgentPreview(res.Content)
	out := ChatResponse{Message: text, AgentPreview: preview}
	if preview == nil {
		return out, nil
	}
	if !req.ConfirmCreate || b.agents == nil {
		out.Action = &Action{Type: "create_agent", Status: "pending"}
		return out, nil
	}

	agent, err := b.agents.CreateAgent(ctx, platform.AgentCreate{
		Name:            preview.Name,
		Description:     preview.Description,
		GreetingMessage: preview.Greeting,
		Language:        preview.Language,
		Voice:           preview.Voice,
	})
	if err != nil {
		log.Error("agent creation failed", "err", err)
		out.Action = &Action{Type: "create_agent", Status: "error", Error: err.Error()}
		return out, nil
	}
	out.Action = &Action{Type: "create_agent", Status: "success", Agent: agent}
	return out, nil
}

// ParseAgentPreview splits an answer into its text and the agent block, if any.
// A malformed block leaves content untouched.
func ParseAgentPreview(content string) (string, *AgentPreview) {
	start := strings.Index(content, agentReadyOpen)
	if start < 0 {
		return content, nil
	}
	rest := content[start+len(agentReadyOpen):]
	end := strings.Index(rest, agentReadyClose)
	if end < 0 {
		return content, nil
	}
	var p AgentPreview
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &p); err != nil || p.Name == "" {
		return content, nil
	}
	return strings.TrimSpace(content[:start]), &p
}

type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	Language string `json:"language"`
}

func Voices() []Voice {
	return []Voice{
		{ID: "marie", Name: "Marie", Gender: "female", Language: "fr-FR"},
		{ID: "jean", Name: "Jean", Gender: "male", Language: "fr-FR"},
		{ID: "claire", Name: "Claire", Gender: "female", Language: "fr-FR"},
		{ID: "pierre", Name: "Pierre", Gender: "male", Language: "fr-FR"},
		{ID: "emma", Name: "Emma", Gender: "female", Language: "fr-FR"},
		{ID: "lucas", Name: "Lucas", Gender: "male", Language: "fr-FR"},
	}
}
