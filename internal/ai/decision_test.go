package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"smc-trading-dashboard/config"
	"smc-trading-dashboard/internal/patterns"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    Action
		wantErr bool
	}{
		{
			name:  "plain json",
			reply: `{"action": "BUY", "confidence": 0.8, "reasoning": "bullish order block with sweep"}`,
			want:  ActionBuy,
		},
		{
			name:  "markdown fenced",
			reply: "```json\n{\"action\": \"HOLD\", \"confidence\": 0.3, \"reasoning\": \"mixed signals\"}\n```",
			want:  ActionHold,
		},
		{
			name:  "surrounding prose",
			reply: "Here is my analysis: {\"action\": \"sell\", \"confidence\": 0.6, \"reasoning\": \"bearish BOS\"} Good luck.",
			want:  ActionSell,
		},
		{
			name:    "invalid action",
			reply:   `{"action": "YOLO", "confidence": 0.9, "reasoning": "moon"}`,
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			reply:   `{"action": "BUY", "confidence": 42, "reasoning": "sure thing"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			reply:   "I cannot answer that.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseDecision(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Action != tt.want {
				t.Errorf("expected action %s, got %s", tt.want, d.Action)
			}
		})
	}
}

func TestBuildPromptListsPatterns(t *testing.T) {
	setup := Setup{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Price:     50000,
		ATR:       320.5,
		Patterns: patterns.Set{
			OrderBlock:       &patterns.OrderBlock{Type: patterns.Bullish, Price: 49500},
			BreakOfStructure: &patterns.BreakOfStructure{Type: patterns.Bullish},
		},
	}

	prompt := buildPrompt(setup)
	if !strings.Contains(prompt, "bullish order block at 49500") {
		t.Errorf("prompt missing order block: %s", prompt)
	}
	if !strings.Contains(prompt, "break of structure") {
		t.Errorf("prompt missing BOS: %s", prompt)
	}
	if strings.Contains(prompt, "fair value gap") {
		t.Errorf("prompt should not mention absent patterns: %s", prompt)
	}

	empty := buildPrompt(Setup{Symbol: "ETHUSDT"})
	if !strings.Contains(empty, "- none") {
		t.Errorf("prompt for empty set should say none: %s", empty)
	}
}

func TestAdvisorDecideAgainstChatServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		var req struct {
			Messages []message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": `{"action":"BUY","confidence":0.75,"reasoning":"strong setup"}`}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(config.AIConfig{
		Provider: "openai",
		APIKey:   "test-key",
		Model:    "gpt-4o",
	})
	client.baseURL = server.URL

	advisor := NewAdvisor(client, zerolog.Nop())
	decision, err := advisor.Decide(context.Background(), Setup{Symbol: "BTCUSDT", Price: 50000})
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if decision.Action != ActionBuy {
		t.Errorf("expected BUY, got %s", decision.Action)
	}
	if decision.Confidence != 0.75 {
		t.Errorf("expected confidence 0.75, got %f", decision.Confidence)
	}
}

func TestAdvisorDecideAgainstClaudeServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header: %s", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{
				{"type": "text", "text": `{"action":"HOLD","confidence":0.2,"reasoning":"no confluence"}`},
			},
		})
	}))
	defer server.Close()

	client := NewClient(config.AIConfig{
		Provider: "claude",
		APIKey:   "test-key",
		Model:    "claude-sonnet-4-20250514",
	})
	client.baseURL = server.URL

	advisor := NewAdvisor(client, zerolog.Nop())
	decision, err := advisor.Decide(context.Background(), Setup{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if decision.Action != ActionHold {
		t.Errorf("expected HOLD, got %s", decision.Action)
	}
}

func TestAdvisorUnconfigured(t *testing.T) {
	advisor := NewAdvisor(NewClient(config.AIConfig{Provider: "claude"}), zerolog.Nop())
	if advisor.Enabled() {
		t.Error("advisor without an api key should be disabled")
	}
	if _, err := advisor.Decide(context.Background(), Setup{}); err == nil {
		t.Error("expected an error from an unconfigured advisor")
	}
}
