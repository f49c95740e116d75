package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"feestplanner/internal/providers"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	reply    string
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}},
	}, nil
}

func TestChatSendsHistoryAndSystemInstruction(t *testing.T) {
	fake := &fakeModels{reply: "Salaam! Een ziana kost vanaf €1500."}
	c := &Client{models: fake}

	resp, err := c.Chat(context.Background(), providers.ChatRequest{
		SystemPrompt: "Je bent Samira",
		History: []providers.Message{
			{Role: providers.RoleUser, Text: "Hoi"},
			{Role: providers.RoleModel, Text: "Salaam!"},
		},
		UserPrompt:  "Wat kost een ziana?",
		MaxTokens:   256,
		Temperature: 0.5,
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Text != "Salaam! Een ziana kost vanaf €1500." {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if fake.model != DefaultModel {
		t.Fatalf("expected default model, got %q", fake.model)
	}
	if len(fake.contents) != 3 || fake.contents[1].Role != string(genai.RoleModel) || fake.contents[2].Parts[0].Text != "Wat kost een ziana?" {
		t.Fatalf("unexpected contents %+v", fake.contents)
	}
	if fake.config.SystemInstruction == nil || fake.config.SystemInstruction.Parts[0].Text != "Je bent Samira" {
		t.Fatalf("system instruction missing")
	}
	if fake.config.MaxOutputTokens != 256 || fake.config.Temperature == nil || *fake.config.Temperature != 0.5 {
		t.Fatalf("unexpected generation config %+v", fake.config)
	}
}

func TestChatWrapsErrors(t *testing.T) {
	boom := errors.New("quota")
	c := &Client{models: &fakeModels{err: boom}}
	if _, err := c.Chat(context.Background(), providers.ChatRequest{UserPrompt: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
