package bot

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const systemPrompt = `You are Spark AI inside a social media app.
The user's name is %s.
Do NOT repeat the user's name in every message.
Only use their name if it feels natural or necessary.
Keep replies short (max 2-3 sentences).
Do not make up facts like weather or location unless provided.`

// GeminiClient implements Generator on the Gemini API. The API key is read
// from the GEMINI_API_KEY env var by the SDK.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, modelName string) (*GeminiClient, error) {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelName: modelName}, nil
}

func (g *GeminiClient) GenerateReply(ctx context.Context, message, userName string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(message, genai.RoleUser),
	}

	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(fmt.Sprintf(systemPrompt, userName), genai.RoleUser),
		Temperature:       &temp,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}
