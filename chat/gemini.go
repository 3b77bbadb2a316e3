package chat

import (
	"context"
	"fmt"
	"os"
	"strings"

	"smart-parking/parking"

	"google.golang.org/genai"
)

type GeminiClient struct {
	client *genai.Client
	ctx    context.Context
}

func NewGeminiClient() (*GeminiClient, error) {
	ctx := context.Background()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %v", err)
	}

	return &GeminiClient{
		client: client,
		ctx:    ctx,
	}, nil
}

const systemPrompt = `You are the Smart Parking Assistant for an automated slot allocation system.
You help users with:
- Why a particular parking slot was chosen for their vehicle type
- How routes are ranked by distance, junction count and traffic intensity
- System operations and troubleshooting

Provide helpful, accurate, and concise responses. Be technical when needed but explain complex concepts clearly.
Keep responses conversational and under 200 words unless more detail is specifically requested.`

func (g *GeminiClient) GenerateResponse(message string) (string, error) {
	systemInstruction := genai.NewContentFromText(systemPrompt, genai.RoleModel)
	userContent := genai.NewContentFromText(message, genai.RoleUser)

	config := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       genai.Ptr(float32(0.7)),
		TopP:              genai.Ptr(float32(0.8)),
		TopK:              genai.Ptr(float32(40)),
		MaxOutputTokens:   int32(200),
	}

	resp, err := g.client.Models.GenerateContent(
		g.ctx,
		"gemini-2.5-flash",
		[]*genai.Content{userContent},
		config,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %v", err)
	}

	text := resp.Text()
	if text == "" {
		return "I'm sorry, I couldn't generate a response. Please try rephrasing your question.", nil
	}

	return strings.ReplaceAll(text, "*", ""), nil
}

// ExplainSession turns a completed session into a short natural-language
// explanation of the slot choice and route ranking.
func (g *GeminiClient) ExplainSession(state *parking.SessionState) (string, error) {
	if state.Allocated == nil || state.Optimal == nil || state.Vehicle == nil {
		return "", fmt.Errorf("session is not complete")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A %s was assigned slot %d (row %d, col %d, %.0f px from the entrance).\n",
		state.Vehicle.Category, state.Allocated.Number, state.Allocated.Row,
		state.Allocated.Col, state.Allocated.DistanceFromEntrance)
	fmt.Fprintf(&b, "Route candidates:\n")
	for _, path := range state.Paths {
		intensity := "unknown"
		if path.Intensity != nil {
			intensity = fmt.Sprintf("%d", *path.Intensity)
		}
		score := "unscored"
		if path.Score != nil {
			score = fmt.Sprintf("%.1f", *path.Score)
		}
		fmt.Fprintf(&b, "- %s: distance %.1f, %d T-junctions, intensity %s, score %s\n",
			path.Name, path.Distance, path.TJunctions, intensity, score)
	}
	fmt.Fprintf(&b, "The selected route is %s. Explain this allocation and ranking to the driver.", state.Optimal.Name)

	return g.GenerateResponse(b.String())
}

func (g *GeminiClient) Close() error {
	// The client does not require an explicit Close; resources are managed
	// automatically.
	return nil
}
