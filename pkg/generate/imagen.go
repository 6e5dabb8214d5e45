package generate

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultModel = "imagen-3.0-generate-002"

// Imagen generates images through the Gemini API.
type Imagen struct {
	client *genai.Client
	model  string
}

func NewImagen(ctx context.Context, apiKey, model string) (*Imagen, error) {
	if apiKey == "" {
		return nil, errors.New("generate: API key is empty")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: new client: %w", err)
	}
	return &Imagen{client: client, model: model}, nil
}

func (im *Imagen) Generate(ctx context.Context, prompt string, ratio AspectRatio) ([]byte, error) {
	resp, err := im.client.Models.GenerateImages(ctx, im.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
		AspectRatio:    string(ratio),
	})
	if err != nil {
		return nil, err
	}
	for _, gi := range resp.GeneratedImages {
		if gi != nil && gi.Image != nil && len(gi.Image.ImageBytes) > 0 {
			return gi.Image.ImageBytes, nil
		}
	}
	return nil, nil
}
