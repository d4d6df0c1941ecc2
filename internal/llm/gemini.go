package llm

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/paperchase/relay/internal/errors"
)

// fileProcessingWait bounds how long an uploaded document may stay in the
// PROCESSING state before we give up on it.
const fileProcessingWait = 90 * time.Second

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey string, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}
	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiClient) generativeModel() *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.7)
	return model
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generativeModel().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

// GenerateFromFile uploads the document, waits for it to finish processing,
// generates against it, and deletes the upload afterwards.
func (c *GeminiClient) GenerateFromFile(ctx context.Context, prompt, path string) (string, error) {
	file, err := c.client.UploadFileFromPath(ctx, path, &genai.UploadFileOptions{
		DisplayName: filepath.Base(path),
		MIMEType:    "application/pdf",
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload %s", filepath.Base(path))
	}
	defer c.client.DeleteFile(ctx, file.Name)

	file, err = c.awaitProcessing(ctx, file)
	if err != nil {
		return "", err
	}

	resp, err := c.generativeModel().GenerateContent(ctx,
		genai.FileData{MIMEType: file.MIMEType, URI: file.URI},
		genai.Text(prompt),
	)
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

func (c *GeminiClient) awaitProcessing(ctx context.Context, file *genai.File) (*genai.File, error) {
	deadline := time.Now().Add(fileProcessingWait)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, errors.Wrapf(errors.ErrTimeout, "file %s still processing", file.Name)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
		refreshed, err := c.client.GetFile(ctx, file.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "poll file %s", file.Name)
		}
		file = refreshed
	}
	if file.State != genai.FileStateActive {
		return nil, errors.Newf("file %s unusable after upload (state %v)", file.Name, file.State)
	}
	return file, nil
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				return string(txt), nil
			}
		}
	}
	return "", errors.New("no response candidates or content")
}
