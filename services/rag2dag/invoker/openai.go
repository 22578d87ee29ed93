// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// openaiSecretPath is where container deployments mount the API key.
const openaiSecretPath = "/run/secrets/openai_api_key"

// OpenAIInvoker implements ModelInvoker against the OpenAI chat API.
// The model is chosen per call by the compiler, not fixed at client
// construction, since different DAG nodes use different models.
type OpenAIInvoker struct {
	client *openai.Client
}

// NewOpenAIInvoker creates an invoker using OPENAI_API_KEY from the
// environment, falling back to the container secret mount.
func NewOpenAIInvoker() (*OpenAIInvoker, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		keyBytes, err := os.ReadFile(openaiSecretPath)
		if err != nil {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found",
				"path", openaiSecretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		apiKey = strings.TrimSpace(string(keyBytes))
		slog.Info("Read the OpenAI API Key from the secret mount")
	}
	return &OpenAIInvoker{client: openai.NewClient(apiKey)}, nil
}

// Invoke implements the ModelInvoker interface.
//
// Upstream outputs are passed as user context ahead of the
// instruction, in dependency order, so the model sees the material a
// node's inputs produced.
func (o *OpenAIInvoker) Invoke(
	ctx context.Context,
	modelID, instruction string,
	upstreamOutputs []string,
) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "You are one step of a document analysis workflow. Answer only the instruction you are given."},
	}
	for i, output := range upstreamOutputs {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("Input %d:\n%s", i+1, output),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: instruction,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    modelID,
		Messages: messages,
	})
	if err != nil {
		return "", classifyOpenAIError(modelID, err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices", "model", modelID)
		return "", fmt.Errorf("%w: no choices returned", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError maps provider errors onto the invocation
// taxonomy so the executor retries only what is worth retrying.
func classifyOpenAIError(modelID string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		case apiErr.HTTPStatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %q: %v", ErrInvalidModel, modelID, err)
		default:
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	// Anything else is a transport problem.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
