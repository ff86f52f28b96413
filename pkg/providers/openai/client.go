// Package openai implements the STT, completion, and TTS contracts
// against the OpenAI REST API.
package openai

import (
	"errors"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

func baseURL(u string) string {
	if u == "" {
		return defaultBaseURL
	}
	return u
}

func httpClient(c *http.Client, timeout time.Duration) *http.Client {
	if c != nil {
		return c
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if len(body) == 0 {
		return errors.New(resp.Status)
	}
	return errors.New(string(body))
}
