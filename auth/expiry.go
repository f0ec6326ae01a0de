package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ExpiredTokenMessage is the message text the API uses to signal an expired access credential.
const ExpiredTokenMessage = "Token is expired"

// errorBody is the structured error content returned by the API.
type errorBody struct {
	Message  string `json:"message"`
	Detail   string `json:"detail"`
	Code     string `json:"code"`
	Messages []struct {
		Message   string `json:"message"`
		TokenType string `json:"token_type"`
	} `json:"messages"`
}

// IsExpiryError reports whether a response signals an expired access credential:
// a 401 or 403 status and at least one entry in "messages" equal to ExpiredTokenMessage.
// Bodies that do not parse are never an expiry signal.
func IsExpiryError(status int, body []byte) bool {
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return false
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return false
	}
	for _, m := range eb.Messages {
		if m.Message == ExpiredTokenMessage {
			return true
		}
	}
	return false
}

// errorDetail picks the human readable message out of an error body.
func errorDetail(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Detail != "" {
			return eb.Detail
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "<") && len(text) <= 200 {
		return text
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}
