package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// helperClient has a short timeout so a slow model endpoint cannot hang the
// handler.
var helperClient = &http.Client{Timeout: 20 * time.Second}

// TopicHelp is the normalized response of the generative-help call.
type TopicHelp struct {
	Description   string   `json:"description"`
	RelatedTopics []string `json:"relatedTopics"`
}

// HelperService calls an external generative endpoint that describes a study
// category. One request, one response, no retries.
type HelperService struct {
	URL    string
	APIKey string
}

func NewHelperService(url, apiKey string) *HelperService {
	return &HelperService{URL: url, APIKey: apiKey}
}

func (h *HelperService) DescribeCategory(category string) (*TopicHelp, error) {
	if h.URL == "" {
		return nil, fmt.Errorf("helper endpoint not configured")
	}
	body, err := json.Marshal(map[string]string{"category": category})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}
	resp, err := helperClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("helper endpoint returned %d", resp.StatusCode)
	}
	var help TopicHelp
	if err := json.NewDecoder(resp.Body).Decode(&help); err != nil {
		return nil, err
	}
	return &help, nil
}
