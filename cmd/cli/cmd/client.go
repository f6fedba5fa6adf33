package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"simplane/pkg/api"
)

// JobClient handles API calls to the simplane controller.
type JobClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewJobClient creates a new client with the given base URL and token.
func NewJobClient(baseURL, token string) *JobClient {
	return &JobClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// StartJob sends POST /jobs to start a new simulation job.
func (c *JobClient) StartJob(req api.StartJobRequest) (*api.StartJobResponse, error) {
	var result api.StartJobResponse
	if err := c.do(http.MethodPost, "/jobs", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs sends GET /jobs.
func (c *JobClient) ListJobs() (*api.ListJobsResponse, error) {
	var result api.ListJobsResponse
	if err := c.do(http.MethodGet, "/jobs", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob sends GET /jobs/{id}.
func (c *JobClient) GetJob(jobID string) (*api.JobStatusResponse, error) {
	var result api.JobStatusResponse
	if err := c.do(http.MethodGet, "/jobs/"+jobID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetActivity sends GET /jobs/{id}/activity.
func (c *JobClient) GetActivity(jobID string) (*api.GetActivityResponse, error) {
	var result api.GetActivityResponse
	if err := c.do(http.MethodGet, "/jobs/"+jobID+"/activity", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Command sends one of the POST lifecycle endpoints (stop, pause, resume,
// generate).
func (c *JobClient) Command(jobID, command string) (*api.CommandResponse, error) {
	var result api.CommandResponse
	if err := c.do(http.MethodPost, fmt.Sprintf("/jobs/%s/%s", jobID, command), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteJob sends DELETE /jobs/{id}.
func (c *JobClient) DeleteJob(jobID string) (*api.CommandResponse, error) {
	var result api.CommandResponse
	if err := c.do(http.MethodDelete, "/jobs/"+jobID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *JobClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
