package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// runRequest mirrors the corpus API run request.
type runRequest struct {
	TraineeID    string `json:"traineeId"`
	BaseURL      string `json:"baseUrl,omitempty"`
	Pages        string `json:"pages"`
	WaitMs       int    `json:"waitMs,omitempty"`
	RetryOnError bool   `json:"retryOnError"`
	TimeoutMs    int    `json:"timeoutMs,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// runResponse mirrors the corpus API response to a submitted run.
type runResponse struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	Total  int       `json:"total"`
	Error  *apiError `json:"error"`
}

// runSnapshot mirrors the corpus API run status.
type runSnapshot struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Success   *bool  `json:"success"`
	Pages     []struct {
		PageIndex int    `json:"pageIndex"`
		Message   string `json:"message"`
		IsError   bool   `json:"isError"`
		IsFinal   bool   `json:"isFinal"`
	} `json:"pages"`
	Error *apiError `json:"error"`
}

func main() {
	apiURL := os.Getenv("CORPUS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("CORPUS_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "CORPUS_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"corpus",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	startRunTool := mcp.NewTool("start_run",
		mcp.WithDescription("Start a corpus collection run: every page is loaded in a headless browser, vectorized by the feature-extraction service, and the vectors are gathered into vectors.json."),
		mcp.WithString("trainee_id",
			mcp.Required(),
			mcp.Description("Id of the trainee (ruleset) whose features are collected"),
		),
		mcp.WithArray("pages",
			mcp.Required(),
			mcp.Description("Pages to visit, one URL or path per entry"),
		),
		mcp.WithString("base_url",
			mcp.Description("Prefix added to every page entry"),
		),
		mcp.WithNumber("wait_ms",
			mcp.Description("Settle delay before each vectorization attempt, in milliseconds (default: 0)"),
		),
		mcp.WithBoolean("retry_on_error",
			mcp.Description("Retry a failed vectorization up to 10 times (default: false)"),
		),
	)
	s.AddTool(startRunTool, handleStartRun(apiURL, apiKey))

	getRunTool := mcp.NewTool("get_run",
		mcp.WithDescription("Get the state and per-page statuses of a collection run. Set wait to block until the run finishes."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Run id returned by start_run"),
		),
		mcp.WithBoolean("wait",
			mcp.Description("Poll until the run is no longer running (default: false)"),
		),
	)
	s.AddTool(getRunTool, handleGetRun(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleStartRun(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		traineeID, err := request.RequireString("trainee_id")
		if err != nil {
			return mcp.NewToolResultError("trainee_id is required"), nil
		}
		pages, err := request.RequireStringSlice("pages")
		if err != nil || len(pages) == 0 {
			return mcp.NewToolResultError("pages is required"), nil
		}

		reqBody := runRequest{
			TraineeID:    traineeID,
			BaseURL:      request.GetString("base_url", ""),
			Pages:        strings.Join(pages, "\n"),
			WaitMs:       request.GetInt("wait_ms", 0),
			RetryOnError: request.GetBool("retry_on_error", false),
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/runs", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var runResp runResponse
		if err := json.Unmarshal(respBody, &runResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if runResp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", runResp.Error.Code, runResp.Error.Message)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Run %s started with %d page(s).", runResp.ID, runResp.Total)), nil
	}
}

func handleGetRun(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		endpoint := "/api/v1/runs/" + id

		var body []byte
		if request.GetBool("wait", false) {
			ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
			defer cancel()
			body, err = pollRunCompletion(ctx, client, apiURL, apiKey, endpoint)
		} else {
			body, err = getJSON(ctx, client, apiURL, apiKey, endpoint)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("fetching run failed: %v", err)), nil
		}

		var snap runSnapshot
		if err := json.Unmarshal(body, &snap); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if snap.ID == "" && snap.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", snap.Error.Code, snap.Error.Message)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Run %s: %s (%d/%d pages done, %d failed)\n", snap.ID, snap.Status, snap.Completed+snap.Failed, snap.Total, snap.Failed)
		if snap.Success != nil {
			fmt.Fprintf(&sb, "Success: %t\n", *snap.Success)
		}
		for _, p := range snap.Pages {
			mark := "ok"
			if p.IsError {
				mark = "error"
			}
			fmt.Fprintf(&sb, "  [%d] %s: %s\n", p.PageIndex, mark, p.Message)
		}
		if snap.Status != "running" && snap.Success != nil && *snap.Success {
			fmt.Fprintf(&sb, "\nDownload: %s%s/vectors.json\n", apiURL, endpoint)
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func getJSON(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// pollRunCompletion polls a run until its status is no longer "running" or ctx is cancelled.
func pollRunCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		body, err := getJSON(ctx, client, apiURL, apiKey, endpoint)
		if err != nil {
			return nil, err
		}
		var status struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(body, &status); err != nil {
			return nil, fmt.Errorf("parse poll status: %w", err)
		}
		if status.Status != "running" {
			return body, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
