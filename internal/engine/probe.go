package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

// ProbeTimeout bounds a single probe request.
const ProbeTimeout = 5 * time.Second

const probeAttempts = 3

var probeRetryDelay = time.Second

// ProbeResult describes what a daemon reported about itself.
type ProbeResult struct {
	Status     string
	Latency    time.Duration
	Authorized bool
	// Dependencies is nil when the token was rejected.
	Dependencies *types.DependencyStatus
}

// ProbeDaemon checks that a daemon answers /health, then uses token to
// fetch its dependency report.
func ProbeDaemon(ctx context.Context, baseURL, token string) (*ProbeResult, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	utils.Debug("Probing daemon: %s", baseURL)

	client := &http.Client{Timeout: ProbeTimeout}

	var (
		resp  *http.Response
		err   error
		start time.Time
	)
	for i := 0; i < probeAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(probeRetryDelay):
			}
			utils.Debug("Retrying probe... attempt %d", i+1)
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
		if reqErr != nil {
			return nil, fmt.Errorf("failed to create probe request: %w", reqErr)
		}
		start = time.Now()
		resp, err = client.Do(req)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("probe request failed after retries: %w", err)
	}

	result := &ProbeResult{Latency: time.Since(start)}
	var health struct {
		Status string `json:"status"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&health)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode health response: %w", decodeErr)
	}
	result.Status = health.Status

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/dependencies", nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	depResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dependency request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, depResp.Body)
		_ = depResp.Body.Close()
	}()

	switch depResp.StatusCode {
	case http.StatusOK:
		var deps types.DependencyStatus
		if err := json.NewDecoder(depResp.Body).Decode(&deps); err != nil {
			return nil, fmt.Errorf("decode dependencies: %w", err)
		}
		result.Authorized = true
		result.Dependencies = &deps
	case http.StatusUnauthorized, http.StatusForbidden:
		result.Authorized = false
	default:
		return nil, fmt.Errorf("unexpected status code: %d", depResp.StatusCode)
	}

	utils.Debug("Probe complete - status: %s, latency: %s, authorized: %v",
		result.Status, result.Latency, result.Authorized)
	return result, nil
}
