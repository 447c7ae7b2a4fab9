package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/drivebridge/drivebridge/internal/config"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/models"
	"github.com/drivebridge/drivebridge/internal/ratelimit"
	"github.com/drivebridge/drivebridge/internal/util/buffers"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct{}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Printf("🔄 [RETRY ERROR] %s %v", msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not all info
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Printf("⚠️  [RETRY WARN] %s %v", msg, keysAndValues)
}

// apiMetrics tracks API usage statistics
type apiMetrics struct {
	sync.Mutex
	totalCalls    int64
	callsByPath   map[string]int64
	windowStart   time.Time
	callsInWindow int64
}

// Client talks to the remote drive's REST surface. It implements Transport.
type Client struct {
	httpClient   *nethttp.Client
	config       *config.Config
	baseURL      string                 // metadata + content endpoints
	activityURL  string                 // activity log endpoint
	peopleURL    string                 // user display name endpoint
	queryLimiter *ratelimit.RateLimiter // all metadata endpoints share the per-user query quota
	mediaLimiter *ratelimit.RateLimiter // consulted before opening content/export streams
	metrics      *apiMetrics

	mu          sync.Mutex
	initialized bool
}

var _ Transport = (*Client)(nil)

// NewClient creates a new drive API client.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API base URL is empty")
	}

	// Wrap with retry logic
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 5
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = &retryLogger{} // Enable error/warning logging

	return &Client{
		httpClient:   retryClient.StandardClient(),
		config:       cfg,
		baseURL:      strings.TrimSuffix(cfg.APIBaseURL, "/"),
		activityURL:  strings.TrimSuffix(cfg.ActivityBaseURL, "/"),
		peopleURL:    strings.TrimSuffix(cfg.PeopleBaseURL, "/"),
		queryLimiter: ratelimit.NewQueryRateLimiter(),
		mediaLimiter: ratelimit.NewMediaStartRateLimiter(),
		metrics: &apiMetrics{
			callsByPath: make(map[string]int64),
			windowStart: time.Now(),
		},
	}, nil
}

// Init verifies the session with a cheap probe request. A rejected token is
// reported once as ErrAuthExpired after a single transparent retry, so a
// stale cached token doesn't surface as a transport failure on the first
// real operation.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	probe := func() error {
		resp, err := c.doRequest(ctx, "GET", c.baseURL+"/about", url.Values{"fields": {"kind"}}, c.queryLimiter)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == nethttp.StatusUnauthorized {
			return ErrAuthExpired
		}
		if resp.StatusCode != nethttp.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("session probe failed: status %d: %s", resp.StatusCode, string(body))
		}
		return nil
	}

	err := probe()
	if err == ErrAuthExpired {
		log.Printf("⚠️  Drive access token was invalidated, reauthenticating")
		if refreshed := c.refreshToken(); refreshed {
			err = probe()
		}
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	return nil
}

// refreshToken re-reads the token from the environment/config file. Token
// acquisition itself lives outside this tool; all we can do is pick up a
// replacement that appeared since startup.
func (c *Client) refreshToken() bool {
	fresh, err := config.Load("")
	if err != nil || fresh.AccessToken == "" || fresh.AccessToken == c.config.AccessToken {
		return false
	}
	c.config.AccessToken = fresh.AccessToken
	return true
}

// doRequest performs an HTTP request with authentication and rate limiting.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, query url.Values, limiter *ratelimit.RateLimiter) (*nethttp.Response, error) {
	// Wait for rate limiter to allow request
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}

	// Track API call metrics
	c.metrics.Lock()
	c.metrics.totalCalls++
	c.metrics.callsByPath[rawURL]++
	c.metrics.callsInWindow++

	// Log stats every 30 seconds
	if time.Since(c.metrics.windowStart) >= 30*time.Second {
		reqPerSec := float64(c.metrics.callsInWindow) / 30.0
		percentOfTarget := (reqPerSec / ratelimit.QueryRatePerSec) * 100
		log.Printf("📊 API usage: %.2f req/sec (%.0f%% of %.0f/sec target), %d total calls",
			reqPerSec, percentOfTarget, ratelimit.QueryRatePerSec, c.metrics.totalCalls)

		c.metrics.callsInWindow = 0
		c.metrics.windowStart = time.Now()
	}
	c.metrics.Unlock()

	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("❌ API call failed: %s %s - Error: %v", method, rawURL, err)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode == 429 {
		log.Printf("⚠️  THROTTLED: %s %s - per-user query quota exceeded", method, rawURL)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			log.Printf("   └─ Retry-After: %s seconds", retryAfter)
		}
	}

	return resp, nil
}

// decodeError maps an error response body to a typed error. The remote
// wraps failures in an {error:{errors:[{reason}]}} envelope; the reason
// codes carry the semantics, not the HTTP status alone.
func (c *Client) decodeError(resp *nethttp.Response, id string) error {
	body, _ := io.ReadAll(resp.Body)

	var envelope apiErrorBody
	if json.Unmarshal(body, &envelope) == nil {
		switch {
		case envelope.hasReason("notFound"):
			return &NotFoundError{ID: id}
		case envelope.hasReason("cannotDownloadAbusiveFile"):
			return &AbusiveFileError{ID: id}
		case envelope.hasReason("exportSizeLimitExceeded"):
			return &ExportSizeLimitError{ID: id}
		case envelope.hasReason("cannotDownloadFile"):
			return &PermissionDeniedError{ID: id}
		}
	}

	if resp.StatusCode == nethttp.StatusUnauthorized {
		return ErrAuthExpired
	}
	if resp.StatusCode == nethttp.StatusNotFound {
		return &NotFoundError{ID: id}
	}

	return fmt.Errorf("API request failed: status %d: %s", resp.StatusCode, string(body))
}

// fileListResponse is the wire shape of a files listing page.
type fileListResponse struct {
	NextPageToken string               `json:"nextPageToken"`
	Files         []*models.RemoteItem `json:"files"`
}

// ListChildren returns one page of metadata for the given listing query.
func (c *Client) ListChildren(ctx context.Context, query, pageToken string, pageSize int) ([]*models.RemoteItem, string, error) {
	if pageSize <= 0 {
		pageSize = constants.ListPageSize
	}

	params := url.Values{
		"q":        {query},
		"pageSize": {fmt.Sprintf("%d", pageSize)},
		"fields":   {fmt.Sprintf("nextPageToken, files(%s)", constants.RequiredFileFields)},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	resp, err := c.doRequest(ctx, "GET", c.baseURL+"/files", params, c.queryLimiter)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, "", c.decodeError(resp, "")
	}

	var result fileListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, "", fmt.Errorf("failed to decode listing response: %w", err)
	}

	return result.Files, result.NextPageToken, nil
}

// GetMetadata fetches one file's metadata.
func (c *Client) GetMetadata(ctx context.Context, id, fields string) (*models.RemoteItem, error) {
	if fields == "" {
		fields = constants.RequiredFileFields
	}

	resp, err := c.doRequest(ctx, "GET", c.baseURL+"/files/"+url.PathEscape(id),
		url.Values{"fields": {fields}}, c.queryLimiter)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, c.decodeError(resp, id)
	}

	var item models.RemoteItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("failed to decode file metadata: %w", err)
	}

	return &item, nil
}

// GetDownloadAttributes fetches the permission flag and export links for a file.
func (c *Client) GetDownloadAttributes(ctx context.Context, id string) (*models.DownloadAttributes, error) {
	resp, err := c.doRequest(ctx, "GET", c.baseURL+"/files/"+url.PathEscape(id),
		url.Values{"fields": {"copyRequiresWriterPermission, exportLinks"}}, c.queryLimiter)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, c.decodeError(resp, id)
	}

	var attrs models.DownloadAttributes
	if err := json.NewDecoder(resp.Body).Decode(&attrs); err != nil {
		return nil, fmt.Errorf("failed to decode download attributes: %w", err)
	}

	return &attrs, nil
}

// DownloadContent streams a file's raw bytes to w.
func (c *Client) DownloadContent(ctx context.Context, id string, w io.Writer, acknowledgeAbuse bool, onProgress ProgressFunc) error {
	params := url.Values{"alt": {"media"}}
	if acknowledgeAbuse {
		params.Set("acknowledgeAbuse", "true")
	}

	resp, err := c.doRequest(ctx, "GET", c.baseURL+"/files/"+url.PathEscape(id), params, c.mediaLimiter)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return c.decodeError(resp, id)
	}

	return copyWithProgress(ctx, w, resp.Body, onProgress)
}

// ExportContent streams a remote-native document converted to mimeType.
func (c *Client) ExportContent(ctx context.Context, id, mimeType string, w io.Writer, onProgress ProgressFunc) error {
	resp, err := c.doRequest(ctx, "GET", c.baseURL+"/files/"+url.PathEscape(id)+"/export",
		url.Values{"mimeType": {mimeType}}, c.mediaLimiter)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return c.decodeError(resp, id)
	}

	return copyWithProgress(ctx, w, resp.Body, onProgress)
}

// copyWithProgress copies src to dst, reporting cumulative byte counts at
// roughly constants.DownloadProgressInterval granularity. The throttling is
// the point: per-chunk callbacks would flood the UI on large transfers.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, onProgress ProgressFunc) error {
	bufp := buffers.GetCopyBuffer()
	defer buffers.PutCopyBuffer(bufp)
	buf := *bufp

	var total, lastReported int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write content: %w", writeErr)
			}
			total += int64(n)
			if onProgress != nil && total-lastReported >= constants.DownloadProgressInterval {
				onProgress(total)
				lastReported = total
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("failed to read content stream: %w", readErr)
		}
	}

	if onProgress != nil && total > lastReported {
		onProgress(total)
	}
	return nil
}

// activityQueryBody is the wire shape of an activity query request.
type activityQueryBody struct {
	PageSize     int    `json:"pageSize,omitempty"`
	PageToken    string `json:"pageToken,omitempty"`
	Filter       string `json:"filter,omitempty"`
	AncestorName string `json:"ancestorName,omitempty"`
	ItemName     string `json:"itemName,omitempty"`
}

// rawActivity mirrors the subset of the activity API response we project.
type rawActivity struct {
	Timestamp time.Time `json:"timestamp"`
	TimeRange *struct {
		EndTime time.Time `json:"endTime"`
	} `json:"timeRange,omitempty"`
	PrimaryActionDetail map[string]json.RawMessage `json:"primaryActionDetail"`
	Actors              []struct {
		User *struct {
			KnownUser *struct {
				PersonName string `json:"personName"`
			} `json:"knownUser,omitempty"`
		} `json:"user,omitempty"`
	} `json:"actors"`
	Targets []struct {
		DriveItem *struct {
			Name        string           `json:"name"`  // "items/<id>"
			Title       string           `json:"title"`
			DriveFolder *json.RawMessage `json:"driveFolder,omitempty"`
		} `json:"driveItem,omitempty"`
	} `json:"targets"`
	Actions []struct {
		Detail *struct {
			Move *struct {
				AddedParents []struct {
					DriveItem *struct {
						Title string `json:"title"`
					} `json:"driveItem,omitempty"`
				} `json:"addedParents,omitempty"`
			} `json:"move,omitempty"`
		} `json:"detail,omitempty"`
	} `json:"actions,omitempty"`
}

// activityFilter limits the query to the event kinds we project.
const activityFilter = "detail.action_detail_case:(CREATE EDIT RENAME MOVE DELETE RESTORE)"

// QueryActivity returns one page of change events for a file or folder subtree.
func (c *Client) QueryActivity(ctx context.Context, q ActivityQuery) ([]*models.ActivityEvent, string, error) {
	body := activityQueryBody{
		PageSize:  q.PageSize,
		PageToken: q.PageToken,
		Filter:    activityFilter,
	}
	if q.AncestorID != "" {
		body.AncestorName = "items/" + q.AncestorID
	} else {
		body.ItemName = "items/" + q.ItemID
	}

	resp, err := c.doJSONPost(ctx, c.activityURL+"/activity:query", body)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, "", c.decodeError(resp, q.AncestorID+q.ItemID)
	}

	var result struct {
		Activities    []rawActivity `json:"activities"`
		NextPageToken string        `json:"nextPageToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, "", fmt.Errorf("failed to decode activity response: %w", err)
	}

	var events []*models.ActivityEvent
	for i := range result.Activities {
		events = append(events, projectActivities(&result.Activities[i])...)
	}

	return events, result.NextPageToken, nil
}

// projectActivities flattens one raw activity into per-target events.
func projectActivities(a *rawActivity) []*models.ActivityEvent {
	action := ""
	for _, key := range []string{"create", "edit", "rename", "move", "delete", "restore"} {
		if _, ok := a.PrimaryActionDetail[key]; ok {
			action = key
			break
		}
	}
	if action == "" {
		return nil // Not an event kind we project
	}

	timestamp := a.Timestamp
	if timestamp.IsZero() && a.TimeRange != nil {
		timestamp = a.TimeRange.EndTime
	}

	actorUserID := ""
	if len(a.Actors) > 0 && a.Actors[0].User != nil && a.Actors[0].User.KnownUser != nil {
		actorUserID = a.Actors[0].User.KnownUser.PersonName
	}

	movedToTitle := ""
	for _, act := range a.Actions {
		if act.Detail != nil && act.Detail.Move != nil && len(act.Detail.Move.AddedParents) > 0 &&
			act.Detail.Move.AddedParents[0].DriveItem != nil {
			movedToTitle = act.Detail.Move.AddedParents[0].DriveItem.Title
			break
		}
	}

	var events []*models.ActivityEvent
	for _, target := range a.Targets {
		if target.DriveItem == nil {
			continue
		}
		events = append(events, &models.ActivityEvent{
			Timestamp:    timestamp,
			ActorUserID:  actorUserID,
			Action:       action,
			TargetID:     strings.TrimPrefix(target.DriveItem.Name, "items/"),
			TargetTitle:  target.DriveItem.Title,
			TargetFolder: target.DriveItem.DriveFolder != nil,
			MovedToTitle: movedToTitle,
		})
	}
	return events
}

// doJSONPost posts a JSON body through the query limiter.
func (c *Client) doJSONPost(ctx context.Context, rawURL string, body interface{}) (*nethttp.Response, error) {
	if err := c.queryLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := nethttp.NewRequestWithContext(ctx, "POST", rawURL, strings.NewReader(string(jsonData)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("❌ API call failed: POST %s - Error: %v", rawURL, err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// ResolveUsername resolves a user id ("people/...") to a display name.
func (c *Client) ResolveUsername(ctx context.Context, userID string) (string, error) {
	resp, err := c.doRequest(ctx, "GET", c.peopleURL+"/"+userID,
		url.Values{"personFields": {"names"}}, c.queryLimiter)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return "", c.decodeError(resp, userID)
	}

	var result struct {
		Names []struct {
			DisplayName string `json:"displayName"`
		} `json:"names"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode person response: %w", err)
	}

	if len(result.Names) == 0 {
		return "", nil
	}
	return result.Names[0].DisplayName, nil
}

// Search returns one page of files whose names contain query.
func (c *Client) Search(ctx context.Context, query, pageToken string, pageSize int) ([]*models.RemoteItem, string, error) {
	// Single quotes inside the search term must be escaped in the q string
	escaped := strings.ReplaceAll(query, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)

	q := fmt.Sprintf("name contains '%s' and trashed = false", escaped)
	if pageSize <= 0 {
		pageSize = constants.SearchMinEntriesPerFetch
	}
	return c.ListChildren(ctx, q, pageToken, pageSize)
}

// GetMD5 fetches a file's content checksum.
func (c *Client) GetMD5(ctx context.Context, id string) (string, error) {
	resp, err := c.doRequest(ctx, "GET", c.baseURL+"/files/"+url.PathEscape(id),
		url.Values{"fields": {"md5Checksum"}}, c.queryLimiter)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return "", c.decodeError(resp, id)
	}

	var result struct {
		MD5Checksum string `json:"md5Checksum"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode checksum response: %w", err)
	}
	return result.MD5Checksum, nil
}
