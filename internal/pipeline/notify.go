package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Build states reported to webhooks
const (
	StatePassed = "passed"
	StateFailed = "failed"
)

// BuildResult describes a finished build
type BuildResult struct {
	Pipeline   string    `json:"pipeline"`
	Branch     string    `json:"branch"`
	Commit     string    `json:"commit,omitempty"`
	State      string    `json:"state"`
	FinishedAt time.Time `json:"finished_at"`
}

// payload is the JSON body POSTed to each webhook
type payload struct {
	BuildResult
	PreviousState string `json:"previous_state,omitempty"`
}

// Notifier delivers build results to the manifest's webhooks. It remembers
// the last state per pipeline and branch so the "change" policy can compare.
type Notifier struct {
	mu       sync.Mutex
	client   *http.Client
	logger   *zap.Logger
	previous map[string]string // "pipeline/branch" -> last state
}

// NewNotifier creates a new Notifier
func NewNotifier(client *http.Client, logger *zap.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{
		client:   client,
		logger:   logger,
		previous: make(map[string]string),
	}
}

// Notify posts the build result to every webhook whose policy fires, then
// records the state for future "change" decisions. Delivery failures are
// logged and do not abort remaining webhooks.
func (n *Notifier) Notify(ctx context.Context, manifest *Manifest, result *BuildResult) error {
	if result.State != StatePassed && result.State != StateFailed {
		return fmt.Errorf("unknown build state: %s", result.State)
	}

	key := result.Pipeline + "/" + result.Branch

	n.mu.Lock()
	previousState := n.previous[key]
	n.previous[key] = result.State
	n.mu.Unlock()

	var failed int
	for _, hook := range manifest.Notifications.Webhooks {
		if !shouldNotify(&hook, result.State, previousState) {
			continue
		}
		if err := n.post(ctx, hook.URL, result, previousState); err != nil {
			failed++
			n.logger.Warn("webhook delivery failed",
				zap.String("url", hook.URL),
				zap.Error(err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d webhook deliveries failed", failed)
	}
	return nil
}

// shouldNotify applies the webhook policy for the finished state
func shouldNotify(hook *Webhook, state string, previousState string) bool {
	policy := hook.SuccessPolicy()
	if state == StateFailed {
		policy = hook.FailurePolicy()
	}

	switch policy {
	case PolicyAlways:
		return true
	case PolicyNever:
		return false
	case PolicyChange:
		// First build counts as a change
		return previousState == "" || previousState != state
	default:
		return false
	}
}

func (n *Notifier) post(ctx context.Context, url string, result *BuildResult, previousState string) error {
	body, err := json.Marshal(&payload{
		BuildResult:   *result,
		PreviousState: previousState,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
