package health

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"forum-session-demo/backend/pkg/logger"
)

// Status of a checked component.
type Status string

const (
	// StatusUp indicates a component is working.
	StatusUp Status = "up"
	// StatusDown indicates a component is not reachable.
	StatusDown Status = "down"
	// StatusDegraded indicates reduced functionality.
	StatusDegraded Status = "degraded"
)

// Component is the recorded state of one health check.
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Description string    `json:"description,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check is a health check function.
type Check func() (Status, string, error)

// Checker runs registered checks periodically and keeps their last results.
type Checker struct {
	mu          sync.RWMutex
	checks      map[string]Check
	components  map[string]*Component
	checkPeriod time.Duration
	log         *logger.Logger
}

// NewChecker creates a health checker.
func NewChecker(log *logger.Logger, checkPeriod time.Duration) *Checker {
	c := &Checker{
		checks:      make(map[string]Check),
		components:  make(map[string]*Component),
		checkPeriod: checkPeriod,
		log:         log,
	}
	c.RegisterCheck("self", func() (Status, string, error) {
		return StatusUp, "health checker is running", nil
	})
	return c
}

// RegisterCheck registers a named check.
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = check
	c.components[name] = &Component{
		Name:        name,
		Status:      StatusDown,
		Description: "not checked yet",
	}
}

// RegisterForumCheck registers a reachability check against the forum
// service, the engine's only durable store.
func (c *Checker) RegisterForumCheck(baseURL string, client *http.Client) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	c.RegisterCheck("forum", func() (Status, string, error) {
		start := time.Now()
		resp, err := client.Get(baseURL)
		if err != nil {
			return StatusDown, "forum request failed", err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return StatusDegraded, fmt.Sprintf("forum returned status %d", resp.StatusCode),
				fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return StatusUp, fmt.Sprintf("forum is responding (latency: %s)", time.Since(start)), nil
	})
}

// RunChecks executes all registered checks once.
func (c *Checker) RunChecks() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, check := range c.checks {
		status, description, err := check()

		component := c.components[name]
		component.Status = status
		component.Description = description
		component.LastChecked = time.Now()
		component.Error = ""

		if err != nil {
			component.Error = err.Error()
			c.log.Error("health check failed",
				"component", name,
				"status", string(status),
				"error", err.Error(),
			)
		}
	}
}

// Start begins periodic checks.
func (c *Checker) Start() {
	go func() {
		c.RunChecks()

		ticker := time.NewTicker(c.checkPeriod)
		defer ticker.Stop()
		for range ticker.C {
			c.RunChecks()
		}
	}()
}

// GetStatus returns a copy of the current component states.
func (c *Checker) GetStatus() map[string]Component {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Component, len(c.components))
	for k, v := range c.components {
		result[k] = *v
	}
	return result
}

// Healthy reports whether the forum is reachable; the engine is useless
// without it.
func (c *Checker) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if forum, ok := c.components["forum"]; ok && forum.Status == StatusDown {
		return false
	}
	return true
}
