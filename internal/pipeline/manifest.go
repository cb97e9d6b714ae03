package pipeline

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Notification policies controlling when a webhook fires
const (
	PolicyAlways = "always"
	PolicyNever  = "never"
	PolicyChange = "change"
)

// Manifest models a CI pipeline configuration file
type Manifest struct {
	Language      string        `yaml:"language,omitempty"`
	Versions      []string      `yaml:"versions,omitempty"` // Runtime versions to build against
	OS            []string      `yaml:"os,omitempty"`
	Env           Env           `yaml:"env,omitempty"`
	Matrix        Matrix        `yaml:"matrix,omitempty"`
	Branches      Branches      `yaml:"branches,omitempty"`
	Cache         CacheSettings `yaml:"cache,omitempty"`
	Install       []string      `yaml:"install,omitempty"`
	Script        []string      `yaml:"script"`
	AfterSuccess  []string      `yaml:"after_success,omitempty"`
	AfterFailure  []string      `yaml:"after_failure,omitempty"`
	Notifications Notifications `yaml:"notifications,omitempty"`
}

// Env holds environment variable declarations. Global entries apply to every
// job; matrix entries each spawn a job dimension.
type Env struct {
	Global []string `yaml:"global,omitempty"`
	Matrix []string `yaml:"matrix,omitempty"`
}

// Matrix adjusts the expanded job list
type Matrix struct {
	Include []Job `yaml:"include,omitempty"`
	Exclude []Job `yaml:"exclude,omitempty"`
}

// Branches filters which branches trigger builds
type Branches struct {
	Only   []string `yaml:"only,omitempty"`
	Except []string `yaml:"except,omitempty"`
}

// CacheSettings lists directories preserved between builds
type CacheSettings struct {
	Directories []string `yaml:"directories,omitempty"`
}

// Notifications configures build result delivery
type Notifications struct {
	Webhooks []Webhook `yaml:"webhooks,omitempty"`
}

// Webhook is a chat integration endpoint. Policy defaults follow CI
// convention: successes notify on change, failures always.
type Webhook struct {
	URL       string `yaml:"url"`
	OnSuccess string `yaml:"on_success,omitempty"`
	OnFailure string `yaml:"on_failure,omitempty"`
}

// SuccessPolicy returns the effective on_success policy
func (w *Webhook) SuccessPolicy() string {
	if w.OnSuccess == "" {
		return PolicyChange
	}
	return w.OnSuccess
}

// FailurePolicy returns the effective on_failure policy
func (w *Webhook) FailurePolicy() string {
	if w.OnFailure == "" {
		return PolicyAlways
	}
	return w.OnFailure
}

// Load reads and validates a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates manifest YAML. Unknown fields are rejected so
// typos surface instead of being silently dropped.
func Parse(data []byte) (*Manifest, error) {
	manifest := &Manifest{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return manifest, nil
}

// Validate checks the manifest for structural problems
func (m *Manifest) Validate() error {
	if len(m.Script) == 0 {
		return fmt.Errorf("manifest must declare at least one script command")
	}

	for _, pattern := range append(append([]string{}, m.Branches.Only...), m.Branches.Except...) {
		if _, err := compileBranchPattern(pattern); err != nil {
			return fmt.Errorf("invalid branch filter %q: %w", pattern, err)
		}
	}
	for _, name := range m.Branches.Only {
		for _, other := range m.Branches.Except {
			if name == other {
				return fmt.Errorf("branch %q listed in both only and except", name)
			}
		}
	}

	for i, hook := range m.Notifications.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d: url is required", i)
		}
		if err := validatePolicy(hook.OnSuccess); err != nil {
			return fmt.Errorf("webhook %d: on_success: %w", i, err)
		}
		if err := validatePolicy(hook.OnFailure); err != nil {
			return fmt.Errorf("webhook %d: on_failure: %w", i, err)
		}
	}

	return nil
}

func validatePolicy(policy string) error {
	switch policy {
	case "", PolicyAlways, PolicyNever, PolicyChange:
		return nil
	default:
		return fmt.Errorf("unknown notification policy %q", policy)
	}
}
