// Package services provides the core services of the debate engine: the
// personality registry, the conversation session, the persistence engine,
// the turn orchestrator, and the provider clients.
package services

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"debatecore/internal/logger"
	"debatecore/pkg/debatetypes"

	"gopkg.in/yaml.v3"
)

//go:embed personalities.json
var defaultPersonalityData []byte

// DefaultPersonalityID is offered as the safe fallback when a stored
// conversation references a personality that no longer resolves.
const DefaultPersonalityID = "debate_bro"

// PersonalityService resolves personality identifiers to fully resolved
// profiles. Prompt text is resolved eagerly at initialization from either a
// referenced prompt file or inline config text; callers never branch on the
// origin. Resolution failures are recorded per identifier and do not abort
// construction: unaffected personalities remain usable.
type PersonalityService struct {
	initialized bool

	configPath string // optional personalities file; embedded defaults when empty
	configs    map[string]debatetypes.PersonalityConfig

	mu       sync.RWMutex
	resolved map[string]*debatetypes.Personality // append-only cache
	failures map[string]error
}

// NewPersonalityService creates a personality service backed by the embedded
// default personality set.
func NewPersonalityService() *PersonalityService {
	return &PersonalityService{}
}

// NewPersonalityServiceFromFile creates a personality service backed by a
// JSON or YAML personalities file.
func NewPersonalityServiceFromFile(path string) *PersonalityService {
	return &PersonalityService{configPath: path}
}

// Name returns the service name "personality" for registration.
func (p *PersonalityService) Name() string {
	return "personality"
}

// Initialize loads the personality configs and eagerly resolves every entry.
func (p *PersonalityService) Initialize() error {
	if p.initialized {
		return nil
	}

	configs, err := p.loadConfigs()
	if err != nil {
		return err
	}

	p.configs = configs
	p.resolved = make(map[string]*debatetypes.Personality)
	p.failures = make(map[string]error)

	for id := range configs {
		if _, err := p.resolveLocked(id); err != nil {
			logger.Warn("Personality failed to resolve", "personality", id, "error", err)
		}
	}

	p.initialized = true
	logger.Debug("Personality service initialized",
		"resolved", len(p.resolved), "failed", len(p.failures))
	return nil
}

// loadConfigs parses the configured personalities file, or the embedded
// defaults when no file was given.
func (p *PersonalityService) loadConfigs() (map[string]debatetypes.PersonalityConfig, error) {
	data := defaultPersonalityData
	if p.configPath != "" {
		fileData, err := os.ReadFile(p.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read personalities file: %w", err)
		}
		data = fileData
	}

	configs := make(map[string]debatetypes.PersonalityConfig)
	if strings.HasSuffix(p.configPath, ".yaml") || strings.HasSuffix(p.configPath, ".yml") {
		if err := yaml.Unmarshal(data, &configs); err != nil {
			return nil, fmt.Errorf("failed to parse personalities YAML: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &configs); err != nil {
			return nil, fmt.Errorf("failed to parse personalities JSON: %w", err)
		}
	}

	if len(configs) == 0 {
		return nil, fmt.Errorf("personalities config contains no entries")
	}

	return configs, nil
}

// Resolve returns the fully resolved personality for an identifier.
// Identifiers that failed eager resolution are retried here; a success is
// cached so re-resolution is idempotent.
func (p *PersonalityService) Resolve(id string) (*debatetypes.Personality, error) {
	if !p.initialized {
		return nil, fmt.Errorf("personality service not initialized")
	}

	p.mu.RLock()
	personality, ok := p.resolved[id]
	p.mu.RUnlock()
	if ok {
		return personality, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolveLocked(id)
}

// resolveLocked resolves one identifier into the cache. Caller holds mu.
func (p *PersonalityService) resolveLocked(id string) (*debatetypes.Personality, error) {
	if personality, ok := p.resolved[id]; ok {
		return personality, nil
	}

	config, ok := p.configs[id]
	if !ok {
		err := fmt.Errorf("personality '%s' not found", id)
		p.failures[id] = err
		return nil, err
	}

	var prompt string
	switch {
	case config.PromptFile != "" && config.SystemPrompt != "":
		err := fmt.Errorf("personality '%s' sets both prompt_file and system_prompt", id)
		p.failures[id] = err
		return nil, err
	case config.PromptFile != "":
		text, err := p.readPromptFile(config.PromptFile)
		if err != nil {
			p.failures[id] = err
			return nil, err
		}
		prompt = text
	case config.SystemPrompt != "":
		prompt = config.SystemPrompt
	default:
		err := fmt.Errorf("personality '%s' sets neither prompt_file nor system_prompt", id)
		p.failures[id] = err
		return nil, err
	}

	if strings.TrimSpace(prompt) == "" {
		err := fmt.Errorf("personality '%s' resolved to empty prompt text", id)
		p.failures[id] = err
		return nil, err
	}

	personality := &debatetypes.Personality{
		ID:           id,
		Name:         config.Name,
		Emoji:        config.Emoji,
		Description:  config.Description,
		SystemPrompt: strings.TrimSpace(prompt),
	}

	p.resolved[id] = personality
	delete(p.failures, id)
	return personality, nil
}

// readPromptFile reads a referenced prompt file, relative to the directory of
// the personalities file when the reference is not absolute.
func (p *PersonalityService) readPromptFile(ref string) (string, error) {
	path := ref
	if !filepath.IsAbs(ref) && p.configPath != "" {
		path = filepath.Join(filepath.Dir(p.configPath), ref)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", ref, err)
	}
	return string(data), nil
}

// ResolutionFailures returns the identifiers that failed resolution, each
// with its recorded error. Reported once per identifier.
func (p *PersonalityService) ResolutionFailures() map[string]error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	failures := make(map[string]error, len(p.failures))
	for id, err := range p.failures {
		failures[id] = err
	}
	return failures
}

// IDs returns all configured personality identifiers in sorted order.
func (p *PersonalityService) IDs() []string {
	ids := make([]string, 0, len(p.configs))
	for id := range p.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FallbackID returns the identifier of the safe fallback personality:
// DefaultPersonalityID when it resolves, otherwise the first resolvable
// identifier in sorted order. The choice is deterministic.
func (p *PersonalityService) FallbackID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.resolved[DefaultPersonalityID]; ok {
		return DefaultPersonalityID
	}

	ids := make([]string, 0, len(p.resolved))
	for id := range p.resolved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > 0 {
		return ids[0]
	}
	return ""
}
