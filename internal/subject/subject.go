// Package subject manages the agents under assessment. Each agent lives in
// its own JSON file under .assay/agents/ so subjects can be checked into the
// project repository and shared across sessions.
package subject

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Agent describes one assessment subject. Name is the stable identifier shown
// in pickers and stamped into results.
type Agent struct {
	Name        string   `json:"name"`
	Role        string   `json:"role,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Normalize trims fields and checks that the agent is usable.
func (a Agent) Normalize() (Agent, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return Agent{}, errors.New("subject: agent missing name")
	}
	a.Role = strings.TrimSpace(a.Role)
	a.Description = strings.TrimSpace(a.Description)
	for i, tag := range a.Tags {
		a.Tags[i] = strings.TrimSpace(tag)
	}
	return a, nil
}

// FileName derives the on-disk name for this agent, lowercased with spaces
// collapsed to hyphens.
func (a Agent) FileName() string {
	slug := strings.ToLower(strings.TrimSpace(a.Name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug + ".json"
}

// Load reads a single agent file.
func Load(path string) (Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Agent{}, fmt.Errorf("subject: read %s: %w", path, err)
	}
	var agent Agent
	if err := json.Unmarshal(data, &agent); err != nil {
		return Agent{}, fmt.Errorf("subject: parse %s: %w", path, err)
	}
	agent, err = agent.Normalize()
	if err != nil {
		return Agent{}, fmt.Errorf("subject: %s: %w", path, err)
	}
	return agent, nil
}

// List returns every agent under dir sorted by name. A missing directory
// means no subjects yet, not an error.
func List(dir string) ([]Agent, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("subject: read %s: %w", dir, err)
	}
	var agents []Agent
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		agent, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool {
		return strings.ToLower(agents[i].Name) < strings.ToLower(agents[j].Name)
	})
	return agents, nil
}

// Save writes the agent to dir under its derived file name.
func Save(dir string, agent Agent) (string, error) {
	agent, err := agent.Normalize()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("subject: ensure %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(agent, "", "  ")
	if err != nil {
		return "", fmt.Errorf("subject: encode %s: %w", agent.Name, err)
	}
	path := filepath.Join(dir, agent.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("subject: write %s: %w", path, err)
	}
	return path, nil
}
