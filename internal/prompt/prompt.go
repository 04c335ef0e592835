// Package prompt manages the three prompt templates driving categorization,
// action extraction, and reply drafting.
package prompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Set is a snapshot of the three prompt templates. Batch runs take one
// snapshot up front so an edit mid-run cannot produce mixed-prompt results.
type Set struct {
	Categorization string `json:"categorization_prompt"`
	ActionItem     string `json:"action_item_prompt"`
	AutoReply      string `json:"auto_reply_prompt"`
}

// Defaults returns the built-in prompt set used when nothing is persisted.
func Defaults() Set {
	return Set{
		Categorization: "You are an email categorization assistant. " +
			"Categorize this email into one of these categories: Important, Newsletter, Spam, To-Do. " +
			"To-Do emails must include a direct request requiring user action. " +
			"Reply ONLY with the category name.",
		ActionItem: "Extract all action items and deadlines from this email. Respond in JSON as a list under 'tasks': " +
			`[{"task": "...", "deadline": "..."}]. If there is no explicit deadline, set "deadline": null.`,
		AutoReply: "You write polite, concise professional replies. Draft a reply to this email based on the user's tone: " +
			"friendly but professional. If it is a meeting request, ask for an agenda and confirm time. " +
			"Respond with Subject and Body in a clearly marked format.",
	}
}

// WithDefaults fills any blank template from the defaults, so a loaded set
// always has all three prompts.
func (s Set) WithDefaults() Set {
	d := Defaults()
	if strings.TrimSpace(s.Categorization) == "" {
		s.Categorization = d.Categorization
	}
	if strings.TrimSpace(s.ActionItem) == "" {
		s.ActionItem = d.ActionItem
	}
	if strings.TrimSpace(s.AutoReply) == "" {
		s.AutoReply = d.AutoReply
	}
	return s
}

// Store persists the prompt set as one JSON file, overwritten wholesale.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load returns the persisted set with defaults filled in. A missing or
// unreadable file yields the defaults.
func (s *Store) Load() Set {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return Defaults()
	}
	var set Set
	if err := json.Unmarshal(b, &set); err != nil {
		return Defaults()
	}
	return set.WithDefaults()
}

func (s *Store) Save(set Set) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}
