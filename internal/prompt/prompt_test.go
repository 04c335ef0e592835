package prompt_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stackbay/inbox-agent/internal/prompt"
)

func TestLoadFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		s := prompt.NewStore(filepath.Join(dir, "nope.json"))
		if got := s.Load(); !reflect.DeepEqual(got, prompt.Defaults()) {
			t.Fatalf("expected defaults, got %#v", got)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
			t.Fatal(err)
		}
		s := prompt.NewStore(path)
		if got := s.Load(); !reflect.DeepEqual(got, prompt.Defaults()) {
			t.Fatalf("expected defaults, got %#v", got)
		}
	})
}

func TestLoadFillsBlankPrompts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prompts.json")
	data := `{"categorization_prompt": "Sort this email.", "action_item_prompt": "  "}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	got := prompt.NewStore(path).Load()
	if got.Categorization != "Sort this email." {
		t.Fatalf("custom prompt lost: %q", got.Categorization)
	}
	d := prompt.Defaults()
	if got.ActionItem != d.ActionItem || got.AutoReply != d.AutoReply {
		t.Fatalf("blank prompts not defaulted: %#v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := prompt.NewStore(filepath.Join(t.TempDir(), "data", "prompts.json"))

	set := prompt.Defaults()
	set.Categorization = "Custom categorizer."
	if err := s.Save(set); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := s.Load(); !reflect.DeepEqual(got, set) {
		t.Fatalf("round trip mismatch: %#v vs %#v", got, set)
	}
}

func TestWithDefaultsKeepsNonBlankValues(t *testing.T) {
	t.Parallel()

	set := prompt.Set{AutoReply: "Reply tersely."}.WithDefaults()
	d := prompt.Defaults()
	if set.AutoReply != "Reply tersely." {
		t.Fatalf("custom value overwritten: %q", set.AutoReply)
	}
	if set.Categorization != d.Categorization || set.ActionItem != d.ActionItem {
		t.Fatalf("blanks not filled: %#v", set)
	}
}
