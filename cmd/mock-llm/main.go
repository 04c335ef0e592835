// Command mock-llm serves an OpenAI-format chat-completions endpoint backed
// by canned answers, for local runs of the pipeline without a real provider.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/stackbay/inbox-agent/internal/mockllm"
)

func main() {
	addr := defaultString("MOCK_LLM_ADDR", ":8081")
	token := defaultString("MOCK_LLM_TOKEN", "")

	fs := flag.NewFlagSet("mock-llm", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&token, "token", token, "Require this bearer token on every request (empty disables)")
	_ = fs.Parse(os.Args[1:])

	srv := mockllm.New()
	srv.RequireBearerToken(token)
	srv.Respond(func(prompt string) string {
		// Categorization prompts get a label, extraction prompts get an
		// empty task list, everything else a canned sentence.
		switch {
		case strings.Contains(prompt, "valid JSON"):
			return `{"tasks": []}`
		case strings.Contains(prompt, "category"):
			return "Important"
		default:
			return "This is a canned mock-llm reply."
		}
	})

	_, _ = fmt.Fprintf(os.Stdout, "mock-llm listening on %s\n", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
