package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/stackbay/inbox-agent/internal/agent"
	"github.com/stackbay/inbox-agent/internal/config"
	"github.com/stackbay/inbox-agent/internal/enrich"
	"github.com/stackbay/inbox-agent/internal/llm"
	"github.com/stackbay/inbox-agent/internal/llm/gemini"
	"github.com/stackbay/inbox-agent/internal/mail"
	"github.com/stackbay/inbox-agent/internal/pipeline"
	"github.com/stackbay/inbox-agent/internal/prompt"
	"github.com/stackbay/inbox-agent/internal/redact"
	"github.com/stackbay/inbox-agent/internal/score"
	"github.com/stackbay/inbox-agent/internal/stats"
	"github.com/stackbay/inbox-agent/internal/store"
	"github.com/stackbay/inbox-agent/internal/version"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version", "-version", "--version":
		fmt.Println(version.Current)
		return
	case "process":
		os.Exit(runProcess(ctx, os.Args[2:]))
	case "ask":
		os.Exit(runAsk(ctx, os.Args[2:]))
	case "reply":
		os.Exit(runReply(ctx, os.Args[2:]))
	case "stats":
		os.Exit(runStats(os.Args[2:]))
	case "prompts":
		os.Exit(runPrompts(os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func usage(w *os.File) {
	_, _ = fmt.Fprintln(w, `inbox-agent processes an inbox snapshot through a completion service.

Commands:
  process   Run the batch categorization/action-extraction pipeline
  ask       Ask a free-form question about one email
  reply     Generate (and optionally save) a reply draft for one email
  stats     Print aggregate views over the processed batch
  prompts   Show or update the persisted prompt templates
  version   Print the release version

Run "inbox-agent <command> -h" for command flags.`)
}

func loadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}

// batchMaxTokens caps batch completions; the ad hoc ask/reply calls are
// uncapped so long drafts are not truncated.
const batchMaxTokens = 300

func newCompleter(ctx context.Context, cfg *config.Config, maxTokens int) (llm.Completer, error) {
	switch cfg.LLM.Provider {
	case "gemini":
		return gemini.New(ctx, gemini.Config{
			APIKey:         cfg.LLM.APIKey,
			Model:          cfg.LLM.Model,
			BaseURL:        cfg.LLM.BaseURL,
			RequestTimeout: cfg.RequestTimeout.Std(),
		})
	default:
		return llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			Model:          cfg.LLM.Model,
			BaseURL:        cfg.LLM.BaseURL,
			MaxTokens:      maxTokens,
			RequestTimeout: cfg.RequestTimeout.Std(),
		})
	}
}

func fail(format string, args ...any) int {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(os.Stderr, redact.Secrets(msg))
	return 1
}

func runProcess(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Config file path (env: INBOX_AGENT_CONFIG)")
	workers := fs.Int("workers", 0, "Concurrent worker count override (env: WORKERS)")
	rateLimitRPS := fs.Float64("rate-limit-rps", 0, "Global request rate limit across workers, 0 disables (env: RATE_LIMIT_RPS)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail("config error: %s", err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *rateLimitRPS > 0 {
		cfg.RateLimitRPS = *rateLimitRPS
	}

	emails := store.NewInbox(cfg.InboxPath()).Load()
	if len(emails) == 0 {
		return fail("no emails found: put an inbox snapshot at %s first", cfg.InboxPath())
	}

	completer, err := newCompleter(ctx, cfg, batchMaxTokens)
	if err != nil {
		return fail("completion client error: %s", err)
	}

	// Prompts are snapshotted once per run; an edit mid-run does not mix in.
	prompts := prompt.NewStore(cfg.PromptsPath()).Load()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	logger.Printf("run=%s batch start: emails=%d workers=%d rateLimitRPS=%g", runID, len(emails), cfg.Workers, cfg.RateLimitRPS)
	start := time.Now()

	records, err := pipeline.Run(runCtx, emails, prompts, enrich.New(completer), store.NewBatch(cfg.ProcessedPath()), pipeline.Options{
		Workers:      cfg.Workers,
		RateLimitRPS: cfg.RateLimitRPS,
		OnProgress: func(p pipeline.Progress) {
			logger.Printf("run=%s item complete: %d/%d status=%s subject=%q", runID, p.Completed, p.Total, p.Status, truncate(p.Subject, 40))
		},
	})
	if err != nil {
		return fail("batch run failed: %s", err)
	}

	success := 0
	for _, r := range records {
		if r.Status == mail.StatusSuccess {
			success++
		}
	}
	if runCtx.Err() != nil {
		logger.Printf("run=%s batch interrupted: kept partial results", runID)
	}
	logger.Printf("run=%s batch complete: processed=%d success=%d errors=%d duration=%s",
		runID, len(records), success, len(records)-success, time.Since(start).Round(100*time.Millisecond))
	return 0
}

func runAsk(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Config file path (env: INBOX_AGENT_CONFIG)")
	id := fs.Int("id", 0, "Email id to ask about")
	question := fs.String("q", "", "Question to ask")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *question == "" {
		_, _ = fmt.Fprintln(os.Stderr, "ask requires -q")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail("config error: %s", err)
	}
	email, ok := findEmail(cfg, *id)
	if !ok {
		return fail("email id %d not found in %s", *id, cfg.InboxPath())
	}
	completer, err := newCompleter(ctx, cfg, 0)
	if err != nil {
		return fail("completion client error: %s", err)
	}

	answer, err := agent.Ask(ctx, completer, email, *question)
	if err != nil {
		return fail("ask failed: %s", err)
	}
	fmt.Println(answer)
	return 0
}

func runReply(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("reply", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Config file path (env: INBOX_AGENT_CONFIG)")
	id := fs.Int("id", 0, "Email id to reply to")
	save := fs.Bool("save", false, "Append the generated draft to the draft store")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail("config error: %s", err)
	}
	email, ok := findEmail(cfg, *id)
	if !ok {
		return fail("email id %d not found in %s", *id, cfg.InboxPath())
	}
	completer, err := newCompleter(ctx, cfg, 0)
	if err != nil {
		return fail("completion client error: %s", err)
	}

	prompts := prompt.NewStore(cfg.PromptsPath()).Load()
	body, err := agent.DraftReply(ctx, completer, email, prompts)
	if err != nil {
		return fail("reply draft failed: %s", err)
	}
	fmt.Println(body)

	if *save {
		var enriched *mail.EnrichedRecord
		for _, r := range store.NewBatch(cfg.ProcessedPath()).Load() {
			if r.ID == email.ID {
				enriched = &r
				break
			}
		}
		draft := agent.NewDraft(email, body, enriched)
		if err := store.NewDrafts(cfg.DraftsPath()).Append(draft); err != nil {
			return fail("save draft: %s", err)
		}
		fmt.Printf("draft saved for email %d\n", email.ID)
	}
	return 0
}

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Config file path (env: INBOX_AGENT_CONFIG)")
	topN := fs.Int("top", 10, "How many entries to show per distribution")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail("config error: %s", err)
	}
	records := store.NewBatch(cfg.ProcessedPath()).Load()
	if len(records) == 0 {
		return fail("no processed data at %s: run \"inbox-agent process\" first", cfg.ProcessedPath())
	}

	o := stats.Summarize(records)
	fmt.Printf("emails=%d senders=%d todo=%d high_priority=%d\n\n", o.TotalEmails, o.UniqueSenders, o.ToDoEmails, o.HighPriority)

	fmt.Println("Categories:")
	for _, c := range stats.CategoryCounts(records) {
		fmt.Printf("  %-24s %d\n", c.Name, c.N)
	}

	fmt.Println("\nTop senders:")
	for _, c := range stats.TopSenders(records, *topN) {
		fmt.Printf("  %-24s %d\n", c.Name, c.N)
	}

	fmt.Println("\nDaily volume:")
	for _, d := range stats.DailyVolume(records) {
		fmt.Printf("  %s  %d\n", d.Date, d.N)
	}

	fmt.Println("\nKeywords:")
	for _, c := range stats.KeywordCounts(records, *topN) {
		fmt.Printf("  %-24s %d\n", c.Name, c.N)
	}

	fmt.Println("\nPriorities:")
	for _, r := range records {
		a := score.Score(r)
		fmt.Printf("  #%-4d %-6s score=%-2d %s\n", r.ID, a.Label, a.Score, truncate(r.Subject, 48))
	}
	return 0
}

func runPrompts(args []string) int {
	fs := flag.NewFlagSet("prompts", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Config file path (env: INBOX_AGENT_CONFIG)")
	categorization := fs.String("categorization", "", "Replace the categorization prompt")
	actionItem := fs.String("actions", "", "Replace the action-item extraction prompt")
	autoReply := fs.String("reply", "", "Replace the auto-reply prompt")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail("config error: %s", err)
	}
	ps := prompt.NewStore(cfg.PromptsPath())
	set := ps.Load()

	changed := false
	if *categorization != "" {
		set.Categorization = *categorization
		changed = true
	}
	if *actionItem != "" {
		set.ActionItem = *actionItem
		changed = true
	}
	if *autoReply != "" {
		set.AutoReply = *autoReply
		changed = true
	}
	if changed {
		if err := ps.Save(set); err != nil {
			return fail("save prompts: %s", err)
		}
	}

	fmt.Printf("categorization_prompt:\n  %s\n\n", set.Categorization)
	fmt.Printf("action_item_prompt:\n  %s\n\n", set.ActionItem)
	fmt.Printf("auto_reply_prompt:\n  %s\n", set.AutoReply)
	return 0
}

func findEmail(cfg *config.Config, id int) (mail.EmailRecord, bool) {
	for _, e := range store.NewInbox(cfg.InboxPath()).Load() {
		if e.ID == id {
			return e, true
		}
	}
	return mail.EmailRecord{}, false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}
