// Package mockllm implements a minimal OpenAI-format chat-completions surface
// for tests: scripted responses, failure injection, and call recording.
package mockllm

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Call records one completion request made to the mock service. MaxTokens is
// zero when the request omitted the cap.
type Call struct {
	Model     string
	Prompt    string
	MaxTokens int
}

type step struct {
	delay   time.Duration
	status  int
	content string
	body    string
}

// Server serves /chat/completions-style requests. Queued steps are consumed
// in order; once the queue is empty the Respond function (or a fixed "OK")
// answers everything.
type Server struct {
	mu      sync.Mutex
	calls   []Call
	queue   []step
	respond func(prompt string) string

	expectedAuthorization string
}

func New() *Server {
	return &Server{}
}

// RequireBearerToken enforces that requests carry a matching Authorization
// header. An empty token disables the check.
func (s *Server) RequireBearerToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	if token == "" {
		s.expectedAuthorization = ""
		return
	}
	s.expectedAuthorization = "Bearer " + token
}

// Respond installs the default responder used when the scripted queue is
// empty.
func (s *Server) Respond(fn func(prompt string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respond = fn
}

// QueueContent scripts one successful completion.
func (s *Server) QueueContent(content string) {
	s.push(step{status: http.StatusOK, content: content})
}

// QueueStatus scripts one non-200 response with the given body.
func (s *Server) QueueStatus(status int, body string) {
	s.push(step{status: status, body: body})
}

// QueueDelay scripts one successful completion served after a pause, for
// timeout tests.
func (s *Server) QueueDelay(delay time.Duration, content string) {
	s.push(step{delay: delay, status: http.StatusOK, content: content})
}

func (s *Server) push(st step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, st)
}

// Calls returns a snapshot of the recorded requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Handler returns the http.Handler serving the mock API.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens int `json:"max_tokens"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}

	s.mu.Lock()
	if s.expectedAuthorization != "" && r.Header.Get("Authorization") != s.expectedAuthorization {
		s.mu.Unlock()
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.calls = append(s.calls, Call{Model: req.Model, Prompt: prompt, MaxTokens: req.MaxTokens})

	var st step
	if len(s.queue) > 0 {
		st = s.queue[0]
		s.queue = s.queue[1:]
	} else {
		content := "OK"
		if s.respond != nil {
			content = s.respond(prompt)
		}
		st = step{status: http.StatusOK, content: content}
	}
	s.mu.Unlock()

	if st.delay > 0 {
		time.Sleep(st.delay)
	}

	if st.status != http.StatusOK {
		http.Error(w, st.body, st.status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": st.content}},
		},
	})
}
