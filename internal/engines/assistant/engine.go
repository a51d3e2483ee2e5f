// Package assistant implements the in-app AI helper. When a Groq API key is
// configured it calls the OpenAI-compatible chat completion endpoint in JSON
// mode; otherwise a deterministic parser recognizes transfer commands so the
// assistant stays useful offline.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bellybank/bellybank/internal/models"
	"github.com/bellybank/bellybank/pkg/healthcheck"
)

// ErrVoiceUnavailable is returned when voice transcription is not configured.
var ErrVoiceUnavailable = fmt.Errorf("voice recognition is not configured")

const (
	chatModel          = "llama-3.3-70b-versatile"
	transcriptionModel = "whisper-large-v3"
	requestTimeout     = 30 * time.Second
)

// systemPrompt steers the model to answer banking questions and emit a
// machine-readable transfer action when the user asks to send money. The
// caller's account balances are appended per request so balance questions
// can be answered directly.
const systemPrompt = `You are a banking app assistant. Answer briefly in the user's language.
When the user asks to transfer money, respond with JSON:
{"reply": "<confirmation text>", "action": "transfer", "data": {"amount": <number>, "phone": "<recipient phone>"}}
For everything else respond with JSON:
{"reply": "<your answer>", "action": null, "data": null}`

// AccountLister supplies the caller's accounts for prompt context.
type AccountLister interface {
	ListAccounts(ctx context.Context, userID int64) ([]*models.Account, error)
}

// Action names the operation the client should perform on behalf of the user.
type Action string

// ActionTransfer asks the client to confirm and execute a P2P transfer.
const ActionTransfer Action = "transfer"

// TransferIntent carries the parameters of a recognized transfer command.
type TransferIntent struct {
	Amount decimal.Decimal `json:"amount"`
	Phone  string          `json:"phone"`
}

// Response is what the assistant returns for a chat or voice message.
type Response struct {
	Reply  string          `json:"reply"`
	Action *Action         `json:"action"`
	Data   *TransferIntent `json:"data,omitempty"`
}

// Engine answers chat and voice messages.
type Engine struct {
	apiKey   string
	baseURL  string
	accounts AccountLister
	client   *http.Client
	logger   *zap.Logger
}

// NewEngine creates an assistant engine. An empty apiKey disables the remote
// model and activates the deterministic fallback; a nil accounts lister
// leaves the prompt without balance context.
func NewEngine(apiKey, baseURL string, accounts AccountLister, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		apiKey:   apiKey,
		baseURL:  baseURL,
		accounts: accounts,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger.With(zap.String("engine", "assistant")),
	}
}

// Remote reports whether a remote model backs the assistant.
func (e *Engine) Remote() bool {
	return e.apiKey != ""
}

// Chat answers a text message from the given user. Remote failures fall back
// to the local parser so the endpoint degrades instead of erroring.
func (e *Engine) Chat(ctx context.Context, userID int64, message string) (*Response, error) {
	if e.Remote() {
		resp, err := e.completeJSON(ctx, e.buildPrompt(ctx, userID), message)
		if err == nil {
			return resp, nil
		}
		e.logger.Warn("Remote completion failed, using local parser", zap.Error(err))
	}
	return ParseIntent(message), nil
}

// buildPrompt appends the caller's card balances to the system prompt so the
// model can answer balance questions. Lookup failures degrade to the bare
// prompt rather than failing the chat turn.
func (e *Engine) buildPrompt(ctx context.Context, userID int64) string {
	if e.accounts == nil {
		return systemPrompt
	}

	accounts, err := e.accounts.ListAccounts(ctx, userID)
	if err != nil {
		e.logger.Warn("Failed to load accounts for prompt context",
			zap.Int64("user_id", userID), zap.Error(err))
		return systemPrompt
	}
	if len(accounts) == 0 {
		return systemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nCustomer accounts:")
	for _, acc := range accounts {
		suffix := acc.CardNumber
		if len(suffix) > 4 {
			suffix = suffix[len(suffix)-4:]
		}
		fmt.Fprintf(&b, "\n- card *%s: %s %s", suffix, acc.Balance.StringFixed(2), acc.Currency)
		if acc.IsBlocked {
			b.WriteString(" (blocked)")
		}
	}
	return b.String()
}

// chatRequest is the OpenAI-compatible completion request body.
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatCompletion struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// completeJSON sends one chat turn in JSON mode and decodes the structured
// assistant response.
func (e *Engine) completeJSON(ctx context.Context, prompt, message string) (*Response, error) {
	body, err := json.Marshal(&chatRequest{
		Model: chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: message},
		},
		Temperature:    0.3,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("completion returned status %d: %s", resp.StatusCode, snippet)
	}

	var completion chatCompletion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("failed to decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	var out Response
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &out); err != nil {
		// Model ignored JSON mode; treat the raw content as the reply.
		return &Response{Reply: completion.Choices[0].Message.Content}, nil
	}
	return &out, nil
}

// Voice transcribes an audio message and answers it like a chat message.
func (e *Engine) Voice(ctx context.Context, userID int64, filename string, audio io.Reader) (*Response, string, error) {
	if !e.Remote() {
		return nil, "", ErrVoiceUnavailable
	}

	text, err := e.transcribe(ctx, filename, audio)
	if err != nil {
		return nil, "", err
	}

	resp, err := e.Chat(ctx, userID, text)
	return resp, text, err
}

// transcribe forwards the audio to the OpenAI-compatible transcription
// endpoint and returns the recognized text.
func (e *Engine) transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build transcription form: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("failed to copy audio: %w", err)
	}
	if err := writer.WriteField("model", transcriptionModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish transcription form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription returned status %d: %s", resp.StatusCode, snippet)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode transcription: %w", err)
	}
	return out.Text, nil
}

// Check returns the health status of the assistant engine.
func (e *Engine) Check(ctx context.Context) *healthcheck.Result {
	status := healthcheck.StatusHealthy
	message := "Assistant running with local parser"
	if e.Remote() {
		message = "Assistant backed by remote model"
	}

	return &healthcheck.Result{
		ComponentName: "assistant_engine",
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details:       map[string]interface{}{"remote": e.Remote()},
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return "assistant_engine"
}
