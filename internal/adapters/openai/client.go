package openai

import (
    "context"
    "encoding/json"
    "errors"
    "strings"
    "time"

    openai "github.com/openai/openai-go/v2"
    "github.com/openai/openai-go/v2/option"
    "github.com/openai/openai-go/v2/shared"

    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    "github.com/marcelomcd/NewFarol-sub000/internal/domain"
    "github.com/rs/zerolog"
)

type Client struct {
    key     string
    model   string
    timeout time.Duration
    cli     openai.Client
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    model := cfg.OpenAIModel
    if strings.TrimSpace(model) == "" { model = "gpt-4.1-mini" }
    cli := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey))
    return &Client{key: cfg.OpenAIKey, model: model, timeout: cfg.OpenAITimeout, cli: cli, log: log}
}

// Summarize turns the consolidated totals and client summary into a short
// executive text. Row lists are left out of the prompt on purpose; the
// aggregates carry the signal and the lists carry names.
func (c *Client) Summarize(ctx context.Context, report domain.ConsolidatedReport) (string, error) {
    if strings.TrimSpace(c.key) == "" { return "", errors.New("openai: missing key") }
    if c.timeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, c.timeout)
        defer cancel()
    }
    c.log.Info().Str("model", c.model).Msg("openai Summarize call")
    payload := map[string]any{
        "totals":       report.Totals,
        "clients":      report.Clients.Summary,
        "pmos":         report.PMOs.Items,
        "generated_at": report.Meta.GeneratedAt,
    }
    userContent := ""
    if b, err := json.Marshal(payload); err == nil { userContent = string(b) }
    params := openai.ChatCompletionNewParams{
        Model: shared.ChatModel(c.model),
        Messages: []openai.ChatCompletionMessageParamUnion{
            openai.SystemMessage("You are a senior PMO analyst. Given portfolio totals and per-client counts, produce a concise executive summary in Brazilian Portuguese: overall health, overdue and near-deadline pressure, and which clients need attention."),
            openai.UserMessage(userContent),
        },
    }
    resp, err := c.cli.Chat.Completions.New(ctx, params)
    if err != nil { return "", err }
    if len(resp.Choices) == 0 { return "", errors.New("openai: no choices") }
    return resp.Choices[0].Message.Content, nil
}
