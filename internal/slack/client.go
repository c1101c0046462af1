// Package slack es un cliente mínimo de la Web API de Slack.
// Solo cubre los métodos que usan el Directory y el Notifier:
// users.info, conversations.open y chat.postMessage.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL es la raíz de la Web API.
const DefaultBaseURL = "https://slack.com/api"

// ErrNoToken indica que el tenant no tiene bot token configurado.
var ErrNoToken = errors.New("slack: no bot token for tenant")

// APIError es una respuesta {"ok": false, "error": "..."}.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack: %s: %s", e.Method, e.Code)
}

// NotFound indica errores de "recurso inexistente".
func (e *APIError) NotFound() bool {
	switch e.Code {
	case "user_not_found", "users_not_found", "channel_not_found":
		return true
	}
	return false
}

// StatusError es una respuesta HTTP no-2xx (429, 5xx, ...).
type StatusError struct {
	Method string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("slack: %s: status %d", e.Method, e.Status)
}

// TokenFunc resuelve el bot token del workspace de un tenant.
type TokenFunc func(tenant string) string

// Client llama a la Web API con el token del tenant.
type Client struct {
	baseURL string
	token   TokenFunc
	http    *http.Client
}

// New crea un cliente. baseURL vacío usa DefaultBaseURL.
func New(baseURL string, timeout time.Duration, token TokenFunc) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// call hace POST form-encoded y decodifica la respuesta en out.
func (c *Client) call(ctx context.Context, tenant, method string, form url.Values, out any) error {
	token := ""
	if c.token != nil {
		token = c.token(tenant)
	}
	if token == "" {
		return ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Status: resp.StatusCode}
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("slack: %s: decode: %w", method, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("slack: %s: decode: %w", method, err)
	}
	if !env.OK {
		return &APIError{Method: method, Code: env.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("slack: %s: decode: %w", method, err)
	}
	return nil
}

// ─── users.info ───

// User es el subconjunto de users.info que interesa.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	Profile  struct {
		RealName    string `json:"real_name"`
		DisplayName string `json:"display_name"`
		Image192    string `json:"image_192"`
		Email       string `json:"email"`
	} `json:"profile"`
}

// UserInfo retorna el usuario del workspace del tenant.
func (c *Client) UserInfo(ctx context.Context, tenant, userID string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	form := url.Values{}
	form.Set("user", userID)
	if err := c.call(ctx, tenant, "users.info", form, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ─── conversations.open + chat.postMessage ───

// OpenConversation abre (o reutiliza) un DM/MPIM con los usuarios dados.
func (c *Client) OpenConversation(ctx context.Context, tenant string, userIDs []string) (string, error) {
	var out struct {
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}
	form := url.Values{}
	form.Set("users", strings.Join(userIDs, ","))
	if err := c.call(ctx, tenant, "conversations.open", form, &out); err != nil {
		return "", err
	}
	if out.Channel.ID == "" {
		return "", &APIError{Method: "conversations.open", Code: "missing_channel"}
	}
	return out.Channel.ID, nil
}

// PostMessage publica texto plano (mrkdwn) en el canal.
func (c *Client) PostMessage(ctx context.Context, tenant, channel, text string) error {
	form := url.Values{}
	form.Set("channel", channel)
	form.Set("text", text)
	return c.call(ctx, tenant, "chat.postMessage", form, nil)
}
