// Package discord links paying students to the community server.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zeebo/errs"
	"golang.org/x/oauth2"

	"student-billing/internal/reconcile"
)

var Error = errs.Class("discord")

const (
	DefaultAPIBase = "https://discord.com/api/v9"
	authorizeURL   = "https://discord.com/api/oauth2/authorize"
)

type Config struct {
	GuildID        string
	BotToken       string
	ClientID       string
	StudentRoleID  string
	CheckoutDomain string
	// APIBase overrides DefaultAPIBase.
	APIBase string
}

type Client struct {
	cfg   Config
	oauth *oauth2.Config
	http  *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			Endpoint:    oauth2.Endpoint{AuthURL: authorizeURL},
			RedirectURL: cfg.CheckoutDomain + "/students/discord_success",
			Scopes:      []string{"identify", "email", "guilds.join"},
		},
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// VerificationLink is the implicit-grant authorize URL; Discord redirects
// back with the access token and state.
func (c *Client) VerificationLink(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("response_type", "token"))
}

type profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
}

func (p profile) handle() string {
	if p.Discriminator == "" || p.Discriminator == "0" {
		return p.Username
	}
	return p.Username + "#" + p.Discriminator
}

// Join resolves the user behind accessToken, adds them to the guild and
// grants the student role. Both PUTs are idempotent on Discord's side.
func (c *Client) Join(ctx context.Context, accessToken string) (reconcile.CommunityMember, error) {
	var member reconcile.CommunityMember

	userClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	var p profile
	if err := c.do(ctx, userClient, http.MethodGet, "/users/@me", "", nil, &p); err != nil {
		return member, err
	}
	if p.ID == "" {
		return member, Error.New("profile without id")
	}

	memberPath := fmt.Sprintf("/guilds/%s/members/%s", c.cfg.GuildID, p.ID)
	bot := "Bot " + c.cfg.BotToken
	if err := c.do(ctx, c.http, http.MethodPut, memberPath, bot, map[string]string{"access_token": accessToken}, nil); err != nil {
		return member, err
	}
	rolePath := memberPath + "/roles/" + c.cfg.StudentRoleID
	if err := c.do(ctx, c.http, http.MethodPut, rolePath, bot, map[string]string{}, nil); err != nil {
		return member, err
	}

	member.UserID = p.ID
	member.Handle = p.handle()
	return member, nil
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path, auth string, body, out any) (err error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Error.Wrap(err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIBase+path, reader)
	if err != nil {
		return Error.Wrap(err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, resp.Body.Close()) }()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Error.New("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Error.New("decode %s: %v", path, err)
	}
	return nil
}
