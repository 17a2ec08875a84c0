package googlefit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/claude/calmtrack/internal/demo"
)

// TokenStore persists OAuth tokens per login. Token returns nil, nil when
// the login has never connected.
type TokenStore interface {
	Token(ctx context.Context, login string) (*oauth2.Token, error)
	SaveToken(ctx context.Context, login string, tok *oauth2.Token) error
	DeleteToken(ctx context.Context, login string) error
}

// ConnectorOptions configures a Connector.
type ConnectorOptions struct {
	OAuth  *oauth2.Config
	Store  TokenStore
	Logger *slog.Logger
	// RequestsPerSecond caps upstream calls across all users; 0 disables.
	RequestsPerSecond float64
	// Fallback, when set, fills failed metrics with substitute samples.
	Fallback *demo.Generator
	Observer Observer
	// ClientOptions are appended after the token source, mainly for tests.
	ClientOptions []option.ClientOption
}

// Connector binds stored tokens to Fetchers.
type Connector struct {
	opts    ConnectorOptions
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewConnector creates a Connector.
func NewConnector(opts ConnectorOptions) *Connector {
	c := &Connector{opts: opts, log: opts.Logger}
	if c.log == nil {
		c.log = slog.Default()
	}
	if opts.RequestsPerSecond > 0 {
		burst := max(1, int(opts.RequestsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// AuthURL returns the consent URL for state.
func (c *Connector) AuthURL(state string) string {
	return AuthURL(c.opts.OAuth, state)
}

// Exchange trades an authorization code for a token and stores it.
func (c *Connector) Exchange(ctx context.Context, login, code string) error {
	tok, err := c.opts.OAuth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	if err := c.opts.Store.SaveToken(ctx, login, tok); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	c.log.Info("google fit connected", "login", login)
	return nil
}

// Connected reports whether login has a stored token.
func (c *Connector) Connected(ctx context.Context, login string) (bool, error) {
	tok, err := c.opts.Store.Token(ctx, login)
	if err != nil {
		return false, err
	}
	return tok != nil, nil
}

// Disconnect forgets login's token.
func (c *Connector) Disconnect(ctx context.Context, login string) error {
	if err := c.opts.Store.DeleteToken(ctx, login); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	c.log.Info("google fit disconnected", "login", login)
	return nil
}

// Connect returns a Fetcher authorized as login, or ErrNotConnected.
func (c *Connector) Connect(ctx context.Context, login string) (*Fetcher, error) {
	tok, err := c.opts.Store.Token(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}
	if tok == nil {
		return nil, ErrNotConnected
	}

	ts := &savingTokenSource{
		base:  c.opts.OAuth.TokenSource(ctx, tok),
		last:  tok,
		save:  func(t *oauth2.Token) error { return c.opts.Store.SaveToken(ctx, login, t) },
		log:   c.log,
		login: login,
	}
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.opts.ClientOptions...)
	client, err := NewClient(ctx, c.log, c.limiter, opts...)
	if err != nil {
		return nil, err
	}
	return NewFetcher(client, c.opts.Fallback, c.opts.Observer, c.log), nil
}

// savingTokenSource persists tokens the base source refreshed.
type savingTokenSource struct {
	base  oauth2.TokenSource
	save  func(*oauth2.Token) error
	log   *slog.Logger
	login string

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		if err := s.save(tok); err != nil {
			s.log.Warn("persisting refreshed token", "login", s.login, "error", err)
		}
		s.last = tok
	}
	return tok, nil
}
