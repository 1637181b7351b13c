// Package gotrue implements goGuard.IdentityProvider against a GoTrue-compatible auth
// server (the /factors and /user endpoints). Every call is made with the access token
// of the principal's session, registered through SetSession.
package gotrue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

type Config struct {
	// BaseURL is the auth server root, e.g. https://project.example.co/auth/v1.
	BaseURL string
	// APIKey is sent as the apikey header when set.
	APIKey  string
	Timeout time.Duration
}

// Provider keeps one access token per principal. A successful verification replaces
// it with the upgraded token returned by the server.
type Provider struct {
	client *resty.Client

	mu     sync.RWMutex
	tokens map[string]string
}

var _ goGuard.IdentityProvider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	baseURL, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	cli := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		cli.SetHeader("apikey", cfg.APIKey)
	}

	return &Provider{client: cli, tokens: make(map[string]string)}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty address")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("address must include host and scheme")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// SetSession registers the access token used for principalID's calls.
func (p *Provider) SetSession(principalID, accessToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[principalID] = strings.TrimSpace(accessToken)
}

// EndSession forgets the token of principalID.
func (p *Provider) EndSession(principalID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tokens, principalID)
}

func (p *Provider) Token(principalID string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tokens[principalID]
}

func (p *Provider) request(ctx context.Context, principalID string) (*resty.Request, error) {
	token := p.Token(principalID)
	if token == "" {
		return nil, ErrNoSession
	}
	return p.client.R().SetContext(ctx).SetAuthToken(token), nil
}

type enrollResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	TOTP struct {
		QRCode string `json:"qr_code"`
		Secret string `json:"secret"`
		URI    string `json:"uri"`
	} `json:"totp"`
}

func (p *Provider) EnrollFactor(ctx context.Context, principalID string, req goGuard.EnrollRequest) (goGuard.Enrollment, error) {
	r, err := p.request(ctx, principalID)
	if err != nil {
		return goGuard.Enrollment{}, err
	}

	var out enrollResponse
	resp, err := r.
		SetBody(map[string]string{
			"factor_type":   req.FactorType,
			"friendly_name": req.FriendlyName,
			"issuer":        req.Issuer,
		}).
		SetResult(&out).
		Post("/factors")
	if err != nil {
		return goGuard.Enrollment{}, fmt.Errorf("enroll request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return goGuard.Enrollment{}, err
	}

	return goGuard.Enrollment{
		FactorID: out.ID,
		Secret:   out.TOTP.Secret,
		QRCode:   out.TOTP.QRCode,
		URI:      out.TOTP.URI,
	}, nil
}

type factorJSON struct {
	ID           string    `json:"id"`
	FriendlyName string    `json:"friendly_name"`
	FactorType   string    `json:"factor_type"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type userResponse struct {
	ID      string       `json:"id"`
	Factors []factorJSON `json:"factors"`
}

// ListFactors returns every factor of the user; the orchestrator keeps TOTP only.
func (p *Provider) ListFactors(ctx context.Context, principalID string) ([]goGuard.Factor, error) {
	u, err := p.user(ctx, principalID)
	if err != nil {
		return nil, err
	}

	out := make([]goGuard.Factor, 0, len(u.Factors))
	for _, f := range u.Factors {
		out = append(out, goGuard.Factor{
			ID:           f.ID,
			FriendlyName: f.FriendlyName,
			Type:         f.FactorType,
			Status:       goGuard.FactorStatus(f.Status),
			CreatedAt:    f.CreatedAt,
		})
	}
	return out, nil
}

func (p *Provider) user(ctx context.Context, principalID string) (userResponse, error) {
	r, err := p.request(ctx, principalID)
	if err != nil {
		return userResponse{}, err
	}

	var out userResponse
	resp, err := r.SetResult(&out).Get("/user")
	if err != nil {
		return userResponse{}, fmt.Errorf("user request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return userResponse{}, err
	}
	return out, nil
}

// AssuranceLevel reads the current level from the aal claim of the session token and
// derives the next level from the user's verified factors. The token signature is not
// checked here; the server checks it on every call.
func (p *Provider) AssuranceLevel(ctx context.Context, principalID string) (goGuard.AssuranceLevel, goGuard.AssuranceLevel, error) {
	token := p.Token(principalID)
	if token == "" {
		return "", "", ErrNoSession
	}
	current, err := aalFromToken(token)
	if err != nil {
		return "", "", err
	}

	u, err := p.user(ctx, principalID)
	if err != nil {
		return "", "", err
	}
	next := goGuard.AAL1
	for _, f := range u.Factors {
		if goGuard.FactorStatus(f.Status) == goGuard.FactorVerified {
			next = goGuard.AAL2
			break
		}
	}
	return current, next, nil
}

func aalFromToken(tokenString string) (goGuard.AssuranceLevel, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidClaims
	}
	aal, _ := claims["aal"].(string)
	if aal == "" {
		return goGuard.AAL1, nil
	}
	return goGuard.AssuranceLevel(aal), nil
}

type challengeResponse struct {
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

func (p *Provider) CreateChallenge(ctx context.Context, principalID, factorID string) (goGuard.Challenge, error) {
	r, err := p.request(ctx, principalID)
	if err != nil {
		return goGuard.Challenge{}, err
	}

	var out challengeResponse
	resp, err := r.
		SetPathParam("factorID", factorID).
		SetResult(&out).
		Post("/factors/{factorID}/challenge")
	if err != nil {
		return goGuard.Challenge{}, fmt.Errorf("challenge request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return goGuard.Challenge{}, err
	}

	c := goGuard.Challenge{ID: out.ID, FactorID: factorID}
	if out.ExpiresAt > 0 {
		c.ExpiresAt = time.Unix(out.ExpiresAt, 0).UTC()
	}
	return c, nil
}

type verifyResponse struct {
	AccessToken string `json:"access_token"`
}

// VerifyChallenge checks code and adopts the upgraded access token.
func (p *Provider) VerifyChallenge(ctx context.Context, principalID, factorID, challengeID, code string) error {
	r, err := p.request(ctx, principalID)
	if err != nil {
		return err
	}

	var out verifyResponse
	resp, err := r.
		SetPathParam("factorID", factorID).
		SetBody(map[string]string{
			"challenge_id": challengeID,
			"code":         code,
		}).
		SetResult(&out).
		Post("/factors/{factorID}/verify")
	if err != nil {
		return fmt.Errorf("verify request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return err
	}

	if out.AccessToken != "" {
		p.SetSession(principalID, out.AccessToken)
	}
	return nil
}

func (p *Provider) UnenrollFactor(ctx context.Context, principalID, factorID string) error {
	r, err := p.request(ctx, principalID)
	if err != nil {
		return err
	}

	resp, err := r.
		SetPathParam("factorID", factorID).
		Delete("/factors/{factorID}")
	if err != nil {
		return fmt.Errorf("unenroll request: %w", err)
	}
	return mapHTTPError(resp)
}
