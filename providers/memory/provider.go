// Package memory is an in-process IdentityProvider with real TOTP factors. It keeps
// everything in memory and is meant for tests, demos and single-instance tools.
package memory

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"sync"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrFactorNotFound          = errors.New("factor not found")
	ErrChallengeNotFound       = errors.New("challenge not found")
	ErrChallengeExpired        = errors.New("challenge expired")
	ErrInvalidCode             = errors.New("invalid TOTP code")
	ErrUnsupportedFactorType   = errors.New("unsupported factor type")
	ErrChallengeFactorMismatch = errors.New("challenge does not belong to factor")
)

const (
	defaultChallengeTTL = 5 * time.Minute
	qrSize              = 200
)

type factor struct {
	goGuard.Factor
	secret string
}

type challenge struct {
	factorID  string
	expiresAt time.Time
}

type account struct {
	factors    map[string]*factor
	order      []string
	challenges map[string]challenge
	// aal2 is set once a code was verified in the current session.
	aal2 bool
}

// Provider implements goGuard.IdentityProvider.
type Provider struct {
	mu           sync.Mutex
	accounts     map[string]*account
	now          func() time.Time
	newID        func() string
	challengeTTL time.Duration
}

type Option func(*Provider)

// WithClock sets the time source for code validation and challenge expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

func WithChallengeTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.challengeTTL = ttl
		}
	}
}

func New(opts ...Option) *Provider {
	p := &Provider{
		accounts:     make(map[string]*account),
		now:          time.Now,
		newID:        uuid.NewString,
		challengeTTL: defaultChallengeTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ goGuard.IdentityProvider = (*Provider)(nil)

func (p *Provider) EnrollFactor(_ context.Context, principalID string, req goGuard.EnrollRequest) (goGuard.Enrollment, error) {
	if req.FactorType != goGuard.FactorTypeTOTP {
		return goGuard.Enrollment{}, fmt.Errorf("%w: %q", ErrUnsupportedFactorType, req.FactorType)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      req.Issuer,
		AccountName: principalID,
		Algorithm:   otp.AlgorithmSHA1,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return goGuard.Enrollment{}, fmt.Errorf("generate totp key: %w", err)
	}
	qr, err := qrDataURI(key)
	if err != nil {
		return goGuard.Enrollment{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct := p.accountLocked(principalID)
	f := &factor{
		Factor: goGuard.Factor{
			ID:           p.newID(),
			FriendlyName: req.FriendlyName,
			Type:         goGuard.FactorTypeTOTP,
			Status:       goGuard.FactorUnverified,
			CreatedAt:    p.now().UTC(),
		},
		secret: key.Secret(),
	}
	acct.factors[f.ID] = f
	acct.order = append(acct.order, f.ID)

	return goGuard.Enrollment{
		FactorID: f.ID,
		Secret:   key.Secret(),
		QRCode:   qr,
		URI:      key.URL(),
	}, nil
}

func (p *Provider) ListFactors(_ context.Context, principalID string) ([]goGuard.Factor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[principalID]
	if !ok {
		return []goGuard.Factor{}, nil
	}
	out := make([]goGuard.Factor, 0, len(acct.order))
	for _, id := range acct.order {
		out = append(out, acct.factors[id].Factor)
	}
	return out, nil
}

// AssuranceLevel reports aal2 as current once a code was verified in this session and
// as next whenever a verified factor exists.
func (p *Provider) AssuranceLevel(_ context.Context, principalID string) (goGuard.AssuranceLevel, goGuard.AssuranceLevel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[principalID]
	if !ok || !acct.hasVerified() {
		return goGuard.AAL1, goGuard.AAL1, nil
	}
	if acct.aal2 {
		return goGuard.AAL2, goGuard.AAL2, nil
	}
	return goGuard.AAL1, goGuard.AAL2, nil
}

func (p *Provider) CreateChallenge(_ context.Context, principalID, factorID string) (goGuard.Challenge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[principalID]
	if !ok || acct.factors[factorID] == nil {
		return goGuard.Challenge{}, ErrFactorNotFound
	}

	now := p.now()
	acct.pruneChallenges(now)

	c := goGuard.Challenge{
		ID:        p.newID(),
		FactorID:  factorID,
		ExpiresAt: now.Add(p.challengeTTL).UTC(),
	}
	acct.challenges[c.ID] = challenge{factorID: factorID, expiresAt: c.ExpiresAt}
	return c, nil
}

// VerifyChallenge consumes the challenge and checks code against the factor secret.
// A valid code verifies a pending factor and raises the session to aal2.
func (p *Provider) VerifyChallenge(_ context.Context, principalID, factorID, challengeID, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[principalID]
	if !ok {
		return ErrFactorNotFound
	}
	f := acct.factors[factorID]
	if f == nil {
		return ErrFactorNotFound
	}
	c, ok := acct.challenges[challengeID]
	if !ok {
		return ErrChallengeNotFound
	}
	delete(acct.challenges, challengeID)

	now := p.now()
	if c.factorID != factorID {
		return ErrChallengeFactorMismatch
	}
	if now.After(c.expiresAt) {
		return ErrChallengeExpired
	}

	valid, err := totp.ValidateCustom(code, f.secret, now.UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !valid {
		return ErrInvalidCode
	}

	f.Status = goGuard.FactorVerified
	acct.aal2 = true
	return nil
}

func (p *Provider) UnenrollFactor(_ context.Context, principalID, factorID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[principalID]
	if !ok || acct.factors[factorID] == nil {
		return ErrFactorNotFound
	}
	delete(acct.factors, factorID)
	for i, id := range acct.order {
		if id == factorID {
			acct.order = append(acct.order[:i], acct.order[i+1:]...)
			break
		}
	}
	for id, c := range acct.challenges {
		if c.factorID == factorID {
			delete(acct.challenges, id)
		}
	}
	if !acct.hasVerified() {
		acct.aal2 = false
	}
	return nil
}

// EndSession drops the session assurance of principalID back to aal1, as a fresh
// password login would.
func (p *Provider) EndSession(principalID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if acct, ok := p.accounts[principalID]; ok {
		acct.aal2 = false
	}
}

// Secret returns the TOTP secret of a factor. It exists for tests and local tools that
// need to produce valid codes.
func (p *Provider) Secret(principalID, factorID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.accounts[principalID]
	if !ok || acct.factors[factorID] == nil {
		return "", false
	}
	return acct.factors[factorID].secret, true
}

func (p *Provider) accountLocked(principalID string) *account {
	acct, ok := p.accounts[principalID]
	if !ok {
		acct = &account{
			factors:    make(map[string]*factor),
			challenges: make(map[string]challenge),
		}
		p.accounts[principalID] = acct
	}
	return acct
}

func (a *account) hasVerified() bool {
	for _, f := range a.factors {
		if f.Status == goGuard.FactorVerified {
			return true
		}
	}
	return false
}

func (a *account) pruneChallenges(now time.Time) {
	for id, c := range a.challenges {
		if now.After(c.expiresAt) {
			delete(a.challenges, id)
		}
	}
}

func qrDataURI(key *otp.Key) (string, error) {
	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
