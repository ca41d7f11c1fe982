package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/observability"
)

// Identity authority failures.
var (
	ErrIdentityAuthorityUnreachable = errors.New("identity authority unreachable")
	ErrIdentityAuthorityRejected    = errors.New("identity authority rejected token")
)

const userInfoPath = "/auth/user-info"

// IdentityResolver turns a validated token into the caller identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (CallerIdentity, error)
}

// LocalResolver reads the identity from the token's own claims.
type LocalResolver struct {
	validator *TokenValidator
	metrics   *observability.Metrics
}

// NewLocalResolver builds a resolver that needs no network access.
func NewLocalResolver(validator *TokenValidator, metrics *observability.Metrics) *LocalResolver {
	return &LocalResolver{validator: validator, metrics: metrics}
}

// Resolve implements IdentityResolver.
func (r *LocalResolver) Resolve(_ context.Context, token string) (CallerIdentity, error) {
	claims, err := r.validator.ExtractClaims(token)
	if err != nil {
		r.metrics.RecordIdentity("local", "error")
		return CallerIdentity{}, err
	}
	r.metrics.RecordIdentity("local", "ok")
	return CallerIdentity{Subject: claims.Subject, Role: claims.Role, IdentityID: claims.IdentityID}, nil
}

type userInfoResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// RemoteResolver asks an external identity authority who owns a token.
type RemoteResolver struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRemoteResolver builds a resolver calling baseURL with a per-call timeout.
// A nil client uses a dedicated http.Client.
func NewRemoteResolver(baseURL string, timeout time.Duration, client *http.Client, logger *zap.Logger, metrics *observability.Metrics) *RemoteResolver {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Resolve implements IdentityResolver. It never retries.
func (r *RemoteResolver) Resolve(ctx context.Context, token string) (CallerIdentity, error) {
	identity, err := r.fetch(ctx, token)
	if err != nil {
		r.metrics.RecordIdentity("remote", "error")
		r.logger.Warn("identity resolution failed", zap.Error(err))
		return CallerIdentity{}, err
	}
	r.metrics.RecordIdentity("remote", "ok")
	return identity, nil
}

func (r *RemoteResolver) fetch(ctx context.Context, token string) (CallerIdentity, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	endpoint := r.baseURL + userInfoPath + "?" + url.Values{"token": {token}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CallerIdentity{}, fmt.Errorf("%w: build request: %v", ErrIdentityAuthorityUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return CallerIdentity{}, fmt.Errorf("%w: %v", ErrIdentityAuthorityUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CallerIdentity{}, fmt.Errorf("%w: status %d", ErrIdentityAuthorityRejected, resp.StatusCode)
	}

	var body userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return CallerIdentity{}, fmt.Errorf("%w: decode response: %v", ErrIdentityAuthorityRejected, err)
	}
	if body.Username == "" {
		return CallerIdentity{}, fmt.Errorf("%w: empty username", ErrIdentityAuthorityRejected)
	}
	return CallerIdentity{Subject: body.Username, Role: Role(body.Role)}, nil
}
