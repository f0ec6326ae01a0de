package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/habedi/paydash/auth"
	"github.com/habedi/paydash/pkg/clierr"
	"github.com/habedi/paydash/pkg/validation"
	"github.com/rs/zerolog/log"
)

// API paths, relative to the base URL.
const (
	SignInPath   = "/accounts/signin/"
	RegisterPath = "/accounts/register/"
	MePath       = "/accounts/me/"
	UsersPath    = "/accounts/users/"
	PlansPath    = "/plans/"
	CreatePath   = "/plans/create/"
	payPathFmt   = "/plans/installments/%s/pay/"
)

// Client is the typed API of the payment service. Every call goes through the
// authenticated request pipeline.
type Client struct {
	p     *auth.Pipeline
	store auth.CredentialStore
	now   func() time.Time
}

// New creates a Client. A nil store selects the pipeline's own store.
func New(p *auth.Pipeline, store auth.CredentialStore) *Client {
	if store == nil {
		store = p.Store()
	}
	return &Client{p: p, store: store, now: time.Now}
}

// SignIn exchanges credentials for a token pair and saves it as the current session.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (auth.Session, error) {
	req, err := auth.NewJSONRequest(http.MethodPost, SignInPath, creds)
	if err != nil {
		return auth.Session{}, err
	}
	req.Public = true

	var pair TokenPair
	if err := c.call(ctx, req, &pair); err != nil {
		return auth.Session{}, err
	}
	if pair.Access == "" || pair.Refresh == "" {
		return auth.Session{}, &auth.Error{Kind: auth.KindMalformedResponse, Detail: "sign-in response has no token pair"}
	}
	if err := auth.SaveSession(ctx, c.store, pair.Access, pair.Refresh); err != nil {
		return auth.Session{}, &auth.Error{Kind: auth.KindStore, Err: err}
	}
	log.Info().Str("email", creds.Email).Msg("Signed in")
	return auth.Session{Access: pair.Access, Refresh: pair.Refresh}, nil
}

// Register creates an account. When the server also returns a token pair it is
// saved and returned as the new session; otherwise the session is nil.
func (c *Client) Register(ctx context.Context, reg Registration) (*User, *auth.Session, error) {
	if err := validation.ValidateRole(reg.Role); err != nil {
		return nil, nil, clierr.New(clierr.Validation, err.Error(), err)
	}
	req, err := auth.NewJSONRequest(http.MethodPost, RegisterPath, reg)
	if err != nil {
		return nil, nil, err
	}
	req.Public = true

	var resp registrationResponse
	if err := c.call(ctx, req, &resp); err != nil {
		return nil, nil, err
	}
	user := resp.User
	if resp.Access == "" || resp.Refresh == "" {
		return &user, nil, nil
	}
	if err := auth.SaveSession(ctx, c.store, resp.Access, resp.Refresh); err != nil {
		return &user, nil, &auth.Error{Kind: auth.KindStore, Err: err}
	}
	return &user, &auth.Session{Access: resp.Access, Refresh: resp.Refresh}, nil
}

// SignOut clears the stored session. It does not contact the server.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.store.ClearAll(ctx); err != nil {
		return &auth.Error{Kind: auth.KindStore, Err: err}
	}
	log.Info().Msg("Signed out")
	return nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, auth.Request{Method: http.MethodGet, Path: MePath}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.call(ctx, auth.Request{Method: http.MethodGet, Path: UsersPath}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	if err := c.call(ctx, auth.Request{Method: http.MethodGet, Path: PlansPath}, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// CreatePlan validates and submits a new plan.
func (c *Client) CreatePlan(ctx context.Context, pr PlanRequest) (*Plan, error) {
	if err := validation.ValidatePlan(pr.User, pr.TotalAmount, pr.NumberOfInstallments, pr.StartDate, c.now()); err != nil {
		return nil, clierr.New(clierr.Validation, err.Error(), err)
	}
	req, err := auth.NewJSONRequest(http.MethodPost, CreatePath, pr)
	if err != nil {
		return nil, err
	}
	var plan Plan
	if err := c.call(ctx, req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// PayInstallment pays the installment with the given ID. payment may be nil.
// The returned installment is nil when the server answers without a body.
func (c *Client) PayInstallment(ctx context.Context, id string, payment Payment) (*Installment, error) {
	if err := validation.ValidateUUID("installment ID", id); err != nil {
		return nil, clierr.New(clierr.Validation, err.Error(), err)
	}
	var body any
	if payment != nil {
		body = payment
	}
	req, err := auth.NewJSONRequest(http.MethodPost, fmt.Sprintf(payPathFmt, url.PathEscape(id)), body)
	if err != nil {
		return nil, err
	}
	resp, err := c.p.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, nil
	}
	var inst Installment
	if err := resp.Decode(&inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// call executes req and decodes the success payload into out.
func (c *Client) call(ctx context.Context, req auth.Request, out any) error {
	resp, err := c.p.Execute(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		log.Error().Err(err).Str("path", req.Path).Msg("Failed to decode response")
		return err
	}
	return nil
}
