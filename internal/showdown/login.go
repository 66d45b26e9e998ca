package showdown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

var ErrLoginRejected = errors.New("showdown: login rejected")

// Authenticator trades a challstr for a signed assertion on the login server.
type Authenticator struct {
	loginURL string
	http     *fasthttp.Client
	timeout  time.Duration
}

type AuthOption func(*Authenticator)

func WithAuthDial(dial func(addr string) (net.Conn, error)) AuthOption {
	return func(a *Authenticator) { a.http.Dial = dial }
}

func NewAuthenticator(loginURL string, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		loginURL: loginURL,
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type loginResponse struct {
	Assertion string `json:"assertion"`
	CurUser   struct {
		LoggedIn bool   `json:"loggedin"`
		Username string `json:"username"`
	} `json:"curuser"`
	Error string `json:"error"`
}

// Assertion logs in with a password, or asks for an unregistered-name assertion when
// password is empty.
func (a *Authenticator) Assertion(ctx context.Context, username, password, challstr string) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("challstr", challstr)

	if password != "" {
		args.Set("name", username)
		args.Set("pass", password)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.SetRequestURI(a.loginURL)
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBody(args.QueryString())
	} else {
		args.Set("userid", username)
		req.Header.SetMethod(fasthttp.MethodGet)
		req.SetRequestURI(assertionURL(a.loginURL) + "?" + string(args.QueryString()))
	}

	deadline := time.Now().Add(a.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := a.http.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return "", fmt.Errorf("login status %d", code)
	}

	body := strings.TrimSpace(string(resp.Body()))
	if password == "" {
		return checkAssertion(body)
	}
	// the login server prefixes JSON with ']' to defeat script inclusion
	body = strings.TrimPrefix(body, "]")
	var lr loginResponse
	if err := json.Unmarshal([]byte(body), &lr); err != nil {
		return "", fmt.Errorf("decode login: %w", err)
	}
	if lr.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrLoginRejected, lr.Error)
	}
	if !lr.CurUser.LoggedIn {
		return "", fmt.Errorf("%w: not logged in", ErrLoginRejected)
	}
	return checkAssertion(lr.Assertion)
}

func checkAssertion(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, ";") {
		return "", fmt.Errorf("%w: %s", ErrLoginRejected, strings.TrimLeft(s, ";"))
	}
	return s, nil
}

func assertionURL(loginURL string) string {
	if strings.HasSuffix(loginURL, "/login") {
		return strings.TrimSuffix(loginURL, "/login") + "/getassertion"
	}
	return loginURL
}

func trnCommand(username, assertion string) string {
	return "|/trn " + username + ",0," + assertion
}
