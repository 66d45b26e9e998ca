package showdown

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestAuth(t *testing.T, handler fasthttp.RequestHandler) *Authenticator {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return NewAuthenticator("http://login.test/api/login",
		WithAuthDial(func(string) (net.Conn, error) { return ln.Dial() }))
}

func TestAssertion_Password(t *testing.T) {
	a := newTestAuth(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/api/login" || !ctx.IsPost() {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		args := ctx.PostArgs()
		if string(args.Peek("name")) != "LadderBot" || string(args.Peek("pass")) != "secret" || string(args.Peek("challstr")) != "4|abc" {
			ctx.SetBodyString(`]{"curuser":{"loggedin":false}}`)
			return
		}
		ctx.SetBodyString(`]{"assertion":"signed-assertion","curuser":{"loggedin":true,"username":"LadderBot"}}`)
	})

	got, err := a.Assertion(context.Background(), "LadderBot", "secret", "4|abc")
	require.NoError(t, err)
	assert.Equal(t, "signed-assertion", got)

	_, err = a.Assertion(context.Background(), "LadderBot", "wrong", "4|abc")
	assert.ErrorIs(t, err, ErrLoginRejected)
}

func TestAssertion_Unregistered(t *testing.T) {
	a := newTestAuth(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/api/getassertion" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		if string(ctx.QueryArgs().Peek("userid")) == "taken" {
			ctx.SetBodyString(";;Your name is registered")
			return
		}
		ctx.SetBodyString("guest-assertion")
	})

	got, err := a.Assertion(context.Background(), "freshname", "", "4|abc")
	require.NoError(t, err)
	assert.Equal(t, "guest-assertion", got)

	_, err = a.Assertion(context.Background(), "taken", "", "4|abc")
	assert.ErrorIs(t, err, ErrLoginRejected)
}

func TestTrnCommand(t *testing.T) {
	assert.Equal(t, "|/trn LadderBot,0,xyz", trnCommand("LadderBot", "xyz"))
}
