package middleware

import (
	// Standard library
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	// Third-party
	"github.com/gin-gonic/gin"
)

// State is the outcome of the guard's authentication check for one request.
type State int

const (
	Pending State = iota // oracle call in flight, nothing written yet
	Granted              // oracle said yes, the wrapped handlers run
	Denied               // oracle said no, redirect to the login page
	Failed               // oracle errored or timed out
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Oracle decides whether identity belongs to an authenticated photographer.
// It must honour ctx: the guard cancels it on timeout or client disconnect.
// It never sees the gin context, so a late return cannot race the request.
type Oracle interface {
	IsAuthenticated(ctx context.Context, identity string) (bool, error)
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(ctx context.Context, identity string) (bool, error)

func (f OracleFunc) IsAuthenticated(ctx context.Context, identity string) (bool, error) {
	return f(ctx, identity)
}

// IdentityFunc reads the caller's identity from the request, "" for anonymous.
type IdentityFunc func(c *gin.Context) string

// DefaultTimeout bounds the Pending state when Guard.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Guard protects a route group behind an Oracle. Every request runs the oracle
// exactly once; decisions are never cached between requests.
type Guard struct {
	Oracle    Oracle
	Identity  IdentityFunc  // nil means every request is anonymous
	Timeout   time.Duration // zero means DefaultTimeout
	LoginPath string        // zero means "/login"

	// Observe, when set, is called with every state the request enters, starting with Pending.
	Observe func(c *gin.Context, s State)
	// OnFailure renders the Failed outcome. Defaults to a plain 503.
	OnFailure func(c *gin.Context, err error)
}

// AuthRequired returns a guard middleware with default settings.
func AuthRequired(oracle Oracle, identity IdentityFunc, timeout time.Duration) gin.HandlerFunc {
	g := &Guard{Oracle: oracle, Identity: identity, Timeout: timeout}
	return g.Handler()
}

type oracleResult struct {
	ok  bool
	err error
}

// Check runs the oracle for this request and returns the resolved state.
// The returned error is non-nil only for Failed.
func (g *Guard) Check(c *gin.Context) (State, error) {
	g.observe(c, Pending)

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// Tied to the request: a client that goes away cancels the check.
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	// Session state is read here, on the request goroutine. The oracle only
	// gets the identity string, so one that outlives the timeout shares nothing
	// with the failure page rendered below.
	var identity string
	if g.Identity != nil {
		identity = g.Identity(c)
	}
	done := make(chan oracleResult, 1)
	go func() {
		ok, err := g.Oracle.IsAuthenticated(ctx, identity)
		done <- oracleResult{ok: ok, err: err}
	}()

	var (
		state State
		err   error
	)
	select {
	case res := <-done:
		switch {
		case res.err != nil:
			state, err = Failed, res.err
		case res.ok:
			state = Granted
		default:
			state = Denied
		}
	case <-ctx.Done():
		state, err = Failed, ctx.Err()
	}

	g.observe(c, state)
	return state, err
}

// Handler returns the gin middleware.
func (g *Guard) Handler() gin.HandlerFunc {
	loginPath := g.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(c *gin.Context) {
		state, err := g.Check(c)
		switch state {
		case Granted:
			c.Next()

		case Denied:
			log.Printf("Access denied (not authenticated) to %s from IP %s", c.Request.URL.Path, c.ClientIP())
			// Server redirect: the guarded URL is not kept as a page in history.
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()

		default:
			if c.Request.Context().Err() != nil {
				// Client is gone, nobody to answer.
				log.Printf("Auth check for %s abandoned: %v", c.Request.URL.Path, err)
				c.Abort()
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				log.Printf("Auth check for %s timed out from IP %s", c.Request.URL.Path, c.ClientIP())
			} else {
				log.Printf("Auth check for %s failed from IP %s: %v", c.Request.URL.Path, c.ClientIP(), err)
			}
			if g.OnFailure != nil {
				g.OnFailure(c, err)
			} else {
				c.String(http.StatusServiceUnavailable, "authentication check failed")
			}
			c.Abort()
		}
	}
}

func (g *Guard) observe(c *gin.Context, s State) {
	if g.Observe != nil {
		g.Observe(c, s)
	}
}
