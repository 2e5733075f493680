package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
)

// CounterStore keeps fixed-window counters keyed by scope.
type CounterStore interface {
	IncrWithTTL(ctx context.Context, scope string, window time.Duration) (int64, error)
}

type windowReporter interface {
	TTL(ctx context.Context, scope string) (time.Duration, error)
}

// SubjectFunc names who a request acts for. It may consume and restore the body.
type SubjectFunc func(r *http.Request) (string, error)

// RateLimitPolicy caps requests per client IP and per subject within Window.
// A zero limit disables that dimension.
type RateLimitPolicy struct {
	Name        string
	Window      time.Duration
	PerIP       int
	PerSubject  int
	SubjectKind string
	Subject     SubjectFunc
}

// EmailPolicy limits by IP and by the "email" field of the JSON body.
func EmailPolicy(name string, window time.Duration, perIP, perEmail int) RateLimitPolicy {
	return RateLimitPolicy{
		Name:        name,
		Window:      window,
		PerIP:       perIP,
		PerSubject:  perEmail,
		SubjectKind: "email",
		Subject:     EmailSubject,
	}
}

type limitCheck struct {
	kind  string
	id    string
	limit int
}

func (c limitCheck) scope(policy string) string {
	return c.kind + ":" + policy + ":" + c.id
}

func (p RateLimitPolicy) name() string {
	if n := strings.ToLower(strings.TrimSpace(p.Name)); n != "" {
		return n
	}
	return "auth"
}

func (p RateLimitPolicy) active() bool {
	if p.Window <= 0 {
		return false
	}
	return p.PerIP > 0 || (p.PerSubject > 0 && p.Subject != nil)
}

// checks lists the counters a request must pass, IP first.
func (p RateLimitPolicy) checks(r *http.Request) ([]limitCheck, error) {
	var out []limitCheck
	if ip := clientIP(r); p.PerIP > 0 && ip != "" {
		out = append(out, limitCheck{kind: "ip", id: ip, limit: p.PerIP})
	}
	if p.PerSubject > 0 && p.Subject != nil {
		subject, err := p.Subject(r)
		if err != nil {
			return nil, err
		}
		if subject != "" {
			out = append(out, limitCheck{kind: p.SubjectKind, id: hashValue(subject), limit: p.PerSubject})
		}
	}
	return out, nil
}

// EmailSubject reads the "email" field of a JSON body.
func EmailSubject(r *http.Request) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(payload.Email)), nil
}

// UserSubject uses the authenticated user id; it must run after Auth.
func UserSubject(r *http.Request) (string, error) {
	return UserIDFromContext(r.Context()), nil
}

// RateLimit rejects requests over any of the policy's counters with 429 and
// a Retry-After header.
func RateLimit(policy RateLimitPolicy, store CounterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		name := policy.name()

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			checks, err := policy.checks(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}

			for _, c := range checks {
				scope := c.scope(name)
				count, err := store.IncrWithTTL(ctx, scope, policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count <= int64(c.limit) {
					continue
				}

				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(ctx, store, scope, policy.Window)))
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":         name,
						"scope":          c.kind,
						"subject":        c.id,
						"attempts":       count,
						"limit":          c.limit,
						"window_seconds": int(policy.Window.Seconds()),
					}), "rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(ctx context.Context, store CounterStore, scope string, window time.Duration) int {
	wait := window
	if reporter, ok := store.(windowReporter); ok {
		if ttl, err := reporter.TTL(ctx, scope); err == nil && ttl > 0 {
			wait = ttl
		}
	}
	return int(wait.Round(time.Second).Seconds())
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
