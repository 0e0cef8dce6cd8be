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

	"github.com/vatavaran/vatavaran-backend/api/responses"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
)

type rateCounter interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RateLimitPolicy caps attempts per client IP and per submitted email within
// a fixed window. A zero limit disables that dimension.
type RateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (p RateLimitPolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

// rateSubject is one counted dimension of a request.
type rateSubject struct {
	kind  string
	value string
	limit int
}

// AuthRateLimit throttles credential endpoints. Emails are hashed before they
// reach Redis or the logs.
func AuthRateLimit(policy RateLimitPolicy, counter rateCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.ToLower(strings.TrimSpace(policy.Name))
	if name == "" {
		name = "auth"
	}
	return func(next http.Handler) http.Handler {
		if !policy.active() || counter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subjects, err := subjectsFor(r, policy)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}

			for _, s := range subjects {
				count, err := counter.IncrWithTTL(ctx, counter.RateLimitKey(name+":"+s.kind+":"+s.value), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit store"))
					return
				}
				if count <= int64(s.limit) {
					continue
				}
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":   name,
						"subject":  s.kind,
						"key":      s.value,
						"attempts": count,
						"limit":    s.limit,
					}), "auth rate limit exceeded")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Round(time.Second).Seconds())))
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func subjectsFor(r *http.Request, policy RateLimitPolicy) ([]rateSubject, error) {
	var subjects []rateSubject
	if ip := clientIP(r); policy.PerIP > 0 && ip != "" {
		subjects = append(subjects, rateSubject{kind: "ip", value: ip, limit: policy.PerIP})
	}
	if policy.PerEmail <= 0 || r.Body == nil {
		return subjects, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var creds struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &creds) == nil {
		if email := strings.ToLower(strings.TrimSpace(creds.Email)); email != "" {
			subjects = append(subjects, rateSubject{kind: "email", value: emailDigest(email), limit: policy.PerEmail})
		}
	}
	return subjects, nil
}

// clientIP trusts the first X-Forwarded-For hop, as set by the load balancer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func emailDigest(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:16])
}
