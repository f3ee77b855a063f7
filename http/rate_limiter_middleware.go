package http

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

// RateLimitMiddleware limits by actor id, or by client IP for anonymous calls.
func RateLimitMiddleware(
	limiter *RateLimiter,
	log *logrus.Logger,
	next http.Handler,
) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		key := r.Header.Get(ActorHeader)
		if key == "" {
			key, _, _ = net.SplitHostPort(r.RemoteAddr)
		}

		if ok, wait := limiter.Allow(key); !ok {
			log.WithFields(logrus.Fields{"client": key, "path": r.URL.Path}).Warn("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
