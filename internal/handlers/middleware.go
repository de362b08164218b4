package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"escrow-service/internal/models"
	"escrow-service/pkg/apperrors"
)

const authUserKey = "auth_user"

// AuthUser is the caller resolved from the bearer token.
type AuthUser struct {
	UserID string
	Role   string
}

func (u AuthUser) IsAdmin() bool {
	return u.Role == models.RoleAdmin
}

// AuthConfig controls how callers are identified.
type AuthConfig struct {
	Secret string
	// AllowUserHeader lets JWTOrUserHeader accept X-User-ID when no bearer
	// token is sent. Only enabled for sandbox deployments.
	AllowUserHeader bool
	Logger          *zap.Logger
}

// JWTAuth validates an HMAC-signed bearer token and stores the caller on the context.
// The user id is read from "sub", falling back to "user_id".
func JWTAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, cfg.Logger, apperrors.Unauthenticated("Authorization header required"))
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			respondError(c, cfg.Logger, apperrors.Unauthenticated("Invalid authorization header format. Expected: Bearer <token>"))
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		})
		if err != nil || !token.Valid {
			cfg.Logger.Warn("JWT validation failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			respondError(c, cfg.Logger, apperrors.Unauthenticated("Invalid or expired token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondError(c, cfg.Logger, apperrors.Unauthenticated("Invalid token claims"))
			return
		}
		userID, _ := claims.GetSubject()
		if userID == "" {
			userID, _ = claims["user_id"].(string)
		}
		if userID == "" {
			respondError(c, cfg.Logger, apperrors.Unauthenticated("Token has no subject"))
			return
		}
		role, _ := claims["role"].(string)

		c.Set(authUserKey, AuthUser{UserID: userID, Role: role})
		c.Next()
	}
}

// JWTOrUserHeader is JWTAuth plus the sandbox fallback: with AllowUserHeader set
// and no Authorization header, X-User-ID names the caller. The caller never gets
// a role this way.
func JWTOrUserHeader(cfg AuthConfig) gin.HandlerFunc {
	jwtAuth := JWTAuth(cfg)
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if cfg.AllowUserHeader && userID != "" && c.GetHeader("Authorization") == "" {
			c.Set(authUserKey, AuthUser{UserID: userID})
			c.Next()
			return
		}
		jwtAuth(c)
	}
}

// AdminOnly rejects callers without the admin role. Must run after JWTAuth.
func AdminOnly(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok || !user.IsAdmin() {
			respondError(c, logger, apperrors.Forbidden("admin access only"))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) (AuthUser, bool) {
	v, ok := c.Get(authUserKey)
	if !ok {
		return AuthUser{}, false
	}
	u, ok := v.(AuthUser)
	return u, ok
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		idle:     3 * time.Minute,
		now:      time.Now,
	}
}

func (l *IPRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > time.Minute {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Allow reports whether ip may make another request now.
func (l *IPRateLimiter) Allow(ip string) bool {
	return l.get(ip).Allow()
}

func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  http.StatusTooManyRequests,
				"success": false,
				"message": "Rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
