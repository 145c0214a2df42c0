package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/services"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// SessionCookieName имя HTTP-only cookie с токеном сессии.
const SessionCookieName = "session"

var errMissingToken = errors.New("missing session token")

// SessionResolver загружает аккаунт по проверенному токену.
type SessionResolver interface {
	ResolveSession(ctx context.Context, userID string) (*models.UserAccount, error)
}

type Authenticator struct {
	secret   []byte
	sessions SessionResolver
	logger   *zap.Logger
}

func NewAuthenticator(secret string, sessions SessionResolver, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{secret: []byte(secret), sessions: sessions, logger: logger.Named("auth")}
}

// Authenticate отклоняет запросы без валидной сессии. Роль берется из сохраненного аккаунта,
// поэтому смена роли и блокировка действуют и на уже выданные токены.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := a.resolve(r)
		if err != nil {
			if errors.Is(err, services.ErrAccountBlocked) {
				writeError(w, http.StatusForbidden, services.ErrAccountBlocked.Error())
				return
			}
			if !errors.Is(err, errMissingToken) && !errors.Is(err, services.ErrAuthenticationFailed) {
				a.logger.Error("session check failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
				return
			}
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional добавляет actor при валидной сессии и пропускает анонимные запросы.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctx, err := a.resolve(r); err == nil {
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) resolve(r *http.Request) (context.Context, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return nil, errMissingToken
	}
	claims, err := a.parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrAuthenticationFailed, err)
	}
	userID, _ := claims[JWTClaimUserID].(string)
	user, err := a.sessions.ResolveSession(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return WithActor(r.Context(), models.Actor{UserID: user.ID, Role: user.Role}), nil
}

func (a *Authenticator) parse(raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// Authorize пропускает только actor с одной из ролей. Ставится после Authenticate.
func Authorize(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			for _, role := range roles {
				if role == actor.Role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Forbidden")
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
