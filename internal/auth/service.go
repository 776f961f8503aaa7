package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/AdhamEssa01/accademy/internal/domain"
)

type AuthService struct{ hmac []byte }

func NewAuthService(secret string) *AuthService { return &AuthService{hmac: []byte(secret)} }

// Claims carry the validated identity: subject, role, and academy (tenant).
type Claims struct {
	Sub       string `json:"sub"`
	Role      string `json:"role"`
	AcademyID string `json:"academy_id"`
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role, academyID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:       sub,
		Role:      role,
		AcademyID: academyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "accademy",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("unexpected claims")
	}
	return c, nil
}

// UserLookup resolves a login username to an account. Implemented by the
// roster store; lookups here run outside tenant scope because login is what
// establishes it.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

// LoginHandler verifies username/password against the users table and
// issues a JWT carrying role and academy id.
// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, users UserLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		u, err := users.GetUserByUsername(r.Context(), req.Username)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PassHash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(u.ID, u.Role, u.AcademyID)
		if err != nil {
			log.Printf("issue token: %v", err)
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok})
	}
}
