package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/example/shop-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "shop-service"

type claims struct {
	Kind domain.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// JWTService signs HS256 access and refresh tokens whose subject is the user id.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

func (s *JWTService) Issue(u domain.User) (domain.TokenPair, error) {
	access, err := s.sign(u.ID, domain.TokenAccess, s.accessTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.sign(u.ID, domain.TokenRefresh, s.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *JWTService) Refresh(refresh string) (string, error) {
	id, err := s.Verify(refresh, domain.TokenRefresh)
	if err != nil {
		return "", err
	}
	return s.sign(id, domain.TokenAccess, s.accessTTL)
}

func (s *JWTService) Verify(token string, kind domain.TokenKind) (int64, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: token expired", domain.ErrAuth)
		}
		return 0, fmt.Errorf("%w: invalid token", domain.ErrAuth)
	}
	if c.Kind != kind {
		return 0, fmt.Errorf("%w: expected %s token", domain.ErrAuth, kind)
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid subject", domain.ErrAuth)
	}
	return id, nil
}

func (s *JWTService) sign(userID int64, kind domain.TokenKind, ttl time.Duration) (string, error) {
	now := s.now()
	c := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

var _ domain.TokenService = (*JWTService)(nil)
