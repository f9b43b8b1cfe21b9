package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/shop-service/internal/domain"
)

// IssueToken обменивает логин и пароль на пару access/refresh.
type IssueToken struct {
	Users  domain.UserRepository
	Hasher domain.PasswordHasher
	Tokens domain.TokenService
}

func (uc IssueToken) Execute(ctx context.Context, username, password string) (domain.TokenPair, error) {
	if username == "" || password == "" {
		return domain.TokenPair{}, domain.Invalid("username and password are required")
	}
	u, err := uc.Users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.TokenPair{}, fmt.Errorf("%w: invalid credentials", domain.ErrAuth)
	}
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := uc.Hasher.Compare(u.PasswordHash, password); err != nil {
		return domain.TokenPair{}, err
	}
	return uc.Tokens.Issue(u)
}

type RefreshToken struct {
	Tokens domain.TokenService
}

func (uc RefreshToken) Execute(refresh string) (string, error) {
	if refresh == "" {
		return "", domain.Invalid("refresh is required")
	}
	return uc.Tokens.Refresh(refresh)
}

// SetPassword хеширует plain в u. Пустой пароль отклоняется.
type SetPassword struct {
	Hasher domain.PasswordHasher
}

func (uc SetPassword) Execute(u *domain.User, plain string) error {
	hash, err := uc.Hasher.Hash(plain)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}
