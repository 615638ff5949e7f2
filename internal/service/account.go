package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/store"
)

// TokenIssuer signs session tokens for users.
type TokenIssuer interface {
	Issue(u domain.User) (string, error)
}

type AccountService struct {
	store  store.Store
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAccountService(st store.Store, tokens TokenIssuer, log *slog.Logger) *AccountService {
	return &AccountService{store: st, tokens: tokens, log: orDefault(log)}
}

type Registration struct {
	UserName string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Session is a signed-in user plus the basket they now own, if any.
type Session struct {
	User   domain.User
	Token  string
	Basket *domain.Basket
	// ForgetAnonymous is set when the anonymous cookie basket was taken over
	// and the cookie should be cleared.
	ForgetAnonymous bool
}

// Register creates a Member account.
func (s *AccountService) Register(ctx context.Context, r Registration) (domain.User, error) {
	if problems := auth.PasswordProblems(r.Password); len(problems) > 0 {
		return domain.User{}, &domain.ValidationError{Title: "One or more validation errors occurred.", Fields: problems}
	}
	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		UserName:     r.UserName,
		Email:        r.Email,
		PasswordHash: hash,
		Roles:        []string{domain.RoleMember},
	}
	err = s.store.CreateUser(ctx, &u)
	if errors.Is(err, domain.ErrDuplicate) {
		return domain.User{}, s.duplicateError(ctx, r)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", "user_name", u.UserName)
	return u, nil
}

func (s *AccountService) duplicateError(ctx context.Context, r Registration) error {
	ve := domain.NewValidationError("One or more validation errors occurred.")
	if _, err := s.store.GetUserByName(ctx, r.UserName); err == nil {
		return ve.Add("DuplicateUserName", fmt.Sprintf("Username '%s' is already taken.", r.UserName))
	}
	return ve.Add("DuplicateEmail", fmt.Sprintf("Email '%s' is already taken.", r.Email))
}

// Login checks credentials and hands the caller's anonymous basket, if any,
// over to the user. A basket the user already had is discarded in that case.
func (s *AccountService) Login(ctx context.Context, userName, password, anonymousBuyerID string) (Session, error) {
	u, err := s.store.GetUserByName(ctx, userName)
	if domain.IsNotFound(err) {
		return Session{}, domain.NewUnauthorizedError("invalid credentials")
	}
	if err != nil {
		return Session{}, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, err
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}

	sess := Session{User: u, Token: token}
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		userBasket, err := s.findBasket(ctx, u.UserName)
		if err != nil {
			return err
		}
		anon, err := s.findBasket(ctx, anonymousBuyerID)
		if err != nil {
			return err
		}
		if anon == nil || anonymousBuyerID == u.UserName {
			sess.Basket = userBasket
			return nil
		}
		if userBasket != nil {
			if err := s.store.DeleteBasket(ctx, userBasket.ID); err != nil {
				return err
			}
		}
		anon.BuyerID = u.UserName
		if err := s.store.SaveBasket(ctx, anon); err != nil {
			return fmt.Errorf("transfer basket: %w", err)
		}
		sess.Basket = anon
		sess.ForgetAnonymous = true
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// CurrentUser reissues a token for an already authenticated user.
func (s *AccountService) CurrentUser(ctx context.Context, userName string) (Session, error) {
	u, err := s.store.GetUserByName(ctx, userName)
	if err != nil {
		return Session{}, err
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	b, err := s.findBasket(ctx, u.UserName)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token, Basket: b}, nil
}

// SavedAddress returns nil when the user never saved one.
func (s *AccountService) SavedAddress(ctx context.Context, userName string) (*domain.Address, error) {
	u, err := s.store.GetUserByName(ctx, userName)
	if err != nil {
		return nil, err
	}
	return u.Address, nil
}

func (s *AccountService) findBasket(ctx context.Context, buyerID string) (*domain.Basket, error) {
	if buyerID == "" {
		return nil, nil
	}
	b, err := s.store.GetBasket(ctx, buyerID)
	if domain.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
