package service

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"ChatProject/logger"
	"ChatProject/module/user/model"
	"ChatProject/module/user/store"
	"ChatProject/tools/security"
)

var ErrBadCredentials = errors.New("bad credentials")

// Presence is the slice of the presence store this service needs.
type Presence interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
	ListOnline(ctx context.Context) ([]string, error)
}

// AuthPayload is what signup/login hand back to the client.
type AuthPayload struct {
	Token    string     `json:"token"`
	ExpireAt time.Time  `json:"expire_at"`
	User     model.User `json:"user"`
}

type Service struct {
	store    *store.Store
	jwtOpts  security.Options
	presence Presence // may be nil in tests
}

func New(st *store.Store, jwtOpts security.Options, presence Presence) *Service {
	return &Service{store: st, jwtOpts: jwtOpts, presence: presence}
}

func (s *Service) Signup(ctx context.Context, username, email, password string) (AuthPayload, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthPayload{}, errors.Wrap(err, "hash password")
	}
	u, err := s.store.Create(ctx, username, email, string(hash))
	if err != nil {
		return AuthPayload{}, err
	}
	return s.mint(u)
}

// Login verifies the password, marks the user online (both stores) and
// mints a token.
func (s *Service) Login(ctx context.Context, username, password string) (AuthPayload, error) {
	u, err := s.store.ByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return AuthPayload{}, ErrBadCredentials
	}
	if err != nil {
		return AuthPayload{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return AuthPayload{}, ErrBadCredentials
	}

	if err := s.store.SetOnline(ctx, u.ID, true); err != nil {
		logger.Warnf("[user] set online id=%d err=%v", u.ID, err)
	}
	if s.presence != nil {
		if err := s.presence.Online(ctx, strconv.FormatInt(u.ID, 10)); err != nil {
			logger.Warnf("[user] presence online id=%d err=%v", u.ID, err)
		}
	}
	return s.mint(u)
}

func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.store.SetOnline(ctx, userID, false); err != nil {
		return err
	}
	if s.presence != nil {
		if err := s.presence.Offline(ctx, strconv.FormatInt(userID, 10)); err != nil {
			logger.Warnf("[user] presence offline id=%d err=%v", userID, err)
		}
	}
	return nil
}

func (s *Service) mint(u model.User) (AuthPayload, error) {
	token, exp, err := security.Generate(s.jwtOpts, strconv.FormatInt(u.ID, 10))
	if err != nil {
		return AuthPayload{}, err
	}
	return AuthPayload{Token: token, ExpireAt: exp, User: u}, nil
}

func (s *Service) User(ctx context.Context, id int64) (model.User, error) {
	return s.store.ByID(ctx, id)
}

func (s *Service) Users(ctx context.Context) ([]model.User, error) {
	return s.store.List(ctx)
}

func (s *Service) Profile(ctx context.Context, userID int64) (model.Profile, error) {
	return s.store.Profile(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, bio string) (model.Profile, error) {
	return s.store.UpdateBio(ctx, userID, bio)
}

// OnlineUsers resolves the live presence set against the user table.
// Redis is the authority; the pg online flag is only a best-effort echo.
func (s *Service) OnlineUsers(ctx context.Context) ([]model.User, error) {
	if s.presence == nil {
		return nil, nil
	}
	idsStr, err := s.presence.ListOnline(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(idsStr))
	for _, v := range idsStr {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return s.store.ListByIDs(ctx, ids)
}
