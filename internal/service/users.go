package service

import (
	"context"
	"time"

	"tresesenta/internal/database"
	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"

	"golang.org/x/sync/errgroup"
)

// PublicUser is the part of a user anyone may see.
type PublicUser struct {
	ID              uint      `json:"id"`
	Username        string    `json:"username"`
	FullName        string    `json:"full_name"`
	AvatarURL       string    `json:"avatar_url"`
	IsVerifiedBuyer bool      `json:"is_verified_buyer"`
	TotalPoints     int       `json:"total_points"`
	Level           int       `json:"level"`
	LevelName       string    `json:"level_name"`
	CreatedAt       time.Time `json:"created_at"`
}

func publicUser(u *models.User) PublicUser {
	return PublicUser{
		ID:              u.ID,
		Username:        u.Username,
		FullName:        u.FullName,
		AvatarURL:       u.AvatarURL,
		IsVerifiedBuyer: u.IsVerifiedBuyer,
		TotalPoints:     u.TotalPoints,
		Level:           u.Level,
		LevelName:       u.LevelName(),
		CreatedAt:       u.CreatedAt,
	}
}

type ProfileStats struct {
	Pins          int64 `json:"pins"`
	LikesReceived int64 `json:"likes_received"`
	Cities        int   `json:"cities"`
}

type Profile struct {
	PublicUser
	Stats  ProfileStats      `json:"stats"`
	Cities []models.UserCity `json:"cities"`
}

// Me adds the fields only the owner sees.
type Me struct {
	Profile
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	IsBanned bool   `json:"is_banned"`
}

type RankedUser struct {
	Position int `json:"position"`
	PublicUser
}

type UserService struct {
	users  *repository.UserRepository
	pins   *repository.PinRepository
	places *repository.PlaceRepository
}

func NewUserService(tm *database.TxManager) *UserService {
	db := tm.DB()
	return &UserService{
		users:  repository.NewUserRepository(db),
		pins:   repository.NewPinRepository(db),
		places: repository.NewPlaceRepository(db),
	}
}

func (s *UserService) Me(ctx context.Context, userID uint) (*Me, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, apperr.CodeUserNotFound, "user not found")
	}
	p, err := s.profile(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Me{Profile: *p, Email: u.Email, IsAdmin: u.IsAdmin, IsBanned: u.IsBanned}, nil
}

// ByUsername returns a public profile. Banned accounts read as not found.
func (s *UserService) ByUsername(ctx context.Context, username string) (*Profile, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, notFoundOr(err, apperr.CodeUserNotFound, "user not found")
	}
	if u.IsBanned {
		return nil, apperr.NotFound(apperr.CodeUserNotFound, "user not found")
	}
	return s.profile(ctx, u)
}

func (s *UserService) profile(ctx context.Context, u *models.User) (*Profile, error) {
	out := &Profile{PublicUser: publicUser(u)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Stats.Pins, err = s.pins.CountVisibleByUser(gctx, u.ID)
		return err
	})
	g.Go(func() (err error) {
		out.Stats.LikesReceived, err = s.pins.LikesReceived(gctx, u.ID)
		return err
	})
	g.Go(func() (err error) {
		out.Cities, err = s.places.UserCities(gctx, u.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	if out.Cities == nil {
		out.Cities = []models.UserCity{}
	}
	out.Stats.Cities = len(out.Cities)
	return out, nil
}

// Top ranks users by their cached balance. Unlike the leaderboard it is
// read straight from users and never cached.
func (s *UserService) Top(ctx context.Context, limit int) ([]RankedUser, error) {
	_, limit = Page(1, limit)
	list, err := s.users.TopByPoints(ctx, limit)
	if err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	out := make([]RankedUser, len(list))
	for i := range list {
		out[i] = RankedUser{Position: i + 1, PublicUser: publicUser(&list[i])}
	}
	return out, nil
}
