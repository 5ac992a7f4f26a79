package user

import (
	"context"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	usermodel "github.com/RWACH777/yasa-tasker-sub000/module/user/model"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

type Service struct {
	gw store.Gateway
}

func NewService(gw store.Gateway) *Service {
	return &Service{gw: gw}
}

// Get fetches one profile; errs.ErrNotFound when the user never created one.
func (s *Service) Get(ctx context.Context, userID string) (usermodel.Profile, error) {
	row, err := s.gw.FindOne(ctx, store.CollProfiles, store.Where(store.Eq("user_id", userID)))
	if err != nil {
		return usermodel.Profile{}, err
	}
	return usermodel.ProfileFromRow(row)
}

func (s *Service) Upsert(ctx context.Context, p usermodel.Profile) error {
	if p.UserID == "" {
		return errs.ErrInvalidArgs.WrapMsg("missing user_id")
	}
	n, err := s.gw.Update(ctx, store.CollProfiles,
		store.Where(store.Eq("user_id", p.UserID)),
		store.Row{"username": p.Username, "avatar_url": p.AvatarURL, "bio": p.Bio})
	if err != nil {
		return err
	}
	if n == 0 {
		_, err = s.gw.Insert(ctx, store.CollProfiles, p.Row())
	}
	return err
}
