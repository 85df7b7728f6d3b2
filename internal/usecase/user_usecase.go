package usecase

import (
	"context"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/pkg/logger"
)

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
	}
}

func (uc *UserUseCase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

// Directory returns one page of users ordered by name, leaving out
// excludeUserID, and the cursor of the next page ("" on the last page).
func (uc *UserUseCase) Directory(ctx context.Context, excludeUserID string, limit int, cursor string) ([]*entity.User, string, error) {
	users, next, err := uc.userRepo.List(ctx, limit, cursor)
	if err != nil {
		logger.Error("Directory Error: %v", err)
		return nil, "", err
	}

	others := make([]*entity.User, 0, len(users))
	for _, u := range users {
		if u.ID != excludeUserID {
			others = append(others, u)
		}
	}
	return others, next, nil
}
