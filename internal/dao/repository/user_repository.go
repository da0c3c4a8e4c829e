package repository

import (
	"context"

	"chat_fanout_server/internal/model"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 用户资料只读
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetUser(ctx context.Context, userID int64) (*model.UserInfo, error) {
	return takeOrNil[model.UserInfo](r.db.WithContext(ctx).Where("id = ?", userID), "get user")
}

func (r *userRepository) GetUsers(ctx context.Context, userIDs []int64) ([]model.UserInfo, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []model.UserInfo
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Order("id").Find(&users).Error; err != nil {
		return nil, wrapDBError(err, "get users")
	}
	return users, nil
}
