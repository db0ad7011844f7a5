package service

import (
	"ai_course_backend/internal/model"
	"ai_course_backend/internal/repository"
	"ai_course_backend/internal/util"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// UserService 用户同步：身份服务登录后首次调用时建档
type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		UserRepo: userRepo,
	}
}

// EnsureUser 已存在时返回现有记录和 ErrUserAlreadyExists，不做更新
func (s *UserService) EnsureUser(email, name string) (*model.User, error) {
	existing, err := s.UserRepo.FindByEmail(email)
	if err == nil {
		return existing, util.ErrUserAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	user := &model.User{Name: name, Email: email}
	if err := s.UserRepo.Create(user); err != nil {
		// 并发首登时另一请求已插入
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, findErr := s.UserRepo.FindByEmail(email)
			if findErr == nil {
				return existing, util.ErrUserAlreadyExists
			}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetByEmail(email string) (*model.User, error) {
	user, err := s.UserRepo.FindByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

func (s *UserService) UpdateSubscription(email, subscriptionID string) (*model.User, error) {
	if err := s.UserRepo.UpdateSubscription(email, subscriptionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return s.GetByEmail(email)
}
