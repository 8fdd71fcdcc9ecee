package usecase

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"

	"social-ops/domain/dto"
	"social-ops/domain/model"
	"social-ops/domain/repository"
	"social-ops/infrastructure/configuration"
	"social-ops/infrastructure/logger"
	"social-ops/infrastructure/utils"
)

type IUserUsecase interface {
	Login(ctx context.Context, req model.ReqLogin) dto.Res
	Register(ctx context.Context, req model.ReqRegister) dto.Res
}

type UserUsecase struct {
	userRepository repository.IUser
}

func NewUserUsecase(userRepository repository.IUser) IUserUsecase {
	return &UserUsecase{userRepository: userRepository}
}

func (userUsecase *UserUsecase) Login(ctx context.Context, req model.ReqLogin) dto.Res {
	var res dto.Res
	res.ResponseCode = "00"
	res.ResponseMessage = "Success"

	user, err := userUsecase.userRepository.GetByUserName(ctx, req.UserName)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while getting user")
		res.ResponseCode = "401"
		res.ResponseMessage = "Invalid username or password"
		return res
	}

	hashed := fmt.Sprintf("%x", md5.Sum([]byte(req.Password)))
	if user.Password != hashed {
		res.ResponseCode = "401"
		res.ResponseMessage = "Invalid username or password"
		return res
	}

	payload := map[string]interface{}{
		"user_id":   user.ID,
		"user_name": user.UserName,
		"exp":       time.Now().Add(24 * time.Hour).Unix(),
		"iss":       "social-ops",
	}
	token, err := utils.GenerateToken(payload, configuration.C.App.SecretKey)
	if err != nil {
		res.ResponseCode = "500"
		res.ResponseMessage = "General Error"
		return res
	}

	res.Data = map[string]interface{}{
		"token": token,
		"user":  user,
	}
	return res
}

func (userUsecase *UserUsecase) Register(ctx context.Context, req model.ReqRegister) dto.Res {
	var res dto.Res
	res.ResponseCode = "00"
	res.ResponseMessage = "Success"

	if existing, err := userUsecase.userRepository.GetByUserName(ctx, req.UserName); err == nil && existing.ID != 0 {
		res.ResponseCode = "409"
		res.ResponseMessage = "Username already taken"
		return res
	}

	now := utils.GetCurrentTime()
	user := model.User{
		Name:      req.Name,
		UserName:  req.UserName,
		Password:  req.Password,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := userUsecase.userRepository.CreateUser(ctx, user); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while creating user")
		res.ResponseCode = "500"
		res.ResponseMessage = "General Error"
		return res
	}
	return res
}
