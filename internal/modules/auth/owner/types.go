package owner

import (
	"errors"
	"time"
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
}

type UpdateOwnerDTO struct {
	Name      *string `json:"name"`
	Introduce *string `json:"introduce"`
	Avatar    *string `json:"avatar"`
	Mail      *string `json:"mail"`
	URL       *string `json:"url"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type ownerResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Name          string     `json:"name"`
	Introduce     string     `json:"introduce"`
	Avatar        string     `json:"avatar"`
	Mail          string     `json:"mail"`
	URL           string     `json:"url"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

type publicOwnerResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Introduce string `json:"introduce"`
	Avatar    string `json:"avatar"`
	URL       string `json:"url"`
}

type loginResponse struct {
	Token string         `json:"token"`
	User  *ownerResponse `json:"user,omitempty"`
}

var (
	errOwnerNotFound      = errors.New("owner not found")
	errWrongPassword      = errors.New("wrong password")
	errOwnerAlreadyExists = errors.New("owner already registered")
	errPasswordSameAsOld  = errors.New("password same as old")
)
