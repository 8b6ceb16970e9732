package owner

import "github.com/rankforge/core/internal/models"

func toResponse(u *models.UserModel) *ownerResponse {
	return &ownerResponse{
		ID: u.ID, Username: u.Username, Name: u.Name,
		Introduce: u.Introduce, Avatar: u.Avatar, Mail: u.Mail, URL: u.URL,
		LastLoginTime: u.LastLoginTime, LastLoginIP: u.LastLoginIP,
	}
}

func toPublicResponse(u *models.UserModel) *publicOwnerResponse {
	return &publicOwnerResponse{
		ID: u.ID, Username: u.Username, Name: u.Name,
		Introduce: u.Introduce, Avatar: u.Avatar, URL: u.URL,
	}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
