package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	PhoneNumber  string `gorm:"unique;not null"`
	FirstName    string
	LastName     string
	PasswordHash string `gorm:"not null"`
	// administrators are non-students; no column default here, a gorm
	// default tag would override an explicit false on insert
	IsStudent bool
}

func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return ""
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
