package models

import "time"

type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name,omitempty"`
	LastName       string    `json:"last_name,omitempty"`
	IsStudent      bool      `json:"is_student"`
	IsTeacher      bool      `json:"is_teacher"`
	Subject        []string  `json:"subject,omitempty"`
	About          string    `json:"about,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	DateJoined     time.Time `json:"date_joined"`
}

type ProfileUpdate struct {
	FirstName *string  `json:"first_name,omitempty"`
	LastName  *string  `json:"last_name,omitempty"`
	About     *string  `json:"about,omitempty"`
	Subject   []string `json:"subject,omitempty"`
}

type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
