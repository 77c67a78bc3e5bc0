package backend

import (
	"context"

	"github.com/rryowa/testskool_session/internal/models"
)

func (c *Client) MyProfile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.Get(ctx, EndpointMyProfile, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := c.Put(ctx, EndpointEditProfile, upd, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Subjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := c.Get(ctx, EndpointSubjectList, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}
