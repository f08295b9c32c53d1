package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// ResetChannel is the pub/sub channel the mailer subscribes to.
const ResetChannel = "accounts.password_reset"

// ResetNotifier publishes reset tokens for out-of-process delivery.
type ResetNotifier struct {
	client *redis.Client
}

func NewResetNotifier(client *redis.Client) *ResetNotifier {
	return &ResetNotifier{client: client}
}

type resetMessage struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Token     string `json:"token"`
}

func (n *ResetNotifier) NotifyPasswordReset(ctx context.Context, user *domain.User, token string) error {
	payload, err := json.Marshal(resetMessage{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		Token:     token,
	})
	if err != nil {
		return fmt.Errorf("encode reset message: %w", err)
	}
	if err := n.client.Publish(ctx, ResetChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish reset message: %w", err)
	}
	return nil
}
