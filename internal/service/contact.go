package service

import (
	"context"
	"strings"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
)

type ContactInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"max=50"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

type ContactService struct {
	store Store
}

func NewContactService(store Store) *ContactService {
	return &ContactService{store: store}
}

func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*domain.ContactMessage, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	m := &domain.ContactMessage{
		Name:    strings.TrimSpace(in.Name),
		Email:   normalizeEmail(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Subject: strings.TrimSpace(in.Subject),
		Message: in.Message,
	}
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		return q.InsertContactMessage(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ContactService) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]domain.ContactMessage, error) {
	var messages []domain.ContactMessage
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		messages, err = q.ListContactMessages(ctx, unreadOnly, limit, offset)
		return err
	})
	return messages, err
}

func (s *ContactService) MarkRead(ctx context.Context, id int64) error {
	return s.store.Do(ctx, func(q *repository.Queries) error {
		return q.MarkContactMessageRead(ctx, id)
	})
}
