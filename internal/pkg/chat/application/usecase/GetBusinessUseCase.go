package usecase

import (
	"context"
	"fmt"
	"strings"

	chat "go-wabridge/internal/pkg/chat/application/domain"
	repository "go-wabridge/internal/pkg/chat/persistence/repository/port"
)

type GetBusinessInput struct {
	BusinessID string
}

type GetBusinessUseCase struct {
	Repo repository.ChatRepository
}

func NewGetBusinessUseCase(repo repository.ChatRepository) *GetBusinessUseCase {
	return &GetBusinessUseCase{Repo: repo}
}

func (uc *GetBusinessUseCase) Execute(ctx context.Context, in GetBusinessInput) (*chat.Business, error) {
	id := strings.TrimSpace(in.BusinessID)
	if !isStoreID(id) {
		return nil, fmt.Errorf("%w: businessId must be a business id", chat.ErrValidation)
	}
	b, err := uc.Repo.GetBusiness(ctx, id)
	if err != nil {
		return nil, storeError(err, "business "+id)
	}
	return b, nil
}
