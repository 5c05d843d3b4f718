package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/supplier"
	"github.com/mvega/pos-checkout-service/internal/supplier/dto"
	"github.com/mvega/pos-checkout-service/pkg/logger"
)

type supplierUseCase struct {
	repo   supplier.Repository
	logger logger.ZapLogger
}

func NewSupplierUseCase(repo supplier.Repository, log logger.ZapLogger) supplier.UseCase {
	return &supplierUseCase{
		repo:   repo,
		logger: log,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (uc *supplierUseCase) CreateSupplier(ctx context.Context, input *dto.CreateSupplierInput) (*model.Supplier, error) {
	if input.Name == "" {
		return nil, errors.New("supplier name is required")
	}

	now := time.Now()
	s := &model.Supplier{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        input.Name,
		ContactName: optional(input.ContactName),
		Email:       optional(input.Email),
		Phone:       optional(input.Phone),
		TaxID:       optional(input.TaxID),
		IsActive:    true,
	}

	if err := uc.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (uc *supplierUseCase) GetSupplier(ctx context.Context, id string) (*model.Supplier, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *supplierUseCase) ListSuppliers(ctx context.Context, filters *dto.SupplierFilters) ([]model.Supplier, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *supplierUseCase) UpdateSupplier(ctx context.Context, input *dto.UpdateSupplierInput) (*model.Supplier, error) {
	s, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("supplier not found")
	}

	s.Name = input.Name
	s.ContactName = optional(input.ContactName)
	s.Email = optional(input.Email)
	s.Phone = optional(input.Phone)
	s.TaxID = optional(input.TaxID)
	s.IsActive = input.IsActive
	s.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (uc *supplierUseCase) DeleteSupplier(ctx context.Context, id string) error {
	return uc.repo.Delete(ctx, id)
}
