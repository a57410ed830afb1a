package catalog

import (
	"context"
	"strings"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Service wraps the catalog repository with validation
type Service struct {
	repo   *Repository
	logger *logger.Logger
}

// NewService creates a new catalog service
func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// CreateTest validates and stores a new catalog entry
func (s *Service) CreateTest(ctx context.Context, test *types.LabTest) (*types.LabTest, error) {
	if err := s.validate(test); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, test)
}

// UpdateTest validates and replaces an existing catalog entry
func (s *Service) UpdateTest(ctx context.Context, test *types.LabTest) error {
	if err := s.validate(test); err != nil {
		return err
	}
	return s.repo.Update(ctx, test)
}

// GetTest retrieves a catalog entry by primary key
func (s *Service) GetTest(ctx context.Context, id int64) (*types.LabTest, error) {
	return s.repo.GetByID(ctx, id)
}

// GetTestByCode retrieves a catalog entry by test code
func (s *Service) GetTestByCode(ctx context.Context, code string) (*types.LabTest, error) {
	return s.repo.GetByCode(ctx, strings.TrimSpace(code))
}

// ListTests returns catalog entries matching an optional search term
func (s *Service) ListTests(ctx context.Context, search string) ([]*types.LabTest, error) {
	return s.repo.List(ctx, strings.TrimSpace(search))
}

// DeleteTest removes a catalog entry
func (s *Service) DeleteTest(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(test *types.LabTest) error {
	if strings.TrimSpace(test.Code) == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, "test code is required", nil)
	}
	if strings.TrimSpace(test.Name) == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, "test name is required", nil)
	}
	if test.RateINR < 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "test rate must not be negative", nil)
	}
	return test.Template.Validate()
}
