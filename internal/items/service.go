package items

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/lotledger/pkg/db"
	"github.com/angelmondragon/lotledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/angelmondragon/lotledger/pkg/logger"
	"github.com/angelmondragon/lotledger/pkg/pagination"
	"github.com/google/uuid"
)

// CreateItemInput describes a new stock-keeping unit.
type CreateItemInput struct {
	Code       string `json:"code" validate:"required,max=64"`
	Name       string `json:"name" validate:"required,max=255"`
	QCRequired bool   `json:"qc_required"`
}

// Service manages the item catalogue.
type Service interface {
	Create(ctx context.Context, input CreateItemInput) (*models.Item, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Item, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[models.Item], error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateItemInput) (*models.Item, error) {
	code := strings.TrimSpace(input.Code)
	name := strings.TrimSpace(input.Name)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item code is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}

	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, pkgerrors.ErrDuplicateItemCode.Because("item code %q already exists", code)
	} else if !db.IsNotFound(err) {
		return nil, db.ClassifyError(err)
	}

	item := &models.Item{Code: code, Name: name, QCRequired: input.QCRequired}
	if err := s.repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.ErrDuplicateItemCode.Because("item code %q already exists", code)
		}
		return nil, db.ClassifyError(err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithItemID(ctx, item.ID.String()), map[string]any{
			"item_code":   item.Code,
			"qc_required": item.QCRequired,
		})
		s.logg.Info(logCtx, "item.created")
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.ErrItemNotFound.Because("item %s not found", id)
		}
		return nil, db.ClassifyError(err)
	}
	return item, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Item], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Item]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, params.Limit, cursor)
	if err != nil {
		return pagination.Page[models.Item]{}, db.ClassifyError(err)
	}
	return pagination.Paginate(rows, params.Limit, func(i models.Item) pagination.Cursor {
		return pagination.Cursor{CreatedAt: i.CreatedAt, ID: i.ID}
	}), nil
}
