package items

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/lotledger/pkg/db/models"
)

// ItemDTO exposes an item in API responses.
type ItemDTO struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	QCRequired bool      `json:"qc_required"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromModel maps the persisted item into a DTO.
func FromModel(m *models.Item) *ItemDTO {
	if m == nil {
		return nil
	}
	return &ItemDTO{
		ID:         m.ID,
		Code:       m.Code,
		Name:       m.Name,
		QCRequired: m.QCRequired,
		CreatedAt:  m.CreatedAt,
	}
}
