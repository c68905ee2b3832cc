package addresses

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

// SaveInput is a caller-provided address to persist for autofill.
type SaveInput struct {
	Type         enums.AddressType
	FirstName    string
	LastName     string
	Company      *string
	AddressLine1 string
	AddressLine2 *string
	City         string
	State        string
	PostalCode   string
	Country      string
	Phone        *string
	IsDefault    bool
}

// Service stores checkout addresses for later autofill.
type Service interface {
	Save(ctx context.Context, userID uuid.UUID, in SaveInput) (*models.Address, error)
	SaveFromOrderTx(tx *gorm.DB, userID uuid.UUID, order *models.Order) error
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the addresses service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Save(ctx context.Context, userID uuid.UUID, in SaveInput) (*models.Address, error) {
	var missing []string
	for field, value := range map[string]string{
		"first_name":     in.FirstName,
		"last_name":      in.LastName,
		"address_line_1": in.AddressLine1,
		"city":           in.City,
		"state":          in.State,
		"postal_code":    in.PostalCode,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.CodeValidation, "missing required fields").WithDetails(missing)
	}

	addressType := in.Type
	if !addressType.IsValid() {
		addressType = enums.AddressTypeShipping
	}
	country := in.Country
	if country == "" {
		country = "NG"
	}

	exists, err := s.repo.HasShippingDuplicate(ctx, userID, in.AddressLine1, in.City, in.PostalCode)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.New(errors.CodeConflict, "address already saved")
	}

	row := models.Address{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         addressType,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Company:      in.Company,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      country,
		Phone:        in.Phone,
		IsDefault:    in.IsDefault,
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveFromOrderTx is the post-payment opt-in save. Near-duplicates are
// skipped silently; this path must never fail a confirmed payment, so the
// only errors returned are storage errors for the caller to log.
func (s *service) SaveFromOrderTx(tx *gorm.DB, userID uuid.UUID, order *models.Order) error {
	if order == nil || order.ShippingAddress == nil {
		return nil
	}
	contact := order.ShippingAddress

	if order.DeliveryMethod == enums.DeliveryMethodPickup {
		phone := ""
		if contact.Phone != nil {
			phone = *contact.Phone
		}
		exists, err := s.repo.HasContactDuplicateTx(tx, userID, contact.FirstName, contact.LastName, phone)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return s.repo.CreateTx(tx, &models.Address{
			ID:        uuid.New(),
			UserID:    userID,
			Type:      enums.AddressTypeShipping,
			FirstName: contact.FirstName,
			LastName:  contact.LastName,
			Country:   "NG",
			Phone:     contact.Phone,
		})
	}

	exists, err := s.repo.HasShippingDuplicateTx(tx, userID, contact.AddressLine1, contact.City, contact.PostalCode)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	country := contact.Country
	if country == "" {
		country = "NG"
	}
	return s.repo.CreateTx(tx, &models.Address{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         enums.AddressTypeShipping,
		FirstName:    contact.FirstName,
		LastName:     contact.LastName,
		Company:      contact.Company,
		AddressLine1: contact.AddressLine1,
		AddressLine2: contact.AddressLine2,
		City:         contact.City,
		State:        contact.State,
		PostalCode:   contact.PostalCode,
		Country:      country,
		Phone:        contact.Phone,
	})
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	return s.repo.ListByUser(ctx, userID)
}
