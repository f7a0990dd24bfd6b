package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/invoice-totals/internal/models"
)

type ClientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db}
}

// List returns the workspace clients ordered by name. query matches the
// name, email or SIRET, case-insensitively.
func (s *ClientService) List(ctx context.Context, workspaceID uint, query string, page, limit int) ([]models.Client, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	q := s.db.WithContext(ctx).Model(&models.Client{}).Where("workspace_id = ?", workspaceID).Session(&gorm.Session{})
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR siret LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var clients []models.Client
	if err := q.Order("name ASC, id ASC").Offset((page - 1) * limit).Limit(limit).Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

func (s *ClientService) Get(ctx context.Context, workspaceID, id uint) (*models.Client, error) {
	var c models.Client
	err := s.db.WithContext(ctx).Where("workspace_id = ? AND id = ?", workspaceID, id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("client %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ClientService) Create(ctx context.Context, workspaceID uint, c *models.Client) error {
	c.ID = 0
	c.WorkspaceID = workspaceID
	if c.Type == "" {
		c.Type = models.ClientTypeCompany
	}
	return s.db.WithContext(ctx).Create(c).Error
}

// Update replaces the client's fields. Invoices keep pointing at it.
func (s *ClientService) Update(ctx context.Context, workspaceID, id uint, patch *models.Client) (*models.Client, error) {
	c, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	c.Type = patch.Type
	if c.Type == "" {
		c.Type = models.ClientTypeCompany
	}
	c.Name = patch.Name
	c.Email = patch.Email
	c.Phone = patch.Phone
	c.Address = patch.Address
	c.City = patch.City
	c.PostalCode = patch.PostalCode
	c.Country = patch.Country
	c.SIRET = patch.SIRET
	c.VATNumber = patch.VATNumber
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a client that no invoice references.
func (s *ClientService) Delete(ctx context.Context, workspaceID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var used int64
		if err := tx.Model(&models.Invoice{}).Where("workspace_id = ? AND client_id = ?", workspaceID, id).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return fmt.Errorf("client %d: %w", id, ErrClientInUse)
		}
		res := tx.Where("workspace_id = ? AND id = ?", workspaceID, id).Delete(&models.Client{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("client %d: %w", id, ErrNotFound)
		}
		return nil
	})
}
