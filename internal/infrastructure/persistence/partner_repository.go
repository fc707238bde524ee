package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/invoicing/internal/domain/partner"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by ID within the actor's tenant
func (r *GormClientRepository) FindByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*partner.Client, error) {
	var model models.ClientModel
	err := scoped(r.db.WithContext(ctx), actor, &models.ClientModel{}).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists clients, searching company, contact and email
func (r *GormClientRepository) FindAll(ctx context.Context, actor shared.AuthContext, filter shared.Filter) ([]partner.Client, error) {
	query := searchAny(scoped(r.db.WithContext(ctx), actor, &models.ClientModel{}), filter.Search, "company_name", "contact_name", "email")
	query = paginate(query, filter, ClientSortFields, "company_name")

	var rows []models.ClientModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	clients := make([]partner.Client, len(rows))
	for i := range rows {
		clients[i] = *rows[i].ToDomain()
	}
	return clients, nil
}

// Count counts clients matching the filter's search
func (r *GormClientRepository) Count(ctx context.Context, actor shared.AuthContext, filter shared.Filter) (int64, error) {
	var count int64
	query := searchAny(scoped(r.db.WithContext(ctx), actor, &models.ClientModel{}), filter.Search, "company_name", "contact_name", "email")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByID checks whether a client exists in the actor's tenant
func (r *GormClientRepository) ExistsByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (bool, error) {
	var count int64
	if err := scoped(r.db.WithContext(ctx), actor, &models.ClientModel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *partner.Client) error {
	return r.db.WithContext(ctx).Save(models.ClientModelFromDomain(client)).Error
}

var _ partner.ClientRepository = (*GormClientRepository)(nil)

// GormProfileRepository implements ProfileRepository using GORM
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// FindByID finds a profile by ID within the actor's tenant
func (r *GormProfileRepository) FindByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*partner.Profile, error) {
	var model models.ProfileModel
	err := scoped(r.db.WithContext(ctx), actor, &models.ProfileModel{}).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail looks a profile up by email without tenant scoping; sign-in only
func (r *GormProfileRepository) FindByEmail(ctx context.Context, email string) (*partner.Profile, error) {
	var model models.ProfileModel
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists profiles, searching name and email
func (r *GormProfileRepository) FindAll(ctx context.Context, actor shared.AuthContext, filter shared.Filter) ([]partner.Profile, error) {
	query := searchAny(scoped(r.db.WithContext(ctx), actor, &models.ProfileModel{}), filter.Search, "full_name", "email")
	query = paginate(query, filter, ProfileSortFields, "full_name")

	var rows []models.ProfileModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	profiles := make([]partner.Profile, len(rows))
	for i := range rows {
		profiles[i] = *rows[i].ToDomain()
	}
	return profiles, nil
}

// Save creates or updates a profile
func (r *GormProfileRepository) Save(ctx context.Context, profile *partner.Profile) error {
	return r.db.WithContext(ctx).Save(models.ProfileModelFromDomain(profile)).Error
}

var _ partner.ProfileRepository = (*GormProfileRepository)(nil)
