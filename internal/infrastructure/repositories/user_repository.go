package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/healthsync/healthsync/domain"
)

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser represents the database model for User (with GORM tags)
type DBUser struct {
	ID               uint           `gorm:"primaryKey"`
	Name             string         `gorm:"size:255"`
	Email            string         `gorm:"uniqueIndex;size:255"`
	Phone            string         `gorm:"index;size:32"`
	PasswordHash     string         `gorm:"column:password"`
	Role             string         `gorm:"index;size:64"`
	Gender           string         `gorm:"size:32"`
	DateOfBirth      string         `gorm:"size:10"`
	IsActive         bool           `gorm:"index"`
	EmailVerified    bool           `gorm:"index"`
	LocationCaptured bool           `gorm:"index"`
	LocationSource   string         `gorm:"size:16"`
	Latitude         *float64
	Longitude        *float64
	Address          string         `gorm:"size:512"`
	City             string         `gorm:"size:128"`
	State            string         `gorm:"size:128"`
	Country          string         `gorm:"size:128"`
	Pincode          string         `gorm:"size:16"`
	CreatedAt        time.Time      `gorm:"index"`
	UpdatedAt        time.Time      `gorm:"index"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	dbUser := r.domainToDB(user)
	if err := r.db.WithContext(ctx).Create(dbUser).Error; err != nil {
		return err
	}
	user.ID = dbUser.ID
	return nil
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&dbUser).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbUser).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// Update implements domain.UserRepository
func (r *UserRepositoryImpl) Update(ctx context.Context, user *domain.User) error {
	dbUser := r.domainToDB(user)
	return r.db.WithContext(ctx).Save(dbUser).Error
}

// UpdatePassword implements domain.UserRepository
func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).Update("password", passwordHash).Error
}

// UpdateLocation implements domain.UserRepository
func (r *UserRepositoryImpl) UpdateLocation(ctx context.Context, userID uint, loc *domain.LocationRecord) error {
	updates := map[string]interface{}{
		"location_captured": true,
		"location_source":   loc.Source,
		"latitude":          loc.Latitude,
		"longitude":         loc.Longitude,
		"address":           loc.Address,
		"city":              loc.City,
		"state":             loc.State,
		"country":           loc.Country,
		"pincode":           loc.Pincode,
	}
	return r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).Updates(updates).Error
}

// domainToDB converts domain user to database user
func (r *UserRepositoryImpl) domainToDB(user *domain.User) *DBUser {
	dbUser := &DBUser{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Phone:            user.Phone,
		PasswordHash:     user.PasswordHash,
		Role:             user.Role,
		Gender:           user.Gender,
		DateOfBirth:      user.DateOfBirth,
		IsActive:         user.IsActive,
		EmailVerified:    user.EmailVerified,
		LocationCaptured: user.LocationCaptured,
	}
	if user.Location != nil {
		dbUser.LocationSource = user.Location.Source
		dbUser.Latitude = user.Location.Latitude
		dbUser.Longitude = user.Location.Longitude
		dbUser.Address = user.Location.Address
		dbUser.City = user.Location.City
		dbUser.State = user.Location.State
		dbUser.Country = user.Location.Country
		dbUser.Pincode = user.Location.Pincode
	}
	return dbUser
}

// dbToDomain converts database user to domain user
func (r *UserRepositoryImpl) dbToDomain(dbUser *DBUser) *domain.User {
	user := &domain.User{
		ID:               dbUser.ID,
		Name:             dbUser.Name,
		Email:            dbUser.Email,
		Phone:            dbUser.Phone,
		PasswordHash:     dbUser.PasswordHash,
		Role:             dbUser.Role,
		Gender:           dbUser.Gender,
		DateOfBirth:      dbUser.DateOfBirth,
		IsActive:         dbUser.IsActive,
		EmailVerified:    dbUser.EmailVerified,
		LocationCaptured: dbUser.LocationCaptured,
		CreatedAt:        dbUser.CreatedAt,
		UpdatedAt:        dbUser.UpdatedAt,
	}
	if dbUser.LocationCaptured {
		user.Location = &domain.LocationRecord{
			Source:    dbUser.LocationSource,
			Latitude:  dbUser.Latitude,
			Longitude: dbUser.Longitude,
			Address:   dbUser.Address,
			City:      dbUser.City,
			State:     dbUser.State,
			Country:   dbUser.Country,
			Pincode:   dbUser.Pincode,
		}
	}
	return user
}
