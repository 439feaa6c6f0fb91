package catalogs

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"gwin/internal/core/apperror"
	"gwin/internal/domain"
	"gwin/internal/metadata"
)

// RoleBLO stores role names in upper case.
type RoleBLO struct {
	*domain.Gateway[*Role]
}

// NewRoleBLO opens the role business object on f.
func NewRoleBLO(f *domain.Factory) (*RoleBLO, error) {
	g, err := domain.NewGateway[*Role](f)
	if err != nil {
		return nil, err
	}
	b := &RoleBLO{Gateway: g}
	g.Hooks().OnFieldChanged("Name", b.normalizeName)
	g.Hooks().OnBeforeSave(b.normalizeName)
	return b, nil
}

func (b *RoleBLO) normalizeName(_ context.Context, r *Role) error {
	r.Name = strings.ToUpper(strings.TrimSpace(r.Name))
	return nil
}

// UserBLO hashes passwords before they are stored or shown again.
type UserBLO struct {
	*domain.Gateway[*User]
	cost int
}

// NewUserBLO opens the user business object on f.
func NewUserBLO(f *domain.Factory) (*UserBLO, error) {
	g, err := domain.NewGateway[*User](f)
	if err != nil {
		return nil, err
	}
	b := &UserBLO{Gateway: g, cost: bcrypt.DefaultCost}
	g.Hooks().OnFieldChanged("Password", b.hashPassword)
	g.Hooks().OnFieldChanged("Login", b.normalizeLogin)
	g.Hooks().OnBeforeSave(b.normalizeLogin)
	g.Hooks().OnBeforeSave(b.hashPassword)
	return b, nil
}

func (b *UserBLO) normalizeLogin(_ context.Context, u *User) error {
	u.Login = strings.ToLower(strings.TrimSpace(u.Login))
	return nil
}

// hashPassword replaces a clear text password with its bcrypt hash. Hashes are kept.
func (b *UserBLO) hashPassword(_ context.Context, u *User) error {
	if u.Password == "" || isHash(u.Password) {
		return nil
	}
	if len(u.Password) < 8 {
		return apperror.NewValidation("password must have at least 8 characters").
			WithDetail("field", "Password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), b.cost)
	if err != nil {
		return apperror.NewValidation("password cannot be hashed").
			WithDetail("field", "Password").
			WithCause(err)
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash of u.
func (b *UserBLO) CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func isHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// RegisterAll registers every catalog entity on f, with the specialized
// business objects of roles and users.
func RegisterAll(f *domain.Factory) error {
	for _, register := range []func(*domain.Factory) (*metadata.Entity, error){
		domain.RegisterEntity[*Country],
		domain.RegisterEntity[*City],
		domain.RegisterEntity[*Role],
		domain.RegisterEntity[*User],
		domain.RegisterEntity[*Authorization],
		domain.RegisterEntity[*MenuItem],
		domain.RegisterEntity[*Project],
		domain.RegisterEntity[*Task],
	} {
		if _, err := register(f); err != nil {
			return err
		}
	}

	f.Specialize("Role", func(f *domain.Factory) (domain.BLO, error) {
		b, err := NewRoleBLO(f)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
	f.Specialize("User", func(f *domain.Factory) (domain.BLO, error) {
		b, err := NewUserBLO(f)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
	return nil
}
