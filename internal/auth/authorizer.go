package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"accountability-service/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// RolePrefix marks department officials, e.g. admin_civic.
	RolePrefix = "admin_"
	// OversightDepartment may act on complaints of every category.
	OversightDepartment = "*"
)

// Authorizer verifies credentials minted by the identity service. It never
// issues sessions of its own.
type Authorizer struct {
	secret      []byte
	departments map[model.Category]string
}

// DefaultDepartments maps each category to the department named after it.
func DefaultDepartments() map[model.Category]string {
	out := make(map[model.Category]string, len(model.Categories))
	for _, c := range model.Categories {
		out[c] = string(c)
	}
	return out
}

func NewAuthorizer(secret string, departments map[model.Category]string) *Authorizer {
	if departments == nil {
		departments = DefaultDepartments()
	}
	return &Authorizer{secret: []byte(secret), departments: departments}
}

// Verify checks an HS256 bearer token and returns the department actor it names.
func (a *Authorizer) Verify(tokenString string) (model.Actor, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return model.Actor{}, fmt.Errorf("%w: missing credential", model.ErrUnauthorized)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Actor{}, fmt.Errorf("%w: invalid token", model.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Actor{}, fmt.Errorf("%w: invalid claims", model.ErrUnauthorized)
	}
	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	department, _ := claims["department"].(string)

	if userID == "" || !strings.HasPrefix(role, RolePrefix) || department == "" {
		return model.Actor{}, fmt.Errorf("%w: not a department official", model.ErrUnauthorized)
	}
	return model.Actor{Kind: model.ActorDepartment, ID: userID, Department: department}, nil
}

// Authorize checks that actor's department is responsible for category.
func (a *Authorizer) Authorize(actor model.Actor, category model.Category) error {
	if actor.Kind != model.ActorDepartment {
		return fmt.Errorf("%w: %s actors cannot act on complaints", model.ErrUnauthorized, actor.Kind)
	}
	if actor.Department == OversightDepartment {
		return nil
	}
	if want, ok := a.departments[category]; ok && strings.EqualFold(want, actor.Department) {
		return nil
	}
	return fmt.Errorf("%w: department %q does not handle %s complaints", model.ErrUnauthorized, actor.Department, category)
}

// Sign mints a department token. Used by local tooling and tests; production
// tokens come from the identity service.
func (a *Authorizer) Sign(userID, department string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    userID,
		"role":       RolePrefix + strings.TrimPrefix(department, RolePrefix),
		"department": department,
		"exp":        now.Add(ttl).Unix(),
		"iat":        now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
