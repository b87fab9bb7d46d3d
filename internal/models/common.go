// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStalkist Role = "stalkist"
	RoleDealer   Role = "dealer"
	RoleSalesman Role = "salesman"
)

// AllRoles lists the hierarchy top-down.
var AllRoles = []Role{RoleAdmin, RoleStalkist, RoleDealer, RoleSalesman}

var roleAliases = map[string]Role{
	"admin":       RoleAdmin,
	"superadmin":  RoleAdmin,
	"super_admin": RoleAdmin,
	"stalkist":    RoleStalkist,
	"stockist":    RoleStalkist,
	"stokist":     RoleStalkist,
	"dealer":      RoleDealer,
	"distributor": RoleDealer,
	"salesman":    RoleSalesman,
	"sales_man":   RoleSalesman,
	"salesperson": RoleSalesman,
	"sales":       RoleSalesman,
}

// ParseRole maps any accepted spelling of a role onto its canonical value.
func ParseRole(s string) (Role, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	r, ok := roleAliases[key]
	return r, ok
}

// CanCreate reports whether a user holding r may create a user with role child.
func (r Role) CanCreate(child Role) bool {
	switch r {
	case RoleAdmin:
		return child == RoleStalkist || child == RoleDealer || child == RoleSalesman
	case RoleStalkist:
		return child == RoleDealer
	case RoleDealer:
		return child == RoleSalesman
	}
	return false
}

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// AcceptsUpload reports whether a receipt (or card payment) may move the request to paid.
func (s PaymentStatus) AcceptsUpload() bool {
	return s == PaymentStatusPending || s == PaymentStatusRejected
}
