// Package domain holds the typed identifiers and small value primitives
// shared across packages. Each entity gets its own ID type so a product id
// can never be passed where a bill id is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "aurum/pkg/domain-errors"
)

type (
	ProductID  uuid.UUID
	CustomerID uuid.UUID
	UserID     uuid.UUID
	SessionID  uuid.UUID
	BillID     uuid.UUID
	PackageID  uuid.UUID
	TagID      uuid.UUID
	AuditID    uuid.UUID
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return parsed, nil
}

// ParseProductID validates external input at trust boundaries.
func ParseProductID(s string) (ProductID, error) {
	u, err := parseUUID("product id", s)
	return ProductID(u), err
}

func ParseCustomerID(s string) (CustomerID, error) {
	u, err := parseUUID("customer id", s)
	return CustomerID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user id", s)
	return UserID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID("session id", s)
	return SessionID(u), err
}

func ParseBillID(s string) (BillID, error) {
	u, err := parseUUID("bill id", s)
	return BillID(u), err
}

func ParsePackageID(s string) (PackageID, error) {
	u, err := parseUUID("package id", s)
	return PackageID(u), err
}

func ParseTagID(s string) (TagID, error) {
	u, err := parseUUID("tag id", s)
	return TagID(u), err
}

func ParseAuditID(s string) (AuditID, error) {
	u, err := parseUUID("audit id", s)
	return AuditID(u), err
}

func NewProductID() ProductID   { return ProductID(uuid.New()) }
func NewCustomerID() CustomerID { return CustomerID(uuid.New()) }
func NewUserID() UserID         { return UserID(uuid.New()) }
func NewSessionID() SessionID   { return SessionID(uuid.New()) }
func NewBillID() BillID         { return BillID(uuid.New()) }
func NewPackageID() PackageID   { return PackageID(uuid.New()) }
func NewTagID() TagID           { return TagID(uuid.New()) }
func NewAuditID() AuditID       { return AuditID(uuid.New()) }

func (id ProductID) String() string  { return uuid.UUID(id).String() }
func (id CustomerID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id SessionID) String() string  { return uuid.UUID(id).String() }
func (id BillID) String() string     { return uuid.UUID(id).String() }
func (id PackageID) String() string  { return uuid.UUID(id).String() }
func (id TagID) String() string      { return uuid.UUID(id).String() }
func (id AuditID) String() string    { return uuid.UUID(id).String() }

func (id ProductID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CustomerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id BillID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id PackageID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id TagID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AuditID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed ids serialize as plain UUID strings in JSON.
func (id ProductID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id CustomerID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id SessionID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id BillID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id PackageID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id TagID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id AuditID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *ProductID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CustomerID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SessionID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *BillID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PackageID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TagID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AuditID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
