package httptransport

import (
	"strings"

	"github.com/shopspring/decimal"

	billingModels "aurum/internal/billing/models"
	"aurum/internal/valuation"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type CreateUserRequest struct {
	Username   string `json:"username" validate:"required,max=64"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Role       string `json:"role" validate:"required"`
	CustomerID string `json:"customer_id,omitempty"`

	customerID domain.CustomerID
}

func (r *CreateUserRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
}

func (r *CreateUserRequest) Validate() error {
	if r.CustomerID == "" {
		return nil
	}
	id, err := domain.ParseCustomerID(r.CustomerID)
	if err != nil {
		return err
	}
	r.customerID = id
	return nil
}

type OperationsRequest struct {
	Open *bool `json:"open" validate:"required"`
}

type GoldRateRequest struct {
	Rate decimal.Decimal `json:"rate"`
}

func (r *GoldRateRequest) Validate() error {
	if !r.Rate.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "rate must be positive")
	}
	return nil
}

type CustomerRequest struct {
	Name  string `json:"name" validate:"required,max=128"`
	Phone string `json:"phone" validate:"required,max=32"`
	City  string `json:"city" validate:"max=64"`
}

func (r *CustomerRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.City = strings.TrimSpace(r.City)
}

type IntakeRequest struct {
	Barcode     string          `json:"barcode" validate:"required,max=64"`
	BatchID     string          `json:"batch_id" validate:"max=64"`
	Type        string          `json:"type" validate:"required,max=64"`
	Purity      string          `json:"purity" validate:"required,max=16"`
	TotalWeight decimal.Decimal `json:"total_weight"`
	StoneWeight decimal.Decimal `json:"stone_weight"`
	GoldWeight  decimal.Decimal `json:"gold_weight"`
}

func (r *IntakeRequest) Normalize() {
	r.Barcode = strings.TrimSpace(r.Barcode)
	r.BatchID = strings.TrimSpace(r.BatchID)
	r.Type = strings.TrimSpace(r.Type)
	r.Purity = strings.TrimSpace(r.Purity)
}

type AllotRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`

	customerID domain.CustomerID
}

func (r *AllotRequest) Validate() error {
	id, err := domain.ParseCustomerID(r.CustomerID)
	if err != nil {
		return err
	}
	r.customerID = id
	return nil
}

type BulkAllotRequest struct {
	CustomerID string   `json:"customer_id" validate:"required"`
	ProductIDs []string `json:"product_ids" validate:"required,min=1,max=500"`

	customerID domain.CustomerID
	productIDs []domain.ProductID
}

func (r *BulkAllotRequest) Validate() error {
	id, err := domain.ParseCustomerID(r.CustomerID)
	if err != nil {
		return err
	}
	r.customerID = id
	r.productIDs, err = parseProductIDs(r.ProductIDs)
	return err
}

type ConfirmRequest struct {
	Match *bool  `json:"match" validate:"required"`
	Note  string `json:"note" validate:"max=512"`
}

type SuspendRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1,max=500"`
	Reason     string   `json:"reason" validate:"required,max=512"`

	productIDs []domain.ProductID
}

func (r *SuspendRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *SuspendRequest) Validate() error {
	var err error
	r.productIDs, err = parseProductIDs(r.ProductIDs)
	return err
}

type ScanRequest struct {
	Barcode   string `json:"barcode" validate:"required,max=64"`
	ProductID string `json:"product_id,omitempty"`
	Location  string `json:"location" validate:"max=128"`

	productID domain.ProductID
}

func (r *ScanRequest) Validate() error {
	if r.ProductID == "" {
		return nil
	}
	id, err := domain.ParseProductID(r.ProductID)
	if err != nil {
		return err
	}
	r.productID = id
	return nil
}

// TermsRequest carries optional per-line pricing. Omitted decimals are zero.
type TermsRequest struct {
	Rate             decimal.Decimal  `json:"rate"`
	MakingPercent    decimal.Decimal  `json:"making_percent"`
	FixedMakingRate  decimal.Decimal  `json:"fixed_making_rate"`
	MakingTaxPercent *decimal.Decimal `json:"making_tax_percent,omitempty"`
}

func (t TermsRequest) validate() error {
	if t.Rate.IsNegative() || t.MakingPercent.IsNegative() || t.FixedMakingRate.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "pricing terms cannot be negative")
	}
	if t.MakingTaxPercent != nil && t.MakingTaxPercent.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "making_tax_percent cannot be negative")
	}
	return nil
}

type BillItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	TermsRequest

	productID domain.ProductID
}

type CreateBillRequest struct {
	CustomerID    string            `json:"customer_id" validate:"required"`
	Mode          string            `json:"mode" validate:"required"`
	InvoiceNumber string            `json:"invoice_number" validate:"max=32"`
	Items         []BillItemRequest `json:"items" validate:"required,min=1,max=500,dive"`

	customerID domain.CustomerID
	mode       valuation.PricingMode
}

func (r *CreateBillRequest) Normalize() {
	r.Mode = strings.ToUpper(strings.TrimSpace(r.Mode))
	r.InvoiceNumber = strings.TrimSpace(r.InvoiceNumber)
}

func (r *CreateBillRequest) Validate() error {
	var err error
	if r.customerID, err = domain.ParseCustomerID(r.CustomerID); err != nil {
		return err
	}
	if r.mode, err = valuation.ParsePricingMode(r.Mode); err != nil {
		return err
	}
	return parseItems(r.Items)
}

type SplitBillsRequest struct {
	CustomerID string            `json:"customer_id" validate:"required"`
	Mode       string            `json:"mode" validate:"required"`
	Parts      int               `json:"parts" validate:"required,min=1,max=5"`
	Items      []BillItemRequest `json:"items" validate:"max=500,dive"`
	Defaults   TermsRequest      `json:"defaults"`

	customerID domain.CustomerID
	mode       valuation.PricingMode
}

func (r *SplitBillsRequest) Normalize() {
	r.Mode = strings.ToUpper(strings.TrimSpace(r.Mode))
}

func (r *SplitBillsRequest) Validate() error {
	var err error
	if r.customerID, err = domain.ParseCustomerID(r.CustomerID); err != nil {
		return err
	}
	if r.mode, err = valuation.ParsePricingMode(r.Mode); err != nil {
		return err
	}
	if err := r.Defaults.validate(); err != nil {
		return err
	}
	return parseItems(r.Items)
}

type PaymentRequest struct {
	Mode string `json:"mode" validate:"required"`

	mode billingModels.PaymentMode
}

func (r *PaymentRequest) Normalize() {
	r.Mode = strings.ToUpper(strings.TrimSpace(r.Mode))
}

func (r *PaymentRequest) Validate() error {
	var err error
	r.mode, err = billingModels.ParsePaymentMode(r.Mode)
	return err
}

type DispatchRequest struct {
	BillID     string   `json:"bill_id" validate:"required"`
	ProductIDs []string `json:"product_ids" validate:"max=500"`

	billID     domain.BillID
	productIDs []domain.ProductID
}

func (r *DispatchRequest) Validate() error {
	var err error
	if r.billID, err = domain.ParseBillID(r.BillID); err != nil {
		return err
	}
	r.productIDs, err = parseProductIDs(r.ProductIDs)
	return err
}

type DeliverRequest struct {
	VerifiedProductIDs []string `json:"verified_product_ids" validate:"required,min=1,max=500"`

	verified []domain.ProductID
}

func (r *DeliverRequest) Validate() error {
	var err error
	r.verified, err = parseProductIDs(r.VerifiedProductIDs)
	return err
}

type DraftTagRequest struct {
	Type      string          `json:"type" validate:"required,max=64"`
	Purity    string          `json:"purity" validate:"required,max=16"`
	NetWeight decimal.Decimal `json:"net_weight"`
}

func (r *DraftTagRequest) Normalize() {
	r.Type = strings.TrimSpace(r.Type)
	r.Purity = strings.TrimSpace(r.Purity)
}

type FinalizeTagRequest struct {
	GrossWeight decimal.Decimal `json:"gross_weight"`
	Barcode     string          `json:"barcode" validate:"required,max=64"`
	BatchID     string          `json:"batch_id" validate:"max=64"`
}

func (r *FinalizeTagRequest) Normalize() {
	r.Barcode = strings.TrimSpace(r.Barcode)
	r.BatchID = strings.TrimSpace(r.BatchID)
}

type ResolveRequest struct {
	Note string `json:"note" validate:"max=1024"`
}

func parseProductIDs(raw []string) ([]domain.ProductID, error) {
	ids := make([]domain.ProductID, 0, len(raw))
	for _, s := range raw {
		id, err := domain.ParseProductID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseItems(items []BillItemRequest) error {
	for i := range items {
		id, err := domain.ParseProductID(items[i].ProductID)
		if err != nil {
			return err
		}
		if err := items[i].validate(); err != nil {
			return err
		}
		items[i].productID = id
	}
	return nil
}
