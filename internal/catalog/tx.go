package catalog

import (
	"context"
	"sort"

	authModels "aurum/internal/auth/models"
	billingModels "aurum/internal/billing/models"
	customerModels "aurum/internal/customer/models"
	inventoryModels "aurum/internal/inventory/models"
	logisticsModels "aurum/internal/logistics/models"
	taggingModels "aurum/internal/tagging/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/requestcontext"
)

// Tx is a staged view of the catalog for one command. Reads see the Tx's own
// writes. Every value returned is a copy; call the matching Put to stage a
// change. A Tx must not be used after its Update or View callback returns.
type Tx struct {
	ctx      context.Context
	readOnly bool

	products  *staged[domain.ProductID, *inventoryModels.Product]
	customers *staged[domain.CustomerID, *customerModels.Customer]
	users     *staged[domain.UserID, *authModels.User]
	sessions  *staged[domain.SessionID, *authModels.Session]
	bills     *staged[domain.BillID, *billingModels.Bill]
	packages  *staged[domain.PackageID, *logisticsModels.Package]
	tags      *staged[domain.TagID, *taggingModels.Tag]

	settings      Settings
	settingsDirty bool

	entries    []audit.Entry
	appended   []audit.Entry
	resolved   map[domain.AuditID]audit.Entry
	invoiceSeq uint64
}

// ReadOnly reports whether the Tx came from View.
func (tx *Tx) ReadOnly() bool { return tx.readOnly }

// --- products ---

func (tx *Tx) Product(id domain.ProductID) (*inventoryModels.Product, error) {
	p, ok := tx.products.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p, nil
}

// ProductByBarcode finds a product by its normalized barcode.
func (tx *Tx) ProductByBarcode(barcode string) (*inventoryModels.Product, bool) {
	return tx.products.lookup(barcode)
}

// Products lists products accepted by keep (all when nil), oldest first.
func (tx *Tx) Products(keep func(*inventoryModels.Product) bool) []*inventoryModels.Product {
	return tx.products.list(keep)
}

// InsertProduct stages a new product. Barcodes are unique.
func (tx *Tx) InsertProduct(p *inventoryModels.Product) error {
	if _, ok := tx.products.lookup(p.Barcode); ok {
		return sentinel.ErrConflict
	}
	if _, ok := tx.products.get(p.ID); ok {
		return sentinel.ErrConflict
	}
	tx.products.put(p.ID, p)
	return nil
}

// PutProduct stages a change to an existing product.
func (tx *Tx) PutProduct(p *inventoryModels.Product) error {
	if _, ok := tx.products.get(p.ID); !ok {
		return sentinel.ErrNotFound
	}
	tx.products.put(p.ID, p)
	return nil
}

// --- customers ---

func (tx *Tx) Customer(id domain.CustomerID) (*customerModels.Customer, error) {
	c, ok := tx.customers.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c, nil
}

func (tx *Tx) Customers(keep func(*customerModels.Customer) bool) []*customerModels.Customer {
	return tx.customers.list(keep)
}

func (tx *Tx) PutCustomer(c *customerModels.Customer) {
	tx.customers.put(c.ID, c)
}

// --- users and sessions ---

func (tx *Tx) User(id domain.UserID) (*authModels.User, error) {
	u, ok := tx.users.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return u, nil
}

func (tx *Tx) UserByUsername(username string) (*authModels.User, bool) {
	return tx.users.lookup(username)
}

func (tx *Tx) Users(keep func(*authModels.User) bool) []*authModels.User {
	return tx.users.list(keep)
}

// InsertUser stages a new user. Usernames are unique.
func (tx *Tx) InsertUser(u *authModels.User) error {
	if _, ok := tx.users.lookup(u.Username); ok {
		return sentinel.ErrConflict
	}
	tx.users.put(u.ID, u)
	return nil
}

func (tx *Tx) PutUser(u *authModels.User) {
	tx.users.put(u.ID, u)
}

func (tx *Tx) Session(id domain.SessionID) (*authModels.Session, error) {
	s, ok := tx.sessions.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s, nil
}

func (tx *Tx) Sessions(keep func(*authModels.Session) bool) []*authModels.Session {
	return tx.sessions.list(keep)
}

func (tx *Tx) PutSession(s *authModels.Session) {
	tx.sessions.put(s.ID, s)
}

// SessionActive reports whether id names a session usable at the request time.
func (tx *Tx) SessionActive(id domain.SessionID) bool {
	s, ok := tx.sessions.get(id)
	return ok && s.IsActive(requestcontext.Now(tx.ctx))
}

// --- bills ---

func (tx *Tx) Bill(id domain.BillID) (*billingModels.Bill, error) {
	b, ok := tx.bills.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return b, nil
}

func (tx *Tx) Bills(keep func(*billingModels.Bill) bool) []*billingModels.Bill {
	return tx.bills.list(keep)
}

// InsertBill stages a new bill. Invoice numbers are unique.
func (tx *Tx) InsertBill(b *billingModels.Bill) error {
	if _, ok := tx.bills.lookup(b.InvoiceNumber); ok {
		return sentinel.ErrConflict
	}
	tx.bills.put(b.ID, b)
	return nil
}

func (tx *Tx) PutBill(b *billingModels.Bill) error {
	if _, ok := tx.bills.get(b.ID); !ok {
		return sentinel.ErrNotFound
	}
	tx.bills.put(b.ID, b)
	return nil
}

// NextInvoiceNumber reserves the next sequential invoice number, skipping
// any already taken by an explicitly numbered bill.
func (tx *Tx) NextInvoiceNumber() string {
	for {
		tx.invoiceSeq++
		n := formatInvoice(tx.invoiceSeq)
		if _, taken := tx.bills.lookup(n); !taken {
			return n
		}
	}
}

// --- packages ---

func (tx *Tx) Package(id domain.PackageID) (*logisticsModels.Package, error) {
	p, ok := tx.packages.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p, nil
}

func (tx *Tx) PackageByTracking(trackingID string) (*logisticsModels.Package, bool) {
	return tx.packages.lookup(trackingID)
}

func (tx *Tx) Packages(keep func(*logisticsModels.Package) bool) []*logisticsModels.Package {
	return tx.packages.list(keep)
}

// InsertPackage stages a new package. Tracking ids are unique.
func (tx *Tx) InsertPackage(p *logisticsModels.Package) error {
	if _, ok := tx.packages.lookup(p.TrackingID); ok {
		return sentinel.ErrConflict
	}
	tx.packages.put(p.ID, p)
	return nil
}

func (tx *Tx) PutPackage(p *logisticsModels.Package) {
	tx.packages.put(p.ID, p)
}

// --- tags ---

func (tx *Tx) Tag(id domain.TagID) (*taggingModels.Tag, error) {
	t, ok := tx.tags.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t, nil
}

func (tx *Tx) Tags(keep func(*taggingModels.Tag) bool) []*taggingModels.Tag {
	return tx.tags.list(keep)
}

func (tx *Tx) PutTag(t *taggingModels.Tag) {
	tx.tags.put(t.ID, t)
}

// --- settings ---

func (tx *Tx) Settings() Settings {
	return tx.settings
}

func (tx *Tx) PutSettings(s Settings) {
	tx.settings = s
	tx.settingsDirty = true
}

// --- audit ---

// Append stages an audit entry. Seq is assigned at commit in append order.
func (tx *Tx) Append(e audit.Entry) {
	tx.appended = append(tx.appended, e.Clone())
}

// Appended returns the entries staged so far.
func (tx *Tx) Appended() []audit.Entry {
	return cloneEntries(tx.appended)
}

// AuditEntry returns a committed entry including any staged resolution.
func (tx *Tx) AuditEntry(id domain.AuditID) (audit.Entry, error) {
	if e, ok := tx.resolved[id]; ok {
		return e.Clone(), nil
	}
	for _, e := range tx.entries {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return audit.Entry{}, sentinel.ErrNotFound
}

// PutAuditEntry stages the OPEN to RESOLVED change of a committed entry.
// No other field may differ from the committed copy.
func (tx *Tx) PutAuditEntry(e audit.Entry) error {
	current, err := tx.AuditEntry(e.ID)
	if err != nil {
		return err
	}
	if current.Status != audit.StatusOpen || e.Status != audit.StatusResolved ||
		current.Seq != e.Seq || current.Action != e.Action || current.Details != e.Details {
		return sentinel.ErrInvalidState
	}
	tx.resolved[e.ID] = e.Clone()
	return nil
}

// AuditEntries returns committed entries accepted by keep, most recent first.
// limit <= 0 means no limit.
func (tx *Tx) AuditEntries(keep func(audit.Entry) bool, limit int) []audit.Entry {
	out := make([]audit.Entry, 0)
	for i := len(tx.entries) - 1; i >= 0; i-- {
		e := tx.entries[i]
		if r, ok := tx.resolved[e.ID]; ok {
			e = r
		}
		if keep != nil && !keep(e) {
			continue
		}
		out = append(out, e.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out
}
