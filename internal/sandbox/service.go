package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/grocerycart/pkg/config"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/angelmondragon/grocerycart/pkg/security"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/shopspring/decimal"
)

// CustomerInput registers a sandbox customer.
type CustomerInput struct {
	Name      string
	Email     string
	Password  string
	Wallet    decimal.Decimal
	Addresses []types.Address
}

type customer struct {
	id           int64
	name         string
	email        string
	passwordHash string
	wallet       decimal.Decimal
	addresses    []types.Address
}

func (c *customer) profile() types.CustomerProfile {
	return types.CustomerProfile{ID: c.id, Name: c.name, Email: c.email, Wallet: c.wallet}
}

type cartLine struct {
	id       int64
	variant  Variant
	quantity int
}

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	Location *time.Location
	Now      func() time.Time
	Logger   *logger.Logger
	// SeedDemo registers the configured demo customer on start.
	SeedDemo bool
}

// Service is the in-memory commerce backend behind the sandbox API.
type Service struct {
	hasher       *security.Hasher
	taxRate      decimal.Decimal
	discountRate decimal.Decimal
	wallet       decimal.Decimal
	loc          *time.Location
	now          func() time.Time
	logg         *logger.Logger

	mu          sync.Mutex
	catalog     map[types.LineKey]Variant
	customers   map[int64]*customer
	byEmail     map[string]int64
	carts       map[int64][]*cartLine
	orders      map[int64][]types.Order
	nextCust    int64
	nextLine    int64
	nextOrder   int64
	nextItem    int64
	nextAddress int64
}

// NewService builds a sandbox backend from config.
func NewService(cfg config.SandboxConfig, opts Options) (*Service, error) {
	taxRate, err := parseRate("tax rate", cfg.TaxRate)
	if err != nil {
		return nil, err
	}
	discountRate, err := parseRate("discount rate", cfg.DiscountRate)
	if err != nil {
		return nil, err
	}
	wallet, err := decimal.NewFromString(strings.TrimSpace(cfg.DefaultWallet))
	if err != nil || wallet.IsNegative() {
		return nil, fmt.Errorf("invalid default wallet %q", cfg.DefaultWallet)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	s := &Service{
		hasher:       security.NewHasher(cfg.Password),
		taxRate:      taxRate,
		discountRate: discountRate,
		wallet:       wallet,
		loc:          opts.Location,
		now:          opts.Now,
		logg:         logg,
		catalog:      map[types.LineKey]Variant{},
		customers:    map[int64]*customer{},
		byEmail:      map[string]int64{},
		carts:        map[int64][]*cartLine{},
		orders:       map[int64][]types.Order{},
		nextOrder:    1000,
	}
	for _, v := range DefaultCatalog() {
		s.catalog[v.Key()] = v
	}

	if opts.SeedDemo {
		_, err := s.AddCustomer(context.Background(), CustomerInput{
			Name:      "Demo Customer",
			Email:     cfg.DemoEmail,
			Password:  cfg.DemoPassword,
			Wallet:    wallet,
			Addresses: defaultAddresses(),
		})
		if err != nil {
			return nil, fmt.Errorf("seeding demo customer: %w", err)
		}
	}
	return s, nil
}

func parseRate(name, raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%s must be between 0 and 1, got %s", name, rate)
	}
	return rate, nil
}

// Catalog lists every purchasable variant.
func (s *Service) Catalog() []Variant {
	out := DefaultCatalog()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range out {
		out[i] = s.catalog[out[i].Key()]
	}
	return out
}

// AddCustomer registers a customer with a hashed password. Addresses get
// fresh ids; when none is flagged default the first one is.
func (s *Service) AddCustomer(ctx context.Context, in CustomerInput) (types.CustomerProfile, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return types.CustomerProfile{}, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}
	if in.Wallet.IsNegative() {
		return types.CustomerProfile{}, pkgerrors.New(pkgerrors.CodeValidation, "wallet cannot be negative")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.CustomerProfile{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return types.CustomerProfile{}, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	s.nextCust++
	c := &customer{
		id:           s.nextCust,
		name:         strings.TrimSpace(in.Name),
		email:        email,
		passwordHash: hash,
		wallet:       in.Wallet,
	}
	hasDefault := false
	for _, addr := range in.Addresses {
		s.nextAddress++
		addr.ID = s.nextAddress
		addr.Selected = false
		if addr.IsDefault {
			if hasDefault {
				addr.IsDefault = false
			}
			hasDefault = true
		}
		c.addresses = append(c.addresses, addr)
	}
	if !hasDefault && len(c.addresses) > 0 {
		c.addresses[0].IsDefault = true
	}
	s.customers[c.id] = c
	s.byEmail[email] = c.id

	s.logg.Info(s.logg.WithCustomerID(ctx, fmt.Sprint(c.id)), "sandbox customer registered")
	return c.profile(), nil
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (types.CustomerProfile, error) {
	s.mu.Lock()
	id, ok := s.byEmail[normalizeEmail(email)]
	var c *customer
	if ok {
		c = s.customers[id]
	}
	s.mu.Unlock()

	invalid := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	if c == nil {
		return types.CustomerProfile{}, invalid
	}
	match, err := s.hasher.Verify(password, c.passwordHash)
	if err != nil {
		return types.CustomerProfile{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !match {
		return types.CustomerProfile{}, invalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return c.profile(), nil
}

// Profile returns the customer's profile including the wallet balance.
func (s *Service) Profile(ctx context.Context, customerID int64) (types.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.customerLocked(customerID)
	if err != nil {
		return types.CustomerProfile{}, err
	}
	return c.profile(), nil
}

// Addresses returns the customer's saved addresses.
func (s *Service) Addresses(ctx context.Context, customerID int64) ([]types.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.customerLocked(customerID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Address, len(c.addresses))
	copy(out, c.addresses)
	return out, nil
}

func (s *Service) customerLocked(id int64) (*customer, error) {
	c, ok := s.customers[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown customer")
	}
	return c, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
