// Package reference provides the static lookup tables used to build journals:
// branches, stock types, payment types and the POS clearing account.
//
// Tables are immutable once built and are safe to share between goroutines.
package reference

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrUnknownBranch is returned when a branch code is not present in the tables.
var ErrUnknownBranch = errors.New("unknown branch code")

// Branch represents a retail branch.
type Branch struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// StockType maps a POS stock category to a ledger account.
type StockType struct {
	ID          int    `yaml:"id"`
	Description string `yaml:"description"`
	AccountCode string `yaml:"account_code"`
}

// PaymentType maps a POS payment method to a ledger account.
type PaymentType struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
	AccountCode string `yaml:"account_code"`
}

// TablesConfig represents the reference table file layout.
type TablesConfig struct {
	ClearingAccountCode string        `yaml:"clearing_account_code"`
	GSTMultiplier       string        `yaml:"gst_multiplier"`
	Branches            []Branch      `yaml:"branches"`
	StockTypes          []StockType   `yaml:"stock_types"`
	PaymentTypes        []PaymentType `yaml:"payment_types"`
}

// Tables holds the reference data keyed by natural identifier.
type Tables struct {
	branches            []Branch
	branchByCode        map[string]Branch
	stockTypes          map[int]StockType
	paymentTypes        map[string]PaymentType
	clearingAccountCode string
	gstMultiplier       decimal.Decimal
}

// New builds Tables from a configuration and validates it.
func New(cfg TablesConfig) (*Tables, error) {
	if cfg.ClearingAccountCode == "" {
		return nil, fmt.Errorf("clearing_account_code is required")
	}

	multiplier := DefaultGSTMultiplier
	if cfg.GSTMultiplier != "" {
		m, err := decimal.NewFromString(cfg.GSTMultiplier)
		if err != nil {
			return nil, fmt.Errorf("invalid gst_multiplier %q: %w", cfg.GSTMultiplier, err)
		}
		if !m.IsPositive() {
			return nil, fmt.Errorf("gst_multiplier must be positive, got %s", m)
		}
		multiplier = m
	}

	t := &Tables{
		branches:            make([]Branch, 0, len(cfg.Branches)),
		branchByCode:        make(map[string]Branch, len(cfg.Branches)),
		stockTypes:          make(map[int]StockType, len(cfg.StockTypes)),
		paymentTypes:        make(map[string]PaymentType, len(cfg.PaymentTypes)),
		clearingAccountCode: cfg.ClearingAccountCode,
		gstMultiplier:       multiplier,
	}

	for _, b := range cfg.Branches {
		if b.Code == "" {
			return nil, fmt.Errorf("branch with empty code")
		}
		if _, dup := t.branchByCode[b.Code]; dup {
			return nil, fmt.Errorf("duplicate branch code %q", b.Code)
		}
		t.branches = append(t.branches, b)
		t.branchByCode[b.Code] = b
	}

	for _, st := range cfg.StockTypes {
		if st.AccountCode == "" {
			return nil, fmt.Errorf("stock type %d has no account code", st.ID)
		}
		if _, dup := t.stockTypes[st.ID]; dup {
			return nil, fmt.Errorf("duplicate stock type id %d", st.ID)
		}
		t.stockTypes[st.ID] = st
	}

	for _, pt := range cfg.PaymentTypes {
		if pt.Code == "" || pt.AccountCode == "" {
			return nil, fmt.Errorf("payment type %q is missing code or account code", pt.Code)
		}
		if _, dup := t.paymentTypes[pt.Code]; dup {
			return nil, fmt.Errorf("duplicate payment type code %q", pt.Code)
		}
		t.paymentTypes[pt.Code] = pt
	}

	return t, nil
}

// Load reads reference tables from a YAML file.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference tables: %w", err)
	}

	var cfg TablesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return New(cfg)
}

// LoadOrDefault loads tables from path, or returns the built-in tables when path is empty.
func LoadOrDefault(path string) (*Tables, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Branches returns all branches in configured order.
func (t *Tables) Branches() []Branch {
	out := make([]Branch, len(t.branches))
	copy(out, t.branches)
	return out
}

// Branch looks up a branch by code.
func (t *Tables) Branch(code string) (Branch, bool) {
	b, ok := t.branchByCode[code]
	return b, ok
}

// BranchName returns the display name for a branch code, or the code itself when unknown.
func (t *Tables) BranchName(code string) string {
	if b, ok := t.branchByCode[code]; ok {
		return b.Name
	}
	return code
}

// ResolveBranches returns the branches to process. An empty code selects every branch.
func (t *Tables) ResolveBranches(code string) ([]Branch, error) {
	if code == "" {
		return t.Branches(), nil
	}

	b, ok := t.branchByCode[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownBranch, code, strings.Join(t.BranchCodes(), ", "))
	}
	return []Branch{b}, nil
}

// BranchCodes returns all branch codes in configured order.
func (t *Tables) BranchCodes() []string {
	codes := make([]string, len(t.branches))
	for i, b := range t.branches {
		codes[i] = b.Code
	}
	return codes
}

// StockType looks up a stock type by id.
func (t *Tables) StockType(id int) (StockType, bool) {
	st, ok := t.stockTypes[id]
	return st, ok
}

// StockTypeIDs returns the known stock type ids in ascending order.
func (t *Tables) StockTypeIDs() []int {
	ids := make([]int, 0, len(t.stockTypes))
	for id := range t.stockTypes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// PaymentType looks up a payment type by code.
func (t *Tables) PaymentType(code string) (PaymentType, bool) {
	pt, ok := t.paymentTypes[code]
	return pt, ok
}

// ClearingAccountCode returns the account used to balance every journal stage.
func (t *Tables) ClearingAccountCode() string {
	return t.clearingAccountCode
}

// GSTMultiplier returns the factor that turns a GST amount into the
// tax-inclusive sale value it was charged on.
func (t *Tables) GSTMultiplier() decimal.Decimal {
	return t.gstMultiplier
}
