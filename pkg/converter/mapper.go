// Package converter converts posted manual journals into Beancount
// transactions for the local archive.
package converter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AccountMapping maps one ledger account code to a Beancount account.
type AccountMapping struct {
	Code      string `yaml:"code"`
	Beancount string `yaml:"beancount"`
}

// AccountMappingConfig represents the account mapping file.
type AccountMappingConfig struct {
	Currency string           `yaml:"currency"`
	Accounts []AccountMapping `yaml:"accounts"`
}

// Mapper maps ledger account codes to Beancount account names.
type Mapper struct {
	currency   string
	codeToBean map[string]string
}

// DefaultCurrency is used when the mapping file names none.
const DefaultCurrency = "AUD"

// NewMapper creates a Mapper from an in-memory configuration.
func NewMapper(config AccountMappingConfig) (*Mapper, error) {
	m := &Mapper{
		currency:   config.Currency,
		codeToBean: make(map[string]string, len(config.Accounts)),
	}
	if m.currency == "" {
		m.currency = DefaultCurrency
	}

	for _, mapping := range config.Accounts {
		if mapping.Code == "" || mapping.Beancount == "" {
			return nil, fmt.Errorf("account mapping needs both code and beancount: %+v", mapping)
		}
		if _, dup := m.codeToBean[mapping.Code]; dup {
			return nil, fmt.Errorf("duplicate account mapping for code %s", mapping.Code)
		}
		m.codeToBean[mapping.Code] = mapping.Beancount
	}

	return m, nil
}

// LoadMapper creates a Mapper from a YAML file. An empty path yields a
// mapper with no explicit mappings.
func LoadMapper(configPath string) (*Mapper, error) {
	if configPath == "" {
		return NewMapper(AccountMappingConfig{})
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config AccountMappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return NewMapper(config)
}

// Currency returns the commodity used for postings.
func (m *Mapper) Currency() string {
	return m.currency
}

// BeancountAccount returns the mapped account for a code, or "" if none.
func (m *Mapper) BeancountAccount(code string) string {
	return m.codeToBean[code]
}

// BeancountAccountWithFallback returns the mapped account or fallback.
func (m *Mapper) BeancountAccountWithFallback(code, fallback string) string {
	if account := m.codeToBean[code]; account != "" {
		return account
	}
	return fallback
}
