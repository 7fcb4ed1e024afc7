// Package enrollconfig makes sure the MDM endpoint values that automatic
// enrollment reads from the CloudDomainJoin tenant info key are present and
// correct.
package enrollconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

const TenantInfoPath = `SYSTEM\CurrentControlSet\Control\CloudDomainJoin\TenantInfo`

// ErrNoTenant is returned when no tenant ID was configured and none could be
// discovered under TenantInfoPath. The cloud join has usually not happened yet.
var ErrNoTenant = errors.New("no tenant found under tenant info key")

type Entry struct {
	Name     string
	Expected string
}

// DefaultEntries are the Intune endpoints.
var DefaultEntries = []Entry{
	{Name: "MdmEnrollmentUrl", Expected: "https://enrollment.manage.microsoft.com/enrollmentserver/discovery.svc"},
	{Name: "MdmTermsOfUseUrl", Expected: "https://portal.manage.microsoft.com/TermsofUse.aspx"},
	{Name: "MdmComplianceUrl", Expected: "https://portal.manage.microsoft.com/?portalAction=Compliance"},
}

// ValueStore is the registry, as far as this package is concerned. Paths are
// relative to HKEY_LOCAL_MACHINE.
type ValueStore interface {
	// GetString returns the string value, and whether it exists.
	GetString(ctx context.Context, path, name string) (string, bool, error)
	// SetString writes the value, creating the key and any missing parents.
	SetString(ctx context.Context, path, name, value string) error
	// SubKeys lists the immediate subkeys of path.
	SubKeys(ctx context.Context, path string) ([]string, error)
}

type Outcome int

const (
	Unchanged Outcome = iota
	Corrected
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Corrected:
		return "corrected"
	default:
		return "failed"
	}
}

type EntryResult struct {
	Name     string
	Outcome  Outcome
	Previous string
	Existed  bool
}

type Configurator struct {
	slogger  *slog.Logger
	store    ValueStore
	tenantID string
	entries  []Entry
}

type Option func(*Configurator)

// WithTenantID pins the tenant subkey rather than discovering it.
func WithTenantID(tenantID string) Option {
	return func(c *Configurator) {
		c.tenantID = tenantID
	}
}

func WithEntries(entries []Entry) Option {
	return func(c *Configurator) {
		c.entries = entries
	}
}

func New(slogger *slog.Logger, store ValueStore, opts ...Option) *Configurator {
	c := &Configurator{
		slogger: slogger.With("component", "enrollment_configurator"),
		store:   store,
		entries: DefaultEntries,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TenantPath returns the key holding the MDM values for the configured or
// discovered tenant.
func (c *Configurator) TenantPath(ctx context.Context) (string, error) {
	if c.tenantID != "" {
		return TenantInfoPath + `\` + c.tenantID, nil
	}

	tenants, err := c.store.SubKeys(ctx, TenantInfoPath)
	if err != nil {
		return "", fmt.Errorf("listing tenants: %w", err)
	}
	if len(tenants) == 0 {
		return "", ErrNoTenant
	}

	// Hosts are joined to a single tenant; sorting only keeps the pick stable.
	sort.Strings(tenants)
	if len(tenants) > 1 {
		c.slogger.Log(ctx, slog.LevelWarn,
			"multiple tenants found, using first",
			"tenants", tenants,
		)
	}

	return TenantInfoPath + `\` + tenants[0], nil
}

// EnsureConfigured writes every entry whose stored value is absent or differs
// from the expected value. Entries that already match are not written. Calling
// it repeatedly converges on the same state.
func (c *Configurator) EnsureConfigured(ctx context.Context) ([]EntryResult, error) {
	path, err := c.TenantPath(ctx)
	if errors.Is(err, ErrNoTenant) {
		c.slogger.Log(ctx, slog.LevelWarn,
			"no tenant key yet, skipping enrollment configuration until the next run",
			"tenant_info_path", TenantInfoPath,
			"retry", "next invocation",
		)
		return nil, err
	}
	if err != nil {
		c.slogger.Log(ctx, slog.LevelWarn,
			"cannot determine tenant key, skipping enrollment configuration",
			"err", err,
		)
		return nil, err
	}

	results := make([]EntryResult, 0, len(c.entries))
	for _, entry := range c.entries {
		results = append(results, c.ensureEntry(ctx, path, entry))
	}

	return results, nil
}

func (c *Configurator) ensureEntry(ctx context.Context, path string, entry Entry) EntryResult {
	result := EntryResult{Name: entry.Name}

	current, exists, err := c.store.GetString(ctx, path, entry.Name)
	if err != nil {
		// An unreadable value is rewritten just like a missing one
		c.slogger.Log(ctx, slog.LevelWarn,
			"could not read enrollment value",
			"path", path,
			"name", entry.Name,
			"err", err,
		)
	}
	result.Previous = current
	result.Existed = exists

	if err == nil && exists && current == entry.Expected {
		c.slogger.Log(ctx, slog.LevelInfo,
			"enrollment value already configured",
			"name", entry.Name,
			"value", current,
		)
		result.Outcome = Unchanged
		return result
	}

	if err := c.store.SetString(ctx, path, entry.Name, entry.Expected); err != nil {
		c.slogger.Log(ctx, slog.LevelError,
			"could not write enrollment value",
			"path", path,
			"name", entry.Name,
			"err", err,
		)
		result.Outcome = Failed
		return result
	}

	c.slogger.Log(ctx, slog.LevelInfo,
		"corrected enrollment value",
		"name", entry.Name,
		"previous", current,
		"existed", exists,
		"value", entry.Expected,
	)
	result.Outcome = Corrected
	return result
}

// Inspect reports what EnsureConfigured would do without writing anything.
func (c *Configurator) Inspect(ctx context.Context) ([]EntryResult, error) {
	path, err := c.TenantPath(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]EntryResult, 0, len(c.entries))
	for _, entry := range c.entries {
		current, exists, err := c.store.GetString(ctx, path, entry.Name)
		r := EntryResult{Name: entry.Name, Previous: current, Existed: exists, Outcome: Unchanged}
		switch {
		case err != nil:
			r.Outcome = Failed
		case !exists || current != entry.Expected:
			r.Outcome = Corrected
		}
		results = append(results, r)
	}

	return results, nil
}
