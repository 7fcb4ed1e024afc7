package wmi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// DomainMembership is what Win32_ComputerSystem reports about AD membership.
// It is independent of dsregcmd and says nothing about cloud join.
type DomainMembership struct {
	PartOfDomain bool
	// Domain is the AD domain, or the workgroup name when not joined.
	Domain string
}

func QueryDomainMembership(ctx context.Context, slogger *slog.Logger) (DomainMembership, error) {
	rows, err := Query(ctx, slogger, "Win32_ComputerSystem", []string{"PartOfDomain", "Domain"})
	if err != nil {
		return DomainMembership{}, fmt.Errorf("querying Win32_ComputerSystem: %w", err)
	}

	return parseDomainMembership(rows)
}

func parseDomainMembership(rows []map[string]interface{}) (DomainMembership, error) {
	if len(rows) == 0 {
		return DomainMembership{}, errors.New("no Win32_ComputerSystem rows")
	}

	row := rows[0]
	m := DomainMembership{}

	switch v := row["PartOfDomain"].(type) {
	case bool:
		m.PartOfDomain = v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return DomainMembership{}, fmt.Errorf("parsing PartOfDomain %q: %w", v, err)
		}
		m.PartOfDomain = b
	default:
		return DomainMembership{}, fmt.Errorf("unexpected PartOfDomain value %v (%T)", v, v)
	}

	if domain, ok := row["Domain"].(string); ok {
		m.Domain = domain
	}

	return m, nil
}
