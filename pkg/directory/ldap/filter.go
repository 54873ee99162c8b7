package ldap

import (
	"fmt"
	"sort"
	"strings"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
)

var defaultClassFilters = map[string]string{
	"user":  "(&(objectCategory=person)(objectClass=user))",
	"group": "(objectClass=group)",
}

// classFilter returns the LDAP filter selecting objects of class.
func classFilter(class string, configured map[string]string) string {
	if f, ok := configured[class]; ok && f != "" {
		return f
	}
	if f, ok := defaultClassFilters[class]; ok {
		return f
	}
	return "(objectClass=" + goldap.EscapeFilter(class) + ")"
}

// buildFilter renders a class filter and attribute constraints as one LDAP
// filter. Attribute names are sorted so equal filters render identically.
func buildFilter(class string, filter directory.Filter, cfg directory.Config) (string, error) {
	base := classFilter(class, cfg.ClassFilters)
	if len(filter) == 0 {
		return base, nil
	}

	names := make([]string, 0, len(filter))
	for name := range filter {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("(&")
	b.WriteString(base)
	for _, name := range names {
		clause, err := attributeClause(name, filter[name], cfg.IDAttribute)
		if err != nil {
			return "", err
		}
		b.WriteString(clause)
	}
	b.WriteString(")")
	return b.String(), nil
}

func attributeClause(name string, value any, idAttribute string) (string, error) {
	if err := directory.ValidateAttributeName(name); err != nil {
		return "", err
	}
	attr := name
	if strings.EqualFold(name, "dn") {
		attr = "distinguishedName"
	}

	var values []string
	switch v := value.(type) {
	case []string:
		values = v
	case []any:
		for _, item := range v {
			values = append(values, fmt.Sprint(item))
		}
	default:
		values = []string{fmt.Sprint(v)}
	}
	if len(values) == 0 {
		return "", fmt.Errorf("%w: filter on %s has no values", directory.ErrInvalidFilter, name)
	}

	guid := strings.EqualFold(attr, idAttribute) && strings.EqualFold(idAttribute, directory.DefaultIDAttribute)
	clauses := make([]string, 0, len(values))
	for _, v := range values {
		escaped := goldap.EscapeFilter(v)
		if guid {
			var err error
			if escaped, err = escapeGUID(v); err != nil {
				return "", err
			}
		}
		clauses = append(clauses, "("+attr+"="+escaped+")")
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return "(|" + strings.Join(clauses, "") + ")", nil
}

// escapeGUID renders a GUID string as the binary filter value of objectGUID.
func escapeGUID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: invalid objectGUID %q: %v", directory.ErrInvalidFilter, s, err)
	}
	var b strings.Builder
	for _, octet := range guidBytes(id) {
		fmt.Fprintf(&b, "\\%02x", octet)
	}
	return b.String(), nil
}

// dnFilter selects the objects with any of the given distinguished names.
func dnFilter(dns []string) string {
	var b strings.Builder
	b.WriteString("(|")
	for _, dn := range dns {
		b.WriteString("(distinguishedName=")
		b.WriteString(goldap.EscapeFilter(dn))
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}
