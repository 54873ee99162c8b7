package ldap

import (
	"fmt"
	"strings"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
)

// guidFromBytes decodes objectGUID as Active Directory stores it: the first
// three fields little-endian, the last eight bytes in order.
func guidFromBytes(raw []byte) (uuid.UUID, error) {
	var id uuid.UUID
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid objectGUID length %d", len(raw))
	}
	copy(id[:], raw)
	swapGUIDFields(id[:])
	return id, nil
}

// guidBytes is the inverse of guidFromBytes.
func guidBytes(id uuid.UUID) []byte {
	raw := make([]byte, len(id))
	copy(raw, id[:])
	swapGUIDFields(raw)
	return raw
}

func swapGUIDFields(b []byte) {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5] = b[5], b[4]
	b[6], b[7] = b[7], b[6]
}

// externalID reads the identifier attribute of an entry. objectGUID is
// decoded from its 16 raw bytes.
func externalID(entry *goldap.Entry, idAttribute string) string {
	if strings.EqualFold(idAttribute, directory.DefaultIDAttribute) {
		raw := entry.GetRawAttributeValue(idAttribute)
		if len(raw) == 0 {
			raw = rawAttributeFold(entry, idAttribute)
		}
		id, err := guidFromBytes(raw)
		if err != nil {
			return ""
		}
		return id.String()
	}
	if v := entry.GetAttributeValue(idAttribute); v != "" {
		return v
	}
	for _, attr := range entry.Attributes {
		if strings.EqualFold(attr.Name, idAttribute) && len(attr.Values) > 0 {
			return attr.Values[0]
		}
	}
	return ""
}

func rawAttributeFold(entry *goldap.Entry, name string) []byte {
	for _, attr := range entry.Attributes {
		if strings.EqualFold(attr.Name, name) && len(attr.ByteValues) > 0 {
			return attr.ByteValues[0]
		}
	}
	return nil
}

// toObject converts an entry. Relationship attributes stay sequences even
// with a single value; other single-valued attributes become strings.
func toObject(entry *goldap.Entry, id string, cfg directory.Config) *directory.Object {
	attrs := make(map[string]any, len(entry.Attributes))
	for _, attr := range entry.Attributes {
		switch {
		case strings.EqualFold(attr.Name, cfg.IDAttribute):
			attrs[attr.Name] = id
		case isRelationship(attr.Name, cfg):
			values := make([]string, len(attr.Values))
			copy(values, attr.Values)
			attrs[attr.Name] = values
		case len(attr.Values) == 1:
			attrs[attr.Name] = attr.Values[0]
		default:
			values := make([]string, len(attr.Values))
			copy(values, attr.Values)
			attrs[attr.Name] = values
		}
	}
	return &directory.Object{ExternalID: id, DN: entry.DN, Attributes: attrs}
}

func isRelationship(name string, cfg directory.Config) bool {
	return strings.EqualFold(name, cfg.MemberAttribute) || strings.EqualFold(name, cfg.MemberOfAttribute)
}
