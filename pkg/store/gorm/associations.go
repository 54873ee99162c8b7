package gorm

import (
	"fmt"

	"github.com/doodlesbykumbi/directory-sync/pkg/model"
)

// associationValue returns the current value of a named association, or nil
// when it holds no records.
func associationValue(row any, name string) (any, error) {
	switch r := row.(type) {
	case *model.User:
		if name == "Groups" {
			return nonEmpty(len(r.Groups), r.Groups), nil
		}
	case *model.Group:
		switch name {
		case "Users":
			return nonEmpty(len(r.Users), r.Users), nil
		case "Subgroups":
			return nonEmpty(len(r.Subgroups), r.Subgroups), nil
		case "ParentGroups":
			return nonEmpty(len(r.ParentGroups), r.ParentGroups), nil
		}
	}
	return nil, fmt.Errorf("%w: association %s on %T", model.ErrUnknownField, name, row)
}

func nonEmpty(n int, v any) any {
	if n == 0 {
		return nil
	}
	return v
}
