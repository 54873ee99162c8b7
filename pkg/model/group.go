package model

import (
	"fmt"
	"time"

	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
)

var (
	_ reconcile.Record = (*Group)(nil)
	_ reconcile.Schema = (*Group)(nil)
)

// GroupModel is the registered model name of Group.
const GroupModel = "group"

var groupAssociations = map[string]string{
	"users":         "Users",
	"subgroups":     "Subgroups",
	"parent_groups": "ParentGroups",
}

// Group is a group synchronized from a directory group object
type Group struct {
	ID           uint      `gorm:"column:id;primaryKey"`
	ObjectGUID   string    `gorm:"column:object_guid;uniqueIndex;not null"`
	Name         *string   `gorm:"column:name"`
	Description  *string   `gorm:"column:description"`
	DN           *string   `gorm:"column:dn"`
	Users        []*User   `gorm:"many2many:group_users;"`
	Subgroups    []*Group  `gorm:"many2many:group_subgroups;joinForeignKey:ParentID;joinReferences:ChildID"`
	ParentGroups []*Group  `gorm:"many2many:group_subgroups;joinForeignKey:ChildID;joinReferences:ParentID"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`

	changed touched `gorm:"-"`
}

func (Group) TableName() string {
	return "groups"
}

func (g *Group) ModelName() string {
	return GroupModel
}

func (g *Group) ExternalID() string {
	return g.ObjectGUID
}

func (g *Group) HasField(name string) bool {
	_, ok := g.Field(name)
	return ok
}

func (g *Group) HasRelation(field string) bool {
	_, ok := groupAssociations[field]
	return ok
}

func (g *Group) Field(name string) (any, bool) {
	switch name {
	case "object_guid":
		return g.ObjectGUID, true
	case "name":
		return deref(g.Name), true
	case "description":
		return deref(g.Description), true
	case "dn":
		return deref(g.DN), true
	}
	return nil, false
}

func (g *Group) SetField(name string, value any) error {
	switch name {
	case "object_guid":
		if v := stringValue(value); v != nil {
			g.ObjectGUID = *v
		}
	case "name":
		g.Name = stringValue(value)
	case "description":
		g.Description = stringValue(value)
	case "dn":
		g.DN = stringValue(value)
	default:
		return fmt.Errorf("%w: group.%s", ErrUnknownField, name)
	}
	return nil
}

func (g *Group) SetRelation(field string, refs []reconcile.Record) error {
	switch field {
	case "users":
		users, err := asUsers(refs)
		if err != nil {
			return err
		}
		g.Users = users
	case "subgroups":
		groups, err := asGroups(refs)
		if err != nil {
			return err
		}
		g.Subgroups = groups
	case "parent_groups":
		groups, err := asGroups(refs)
		if err != nil {
			return err
		}
		g.ParentGroups = groups
	default:
		return fmt.Errorf("%w: group.%s", ErrUnknownField, field)
	}
	g.changed.mark(field)
	return nil
}

// ChangedAssociations returns the association names overwritten since the
// record was loaded or last saved.
func (g *Group) ChangedAssociations() []string {
	return g.changed.names(groupAssociations)
}

// ResetChanges forgets overwritten associations.
func (g *Group) ResetChanges() {
	g.changed = nil
}

func asGroups(refs []reconcile.Record) ([]*Group, error) {
	groups := make([]*Group, 0, len(refs))
	for _, ref := range refs {
		g, ok := ref.(*Group)
		if !ok {
			return nil, fmt.Errorf("expected a group, got %s %q", ref.ModelName(), ref.ExternalID())
		}
		groups = append(groups, g)
	}
	return groups, nil
}
