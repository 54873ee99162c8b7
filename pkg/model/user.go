package model

import (
	"fmt"
	"time"

	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
)

var (
	_ reconcile.Record = (*User)(nil)
	_ reconcile.Schema = (*User)(nil)
)

// UserModel is the registered model name of User.
const UserModel = "user"

var userAssociations = map[string]string{
	"groups": "Groups",
}

// User is an account synchronized from a directory user object
type User struct {
	ID          uint      `gorm:"column:id;primaryKey"`
	ObjectGUID  string    `gorm:"column:object_guid;uniqueIndex;not null"`
	Login       *string   `gorm:"column:login"`
	Email       *string   `gorm:"column:email"`
	FirstName   *string   `gorm:"column:first_name"`
	LastName    *string   `gorm:"column:last_name"`
	DisplayName *string   `gorm:"column:display_name"`
	DN          *string   `gorm:"column:dn"`
	Groups      []*Group  `gorm:"many2many:group_users;"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`

	changed touched `gorm:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) ModelName() string {
	return UserModel
}

func (u *User) ExternalID() string {
	return u.ObjectGUID
}

func (u *User) HasField(name string) bool {
	_, ok := u.Field(name)
	return ok
}

func (u *User) HasRelation(field string) bool {
	_, ok := userAssociations[field]
	return ok
}

func (u *User) Field(name string) (any, bool) {
	switch name {
	case "object_guid":
		return u.ObjectGUID, true
	case "login":
		return deref(u.Login), true
	case "email":
		return deref(u.Email), true
	case "first_name":
		return deref(u.FirstName), true
	case "last_name":
		return deref(u.LastName), true
	case "display_name":
		return deref(u.DisplayName), true
	case "dn":
		return deref(u.DN), true
	}
	return nil, false
}

func (u *User) SetField(name string, value any) error {
	switch name {
	case "object_guid":
		if v := stringValue(value); v != nil {
			u.ObjectGUID = *v
		}
	case "login":
		u.Login = stringValue(value)
	case "email":
		u.Email = stringValue(value)
	case "first_name":
		u.FirstName = stringValue(value)
	case "last_name":
		u.LastName = stringValue(value)
	case "display_name":
		u.DisplayName = stringValue(value)
	case "dn":
		u.DN = stringValue(value)
	default:
		return fmt.Errorf("%w: user.%s", ErrUnknownField, name)
	}
	return nil
}

func (u *User) SetRelation(field string, refs []reconcile.Record) error {
	if field != "groups" {
		return fmt.Errorf("%w: user.%s", ErrUnknownField, field)
	}
	groups, err := asGroups(refs)
	if err != nil {
		return err
	}
	u.Groups = groups
	u.changed.mark(field)
	return nil
}

// ChangedAssociations returns the association names overwritten since the
// record was loaded or last saved.
func (u *User) ChangedAssociations() []string {
	return u.changed.names(userAssociations)
}

// ResetChanges forgets overwritten associations.
func (u *User) ResetChanges() {
	u.changed = nil
}

func asUsers(refs []reconcile.Record) ([]*User, error) {
	users := make([]*User, 0, len(refs))
	for _, ref := range refs {
		u, ok := ref.(*User)
		if !ok {
			return nil, fmt.Errorf("expected a user, got %s %q", ref.ModelName(), ref.ExternalID())
		}
		users = append(users, u)
	}
	return users, nil
}
