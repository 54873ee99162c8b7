// Package model defines the database models synchronized from the directory.
//
// Both models implement reconcile.Record, which is how they declare support
// for directory sync. Field names are the local names used in attribute
// mapping configuration.
//
// # Models
//
//   - User: fields object_guid, login, email, first_name, last_name,
//     display_name, dn; relationship groups
//   - Group: fields object_guid, name, description, dn; relationships
//     users, subgroups, parent_groups
//
// # Database Schema
//
//   - users, groups: one row per directory object, unique on object_guid
//   - group_users: group membership of users
//   - group_subgroups: nesting of groups (parent_id contains child_id)
//
// Directory attributes that are absent are stored as NULL. Relationship
// fields overwritten during reconciliation are remembered so that a store
// only rewrites the join tables that actually changed.
package model
