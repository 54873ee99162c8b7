// Package ldap implements directory.Gateway over LDAP for Active Directory
// style servers.
//
// Searches are paged. Object classes are turned into objectClass filters,
// either the built-in ones for user and group or those configured under
// class_filters. Filter values are escaped; values for the objectGUID
// attribute are parsed as UUIDs and sent as binary escapes.
//
// Active Directory stores membership as distinguished names. The gateway
// rewrites the member and memberOf values of every result into the external
// identifiers of the referenced objects, using one extra search per batch of
// unknown DNs. Resolved DNs are kept in an expiring LRU cache. When caching
// is enabled, whole search results are cached as well.
package ldap
