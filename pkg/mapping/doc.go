// Package mapping translates between local field names and directory
// attribute names.
//
// Every synchronized model has an AttributeMap declared once in
// configuration, for example:
//
//	attribute_mapping:
//	  user:
//	    login: sAMAccountName
//	    email: mail
//
// The map works in both directions. ToDirectory turns local search
// parameters into a directory filter, ToLocal turns a directory attribute bag
// into local field names. Names that are not mapped pass through unchanged,
// so a model with no configuration translates by identity.
//
// A Set holds the maps of all models and builds each one lazily on first use.
// Configurations in which two local fields map onto the same directory
// attribute are rejected with ErrCollision.
package mapping
