package svd

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Access is a register or field access mode.
// The zero value means "not specified".
type Access string

// Access modes as spelled in SVD documents.
const (
	ReadOnly      Access = "read-only"
	WriteOnly     Access = "write-only"
	ReadWrite     Access = "read-write"
	WriteOnce     Access = "writeOnce"
	ReadWriteOnce Access = "read-writeOnce"
)

// ParseAccess validates s as an access mode. The empty string is accepted
// and means unset.
func ParseAccess(s string) (Access, error) {
	a := Access(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown access mode %q", s)
	}
	return a, nil
}

// Valid reports whether a is unset or one of the known modes.
func (a Access) Valid() bool {
	switch a {
	case "", ReadOnly, WriteOnly, ReadWrite, WriteOnce, ReadWriteOnce:
		return true
	}
	return false
}

// Or returns a, or fallback when a is unset.
func (a Access) Or(fallback Access) Access {
	if a == "" {
		return fallback
	}
	return a
}

// Readable reports whether a getter is generated for this mode.
func (a Access) Readable() bool {
	return a != WriteOnly && a != WriteOnce
}

// Writable reports whether a setter is generated for this mode.
func (a Access) Writable() bool {
	return a != ReadOnly
}

// UnmarshalYAML validates the access mode while decoding.
func (a *Access) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := ParseAccess(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
