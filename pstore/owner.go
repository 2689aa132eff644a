package pstore

import "github.com/permastore/pstore/names"

// Owner records who controls a file: either an account, or no one at all
// once the file has been made immutable. The revoked state is a distinct
// tag, not a reserved account value, so it can never collide with a real
// account and no Authenticator can match it.
type Owner struct {
	Account names.Name `json:"account,omitempty"`
	Revoked bool       `json:"revoked,omitempty"`
}

// NoOwner is the owner of an immutable file. Is returns false for every
// account, which is what makes the immutable transition permanent.
var NoOwner = Owner{Revoked: true}

// OwnerOf returns the Owner for the given account.
func OwnerOf(account names.Name) Owner {
	return Owner{Account: account}
}

// Is reports whether the given account currently owns the file.
func (o Owner) Is(account names.Name) bool {
	return !o.Revoked && o.Account == account
}

// String renders the owner for logs and templates.
func (o Owner) String() string {
	if o.Revoked {
		return "(immutable)"
	}
	return o.Account.String()
}
