package pstore

import "github.com/permastore/pstore/names"

// An Authenticator vouches for the identity of the caller of an operation.
// It is supplied by the hosting environment on every call: a web front end
// derives one from the request's API token, a test passes an Account
// directly. The service never verifies identities itself.
type Authenticator interface {
	IsAuthenticatedAs(account names.Name) bool
}

// Account is the trivial Authenticator for a host that has already
// established the caller's identity: it authenticates exactly that account.
type Account names.Name

// IsAuthenticatedAs implements Authenticator.
func (a Account) IsAuthenticatedAs(account names.Name) bool {
	return names.Name(a) == account
}

func requireAuth(auth Authenticator, account names.Name) error {
	if auth == nil || !auth.IsAuthenticatedAs(account) {
		return ErrNotAuthenticated
	}
	return nil
}
