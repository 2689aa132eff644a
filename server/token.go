package server

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// A TokenDecoder validates and decodes the API tokens presented to the web
// API. An invalid token yields the user "" with RoleUnknown. The error is
// only for lookup failures which leave the token's status unknown.
type TokenDecoder interface {
	TokenDecode(token string) (user string, role Role, err error)
}

// Role is the access level granted to a token. Mutating routes need
// RoleWrite; metadata reads need RoleMDOnly.
type Role int

const (
	RoleUnknown Role = iota
	RoleMDOnly
	RoleRead
	RoleWrite
	RoleAdmin
)

func atoRole(s string) Role {
	switch strings.ToLower(s) {
	case "mdonly":
		return RoleMDOnly
	case "read":
		return RoleRead
	case "write":
		return RoleWrite
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// NewNobodyDecoder creates a TokenDecoder granting every token the user
// "nobody" with the Admin role. It is the default when no token file is
// configured, for development only.
func NewNobodyDecoder() TokenDecoder {
	return nobodyDecoder{}
}

type nobodyDecoder struct{}

func (nobodyDecoder) TokenDecode(token string) (string, Role, error) {
	return "nobody", RoleAdmin, nil
}

// A list decoder is backed by a fixed list of users read from r when it is
// created. The reader holds one entry per line, of the form
//
//	<user name>  <role>  <token>
//
// with fields separated by whitespace. The user name must be a valid
// account name; the token user is the owner identity for every operation
// it performs. The role is one of "MDOnly", "Read", "Write", "Admin"
// (case insensitive). Blank lines and lines starting with '#' are skipped.
func NewListDecoder(r io.Reader) (TokenDecoder, error) {
	users := make(map[string]userEntry)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		pieces := strings.Fields(scanner.Text())
		if len(pieces) == 0 || pieces[0][0] == '#' {
			continue
		}
		if len(pieces) != 3 {
			// wrong number of columns
			continue
		}
		users[pieces[2]] = userEntry{
			user: pieces[0],
			role: atoRole(pieces[1]),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return listDecoder(users), nil
}

// NewListDecoderFile reads the contents of the given file into a list
// decoder. The file has the format NewListDecoder expects.
func NewListDecoderFile(fname string) (TokenDecoder, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewListDecoder(f)
}

// NewListDecoderString passes the given string into a list decoder.
func NewListDecoderString(data string) (TokenDecoder, error) {
	return NewListDecoder(strings.NewReader(data))
}

type userEntry struct {
	user string
	role Role
}

type listDecoder map[string]userEntry

func (ld listDecoder) TokenDecode(token string) (string, Role, error) {
	e, ok := ld[token]
	if !ok {
		return "", RoleUnknown, nil
	}
	return e.user, e.role, nil
}
