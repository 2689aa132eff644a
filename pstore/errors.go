package pstore

import "errors"

// The errors a file operation can return. Every check happens before any
// state is touched, so an operation returning one of these has made no
// observable change.
var (
	// ErrFileExists means create was called for a name already claimed.
	ErrFileExists = errors.New("file exists")

	// ErrFileNotFound means no file record exists for the name.
	ErrFileNotFound = errors.New("file does not exist")

	// ErrNotOwner means the caller is not the file's current owner. An
	// immutable file returns this to everyone, forever.
	ErrNotOwner = errors.New("not file owner")

	// ErrNotAuthenticated means the hosting environment did not vouch for
	// the caller acting as the named owner account.
	ErrNotAuthenticated = errors.New("caller not authenticated as owner")

	// ErrNotPublished means setimmutable was called on an unpublished file.
	ErrNotPublished = errors.New("file not published")

	// ErrEmptyName means the file name has no characters.
	ErrEmptyName = errors.New("empty file name")

	// ErrEmptyData means setnode was called with an empty payload. Nodes
	// are never stored empty; use delnode or reset instead.
	ErrEmptyData = errors.New("empty node data")

	// ErrPastTop means the node id would leave a gap above the top node.
	ErrPastTop = errors.New("node id past top")

	// ErrEmptyFile means delnode was called on a file with no nodes.
	ErrEmptyFile = errors.New("file has no nodes")

	// ErrNoSuchNode means a read asked for a node id at or above top.
	ErrNoSuchNode = errors.New("no such node")

	// ErrSuffixNotSold means the name's suffix auction is still open.
	ErrSuffixNotSold = errors.New("suffix not sold")

	// ErrSuffixNotOwned means the name's suffix was sold to someone else.
	ErrSuffixNotOwned = errors.New("suffix not owned")

	// ErrSuffixRequired means only the account matching the suffix may
	// claim the name, since the suffix was never auctioned.
	ErrSuffixRequired = errors.New("only the suffix account may claim this name")
)
