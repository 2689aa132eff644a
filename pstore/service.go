/*
Package pstore implements the PermaStore file service: named binary objects
uploaded as a sequence of contiguous, independently sized chunks ("nodes").

An owner account claims a name, uploads nodes 0, 1, 2, ... in order (any
node at or below the current top may also be overwritten), flags the file
published when the upload is complete, and may finally make the file
immutable, which revokes ownership forever.

A file moves through the states

	NonExistent -> Draft <-> Published -> Immutable

where del returns any state to NonExistent. Every operation authenticates
its caller against the stored owner through an injected Authenticator;
create additionally consults the name Authority.
*/
package pstore

import (
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/permastore/pstore/names"
	"github.com/permastore/pstore/store"
)

// Service holds every file and its nodes, persisted through a store.Store.
// All operations are synchronous and atomic: a failed call makes no
// observable change.
type Service struct {
	meta      store.JSONStore // file records, under the "md" prefix
	nstore    store.Store     // node payloads, under the "n" prefix
	authority Authority
	m         sync.RWMutex // protects files
	files     map[names.Name]*fileRecord
}

const (
	// The two kinds of information in the store are distinguished by key
	// prefix: file records start with "md", node payloads with "n". The
	// records are persisted so state survives server restarts.
	fileKeyPrefix = "md"
	nodeKeyPrefix = "n"
)

// fileRecord is the per-name singleton record. Top is both the count of
// contiguous nodes present and the id of the first empty slot; the node
// ids stored for a file are always exactly [0, Top).
type fileRecord struct {
	Name      names.Name
	Owner     Owner
	Top       uint64
	Published bool
	Nodes     []nodeInfo // one entry per node, ids [0, Top)
	Created   time.Time
	Modified  time.Time
}

// nodeInfo describes one node of a file. Gen counts overwrites of the id;
// it is part of the payload's store key, so a replacement payload is staged
// under a brand new key and the one the committed record references stays
// untouched until the new record is saved.
type nodeInfo struct {
	Size int64
	Gen  uint64
}

func (f *fileRecord) clone() *fileRecord {
	nf := *f
	nf.Nodes = append([]nodeInfo(nil), f.Nodes...)
	return &nf
}

// Info is the public view of a file record.
type Info struct {
	Name      names.Name
	Owner     Owner
	Top       uint64
	Published bool
	Size      int64 // total payload bytes over all nodes
	Created   time.Time
	Modified  time.Time
}

// New creates a Service persisting into s. Call Load before using it.
func New(s store.Store, authority Authority) *Service {
	return &Service{
		meta:      store.NewJSON(store.NewWithPrefix(s, fileKeyPrefix)),
		nstore:    store.NewWithPrefix(s, nodeKeyPrefix),
		authority: authority,
		files:     make(map[names.Name]*fileRecord),
	}
}

// Load initializes the in-memory state from the records in the store.
func (s *Service) Load() error {
	keys, err := s.meta.ListPrefix("")
	if err != nil {
		return err
	}
	s.m.Lock()
	defer s.m.Unlock()
	for _, key := range keys {
		f := new(fileRecord)
		if err := s.meta.Open(key, f); err != nil {
			return errors.Wrap(err, key)
		}
		s.files[f.Name] = f
	}
	return nil
}

// Create claims a new file name for owner. The name must be unclaimed and
// the Authority must allow the claim. The new file is an empty draft.
func (s *Service) Create(auth Authenticator, owner, filename names.Name) error {
	if err := requireAuth(auth, owner); err != nil {
		return err
	}
	if filename.Empty() {
		return ErrEmptyName
	}
	s.m.Lock()
	defer s.m.Unlock()
	if _, ok := s.files[filename]; ok {
		return ErrFileExists
	}
	if err := s.authority.MayClaim(filename, owner); err != nil {
		return err
	}
	now := time.Now()
	f := &fileRecord{
		Name:    filename,
		Owner:   OwnerOf(owner),
		Created: now,
	}
	if err := s.save(f); err != nil {
		return err
	}
	s.files[filename] = f
	return nil
}

// Reset returns the file to an empty draft and removes all of its nodes.
func (s *Service) Reset(auth Authenticator, owner, filename names.Name) error {
	s.m.Lock()
	defer s.m.Unlock()
	f, err := s.findOwned(auth, owner, filename)
	if err != nil {
		return err
	}
	oldnodes := f.Nodes
	nf := f.clone()
	nf.Top = 0
	nf.Published = false
	nf.Nodes = nil
	if err := s.save(nf); err != nil {
		return err
	}
	s.files[filename] = nf
	s.clearNodes(filename, oldnodes)
	return nil
}

// Delete removes the file record and all of its nodes. The name becomes
// claimable again.
func (s *Service) Delete(auth Authenticator, owner, filename names.Name) error {
	s.m.Lock()
	defer s.m.Unlock()
	f, err := s.findOwned(auth, owner, filename)
	if err != nil {
		return err
	}
	if err := s.meta.Delete(filename.String()); err != nil {
		return err
	}
	delete(s.files, filename)
	s.clearNodes(filename, f.Nodes)
	return nil
}

// SetPublished sets the published flag and nothing else. Publishing marks
// the upload complete; unpublishing returns the file to a draft.
func (s *Service) SetPublished(auth Authenticator, owner, filename names.Name, published bool) error {
	s.m.Lock()
	defer s.m.Unlock()
	f, err := s.findOwned(auth, owner, filename)
	if err != nil {
		return err
	}
	nf := f.clone()
	nf.Published = published
	if err := s.save(nf); err != nil {
		return err
	}
	s.files[filename] = nf
	return nil
}

// SetImmutable revokes ownership of a published file. The transition is
// one-way: afterwards every owner-authenticated operation on the name
// fails with ErrNotOwner, forever.
func (s *Service) SetImmutable(auth Authenticator, owner, filename names.Name) error {
	s.m.Lock()
	defer s.m.Unlock()
	f, err := s.findOwned(auth, owner, filename)
	if err != nil {
		return err
	}
	if !f.Published {
		return ErrNotPublished
	}
	nf := f.clone()
	nf.Owner = NoOwner
	if err := s.save(nf); err != nil {
		return err
	}
	s.files[filename] = nf
	return nil
}

// SetNode assigns data to the node with the given id. The id may be at
// most Top: id == Top appends a new node and advances Top by one, a lower
// id overwrites that node in place. Either way the file drops back to an
// unpublished draft. Empty data is rejected; remove nodes with DeleteNode
// or Reset instead.
func (s *Service) SetNode(auth Authenticator, owner, filename names.Name, id uint64, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyData
	}
	s.m.Lock()
	defer s.m.Unlock()
	f, err := s.findOwned(auth, owner, filename)
	if err != nil {
		return err
	}
	if id > f.Top {
		return ErrPastTop
	}
	nf := f.clone()
	nf.Published = false
	if id == nf.Top {
		nf.Top++
		nf.Nodes = append(nf.Nodes, nodeInfo{Size: int64(len(data))})
	} else {
		nf.Nodes[id] = nodeInfo{Size: int64(len(data)), Gen: nf.Nodes[id].Gen + 1}
	}
	// the new generation key is not referenced by the committed record, so
	// the payload the record points at stays intact until the save lands
	key := nodeKey(filename, id, nf.Nodes[id].Gen)
	if err := s.writeNode(key, data); err != nil {
		return err
	}
	if err := s.save(nf); err != nil {
		// the staged payload is unreferenced, drop it
		if err2 := s.nstore.Delete(key); err2 != nil {
			log.Println("unstage node", key, err2)
		}
		return err
	}
	s.files[filename] = nf
	if id < f.Top {
		old := nodeKey(filename, id, f.Nodes[id].Gen)
		if err := s.nstore.Delete(old); err != nil {
			log.Println("replace node", old, err)
		}
	}
	return nil
}

// DeleteNode pops the top node off the file: Top drops by one and the node
// that held the old highest id is removed. The file drops back to an
// unpublished draft.
func (s *Service) DeleteNode(auth Authenticator, owner, filename names.Name) error {
	s.m.Lock()
	defer s.m.Unlock()
	f, err := s.findOwned(auth, owner, filename)
	if err != nil {
		return err
	}
	if f.Top == 0 {
		return ErrEmptyFile
	}
	nf := f.clone()
	nf.Top--
	nf.Nodes = nf.Nodes[:nf.Top]
	nf.Published = false
	if err := s.save(nf); err != nil {
		return err
	}
	s.files[filename] = nf
	// the record no longer references the payload, so a failure here
	// leaves garbage in the store but consistent state
	old := nodeKey(filename, nf.Top, f.Nodes[nf.Top].Gen)
	if err := s.nstore.Delete(old); err != nil {
		log.Println("delete node", old, err)
	}
	return nil
}

// findOwned authenticates the caller as owner and returns the file record.
// Must hold at least a read lock on s.
func (s *Service) findOwned(auth Authenticator, owner, filename names.Name) (*fileRecord, error) {
	if err := requireAuth(auth, owner); err != nil {
		return nil, err
	}
	f := s.files[filename]
	if f == nil {
		return nil, ErrFileNotFound
	}
	if !f.Owner.Is(owner) {
		return nil, ErrNotOwner
	}
	return f, nil
}

// save persists the record. The in-memory map must only be updated after
// save succeeds, so failed operations leave no observable change.
func (s *Service) save(f *fileRecord) error {
	f.Modified = time.Now()
	return s.meta.Save(f.Name.String(), f)
}

// writeNode stages data under key. The key is never one a committed record
// references, though a crashed earlier attempt may have left bytes behind
// it, so any existing value is cleared first.
func (s *Service) writeNode(key string, data []byte) error {
	if err := s.nstore.Delete(key); err != nil {
		return errors.Wrap(err, "stage node")
	}
	w, err := s.nstore.Create(key)
	if err != nil {
		return errors.Wrap(err, "create node")
	}
	_, err = w.Write(data)
	err2 := w.Close()
	if err == nil {
		err = err2
	}
	return errors.Wrap(err, "write node")
}

// clearNodes removes the given node payloads. The record referencing them
// is already gone, so failures only leave garbage behind.
func (s *Service) clearNodes(filename names.Name, nodes []nodeInfo) {
	for id, n := range nodes {
		if err := s.nstore.Delete(nodeKey(filename, uint64(id), n.Gen)); err != nil {
			log.Println("clear nodes", filename, id, err)
		}
	}
}

func nodeKey(filename names.Name, id, gen uint64) string {
	return fmt.Sprintf("%s+%06d.%d", filename, id, gen)
}

// List returns the names of all files, in alphabetical order.
func (s *Service) List() []names.Name {
	s.m.RLock()
	result := make([]names.Name, 0, len(s.files))
	for n := range s.files {
		result = append(result, n)
	}
	s.m.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return result[i].String() < result[j].String()
	})
	return result
}

// Stat returns the metadata of a file.
func (s *Service) Stat(filename names.Name) (Info, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	f := s.files[filename]
	if f == nil {
		return Info{}, ErrFileNotFound
	}
	var size int64
	for _, n := range f.Nodes {
		size += n.Size
	}
	return Info{
		Name:      f.Name,
		Owner:     f.Owner,
		Top:       f.Top,
		Published: f.Published,
		Size:      size,
		Created:   f.Created,
		Modified:  f.Modified,
	}, nil
}

// Node returns the payload of one node of a file.
func (s *Service) Node(filename names.Name, id uint64) ([]byte, error) {
	s.m.RLock()
	f := s.files[filename]
	var key string
	if f != nil && id < f.Top {
		key = nodeKey(filename, id, f.Nodes[id].Gen)
	}
	s.m.RUnlock()
	if f == nil {
		return nil, ErrFileNotFound
	}
	if key == "" {
		return nil, ErrNoSuchNode
	}
	r, _, err := s.nstore.Open(key)
	if err != nil {
		return nil, errors.Wrap(err, "open node")
	}
	defer r.Close()
	return io.ReadAll(store.NewReader(r))
}

// Open returns a reader over the file's whole content, the nodes
// concatenated in id order.
func (s *Service) Open(filename names.Name) (io.ReadCloser, error) {
	s.m.RLock()
	f := s.files[filename]
	var keys []string
	if f != nil {
		keys = make([]string, len(f.Nodes))
		for id, n := range f.Nodes {
			keys[id] = nodeKey(filename, uint64(id), n.Gen)
		}
	}
	s.m.RUnlock()
	if f == nil {
		return nil, ErrFileNotFound
	}
	return &nodeReader{s: s.nstore, keys: keys}, nil
}
