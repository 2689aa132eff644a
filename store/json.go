package store

import (
	"encoding/json"
	"log"
	"strings"
)

// A JSONStore wraps a Store and saves its values as JSON documents instead
// of raw streams. Since it deals with interface{} values rather than
// readers and writers, a JSONStore does not itself satisfy Store.
type JSONStore struct {
	Store
}

// The staging key a document is written to before it replaces the live
// one. '#' is outside the key alphabet of every caller, so the suffix can
// never collide with a real document key.
const stagingSuffix = "#new"

// NewJSON creates a JSONStore using the provided store for its storage.
func NewJSON(s Store) JSONStore {
	return JSONStore{s}
}

// Open reads the document with the given key and unmarshals it into value.
// If the key is missing but a staged copy was left behind by an
// interrupted Save, the staged copy is read instead.
func (js JSONStore) Open(key string, value interface{}) error {
	err := js.read(key, value)
	if err != nil {
		if err2 := js.read(key+stagingSuffix, value); err2 == nil {
			return nil
		}
	}
	return err
}

// Save stores value under the given key, replacing any previous value. The
// document goes to the staging key first, so at every moment either the
// live key or the staging key holds a complete copy.
func (js JSONStore) Save(key string, value interface{}) error {
	staging := key + stagingSuffix
	if err := js.Store.Delete(staging); err != nil {
		return err
	}
	if err := js.write(staging, value); err != nil {
		return err
	}
	if err := js.Store.Delete(key); err != nil {
		return err
	}
	if err := js.write(key, value); err != nil {
		return err
	}
	if err := js.Store.Delete(staging); err != nil {
		log.Println(staging, err)
	}
	return nil
}

// Delete removes the document and any staged copy of it.
func (js JSONStore) Delete(key string) error {
	if err := js.Store.Delete(key + stagingSuffix); err != nil {
		return err
	}
	return js.Store.Delete(key)
}

// ListPrefix returns the document keys beginning with prefix. A staged
// copy left by an interrupted Save lists under its document key.
func (js JSONStore) ListPrefix(prefix string) ([]string, error) {
	keys, err := js.Store.ListPrefix(prefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	result := keys[:0]
	for _, key := range keys {
		key = strings.TrimSuffix(key, stagingSuffix)
		if !seen[key] {
			seen[key] = true
			result = append(result, key)
		}
	}
	return result, nil
}

func (js JSONStore) read(key string, value interface{}) error {
	r, _, err := js.Store.Open(key)
	if err != nil {
		return err
	}
	err = json.NewDecoder(NewReader(r)).Decode(value)
	err2 := r.Close()
	if err == nil {
		err = err2
	} else if err2 != nil {
		log.Println(key, err2)
	}
	return err
}

func (js JSONStore) write(key string, value interface{}) error {
	w, err := js.Store.Create(key)
	if err != nil {
		return err
	}
	err = json.NewEncoder(w).Encode(value)
	err2 := w.Close()
	if err == nil {
		err = err2
	} else if err2 != nil {
		log.Println(key, err2)
	}
	return err
}
