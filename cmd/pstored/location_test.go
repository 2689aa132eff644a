package main

import (
	"testing"

	"github.com/permastore/pstore/store"
)

const (
	typeNil = iota
	typeFileSystem
	typeS3
)

func TestSplitBucketPrefix(t *testing.T) {
	var table = []struct {
		location string
		addition string
		bucket   string
		prefix   string
	}{
		{"", "", "", ""},
		{"rel/path", "", "rel", "path/"},
		{"/abs/path/", "", "abs", "path/"},
		{"/bucket", "", "bucket", ""},
		{"/bucket", "more", "bucket", "more/"},
		{"/bucket/prefix/", "", "bucket", "prefix/"},
		{"/bucket/prefix", "", "bucket", "prefix/"},
		{"/bucket/prefix", "more", "bucket", "prefix/more/"},
		{"/bucket/prefix/", "more", "bucket", "prefix/more/"},
	}

	for _, row := range table {
		t.Log(row.location, row.addition)
		bucket, prefix := splitBucketPrefix(row.location, row.addition)
		if bucket != row.bucket {
			t.Error("expected bucket", row.bucket, "received", bucket)
		}
		if prefix != row.prefix {
			t.Error("expected prefix", row.prefix, "received", prefix)
		}
	}
}

func TestParseLocation(t *testing.T) {
	var table = []struct {
		location string
		addition string
		typ      int
		bucket   string
		prefix   string
	}{
		{"", "", typeNil, "", ""},
		{"rel/path", "", typeFileSystem, "", ""},
		{"/abs/path/", "", typeFileSystem, "", ""},
		{"file:/rel/path", "", typeFileSystem, "", ""},
		{"file:rel/path", "", typeFileSystem, "", ""},
		{"s3:/bucket", "", typeS3, "bucket", ""},
		{"s3:/bucket", "more", typeS3, "bucket", "more/"},
		{"s3://localhost:9000/bucket/prefix/", "", typeS3, "bucket", "prefix/"},
		{"s3://localhost:9000/bucket/prefix/", "more", typeS3, "bucket", "prefix/more/"},
		{"s3:", "", typeNil, "", ""}, // no bucket name
	}

	for _, row := range table {
		t.Log(row.location, row.addition)
		result := parselocation(row.location, row.addition)
		switch x := result.(type) {
		case nil:
			if row.typ != typeNil {
				t.Errorf("unexpected received %#v", result)
			}
		case *store.FileSystem:
			if row.typ != typeFileSystem {
				t.Errorf("unexpected received %#v", result)
			}
		case *store.S3:
			if row.typ != typeS3 {
				t.Errorf("unexpected received %#v", result)
			}
			if x.Bucket != row.bucket {
				t.Error("expected bucket", row.bucket, "received", x.Bucket)
			}
			if x.Prefix != row.prefix {
				t.Error("expected prefix", row.prefix, "received", x.Prefix)
			}
		}
	}
}

func TestLocalPath(t *testing.T) {
	var table = []struct {
		location string
		path     string
	}{
		{"", ""},
		{"/var/pstore", "/var/pstore"},
		{"file:/var/pstore", "/var/pstore"},
		{"s3://localhost:9000/bucket", ""},
	}
	for _, row := range table {
		if p := localpath(row.location); p != row.path {
			t.Errorf("localpath(%q) = %q, expected %q", row.location, p, row.path)
		}
	}
}
