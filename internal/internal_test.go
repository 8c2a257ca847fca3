package internal_test

import (
	"net/http"
	"testing"

	"github.com/caldav-core/caldav/internal"
)

func TestHTTPErrorIs(t *testing.T) {
	err := internal.HTTPErrorf(http.StatusPreconditionFailed, "stale etag")
	if !internal.IsPreconditionFailed(err) {
		t.Error("IsPreconditionFailed should recognize a 412 HTTPError")
	}
	if internal.IsNotFound(err) {
		t.Error("a 412 is not a 404")
	}

	notFound := internal.HTTPErrorf(http.StatusNotFound, "gone")
	if !internal.IsNotFound(notFound) {
		t.Error("IsNotFound should recognize a 404 HTTPError")
	}
}

func TestDepthRoundTrip(t *testing.T) {
	cases := map[string]internal.Depth{
		"0":        internal.DepthZero,
		"1":        internal.DepthOne,
		"infinity": internal.DepthInfinity,
	}
	for s, want := range cases {
		got, err := internal.ParseDepth(s)
		if err != nil {
			t.Fatalf("ParseDepth(%q): %v", s, err)
		}
		if got != want {
			t.Fatalf("ParseDepth(%q) = %v, want %v", s, got, want)
		}
		if got.String() != s {
			t.Fatalf("Depth(%v).String() = %q, want %q", got, got.String(), s)
		}
	}

	if _, err := internal.ParseDepth("bogus"); err == nil {
		t.Fatal("ParseDepth should reject an invalid value")
	}
}
