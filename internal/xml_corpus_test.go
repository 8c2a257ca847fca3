package internal

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"
)

// TestSanitizeNamespacePrefixCorpus exercises SanitizeNamespacePrefix against
// a small corpus of malformed and adversarial multistatus bodies. Every case
// must return within the per-case timeout: a regex-based fixer risks
// catastrophic backtracking on crafted input, and this function must not.
func TestSanitizeNamespacePrefixCorpus(t *testing.T) {
	cases := []struct {
		name string
		body string
		// wantDecodable is true if the sanitized body should parse cleanly
		// as a Multistatus afterwards.
		wantDecodable bool
	}{
		{
			name: "well-formed, no prefix",
			body: `<?xml version="1.0"?><multistatus xmlns="DAV:"><response><href>/a</href></response></multistatus>`,
			wantDecodable: true,
		},
		{
			name: "declared D prefix",
			body: `<?xml version="1.0"?><D:multistatus xmlns:D="DAV:"><D:response><D:href>/a</D:href></D:response></D:multistatus>`,
			wantDecodable: true,
		},
		{
			name:          "undeclared D prefix",
			body:          `<?xml version="1.0"?><D:multistatus><D:response><D:href>/a</D:href></D:response></D:multistatus>`,
			wantDecodable: true,
		},
		{
			name:          "undeclared lowercase d prefix",
			body:          `<?xml version="1.0"?><d:multistatus><d:response><d:href>/a</d:href></d:response></d:multistatus>`,
			wantDecodable: true,
		},
		{
			name:          "undeclared prefix with leading comment",
			body:          `<!-- note --><d:multistatus><d:response><d:href>/a</d:href></d:response></d:multistatus>`,
			wantDecodable: true,
		},
		{
			name:          "empty body",
			body:          ``,
			wantDecodable: false,
		},
		{
			name:          "unterminated tag",
			body:          `<d:multistatus`,
			wantDecodable: false,
		},
		{
			name:          "pathological repeated angle brackets",
			body:          strings.Repeat("<", 5000) + strings.Repeat(">", 5000),
			wantDecodable: false,
		},
		{
			name:          "pathological attribute-like noise",
			body:          "<d:multistatus " + strings.Repeat(`a="b" `, 5000) + "><d:response><d:href>/a</d:href></d:response></d:multistatus>",
			wantDecodable: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			done := make(chan []byte, 1)
			go func() {
				done <- SanitizeNamespacePrefix([]byte(tc.body))
			}()

			select {
			case out := <-done:
				if tc.wantDecodable {
					var ms Multistatus
					if err := xml.NewDecoder(strings.NewReader(string(out))).Decode(&ms); err != nil {
						t.Errorf("sanitized body did not decode: %v\nbody: %s", err, out)
					}
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("SanitizeNamespacePrefix did not return within 2s - possible pathological backtracking")
			}
		})
	}
}
