package internal

import "bytes"

// SanitizeNamespacePrefix repairs a common multistatus malformation seen in
// the wild: a response using a bare "D:" or "d:" prefix on DAV: elements
// without ever declaring it via an xmlns:D="DAV:" attribute, which
// encoding/xml cannot resolve (it returns "xml: unbound prefix"). This
// rewrites the document's root start tag to declare the prefix, leaving an
// already-well-formed document untouched.
//
// It works by plain byte scanning (bytes.IndexByte/Index/Contains/HasPrefix), not regexp:
// a regex permissive enough to find an XML start tag risks catastrophic
// backtracking on adversarial input, and a multistatus body is untrusted
// server response data.
func SanitizeNamespacePrefix(body []byte) []byte {
	prefix := detectUndeclaredPrefix(body)
	if prefix == "" {
		return body
	}
	return declarePrefix(body, prefix)
}

// detectUndeclaredPrefix returns the bare namespace prefix ("D" or "d") used
// on the document's root element if that element's opening tag doesn't also
// declare it, or "" if the document looks fine as-is.
func detectUndeclaredPrefix(body []byte) string {
	tagStart, tagEnd, name, ok := firstElement(body)
	if !ok {
		return ""
	}

	colon := bytes.IndexByte(name, ':')
	if colon <= 0 {
		return ""
	}
	prefix := string(name[:colon])
	if prefix != "D" && prefix != "d" {
		return ""
	}

	decl := []byte("xmlns:" + prefix + "=")
	if bytes.Contains(body[tagStart:tagEnd], decl) {
		return ""
	}
	return prefix
}

// firstElement scans past any XML declaration/comments/whitespace and
// returns the byte range of the first element's opening tag (from '<' to
// the matching '>') along with its element name.
func firstElement(body []byte) (start, end int, name []byte, ok bool) {
	i := 0
	for i < len(body) {
		lt := bytes.IndexByte(body[i:], '<')
		if lt < 0 {
			return 0, 0, nil, false
		}
		i += lt

		rest := body[i:]
		switch {
		case bytes.HasPrefix(rest, []byte("<?")):
			end := bytes.Index(rest, []byte("?>"))
			if end < 0 {
				return 0, 0, nil, false
			}
			i += end + 2
			continue
		case bytes.HasPrefix(rest, []byte("<!--")):
			end := bytes.Index(rest, []byte("-->"))
			if end < 0 {
				return 0, 0, nil, false
			}
			i += end + 3
			continue
		}

		gt := bytes.IndexByte(rest, '>')
		if gt < 0 {
			return 0, 0, nil, false
		}

		nameStart := 1
		nameEnd := nameStart
		for nameEnd < len(rest) && !isNameBoundary(rest[nameEnd]) {
			nameEnd++
		}
		return i, i + gt + 1, rest[nameStart:nameEnd], true
	}
	return 0, 0, nil, false
}

func isNameBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '>', '/':
		return true
	}
	return false
}

// declarePrefix inserts an xmlns:<prefix>="DAV:" attribute into the root
// element's opening tag, right after the element name.
func declarePrefix(body []byte, prefix string) []byte {
	_, _, name, ok := firstElement(body)
	if !ok {
		return body
	}

	insertAt := bytes.Index(body, append([]byte{'<'}, name...)) + 1 + len(name)
	if insertAt <= len(name) {
		return body
	}

	decl := []byte(` xmlns:` + prefix + `="DAV:"`)
	out := make([]byte, 0, len(body)+len(decl))
	out = append(out, body[:insertAt]...)
	out = append(out, decl...)
	out = append(out, body[insertAt:]...)
	return out
}
