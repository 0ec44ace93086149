package engine

import (
	"bytes"

	"github.com/tidwall/gjson"
)

// Field paths probed on JSON log records, in priority order. These cover
// the common nginx, Apache/logstash and caddy shapes; the first string
// field that exists wins.
var (
	jsonAddrPaths = []string{
		"remote_addr",
		"remote_ip",
		"client_ip",
		"clientip",
		"request.remote_ip",
		"request.remote_addr",
	}
	jsonUserPaths = []string{
		"remote_user",
		"user",
		"authuser",
		"request.user",
	}
)

var jsonDash = []byte("-")

// rewriteJSON handles a line in structured mode. It returns ok=false when
// the line is not a JSON object, in which case the caller falls back to
// plain token splitting. A line that parses but has no recognized address
// field passes through unchanged rather than being token-mangled.
//
// The rewrite is a byte splice of the raw value span, so field order,
// whitespace and unrelated fields survive exactly. Replacement strings are
// inserted verbatim between fresh quotes; a replacement containing '"' or
// '\' therefore produces output that is no longer valid JSON, same as any
// other deliberate replacement choice.
func (a *Anonymizer) rewriteJSON(line []byte) ([]byte, bool) {
	if len(line) == 0 || line[0] != '{' || !gjson.ValidBytes(line) {
		return nil, false
	}

	addr, ok := findJSONField(line, jsonAddrPaths)
	if !ok {
		return line, true
	}
	aStart, aEnd, ok := rawSpan(line, addr)
	if !ok {
		return line, true
	}

	token := []byte(addr.Str)
	repl := a.replacementFor(classifyToken(token))

	splices := []fieldSplice{{aStart, aEnd, repl}}
	if a.opts.RedactAuthUser {
		if user, ok := findJSONField(line, jsonUserPaths); ok && user.Str != "-" {
			uStart, uEnd, ok := rawSpan(line, user)
			if ok && (uEnd <= aStart || uStart >= aEnd) {
				splices = append(splices, fieldSplice{uStart, uEnd, jsonDash})
			}
		}
	}
	if len(splices) == 2 && splices[1].start < splices[0].start {
		splices[0], splices[1] = splices[1], splices[0]
	}

	out := make([]byte, 0, len(line)+len(repl))
	last := 0
	for _, sp := range splices {
		out = a.appendRemainder(out, token, repl, line[last:sp.start])
		out = append(out, '"')
		out = append(out, sp.text...)
		out = append(out, '"')
		last = sp.end
	}
	out = a.appendRemainder(out, token, repl, line[last:])
	return out, true
}

// fieldSplice is one raw value span to overwrite, quotes included.
type fieldSplice struct {
	start, end int
	text       []byte
}

// findJSONField returns the first path that resolves to a JSON string.
func findJSONField(line []byte, paths []string) (gjson.Result, bool) {
	for _, p := range paths {
		if res := gjson.GetBytes(line, p); res.Exists() && res.Type == gjson.String {
			return res, true
		}
	}
	return gjson.Result{}, false
}

// rawSpan locates the raw value (quotes included) inside line via the
// result's source offset, verified against the input bytes. A result that
// arrives without a usable offset yields no span at all: another field
// may hold the identical raw text, so searching for it could splice the
// wrong one.
func rawSpan(line []byte, res gjson.Result) (int, int, bool) {
	raw := []byte(res.Raw)
	if res.Index > 0 && res.Index+len(raw) <= len(line) &&
		bytes.Equal(line[res.Index:res.Index+len(raw)], raw) {
		return res.Index, res.Index + len(raw), true
	}
	return 0, 0, false
}
