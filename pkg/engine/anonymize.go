package engine

// RewriteOptions controls how the Anonymizer rewrites a line. The zero
// value replaces every leading token with the empty string; callers
// normally start from the config defaults and flip what they need. The
// struct doubles as the wire shape for config files and control-plane
// manifests, so changed field names break deployed manifests.
type RewriteOptions struct {
	// Replacement strings per token class. Any byte sequence is legal,
	// including the empty string; they are emitted verbatim.
	IPv4Replacement string `toml:"ipv4_replacement" json:"ipv4_replacement"`
	IPv6Replacement string `toml:"ipv6_replacement" json:"ipv6_replacement"`
	HostReplacement string `toml:"host_replacement" json:"host_replacement"`

	// SkipUnmatched drops lines that carry no token (no space byte)
	// instead of passing them through untouched.
	SkipUnmatched bool `toml:"skip_unmatched" json:"skip_unmatched"`

	// RedactAuthUser additionally blanks the ident and auth-user fields
	// of combined-format lines to "- -".
	RedactAuthUser bool `toml:"redact_auth_user" json:"redact_auth_user"`

	// TrimLeading strips ASCII whitespace in front of the token first.
	TrimLeading bool `toml:"trim_leading" json:"trim_leading"`

	// OptimizeAuthUser short-circuits the auth-user scan when the bytes
	// right after the token already read "- [", i.e. the line was
	// redacted on a previous run.
	OptimizeAuthUser bool `toml:"optimize_auth_user" json:"optimize_auth_user"`

	// Thorough additionally replaces every later occurrence of the
	// token in the rest of the line, for formats that repeat the client
	// address (X-Forwarded-For chains, %A-style duplicates).
	Thorough bool `toml:"thorough" json:"thorough"`

	// RewriteJSON treats lines that look like JSON objects as structured
	// records and rewrites well-known address fields in place instead of
	// token-splitting them.
	RewriteJSON bool `toml:"rewrite_json" json:"rewrite_json"`

	// FlushPerLine makes the batch driver flush the sink after every
	// line. Tail-friendly, slow on bulk input.
	FlushPerLine bool `toml:"flush_per_line" json:"flush_per_line"`
}

// redactedUser is what the ident and auth-user fields collapse to.
var redactedUser = []byte(" - -")

// Anonymizer rewrites the leading client address of each log line to a
// fixed replacement chosen by address class, with optional auth-user
// redaction and whole-line address scrubbing. It implements Processor and
// is stateless per line, so one instance may serve concurrent workers.
type Anonymizer struct {
	opts RewriteOptions
	ipv4 []byte
	ipv6 []byte
	host []byte
}

// NewAnonymizer builds an Anonymizer from opts. Replacement strings are
// taken as-is; empty replacements erase the token.
func NewAnonymizer(opts RewriteOptions) *Anonymizer {
	return &Anonymizer{
		opts: opts,
		ipv4: []byte(opts.IPv4Replacement),
		ipv6: []byte(opts.IPv6Replacement),
		host: []byte(opts.HostReplacement),
	}
}

// Name identifies the processor in logs and manifests.
func (a *Anonymizer) Name() string {
	return "anonymize"
}

// Process rewrites one line. It returns the rewritten line, or the input
// slice untouched when there is nothing to do, and reports skip=true for
// tokenless lines when SkipUnmatched is set. The error is always nil; a
// line that defeats every parse stage still has a defined rewrite.
func (a *Anonymizer) Process(ctx *ProcessingContext, line []byte) ([]byte, bool, error) {
	if a.opts.TrimLeading {
		line = trimLeading(line)
	}

	if a.opts.RewriteJSON {
		if out, ok := a.rewriteJSON(line); ok {
			return out, false, nil
		}
	}

	split := splitToken(line)
	if split < 0 {
		if a.opts.SkipUnmatched {
			return nil, true, nil
		}
		return line, false, nil
	}

	token := line[:split]
	repl := a.replacementFor(classifyToken(token))

	out := make([]byte, 0, len(line)+len(repl))
	out = append(out, repl...)

	if a.opts.RedactAuthUser {
		// A line redacted by an earlier run reads "<token> - - [date..."
		// and can bypass the anchor scan. The length check keeps short
		// lines out of the fast path.
		if a.opts.OptimizeAuthUser && split+6 <= len(line) &&
			line[split+3] == '-' && line[split+4] == ' ' && line[split+5] == '[' {
			return a.appendRemainder(out, token, repl, line[split:]), false, nil
		}
		if at := findDateAnchor(line, split); at >= 0 {
			out = append(out, redactedUser...)
			return a.appendRemainder(out, token, repl, line[at:]), false, nil
		}
	}
	return a.appendRemainder(out, token, repl, line[split:]), false, nil
}

func (a *Anonymizer) replacementFor(class addrClass) []byte {
	switch class {
	case classIPv4:
		return a.ipv4
	case classIPv6:
		return a.ipv6
	default:
		return a.host
	}
}

// appendRemainder appends the unconsumed tail of the line, scrubbing any
// repeated occurrence of the original token when Thorough is on. The tail
// always begins at or after the split, so the emitted replacement and the
// "- -" marker are never rescanned.
func (a *Anonymizer) appendRemainder(dst []byte, token, repl, rest []byte) []byte {
	if !a.opts.Thorough || len(token) == 0 {
		return append(dst, rest...)
	}
	var s byteSearcher
	s.reset(token)
	return s.appendReplaced(dst, rest, repl)
}
