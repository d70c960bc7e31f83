package pattern

import (
	"regexp"
	"sort"
	"strings"
)

// deprecatedActions maps superseded GitHub Action references to their current
// replacements. This is the substitution data behind the deprecated_action
// rule; the keys double as its recognition alternation.
var deprecatedActions = map[string]string{
	"actions/checkout@v1":          "actions/checkout@v4",
	"actions/checkout@v2":          "actions/checkout@v4",
	"actions/checkout@v3":          "actions/checkout@v4",
	"actions/setup-python@v1":      "actions/setup-python@v5",
	"actions/setup-python@v2":      "actions/setup-python@v5",
	"actions/setup-python@v3":      "actions/setup-python@v5",
	"actions/setup-python@v4":      "actions/setup-python@v5",
	"actions/setup-node@v1":        "actions/setup-node@v4",
	"actions/setup-node@v2":        "actions/setup-node@v4",
	"actions/setup-node@v3":        "actions/setup-node@v4",
	"actions/cache@v1":             "actions/cache@v4",
	"actions/cache@v2":             "actions/cache@v4",
	"actions/cache@v3":             "actions/cache@v4",
	"actions/upload-artifact@v1":   "actions/upload-artifact@v4",
	"actions/upload-artifact@v2":   "actions/upload-artifact@v4",
	"actions/upload-artifact@v3":   "actions/upload-artifact@v4",
	"actions/download-artifact@v1": "actions/download-artifact@v4",
	"actions/download-artifact@v2": "actions/download-artifact@v4",
	"actions/download-artifact@v3": "actions/download-artifact@v4",
}

// pinnedSuffixExpr splits a patch-pinned reference like
// "actions/checkout@v2.1.0" into its major-version base.
var pinnedSuffixExpr = regexp.MustCompile(`\A(.+@v\d+)(?:\.\d+)+\z`)

// ReplacementFor returns the current replacement for a deprecated action
// reference, if one is known. Patch-pinned references resolve through their
// major version: checkout@v2.1.0 upgrades to the same target as checkout@v2.
func ReplacementFor(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if repl, ok := deprecatedActions[ref]; ok {
		return repl, true
	}
	if m := pinnedSuffixExpr.FindStringSubmatch(ref); m != nil {
		repl, ok := deprecatedActions[m[1]]
		return repl, ok
	}
	return "", false
}

// DeprecatedActions returns the replacement table as sorted (old, new)
// pairs for deterministic iteration.
func DeprecatedActions() [][2]string {
	keys := make([]string, 0, len(deprecatedActions))
	for k := range deprecatedActions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, deprecatedActions[k]})
	}
	return out
}

// deprecatedRefExpr builds a single alternation matching exactly the known
// deprecated references, including any patch-pinned suffix so the whole pin
// is the match (checkout@v2.1.0, never the checkout@v2 prefix inside it).
// Longer keys sort later under plain string sort, so alternatives are
// ordered longest-first to keep matches greedy and exact.
func deprecatedRefExpr() string {
	keys := make([]string, 0, len(deprecatedActions))
	for k := range deprecatedActions {
		keys = append(keys, regexp.QuoteMeta(k))
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return "(?:" + strings.Join(keys, "|") + ")" + `(?:\.\d+)*\b`
}
