package domain

import (
	"strings"
)

// TokenMap maps literal message tokens (card suffixes, account nicknames)
// to account ids. It is built once from configuration and immutable after.
// Tokens are case-sensitive and contain no whitespace.
type TokenMap struct {
	ids    map[string]string
	tokens []string // registration order, kept for deterministic output
}

// ParseTokenMap parses a comma-separated list of token:id pairs, e.g.
// "visa1234:42,cash:7". Malformed entries are skipped individually rather
// than failing the whole map. A repeated token keeps its first mapping.
func ParseTokenMap(s string) TokenMap {
	m := TokenMap{ids: make(map[string]string)}

	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		token, id, ok := strings.Cut(entry, ":")
		token = strings.TrimSpace(token)
		id = strings.TrimSpace(id)
		if !ok || token == "" || id == "" || strings.ContainsAny(token, " \t") {
			continue
		}
		if _, dup := m.ids[token]; dup {
			continue
		}

		m.ids[token] = id
		m.tokens = append(m.tokens, token)
	}

	return m
}

// Len returns the number of mapped tokens.
func (m TokenMap) Len() int {
	return len(m.ids)
}

// Lookup returns the account id mapped to token.
func (m TokenMap) Lookup(token string) (string, bool) {
	id, ok := m.ids[token]
	return id, ok
}

// Serialize renders the map back into the token:id configuration form.
// Parsing the result yields an equal map.
func (m TokenMap) Serialize() string {
	pairs := make([]string, 0, len(m.tokens))
	for _, token := range m.tokens {
		pairs = append(pairs, token+":"+m.ids[token])
	}
	return strings.Join(pairs, ",")
}

// TokenHit is one token found in a raw message text.
type TokenHit struct {
	Token     string
	AccountID string
}

// Match returns the distinct mapped tokens that occur in rawText, in
// registration order. Matching is a case-sensitive substring test.
func (m TokenMap) Match(rawText string) []TokenHit {
	var hits []TokenHit
	for _, token := range m.tokens {
		if strings.Contains(rawText, token) {
			hits = append(hits, TokenHit{Token: token, AccountID: m.ids[token]})
		}
	}
	return hits
}
