package jwt

import (
	"sort"

	"github.com/Gkemhcs/kavach-auth/internal/types"
	jwtx "github.com/golang-jwt/jwt/v4"
)

// ClaimSet is an ordered multiset of claims. Repeated types are kept, in the
// order they were added; consumers rely on multiple role claims.
type ClaimSet []types.Claim

// Add appends a claim without looking at what is already present.
func (s *ClaimSet) Add(claimType, value string) {
	*s = append(*s, types.NewClaim(claimType, value))
}

// Union appends every claim of other, duplicates included.
func (s *ClaimSet) Union(other []types.Claim) {
	*s = append(*s, other...)
}

// Values returns all values recorded for a claim type, in order.
func (s ClaimSet) Values(claimType string) []string {
	var out []string
	for _, c := range s {
		if c.Type == claimType {
			out = append(out, c.Value)
		}
	}
	return out
}

// Count returns how many claims of the given type are present.
func (s ClaimSet) Count(claimType string) int {
	return len(s.Values(claimType))
}

// First returns the first value of a claim type.
func (s ClaimSet) First(claimType string) (string, bool) {
	for _, c := range s {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// isRegistered reports whether claimType is a registered JWT member that Issue
// writes itself. Stored claims must not shadow these.
func isRegistered(claimType string) bool {
	switch claimType {
	case ClaimSubject, ClaimTokenID, claimIssuer, claimAudience, claimExpires, claimNotBefore, claimIssuedAt:
		return true
	}
	return false
}

func withoutRegistered(claims []types.Claim) []types.Claim {
	out := make([]types.Claim, 0, len(claims))
	for _, c := range claims {
		if !isRegistered(c.Type) {
			out = append(out, c)
		}
	}
	return out
}

// toMapClaims flattens the multiset into a JWT payload. A type seen once is a
// string, a type seen more than once becomes an array in insertion order.
func (s ClaimSet) toMapClaims() jwtx.MapClaims {
	out := jwtx.MapClaims{}
	for _, c := range s {
		switch existing := out[c.Type].(type) {
		case nil:
			out[c.Type] = c.Value
		case string:
			out[c.Type] = []string{existing, c.Value}
		case []string:
			out[c.Type] = append(existing, c.Value)
		}
	}
	return out
}

// claimSetFromMap rebuilds a multiset from a parsed payload. Member order
// is not preserved by JSON objects, so types are sorted; values of one type
// keep their array order. Registered members controlled by configuration are skipped.
func claimSetFromMap(m jwtx.MapClaims) ClaimSet {
	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case claimIssuer, claimAudience, claimExpires:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var set ClaimSet
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			set.Add(k, v)
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok {
					set.Add(k, str)
				}
			}
		}
	}
	return set
}
