package coa

import (
	"sort"
	"strings"
	"unicode"
)

// CategoryResolver maps a free-form category string onto an account of the
// expected type. Implementations must be deterministic: the same category
// against an unchanged chart always yields the same account.
type CategoryResolver interface {
	Resolve(category string, want AccountType) (*Account, error)
}

// HeuristicResolver resolves categories in a fixed order: exact name match,
// code-prefix match, keyword scoring, then the role fallback. The fuzzy
// scoring stays isolated here so posting templates never depend on it.
type HeuristicResolver struct {
	accounts []Account
	roles    Roles
}

// NewHeuristicResolver builds a resolver over the business's accounts.
// Accounts are copied and sorted by code so tie-breaks are stable.
func NewHeuristicResolver(accounts []Account, roles Roles) *HeuristicResolver {
	sorted := make([]Account, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
	return &HeuristicResolver{accounts: sorted, roles: roles}
}

// Resolve implements CategoryResolver.
func (r *HeuristicResolver) Resolve(category string, want AccountType) (*Account, error) {
	category = strings.TrimSpace(category)
	if category != "" {
		if acc := r.exactName(category, want); acc != nil {
			return acc, nil
		}
		if acc := r.byCode(category, want); acc != nil {
			return acc, nil
		}
		if acc := r.byKeywords(category, want); acc != nil {
			return acc, nil
		}
	}
	if acc := r.fallback(want); acc != nil {
		return acc, nil
	}
	return nil, ErrUnresolvedCategory
}

func (r *HeuristicResolver) exactName(category string, want AccountType) *Account {
	for i := range r.accounts {
		acc := &r.accounts[i]
		if acc.IsActive && acc.Type == want && strings.EqualFold(acc.Name, category) {
			return acc
		}
	}
	return nil
}

// byCode matches categories like "6100 Rent" or "6100" against account codes.
func (r *HeuristicResolver) byCode(category string, want AccountType) *Account {
	var code strings.Builder
	for _, ch := range category {
		if !unicode.IsDigit(ch) {
			break
		}
		code.WriteRune(ch)
	}
	if code.Len() < 2 {
		return nil
	}
	prefix := code.String()
	for i := range r.accounts {
		acc := &r.accounts[i]
		if acc.IsActive && acc.Type == want && strings.HasPrefix(acc.Code, prefix) {
			return acc
		}
	}
	return nil
}

// byKeywords scores each candidate by overlapping words. Ties go to the
// first account in code order.
func (r *HeuristicResolver) byKeywords(category string, want AccountType) *Account {
	tokens := tokenize(category)
	if len(tokens) == 0 {
		return nil
	}
	var best *Account
	bestScore := 0
	for i := range r.accounts {
		acc := &r.accounts[i]
		if !acc.IsActive || acc.Type != want {
			continue
		}
		score := keywordScore(tokens, acc.Name)
		if score > bestScore {
			best = acc
			bestScore = score
		}
	}
	return best
}

func (r *HeuristicResolver) fallback(want AccountType) *Account {
	switch want {
	case AccountTypeIncome:
		return r.roles.IncomeFallback()
	case AccountTypeExpense:
		return r.roles.ExpenseFallback()
	}
	return nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(ch rune) bool {
		return !unicode.IsLetter(ch) && !unicode.IsDigit(ch)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

func keywordScore(tokens []string, name string) int {
	nameLower := strings.ToLower(name)
	nameTokens := tokenize(name)
	score := 0
	for _, tok := range tokens {
		if strings.Contains(nameLower, tok) {
			score += 2
			continue
		}
		for _, nt := range nameTokens {
			if strings.Contains(tok, nt) {
				score++
				break
			}
		}
	}
	return score
}
