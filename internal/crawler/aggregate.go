package crawler

import "github.com/nao1215/mailscan/internal/model"

// Aggregate converts the final email map into results sorted by address.
// Empty addresses are dropped. It never returns nil.
func Aggregate(found map[string]bool) []model.EmailResult {
	results := make([]model.EmailResult, 0, len(found))
	for email, valid := range found {
		if email == "" {
			continue
		}
		results = append(results, model.EmailResult{
			Email:        email,
			DNSValidated: valid,
		})
	}
	model.SortEmailResults(results)
	return results
}
