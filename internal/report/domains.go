package report

import (
	"sort"

	"github.com/nao1215/mailscan/internal/model"
)

// domainCount is the number of addresses found for one domain.
type domainCount struct {
	domain    string
	emails    int
	validated int
}

// countByDomain groups results by domain, most addresses first and ties
// broken by domain name.
func countByDomain(results []model.EmailResult) []domainCount {
	index := make(map[string]int)
	var counts []domainCount
	for _, r := range results {
		d := r.Domain()
		i, ok := index[d]
		if !ok {
			i = len(counts)
			index[d] = i
			counts = append(counts, domainCount{domain: d})
		}
		counts[i].emails++
		if r.DNSValidated {
			counts[i].validated++
		}
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].emails != counts[j].emails {
			return counts[i].emails > counts[j].emails
		}
		return counts[i].domain < counts[j].domain
	})
	return counts
}
