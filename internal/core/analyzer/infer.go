package analyzer

import (
	"strings"
	"unicode"

	"constkit/internal/core/registry"
)

// keywords hint at the domain of a nearby number. Words are matched after splitting
// identifiers on '_' and camelCase, lowercased
var keywords = byKeyword(map[registry.Domain][]string{
	registry.DomainTimeMS: {
		"timeout", "timeouts", "delay", "interval", "ttl", "ms", "millis", "milliseconds",
		"duration", "wait", "sleep", "expire", "expires", "expiry", "backoff", "latency",
		"period", "deadline", "cooldown", "debounce", "throttle", "elapsed", "tick",
	},
	registry.DomainQuantity: {
		"retries", "retry", "attempts", "limit", "max", "min", "batch", "size", "count",
		"capacity", "page", "chunk", "pool", "workers", "concurrency", "length", "len",
		"items", "queue", "threshold", "total", "per",
	},
	registry.DomainPriority: {
		"priority", "level", "weight", "severity", "rank", "score", "importance", "urgency",
		"tier", "order",
	},
	registry.DomainTechnical: {
		"port", "status", "code", "buffer", "bytes", "byte", "http", "errno", "exit",
		"bits", "mask", "kb", "mb", "offset", "version", "signal",
	},
})

func byKeyword(in map[registry.Domain][]string) map[string]registry.Domain {
	out := make(map[string]registry.Domain, 96)
	for d, words := range in {
		for _, w := range words {
			out[w] = d
		}
	}
	return out
}

// inferDomain returns the domain of the keyword nearest to [start,end) within [ls,rs), or
// "" when no keyword is present
func inferDomain(src string, start, end, ls, rs int) registry.Domain {
	best, bestDist := registry.Domain(""), -1
	consider := func(word string, at int) {
		d, ok := keywords[word]
		if !ok {
			return
		}
		dist := at - end
		if at < start {
			dist = start - (at + len(word))
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && domainRank(d) < domainRank(best)) {
			best, bestDist = d, dist
		}
	}
	eachWord(src[ls:start], ls, consider)
	eachWord(src[end:rs], end, consider)
	return best
}

func domainRank(d registry.Domain) int {
	for i, x := range registry.Domains {
		if x == d {
			return i
		}
	}
	return len(registry.Domains)
}

// eachWord calls fn for every lowercase identifier part in s with its absolute offset.
// "maxRetryCount" yields max, retry, count; "HTTP_PORT" yields http, port
func eachWord(s string, base int, fn func(word string, at int)) {
	i := 0
	for i < len(s) {
		if !isLetter(s[i]) {
			i++
			continue
		}
		j := i + 1
		for j < len(s) && isLetter(s[j]) {
			// split before an upper-case letter that follows a lower-case one, and before the
			// last capital of an acronym run followed by lower case (HTTPServer -> http, server)
			if unicode.IsUpper(rune(s[j])) && !unicode.IsUpper(rune(s[j-1])) {
				break
			}
			if unicode.IsUpper(rune(s[j])) && j+1 < len(s) && unicode.IsLower(rune(s[j+1])) && unicode.IsUpper(rune(s[j-1])) {
				break
			}
			j++
		}
		fn(strings.ToLower(s[i:j]), base+i)
		i = j
	}
}
