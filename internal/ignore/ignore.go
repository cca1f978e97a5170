package ignore

import (
	"strings"

	"go.uber.org/zap"
)

// Checker excludes configured domains from the sender tally, so that
// an operator's own forwarding or relay domains do not drown out the
// actual junk senders.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new ignore-list checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	// Normalize domains (lowercase)
	normalizedDomains := make([]string, len(domains))
	for i, domain := range domains {
		normalizedDomains[i] = strings.ToLower(strings.TrimSpace(domain))
	}

	if len(normalizedDomains) > 0 && logger != nil {
		logger.Info("Initialized ignore-list checker", zap.Strings("domains", normalizedDomains))
	}

	return &Checker{
		domains: normalizedDomains,
		logger:  logger,
	}
}

// Ignored checks if the address's domain is on the ignore list
func (c *Checker) Ignored(addr string) bool {
	if len(c.domains) == 0 {
		return false
	}

	// Extract domain from email address
	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return false
	}
	domain := strings.ToLower(parts[1])

	for _, ignored := range c.domains {
		if ignored == domain {
			if c.logger != nil {
				c.logger.Debug("Domain is ignored",
					zap.String("domain", domain),
					zap.String("email", addr))
			}
			return true
		}
	}

	return false
}
