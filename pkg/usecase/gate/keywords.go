package gate

import "strings"

// k8sKeywords is the curated fallback vocabulary. A message gates through
// when any keyword is a case-insensitive substring of it.
var k8sKeywords = []string{
	"pod", "crashloopbackoff", "error", "failed", "pending",
	"kubernetes", "k8s", "deployment", "service", "troubleshoot",
	"namespace", "kubectl", "container", "restart", "crash",
	"debug", "logs", "status", "cluster", "node",
}

func matchKeywords(message string) bool {
	lowered := strings.ToLower(message)
	for _, keyword := range k8sKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
