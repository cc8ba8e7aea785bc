// Package osutils holds host integration that has no portable API.
package osutils

import (
	"fmt"
	"strconv"
	"strings"
)

// FirewallRuleName names the inbound rule opened for the HTTP API.
const FirewallRuleName = "stream-automate API"

// firewallScript replaces the inbound rule with one allowing port.
func firewallScript(port int) string {
	return fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%s' -ErrorAction SilentlyContinue; New-NetFirewallRule -DisplayName '%s' -Direction Inbound -LocalPort %d -Protocol TCP -Action Allow -Profile Any",
		FirewallRuleName, FirewallRuleName, port,
	)
}

// ruleMatches reports whether netsh output shows the rule allowing port.
func ruleMatches(output string, port int) bool {
	if !strings.Contains(output, FirewallRuleName) || !strings.Contains(output, "Allow") {
		return false
	}
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "LocalPort" {
			continue
		}
		return strings.TrimSpace(value) == strconv.Itoa(port)
	}
	return false
}
