package redact

// DefaultRules covers the credentials most often pasted into code answers.
// Prefixed tokens need no keyword gate.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "private-key", Pattern: `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?: BLOCK)?-----[\s\S]*?-----END (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?: BLOCK)?-----`},
		{ID: "aws-access-key-id", Pattern: `\b(?:AKIA|ASIA|AGPA|AIDA|AROA)[A-Z0-9]{16}\b`},
		{
			ID:       "aws-secret-access-key",
			Pattern:  `(?i)aws_?secret_?(?:access_?)?key\s*[:=]\s*['"]?[A-Za-z0-9/+=]{40}['"]?`,
			Keywords: []string{"aws"},
		},
		{ID: "github-token", Pattern: `\b(?:gh[pousr]_[A-Za-z0-9]{36}|github_pat_[A-Za-z0-9_]{22,})\b`},
		{ID: "gitlab-token", Pattern: `\bglpat-[A-Za-z0-9_-]{20,}\b`},
		{ID: "anthropic-api-key", Pattern: `\bsk-ant-[A-Za-z0-9_-]{20,}`},
		{ID: "openai-api-key", Pattern: `\bsk-(?:proj-)?[A-Za-z0-9_-]{20,}`},
		{ID: "slack-token", Pattern: `\bxox[abposr]-[A-Za-z0-9-]{10,}`},
		{ID: "stripe-key", Pattern: `\b(?:sk|rk)_(?:live|test)_[A-Za-z0-9]{16,}`},
		{ID: "google-api-key", Pattern: `\bAIza[0-9A-Za-z_-]{35}\b`},
		{ID: "jwt", Pattern: `\beyJ[A-Za-z0-9_-]{8,}\.eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}`},
		{
			ID:       "connection-string",
			Pattern:  `(?i)\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqp)://[^\s:/@]+:[^\s@]+@[^\s]+`,
			Keywords: []string{"://"},
		},
		{
			ID:       "bearer-token",
			Pattern:  `(?i)\bbearer\s+[A-Za-z0-9._~+/-]{20,}=*`,
			Keywords: []string{"bearer"},
		},
		{
			ID:       "assigned-secret",
			Pattern:  `(?i)\b(?:api[_-]?key|secret|password|passwd|token)\b\s*[:=]\s*['"][^'"\s]{8,}['"]`,
			Keywords: []string{"key", "secret", "pass", "token"},
		},
	}
}
