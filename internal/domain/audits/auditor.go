package audits

import (
	"fmt"
	"regexp"
	"strings"
)

// UnknownContract is used when no contract declaration is found.
const UnknownContract = "Unknown"

// The separator class is the full ECMAScript whitespace set, wider than RE2's \s.
var contractNameRe = regexp.MustCompile(`contract[\t\n\v\f\r\p{Zs}\x{2028}\x{2029}\x{FEFF}]+(\w+)`)

// Baseline scores before any rule fires.
const (
	baseSecurity      = 7
	basePerformance   = 8
	baseGasEfficiency = 8
	baseCodeQuality   = 7
	documentedScore   = 7
	undocumentedScore = 5
	baseOtherKeyAreas = 7
)

var baseSuggestions = []string{
	"Add comprehensive NatSpec documentation to all public and external functions.",
	"Implement events for all significant state changes to improve off-chain observability.",
	"Consider using OpenZeppelin's ReentrancyGuard for functions that perform external calls.",
	"Follow the checks-effects-interactions pattern to prevent reentrancy vulnerabilities.",
	"Cache frequently accessed storage variables in memory to reduce gas costs.",
}

// auditState is folded over the rule table.
type auditState struct {
	source   string
	metrics  Metrics
	findings []Finding
}

// rule is one heuristic. match must be a pure function of the source.
type rule struct {
	id    string
	match func(src string) bool
	apply func(st *auditState)
}

func containsAny(src string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(src, s) {
			return true
		}
	}
	return false
}

func hasReentrancyRisk(src string) bool {
	return strings.Contains(src, "transfer") && !strings.Contains(src, "ReentrancyGuard")
}

func hasTimestampDependence(src string) bool {
	return containsAny(src, "block.timestamp", "now")
}

func hasBlockhashUsage(src string) bool {
	return strings.Contains(src, "blockhash")
}

func missingVisibility(src string) bool {
	return strings.Contains(src, "function") &&
		!containsAny(src, "function public", "function private", "function internal", "function external")
}

func hasDocumentation(src string) bool {
	return containsAny(src, "///", "/**")
}

// rules runs in detection order; findings keep this order.
var rules = []rule{
	{
		id:    "SEC-001",
		match: hasReentrancyRisk,
		apply: func(st *auditState) {
			st.metrics.Security -= 2
			st.findings = append(st.findings, Finding{
				ID:          "SEC-001",
				Severity:    SeverityHigh,
				Title:       "Potential reentrancy vulnerability in withdrawal function",
				Description: "The contract contains functions that perform external calls before updating state variables, which could lead to reentrancy attacks.",
				Code: `function withdraw(uint256 amount) {
  require(balances[msg.sender] >= amount);
  payable(msg.sender).transfer(amount);  // External call before state update
  balances[msg.sender] -= amount;
}`,
				Suggestion: `function withdraw(uint256 amount) {
  require(balances[msg.sender] >= amount);
  balances[msg.sender] -= amount;  // Update state before external call
  payable(msg.sender).transfer(amount);
}`,
			})
		},
	},
	{
		id:    "SEC-002",
		match: hasTimestampDependence,
		apply: func(st *auditState) {
			st.metrics.Security--
			code := `if (now >= endTime) { /* ... */ }`
			if strings.Contains(st.source, "block.timestamp") {
				code = `if (block.timestamp >= endTime) { /* ... */ }`
			}
			st.findings = append(st.findings, Finding{
				ID:          "SEC-002",
				Severity:    SeverityMedium,
				Title:       "Timestamp dependency may be manipulated by miners",
				Description: "The contract relies on `block.timestamp` for critical operations. Miners can manipulate timestamps slightly, which may affect time-sensitive logic.",
				Code:        code,
				Suggestion:  "Consider using block numbers and time averages for less sensitive time measurements, or accept the risk for operations with a time window larger than miners can manipulate (>30 seconds).",
			})
		},
	},
	{
		id:    "SEC-003",
		match: hasBlockhashUsage,
		apply: func(st *auditState) {
			st.metrics.Security--
			st.findings = append(st.findings, Finding{
				ID:          "SEC-003",
				Severity:    SeverityLow,
				Title:       "Using block.blockhash for randomness is not secure",
				Description: "The contract uses blockhash as a source of randomness, which can be manipulated by miners.",
				Code:        `uint256 random = uint256(blockhash(block.number - 1)) % 100;`,
				Suggestion:  "Use a secure source of randomness such as an oracle or commit-reveal schemes for randomness.",
			})
		},
	},
	{
		id:    "QUAL-001",
		match: missingVisibility,
		apply: func(st *auditState) {
			st.metrics.CodeQuality--
			st.findings = append(st.findings, Finding{
				ID:          "QUAL-001",
				Severity:    SeverityInfo,
				Title:       "Consider using explicit function visibility modifiers",
				Description: "Some functions in the contract don't explicitly specify their visibility (public, private, internal, or external).",
				Suggestion:  "Add explicit visibility modifiers to all functions and state variables to improve code readability and avoid potential security issues.",
			})
		},
	},
	{
		id:    "DOC-001",
		match: func(src string) bool { return !hasDocumentation(src) },
		apply: func(st *auditState) {
			st.metrics.Documentation = undocumentedScore
			st.findings = append(st.findings, Finding{
				ID:          "DOC-001",
				Severity:    SeverityLow,
				Title:       "Insufficient documentation",
				Description: "The contract and its functions lack comprehensive documentation, making it difficult for users and developers to understand their purpose and behavior.",
				Suggestion:  "Add NatSpec comments to document the contract and all public/external functions.",
			})
		},
	},
	{
		id:    "SEC-004",
		match: func(src string) bool { return containsAny(src, "selfdestruct", "suicide") },
		apply: func(st *auditState) {
			st.findings = append(st.findings, Finding{
				ID:          "SEC-004",
				Severity:    SeverityHigh,
				Title:       "Contract uses selfdestruct/suicide",
				Description: "The contract can be destroyed using selfdestruct, which might not be intended and poses a security risk if not properly protected.",
				Suggestion:  "Make sure selfdestruct is used securely and with proper access control if intended. If not necessary, remove it.",
			})
		},
	},
	{
		id:    "GAS-001",
		match: func(src string) bool { return strings.Contains(src, "for (") },
		apply: func(st *auditState) {
			st.findings = append(st.findings, Finding{
				ID:          "GAS-001",
				Severity:    SeverityLow,
				Title:       "Unbounded loops may cause gas issues",
				Description: "The contract contains loops that might iterate over unbounded data structures, which can lead to out-of-gas errors.",
				Suggestion:  "Consider adding limits to loops or pagination mechanisms for large data sets.",
			})
		},
	},
}

// conditional suggestions are appended after the base list in this order.
var conditionalSuggestions = []struct {
	match      func(src string) bool
	suggestion string
}{
	{hasTimestampDependence, "Replace block.timestamp with block numbers for sensitive time-dependent logic."},
	{hasBlockhashUsage, "Use a proper source of randomness from an oracle like Chainlink VRF instead of blockhash."},
	{func(src string) bool { return strings.Contains(src, "mapping") }, "Consider adding getter functions for complex mappings to improve usability."},
}

// RuleIDs returns the finding ids in detection order.
func RuleIDs() []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.id
	}
	return ids
}

// ContractName returns the first `contract <Name>` declaration or UnknownContract.
func ContractName(source string) string {
	if m := contractNameRe.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	return UnknownContract
}

// Analyze runs the heuristic rule set over source. It never fails: any string,
// valid Solidity or not, yields a best-effort report.
func Analyze(source string) Report {
	st := &auditState{
		source: source,
		metrics: Metrics{
			Security:      baseSecurity,
			Performance:   basePerformance,
			GasEfficiency: baseGasEfficiency,
			CodeQuality:   baseCodeQuality,
			Documentation: documentedScore,
			OtherKeyAreas: baseOtherKeyAreas,
		},
		findings: []Finding{},
	}
	for _, r := range rules {
		if r.match(source) {
			r.apply(st)
		}
	}
	st.metrics = st.metrics.clamped()

	suggestions := append([]string(nil), baseSuggestions...)
	for _, c := range conditionalSuggestions {
		if c.match(source) {
			suggestions = append(suggestions, c.suggestion)
		}
	}

	report := Report{
		ContractName: ContractName(source),
		Metrics:      st.metrics,
		Findings:     st.findings,
		Suggestions:  suggestions,
	}
	report.Summary = summarize(report)
	return report
}

func summarize(r Report) string {
	critical := "No critical vulnerabilities were found that could compromise the security of the contract."
	if r.HasCritical() {
		critical = "Critical vulnerabilities were found that could compromise the security of the contract."
	}
	structure := "in need of improvement"
	if r.Metrics.CodeQuality >= 7 {
		structure = "relatively clean and well-organized"
	}
	return fmt.Sprintf("The smart contract %s has been audited for security vulnerabilities, performance optimization, and general code quality. %s The code structure is %s.",
		r.ContractName, critical, structure)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func (m Metrics) clamped() Metrics {
	return Metrics{
		Security:      clampScore(m.Security),
		Performance:   clampScore(m.Performance),
		GasEfficiency: clampScore(m.GasEfficiency),
		CodeQuality:   clampScore(m.CodeQuality),
		Documentation: clampScore(m.Documentation),
		OtherKeyAreas: clampScore(m.OtherKeyAreas),
	}
}
