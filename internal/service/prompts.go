package service

import (
	"fmt"
	"strings"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

// systemPrompt frames every completion request.
const systemPrompt = "You are an expert DevOps SRE and incident response specialist. " +
	"Provide detailed, actionable analysis with specific commands and steps."

// buildAnalysisPrompt renders the standard single-source prompt around a
// JSON snapshot of the fetched data.
func buildAnalysisPrompt(source, dataJSON, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert DevOps AI Agent specializing in application reliability, performance optimization, and incident management.

Your mission: Analyze the following %s data and provide actionable insights to help developers maintain robust, high-performing applications.

**Analysis Framework:**

1. **ASSESSMENT**
   - Scan for errors, warnings, anomalies, and performance degradation
   - Evaluate severity levels (Critical, High, Medium, Low)
   - Identify patterns and trends

2. **ROOT CAUSE ANALYSIS**
   - Determine likely root causes for each issue
   - Consider common failure modes: resource exhaustion, configuration errors, code bugs, dependency failures, network issues
   - Look for cascading failures or systemic problems

3. **IMPACT EVALUATION**
   - Assess impact on users, services, and business operations
   - Identify affected components and dependencies

4. **RECOMMENDATIONS**
   - Provide specific, actionable remediation steps
   - Suggest preventive measures and monitoring improvements
   - Prioritize actions by urgency

5. **HEALTH CHECK**
   - If no critical issues found, confirm system health status

**Response Format:**
Structure your response with clear markdown sections:
- **Critical Issues**
- **Warnings & Anomalies**
- **Root Cause Analysis**
- **Recommended Actions**
- **System Health Summary**
`, source)

	if context != "" {
		fmt.Fprintf(&b, "\n**Additional Context Provided:**\n%s\n", context)
	}
	fmt.Fprintf(&b, "\n**Data to Analyze (%s):**\n```json\n%s\n```\n", source, dataJSON)
	return b.String()
}

// chainData is the material gathered for a comprehensive analysis: the
// triggering log, the related incident, the affected service, actions
// already taken, and recent error logs from the same service.
type chainData struct {
	Log         *monitor.LogEntry  `json:"log,omitempty"`
	Incident    *monitor.Incident  `json:"incident,omitempty"`
	Service     *monitor.Service   `json:"service,omitempty"`
	Actions     []monitor.Action   `json:"actions,omitempty"`
	RelatedLogs []monitor.LogEntry `json:"relatedLogs,omitempty"`
}

// empty reports whether the chain walk found nothing at all.
func (d *chainData) empty() bool {
	return d.Log == nil && d.Incident == nil && d.Service == nil &&
		len(d.Actions) == 0 && len(d.RelatedLogs) == 0
}

// buildComprehensivePrompt renders the incident-chain prompt.
func buildComprehensivePrompt(data *chainData, context string) string {
	var b strings.Builder
	b.WriteString(`You are an expert DevOps AI Agent with deep expertise in incident response, root cause analysis, and system reliability engineering.

**MISSION: End-to-End Incident Analysis & Resolution**

You have been provided with comprehensive data spanning the entire incident lifecycle:
- Error logs that triggered the issue
- Related incidents and their status
- Affected service configuration and health
- Actions already taken by the team
- Historical context from related logs

**YOUR TASK:**

1. **INCIDENT CHAIN ANALYSIS**
   - Trace the error from initial log entry through incident creation to current state
   - Identify if this is a recurring issue or a new problem
   - Determine the blast radius

2. **ROOT CAUSE DETERMINATION**
   - Analyze error patterns across related logs
   - Review actions already attempted and their results
   - Identify the PRIMARY root cause, not just symptoms

3. **SEVERITY & IMPACT ASSESSMENT**
   - Critical: Service down, data loss risk, security breach
   - High: Major functionality impaired, performance degraded >50%
   - Medium: Minor functionality issues, some users affected
   - Low: Cosmetic issues, no user impact

4. **RESOLUTION STRATEGY**
   - Immediate actions, short-term fixes, long-term preventive measures
   - Specific commands to run where applicable

5. **LEARNING & PREVENTION**
   - What monitoring alerts should be added?
   - Should this trigger a post-mortem?

**DATA PROVIDED:**
`)

	if data.Log != nil {
		stack := data.Log.StackTrace
		if len(stack) > 500 {
			stack = stack[:500]
		}
		if stack == "" {
			stack = "None"
		}
		fmt.Fprintf(&b, `
**PRIMARY ERROR LOG:**
- Level: %s
- Service: %s
- Message: %s
- Timestamp: %s
- Stack Trace: %s
`, data.Log.Level, data.Log.ServiceID, data.Log.Message, data.Log.Timestamp.Format("2006-01-02T15:04:05Z07:00"), stack)
	}

	if data.Incident != nil {
		resolved := "N/A"
		if data.Incident.ResolvedAt != nil {
			resolved = data.Incident.ResolvedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		fmt.Fprintf(&b, `
**RELATED INCIDENT:**
- ID: %s
- Title: %s
- Severity: %s
- Status: %s
- Description: %s
- Reported: %s
- Resolved: %s
`, data.Incident.ID, data.Incident.Title, data.Incident.Severity, data.Incident.Status,
			data.Incident.Description, data.Incident.ReportedAt.Format("2006-01-02T15:04:05Z07:00"), resolved)
	}

	if data.Service != nil {
		fmt.Fprintf(&b, `
**AFFECTED SERVICE:**
- Name: %s
- Status: %s
- URL: %s
- Health Check: %s
- Last Updated: %s
`, data.Service.Name, data.Service.Status, data.Service.URL,
			data.Service.HealthCheckURL, data.Service.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}

	if len(data.Actions) > 0 {
		fmt.Fprintf(&b, "\n**ACTIONS ALREADY TAKEN (%d total):**\n", len(data.Actions))
		for i, a := range data.Actions {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "\nAction %d:\n  - Command: %s\n  - Result: %s\n  - Timestamp: %s\n",
				i+1, a.CommandRun, a.Result, a.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		}
	}

	if len(data.RelatedLogs) > 0 {
		fmt.Fprintf(&b, "\n**RELATED ERROR LOGS (%d found):**\n", len(data.RelatedLogs))
		for i, l := range data.RelatedLogs {
			if i == 3 {
				break
			}
			msg := l.Message
			if len(msg) > 100 {
				msg = msg[:100] + "..."
			}
			fmt.Fprintf(&b, "\nLog %d: [%s] %s\n", i+1, l.Level, msg)
		}
	}

	if context != "" {
		fmt.Fprintf(&b, "\n**ADDITIONAL CONTEXT:** %s\n", context)
	}

	b.WriteString(`
**YOUR RESPONSE MUST INCLUDE:**

## SEVERITY: [Critical/High/Medium/Low]

## ROOT CAUSE ANALYSIS

## IMPACT ASSESSMENT
- Users Affected:
- Services Down:
- Data at Risk:

## IMMEDIATE ACTIONS REQUIRED

## RESOLUTION STEPS
### Short-term Fix:
### Long-term Solution:

## RECOMMENDED COMMANDS

## PREVENTION STRATEGY

## VERIFICATION STEPS

Be specific, actionable, and prioritize by urgency. Think like an SRE responding to a production incident.
`)
	return b.String()
}
