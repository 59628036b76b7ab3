// Package alerts implements the rule evaluation engine and webhook delivery
// for HRVStack alerting. Rules are evaluated against incoming readings;
// webhooks are delivered to Teams, Slack, PagerDuty, or generic HTTP targets.
package alerts
