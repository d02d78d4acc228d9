package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	fwotel "github.com/fieldwork-ai/fieldwork/internal/adapter/otel"
	"github.com/fieldwork-ai/fieldwork/internal/adapter/ws"
	"github.com/fieldwork-ai/fieldwork/internal/budget"
	"github.com/fieldwork-ai/fieldwork/internal/dashboard"
	"github.com/fieldwork-ai/fieldwork/internal/domain/audit"
	"github.com/fieldwork-ai/fieldwork/internal/engine"
	"github.com/fieldwork-ai/fieldwork/internal/gate"
	"github.com/fieldwork-ai/fieldwork/internal/simclock"
	"github.com/fieldwork-ai/fieldwork/internal/team"
)

// maxReviewRounds bounds how often a rejected artifact is sent back to the
// manager before the engagement gives up.
const maxReviewRounds = 3

const riskAssessmentGoal = `Perform a risk assessment for the CloudRetail Inc ` +
	`engagement. Identify the high-risk control domains (identity and access ` +
	`management, data encryption, network security, logging, change management), ` +
	`rate likelihood and impact for each, and document the assessment.`

const auditPlanGoal = `Create the audit plan from the approved risk assessment. ` +
	`For each high-risk control domain define test procedures, assign a budget ` +
	`in hours, and document the plan. Delegate fieldwork preparation to your ` +
	`senior auditors once the plan is approved.`

// planAllocation is the hour budget the approved audit plan distributes
// across the high-risk control domains.
var planAllocation = audit.BudgetAllocation{
	TotalHours: 240,
	ByDomain: map[string]float64{
		"identity_and_access_management": 60,
		"data_encryption":                45,
		"network_security":               45,
		"logging_and_monitoring":         45,
		"change_management":              45,
	},
}

// fieldworkGoals maps each non-manager team member to their fieldwork
// assignment, run concurrently in phase three.
var fieldworkGoals = map[string]string{
	"Esther": "Supervise testing of identity and access management controls. Assign evidence collection to Hillel, then execute the access review test procedures against the returned evidence and document results in a workpaper.",
	"Chuck":  "Supervise testing of data encryption and network security controls. Assign evidence collection to Neil, then execute the encryption and firewall test procedures against the returned evidence and document results in a workpaper.",
	"Victor": "Supervise testing of logging and change management controls. Assign evidence collection to Juman, then execute the log review test procedures against the returned evidence and document results in a workpaper.",
	"Hillel": "Collect the identity and access management evidence assigned to you: user listings, MFA status and privileged account inventory. Store each item with provenance and report back to Esther.",
	"Neil":   "Collect the data encryption and network security evidence assigned to you: bucket encryption settings and firewall rules. Store each item with provenance and report back to Chuck.",
	"Juman":  "Collect the logging and change management evidence assigned to you: audit log configuration and recent change tickets. Store each item with provenance and report back to Victor.",
}

// engagement bundles everything the audit driver touches.
type engagement struct {
	team        *team.Team
	gate        *gate.Gate
	reviewer    *gate.Reviewer
	hub         *ws.Hub
	metrics     *fwotel.Metrics
	state       *dashboard.State
	clock       *simclock.Clock
	approver    string
	autoApprove bool
	log         *slog.Logger
}

// run drives the three audit phases: risk assessment, planning and
// fieldwork. Phases one and two end at the human review gate; phase
// three only starts once the audit plan is approved.
func (e *engagement) run(ctx context.Context) error {
	auditTeam, reviewGate := e.team, e.gate
	reviewer, hub, metrics := e.reviewer, e.hub, e.metrics
	approver, autoApprove, log := e.approver, e.autoApprove, e.log

	manager, ok := auditTeam.Get("Maurice")
	if !ok {
		return fmt.Errorf("no manager on the team")
	}

	// One simulated week each for assessment and planning, two for
	// fieldwork.
	week := 7 * 24 * time.Hour
	schedule, err := e.clock.Phases(
		[]string{gate.SubjectRiskAssessment, gate.SubjectAuditPlan, "fieldwork"},
		[]time.Duration{week, week, 2 * week},
	)
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	for _, p := range schedule {
		log.Info("engagement schedule", "phase", p.Name,
			"sim_start", p.Start.Format("2006-01-02"),
			"sim_end", p.End.Format("2006-01-02"))
	}

	phases := []struct {
		subject string
		goal    string
	}{
		{gate.SubjectRiskAssessment, riskAssessmentGoal},
		{gate.SubjectAuditPlan, auditPlanGoal},
	}

	for _, phase := range phases {
		log.Info("phase started", "subject", phase.subject)

		goal := phase.goal
		for round := 1; ; round++ {
			start := time.Now()
			goalCtx, goalSpan := fwotel.StartGoalSpan(ctx, manager.Name(), goal)
			runErr := manager.Run(goalCtx, goal)
			goalSpan.End()
			observeGoal(ctx, metrics, manager, time.Since(start))
			if runErr != nil {
				return fmt.Errorf("%s: %w", phase.subject, runErr)
			}

			reviewCtx, span := fwotel.StartReviewSpan(ctx, phase.subject)
			approved, err := reviewArtifact(reviewGate, reviewer, phase.subject,
				artifactSummary(manager.Documents()), approver, autoApprove, log)
			span.End()
			if err != nil {
				return fmt.Errorf("review %s: %w", phase.subject, err)
			}
			broadcastApproval(reviewCtx, hub, reviewGate, phase.subject)
			if approved {
				break
			}
			if round >= maxReviewRounds {
				return fmt.Errorf("%s rejected after %d rounds", phase.subject, round)
			}

			feedback := lastFeedback(reviewGate, phase.subject)
			manager.Reset()
			goal = fmt.Sprintf("Your %s was rejected by %s. Feedback: %s\n\nRevise it and document the updated version.",
				strings.ReplaceAll(phase.subject, "_", " "), approver, feedback)
		}

		manager.Reset()
		log.Info("phase approved", "subject", phase.subject)
	}

	tracker, err := budget.FromPlan(planAllocation)
	if err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	e.state.SetBudget(tracker)

	log.Info("phase started", "subject", "fieldwork")
	start := time.Now()
	runErr := auditTeam.Run(ctx, fieldworkGoals)
	elapsed := time.Since(start)
	for _, a := range auditTeam.Agents() {
		if a.Role() != team.RoleManager {
			observeGoal(ctx, metrics, a, elapsed)
		}
	}

	// Fieldwork runs concurrently, so the elapsed simulated time is
	// attributed to each domain by its planned share of the hours.
	simHours := elapsed.Hours() * e.clock.Ratio()
	for domain, hours := range planAllocation.ByDomain {
		if err := tracker.Record(domain, simHours*hours/planAllocation.TotalHours); err != nil {
			return fmt.Errorf("budget: %w", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("fieldwork: %w", runErr)
	}
	return nil
}

// observeGoal records the goal's duration and terminal state. metrics may
// be nil when telemetry is disabled.
func observeGoal(ctx context.Context, metrics *fwotel.Metrics, a *engine.Agent, elapsed time.Duration) {
	if metrics == nil {
		return
	}
	agent := metric.WithAttributes(attribute.String("agent.name", a.Name()))
	metrics.GoalDuration.Record(ctx, elapsed.Seconds(), agent)
	if a.State() == engine.StateBlocked {
		metrics.GoalsBlocked.Add(ctx, 1, agent)
	}
}

// reviewArtifact routes one artifact through the configured review path.
func reviewArtifact(g *gate.Gate, reviewer *gate.Reviewer, subject, summary, approver string,
	autoApprove bool, log *slog.Logger) (bool, error) {
	if autoApprove {
		if err := gate.AutoApprove(g, subject, approver, log); err != nil {
			return false, err
		}
		return true, nil
	}
	return reviewer.Review(subject, summary)
}

// artifactSummary shows the manager's most recent document to the reviewer,
// falling back to a placeholder when nothing was documented.
func artifactSummary(documents []string) string {
	if len(documents) == 0 {
		return "(no document produced)"
	}
	return documents[len(documents)-1]
}

// broadcastApproval pushes the subject's current review status to the
// dashboard feed.
func broadcastApproval(ctx context.Context, hub *ws.Hub, g *gate.Gate, subject string) {
	for _, a := range g.Approvals() {
		if a.Subject == subject {
			hub.BroadcastEvent(ctx, ws.EventApproval, ws.ApprovalEvent{
				Subject:  a.Subject,
				Status:   string(a.Status),
				Approver: a.Approver,
			})
			return
		}
	}
}

// lastFeedback returns the newest reviewer comment for the subject.
func lastFeedback(g *gate.Gate, subject string) string {
	for _, a := range g.Approvals() {
		if a.Subject == subject && len(a.Comments) > 0 {
			return a.Comments[len(a.Comments)-1]
		}
	}
	return "(no feedback given)"
}
