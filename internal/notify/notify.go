// Package notify posts a generated schedule's summary to Slack.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	goslack "github.com/slack-go/slack"

	"github.com/wisbric/shiftroster/internal/engine"
	"github.com/wisbric/shiftroster/internal/telemetry"
)

// Notifier posts run summaries to a Slack channel.
type Notifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. If botToken is empty, the notifier is a
// noop — IsEnabled reports false and every Post call returns immediately.
func NewNotifier(botToken, channel string, logger *slog.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{client: client, channel: channel, logger: logger}
}

// IsEnabled reports whether the notifier has a usable Slack client and
// destination channel.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// coverageEmoji gives a quick visual read on how complete a run is.
func coverageEmoji(coverage float64) string {
	switch {
	case coverage >= 0.999:
		return "🟢"
	case coverage >= 0.9:
		return "🟡"
	default:
		return "🔴"
	}
}

// RunSummaryBlocks builds the Block Kit message for a completed run.
func RunSummaryBlocks(runID uuid.UUID, stats engine.Statistics, warnings []string) []goslack.Block {
	header := goslack.NewHeaderBlock(
		goslack.NewTextBlockObject(goslack.PlainTextType,
			fmt.Sprintf("%s Schedule run %s", coverageEmoji(stats.Coverage), runID), true, false),
	)

	fields := []*goslack.TextBlockObject{
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Coverage:* %.1f%%", stats.Coverage*100), false, false),
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Balance score:* %.2f", stats.BalanceScore), false, false),
	}
	totalViolations := 0
	for _, v := range stats.Violations {
		totalViolations += v
	}
	fields = append(fields, goslack.NewTextBlockObject(goslack.MarkdownType,
		fmt.Sprintf("*Unresolved violations:* %d", totalViolations), false, false))

	blocks := []goslack.Block{header, goslack.NewSectionBlock(nil, fields, nil)}

	if len(warnings) > 0 {
		text := "*Warnings:*\n"
		for _, w := range warnings {
			text += fmt.Sprintf("• %s\n", w)
		}
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil))
	}

	return blocks
}

// PostRunSummary posts a completed run's coverage, balance score, and any
// warnings to the configured channel. It is a no-op when the notifier is
// disabled.
func (n *Notifier) PostRunSummary(ctx context.Context, runID uuid.UUID, result *engine.Result) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping run summary", "run_id", runID)
		return nil
	}

	blocks := RunSummaryBlocks(runID, result.Statistics, result.Warnings)
	opts := []goslack.MsgOption{
		goslack.MsgOptionBlocks(blocks...),
		goslack.MsgOptionText(fmt.Sprintf("Schedule run %s: %.1f%% coverage", runID, result.Statistics.Coverage*100), false),
	}

	channelID, ts, err := n.client.PostMessageContext(ctx, n.channel, opts...)
	if err != nil {
		return fmt.Errorf("posting run summary to slack: %w", err)
	}

	telemetry.SlackNotificationsTotal.WithLabelValues("run_summary").Inc()
	n.logger.Info("posted run summary to slack", "run_id", runID, "channel", channelID, "ts", ts)
	return nil
}

// PostFailure posts a terse failure notice for a run that never produced a
// schedule.
func (n *Notifier) PostFailure(ctx context.Context, runID uuid.UUID, cause error) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping failure notice", "run_id", runID)
		return nil
	}

	text := fmt.Sprintf("🔴 Schedule run %s failed: %s", runID, cause.Error())
	_, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting failure notice to slack: %w", err)
	}
	telemetry.SlackNotificationsTotal.WithLabelValues("failure").Inc()
	return nil
}
