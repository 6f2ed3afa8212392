package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mhrnqaruni/ata-live-client/internal/live"
)

// renderLoop prints state snapshots as the client publishes them. Only
// meaningful transitions are printed so the console stays readable
// between one-second countdown ticks.
func renderLoop(ctx context.Context, client *live.Client, role live.Role) {
	var last live.SessionState
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-client.Updates():
			printTransition(last, snap, role)
			last = snap
		}
	}
}

func printTransition(prev, next live.SessionState, role live.Role) {
	if next.Phase != prev.Phase {
		switch next.Phase {
		case live.PhaseWaiting:
			fmt.Printf("waiting, %d joined\n", next.Session.ParticipantCount)
		case live.PhaseFinished:
			fmt.Printf("session %s\n", next.Session.Status)
			printLeaderboard(next, 0)
		}
	}

	if next.CurrentQuestion != nil &&
		(prev.CurrentQuestion == nil || prev.CurrentQuestion.ID != next.CurrentQuestion.ID) {
		printQuestion(next, role)
	}

	if next.ShowingResults && !prev.ShowingResults {
		printLeaderboard(next, 5)
	}

	if next.Phase == live.PhaseQuestion && next.QuestionRemaining != prev.QuestionRemaining &&
		next.QuestionRemaining <= 5 && next.QuestionRemaining > 0 {
		fmt.Printf("  %ds...\n", next.QuestionRemaining)
	}

	if role == live.RoleHost && next.AnswersReceived != prev.AnswersReceived && next.Phase == live.PhaseQuestion {
		fmt.Printf("  answers: %d/%d\n", next.AnswersReceived, next.Session.ParticipantCount)
	}
}

func printQuestion(snap live.SessionState, role live.Role) {
	q := snap.CurrentQuestion
	fmt.Printf("\nQ%d/%d (%d pts, %ds): %s\n",
		snap.QuestionIndex+1, snap.TotalQuestions, q.Points, q.TimeLimitSeconds, q.QuestionText)
	for i, option := range q.Options {
		fmt.Printf("  [%d] %s\n", i, option)
	}
	if role == live.RoleParticipant {
		switch q.QuestionType {
		case "true_false":
			fmt.Println("answer with: true | false")
		case "short_answer":
			fmt.Println("type your answer and press enter")
		default:
			fmt.Println("answer with an option number")
		}
	}
}

func printLeaderboard(snap live.SessionState, limit int) {
	if len(snap.Leaderboard) == 0 {
		return
	}
	fmt.Println("leaderboard:")
	for _, entry := range snap.Leaderboard {
		if limit > 0 && entry.Rank > limit {
			break
		}
		fmt.Printf("  %2d. %-20s %d\n", entry.Rank, truncate(entry.DisplayName, 20), entry.Score)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}
