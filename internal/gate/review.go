package gate

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Reviewer runs the interactive approval dialog with the human engagement
// lead. Reviews are read line by line from in and prompts written to out,
// so a test can drive it with buffers.
type Reviewer struct {
	in       *bufio.Scanner
	out      io.Writer
	gate     *Gate
	approver string
	log      *slog.Logger
}

// NewReviewer builds a reviewer acting as approver (manager role is
// assumed; the gate still enforces it).
func NewReviewer(in io.Reader, out io.Writer, g *Gate, approver string, log *slog.Logger) *Reviewer {
	return &Reviewer{
		in:       bufio.NewScanner(in),
		out:      out,
		gate:     g,
		approver: approver,
		log:      log,
	}
}

// Review prompts until a terminal answer arrives. Comments are recorded
// and the loop continues; approve and reject end the review. The returned
// bool reports approval.
func (r *Reviewer) Review(subject, summary string) (bool, error) {
	r.log.Info("review started", "subject", subject, "approver", r.approver)
	fmt.Fprintf(r.out, "\n=== Review: %s ===\n%s\n", subject, summary)

	for {
		fmt.Fprintf(r.out, "Approve %s? (yes/no/comments): ", subject)
		line, err := r.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "yes", "y", "approve", "approved":
			if err := r.gate.Approve(subject, r.approver, ManagerRole); err != nil {
				return false, err
			}
			fmt.Fprintf(r.out, "%s approved.\n", subject)
			return true, nil

		case "no", "n", "reject", "rejected":
			fmt.Fprint(r.out, "Feedback for the team: ")
			feedback, err := r.readLine()
			if err != nil {
				return false, err
			}
			if err := r.gate.Reject(subject, r.approver, ManagerRole, feedback); err != nil {
				return false, err
			}
			fmt.Fprintf(r.out, "%s rejected.\n", subject)
			return false, nil

		case "comments", "comment", "c":
			fmt.Fprint(r.out, "Comment: ")
			note, err := r.readLine()
			if err != nil {
				return false, err
			}
			if err := r.gate.Comment(subject, note); err != nil {
				return false, err
			}
			fmt.Fprintln(r.out, "Comment recorded.")

		default:
			fmt.Fprintln(r.out, "Invalid response. Please answer yes, no, or comments.")
		}
	}
}

func (r *Reviewer) readLine() (string, error) {
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", fmt.Errorf("read review input: %w", err)
		}
		return "", io.ErrUnexpectedEOF
	}
	return r.in.Text(), nil
}

// AutoApprove signs off a subject without human input, for unattended
// runs. The approval is logged so the trail shows no human reviewed it.
func AutoApprove(g *Gate, subject, approver string, log *slog.Logger) error {
	if err := g.Approve(subject, approver, ManagerRole); err != nil {
		return err
	}
	log.Warn("artifact auto-approved without human review", "subject", subject, "approver", approver)
	return nil
}
