package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/verte-zerg/entrylab/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// SessionTable lists stored sessions, one row each.
func SessionTable(sessions []model.SessionSummary) Table {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ParticipantID,
			s.EntryType.String(),
			s.StartedAt.Local().Format(timeLayout),
			formatDuration(s.EndedAt.Sub(s.StartedAt)),
			strconv.Itoa(s.Trials),
			strconv.Itoa(s.Events),
		})
	}
	return Table{
		Headers:    []string{"Participant", "Entry", "Started", "Duration", "Trials", "Events"},
		Rows:       rows,
		RightAlign: map[int]bool{3: true, 4: true, 5: true},
	}
}

// TemplateTable lists template counts per label in the given order.
func TemplateTable(counts map[string]int, labels []string) Table {
	rows := make([][]string, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []string{label, strconv.Itoa(counts[label])})
	}
	return Table{
		Headers:    []string{"Label", "Templates"},
		Rows:       rows,
		RightAlign: map[int]bool{1: true},
	}
}

// TrialTable lists the trials of one session.
func TrialTable(s model.Session) Table {
	rows := make([][]string, 0, len(s.Trials))
	for i, t := range s.Trials {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			t.TargetPhrase,
			t.FinalText,
			formatDuration(t.EndedAt.Sub(t.StartedAt)),
			strconv.Itoa(len(t.Events)),
		})
	}
	return Table{
		Headers:    []string{"#", "Target", "Typed", "Duration", "Events"},
		Rows:       rows,
		RightAlign: map[int]bool{0: true, 3: true, 4: true},
	}
}

// Empty writes the message shown when a listing has no rows.
func Empty(w io.Writer, what string) error {
	_, err := fmt.Fprintf(w, "no %s found\n", what)
	return err
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Round(100 * time.Millisecond).String()
}
