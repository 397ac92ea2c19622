package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/tidslinje/internal/domain"
)

const reportDateFormat = "2006-01-02 15:04"

// Report renders a markdown schedule summary as of now.
func (s *Service) Report(ctx context.Context) (string, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return "", err
	}
	now := s.clock()
	names := make(map[string]string, len(tasks))
	counts := map[domain.Status]int{}
	var late []domain.Task
	for _, task := range tasks {
		names[task.ID] = task.Name
		counts[task.Status]++
		if task.Status != domain.StatusDone && task.End.Before(now) {
			late = append(late, task)
		}
	}

	var b strings.Builder
	b.WriteString("# Schedule report\n\n")
	fmt.Fprintf(&b, "Generated %s. %d tasks.\n\n", now.Format(reportDateFormat), len(tasks))
	if len(tasks) == 0 {
		return b.String(), nil
	}

	b.WriteString("## Status\n\n| Status | Tasks |\n| --- | ---: |\n")
	for _, status := range []domain.Status{domain.StatusPending, domain.StatusInProgress, domain.StatusWarning, domain.StatusOverdue, domain.StatusDone} {
		if counts[status] > 0 {
			fmt.Fprintf(&b, "| %s | %d |\n", status, counts[status])
		}
	}

	b.WriteString("\n## Tasks\n\n| Row | Task | Start | End | Progress | Depends on |\n| ---: | --- | --- | --- | ---: | --- |\n")
	for _, task := range tasks {
		deps := make([]string, 0, len(task.Dependencies))
		for _, dep := range task.Dependencies {
			if name, ok := names[dep]; ok {
				deps = append(deps, name)
			}
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d%% | %s |\n",
			task.Row, escapeCell(label(task)), task.Start.Format(reportDateFormat), task.End.Format(reportDateFormat),
			task.Progress, escapeCell(strings.Join(deps, ", ")))
	}

	if len(late) > 0 {
		b.WriteString("\n## Past due\n\n")
		for _, task := range late {
			fmt.Fprintf(&b, "- **%s** ended %s ago at %d%%\n", escapeCell(task.Name), roundDuration(now.Sub(task.End)), task.Progress)
		}
	}
	return b.String(), nil
}

func label(t domain.Task) string {
	switch t.Type {
	case domain.TaskTypeMilestone:
		return "◆ " + t.Name
	case domain.TaskTypeProject:
		return "**" + t.Name + "**"
	default:
		return t.Name
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func roundDuration(d time.Duration) string {
	if d >= 24*time.Hour {
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
	return d.Round(time.Minute).String()
}
