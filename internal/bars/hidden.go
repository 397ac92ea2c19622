package bars

import "github.com/hylla/tidslinje/internal/domain"

// RemoveHidden drops the descendants of collapsed projects. A project's
// descendants are its member tasks plus, transitively, the members of nested
// projects and the dependents of member tasks.
func RemoveHidden(tasks []domain.Task) []domain.Task {
	hidden := map[string]struct{}{}
	for _, task := range tasks {
		if task.Type != domain.TaskTypeProject || !task.HideChildren {
			continue
		}
		if _, gone := hidden[task.ID]; gone {
			continue
		}
		for id := range descendants(tasks, task) {
			hidden[id] = struct{}{}
		}
	}
	if len(hidden) == 0 {
		return tasks
	}
	out := make([]domain.Task, 0, len(tasks)-len(hidden))
	for _, task := range tasks {
		if _, gone := hidden[task.ID]; !gone {
			out = append(out, task)
		}
	}
	return out
}

func descendants(tasks []domain.Task, root domain.Task) map[string]struct{} {
	seen := map[string]struct{}{root.ID: {}}
	out := map[string]struct{}{}
	queue := []domain.Task{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, candidate := range tasks {
			if _, ok := seen[candidate.ID]; ok {
				continue
			}
			if !ownedBy(candidate, current) {
				continue
			}
			seen[candidate.ID] = struct{}{}
			out[candidate.ID] = struct{}{}
			queue = append(queue, candidate)
		}
	}
	return out
}

func ownedBy(candidate, owner domain.Task) bool {
	if owner.Type == domain.TaskTypeProject {
		return candidate.Project == owner.ID
	}
	for _, dep := range candidate.Dependencies {
		if dep == owner.ID {
			return true
		}
	}
	return false
}
