// Package wiql builds the flat ID-selection queries sent to Azure DevOps.
// Builders are pure: ordering and paging are omitted on purpose because
// hydration re-keys by ID.
package wiql

import (
    "fmt"
    "strings"
)

// Quote doubles embedded single quotes for safe embedding in a WIQL string
// literal. Callers embedding literals must route them through here.
func Quote(s string) string {
    return strings.ReplaceAll(s, "'", "''")
}

func TotalFeatures(project string) string {
    return fmt.Sprintf(`SELECT
    [System.Id]
FROM workitems
WHERE
    [System.TeamProject] = '%s'
    AND [System.WorkItemType] = 'Feature'`, Quote(project))
}

func OpenFeatures(project string) string {
    return fmt.Sprintf(`SELECT
    [System.Id]
FROM workitems
WHERE
    [System.TeamProject] = '%s'
    AND [System.WorkItemType] = 'Feature'
    AND [System.State] <> 'Closed'`, Quote(project))
}

func OverdueFeatures(project string) string {
    return fmt.Sprintf(`SELECT
    [System.Id]
FROM workitems
WHERE
    [System.TeamProject] = '%s'
    AND [System.WorkItemType] = 'Feature'
    AND [System.State] <> 'Closed'
    AND [Microsoft.VSTS.Scheduling.TargetDate] < @Today`, Quote(project))
}

// NearDeadlineCandidates is intentionally wider than the final answer: the
// dialect cannot express a bounded future window, so the engine refines the
// hydrated rows in memory.
func NearDeadlineCandidates(project string) string {
    return fmt.Sprintf(`SELECT
    [System.Id]
FROM workitems
WHERE
    [System.TeamProject] = '%s'
    AND [System.WorkItemType] = 'Feature'
    AND [System.State] <> 'Closed'
    AND [Microsoft.VSTS.Scheduling.TargetDate] >= @Today`, Quote(project))
}

func ClosedFeatures(project string) string {
    return fmt.Sprintf(`SELECT
    [System.Id]
FROM workitems
WHERE
    [System.TeamProject] = '%s'
    AND [System.WorkItemType] = 'Feature'
    AND [System.State] = 'Closed'`, Quote(project))
}

func Epics(project string) string {
    return fmt.Sprintf(`SELECT
    [System.Id],
    [System.Title]
FROM workitems
WHERE
    [System.TeamProject] = '%s'
    AND [System.WorkItemType] = 'Epic'`, Quote(project))
}

func FeaturesByStatus(project, status string) string {
    return fmt.Sprintf(`SELECT
    [System.Id]
FROM workitems
WHERE
    [System.TeamProject] = '%s'
    AND [System.WorkItemType] = 'Feature'
    AND [System.State] = '%s'`, Quote(project), Quote(status))
}
