package domain

import "time"

// WorkItemRef is what a WIQL ID-query returns; it only lives between the
// query phase and hydration.
type WorkItemRef struct {
    ID int `json:"id"`
}

// WorkItem is a hydrated work item. Fields carries the raw field map as
// returned by the REST API; values may be strings, numbers or nested
// identity objects.
type WorkItem struct {
    ID        int              `json:"id"`
    Fields    map[string]any   `json:"fields"`
    Relations []map[string]any `json:"relations,omitempty"`
}

type FeatureRow struct {
    ID            int     `json:"id"`
    Title         string  `json:"title"`
    State         string  `json:"state"`
    WorkItemType  string  `json:"work_item_type"`
    TargetDate    string  `json:"target_date"`
    CreatedDate   string  `json:"created_date"`
    ChangedDate   string  `json:"changed_date"`
    PMO           *string `json:"pmo"`
    Responsible   string  `json:"responsible"`
    FarolStatus   string  `json:"farol_status"`
    BoardColumn   string  `json:"board_column"`
    Client        *string `json:"client"`
    AreaPath      string  `json:"area_path"`
    IterationPath string  `json:"iteration_path"`
}

// EpicRow is the authoritative source of which clients exist; the client
// name is derived from the Epic title.
type EpicRow struct {
    ID           int     `json:"id"`
    Title        string  `json:"title"`
    Client       *string `json:"client"`
    WorkItemType string  `json:"work_item_type"`
}

type ClientSummary struct {
    Key    string `json:"key"`
    Name   string `json:"name"`
    Active int    `json:"active"`
    Total  int    `json:"total"`
    Closed int    `json:"closed"`
}

type Totals struct {
    Total        int `json:"total"`
    Open         int `json:"open"`
    Overdue      int `json:"overdue"`
    NearDeadline int `json:"near_deadline"`
    Closed       int `json:"closed"`
}

type Lists struct {
    Total        []FeatureRow `json:"total"`
    Open         []FeatureRow `json:"open"`
    Overdue      []FeatureRow `json:"overdue"`
    NearDeadline []FeatureRow `json:"near_deadline"`
    Closed       []FeatureRow `json:"closed"`
}

type ClientsSection struct {
    Epics       []EpicRow       `json:"epics"`
    Count       int             `json:"count"`
    Summary     []ClientSummary `json:"summary"`
    UniqueCount int             `json:"unique_count"`
}

type PMOSection struct {
    Items []string `json:"items"`
    Count int      `json:"count"`
}

type StatusGroup struct {
    Count int          `json:"count"`
    Items []FeatureRow `json:"items"`
}

type Meta struct {
    Org              string  `json:"org"`
    Project          string  `json:"project"`
    APIVersion       string  `json:"api_version"`
    GeneratedAt      string  `json:"generated_at"`
    NearDeadlineDays int     `json:"near_deadline_days"`
    ClientFilter     *string `json:"client_filter"`
}

type CacheInfo struct {
    Hit        bool `json:"hit"`
    TTLSeconds int  `json:"ttlSeconds"`
}

type ConsolidatedReport struct {
    Meta             Meta                   `json:"meta"`
    Cache            CacheInfo              `json:"cache"`
    Totals           Totals                 `json:"totals"`
    Lists            Lists                  `json:"lists"`
    Clients          ClientsSection         `json:"clients"`
    PMOs             PMOSection             `json:"pmos"`
    FeaturesByStatus map[string]StatusGroup `json:"features_by_status"`
}

// FeatureListRow is the thin shape served by the v2 feature listing.
type FeatureListRow struct {
    ID              int      `json:"id"`
    Title           string   `json:"title"`
    State           string   `json:"state"`
    NormalizedState string   `json:"normalized_state"`
    Client          *string  `json:"client"`
    PMO             *string  `json:"pmo"`
    TargetDate      string   `json:"target_date"`
    BoardColumn     string   `json:"board_column"`
    FarolStatus     string   `json:"farol_status"`
    ChangedDate     string   `json:"changed_date"`
    CreatedDate     string   `json:"created_date"`
    Tags            []string `json:"tags"`
}

type WebhookEvent struct {
    ID         int64     `json:"id"`
    EventType  string    `json:"event_type"`
    WorkItemID int       `json:"work_item_id"`
    Payload    string    `json:"payload"`
    ReceivedAt time.Time `json:"received_at"`
}
