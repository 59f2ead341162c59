package wiql

import (
    "strings"
    "testing"
)

func TestQuote_DoublesSingleQuotes(t *testing.T) {
    if got := Quote("O'Brien's"); got != "O''Brien''s" { t.Fatalf("got %q", got) }
    if got := Quote("plain"); got != "plain" { t.Fatalf("got %q", got) }
}

func TestBuilders_EmbedQuotedProject(t *testing.T) {
    q := TotalFeatures("Quali IT - Inova'ção")
    if !strings.Contains(q, "'Quali IT - Inova''ção'") {
        t.Fatalf("project not quote-doubled:\n%s", q)
    }
    if strings.Contains(q, "ORDER BY") { t.Fatalf("ID-queries must not order") }
}

func TestBuilders_Predicates(t *testing.T) {
    p := "Projeto X"
    if q := OpenFeatures(p); !strings.Contains(q, "[System.State] <> 'Closed'") {
        t.Fatalf("open predicate missing:\n%s", q)
    }
    if q := OverdueFeatures(p); !strings.Contains(q, "[Microsoft.VSTS.Scheduling.TargetDate] < @Today") {
        t.Fatalf("overdue predicate missing:\n%s", q)
    }
    if q := NearDeadlineCandidates(p); !strings.Contains(q, "[Microsoft.VSTS.Scheduling.TargetDate] >= @Today") {
        t.Fatalf("candidate predicate must be the wide one:\n%s", q)
    }
    if q := ClosedFeatures(p); !strings.Contains(q, "[System.State] = 'Closed'") {
        t.Fatalf("closed predicate missing:\n%s", q)
    }
    if q := Epics(p); !strings.Contains(q, "'Epic'") {
        t.Fatalf("epic type missing:\n%s", q)
    }
    if q := FeaturesByStatus(p, "Em Garantia"); !strings.Contains(q, "[System.State] = 'Em Garantia'") {
        t.Fatalf("status predicate missing:\n%s", q)
    }
}
