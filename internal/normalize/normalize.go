/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package normalize

import (
    "strings"
    "time"
    "unicode"

    "golang.org/x/text/cases"
    "golang.org/x/text/language"
    "golang.org/x/text/runes"
    "golang.org/x/text/transform"
    "golang.org/x/text/unicode/norm"
)

// Known spellings of the organization root collapse to one dedupe key.
var clientKeyAliases = map[string]string{
    "qualiit":                    "qualiit",
    "qualit":                     "qualiit",
    "qualiitinovacaoetecnologia": "qualiit",
}

// Fixed display forms for keys whose title-cased rendering would drift
// across upstream spellings.
var canonicalDisplay = map[string]string{
    "qualiit": "Quali IT",
    "aurora":  "Aurora",
}

var farolTable = []struct{ substr, label string }{
    {"sem problema", "Sem Problema"},
    {"green", "Sem Problema"},
    {"com problema", "Com Problema"},
    {"yellow", "Com Problema"},
    {"problema crítico", "Problema Crítico"},
    {"problema critico", "Problema Crítico"},
    {"red", "Problema Crítico"},
}

const FarolUndefined = "Indefinido"

func stripDiacritics(s string) string {
    t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
    out, _, err := transform.String(t, s)
    if err != nil { return s }
    return out
}

// ClientKey builds the dedupe key for a client name: diacritics stripped,
// lowercased, everything outside [a-z0-9] dropped, aliases collapsed.
// Idempotent; empty or whitespace-only input yields "".
func ClientKey(value string) string {
    s := strings.TrimSpace(value)
    if s == "" { return "" }
    s = strings.ToLower(stripDiacritics(s))
    var b strings.Builder
    for _, r := range s {
        if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') { b.WriteRune(r) }
    }
    key := b.String()
    if alias, ok := clientKeyAliases[key]; ok { return alias }
    return key
}

// CanonicalClientName renders a display name: fixed forms for known keys,
// otherwise each space/hyphen-separated word title-cased. Returns "" for
// empty input.
func CanonicalClientName(value string) string {
    s := strings.TrimSpace(value)
    if s == "" { return "" }
    if display, ok := canonicalDisplay[ClientKey(s)]; ok { return display }
    words := strings.Fields(strings.ReplaceAll(s, "-", " "))
    if len(words) == 0 { return "" }
    caser := cases.Title(language.BrazilianPortuguese)
    for i, w := range words { words[i] = caser.String(strings.ToLower(w)) }
    return strings.Join(words, " ")
}

// ExtractClientName derives the client from the area path, falling back to
// the iteration path. Both / and \ separators and trailing separators are
// accepted; the last segment is used unless it names the project root.
func ExtractClientName(areaPath, iterationPath, rootProject string) string {
    rootKey := ClientKey(rootProject)
    if c := clientFromPath(areaPath, rootKey); c != "" { return c }
    return clientFromPath(iterationPath, rootKey)
}

func clientFromPath(path, rootKey string) string {
    p := strings.ReplaceAll(path, "/", "\\")
    p = strings.TrimRight(p, "\\")
    if p == "" { return "" }
    parts := strings.Split(p, "\\")
    seg := strings.TrimSpace(parts[len(parts)-1])
    if seg == "" { return "" }
    // drop project suffixes: "Acme - Rollout SAP" names the Acme client
    if base, _, found := strings.Cut(seg, " - "); found { seg = strings.TrimSpace(base) }
    name := CanonicalClientName(seg)
    if name == "" { return "" }
    key := ClientKey(name)
    if key == "qualiit" || (rootKey != "" && key == rootKey) { return "" }
    return name
}

// SafeDisplayName extracts a person's display name from an AssignedTo-style
// field, which may arrive as an identity object, a raw string, or nothing.
// Address-like values are never leaked as names.
func SafeDisplayName(value any) string {
    var s string
    switch t := value.(type) {
    case nil:
        return ""
    case map[string]any:
        s, _ = t["displayName"].(string)
    case string:
        s = t
    default:
        return ""
    }
    s = strings.TrimSpace(s)
    if strings.Contains(s, "@") { return "" }
    return s
}

// FarolStatus collapses free-text health labels into the four fixed
// buckets; anything unrecognized is Indefinido.
func FarolStatus(value any) string {
    s, _ := value.(string)
    s = strings.ToLower(strings.TrimSpace(s))
    if s == "" { return FarolUndefined }
    for _, e := range farolTable {
        if strings.Contains(s, e.substr) { return e.label }
    }
    return FarolUndefined
}

// State collapses state synonyms and prefixes into the configured status
// vocabulary used for card grouping. Unknown states pass through trimmed.
func State(raw string, statuses []string) string {
    key := strings.ToLower(strings.TrimSpace(raw))
    if key == "" { return "" }
    for _, s := range statuses {
        if strings.ToLower(s) == key { return s }
    }
    switch {
    case key == "new" || key == "novo" || key == "proposed":
        return "New"
    case strings.Contains(key, "planejamento"):
        return "Em Planejamento"
    case key == "active" || key == "doing" || strings.Contains(key, "andamento") || strings.Contains(key, "in progress"):
        return "Em Andamento"
    case strings.Contains(key, "critica") || strings.Contains(key, "crítica"):
        return "Projeto em Fase Critica"
    case strings.Contains(key, "homologação interna") || strings.Contains(key, "homologacao interna"):
        return "Homologação Interna"
    case strings.Contains(key, "homolog"):
        return "Em Homologação"
    case strings.Contains(key, "encerramento"):
        return "Em Fase de Encerramento"
    case strings.Contains(key, "garantia"):
        return "Em Garantia"
    case key == "paused" || strings.Contains(key, "pausado"):
        return "Pausado pelo Cliente"
    case key == "closed" || key == "done" || key == "resolved":
        return "Closed"
    }
    return strings.TrimSpace(raw)
}

var dayLayouts = []string{"2006-01-02T15:04:05", "2006-01-02"}

// ParseDay parses an upstream date field down to a calendar day. The zone
// suffix is dropped, not converted: target dates arrive as UTC midnight,
// and converting that instant to a west-of-UTC local zone would shift the
// written date back a day. Malformed input reports ok=false and is treated
// as absent.
func ParseDay(value any) (time.Time, bool) {
    s, _ := value.(string)
    s = strings.TrimSpace(s)
    if s == "" { return time.Time{}, false }
    if i := strings.IndexAny(s, "Z+"); i >= 0 { s = s[:i] }
    for _, layout := range dayLayouts {
        if t, err := time.ParseInLocation(layout, s, time.Local); err == nil { return Day(t), true }
    }
    return time.Time{}, false
}

// Day strips time-of-day, keeping the local calendar date.
func Day(t time.Time) time.Time {
    y, m, d := t.Local().Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// FieldString reads a string field from a raw work item field map.
func FieldString(fields map[string]any, key string) string {
    s, _ := fields[key].(string)
    return s
}

// SplitTags splits the semicolon-joined upstream tag field.
func SplitTags(raw string) []string {
    out := make([]string, 0, 4)
    for _, t := range strings.Split(raw, ";") {
        t = strings.TrimSpace(t)
        if t != "" { out = append(out, t) }
    }
    return out
}
