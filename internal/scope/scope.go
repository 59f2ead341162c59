/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package scope

import (
    "errors"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/marcelomcd/NewFarol-sub000/internal/config"
)

type Kind int

const (
    Unrestricted Kind = iota
    Client
    Unknown
)

// Scope is a caller's visibility restriction. Unknown is a first-class
// degenerate case, not an error: the engine answers it with an all-zero
// report.
type Scope struct {
    Kind   Kind
    Client string
}

const adminDomain = "qualiit.com.br"

// Static identity-domain registry. Only organization callers see
// everything; every other mapped domain is pinned to its client.
var domainClients = map[string]string{
    "ale.com.br":                "Ale",
    "arteb.com.br":              "Arteb",
    "aurora.com.br":             "Aurora",
    "belliz.com.br":             "Belliz",
    "berlan.com.br":             "Berlan",
    "blanver.com.br":            "Blanver",
    "brinks.com.br":             "Brinks",
    "brmania.com.br":            "Brmania",
    "camil.com.br":              "Camil",
    "casagiacomo.com.br":        "Casa Giacomo",
    "combio.com.br":             "Combio",
    "consigaz.com.br":           "Consigaz",
    "copagaz.com.br":            "Copagaz",
    "delivoro.com.br":           "Delivoro",
    "diebold.com.br":            "Diebold",
    "dislub.com.br":             "Dislub",
    "ecopistas.com.br":          "Ecopistas",
    "forzamaquina.com.br":       "Forza Maquina",
    "fuchs.com":                 "Fuchs",
    "gpa.com.br":                "Gpa",
    "iberia.com.br":             "Iberia",
    "integrada.coop.br":         "Integrada",
    "liotecnica.com.br":         "Liotecnica",
    "lorenzetti.com.br":         "Lorenzetti",
    "moinhopaulista.com.br":     "Moinho Paulista",
    "nttdata.com.br":            "NTT Data Business",
    "petronac.com.br":           "Petronac",
    "plascar.com.br":            "Plascar",
    "procurementcompass.com.br": "Procurement Compass",
    "santacolomba.com.br":       "Santa Colomba",
    "supergasbras.com.br":       "Supergasbras",
    "tulipa.com.br":             "Tulipa",
    "utc.com.br":                "Utc",
}

type Resolver struct {
    secret   []byte
    tokenTTL time.Duration
}

func NewResolver(cfg config.Config) *Resolver {
    return &Resolver{secret: []byte(cfg.SecretKey), tokenTTL: cfg.TokenTTL}
}

// Resolve derives the caller scope from an opaque identity token. Absent or
// unverifiable tokens resolve Unrestricted; a verified token whose domain
// is not in the registry resolves Unknown.
func (r *Resolver) Resolve(token string) Scope {
    email := r.emailFromToken(token)
    if email == "" { return Scope{Kind: Unrestricted} }
    _, domain, found := strings.Cut(strings.ToLower(email), "@")
    if !found || domain == "" { return Scope{Kind: Unrestricted} }
    if domain == adminDomain { return Scope{Kind: Unrestricted} }
    client, ok := domainClients[domain]
    if !ok { return Scope{Kind: Unknown} }
    // registry values are already the display forms; re-canonicalizing
    // would mangle acronyms like NTT
    return Scope{Kind: Client, Client: client}
}

func (r *Resolver) emailFromToken(token string) string {
    claims, err := r.Claims(token)
    if err != nil { return "" }
    if email, _ := claims["email"].(string); email != "" { return email }
    sub, _ := claims["sub"].(string)
    return sub
}

// Claims verifies the token signature and expiry and returns its payload.
func (r *Resolver) Claims(token string) (jwt.MapClaims, error) {
    token = strings.TrimSpace(token)
    if token == "" { return nil, errors.New("scope: empty token") }
    parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
        return r.secret, nil
    }, jwt.WithValidMethods([]string{"HS256"}))
    if err != nil { return nil, err }
    claims, ok := parsed.Claims.(jwt.MapClaims)
    if !ok { return nil, errors.New("scope: unexpected claims type") }
    return claims, nil
}

// IssueDevToken mints a short-lived HS256 token for the development login
// flow, which runs without the identity provider.
func (r *Resolver) IssueDevToken(email, name string, admin bool) (string, error) {
    now := time.Now()
    claims := jwt.MapClaims{
        "sub":      email,
        "email":    email,
        "name":     name,
        "is_admin": admin,
        "iat":      now.Unix(),
        "exp":      now.Add(r.tokenTTL).Unix(),
    }
    return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
