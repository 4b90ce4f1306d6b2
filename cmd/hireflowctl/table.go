package main

import (
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"hireflow/internal/security"
)

func renderClaims(claims *security.Claims) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Claim", "Value"})
	tw.AppendRow(table.Row{"staff id", claims.Subject})
	tw.AppendRow(table.Row{"name", claims.Name})
	tw.AppendRow(table.Row{"email", claims.Email})
	tw.AppendRow(table.Row{"capabilities", strings.Join(claims.Capabilities, ", ")})
	if claims.IssuedAt != nil {
		tw.AppendRow(table.Row{"issued", claims.IssuedAt.UTC().Format(time.RFC3339)})
	}
	if claims.ExpiresAt != nil {
		tw.AppendRow(table.Row{"expires", claims.ExpiresAt.UTC().Format(time.RFC3339)})
	}
	return tw.Render()
}
