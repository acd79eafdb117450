// Package report renders reconciliation results for operators.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/reconcile"
)

// printer groups thousands in USD amounts.
var printer = message.NewPrinter(language.English)

// FormatUSD renders v as "$1,234.56".
func FormatUSD(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// WriteTable writes a bordered table of multichain tokens followed by a
// summary of discards and diagnostics.
func WriteTable(w io.Writer, result *reconcile.Result) error {
	config := tablewriter.Config{}
	align := []tw.Align{tw.AlignRight, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft}
	config.Row.Alignment = tw.CellAlignment{PerColumn: align}

	table := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	table.Header("#", "Symbol", "Name", "Chains", "Total Pooled", "Anchor")

	for i := range result.MultichainTokens {
		t := &result.MultichainTokens[i]
		err := table.Append(
			strconv.Itoa(i+1),
			t.Symbol,
			t.Name,
			joinChains(t.ChainIDs(), ","),
			FormatUSD(t.TotalValuePooledUsd),
			string(t.AnchorID),
		)
		if err != nil {
			return fmt.Errorf("append row %d: %w", i+1, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	d := result.Diagnostics
	_, err := fmt.Fprintf(w, "\n%d multichain tokens, %d discarded, %d excluded, %d merges, %d unresolved ids\n",
		len(result.MultichainTokens),
		len(result.DiscardedTokens),
		d.Exclusions,
		d.Merges,
		len(d.UnresolvedIDs),
	)
	return err
}

// csvHeader is the column layout of WriteCSV.
var csvHeader = []string{
	"rank", "anchor_id", "name", "symbol", "chain_count", "chain_ids",
	"member_ids", "total_value_pooled_usd", "price_usd", "logo_url",
}

// WriteCSV writes one row per multichain token. List columns are ';'-separated.
func WriteCSV(w io.Writer, result *reconcile.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range result.MultichainTokens {
		t := &result.MultichainTokens[i]
		row := []string{
			strconv.Itoa(i + 1),
			string(t.AnchorID),
			t.Name,
			t.Symbol,
			strconv.Itoa(len(t.Addresses)),
			joinChains(t.ChainIDs(), ";"),
			joinIDs(t.MemberIDs(), ";"),
			strconv.FormatFloat(t.TotalValuePooledUsd, 'f', 6, 64),
			strconv.FormatFloat(t.PriceUsd, 'f', 6, 64),
			t.LogoURL,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// RenderMarkdown renders the result as a Markdown report.
func RenderMarkdown(runID string, result *reconcile.Result) string {
	var sb strings.Builder

	sb.WriteString("# Multichain Token Report\n\n")
	if runID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", runID))
	}

	sb.WriteString("## Multichain Tokens\n\n")
	if len(result.MultichainTokens) == 0 {
		sb.WriteString("No multichain tokens.\n\n")
	} else {
		sb.WriteString("| # | Symbol | Name | Chains | Total Pooled | Anchor |\n")
		sb.WriteString("|---|--------|------|--------|--------------|--------|\n")
		for i := range result.MultichainTokens {
			t := &result.MultichainTokens[i]
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | `%s` |\n",
				i+1, escapeCell(t.Symbol), escapeCell(t.Name),
				joinChains(t.ChainIDs(), ", "), FormatUSD(t.TotalValuePooledUsd), t.AnchorID))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Discarded Tokens\n\n")
	if len(result.DiscardedTokens) == 0 {
		sb.WriteString("None.\n\n")
	} else {
		for _, d := range result.DiscardedTokens {
			sb.WriteString(fmt.Sprintf("- `%s` %s (%s)\n", d.ID, escapeCell(d.Symbol), FormatUSD(d.TotalValuePooledUsd)))
		}
		sb.WriteString("\n")
	}

	d := result.Diagnostics
	sb.WriteString("## Diagnostics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Exclusions | %d |\n", d.Exclusions))
	sb.WriteString(fmt.Sprintf("| Overrides | %d |\n", d.Overrides))
	sb.WriteString(fmt.Sprintf("| Merges | %d |\n", d.Merges))
	sb.WriteString(fmt.Sprintf("| Duplicate Claims | %d |\n", d.DuplicateClaims))
	sb.WriteString(fmt.Sprintf("| Skipped Excluded Targets | %d |\n", d.SkippedExcludedTargets))
	sb.WriteString(fmt.Sprintf("| Unresolved IDs | %d |\n", len(d.UnresolvedIDs)))

	if len(d.UnresolvedIDs) > 0 {
		sb.WriteString("\n### Unresolved IDs\n\n")
		for _, id := range d.UnresolvedIDs {
			sb.WriteString(fmt.Sprintf("- `%s`\n", id))
		}
	}

	return sb.String()
}

func joinChains(ids []uint64, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, sep)
}

func joinIDs(ids []domain.TokenID, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, sep)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
