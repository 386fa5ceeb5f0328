package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// 공통 출력 포맷
// 배치 리포트, 스냅샷, 상태 화면이 같은 모양을 쓰도록 여기서만 정의
// ═══════════════════════════════════════════════════════════

const (
	lineWidth = 59
	dateFmt   = "2006-01-02"
)

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println(strings.Repeat("─", lineWidth))
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println(strings.Repeat("═", lineWidth))
}

// PrintTitle prints a framed section title
func PrintTitle(format string, args ...any) {
	PrintDoubleSeparator()
	fmt.Printf("  "+format+"\n", args...)
	PrintSeparator()
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// table buffers rows so column widths fit the widest cell
type table struct {
	columns []string
	rows    [][]string
}

func newTable(columns ...string) *table {
	return &table{columns: columns}
}

func (t *table) addRow(values ...string) {
	t.rows = append(t.rows, values)
}

func (t *table) widths() []int {
	w := make([]int, len(t.columns))
	for i, c := range t.columns {
		w[i] = utf8.RuneCountInString(c)
	}
	for _, row := range t.rows {
		for i, v := range row {
			if i < len(w) && utf8.RuneCountInString(v) > w[i] {
				w[i] = utf8.RuneCountInString(v)
			}
		}
	}
	return w
}

// render returns the table as lines: header, rule, rows
func (t *table) render() []string {
	w := t.widths()
	line := func(values []string) string {
		cells := make([]string, len(w))
		for i := range w {
			v := ""
			if i < len(values) {
				v = values[i]
			}
			cells[i] = v + strings.Repeat(" ", w[i]-utf8.RuneCountInString(v))
		}
		return strings.TrimRight(strings.Join(cells, "  "), " ")
	}

	total := 2 * (len(w) - 1)
	for _, n := range w {
		total += n
	}

	out := make([]string, 0, len(t.rows)+2)
	out = append(out, line(t.columns), strings.Repeat("─", total))
	for _, row := range t.rows {
		out = append(out, line(row))
	}
	return out
}

func (t *table) print() {
	for _, l := range t.render() {
		fmt.Println(l)
	}
}

// PrintDiagnosticCounts prints one line per diagnostic kind, in kind order
func PrintDiagnosticCounts(diags []contracts.Diagnostic) {
	counts := contracts.CountByKind(diags)
	kinds := make([]contracts.DiagnosticKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		PrintKeyValue(k.String(), strconv.Itoa(counts[k]), 30)
	}
}

// PrintDiagnostics prints diagnostics as a bulleted list
func PrintDiagnostics(diags []contracts.Diagnostic) {
	for _, d := range diags {
		fmt.Printf("   • %s\n", d.String())
	}
}
