package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/AfyaChecker/internal/catalog"
	"github.com/Skufu/AfyaChecker/internal/report"
	"github.com/Skufu/AfyaChecker/internal/scorer"
)

func runChecker(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunPrintsTopConditions(t *testing.T) {
	code, out, _ := runChecker("-symptoms", "homa")
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out, "Magonjwa yanayowezekana zaidi:\n1. Malaria - 25.0%\n2. Typhoid - 25.0%\n3. Mafua - 25.0%\n"), out)
	assert.Contains(t, out, report.Disclaimer(catalog.Swahili))
}

func TestRunCombinesFreeTextAndSelection(t *testing.T) {
	code, out, _ := runChecker("-symptoms", "homa, maumivu", "-select", "kikohozi", "-lang", "en")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Most likely conditions:")
	assert.Contains(t, out, "Unrecognised symptoms: maumivu")
	assert.Contains(t, out, "Advice: ")
}

func TestRunList(t *testing.T) {
	code, out, _ := runChecker("-list", "-lang", "en")
	require.Equal(t, exitOK, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 10)
	assert.Equal(t, "kikohozi (cough)", lines[0])

	_, out, _ = runChecker("-list")
	assert.True(t, strings.HasPrefix(out, "kikohozi\n"))
}

func TestRunInputErrors(t *testing.T) {
	code, out, errOut := runChecker()
	assert.Equal(t, exitInput, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, report.ErrorMessage(catalog.Swahili, scorer.ErrNoSymptoms))

	code, _, errOut = runChecker("-symptoms", "Homa", "-lang", "en")
	assert.Equal(t, exitInput, code)
	assert.Contains(t, errOut, report.ErrorMessage(catalog.English, scorer.ErrNoMatches))
	assert.Contains(t, errOut, "Homa")

	code, _, _ = runChecker("-no-such-flag")
	assert.Equal(t, exitInput, code)
}

func TestRunWritesReportAndChart(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "ripoti.txt")
	chartPath := filepath.Join(dir, "chati.png")

	code, _, _ := runChecker("-select", "homa,kikohozi", "-report", reportPath, "-chart", chartPath)
	require.Equal(t, exitOK, code)

	cat := catalog.MustDefault()
	res, err := scorer.Analyze(cat.Symptoms, "", []string{"homa", "kikohozi"})
	require.NoError(t, err)

	got, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t, report.New(cat, catalog.Swahili, res).Text(), string(got))

	png, err := os.ReadFile(chartPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))
}

func TestRunUnwritableReport(t *testing.T) {
	code, _, _ := runChecker("-symptoms", "homa", "-report", filepath.Join(t.TempDir(), "missing", "r.txt"))
	assert.Equal(t, exitError, code)
}
